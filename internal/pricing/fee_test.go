package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformFee_Positive(t *testing.T) {
	fee := PlatformFee(1500)
	assert.GreaterOrEqual(t, fee, 0.0)
	assert.Equal(t, fee, PlatformFee(1500), "комиссия детерминирована")
}

func TestPlatformFee_FlatForAnyAmount(t *testing.T) {
	assert.Equal(t, PlatformFee(100), PlatformFee(1000000))
}

func TestPlatformFee_ZeroForNonPositive(t *testing.T) {
	assert.Equal(t, 0.0, PlatformFee(0))
	assert.Equal(t, 0.0, PlatformFee(-10))
}

func TestEscrowTotal(t *testing.T) {
	assert.Equal(t, 1500+PlatformFee(1500), EscrowTotal(1500))
}
