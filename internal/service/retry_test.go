package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taskdom/backend/internal/pkg/apperror"
)

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return apperror.New(apperror.ErrCodeUnavailable, "база недоступна")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_BusinessErrorNotRetried(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return apperror.ErrTaskNotOpen
	})

	assert.ErrorIs(t, err, apperror.ErrTaskNotOpen)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_PlainErrorNotRetried(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond}

	someErr := errors.New("boom")
	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return someErr
	})

	assert.ErrorIs(t, err, someErr)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		return apperror.New(apperror.ErrCodeCommitFailed, "фиксация не прошла")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_ContextCancelled(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := policy.Do(ctx, func() error {
		return apperror.New(apperror.ErrCodeUnavailable, "временный сбой")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
