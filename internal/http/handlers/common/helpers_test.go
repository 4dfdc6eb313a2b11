package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/taskdom/backend/internal/pkg/apperror"
)

func TestRespondServiceError_RetryableFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{
			name:      "сбой фиксации повторяем",
			err:       apperror.New(apperror.ErrCodeCommitFailed, "не удалось зафиксировать принятие отклика"),
			status:    http.StatusConflict,
			retryable: true,
		},
		{
			name:      "недоступность повторяема",
			err:       apperror.New(apperror.ErrCodeUnavailable, "кошельки недоступны"),
			status:    http.StatusServiceUnavailable,
			retryable: true,
		},
		{
			name:      "бизнес-ошибка не повторяема",
			err:       apperror.ErrTaskNotOpen,
			status:    http.StatusConflict,
			retryable: false,
		},
		{
			name:      "not found не повторяем",
			err:       apperror.ErrTaskNotFound,
			status:    http.StatusNotFound,
			retryable: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondServiceError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)

			var body map[string]any
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.retryable, body["retryable"])
			assert.NotEmpty(t, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}
