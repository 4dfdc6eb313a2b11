package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/taskdom/backend/internal/pkg/apperror"
)

func TestErrorHandler_AppErrorCarriesRetryable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/unavailable", func(c *gin.Context) {
		_ = c.Error(apperror.New(apperror.ErrCodeUnavailable, "кошельки недоступны"))
	})
	r.GET("/forbidden", func(c *gin.Context) {
		_ = c.Error(apperror.ErrForbidden)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unavailable", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["retryable"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/forbidden", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["retryable"])
}
