package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/taskdom/backend/internal/logger"
	"github.com/taskdom/backend/internal/pkg/apperror"
	"github.com/taskdom/backend/internal/repository"
)

// ErrorHandler обрабатывает ошибки централизованно.
// Маскирует внутренние ошибки и возвращает понятные сообщения клиенту.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()

		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"error":  err.Error(),
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			}).Error("Request error")
		}

		// AppError несёт и код, и сообщение для клиента; retryable
		// подсказывает клиенту предложить повтор операции.
		var appErr *apperror.AppError
		if errors.As(err.Err, &appErr) {
			c.JSON(appErr.HTTPStatus, gin.H{
				"error":     appErr.Message,
				"code":      appErr.Code,
				"retryable": apperror.IsRetryable(appErr),
			})
			return
		}

		statusCode := http.StatusInternalServerError
		message := "внутренняя ошибка сервера"

		switch {
		case errors.Is(err.Err, repository.ErrTaskNotFound):
			statusCode = http.StatusNotFound
			message = "задание не найдено"
		case errors.Is(err.Err, repository.ErrBidNotFound):
			statusCode = http.StatusNotFound
			message = "отклик не найден"
		case errors.Is(err.Err, repository.ErrUserNotFound):
			statusCode = http.StatusNotFound
			message = "пользователь не найден"
		case errors.Is(err.Err, repository.ErrEscrowNotFound):
			statusCode = http.StatusNotFound
			message = "эскроу не найден"
		default:
			if errStr := err.Error(); errStr != "" && !containsInternalKeywords(errStr) {
				message = errStr
				if contains(errStr, "неверный") || contains(errStr, "невалид") {
					statusCode = http.StatusBadRequest
				} else if contains(errStr, "нет прав") || contains(errStr, "не авторизован") {
					statusCode = http.StatusForbidden
				}
			}
		}

		c.JSON(statusCode, gin.H{"error": message})
	}
}

// containsInternalKeywords проверяет, содержит ли строка ключевые слова внутренних ошибок.
func containsInternalKeywords(s string) bool {
	keywords := []string{
		"sql:",
		"database",
		"connection",
		"timeout",
		"internal",
		"panic",
		"runtime",
	}

	for _, keyword := range keywords {
		if contains(s, keyword) {
			return true
		}
	}
	return false
}

// contains проверяет, содержит ли строка подстроку (case-insensitive).
func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
