package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeTaskNotOpen         ErrorCode = "TASK_NOT_OPEN"
	ErrCodeDuplicateBid        ErrorCode = "DUPLICATE_BID"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeCommitFailed        ErrorCode = "COMMIT_FAILED"
	ErrCodeUnavailable         ErrorCode = "UNAVAILABLE"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition, ErrCodeTaskNotOpen, ErrCodeDuplicateBid, ErrCodeCommitFailed:
		return http.StatusConflict
	case ErrCodeInsufficientBalance:
		return http.StatusPaymentRequired
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

// IsRetryable возвращает true для ошибок, при которых операцию
// имеет смысл повторить: сбой фиксации транзакции или временная
// недоступность зависимости. Ошибки бизнес-логики не повторяются.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == ErrCodeCommitFailed || appErr.Code == ErrCodeUnavailable
}

var (
	ErrTaskNotFound         = New(ErrCodeNotFound, "задание не найдено")
	ErrBidNotFound          = New(ErrCodeNotFound, "отклик не найден")
	ErrEscrowNotFound       = New(ErrCodeNotFound, "эскроу не найден")
	ErrUserNotFound         = New(ErrCodeNotFound, "пользователь не найден")
	ErrTaskNotOpen          = New(ErrCodeTaskNotOpen, "задание уже не открыто")
	ErrDuplicateBid         = New(ErrCodeDuplicateBid, "вы уже откликнулись на это задание")
	ErrInsufficientBalance  = New(ErrCodeInsufficientBalance, "недостаточно средств на балансе")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden            = New(ErrCodeForbidden, "недостаточно прав")
	ErrInvalidCredentials   = New(ErrCodeUnauthorized, "неверные учетные данные")
)
