package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden            ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest           ErrorCode = "BAD_REQUEST"
	ErrCodeConflict             ErrorCode = "CONFLICT"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation           ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrCodePhotosInsufficient   ErrorCode = "PHOTOS_INSUFFICIENT"
	ErrCodeDisputeAlreadyOpen   ErrorCode = "DISPUTE_ALREADY_OPEN"
	ErrCodeDisputeWindowExpired ErrorCode = "DISPUTE_WINDOW_EXPIRED"
	ErrCodeRefundOutOfRange     ErrorCode = "REFUND_AMOUNT_OUT_OF_RANGE"
	ErrCodeLedgerFailed         ErrorCode = "LEDGER_OPERATION_FAILED"
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

func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
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
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodePhotosInsufficient, ErrCodeRefundOutOfRange:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeInvalidTransition, ErrCodeDisputeAlreadyOpen:
		return http.StatusConflict
	case ErrCodeDisputeWindowExpired:
		return http.StatusUnprocessableEntity
	case ErrCodeLedgerFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Is проверяет код ошибки независимо от обёрток.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

func IsInvalidTransition(err error) bool {
	return Is(err, ErrCodeInvalidTransition)
}

var (
	ErrBookingNotFound = New(ErrCodeNotFound, "бронирование не найдено")
	ErrAddressNotFound = New(ErrCodeNotFound, "адрес не найден")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrUserNotFound    = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "недостаточно прав")

	// ErrInvalidTransition — доброкачественный конфликт: текущий статус уже
	// не совпадает с ожидаемым. Повтор после перечитывания безопасен.
	ErrInvalidTransition = New(ErrCodeInvalidTransition, "статус бронирования уже изменился, обновите данные и повторите")

	ErrDisputeAlreadyOpen   = New(ErrCodeDisputeAlreadyOpen, "по этому бронированию уже открыт спор")
	ErrDisputeWindowExpired = New(ErrCodeDisputeWindowExpired, "окно для открытия спора истекло")
	ErrRefundOutOfRange     = New(ErrCodeRefundOutOfRange, "сумма возврата вне допустимого диапазона")
)

// PhotosInsufficientError сообщает подрядчику, сколько фотографий не хватает
// для завершения работ. Серверная проверка авторитетна, клиентские минимумы —
// только подсказка в интерфейсе.
type PhotosInsufficientError struct {
	RequiredBefore int
	RequiredAfter  int
	GotBefore      int
	GotAfter       int
}

func (e *PhotosInsufficientError) Error() string {
	return fmt.Sprintf("минимум фотографий: %d до, %d после — загружено %d до, %d после",
		e.RequiredBefore, e.RequiredAfter, e.GotBefore, e.GotAfter)
}

// HTTPStatus возвращает код ответа для этой ошибки.
func (e *PhotosInsufficientError) HTTPStatus() int {
	return http.StatusBadRequest
}
