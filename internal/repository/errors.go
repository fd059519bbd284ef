package repository

import "errors"

// Сентинельные ошибки слоя хранилища. Ошибки конфликтов статусов — штатный
// исход гонки независимых акторов, сервисный слой переводит их в
// доброкачественный конфликт для клиента.
var (
	ErrBookingNotFound      = errors.New("booking not found")
	ErrAddressNotFound      = errors.New("address not found")
	ErrDisputeNotFound      = errors.New("dispute not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrSuggestionNotFound   = errors.New("suggestion not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrSessionNotFound      = errors.New("session not found")

	// ErrStatusConflict — условное обновление не затронуло ни одной строки:
	// другой актор уже перевёл бронирование в иной статус.
	ErrStatusConflict = errors.New("booking status conflict")

	ErrNoPaymentMethod     = errors.New("no payment method on file")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDisputeAlreadyOpen  = errors.New("dispute already open for this booking")
	ErrDuplicateSuggestion = errors.New("suggestion already exists")
	ErrAlreadyRated        = errors.New("booking already rated")
)
