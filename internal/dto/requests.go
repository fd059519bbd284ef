package dto

// CreateAddressRequest — новый адрес заказчика.
type CreateAddressRequest struct {
	Line                 string  `json:"line" binding:"required"`
	City                 string  `json:"city" binding:"required"`
	ServiceArea          string  `json:"service_area" binding:"required"`
	DeclaredSquareMeters float64 `json:"declared_square_meters" binding:"required"`
}

// VerifyAddressRequest — решение администратора по проверке адреса.
type VerifyAddressRequest struct {
	SquareMeters float64 `json:"square_meters" binding:"required"`
}

// CreateBookingRequest — новое бронирование покоса.
type CreateBookingRequest struct {
	AddressID             string  `json:"address_id" binding:"required"`
	PreferredContractorID *string `json:"preferred_contractor_id"`
	ScheduledDate         string  `json:"scheduled_date" binding:"required"` // YYYY-MM-DD
	TimeSlot              string  `json:"time_slot" binding:"required"`
	GrassLength           string  `json:"grass_length" binding:"required"`
	ClippingsRemoval      bool    `json:"clippings_removal"`
	PaymentMethod         *string `json:"payment_method"`
}

// SetPaymentMethodRequest — резервирование оплаты заказчиком.
type SetPaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// RateBookingRequest — оценка завершённого бронирования.
type RateBookingRequest struct {
	Rating int `json:"rating" binding:"required"`
}

// SuggestAlternativeRequest — встречное предложение подрядчика.
type SuggestAlternativeRequest struct {
	Date     string `json:"date" binding:"required"` // YYYY-MM-DD
	TimeSlot string `json:"time_slot" binding:"required"`
}

// OpenDisputeRequest — открытие спора заказчиком.
type OpenDisputeRequest struct {
	Reason                string  `json:"reason" binding:"required"`
	Description           string  `json:"description"`
	SuggestedRefundAmount float64 `json:"suggested_refund_amount"`
}

// ResolveDisputeRequest — решение администратора по спору.
type ResolveDisputeRequest struct {
	Resolution       string  `json:"resolution" binding:"required"`
	RefundPercentage float64 `json:"refund_percentage"`
}

// UpsertContractorProfileRequest — анкета подрядчика.
type UpsertContractorProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	ServiceArea string `json:"service_area" binding:"required"`
}

// ApproveContractorRequest — допуск подрядчика администратором.
type ApproveContractorRequest struct {
	Status       string `json:"status" binding:"required"`
	Probationary bool   `json:"probationary"`
}

// WithdrawRequest — заявка подрядчика на вывод средств.
type WithdrawRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}
