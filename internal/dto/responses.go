package dto

import (
	"time"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

// ErrorResponse — единый формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse — единый формат успешного ответа с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BookingResponse дополняет бронирование вычисленными окнами: сколько осталось
// на проверку работ и на открытие спора после выплаты.
type BookingResponse struct {
	*models.Booking
	ReviewHoursRemaining int `json:"review_hours_remaining"`
	DisputeDaysRemaining int `json:"dispute_days_remaining"`
}

// NewBookingResponse собирает ответ по бронированию на момент now.
func NewBookingResponse(b *models.Booking, now time.Time) *BookingResponse {
	return &BookingResponse{
		Booking:              b,
		ReviewHoursRemaining: b.HoursRemainingInReviewWindow(now),
		DisputeDaysRemaining: b.DaysRemainingInDisputeWindow(now),
	}
}

// NewBookingListResponse собирает список ответов по бронированиям.
func NewBookingListResponse(bookings []models.Booking, now time.Time) []*BookingResponse {
	out := make([]*BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, NewBookingResponse(&bookings[i], now))
	}
	return out
}
