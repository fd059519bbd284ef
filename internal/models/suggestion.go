package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SuggestionStatusPending  = "pending"
	SuggestionStatusAccepted = "accepted"
	SuggestionStatusRejected = "rejected"
)

// AlternativeSuggestion описывает встречное предложение подрядчика по дате и
// времени для ещё не назначенного бронирования. Уникально по комбинации
// (booking_id, contractor_id, date, time_slot).
type AlternativeSuggestion struct {
	ID           uuid.UUID `db:"id" json:"id"`
	BookingID    uuid.UUID `db:"booking_id" json:"booking_id"`
	ContractorID uuid.UUID `db:"contractor_id" json:"contractor_id"`
	Date         time.Time `db:"date" json:"date"`
	TimeSlot     string    `db:"time_slot" json:"time_slot"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
