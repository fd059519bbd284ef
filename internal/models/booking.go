package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Окна жизненного цикла после завершения работ.
const (
	// ReviewWindow — время на проверку работ заказчиком, после которого
	// выплата освобождается автоматически.
	ReviewWindow = 48 * time.Hour
	// DisputeWindow — окно после завершения, в течение которого заказчик
	// может открыть спор по уже выплаченному заказу.
	DisputeWindow = 7 * 24 * time.Hour
)

// Booking описывает заказ на покос газона. Деньги удерживаются на счёте
// платформы до подтверждения работ заказчиком либо до истечения окна проверки.
type Booking struct {
	ID                    uuid.UUID       `db:"id" json:"id"`
	CustomerID            uuid.UUID       `db:"customer_id" json:"customer_id"`
	AddressID             uuid.UUID       `db:"address_id" json:"address_id"`
	ContractorID          *uuid.UUID      `db:"contractor_id" json:"contractor_id,omitempty"`
	PreferredContractorID *uuid.UUID      `db:"preferred_contractor_id" json:"preferred_contractor_id,omitempty"`
	ScheduledDate         time.Time       `db:"scheduled_date" json:"scheduled_date"`
	TimeSlot              string          `db:"time_slot" json:"time_slot"`
	GrassLength           string          `db:"grass_length" json:"grass_length"`
	ClippingsRemoval      bool            `db:"clippings_removal" json:"clippings_removal"`
	OriginalPrice         float64         `db:"original_price" json:"original_price"`
	TotalPrice            float64         `db:"total_price" json:"total_price"`
	QuoteBreakdown        json.RawMessage `db:"quote_breakdown" json:"quote_breakdown,omitempty"`
	PaymentMethod         *string         `db:"payment_method" json:"-"`
	PaymentStatus         string          `db:"payment_status" json:"payment_status"`
	PayoutStatus          string          `db:"payout_status" json:"payout_status"`
	Status                string          `db:"status" json:"status"`
	ContractorAcceptedAt  *time.Time      `db:"contractor_accepted_at" json:"contractor_accepted_at,omitempty"`
	CompletedAt           *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CustomerRating        *int            `db:"customer_rating" json:"customer_rating,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at" json:"updated_at"`
}

// ContractorAssigned отвечает, назначен ли на бронирование подрядчик.
func (b *Booking) ContractorAssigned() bool {
	return b.ContractorID != nil
}

// HoursRemainingInReviewWindow возвращает, сколько часов осталось заказчику
// на проверку работ. Ноль — если окно закрыто или бронирование не ожидает
// проверки.
func (b *Booking) HoursRemainingInReviewWindow(now time.Time) int {
	if b.Status != BookingStatusCompletedPendingVerification || b.CompletedAt == nil {
		return 0
	}
	remaining := b.CompletedAt.Add(ReviewWindow).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours())
}

// DaysRemainingInDisputeWindow возвращает, сколько дней осталось заказчику на
// открытие спора после выплаты. Ноль — если окно закрыто.
func (b *Booking) DaysRemainingInDisputeWindow(now time.Time) int {
	if b.Status != BookingStatusCompleted || b.CompletedAt == nil {
		return 0
	}
	remaining := b.CompletedAt.Add(DisputeWindow).Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Hours() / 24)
}

// InDisputeWindow отвечает, открыто ли ещё окно споров по выплаченному заказу.
func (b *Booking) InDisputeWindow(now time.Time) bool {
	if b.CompletedAt == nil {
		return false
	}
	return now.Before(b.CompletedAt.Add(DisputeWindow))
}
