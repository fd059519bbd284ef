package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DisputeStatusOpen     = "open"
	DisputeStatusResolved = "resolved"
)

// Dispute описывает спор по бронированию. Одновременно по бронированию может
// быть открыт только один спор; закрывает спор только администратор.
type Dispute struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	BookingID             uuid.UUID  `db:"booking_id" json:"booking_id"`
	RaisedBy              uuid.UUID  `db:"raised_by" json:"raised_by"`
	Reason                string     `db:"reason" json:"reason"`
	Description           string     `db:"description" json:"description"`
	SuggestedRefundAmount float64    `db:"suggested_refund_amount" json:"suggested_refund_amount"`
	PostPayout            bool       `db:"post_payout" json:"post_payout"`
	Status                string     `db:"status" json:"status"`
	Resolution            *string    `db:"resolution" json:"resolution,omitempty"`
	RefundPercentage      *float64   `db:"refund_percentage" json:"refund_percentage,omitempty"`
	ResolvedBy            *uuid.UUID `db:"resolved_by" json:"resolved_by,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt            *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
