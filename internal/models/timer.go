package models

import (
	"time"

	"github.com/google/uuid"
)

// Виды отложенных действий планировщика
const (
	TimerKindAutoRelease = "auto_release"
)

// BookingTimer представляет отложенное действие по бронированию. Таймер
// срабатывает не более одного раза: захват на исполнение и отмена — это
// условные обновления, выигрывающие гонку ровно однажды.
type BookingTimer struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	BookingID   uuid.UUID  `db:"booking_id" json:"booking_id"`
	Kind        string     `db:"kind" json:"kind"`
	DueAt       time.Time  `db:"due_at" json:"due_at"`
	FiredAt     *time.Time `db:"fired_at" json:"fired_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
