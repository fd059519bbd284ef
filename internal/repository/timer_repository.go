package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TimerRepository хранит отложенные действия планировщика. Таймеры — строки
// в БД, а не горутины: рестарт сервиса не теряет запланированные выплаты.
type TimerRepository struct {
	db *sqlx.DB
}

func NewTimerRepository(db *sqlx.DB) *TimerRepository {
	return &TimerRepository{db: db}
}

// Arm взводит таймер по бронированию. Повторный взвод того же вида — no-op.
func (r *TimerRepository) Arm(ctx context.Context, bookingID uuid.UUID, kind string, dueAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO booking_timers (booking_id, kind, due_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (booking_id, kind) DO NOTHING
	`, bookingID, kind, dueAt)
	if err != nil {
		return fmt.Errorf("timer repository: arm %w", err)
	}
	return nil
}

// Cancel снимает таймер с взвода. Идемпотентно: уже отменённый или уже
// сработавший таймер не трогаем.
func (r *TimerRepository) Cancel(ctx context.Context, bookingID uuid.UUID, kind string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE booking_timers SET cancelled_at = NOW()
		WHERE booking_id = $1 AND kind = $2 AND fired_at IS NULL AND cancelled_at IS NULL
	`, bookingID, kind)
	if err != nil {
		return fmt.Errorf("timer repository: cancel %w", err)
	}
	return nil
}

// Unclaim возвращает захваченный таймер во взведённое состояние. Нужен,
// когда действие сработавшего таймера не удалось выполнить: следующий проход
// воркера захватит таймер заново и повторит попытку.
func (r *TimerRepository) Unclaim(ctx context.Context, bookingID uuid.UUID, kind string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE booking_timers SET fired_at = NULL
		WHERE booking_id = $1 AND kind = $2 AND fired_at IS NOT NULL AND cancelled_at IS NULL
	`, bookingID, kind)
	if err != nil {
		return fmt.Errorf("timer repository: unclaim %w", err)
	}
	return nil
}

// ClaimDue захватывает пачку созревших таймеров на исполнение. Захват — это
// условное проставление fired_at, поэтому каждый таймер достаётся ровно
// одному воркеру даже при нескольких экземплярах сервиса.
func (r *TimerRepository) ClaimDue(ctx context.Context, kind string, limit int) ([]uuid.UUID, error) {
	var bookingIDs []uuid.UUID
	err := r.db.SelectContext(ctx, &bookingIDs, `
		UPDATE booking_timers SET fired_at = NOW()
		WHERE id IN (
			SELECT id FROM booking_timers
			WHERE kind = $1 AND fired_at IS NULL AND cancelled_at IS NULL AND due_at <= NOW()
			ORDER BY due_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING booking_id
	`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("timer repository: claim due %w", err)
	}
	return bookingIDs, nil
}
