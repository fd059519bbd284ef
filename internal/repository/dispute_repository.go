package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

const disputeColumns = `
	id, booking_id, raised_by, reason, description, suggested_refund_amount,
	post_payout, status, resolution, refund_percentage, resolved_by,
	created_at, resolved_at`

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Open создаёт спор и переводит бронирование в спорный статус одной
// транзакцией. Для спора до выплаты замораживается и выплата. Проверка
// открытого спора выполняется под блокировкой строки бронирования, частичный
// уникальный индекс по открытым спорам страхует от гонки вставок.
func (r *DisputeRepository) Open(ctx context.Context, d *models.Dispute, fromStatus, toStatus string, freezePayout bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := lockBooking(ctx, tx, d.BookingID)
	if err != nil {
		return err
	}
	if b.Status != fromStatus {
		return ErrStatusConflict
	}

	var exists bool
	err = tx.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM disputes WHERE booking_id = $1 AND status = 'open')
	`, d.BookingID)
	if err != nil {
		return fmt.Errorf("dispute repository: check open %w", err)
	}
	if exists {
		return ErrDisputeAlreadyOpen
	}

	err = tx.GetContext(ctx, d, `
		INSERT INTO disputes (booking_id, raised_by, reason, description, suggested_refund_amount, post_payout, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'open')
		RETURNING `+disputeColumns+`
	`, d.BookingID, d.RaisedBy, d.Reason, d.Description, d.SuggestedRefundAmount, d.PostPayout)
	if err != nil {
		return fmt.Errorf("dispute repository: create %w", err)
	}

	if freezePayout {
		_, err = tx.ExecContext(ctx, `
			UPDATE bookings SET status = $2, payout_status = 'frozen', updated_at = NOW() WHERE id = $1
		`, d.BookingID, toStatus)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1
		`, d.BookingID, toStatus)
	}
	if err != nil {
		return fmt.Errorf("dispute repository: mark booking disputed %w", err)
	}

	return tx.Commit()
}

// Resolve записывает решение администратора. Условное обновление по статусу
// open исключает повторное разрешение.
func (r *DisputeRepository) Resolve(ctx context.Context, disputeID, adminID uuid.UUID, resolution string, refundPercentage float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes
		SET status = 'resolved', resolution = $2, refund_percentage = $3, resolved_by = $4, resolved_at = NOW()
		WHERE id = $1 AND status = 'open'
	`, disputeID, resolution, refundPercentage, adminID)
	if err != nil {
		return fmt.Errorf("dispute repository: resolve %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// GetByID возвращает спор по ID.
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get by id %w", err)
	}
	return &d, nil
}

// GetOpenByBooking возвращает открытый спор по бронированию.
func (r *DisputeRepository) GetOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `
		SELECT `+disputeColumns+` FROM disputes WHERE booking_id = $1 AND status = 'open'
	`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute repository: get open by booking %w", err)
	}
	return &d, nil
}

// ListByBooking возвращает все споры по бронированию.
func (r *DisputeRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes WHERE booking_id = $1 ORDER BY created_at DESC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list by booking %w", err)
	}
	return disputes, nil
}

// ListOpen возвращает открытые споры для администратора.
func (r *DisputeRepository) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT `+disputeColumns+` FROM disputes WHERE status = 'open'
		ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: list open %w", err)
	}
	return disputes, nil
}
