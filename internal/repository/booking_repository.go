package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

const bookingColumns = `
	id, customer_id, address_id, contractor_id, preferred_contractor_id,
	scheduled_date, time_slot, grass_length, clippings_removal,
	original_price, total_price, quote_breakdown,
	payment_method, payment_status, payout_status, status,
	contractor_accepted_at, completed_at, customer_rating,
	created_at, updated_at`

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create сохраняет новое бронирование.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	query := `
		INSERT INTO bookings (
			customer_id, address_id, preferred_contractor_id,
			scheduled_date, time_slot, grass_length, clippings_removal,
			original_price, total_price, quote_breakdown,
			payment_method, payment_status, payout_status, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		b.CustomerID, b.AddressID, b.PreferredContractorID,
		b.ScheduledDate, b.TimeSlot, b.GrassLength, b.ClippingsRemoval,
		b.OriginalPrice, b.TotalPrice, b.QuoteBreakdown,
		b.PaymentMethod, b.PaymentStatus, b.PayoutStatus, b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("booking repository: create %w", err)
	}
	return nil
}

// GetByID возвращает бронирование по ID.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("booking repository: get by id %w", err)
	}
	return &b, nil
}

// ListByCustomer возвращает бронирования заказчика.
func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE customer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, customerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("booking repository: list by customer %w", err)
	}
	return bookings, nil
}

// ListByContractor возвращает бронирования, назначенные подрядчику.
func (r *BookingRepository) ListByContractor(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE contractor_id = $1
		ORDER BY scheduled_date DESC LIMIT $2 OFFSET $3
	`, contractorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("booking repository: list by contractor %w", err)
	}
	return bookings, nil
}

// ListAvailable возвращает ожидающие бронирования, видимые подрядчику:
// адресованные ему лично либо открытые в его зоне обслуживания.
func (r *BookingRepository) ListAvailable(ctx context.Context, contractorID uuid.UUID, serviceArea string, limit, offset int) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT b.*
		FROM bookings b
		JOIN addresses a ON a.id = b.address_id
		WHERE b.status = 'pending'
		  AND (b.preferred_contractor_id = $1
		       OR (b.preferred_contractor_id IS NULL AND a.service_area = $2))
		ORDER BY b.scheduled_date ASC LIMIT $3 OFFSET $4
	`, contractorID, serviceArea, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("booking repository: list available %w", err)
	}
	return bookings, nil
}

// ListPendingVerificationByAddress возвращает бронирования адреса, ожидающие
// проверки площади.
func (r *BookingRepository) ListPendingVerificationByAddress(ctx context.Context, addressID uuid.UUID) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE address_id = $1 AND status = 'pending_address_verification'
		ORDER BY created_at ASC
	`, addressID)
	if err != nil {
		return nil, fmt.Errorf("booking repository: list pending verification %w", err)
	}
	return bookings, nil
}

// UpdateStatusIf переводит бронирование из одного статуса в другой одним
// условным обновлением. Если строка уже не в ожидаемом статусе, возвращает
// ErrStatusConflict — так проигравший гонку актор узнаёт, что его переход
// не состоялся.
func (r *BookingRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("booking repository: update status %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// CancelByCustomer отменяет бронирование заказчика. Отмена допустима только
// до назначения подрядчика.
func (r *BookingRepository) CancelByCustomer(ctx context.Context, id, customerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND customer_id = $2 AND contractor_id IS NULL
		  AND status IN ('pending_address_verification', 'price_change_pending', 'pending')
	`, id, customerID)
	if err != nil {
		return fmt.Errorf("booking repository: cancel %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// Reprice записывает новую цену со сметой и переводит бронирование в новый
// статус. Используется при сверке цены после проверки адреса.
func (r *BookingRepository) Reprice(ctx context.Context, id uuid.UUID, from, to string, total float64, breakdown json.RawMessage) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET total_price = $4, quote_breakdown = $5, status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to, total, breakdown)
	if err != nil {
		return fmt.Errorf("booking repository: reprice %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// ApproveNewPrice принимает пересчитанную цену: бронирование возвращается в
// ожидание подрядчика, оплата сбрасывается до повторного резервирования.
func (r *BookingRepository) ApproveNewPrice(ctx context.Context, id, customerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = 'pending', payment_status = 'unpaid', payment_method = NULL, updated_at = NOW()
		WHERE id = $1 AND customer_id = $2 AND status = 'price_change_pending'
	`, id, customerID)
	if err != nil {
		return fmt.Errorf("booking repository: approve new price %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// SetPaymentMethod сохраняет платёжный метод и резервирует оплату.
func (r *BookingRepository) SetPaymentMethod(ctx context.Context, id, customerID uuid.UUID, method string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET payment_method = $3, payment_status = 'pending', updated_at = NOW()
		WHERE id = $1 AND customer_id = $2 AND payment_status = 'unpaid'
		  AND status IN ('pending_address_verification', 'pending')
	`, id, customerID, method)
	if err != nil {
		return fmt.Errorf("booking repository: set payment method %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// Reschedule переносит ожидающее бронирование на другую дату и слот.
func (r *BookingRepository) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, slot string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET scheduled_date = $2, time_slot = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, date, slot)
	if err != nil {
		return fmt.Errorf("booking repository: reschedule %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// MarkCompleted фиксирует завершение работ подрядчиком и открывает окно
// проверки заказчиком.
func (r *BookingRepository) MarkCompleted(ctx context.Context, id, contractorID uuid.UUID, completedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = 'completed_pending_verification', completed_at = $3, updated_at = NOW()
		WHERE id = $1 AND contractor_id = $2 AND status = 'confirmed'
	`, id, contractorID, completedAt)
	if err != nil {
		return fmt.Errorf("booking repository: mark completed %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// SetRating сохраняет оценку заказчика. Повторная оценка не допускается.
func (r *BookingRepository) SetRating(ctx context.Context, id, customerID uuid.UUID, rating int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET customer_rating = $3, updated_at = NOW()
		WHERE id = $1 AND customer_id = $2 AND customer_rating IS NULL
		  AND status IN ('completed', 'completed_with_issues')
	`, id, customerID, rating)
	if err != nil {
		return fmt.Errorf("booking repository: set rating %w", err)
	}
	return requireRowAffected(res, ErrAlreadyRated)
}

// requireRowAffected возвращает conflict, если условное обновление не
// затронуло ни одной строки.
func requireRowAffected(res sql.Result, conflict error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return conflict
	}
	return nil
}
