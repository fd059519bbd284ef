package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

type SuggestionRepository struct {
	db *sqlx.DB
}

func NewSuggestionRepository(db *sqlx.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// Create сохраняет встречное предложение подрядчика. Дубликат по
// (бронирование, подрядчик, дата, слот) отклоняется уникальным индексом.
func (r *SuggestionRepository) Create(ctx context.Context, s *models.AlternativeSuggestion) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO alternative_suggestions (booking_id, contractor_id, date, time_slot, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, status, created_at
	`, s.BookingID, s.ContractorID, s.Date, s.TimeSlot).
		Scan(&s.ID, &s.Status, &s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateSuggestion
		}
		return fmt.Errorf("suggestion repository: create %w", err)
	}
	return nil
}

// GetByID возвращает предложение по ID.
func (r *SuggestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AlternativeSuggestion, error) {
	var s models.AlternativeSuggestion
	err := r.db.GetContext(ctx, &s, `
		SELECT id, booking_id, contractor_id, date, time_slot, status, created_at
		FROM alternative_suggestions WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSuggestionNotFound
		}
		return nil, fmt.Errorf("suggestion repository: get by id %w", err)
	}
	return &s, nil
}

// ListByBooking возвращает предложения по бронированию.
func (r *SuggestionRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.AlternativeSuggestion, error) {
	var suggestions []models.AlternativeSuggestion
	err := r.db.SelectContext(ctx, &suggestions, `
		SELECT id, booking_id, contractor_id, date, time_slot, status, created_at
		FROM alternative_suggestions WHERE booking_id = $1
		ORDER BY created_at ASC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("suggestion repository: list by booking %w", err)
	}
	return suggestions, nil
}

// Accept помечает предложение принятым, остальные предложения бронирования —
// отклонёнными. Условное обновление: принять можно только ожидающее.
func (r *SuggestionRepository) Accept(ctx context.Context, id, bookingID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE alternative_suggestions SET status = 'accepted'
		WHERE id = $1 AND booking_id = $2 AND status = 'pending'
	`, id, bookingID)
	if err != nil {
		return fmt.Errorf("suggestion repository: accept %w", err)
	}
	if err := requireRowAffected(res, ErrStatusConflict); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE alternative_suggestions SET status = 'rejected'
		WHERE booking_id = $1 AND id <> $2 AND status = 'pending'
	`, bookingID, id)
	if err != nil {
		return fmt.Errorf("suggestion repository: reject siblings %w", err)
	}

	return tx.Commit()
}

// Reject отклоняет предложение.
func (r *SuggestionRepository) Reject(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE alternative_suggestions SET status = 'rejected'
		WHERE id = $1 AND status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("suggestion repository: reject %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}
