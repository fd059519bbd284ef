package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

type PhotoRepository struct {
	db *sqlx.DB
}

func NewPhotoRepository(db *sqlx.DB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create сохраняет метаданные загруженной фотографии.
func (r *PhotoRepository) Create(ctx context.Context, p *models.CompletionPhoto) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO completion_photos (booking_id, contractor_id, type, path, size_bytes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at
	`, p.BookingID, p.ContractorID, p.Type, p.Path, p.SizeBytes).Scan(&p.ID, &p.UploadedAt)
	if err != nil {
		return fmt.Errorf("photo repository: create %w", err)
	}
	return nil
}

// CountByBooking возвращает количество фотографий по типам для бронирования.
func (r *PhotoRepository) CountByBooking(ctx context.Context, bookingID uuid.UUID) (*models.PhotoCounts, error) {
	var counts models.PhotoCounts
	err := r.db.GetContext(ctx, &counts, `
		SELECT
			COUNT(*) FILTER (WHERE type = 'before') AS before_count,
			COUNT(*) FILTER (WHERE type = 'after')  AS after_count
		FROM completion_photos WHERE booking_id = $1
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("photo repository: count by booking %w", err)
	}
	return &counts, nil
}

// ListByBooking возвращает фотографии бронирования.
func (r *PhotoRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.CompletionPhoto, error) {
	var photos []models.CompletionPhoto
	err := r.db.SelectContext(ctx, &photos, `
		SELECT id, booking_id, contractor_id, type, path, size_bytes, uploaded_at
		FROM completion_photos WHERE booking_id = $1
		ORDER BY uploaded_at ASC
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("photo repository: list by booking %w", err)
	}
	return photos, nil
}
