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

const addressColumns = `
	id, customer_id, line, city, service_area, declared_square_meters,
	square_meters, verification_status, verified_at, created_at`

type AddressRepository struct {
	db *sqlx.DB
}

func NewAddressRepository(db *sqlx.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// Create сохраняет новый адрес в статусе ожидания проверки.
func (r *AddressRepository) Create(ctx context.Context, a *models.Address) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO addresses (customer_id, line, city, service_area, declared_square_meters, verification_status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, verification_status, created_at
	`, a.CustomerID, a.Line, a.City, a.ServiceArea, a.DeclaredSquareMeters).
		Scan(&a.ID, &a.VerificationStatus, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("address repository: create %w", err)
	}
	return nil
}

// GetByID возвращает адрес по ID.
func (r *AddressRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var a models.Address
	err := r.db.GetContext(ctx, &a, `SELECT `+addressColumns+` FROM addresses WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAddressNotFound
		}
		return nil, fmt.Errorf("address repository: get by id %w", err)
	}
	return &a, nil
}

// ListByCustomer возвращает адреса заказчика.
func (r *AddressRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.SelectContext(ctx, &addresses, `
		SELECT `+addressColumns+` FROM addresses WHERE customer_id = $1 ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("address repository: list by customer %w", err)
	}
	return addresses, nil
}

// ListPending возвращает адреса, ожидающие проверки администратором.
func (r *AddressRepository) ListPending(ctx context.Context, limit, offset int) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.SelectContext(ctx, &addresses, `
		SELECT `+addressColumns+` FROM addresses WHERE verification_status = 'pending'
		ORDER BY created_at ASC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("address repository: list pending %w", err)
	}
	return addresses, nil
}

// Verify записывает авторитетную площадь участка. Условное обновление:
// повторная проверка уже проверенного адреса — конфликт.
func (r *AddressRepository) Verify(ctx context.Context, id uuid.UUID, squareMeters float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE addresses SET verification_status = 'verified', square_meters = $2, verified_at = NOW()
		WHERE id = $1 AND verification_status = 'pending'
	`, id, squareMeters)
	if err != nil {
		return fmt.Errorf("address repository: verify %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}

// Reject помечает адрес как не прошедший проверку.
func (r *AddressRepository) Reject(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE addresses SET verification_status = 'rejected', verified_at = NOW()
		WHERE id = $1 AND verification_status = 'pending'
	`, id)
	if err != nil {
		return fmt.Errorf("address repository: reject %w", err)
	}
	return requireRowAffected(res, ErrStatusConflict)
}
