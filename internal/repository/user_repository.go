package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

const userColumns = `id, email, username, password_hash, role, is_active, last_login_at, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create сохраняет нового пользователя.
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (email, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, is_active, created_at, updated_at
	`, u.Email, u.Username, u.PasswordHash, u.Role).
		Scan(&u.ID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("user repository: create %w", err)
	}
	return nil
}

// GetByID возвращает пользователя по ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}
	return &u, nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by email %w", err)
	}
	return &u, nil
}

// ExistsByEmailOrUsername проверяет занятость email или имени пользователя.
func (r *UserRepository) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR username = $2)
	`, email, username)
	if err != nil {
		return false, fmt.Errorf("user repository: exists %w", err)
	}
	return exists, nil
}

// UpdateLastLoginAt обновляет время последнего входа.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("user repository: update last login %w", err)
	}
	return nil
}

// --- Анкеты подрядчиков ---

// GetContractorProfile возвращает анкету подрядчика.
func (r *UserRepository) GetContractorProfile(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	var p models.ContractorProfile
	err := r.db.GetContext(ctx, &p, `
		SELECT user_id, display_name, service_area, approval_status, probationary, updated_at
		FROM contractor_profiles WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get contractor profile %w", err)
	}
	return &p, nil
}

// UpsertContractorProfile создаёт или обновляет анкету подрядчика. Смена
// анкеты сбрасывает допуск до повторного одобрения администратором.
func (r *UserRepository) UpsertContractorProfile(ctx context.Context, p *models.ContractorProfile) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO contractor_profiles (user_id, display_name, service_area, approval_status, probationary)
		VALUES ($1, $2, $3, 'pending', TRUE)
		ON CONFLICT (user_id) DO UPDATE
		SET display_name = $2, service_area = $3, approval_status = 'pending', updated_at = NOW()
		RETURNING approval_status, probationary, updated_at
	`, p.UserID, p.DisplayName, p.ServiceArea).
		Scan(&p.ApprovalStatus, &p.Probationary, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("user repository: upsert contractor profile %w", err)
	}
	return nil
}

// SetContractorApproval выставляет допуск подрядчика администратором.
func (r *UserRepository) SetContractorApproval(ctx context.Context, userID uuid.UUID, status string, probationary bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contractor_profiles SET approval_status = $2, probationary = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, status, probationary)
	if err != nil {
		return fmt.Errorf("user repository: set contractor approval %w", err)
	}
	return requireRowAffected(res, ErrUserNotFound)
}

// --- Сессии ---

// CreateSession сохраняет сессию с refresh-токеном.
func (r *UserRepository) CreateSession(ctx context.Context, s *models.Session) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.UserID, s.RefreshToken, s.UserAgent, s.IPAddress, s.ExpiresAt).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}
	return nil
}

// GetSessionByToken возвращает живую сессию по refresh-токену.
func (r *UserRepository) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	var s models.Session
	err := r.db.GetContext(ctx, &s, `
		SELECT id, user_id, refresh_token, user_agent, ip_address, expires_at, created_at
		FROM sessions WHERE refresh_token = $1 AND expires_at > NOW()
	`, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}
	return &s, nil
}

// RotateSessionToken заменяет refresh-токен сессии.
func (r *UserRepository) RotateSessionToken(ctx context.Context, sessionID uuid.UUID, refreshToken string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET refresh_token = $2, expires_at = $3 WHERE id = $1
	`, sessionID, refreshToken, expiresAt)
	if err != nil {
		return fmt.Errorf("user repository: rotate session %w", err)
	}
	return requireRowAffected(res, ErrSessionNotFound)
}

// DeleteSession удаляет сессию по refresh-токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
	if err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}
	return nil
}

// DeleteUserSessions удаляет все сессии пользователя.
func (r *UserRepository) DeleteUserSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("user repository: delete user sessions %w", err)
	}
	return nil
}
