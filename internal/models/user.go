package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает пользователя платформы: заказчика, подрядчика или
// администратора.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ContractorProfile описывает анкету подрядчика. Видимость бронирований и
// право принимать их определяются полями анкеты, а не клиентом.
type ContractorProfile struct {
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	DisplayName    string    `db:"display_name" json:"display_name"`
	ServiceArea    string    `db:"service_area" json:"service_area"`
	ApprovalStatus string    `db:"approval_status" json:"approval_status"`
	Probationary   bool      `db:"probationary" json:"probationary"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CanAccept отвечает, допущен ли подрядчик к приёму бронирований в указанной
// зоне обслуживания.
func (p *ContractorProfile) CanAccept(serviceArea string) bool {
	return p.ApprovalStatus == ApprovalStatusApproved && p.ServiceArea == serviceArea
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
