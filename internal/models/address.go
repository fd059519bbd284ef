package models

import (
	"time"

	"github.com/google/uuid"
)

// Address описывает адрес участка заказчика. Площадь, указанная при создании,
// считается предварительной; авторитетное значение появляется после ручной
// проверки администратором.
type Address struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	CustomerID           uuid.UUID  `db:"customer_id" json:"customer_id"`
	Line                 string     `db:"line" json:"line"`
	City                 string     `db:"city" json:"city"`
	ServiceArea          string     `db:"service_area" json:"service_area"`
	DeclaredSquareMeters float64    `db:"declared_square_meters" json:"declared_square_meters"`
	SquareMeters         *float64   `db:"square_meters" json:"square_meters,omitempty"`
	VerificationStatus   string     `db:"verification_status" json:"verification_status"`
	VerifiedAt           *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// EffectiveSquareMeters возвращает площадь для расчёта цены: авторитетную
// после проверки, иначе заявленную заказчиком.
func (a *Address) EffectiveSquareMeters() float64 {
	if a.VerificationStatus == AddressStatusVerified && a.SquareMeters != nil {
		return *a.SquareMeters
	}
	return a.DeclaredSquareMeters
}
