package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы проводок в журнале эскроу
const (
	LedgerTypeCharge         = "charge"
	LedgerTypeRelease        = "release"
	LedgerTypeRefund         = "refund"
	LedgerTypePlatformRefund = "platform_refund"
	LedgerTypeWithdrawal     = "withdrawal"
)

// PlatformAccount представляет единственный счёт платформы: средства,
// удержанные в эскроу, и собственные средства для компенсаций по спорам
// после выплаты.
type PlatformAccount struct {
	ID        int       `db:"id" json:"id"`
	Escrow    float64   `db:"escrow" json:"escrow"`
	Available float64   `db:"available" json:"available"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ContractorBalance представляет баланс подрядчика: освобождённые выплаты,
// доступные к выводу.
type ContractorBalance struct {
	ContractorID uuid.UUID `db:"contractor_id" json:"contractor_id"`
	Available    float64   `db:"available" json:"available"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerTransaction представляет проводку в журнале движения средств.
// Ровно одна проводка на логическую операцию — повтор операции проводку
// не дублирует.
type LedgerTransaction struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	BookingID   *uuid.UUID `db:"booking_id" json:"booking_id,omitempty"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Type        string     `db:"type" json:"type"`
	Amount      float64    `db:"amount" json:"amount"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Статусы заявок на вывод средств
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
)

// Withdrawal представляет заявку подрядчика на вывод освобождённых средств.
type Withdrawal struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ContractorID uuid.UUID  `db:"contractor_id" json:"contractor_id"`
	Amount       float64    `db:"amount" json:"amount"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
