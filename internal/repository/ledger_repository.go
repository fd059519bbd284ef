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

// LedgerRepository владеет денежными таблицами и теми колонками бронирования,
// которые связаны с деньгами. Каждое движение средств и сопряжённый с ним
// переход статуса выполняются в одной транзакции БД: либо происходят оба,
// либо ни одного.
type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// lockBooking берёт строку бронирования под блокировку на время транзакции.
func lockBooking(ctx context.Context, tx *sqlx.Tx, bookingID uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := tx.GetContext(ctx, &b, `SELECT * FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("ledger repository: lock booking %w", err)
	}
	return &b, nil
}

// ChargeAndConfirm списывает оплату заказчика в эскроу и назначает подрядчика.
// Деньги и статус меняются атомарно: подтверждённое бронирование без
// удержанных средств существовать не может.
func (r *LedgerRepository) ChargeAndConfirm(ctx context.Context, bookingID, contractorID uuid.UUID) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	b, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusPending || b.ContractorID != nil {
		return nil, ErrStatusConflict
	}
	if b.PaymentMethod == nil || b.PaymentStatus == models.PaymentStatusUnpaid {
		return nil, ErrNoPaymentMethod
	}

	// Удерживаем средства на счёте платформы
	_, err = tx.ExecContext(ctx, `
		UPDATE platform_account SET escrow = escrow + $1, updated_at = NOW() WHERE id = 1
	`, b.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: charge escrow %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_transactions (booking_id, user_id, type, amount, description)
		VALUES ($1, $2, 'charge', $3, 'Удержание оплаты за бронирование')
	`, b.ID, b.CustomerID, b.TotalPrice)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: charge journal %w", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'confirmed', contractor_id = $2, contractor_accepted_at = $3,
		    payment_status = 'paid', updated_at = NOW()
		WHERE id = $1
	`, b.ID, contractorID, now)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: confirm booking %w", err)
	}

	b.Status = models.BookingStatusConfirmed
	b.ContractorID = &contractorID
	b.ContractorAcceptedAt = &now
	b.PaymentStatus = models.PaymentStatusPaid

	return b, tx.Commit()
}

// ReleaseAndComplete освобождает выплату подрядчику и закрывает бронирование.
// Операция идемпотентна: повторный вызов по уже выплаченному бронированию
// возвращает nil без новой проводки. Так сходятся гонка подтверждения
// заказчиком и срабатывания таймера автоосвобождения.
func (r *LedgerRepository) ReleaseAndComplete(ctx context.Context, bookingID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return err
	}

	if b.Status == models.BookingStatusCompleted && b.PayoutStatus == models.PayoutStatusReleased {
		return nil // уже выплачено
	}
	if b.Status != models.BookingStatusCompletedPendingVerification || b.PayoutStatus != models.PayoutStatusPending {
		return ErrStatusConflict
	}
	if b.ContractorID == nil {
		return ErrStatusConflict
	}

	if err := moveEscrowToContractor(ctx, tx, b, *b.ContractorID, b.TotalPrice); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bookings SET status = 'completed', payout_status = 'released', updated_at = NOW()
		WHERE id = $1
	`, b.ID)
	if err != nil {
		return fmt.Errorf("ledger repository: complete booking %w", err)
	}

	return tx.Commit()
}

// moveEscrowToContractor переводит сумму из эскроу на баланс подрядчика
// с проводкой release.
func moveEscrowToContractor(ctx context.Context, tx *sqlx.Tx, b *models.Booking, contractorID uuid.UUID, amount float64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE platform_account SET escrow = escrow - $1, updated_at = NOW() WHERE id = 1
	`, amount)
	if err != nil {
		return fmt.Errorf("ledger repository: release escrow %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contractor_balances (contractor_id, available)
		VALUES ($1, $2)
		ON CONFLICT (contractor_id) DO UPDATE SET available = contractor_balances.available + $2, updated_at = NOW()
	`, contractorID, amount)
	if err != nil {
		return fmt.Errorf("ledger repository: credit contractor %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_transactions (booking_id, user_id, type, amount, description)
		VALUES ($1, $2, 'release', $3, 'Выплата за выполненные работы')
	`, b.ID, contractorID, amount)
	if err != nil {
		return fmt.Errorf("ledger repository: release journal %w", err)
	}
	return nil
}

// SettleDispute распределяет средства по решению администратора и переводит
// бронирование в итоговый статус. Для спора до выплаты возврат идёт из
// эскроу, остаток — подрядчику. Для спора после выплаты компенсация идёт со
// счёта платформы: выплаченные подрядчику средства не истребуются обратно.
func (r *LedgerRepository) SettleDispute(ctx context.Context, bookingID uuid.UUID, refundAmount float64, finalStatus string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	b, err := lockBooking(ctx, tx, bookingID)
	if err != nil {
		return err
	}

	switch b.Status {
	case models.BookingStatusDisputed:
		if err := r.settlePrePayout(ctx, tx, b, refundAmount); err != nil {
			return err
		}
	case models.BookingStatusPostPaymentDispute:
		if err := r.settlePostPayout(ctx, tx, b, refundAmount); err != nil {
			return err
		}
	default:
		return ErrStatusConflict
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1
	`, b.ID, finalStatus)
	if err != nil {
		return fmt.Errorf("ledger repository: settle final status %w", err)
	}

	return tx.Commit()
}

// settlePrePayout делит замороженный эскроу между заказчиком и подрядчиком.
func (r *LedgerRepository) settlePrePayout(ctx context.Context, tx *sqlx.Tx, b *models.Booking, refundAmount float64) error {
	if b.PayoutStatus != models.PayoutStatusFrozen {
		return ErrStatusConflict
	}

	if refundAmount > 0 {
		_, err := tx.ExecContext(ctx, `
			UPDATE platform_account SET escrow = escrow - $1, updated_at = NOW() WHERE id = 1
		`, refundAmount)
		if err != nil {
			return fmt.Errorf("ledger repository: refund escrow %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_transactions (booking_id, user_id, type, amount, description)
			VALUES ($1, $2, 'refund', $3, 'Возврат заказчику по решению спора')
		`, b.ID, b.CustomerID, refundAmount)
		if err != nil {
			return fmt.Errorf("ledger repository: refund journal %w", err)
		}
	}

	remainder := b.TotalPrice - refundAmount
	payoutStatus := models.PayoutStatusPending
	if remainder > 0 {
		if b.ContractorID == nil {
			return ErrStatusConflict
		}
		if err := moveEscrowToContractor(ctx, tx, b, *b.ContractorID, remainder); err != nil {
			return err
		}
		payoutStatus = models.PayoutStatusReleased
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE bookings SET payout_status = $2, updated_at = NOW() WHERE id = $1
	`, b.ID, payoutStatus)
	if err != nil {
		return fmt.Errorf("ledger repository: settle payout status %w", err)
	}
	return nil
}

// settlePostPayout компенсирует заказчика из собственных средств платформы.
// Баланс подрядчика не трогаем: выплата окончательна.
func (r *LedgerRepository) settlePostPayout(ctx context.Context, tx *sqlx.Tx, b *models.Booking, refundAmount float64) error {
	if refundAmount <= 0 {
		return nil
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE platform_account SET available = available - $1, updated_at = NOW() WHERE id = 1
	`, refundAmount)
	if err != nil {
		return fmt.Errorf("ledger repository: platform refund %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_transactions (booking_id, user_id, type, amount, description)
		VALUES ($1, $2, 'platform_refund', $3, 'Компенсация заказчику после выплаты')
	`, b.ID, b.CustomerID, refundAmount)
	if err != nil {
		return fmt.Errorf("ledger repository: platform refund journal %w", err)
	}
	return nil
}

// Withdraw списывает освобождённые средства с баланса подрядчика и создаёт
// заявку на вывод.
func (r *LedgerRepository) Withdraw(ctx context.Context, contractorID uuid.UUID, amount float64) (*models.Withdrawal, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance models.ContractorBalance
	err = tx.GetContext(ctx, &balance, `
		SELECT contractor_id, available, updated_at FROM contractor_balances
		WHERE contractor_id = $1 FOR UPDATE
	`, contractorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("ledger repository: withdraw lock balance %w", err)
	}
	if balance.Available < amount {
		return nil, ErrInsufficientFunds
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE contractor_balances SET available = available - $2, updated_at = NOW()
		WHERE contractor_id = $1
	`, contractorID, amount)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: withdraw debit %w", err)
	}

	var w models.Withdrawal
	err = tx.GetContext(ctx, &w, `
		INSERT INTO withdrawals (contractor_id, amount, status, completed_at)
		VALUES ($1, $2, 'completed', NOW())
		RETURNING id, contractor_id, amount, status, created_at, completed_at
	`, contractorID, amount)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: withdraw create %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ledger_transactions (booking_id, user_id, type, amount, description)
		VALUES (NULL, $1, 'withdrawal', $2, 'Вывод средств')
	`, contractorID, amount)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: withdraw journal %w", err)
	}

	return &w, tx.Commit()
}

// GetPlatformAccount возвращает счёт платформы.
func (r *LedgerRepository) GetPlatformAccount(ctx context.Context) (*models.PlatformAccount, error) {
	var acc models.PlatformAccount
	err := r.db.GetContext(ctx, &acc, `SELECT id, escrow, available, updated_at FROM platform_account WHERE id = 1`)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: get platform account %w", err)
	}
	return &acc, nil
}

// GetContractorBalance возвращает баланс подрядчика, создаёт если не
// существует.
func (r *LedgerRepository) GetContractorBalance(ctx context.Context, contractorID uuid.UUID) (*models.ContractorBalance, error) {
	var balance models.ContractorBalance
	err := r.db.GetContext(ctx, &balance, `
		INSERT INTO contractor_balances (contractor_id, available)
		VALUES ($1, 0)
		ON CONFLICT (contractor_id) DO UPDATE SET updated_at = NOW()
		RETURNING contractor_id, available, updated_at
	`, contractorID)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: get contractor balance %w", err)
	}
	return &balance, nil
}

// ListTransactions возвращает историю проводок пользователя.
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerTransaction, error) {
	var transactions []models.LedgerTransaction
	err := r.db.SelectContext(ctx, &transactions, `
		SELECT id, booking_id, user_id, type, amount, description, created_at
		FROM ledger_transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list transactions %w", err)
	}
	return transactions, nil
}

// ListWithdrawals возвращает заявки подрядчика на вывод средств.
func (r *LedgerRepository) ListWithdrawals(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := r.db.SelectContext(ctx, &withdrawals, `
		SELECT id, contractor_id, amount, status, created_at, completed_at
		FROM withdrawals WHERE contractor_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, contractorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ledger repository: list withdrawals %w", err)
	}
	return withdrawals, nil
}
