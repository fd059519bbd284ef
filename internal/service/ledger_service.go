package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
)

// LedgerService открывает денежные операции наружу: балансы, история
// проводок, вывод средств. Движения по эскроу происходят только внутри
// переходов жизненного цикла и сюда не выносятся.
type LedgerService struct {
	ledger LedgerRepository
}

func NewLedgerService(ledger LedgerRepository) *LedgerService {
	return &LedgerService{ledger: ledger}
}

// GetContractorBalance возвращает баланс подрядчика.
func (s *LedgerService) GetContractorBalance(ctx context.Context, contractorID uuid.UUID) (*models.ContractorBalance, error) {
	return s.ledger.GetContractorBalance(ctx, contractorID)
}

// GetPlatformAccount возвращает счёт платформы для администратора.
func (s *LedgerService) GetPlatformAccount(ctx context.Context) (*models.PlatformAccount, error) {
	return s.ledger.GetPlatformAccount(ctx)
}

// ListTransactions возвращает историю проводок пользователя.
func (s *LedgerService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerTransaction, error) {
	return s.ledger.ListTransactions(ctx, userID, normalizeLimit(limit), offset)
}

// Withdraw выводит освобождённые средства подрядчика.
func (s *LedgerService) Withdraw(ctx context.Context, contractorID uuid.UUID, amount float64) (*models.Withdrawal, error) {
	if amount <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	w, err := s.ledger.Withdraw(ctx, contractorID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, apperror.New(apperror.ErrCodeValidation, "недостаточно средств на балансе")
		}
		return nil, fmt.Errorf("ledger service: withdraw %w", err)
	}
	return w, nil
}

// ListWithdrawals возвращает заявки подрядчика на вывод.
func (s *LedgerService) ListWithdrawals(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	return s.ledger.ListWithdrawals(ctx, contractorID, normalizeLimit(limit), offset)
}
