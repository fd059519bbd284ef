package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
	"github.com/ignatzorin/lawncare-backend/internal/validation"
)

type DisputeRepository interface {
	Open(ctx context.Context, d *models.Dispute, fromStatus, toStatus string, freezePayout bool) error
	Resolve(ctx context.Context, disputeID, adminID uuid.UUID, resolution string, refundPercentage float64) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	GetOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Dispute, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Dispute, error)
	ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error)
}

// DisputeService управляет спорами. Спор до выплаты замораживает эскроу;
// спор после выплаты разрешается из средств платформы — выплаченное
// подрядчику не истребуется обратно.
type DisputeService struct {
	disputes DisputeRepository
	bookings BookingRepository
	ledger   LedgerRepository
	timers   TimerRepository
	notifier Notifier
}

func NewDisputeService(disputes DisputeRepository, bookings BookingRepository, ledger LedgerRepository, timers TimerRepository, notifier Notifier) *DisputeService {
	return &DisputeService{
		disputes: disputes,
		bookings: bookings,
		ledger:   ledger,
		timers:   timers,
		notifier: notifier,
	}
}

// OpenDisputeInput содержит параметры нового спора.
type OpenDisputeInput struct {
	Reason                string
	Description           string
	SuggestedRefundAmount float64
}

// OpenDispute открывает спор заказчиком. До выплаты спор останавливает
// автоосвобождение и замораживает эскроу; после выплаты спор доступен только
// в пределах окна споров.
func (s *DisputeService) OpenDispute(ctx context.Context, bookingID, customerID uuid.UUID, in OpenDisputeInput) (*models.Dispute, error) {
	if err := validation.ValidateLength("причина спора", in.Reason, validation.MinDisputeReasonLength, validation.MaxDisputeReasonLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("описание спора", in.Description, 0, validation.MaxDisputeDescription); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("dispute service: open %w", err)
	}
	if b.CustomerID != customerID {
		return nil, apperror.ErrForbidden
	}
	if in.SuggestedRefundAmount < 0 || in.SuggestedRefundAmount > b.TotalPrice {
		return nil, apperror.ErrRefundOutOfRange
	}

	d := &models.Dispute{
		BookingID:             bookingID,
		RaisedBy:              customerID,
		Reason:                in.Reason,
		Description:           in.Description,
		SuggestedRefundAmount: in.SuggestedRefundAmount,
	}

	switch b.Status {
	case models.BookingStatusCompletedPendingVerification:
		// Спор до выплаты: эскроу замораживается, выплата останавливается.
		d.PostPayout = false
		err = s.disputes.Open(ctx, d,
			models.BookingStatusCompletedPendingVerification, models.BookingStatusDisputed, true)
	case models.BookingStatusCompleted:
		if !b.InDisputeWindow(time.Now()) {
			return nil, apperror.ErrDisputeWindowExpired
		}
		d.PostPayout = true
		err = s.disputes.Open(ctx, d,
			models.BookingStatusCompleted, models.BookingStatusPostPaymentDispute, false)
	default:
		return nil, apperror.ErrInvalidTransition
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDisputeAlreadyOpen):
			return nil, apperror.ErrDisputeAlreadyOpen
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperror.ErrInvalidTransition
		case errors.Is(err, repository.ErrBookingNotFound):
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("dispute service: open %w", err)
	}

	if !d.PostPayout {
		// Таймер автоосвобождения больше не нужен; отмена идемпотентна.
		if err := s.timers.Cancel(ctx, bookingID, models.TimerKindAutoRelease); err != nil {
			return nil, fmt.Errorf("dispute service: cancel timer %w", err)
		}
	}

	if b.ContractorID != nil {
		s.notifier.Notify(*b.ContractorID, EventDisputeOpened, map[string]interface{}{
			"booking_id": bookingID,
			"dispute_id": d.ID,
		})
	}
	return d, nil
}

// ResolveDispute закрывает спор решением администратора. Процент возврата
// задаёт распределение средств; итоговый статус бронирования выводится из
// процента. Сначала распределяются деньги (условно по статусу бронирования,
// поэтому двойное разрешение невозможно), затем фиксируется решение.
func (s *DisputeService) ResolveDispute(ctx context.Context, disputeID, adminID uuid.UUID, resolution string, refundPercentage float64) error {
	if refundPercentage < 0 || refundPercentage > 100 {
		return apperror.ErrRefundOutOfRange
	}
	if err := validation.ValidateLength("решение", resolution, 1, validation.MaxResolutionLength); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return apperror.ErrDisputeNotFound
		}
		return fmt.Errorf("dispute service: resolve %w", err)
	}
	if d.Status != models.DisputeStatusOpen {
		return apperror.New(apperror.ErrCodeConflict, "спор уже разрешён")
	}

	b, err := s.bookings.GetByID(ctx, d.BookingID)
	if err != nil {
		return fmt.Errorf("dispute service: resolve %w", err)
	}

	refundAmount := math.Round(b.TotalPrice*refundPercentage) / 100
	finalStatus := finalStatusForRefund(refundPercentage)

	if err := s.ledger.SettleDispute(ctx, d.BookingID, refundAmount, finalStatus); err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return apperror.ErrInvalidTransition
		case errors.Is(err, repository.ErrBookingNotFound):
			return apperror.ErrBookingNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeLedgerFailed, "не удалось распределить средства по спору")
	}

	if err := s.disputes.Resolve(ctx, disputeID, adminID, resolution, refundPercentage); err != nil {
		return fmt.Errorf("dispute service: resolve %w", err)
	}

	s.notifier.Notify(b.CustomerID, EventDisputeResolved, map[string]interface{}{
		"booking_id":    d.BookingID,
		"dispute_id":    disputeID,
		"refund_amount": refundAmount,
	})
	if b.ContractorID != nil {
		s.notifier.Notify(*b.ContractorID, EventDisputeResolved, map[string]interface{}{
			"booking_id": d.BookingID,
			"dispute_id": disputeID,
		})
	}
	return nil
}

// finalStatusForRefund выводит итоговый статус бронирования из процента
// возврата: полный возврат — отмена, частичный — завершение с замечаниями,
// нулевой — обычное завершение.
func finalStatusForRefund(refundPercentage float64) string {
	switch {
	case refundPercentage >= 100:
		return models.BookingStatusCancelled
	case refundPercentage > 0:
		return models.BookingStatusCompletedWithIssues
	default:
		return models.BookingStatusCompleted
	}
}

// GetDispute возвращает спор с проверкой видимости.
func (s *DisputeService) GetDispute(ctx context.Context, disputeID, actorID uuid.UUID, actorRole string) (*models.Dispute, error) {
	d, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, fmt.Errorf("dispute service: get %w", err)
	}
	if actorRole == models.RoleAdmin || d.RaisedBy == actorID {
		return d, nil
	}
	b, err := s.bookings.GetByID(ctx, d.BookingID)
	if err != nil {
		return nil, fmt.Errorf("dispute service: get %w", err)
	}
	if b.ContractorID != nil && *b.ContractorID == actorID {
		return d, nil
	}
	return nil, apperror.ErrForbidden
}

// ListBookingDisputes возвращает споры по бронированию.
func (s *DisputeService) ListBookingDisputes(ctx context.Context, bookingID uuid.UUID) ([]models.Dispute, error) {
	return s.disputes.ListByBooking(ctx, bookingID)
}

// ListOpenDisputes возвращает очередь открытых споров для администратора.
func (s *DisputeService) ListOpenDisputes(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	return s.disputes.ListOpen(ctx, normalizeLimit(limit), offset)
}
