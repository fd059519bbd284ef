package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
)

type disputeServiceMocks struct {
	disputes *mockDisputeRepo
	bookings *mockBookingRepo
	ledger   *mockLedgerRepo
	timers   *mockTimerRepo
	notifier *recordingNotifier
}

func newDisputeService() (*DisputeService, *disputeServiceMocks) {
	m := &disputeServiceMocks{
		disputes: new(mockDisputeRepo),
		bookings: new(mockBookingRepo),
		ledger:   new(mockLedgerRepo),
		timers:   new(mockTimerRepo),
		notifier: &recordingNotifier{},
	}
	return NewDisputeService(m.disputes, m.bookings, m.ledger, m.timers, m.notifier), m
}

func TestDisputeService_OpenDispute_PrePayout(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	customerID := uuid.New()
	contractorID := uuid.New()
	completedAt := time.Now().Add(-2 * time.Hour)

	booking := &models.Booking{
		ID:           uuid.New(),
		CustomerID:   customerID,
		ContractorID: &contractorID,
		Status:       models.BookingStatusCompletedPendingVerification,
		PayoutStatus: models.PayoutStatusPending,
		TotalPrice:   100,
		CompletedAt:  &completedAt,
	}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	// Спор до выплаты: статус disputed, выплата замораживается.
	m.disputes.On("Open", ctx, mock.AnythingOfType("*models.Dispute"),
		models.BookingStatusCompletedPendingVerification, models.BookingStatusDisputed, true).Return(nil)
	m.timers.On("Cancel", ctx, booking.ID, models.TimerKindAutoRelease).Return(nil)

	d, err := svc.OpenDispute(ctx, booking.ID, customerID, OpenDisputeInput{
		Reason:                "трава скошена частично",
		SuggestedRefundAmount: 40,
	})
	require.NoError(t, err)
	assert.False(t, d.PostPayout)
	m.timers.AssertExpectations(t)
}

func TestDisputeService_OpenDispute_PostPayoutInsideWindow(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	customerID := uuid.New()
	completedAt := time.Now().Add(-3 * 24 * time.Hour)

	booking := &models.Booking{
		ID:           uuid.New(),
		CustomerID:   customerID,
		Status:       models.BookingStatusCompleted,
		PayoutStatus: models.PayoutStatusReleased,
		TotalPrice:   100,
		CompletedAt:  &completedAt,
	}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.disputes.On("Open", ctx, mock.AnythingOfType("*models.Dispute"),
		models.BookingStatusCompleted, models.BookingStatusPostPaymentDispute, false).Return(nil)

	d, err := svc.OpenDispute(ctx, booking.ID, customerID, OpenDisputeInput{Reason: "газон пожелтел"})
	require.NoError(t, err)
	assert.True(t, d.PostPayout)
	// Таймера автоосвобождения уже нет, отменять нечего.
	m.timers.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_OpenDispute_WindowExpired(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	customerID := uuid.New()
	completedAt := time.Now().Add(-8 * 24 * time.Hour)

	booking := &models.Booking{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Status:      models.BookingStatusCompleted,
		TotalPrice:  100,
		CompletedAt: &completedAt,
	}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	_, err := svc.OpenDispute(ctx, booking.ID, customerID, OpenDisputeInput{Reason: "газон пожелтел"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeDisputeWindowExpired))
	m.disputes.AssertNotCalled(t, "Open", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_OpenDispute_AlreadyOpen(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	customerID := uuid.New()
	completedAt := time.Now().Add(-time.Hour)

	booking := &models.Booking{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Status:      models.BookingStatusCompletedPendingVerification,
		TotalPrice:  100,
		CompletedAt: &completedAt,
	}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.disputes.On("Open", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(repository.ErrDisputeAlreadyOpen)

	_, err := svc.OpenDispute(ctx, booking.ID, customerID, OpenDisputeInput{Reason: "есть претензии"})
	assert.True(t, apperror.Is(err, apperror.ErrCodeDisputeAlreadyOpen))
}

func TestDisputeService_OpenDispute_RefundOutOfRange(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	customerID := uuid.New()

	booking := &models.Booking{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     models.BookingStatusCompletedPendingVerification,
		TotalPrice: 100,
	}
	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	_, err := svc.OpenDispute(ctx, booking.ID, customerID, OpenDisputeInput{
		Reason:                "есть претензии",
		SuggestedRefundAmount: 150,
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeRefundOutOfRange))
}

func TestDisputeService_ResolveDispute_PartialRefund(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	adminID := uuid.New()
	contractorID := uuid.New()

	dispute := &models.Dispute{
		ID:        uuid.New(),
		BookingID: uuid.New(),
		Status:    models.DisputeStatusOpen,
	}
	booking := &models.Booking{
		ID:           dispute.BookingID,
		CustomerID:   uuid.New(),
		ContractorID: &contractorID,
		Status:       models.BookingStatusDisputed,
		TotalPrice:   100,
	}

	m.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	m.bookings.On("GetByID", ctx, dispute.BookingID).Return(booking, nil)
	// 30% от 100 — возврат 30, остальное подрядчику, статус с замечаниями.
	m.ledger.On("SettleDispute", ctx, dispute.BookingID, 30.0, models.BookingStatusCompletedWithIssues).Return(nil)
	m.disputes.On("Resolve", ctx, dispute.ID, adminID, "частичный возврат", 30.0).Return(nil)

	err := svc.ResolveDispute(ctx, dispute.ID, adminID, "частичный возврат", 30)
	require.NoError(t, err)
	m.ledger.AssertExpectations(t)
	m.disputes.AssertExpectations(t)
}

// Дробный процент не округляется: сумма возврата и зафиксированный процент
// совпадают с решением администратора с точностью до копейки.
func TestDisputeService_ResolveDispute_FractionalPercentage(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	adminID := uuid.New()
	contractorID := uuid.New()

	dispute := &models.Dispute{
		ID:        uuid.New(),
		BookingID: uuid.New(),
		Status:    models.DisputeStatusOpen,
	}
	booking := &models.Booking{
		ID:           dispute.BookingID,
		CustomerID:   uuid.New(),
		ContractorID: &contractorID,
		Status:       models.BookingStatusDisputed,
		TotalPrice:   200,
	}

	m.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	m.bookings.On("GetByID", ctx, dispute.BookingID).Return(booking, nil)
	// 12.5% от 200 — возврат ровно 25.
	m.ledger.On("SettleDispute", ctx, dispute.BookingID, 25.0, models.BookingStatusCompletedWithIssues).Return(nil)
	m.disputes.On("Resolve", ctx, dispute.ID, adminID, "частичный возврат", 12.5).Return(nil)

	err := svc.ResolveDispute(ctx, dispute.ID, adminID, "частичный возврат", 12.5)
	require.NoError(t, err)
	m.ledger.AssertExpectations(t)
	m.disputes.AssertExpectations(t)
}

func TestDisputeService_ResolveDispute_FullRefundCancels(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	adminID := uuid.New()

	dispute := &models.Dispute{ID: uuid.New(), BookingID: uuid.New(), Status: models.DisputeStatusOpen}
	booking := &models.Booking{ID: dispute.BookingID, Status: models.BookingStatusDisputed, TotalPrice: 80}

	m.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	m.bookings.On("GetByID", ctx, dispute.BookingID).Return(booking, nil)
	m.ledger.On("SettleDispute", ctx, dispute.BookingID, 80.0, models.BookingStatusCancelled).Return(nil)
	m.disputes.On("Resolve", ctx, dispute.ID, adminID, "полный возврат", 100.0).Return(nil)

	require.NoError(t, svc.ResolveDispute(ctx, dispute.ID, adminID, "полный возврат", 100))
}

func TestDisputeService_ResolveDispute_ZeroRefundCompletes(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()
	adminID := uuid.New()

	dispute := &models.Dispute{ID: uuid.New(), BookingID: uuid.New(), Status: models.DisputeStatusOpen}
	booking := &models.Booking{ID: dispute.BookingID, Status: models.BookingStatusDisputed, TotalPrice: 80}

	m.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)
	m.bookings.On("GetByID", ctx, dispute.BookingID).Return(booking, nil)
	m.ledger.On("SettleDispute", ctx, dispute.BookingID, 0.0, models.BookingStatusCompleted).Return(nil)
	m.disputes.On("Resolve", ctx, dispute.ID, adminID, "претензии не подтвердились", 0.0).Return(nil)

	require.NoError(t, svc.ResolveDispute(ctx, dispute.ID, adminID, "претензии не подтвердились", 0))
}

func TestDisputeService_ResolveDispute_PercentageOutOfRange(t *testing.T) {
	svc, _ := newDisputeService()
	ctx := context.Background()

	err := svc.ResolveDispute(ctx, uuid.New(), uuid.New(), "решение", -1)
	assert.True(t, apperror.Is(err, apperror.ErrCodeRefundOutOfRange))

	err = svc.ResolveDispute(ctx, uuid.New(), uuid.New(), "решение", 101)
	assert.True(t, apperror.Is(err, apperror.ErrCodeRefundOutOfRange))
}

func TestDisputeService_ResolveDispute_AlreadyResolved(t *testing.T) {
	svc, m := newDisputeService()
	ctx := context.Background()

	dispute := &models.Dispute{ID: uuid.New(), BookingID: uuid.New(), Status: models.DisputeStatusResolved}
	m.disputes.On("GetByID", ctx, dispute.ID).Return(dispute, nil)

	err := svc.ResolveDispute(ctx, dispute.ID, uuid.New(), "решение", 50)
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
	m.ledger.AssertNotCalled(t, "SettleDispute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
