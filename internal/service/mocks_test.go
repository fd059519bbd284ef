package service

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/lawncare-backend/internal/logger"
	"github.com/ignatzorin/lawncare-backend/internal/models"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	args := m.Called(ctx, customerID, limit, offset)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListByContractor(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	args := m.Called(ctx, contractorID, limit, offset)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListAvailable(ctx context.Context, contractorID uuid.UUID, serviceArea string, limit, offset int) ([]models.Booking, error) {
	args := m.Called(ctx, contractorID, serviceArea, limit, offset)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListPendingVerificationByAddress(ctx context.Context, addressID uuid.UUID) ([]models.Booking, error) {
	args := m.Called(ctx, addressID)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *mockBookingRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockBookingRepo) CancelByCustomer(ctx context.Context, id, customerID uuid.UUID) error {
	return m.Called(ctx, id, customerID).Error(0)
}

func (m *mockBookingRepo) Reprice(ctx context.Context, id uuid.UUID, from, to string, total float64, breakdown json.RawMessage) error {
	return m.Called(ctx, id, from, to, total, breakdown).Error(0)
}

func (m *mockBookingRepo) ApproveNewPrice(ctx context.Context, id, customerID uuid.UUID) error {
	return m.Called(ctx, id, customerID).Error(0)
}

func (m *mockBookingRepo) SetPaymentMethod(ctx context.Context, id, customerID uuid.UUID, method string) error {
	return m.Called(ctx, id, customerID, method).Error(0)
}

func (m *mockBookingRepo) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, slot string) error {
	return m.Called(ctx, id, date, slot).Error(0)
}

func (m *mockBookingRepo) MarkCompleted(ctx context.Context, id, contractorID uuid.UUID, completedAt time.Time) error {
	return m.Called(ctx, id, contractorID, completedAt).Error(0)
}

func (m *mockBookingRepo) SetRating(ctx context.Context, id, customerID uuid.UUID, rating int) error {
	return m.Called(ctx, id, customerID, rating).Error(0)
}

type mockAddressRepo struct {
	mock.Mock
}

func (m *mockAddressRepo) Create(ctx context.Context, a *models.Address) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAddressRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Address), args.Error(1)
}

func (m *mockAddressRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Address, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]models.Address), args.Error(1)
}

func (m *mockAddressRepo) ListPending(ctx context.Context, limit, offset int) ([]models.Address, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Address), args.Error(1)
}

func (m *mockAddressRepo) Verify(ctx context.Context, id uuid.UUID, squareMeters float64) error {
	return m.Called(ctx, id, squareMeters).Error(0)
}

func (m *mockAddressRepo) Reject(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockLedgerRepo struct {
	mock.Mock
}

func (m *mockLedgerRepo) ChargeAndConfirm(ctx context.Context, bookingID, contractorID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, contractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockLedgerRepo) ReleaseAndComplete(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockLedgerRepo) SettleDispute(ctx context.Context, bookingID uuid.UUID, refundAmount float64, finalStatus string) error {
	return m.Called(ctx, bookingID, refundAmount, finalStatus).Error(0)
}

func (m *mockLedgerRepo) Withdraw(ctx context.Context, contractorID uuid.UUID, amount float64) (*models.Withdrawal, error) {
	args := m.Called(ctx, contractorID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Withdrawal), args.Error(1)
}

func (m *mockLedgerRepo) GetPlatformAccount(ctx context.Context) (*models.PlatformAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlatformAccount), args.Error(1)
}

func (m *mockLedgerRepo) GetContractorBalance(ctx context.Context, contractorID uuid.UUID) (*models.ContractorBalance, error) {
	args := m.Called(ctx, contractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContractorBalance), args.Error(1)
}

func (m *mockLedgerRepo) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.LedgerTransaction), args.Error(1)
}

func (m *mockLedgerRepo) ListWithdrawals(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	args := m.Called(ctx, contractorID, limit, offset)
	return args.Get(0).([]models.Withdrawal), args.Error(1)
}

type mockPhotoRepo struct {
	mock.Mock
}

func (m *mockPhotoRepo) Create(ctx context.Context, p *models.CompletionPhoto) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPhotoRepo) CountByBooking(ctx context.Context, bookingID uuid.UUID) (*models.PhotoCounts, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PhotoCounts), args.Error(1)
}

func (m *mockPhotoRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.CompletionPhoto, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]models.CompletionPhoto), args.Error(1)
}

type mockTimerRepo struct {
	mock.Mock
}

func (m *mockTimerRepo) Arm(ctx context.Context, bookingID uuid.UUID, kind string, dueAt time.Time) error {
	return m.Called(ctx, bookingID, kind, dueAt).Error(0)
}

func (m *mockTimerRepo) Cancel(ctx context.Context, bookingID uuid.UUID, kind string) error {
	return m.Called(ctx, bookingID, kind).Error(0)
}

func (m *mockTimerRepo) ClaimDue(ctx context.Context, kind string, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, kind, limit)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockTimerRepo) Unclaim(ctx context.Context, bookingID uuid.UUID, kind string) error {
	return m.Called(ctx, bookingID, kind).Error(0)
}

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) GetContractorProfile(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ContractorProfile), args.Error(1)
}

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) Open(ctx context.Context, d *models.Dispute, fromStatus, toStatus string, freezePayout bool) error {
	return m.Called(ctx, d, fromStatus, toStatus, freezePayout).Error(0)
}

func (m *mockDisputeRepo) Resolve(ctx context.Context, disputeID, adminID uuid.UUID, resolution string, refundPercentage float64) error {
	return m.Called(ctx, disputeID, adminID, resolution, refundPercentage).Error(0)
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) GetOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Dispute, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Dispute, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

func (m *mockDisputeRepo) ListOpen(ctx context.Context, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

type mockSuggestionRepo struct {
	mock.Mock
}

func (m *mockSuggestionRepo) Create(ctx context.Context, s *models.AlternativeSuggestion) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockSuggestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AlternativeSuggestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AlternativeSuggestion), args.Error(1)
}

func (m *mockSuggestionRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.AlternativeSuggestion, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]models.AlternativeSuggestion), args.Error(1)
}

func (m *mockSuggestionRepo) Accept(ctx context.Context, id, bookingID uuid.UUID) error {
	return m.Called(ctx, id, bookingID).Error(0)
}

func (m *mockSuggestionRepo) Reject(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// recordingNotifier собирает события для проверок, не доставляя их.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(userID uuid.UUID, event string, data map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}
