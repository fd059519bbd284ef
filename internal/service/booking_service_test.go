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

type bookingServiceMocks struct {
	bookings *mockBookingRepo
	addrs    *mockAddressRepo
	ledger   *mockLedgerRepo
	photos   *mockPhotoRepo
	timers   *mockTimerRepo
	profiles *mockProfileRepo
	notifier *recordingNotifier
}

func newBookingService() (*BookingService, *bookingServiceMocks) {
	m := &bookingServiceMocks{
		bookings: new(mockBookingRepo),
		addrs:    new(mockAddressRepo),
		ledger:   new(mockLedgerRepo),
		photos:   new(mockPhotoRepo),
		timers:   new(mockTimerRepo),
		profiles: new(mockProfileRepo),
		notifier: &recordingNotifier{},
	}
	svc := NewBookingService(m.bookings, m.addrs, m.ledger, m.photos, m.timers, m.profiles, m.notifier, 4, 2)
	return svc, m
}

func futureDate() time.Time {
	return time.Now().AddDate(0, 0, 7)
}

func verifiedAddress(customerID uuid.UUID) *models.Address {
	sqm := 120.0
	return &models.Address{
		ID:                   uuid.New(),
		CustomerID:           customerID,
		ServiceArea:          "north",
		DeclaredSquareMeters: 100,
		SquareMeters:         &sqm,
		VerificationStatus:   models.AddressStatusVerified,
	}
}

func TestBookingService_CreateBooking_VerifiedAddress(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	customerID := uuid.New()
	addr := verifiedAddress(customerID)

	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)
	m.bookings.On("Create", ctx, mock.AnythingOfType("*models.Booking")).Return(nil)

	b, err := svc.CreateBooking(ctx, customerID, CreateBookingInput{
		AddressID:     addr.ID,
		ScheduledDate: futureDate(),
		TimeSlot:      "09:00-12:00",
		GrassLength:   models.GrassLengthShort,
	})
	require.NoError(t, err)

	// Проверенный адрес: бронирование сразу ждёт подрядчика, цена по
	// авторитетной площади.
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, b.PaymentStatus)
	assert.Equal(t, b.OriginalPrice, b.TotalPrice)
	assert.Greater(t, b.TotalPrice, 0.0)
}

func TestBookingService_CreateBooking_UnverifiedAddress(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	customerID := uuid.New()
	addr := verifiedAddress(customerID)
	addr.VerificationStatus = models.AddressStatusPending
	addr.SquareMeters = nil

	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)
	m.bookings.On("Create", ctx, mock.AnythingOfType("*models.Booking")).Return(nil)

	method := "card"
	b, err := svc.CreateBooking(ctx, customerID, CreateBookingInput{
		AddressID:     addr.ID,
		ScheduledDate: futureDate(),
		TimeSlot:      "09:00-12:00",
		GrassLength:   models.GrassLengthLong,
		PaymentMethod: &method,
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPendingAddressVerification, b.Status)
	assert.Equal(t, models.PaymentStatusPending, b.PaymentStatus)
}

func TestBookingService_CreateBooking_ForeignAddress(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	addr := verifiedAddress(uuid.New())

	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)

	_, err := svc.CreateBooking(ctx, uuid.New(), CreateBookingInput{
		AddressID:     addr.ID,
		ScheduledDate: futureDate(),
		TimeSlot:      "09:00-12:00",
		GrassLength:   models.GrassLengthShort,
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
}

func TestBookingService_AcceptBooking_Success(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	customerID := uuid.New()
	contractorID := uuid.New()
	addr := verifiedAddress(customerID)

	booking := &models.Booking{
		ID:         uuid.New(),
		CustomerID: customerID,
		AddressID:  addr.ID,
		Status:     models.BookingStatusPending,
	}
	confirmed := *booking
	confirmed.Status = models.BookingStatusConfirmed
	confirmed.ContractorID = &contractorID

	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ServiceArea:    "north",
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)
	m.ledger.On("ChargeAndConfirm", ctx, booking.ID, contractorID).Return(&confirmed, nil)

	got, err := svc.AcceptBooking(ctx, booking.ID, contractorID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	m.ledger.AssertExpectations(t)
}

func TestBookingService_AcceptBooking_WrongServiceArea(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	contractorID := uuid.New()
	addr := verifiedAddress(uuid.New())

	booking := &models.Booking{ID: uuid.New(), AddressID: addr.ID, Status: models.BookingStatusPending}

	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ServiceArea:    "south",
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)

	_, err := svc.AcceptBooking(ctx, booking.ID, contractorID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
	m.ledger.AssertNotCalled(t, "ChargeAndConfirm", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_AcceptBooking_PreferredMismatch(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	contractorID := uuid.New()
	preferred := uuid.New()

	booking := &models.Booking{
		ID:                    uuid.New(),
		AddressID:             uuid.New(),
		Status:                models.BookingStatusPending,
		PreferredContractorID: &preferred,
	}

	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ServiceArea:    "north",
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	_, err := svc.AcceptBooking(ctx, booking.ID, contractorID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
}

func TestBookingService_AcceptBooking_LostRace(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	customerID := uuid.New()
	contractorID := uuid.New()
	addr := verifiedAddress(customerID)

	booking := &models.Booking{ID: uuid.New(), CustomerID: customerID, AddressID: addr.ID, Status: models.BookingStatusPending}

	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ServiceArea:    "north",
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)
	// Другой подрядчик успел первым: условное обновление не прошло.
	m.ledger.On("ChargeAndConfirm", ctx, booking.ID, contractorID).Return(nil, repository.ErrStatusConflict)

	_, err := svc.AcceptBooking(ctx, booking.ID, contractorID)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestBookingService_AcceptBooking_NoPaymentMethod(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	customerID := uuid.New()
	contractorID := uuid.New()
	addr := verifiedAddress(customerID)

	booking := &models.Booking{ID: uuid.New(), CustomerID: customerID, AddressID: addr.ID, Status: models.BookingStatusPending}

	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ServiceArea:    "north",
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)
	m.ledger.On("ChargeAndConfirm", ctx, booking.ID, contractorID).Return(nil, repository.ErrNoPaymentMethod)

	_, err := svc.AcceptBooking(ctx, booking.ID, contractorID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeLedgerFailed))
}

func TestBookingService_CompleteBooking_PhotosInsufficient(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	contractorID := uuid.New()

	booking := &models.Booking{
		ID:           uuid.New(),
		Status:       models.BookingStatusConfirmed,
		ContractorID: &contractorID,
	}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.photos.On("CountByBooking", ctx, booking.ID).Return(&models.PhotoCounts{Before: 4, After: 3}, nil)

	err := svc.CompleteBooking(ctx, booking.ID, contractorID)
	require.Error(t, err)

	var photosErr *apperror.PhotosInsufficientError
	require.ErrorAs(t, err, &photosErr)
	assert.Equal(t, 4, photosErr.RequiredAfter)
	assert.Equal(t, 3, photosErr.GotAfter)
	m.bookings.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_CompleteBooking_ProbationaryMinimum(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	contractorID := uuid.New()

	booking := &models.Booking{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		Status:       models.BookingStatusConfirmed,
		ContractorID: &contractorID,
	}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ApprovalStatus: models.ApprovalStatusApproved,
		Probationary:   true,
	}, nil)
	// 2/2 достаточно для испытательного срока, хотя общий минимум 4/4.
	m.photos.On("CountByBooking", ctx, booking.ID).Return(&models.PhotoCounts{Before: 2, After: 2}, nil)
	m.bookings.On("MarkCompleted", ctx, booking.ID, contractorID, mock.AnythingOfType("time.Time")).Return(nil)
	m.timers.On("Arm", ctx, booking.ID, models.TimerKindAutoRelease, mock.AnythingOfType("time.Time")).Return(nil)

	err := svc.CompleteBooking(ctx, booking.ID, contractorID)
	require.NoError(t, err)
	m.timers.AssertExpectations(t)
}

func TestBookingService_CompleteBooking_ArmsReviewTimer(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	contractorID := uuid.New()

	booking := &models.Booking{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		Status:       models.BookingStatusConfirmed,
		ContractorID: &contractorID,
	}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.photos.On("CountByBooking", ctx, booking.ID).Return(&models.PhotoCounts{Before: 4, After: 4}, nil)
	m.bookings.On("MarkCompleted", ctx, booking.ID, contractorID, mock.AnythingOfType("time.Time")).Return(nil)

	before := time.Now()
	m.timers.On("Arm", ctx, booking.ID, models.TimerKindAutoRelease, mock.MatchedBy(func(due time.Time) bool {
		// Таймер взводится ровно на конец окна проверки.
		return due.After(before.Add(models.ReviewWindow-time.Minute)) &&
			due.Before(time.Now().Add(models.ReviewWindow+time.Minute))
	})).Return(nil)

	err := svc.CompleteBooking(ctx, booking.ID, contractorID)
	require.NoError(t, err)
	m.timers.AssertExpectations(t)
}

func TestBookingService_ApproveCompletion_ReleasesThenCancelsTimer(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	customerID := uuid.New()
	contractorID := uuid.New()

	booking := &models.Booking{
		ID:           uuid.New(),
		CustomerID:   customerID,
		ContractorID: &contractorID,
		Status:       models.BookingStatusCompletedPendingVerification,
		TotalPrice:   90,
	}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.ledger.On("ReleaseAndComplete", ctx, booking.ID).Return(nil)
	m.timers.On("Cancel", ctx, booking.ID, models.TimerKindAutoRelease).Return(nil)

	err := svc.ApproveCompletion(ctx, booking.ID, customerID)
	require.NoError(t, err)
	m.ledger.AssertExpectations(t)
	m.timers.AssertExpectations(t)
}

func TestBookingService_ApproveCompletion_Foreign(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()

	booking := &models.Booking{ID: uuid.New(), CustomerID: uuid.New()}
	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	err := svc.ApproveCompletion(ctx, booking.ID, uuid.New())
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
	m.ledger.AssertNotCalled(t, "ReleaseAndComplete", mock.Anything, mock.Anything)
}

func TestBookingService_AutoRelease_ConflictIsBenign(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	bookingID := uuid.New()

	// Заказчик успел открыть спор: освобождение проигрывает гонку и это
	// штатный исход для планировщика.
	m.ledger.On("ReleaseAndComplete", ctx, bookingID).Return(repository.ErrStatusConflict)

	err := svc.AutoRelease(ctx, bookingID)
	assert.NoError(t, err)
}

func TestBookingService_AutoRelease_Idempotent(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	bookingID := uuid.New()

	m.ledger.On("ReleaseAndComplete", ctx, bookingID).Return(nil)
	m.timers.On("Cancel", ctx, bookingID, models.TimerKindAutoRelease).Return(nil)

	require.NoError(t, svc.AutoRelease(ctx, bookingID))
	require.NoError(t, svc.AutoRelease(ctx, bookingID))
}

func TestBookingService_CancelBooking_AfterAssignment(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	bookingID := uuid.New()
	customerID := uuid.New()

	m.bookings.On("CancelByCustomer", ctx, bookingID, customerID).Return(repository.ErrStatusConflict)

	err := svc.CancelBooking(ctx, bookingID, customerID)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestBookingService_RateBooking_InvalidRating(t *testing.T) {
	svc, _ := newBookingService()
	ctx := context.Background()

	err := svc.RateBooking(ctx, uuid.New(), uuid.New(), 0)
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))

	err = svc.RateBooking(ctx, uuid.New(), uuid.New(), 6)
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))
}

func TestBookingService_ListAvailable_NotApproved(t *testing.T) {
	svc, m := newBookingService()
	ctx := context.Background()
	contractorID := uuid.New()

	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ApprovalStatus: models.ApprovalStatusPending,
	}, nil)

	_, err := svc.ListAvailableBookings(ctx, contractorID, 20, 0)
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
}
