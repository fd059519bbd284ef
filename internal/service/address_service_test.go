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
	"github.com/ignatzorin/lawncare-backend/internal/pricing"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
)

func newAddressService() (*AddressService, *mockAddressRepo, *mockBookingRepo, *recordingNotifier) {
	addrs := new(mockAddressRepo)
	bookings := new(mockBookingRepo)
	notifier := &recordingNotifier{}
	return NewAddressService(addrs, bookings, notifier, 5), addrs, bookings, notifier
}

// weekday возвращает ближайший будний день в будущем, чтобы расчёт не
// зависел от надбавки за выходные.
func weekday() time.Time {
	d := time.Now().AddDate(0, 0, 7)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func waitingBooking(addressID uuid.UUID, declaredSqm float64, date time.Time) models.Booking {
	quote, _ := pricing.Quote(pricing.QuoteInput{
		SquareMeters: declaredSqm,
		Date:         date,
		GrassLength:  models.GrassLengthShort,
	})
	return models.Booking{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		AddressID:     addressID,
		ScheduledDate: date,
		GrassLength:   models.GrassLengthShort,
		OriginalPrice: quote.Total,
		TotalPrice:    quote.Total,
		Status:        models.BookingStatusPendingAddressVerification,
	}
}

func TestAddressService_VerifyAddress_WithinTolerance(t *testing.T) {
	svc, addrs, bookings, _ := newAddressService()
	ctx := context.Background()
	addressID := uuid.New()
	date := weekday()

	// Заявлено 100 кв. м, по факту 102: расхождение цены меньше 5%.
	b := waitingBooking(addressID, 100, date)

	addrs.On("Verify", ctx, addressID, 102.0).Return(nil)
	bookings.On("ListPendingVerificationByAddress", ctx, addressID).Return([]models.Booking{b}, nil)
	bookings.On("UpdateStatusIf", ctx, b.ID,
		models.BookingStatusPendingAddressVerification, models.BookingStatusPending).Return(nil)

	err := svc.VerifyAddress(ctx, addressID, 102)
	require.NoError(t, err)

	// Исходная цена остаётся в силе, пересчёт не записывается.
	bookings.AssertNotCalled(t, "Reprice",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddressService_VerifyAddress_BeyondTolerance(t *testing.T) {
	svc, addrs, bookings, notifier := newAddressService()
	ctx := context.Background()
	addressID := uuid.New()
	date := weekday()

	// Заявлено 100 кв. м, по факту 200: цена уходит далеко за допуск.
	b := waitingBooking(addressID, 100, date)
	expected, _ := pricing.Quote(pricing.QuoteInput{
		SquareMeters: 200,
		Date:         date,
		GrassLength:  models.GrassLengthShort,
	})

	addrs.On("Verify", ctx, addressID, 200.0).Return(nil)
	bookings.On("ListPendingVerificationByAddress", ctx, addressID).Return([]models.Booking{b}, nil)
	bookings.On("Reprice", ctx, b.ID,
		models.BookingStatusPendingAddressVerification, models.BookingStatusPriceChangePending,
		expected.Total, mock.Anything).Return(nil)

	err := svc.VerifyAddress(ctx, addressID, 200)
	require.NoError(t, err)

	bookings.AssertExpectations(t)
	assert.Contains(t, notifier.Events(), EventPriceChanged)
}

func TestAddressService_VerifyAddress_CancelledRaceSkipped(t *testing.T) {
	svc, addrs, bookings, _ := newAddressService()
	ctx := context.Background()
	addressID := uuid.New()
	date := weekday()

	b := waitingBooking(addressID, 100, date)

	addrs.On("Verify", ctx, addressID, 300.0).Return(nil)
	bookings.On("ListPendingVerificationByAddress", ctx, addressID).Return([]models.Booking{b}, nil)
	// Заказчик отменил бронирование между выборкой и пересчётом.
	bookings.On("Reprice", ctx, b.ID, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(repository.ErrStatusConflict)

	err := svc.VerifyAddress(ctx, addressID, 300)
	assert.NoError(t, err)
}

func TestAddressService_VerifyAddress_AlreadyVerified(t *testing.T) {
	svc, addrs, _, _ := newAddressService()
	ctx := context.Background()
	addressID := uuid.New()

	addrs.On("Verify", ctx, addressID, 100.0).Return(repository.ErrStatusConflict)

	err := svc.VerifyAddress(ctx, addressID, 100)
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
}

func TestAddressService_RejectAddress_CancelsWaiting(t *testing.T) {
	svc, addrs, bookings, notifier := newAddressService()
	ctx := context.Background()
	addressID := uuid.New()
	date := weekday()

	b1 := waitingBooking(addressID, 100, date)
	b2 := waitingBooking(addressID, 100, date)

	addrs.On("Reject", ctx, addressID).Return(nil)
	bookings.On("ListPendingVerificationByAddress", ctx, addressID).Return([]models.Booking{b1, b2}, nil)
	bookings.On("UpdateStatusIf", ctx, b1.ID,
		models.BookingStatusPendingAddressVerification, models.BookingStatusCancelled).Return(nil)
	bookings.On("UpdateStatusIf", ctx, b2.ID,
		models.BookingStatusPendingAddressVerification, models.BookingStatusCancelled).Return(nil)

	err := svc.RejectAddress(ctx, addressID)
	require.NoError(t, err)

	bookings.AssertExpectations(t)
	assert.Len(t, notifier.Events(), 2)
}

func TestAddressService_CreateAddress_Validation(t *testing.T) {
	svc, _, _, _ := newAddressService()
	ctx := context.Background()

	_, err := svc.CreateAddress(ctx, uuid.New(), CreateAddressInput{
		Line: "", City: "Казань", ServiceArea: "north", DeclaredSquareMeters: 100,
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))

	_, err = svc.CreateAddress(ctx, uuid.New(), CreateAddressInput{
		Line: "ул. Луговая, 7", City: "Казань", ServiceArea: "north", DeclaredSquareMeters: 0,
	})
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))
}
