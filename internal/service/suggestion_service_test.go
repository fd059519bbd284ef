package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
)

type suggestionServiceMocks struct {
	suggestions *mockSuggestionRepo
	bookings    *mockBookingRepo
	ledger      *mockLedgerRepo
	profiles    *mockProfileRepo
	addrs       *mockAddressRepo
	notifier    *recordingNotifier
}

func newSuggestionService() (*SuggestionService, *suggestionServiceMocks) {
	m := &suggestionServiceMocks{
		suggestions: new(mockSuggestionRepo),
		bookings:    new(mockBookingRepo),
		ledger:      new(mockLedgerRepo),
		profiles:    new(mockProfileRepo),
		addrs:       new(mockAddressRepo),
		notifier:    &recordingNotifier{},
	}
	return NewSuggestionService(m.suggestions, m.bookings, m.ledger, m.profiles, m.addrs, m.notifier), m
}

func TestSuggestionService_SuggestAlternative(t *testing.T) {
	svc, m := newSuggestionService()
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

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ServiceArea:    "north",
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)
	m.suggestions.On("Create", ctx, mock.AnythingOfType("*models.AlternativeSuggestion")).Return(nil)

	s, err := svc.SuggestAlternative(ctx, booking.ID, contractorID, futureDate(), "14:00-17:00")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, s.BookingID)
	assert.Contains(t, m.notifier.Events(), EventSuggestionReceived)
}

func TestSuggestionService_SuggestAlternative_Duplicate(t *testing.T) {
	svc, m := newSuggestionService()
	ctx := context.Background()
	customerID := uuid.New()
	contractorID := uuid.New()
	addr := verifiedAddress(customerID)

	booking := &models.Booking{ID: uuid.New(), CustomerID: customerID, AddressID: addr.ID, Status: models.BookingStatusPending}

	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)
	m.profiles.On("GetContractorProfile", ctx, contractorID).Return(&models.ContractorProfile{
		UserID:         contractorID,
		ServiceArea:    "north",
		ApprovalStatus: models.ApprovalStatusApproved,
	}, nil)
	m.addrs.On("GetByID", ctx, addr.ID).Return(addr, nil)
	m.suggestions.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicateSuggestion)

	_, err := svc.SuggestAlternative(ctx, booking.ID, contractorID, futureDate(), "14:00-17:00")
	assert.True(t, apperror.Is(err, apperror.ErrCodeConflict))
}

func TestSuggestionService_AcceptSuggestion(t *testing.T) {
	svc, m := newSuggestionService()
	ctx := context.Background()
	customerID := uuid.New()
	contractorID := uuid.New()
	date := futureDate()

	suggestion := &models.AlternativeSuggestion{
		ID:           uuid.New(),
		BookingID:    uuid.New(),
		ContractorID: contractorID,
		Date:         date,
		TimeSlot:     "14:00-17:00",
		Status:       models.SuggestionStatusPending,
	}
	method := "card"
	booking := &models.Booking{
		ID:            suggestion.BookingID,
		CustomerID:    customerID,
		Status:        models.BookingStatusPending,
		PaymentMethod: &method,
		PaymentStatus: models.PaymentStatusPending,
	}
	confirmed := *booking
	confirmed.Status = models.BookingStatusConfirmed
	confirmed.ContractorID = &contractorID
	confirmed.ScheduledDate = date

	m.suggestions.On("GetByID", ctx, suggestion.ID).Return(suggestion, nil)
	m.bookings.On("GetByID", ctx, suggestion.BookingID).Return(booking, nil)
	m.suggestions.On("Accept", ctx, suggestion.ID, suggestion.BookingID).Return(nil)
	m.bookings.On("Reschedule", ctx, suggestion.BookingID, date, "14:00-17:00").Return(nil)
	m.ledger.On("ChargeAndConfirm", ctx, suggestion.BookingID, contractorID).Return(&confirmed, nil)

	got, err := svc.AcceptSuggestion(ctx, suggestion.ID, customerID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, got.Status)
	assert.Contains(t, m.notifier.Events(), EventSuggestionAccepted)
}

func TestSuggestionService_AcceptSuggestion_Foreign(t *testing.T) {
	svc, m := newSuggestionService()
	ctx := context.Background()

	suggestion := &models.AlternativeSuggestion{
		ID:        uuid.New(),
		BookingID: uuid.New(),
		Date:      futureDate(),
		TimeSlot:  "14:00-17:00",
	}
	booking := &models.Booking{ID: suggestion.BookingID, CustomerID: uuid.New()}

	m.suggestions.On("GetByID", ctx, suggestion.ID).Return(suggestion, nil)
	m.bookings.On("GetByID", ctx, suggestion.BookingID).Return(booking, nil)

	_, err := svc.AcceptSuggestion(ctx, suggestion.ID, uuid.New())
	assert.True(t, apperror.Is(err, apperror.ErrCodeForbidden))
	m.ledger.AssertNotCalled(t, "ChargeAndConfirm", mock.Anything, mock.Anything, mock.Anything)
}

// Без зарезервированной оплаты принятие отклоняется до каких-либо изменений:
// предложение остаётся ожидающим, расписание не трогается.
func TestSuggestionService_AcceptSuggestion_NoPaymentMethod(t *testing.T) {
	svc, m := newSuggestionService()
	ctx := context.Background()
	customerID := uuid.New()

	suggestion := &models.AlternativeSuggestion{
		ID:           uuid.New(),
		BookingID:    uuid.New(),
		ContractorID: uuid.New(),
		Date:         futureDate(),
		TimeSlot:     "14:00-17:00",
		Status:       models.SuggestionStatusPending,
	}
	booking := &models.Booking{
		ID:         suggestion.BookingID,
		CustomerID: customerID,
		Status:     models.BookingStatusPending,
	}

	m.suggestions.On("GetByID", ctx, suggestion.ID).Return(suggestion, nil)
	m.bookings.On("GetByID", ctx, suggestion.BookingID).Return(booking, nil)

	_, err := svc.AcceptSuggestion(ctx, suggestion.ID, customerID)
	assert.True(t, apperror.Is(err, apperror.ErrCodeLedgerFailed))
	m.suggestions.AssertNotCalled(t, "Accept", mock.Anything, mock.Anything, mock.Anything)
	m.bookings.AssertNotCalled(t, "Reschedule", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.ledger.AssertNotCalled(t, "ChargeAndConfirm", mock.Anything, mock.Anything, mock.Anything)
}

// Принятое бронирование с назначенным подрядчиком повторно принять нельзя.
func TestSuggestionService_AcceptSuggestion_BookingNotPending(t *testing.T) {
	svc, m := newSuggestionService()
	ctx := context.Background()
	customerID := uuid.New()

	suggestion := &models.AlternativeSuggestion{
		ID:        uuid.New(),
		BookingID: uuid.New(),
		Date:      futureDate(),
		TimeSlot:  "14:00-17:00",
		Status:    models.SuggestionStatusPending,
	}
	booking := &models.Booking{
		ID:         suggestion.BookingID,
		CustomerID: customerID,
		Status:     models.BookingStatusConfirmed,
	}

	m.suggestions.On("GetByID", ctx, suggestion.ID).Return(suggestion, nil)
	m.bookings.On("GetByID", ctx, suggestion.BookingID).Return(booking, nil)

	_, err := svc.AcceptSuggestion(ctx, suggestion.ID, customerID)
	assert.True(t, apperror.IsInvalidTransition(err))
	m.suggestions.AssertNotCalled(t, "Accept", mock.Anything, mock.Anything, mock.Anything)
}

func TestSuggestionService_SuggestAlternative_NotPending(t *testing.T) {
	svc, m := newSuggestionService()
	ctx := context.Background()

	booking := &models.Booking{ID: uuid.New(), Status: models.BookingStatusConfirmed}
	m.bookings.On("GetByID", ctx, booking.ID).Return(booking, nil)

	_, err := svc.SuggestAlternative(ctx, booking.ID, uuid.New(), futureDate(), "14:00-17:00")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestSuggestionService_BadTimeSlot(t *testing.T) {
	svc, _ := newSuggestionService()
	ctx := context.Background()

	_, err := svc.SuggestAlternative(ctx, uuid.New(), uuid.New(), futureDate(), "утром")
	assert.True(t, apperror.Is(err, apperror.ErrCodeValidation))
}
