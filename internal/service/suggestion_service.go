package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
	"github.com/ignatzorin/lawncare-backend/internal/validation"
)

type SuggestionRepository interface {
	Create(ctx context.Context, s *models.AlternativeSuggestion) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AlternativeSuggestion, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.AlternativeSuggestion, error)
	Accept(ctx context.Context, id, bookingID uuid.UUID) error
	Reject(ctx context.Context, id uuid.UUID) error
}

// SuggestionService управляет встречными предложениями подрядчиков по дате и
// времени. Принятие предложения заказчиком переносит бронирование и сразу
// назначает предложившего подрядчика.
type SuggestionService struct {
	suggestions SuggestionRepository
	bookings    BookingRepository
	ledger      LedgerRepository
	profiles    ProfileRepository
	addrs       AddressRepository
	notifier    Notifier
}

func NewSuggestionService(
	suggestions SuggestionRepository,
	bookings BookingRepository,
	ledger LedgerRepository,
	profiles ProfileRepository,
	addrs AddressRepository,
	notifier Notifier,
) *SuggestionService {
	return &SuggestionService{
		suggestions: suggestions,
		bookings:    bookings,
		ledger:      ledger,
		profiles:    profiles,
		addrs:       addrs,
		notifier:    notifier,
	}
}

// SuggestAlternative создаёт встречное предложение подрядчика по ожидающему
// бронированию.
func (s *SuggestionService) SuggestAlternative(ctx context.Context, bookingID, contractorID uuid.UUID, date time.Time, timeSlot string) (*models.AlternativeSuggestion, error) {
	if err := validation.ValidateTimeSlot(timeSlot); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if date.Before(time.Now().Truncate(24 * time.Hour)) {
		return nil, apperror.New(apperror.ErrCodeValidation, "предложенная дата не может быть в прошлом")
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("suggestion service: suggest %w", err)
	}
	if b.Status != models.BookingStatusPending {
		return nil, apperror.ErrInvalidTransition
	}
	if b.PreferredContractorID != nil && *b.PreferredContractorID != contractorID {
		return nil, apperror.ErrForbidden
	}

	profile, err := s.profiles.GetContractorProfile(ctx, contractorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeForbidden, "анкета подрядчика не заполнена")
		}
		return nil, fmt.Errorf("suggestion service: suggest %w", err)
	}
	addr, err := s.addrs.GetByID(ctx, b.AddressID)
	if err != nil {
		return nil, fmt.Errorf("suggestion service: suggest %w", err)
	}
	if !profile.CanAccept(addr.ServiceArea) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подрядчик не допущен к работе в этой зоне обслуживания")
	}

	suggestion := &models.AlternativeSuggestion{
		BookingID:    bookingID,
		ContractorID: contractorID,
		Date:         date,
		TimeSlot:     timeSlot,
	}
	if err := s.suggestions.Create(ctx, suggestion); err != nil {
		if errors.Is(err, repository.ErrDuplicateSuggestion) {
			return nil, apperror.New(apperror.ErrCodeConflict, "такое предложение уже существует")
		}
		return nil, fmt.Errorf("suggestion service: suggest %w", err)
	}

	s.notifier.Notify(b.CustomerID, EventSuggestionReceived, map[string]interface{}{
		"booking_id":    bookingID,
		"suggestion_id": suggestion.ID,
		"date":          date.Format("2006-01-02"),
		"time_slot":     timeSlot,
	})
	return suggestion, nil
}

// AcceptSuggestion принимает предложение заказчиком: бронирование переносится
// на предложенные дату и слот, предложивший подрядчик назначается с
// одновременным списанием оплаты, остальные предложения отклоняются.
func (s *SuggestionService) AcceptSuggestion(ctx context.Context, suggestionID, customerID uuid.UUID) (*models.Booking, error) {
	suggestion, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, repository.ErrSuggestionNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "предложение не найдено")
		}
		return nil, fmt.Errorf("suggestion service: accept %w", err)
	}

	b, err := s.bookings.GetByID(ctx, suggestion.BookingID)
	if err != nil {
		return nil, fmt.Errorf("suggestion service: accept %w", err)
	}
	if b.CustomerID != customerID {
		return nil, apperror.ErrForbidden
	}
	if b.Status != models.BookingStatusPending || b.ContractorID != nil {
		return nil, apperror.ErrInvalidTransition
	}
	// Списание — часть принятия. Резерв оплаты проверяем до того, как
	// предложение и расписание будут изменены: отказ списания не должен
	// оставлять частичных изменений.
	if b.PaymentMethod == nil || b.PaymentStatus == models.PaymentStatusUnpaid {
		return nil, apperror.New(apperror.ErrCodeLedgerFailed, "оплата заказчика не зарезервирована, списание невозможно")
	}

	if err := s.suggestions.Accept(ctx, suggestionID, suggestion.BookingID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.New(apperror.ErrCodeConflict, "предложение уже обработано")
		}
		return nil, fmt.Errorf("suggestion service: accept %w", err)
	}

	if err := s.bookings.Reschedule(ctx, suggestion.BookingID, suggestion.Date, suggestion.TimeSlot); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperror.ErrInvalidTransition
		}
		return nil, fmt.Errorf("suggestion service: accept %w", err)
	}

	confirmed, err := s.ledger.ChargeAndConfirm(ctx, suggestion.BookingID, suggestion.ContractorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperror.ErrInvalidTransition
		case errors.Is(err, repository.ErrNoPaymentMethod):
			return nil, apperror.New(apperror.ErrCodeLedgerFailed, "оплата заказчика не зарезервирована, списание невозможно")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeLedgerFailed, "не удалось провести списание")
	}

	s.notifier.Notify(suggestion.ContractorID, EventSuggestionAccepted, map[string]interface{}{
		"booking_id":    suggestion.BookingID,
		"suggestion_id": suggestionID,
	})
	return confirmed, nil
}

// RejectSuggestion отклоняет предложение заказчиком.
func (s *SuggestionService) RejectSuggestion(ctx context.Context, suggestionID, customerID uuid.UUID) error {
	suggestion, err := s.suggestions.GetByID(ctx, suggestionID)
	if err != nil {
		if errors.Is(err, repository.ErrSuggestionNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "предложение не найдено")
		}
		return fmt.Errorf("suggestion service: reject %w", err)
	}
	b, err := s.bookings.GetByID(ctx, suggestion.BookingID)
	if err != nil {
		return fmt.Errorf("suggestion service: reject %w", err)
	}
	if b.CustomerID != customerID {
		return apperror.ErrForbidden
	}
	if err := s.suggestions.Reject(ctx, suggestionID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return apperror.New(apperror.ErrCodeConflict, "предложение уже обработано")
		}
		return fmt.Errorf("suggestion service: reject %w", err)
	}
	return nil
}

// ListSuggestions возвращает предложения по бронированию заказчика.
func (s *SuggestionService) ListSuggestions(ctx context.Context, bookingID, actorID uuid.UUID, actorRole string) ([]models.AlternativeSuggestion, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("suggestion service: list %w", err)
	}
	if actorRole != models.RoleAdmin && b.CustomerID != actorID {
		return nil, apperror.ErrForbidden
	}
	return s.suggestions.ListByBooking(ctx, bookingID)
}
