package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/pricing"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
	"github.com/ignatzorin/lawncare-backend/internal/validation"
)

type BookingRepository interface {
	Create(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Booking, error)
	ListByContractor(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Booking, error)
	ListAvailable(ctx context.Context, contractorID uuid.UUID, serviceArea string, limit, offset int) ([]models.Booking, error)
	ListPendingVerificationByAddress(ctx context.Context, addressID uuid.UUID) ([]models.Booking, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to string) error
	CancelByCustomer(ctx context.Context, id, customerID uuid.UUID) error
	Reprice(ctx context.Context, id uuid.UUID, from, to string, total float64, breakdown json.RawMessage) error
	ApproveNewPrice(ctx context.Context, id, customerID uuid.UUID) error
	SetPaymentMethod(ctx context.Context, id, customerID uuid.UUID, method string) error
	Reschedule(ctx context.Context, id uuid.UUID, date time.Time, slot string) error
	MarkCompleted(ctx context.Context, id, contractorID uuid.UUID, completedAt time.Time) error
	SetRating(ctx context.Context, id, customerID uuid.UUID, rating int) error
}

type AddressRepository interface {
	Create(ctx context.Context, a *models.Address) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Address, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Address, error)
	ListPending(ctx context.Context, limit, offset int) ([]models.Address, error)
	Verify(ctx context.Context, id uuid.UUID, squareMeters float64) error
	Reject(ctx context.Context, id uuid.UUID) error
}

type LedgerRepository interface {
	ChargeAndConfirm(ctx context.Context, bookingID, contractorID uuid.UUID) (*models.Booking, error)
	ReleaseAndComplete(ctx context.Context, bookingID uuid.UUID) error
	SettleDispute(ctx context.Context, bookingID uuid.UUID, refundAmount float64, finalStatus string) error
	Withdraw(ctx context.Context, contractorID uuid.UUID, amount float64) (*models.Withdrawal, error)
	GetPlatformAccount(ctx context.Context) (*models.PlatformAccount, error)
	GetContractorBalance(ctx context.Context, contractorID uuid.UUID) (*models.ContractorBalance, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerTransaction, error)
	ListWithdrawals(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Withdrawal, error)
}

type PhotoRepository interface {
	Create(ctx context.Context, p *models.CompletionPhoto) error
	CountByBooking(ctx context.Context, bookingID uuid.UUID) (*models.PhotoCounts, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.CompletionPhoto, error)
}

type TimerRepository interface {
	Arm(ctx context.Context, bookingID uuid.UUID, kind string, dueAt time.Time) error
	Cancel(ctx context.Context, bookingID uuid.UUID, kind string) error
	ClaimDue(ctx context.Context, kind string, limit int) ([]uuid.UUID, error)
	Unclaim(ctx context.Context, bookingID uuid.UUID, kind string) error
}

type ProfileRepository interface {
	GetContractorProfile(ctx context.Context, userID uuid.UUID) (*models.ContractorProfile, error)
}

// Notifier доставляет уведомления о событиях жизненного цикла. Доставка
// fire-and-forget: её сбой никогда не откатывает переход статуса.
type Notifier interface {
	Notify(userID uuid.UUID, event string, data map[string]interface{})
}

// События жизненного цикла бронирования для уведомлений
const (
	EventBookingConfirmed   = "booking_confirmed"
	EventBookingCompleted   = "booking_completed"
	EventBookingCancelled   = "booking_cancelled"
	EventPaymentReleased    = "payment_released"
	EventPriceChanged       = "price_changed"
	EventAddressRejected    = "address_rejected"
	EventDisputeOpened      = "dispute_opened"
	EventDisputeResolved    = "dispute_resolved"
	EventSuggestionReceived = "suggestion_received"
	EventSuggestionAccepted = "suggestion_accepted"
)

// BookingService реализует жизненный цикл бронирования. Все переходы статусов
// идут через таблицу переходов и условные обновления хранилища: проигравший
// гонку актор получает доброкачественный конфликт, а не потерянное обновление.
type BookingService struct {
	bookings BookingRepository
	addrs    AddressRepository
	ledger   LedgerRepository
	photos   PhotoRepository
	timers   TimerRepository
	profiles ProfileRepository
	notifier Notifier

	minPhotosGeneral   int
	minPhotosProbation int
}

func NewBookingService(
	bookings BookingRepository,
	addrs AddressRepository,
	ledger LedgerRepository,
	photos PhotoRepository,
	timers TimerRepository,
	profiles ProfileRepository,
	notifier Notifier,
	minPhotosGeneral, minPhotosProbation int,
) *BookingService {
	return &BookingService{
		bookings:           bookings,
		addrs:              addrs,
		ledger:             ledger,
		photos:             photos,
		timers:             timers,
		profiles:           profiles,
		notifier:           notifier,
		minPhotosGeneral:   minPhotosGeneral,
		minPhotosProbation: minPhotosProbation,
	}
}

// CreateBookingInput содержит параметры нового бронирования.
type CreateBookingInput struct {
	AddressID             uuid.UUID
	PreferredContractorID *uuid.UUID
	ScheduledDate         time.Time
	TimeSlot              string
	GrassLength           string
	ClippingsRemoval      bool
	PaymentMethod         *string
}

// CreateBooking создаёт бронирование. Цена считается по заявленной площади;
// если адрес ещё не проверен, бронирование ждёт проверки и сверки цены.
func (s *BookingService) CreateBooking(ctx context.Context, customerID uuid.UUID, in CreateBookingInput) (*models.Booking, error) {
	if err := validation.ValidateTimeSlot(in.TimeSlot); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if in.ScheduledDate.Before(time.Now().Truncate(24 * time.Hour)) {
		return nil, apperror.New(apperror.ErrCodeValidation, "дата покоса не может быть в прошлом")
	}

	addr, err := s.addrs.GetByID(ctx, in.AddressID)
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) {
			return nil, apperror.ErrAddressNotFound
		}
		return nil, fmt.Errorf("booking service: create %w", err)
	}
	if addr.CustomerID != customerID {
		return nil, apperror.ErrForbidden
	}
	if addr.VerificationStatus == models.AddressStatusRejected {
		return nil, apperror.New(apperror.ErrCodeValidation, "адрес не прошёл проверку, бронирование недоступно")
	}

	if in.PreferredContractorID != nil {
		if _, err := s.profiles.GetContractorProfile(ctx, *in.PreferredContractorID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, apperror.New(apperror.ErrCodeValidation, "выбранный подрядчик не найден")
			}
			return nil, fmt.Errorf("booking service: create %w", err)
		}
	}

	quote, err := pricing.Quote(pricing.QuoteInput{
		SquareMeters:     addr.EffectiveSquareMeters(),
		Date:             in.ScheduledDate,
		GrassLength:      in.GrassLength,
		ClippingsRemoval: in.ClippingsRemoval,
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	breakdown, err := json.Marshal(quote)
	if err != nil {
		return nil, fmt.Errorf("booking service: marshal quote %w", err)
	}

	status := models.BookingStatusPendingAddressVerification
	if addr.VerificationStatus == models.AddressStatusVerified {
		status = models.BookingStatusPending
	}

	paymentStatus := models.PaymentStatusUnpaid
	if in.PaymentMethod != nil {
		paymentStatus = models.PaymentStatusPending
	}

	b := &models.Booking{
		CustomerID:            customerID,
		AddressID:             in.AddressID,
		PreferredContractorID: in.PreferredContractorID,
		ScheduledDate:         in.ScheduledDate,
		TimeSlot:              in.TimeSlot,
		GrassLength:           in.GrassLength,
		ClippingsRemoval:      in.ClippingsRemoval,
		OriginalPrice:         quote.Total,
		TotalPrice:            quote.Total,
		QuoteBreakdown:        breakdown,
		PaymentMethod:         in.PaymentMethod,
		PaymentStatus:         paymentStatus,
		PayoutStatus:          models.PayoutStatusPending,
		Status:                status,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("booking service: create %w", err)
	}
	return b, nil
}

// GetBooking возвращает бронирование с проверкой видимости: заказчик,
// назначенный подрядчик или администратор.
func (s *BookingService) GetBooking(ctx context.Context, id, actorID uuid.UUID, actorRole string) (*models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("booking service: get %w", err)
	}
	if !s.canView(b, actorID, actorRole) {
		return nil, apperror.ErrForbidden
	}
	return b, nil
}

func (s *BookingService) canView(b *models.Booking, actorID uuid.UUID, actorRole string) bool {
	if actorRole == models.RoleAdmin || b.CustomerID == actorID {
		return true
	}
	if b.ContractorID != nil && *b.ContractorID == actorID {
		return true
	}
	// Ожидающее бронирование видно подрядчику, которому оно адресовано.
	if b.PreferredContractorID != nil && *b.PreferredContractorID == actorID {
		return true
	}
	return actorRole == models.RoleContractor && b.Status == models.BookingStatusPending && b.PreferredContractorID == nil
}

// ListCustomerBookings возвращает бронирования заказчика.
func (s *BookingService) ListCustomerBookings(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	return s.bookings.ListByCustomer(ctx, customerID, normalizeLimit(limit), offset)
}

// ListContractorBookings возвращает бронирования, назначенные подрядчику.
func (s *BookingService) ListContractorBookings(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	return s.bookings.ListByContractor(ctx, contractorID, normalizeLimit(limit), offset)
}

// ListAvailableBookings возвращает ожидающие бронирования, которые подрядчик
// вправе принять: видимость определяется анкетой, а не клиентом.
func (s *BookingService) ListAvailableBookings(ctx context.Context, contractorID uuid.UUID, limit, offset int) ([]models.Booking, error) {
	profile, err := s.profiles.GetContractorProfile(ctx, contractorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeForbidden, "анкета подрядчика не заполнена")
		}
		return nil, fmt.Errorf("booking service: list available %w", err)
	}
	if profile.ApprovalStatus != models.ApprovalStatusApproved {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подрядчик не допущен к приёму бронирований")
	}
	return s.bookings.ListAvailable(ctx, contractorID, profile.ServiceArea, normalizeLimit(limit), offset)
}

// SetPaymentMethod сохраняет платёжный метод заказчика и резервирует оплату.
// Списание происходит только в момент принятия бронирования подрядчиком.
func (s *BookingService) SetPaymentMethod(ctx context.Context, bookingID, customerID uuid.UUID, method string) error {
	if err := validation.ValidateNonEmpty("платёжный метод", method); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	err := s.bookings.SetPaymentMethod(ctx, bookingID, customerID, method)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return apperror.ErrInvalidTransition
		}
		return fmt.Errorf("booking service: set payment method %w", err)
	}
	return nil
}

// CancelBooking отменяет бронирование заказчиком. После назначения подрядчика
// отмена недоступна.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, customerID uuid.UUID) error {
	err := s.bookings.CancelByCustomer(ctx, bookingID, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return apperror.ErrInvalidTransition
		}
		return fmt.Errorf("booking service: cancel %w", err)
	}
	return nil
}

// ApprovePriceChange принимает пересчитанную после проверки адреса цену.
// Оплата сбрасывается: заказчик резервирует её заново по новой сумме.
func (s *BookingService) ApprovePriceChange(ctx context.Context, bookingID, customerID uuid.UUID) error {
	err := s.bookings.ApproveNewPrice(ctx, bookingID, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return apperror.ErrInvalidTransition
		}
		return fmt.Errorf("booking service: approve price change %w", err)
	}
	return nil
}

// RejectPriceChange отклоняет новую цену — бронирование отменяется.
func (s *BookingService) RejectPriceChange(ctx context.Context, bookingID, customerID uuid.UUID) error {
	return s.CancelBooking(ctx, bookingID, customerID)
}

// AcceptBooking принимает бронирование подрядчиком: допуск проверяется по
// анкете, оплата заказчика атомарно уходит в эскроу вместе с подтверждением.
func (s *BookingService) AcceptBooking(ctx context.Context, bookingID, contractorID uuid.UUID) (*models.Booking, error) {
	profile, err := s.profiles.GetContractorProfile(ctx, contractorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeForbidden, "анкета подрядчика не заполнена")
		}
		return nil, fmt.Errorf("booking service: accept %w", err)
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("booking service: accept %w", err)
	}
	if b.PreferredContractorID != nil && *b.PreferredContractorID != contractorID {
		return nil, apperror.ErrForbidden
	}

	addr, err := s.addrs.GetByID(ctx, b.AddressID)
	if err != nil {
		return nil, fmt.Errorf("booking service: accept %w", err)
	}
	if !profile.CanAccept(addr.ServiceArea) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подрядчик не допущен к работе в этой зоне обслуживания")
	}

	confirmed, err := s.ledger.ChargeAndConfirm(ctx, bookingID, contractorID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return nil, apperror.ErrInvalidTransition
		case errors.Is(err, repository.ErrNoPaymentMethod):
			return nil, apperror.New(apperror.ErrCodeLedgerFailed, "оплата заказчика не зарезервирована, списание невозможно")
		case errors.Is(err, repository.ErrBookingNotFound):
			return nil, apperror.ErrBookingNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeLedgerFailed, "не удалось провести списание")
	}

	s.notifier.Notify(confirmed.CustomerID, EventBookingConfirmed, map[string]interface{}{
		"booking_id": confirmed.ID,
	})
	return confirmed, nil
}

// CompleteBooking фиксирует завершение работ подрядчиком. Серверная проверка
// минимума фотографий авторитетна; для подрядчиков на испытательном сроке
// минимум ниже.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, contractorID uuid.UUID) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return apperror.ErrBookingNotFound
		}
		return fmt.Errorf("booking service: complete %w", err)
	}
	if b.ContractorID == nil || *b.ContractorID != contractorID {
		return apperror.ErrForbidden
	}

	profile, err := s.profiles.GetContractorProfile(ctx, contractorID)
	if err != nil {
		return fmt.Errorf("booking service: complete %w", err)
	}
	required := s.minPhotosGeneral
	if profile.Probationary {
		required = s.minPhotosProbation
	}

	counts, err := s.photos.CountByBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("booking service: complete %w", err)
	}
	if counts.Before < required || counts.After < required {
		return &apperror.PhotosInsufficientError{
			RequiredBefore: required,
			RequiredAfter:  required,
			GotBefore:      counts.Before,
			GotAfter:       counts.After,
		}
	}

	completedAt := time.Now()
	if err := s.bookings.MarkCompleted(ctx, bookingID, contractorID, completedAt); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return apperror.ErrInvalidTransition
		}
		return fmt.Errorf("booking service: complete %w", err)
	}

	// Таймер переживает рестарт сервиса: авторазблокировка выплаты хранится
	// в БД, а не в горутине.
	if err := s.timers.Arm(ctx, bookingID, models.TimerKindAutoRelease, completedAt.Add(models.ReviewWindow)); err != nil {
		return fmt.Errorf("booking service: arm auto release %w", err)
	}

	s.notifier.Notify(b.CustomerID, EventBookingCompleted, map[string]interface{}{
		"booking_id":   b.ID,
		"review_hours": int(models.ReviewWindow.Hours()),
	})
	return nil
}

// ApproveCompletion подтверждает работы заказчиком: выплата освобождается,
// бронирование закрывается. Таймер снимается после освобождения — обратный
// порядок оставил бы щель, в которой таймер уже отменён, а выплата не
// состоялась.
func (s *BookingService) ApproveCompletion(ctx context.Context, bookingID, customerID uuid.UUID) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return apperror.ErrBookingNotFound
		}
		return fmt.Errorf("booking service: approve completion %w", err)
	}
	if b.CustomerID != customerID {
		return apperror.ErrForbidden
	}

	if err := s.releaseEscrow(ctx, bookingID); err != nil {
		return err
	}

	if b.ContractorID != nil {
		s.notifier.Notify(*b.ContractorID, EventPaymentReleased, map[string]interface{}{
			"booking_id": b.ID,
			"amount":     b.TotalPrice,
		})
	}
	return nil
}

// AutoRelease освобождает выплату по сработавшему таймеру. Конфликт статуса —
// штатный исход: заказчик успел подтвердить сам либо открыть спор.
func (s *BookingService) AutoRelease(ctx context.Context, bookingID uuid.UUID) error {
	err := s.releaseEscrow(ctx, bookingID)
	if apperror.IsInvalidTransition(err) {
		return nil
	}
	return err
}

func (s *BookingService) releaseEscrow(ctx context.Context, bookingID uuid.UUID) error {
	err := s.ledger.ReleaseAndComplete(ctx, bookingID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			return apperror.ErrInvalidTransition
		case errors.Is(err, repository.ErrBookingNotFound):
			return apperror.ErrBookingNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeLedgerFailed, "не удалось освободить выплату")
	}
	// Отмена идемпотентна: уже сработавший таймер остаётся как есть.
	if err := s.timers.Cancel(ctx, bookingID, models.TimerKindAutoRelease); err != nil {
		return fmt.Errorf("booking service: cancel timer %w", err)
	}
	return nil
}

// RateBooking сохраняет оценку заказчика по завершённому бронированию.
func (s *BookingService) RateBooking(ctx context.Context, bookingID, customerID uuid.UUID, rating int) error {
	if rating < 1 || rating > 5 {
		return apperror.New(apperror.ErrCodeValidation, "оценка должна быть от 1 до 5")
	}
	err := s.bookings.SetRating(ctx, bookingID, customerID, rating)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyRated) {
			return apperror.New(apperror.ErrCodeConflict, "оценка уже выставлена либо бронирование не завершено")
		}
		return fmt.Errorf("booking service: rate %w", err)
	}
	return nil
}

// normalizeLimit приводит лимит пагинации к разумному значению.
func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}
