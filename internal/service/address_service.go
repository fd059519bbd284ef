package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/lawncare-backend/internal/logger"
	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/pricing"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
	"github.com/ignatzorin/lawncare-backend/internal/validation"
)

// AddressService управляет адресами и их проверкой. Проверка адреса — точка
// сверки цены: бронирования, ждавшие проверки, пересчитываются по
// авторитетной площади.
type AddressService struct {
	addrs    AddressRepository
	bookings BookingRepository
	notifier Notifier

	// Допуск расхождения цены в процентах: в пределах допуска действует
	// исходная цена, сверх — требуется согласие заказчика.
	priceTolerancePct float64
}

func NewAddressService(addrs AddressRepository, bookings BookingRepository, notifier Notifier, priceTolerancePct float64) *AddressService {
	return &AddressService{
		addrs:             addrs,
		bookings:          bookings,
		notifier:          notifier,
		priceTolerancePct: priceTolerancePct,
	}
}

// CreateAddressInput содержит параметры нового адреса.
type CreateAddressInput struct {
	Line                 string
	City                 string
	ServiceArea          string
	DeclaredSquareMeters float64
}

// CreateAddress сохраняет адрес заказчика в ожидании проверки.
func (s *AddressService) CreateAddress(ctx context.Context, customerID uuid.UUID, in CreateAddressInput) (*models.Address, error) {
	if err := validation.ValidateNonEmpty("адрес", in.Line); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("адрес", in.Line, 1, validation.MaxAddressLineLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("город", in.City); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateNonEmpty("зона обслуживания", in.ServiceArea); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateSquareMeters(in.DeclaredSquareMeters); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	a := &models.Address{
		CustomerID:           customerID,
		Line:                 in.Line,
		City:                 in.City,
		ServiceArea:          in.ServiceArea,
		DeclaredSquareMeters: in.DeclaredSquareMeters,
	}
	if err := s.addrs.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("address service: create %w", err)
	}
	return a, nil
}

// ListAddresses возвращает адреса заказчика.
func (s *AddressService) ListAddresses(ctx context.Context, customerID uuid.UUID) ([]models.Address, error) {
	return s.addrs.ListByCustomer(ctx, customerID)
}

// ListPendingAddresses возвращает адреса в очереди на проверку.
func (s *AddressService) ListPendingAddresses(ctx context.Context, limit, offset int) ([]models.Address, error) {
	return s.addrs.ListPending(ctx, normalizeLimit(limit), offset)
}

// VerifyAddress записывает авторитетную площадь и сверяет цену ждавших
// бронирований. В пределах допуска действует исходная цена; сверх допуска
// бронирование ждёт согласия заказчика на новую.
func (s *AddressService) VerifyAddress(ctx context.Context, addressID uuid.UUID, squareMeters float64) error {
	if err := validation.ValidateSquareMeters(squareMeters); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if err := s.addrs.Verify(ctx, addressID, squareMeters); err != nil {
		switch {
		case errors.Is(err, repository.ErrAddressNotFound):
			return apperror.ErrAddressNotFound
		case errors.Is(err, repository.ErrStatusConflict):
			return apperror.New(apperror.ErrCodeConflict, "адрес уже проверен")
		}
		return fmt.Errorf("address service: verify %w", err)
	}

	return s.reconcileBookings(ctx, addressID, squareMeters)
}

// reconcileBookings пересчитывает цену бронирований, ждавших проверки адреса.
func (s *AddressService) reconcileBookings(ctx context.Context, addressID uuid.UUID, squareMeters float64) error {
	waiting, err := s.bookings.ListPendingVerificationByAddress(ctx, addressID)
	if err != nil {
		return fmt.Errorf("address service: reconcile %w", err)
	}

	for i := range waiting {
		b := &waiting[i]

		quote, err := pricing.Quote(pricing.QuoteInput{
			SquareMeters:     squareMeters,
			Date:             b.ScheduledDate,
			GrassLength:      b.GrassLength,
			ClippingsRemoval: b.ClippingsRemoval,
		})
		if err != nil {
			return fmt.Errorf("address service: reconcile quote %w", err)
		}

		tolerance := b.OriginalPrice * s.priceTolerancePct / 100
		if math.Abs(quote.Total-b.OriginalPrice) <= tolerance {
			// Расхождение в допуске: исходная цена остаётся в силе.
			err = s.bookings.UpdateStatusIf(ctx, b.ID,
				models.BookingStatusPendingAddressVerification, models.BookingStatusPending)
			if err != nil && !errors.Is(err, repository.ErrStatusConflict) {
				return fmt.Errorf("address service: reconcile %w", err)
			}
			continue
		}

		breakdown, err := json.Marshal(quote)
		if err != nil {
			return fmt.Errorf("address service: reconcile marshal %w", err)
		}
		err = s.bookings.Reprice(ctx, b.ID,
			models.BookingStatusPendingAddressVerification, models.BookingStatusPriceChangePending,
			quote.Total, breakdown)
		if err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				// Заказчик успел отменить — пропускаем.
				continue
			}
			return fmt.Errorf("address service: reconcile %w", err)
		}

		s.notifier.Notify(b.CustomerID, EventPriceChanged, map[string]interface{}{
			"booking_id": b.ID,
			"old_price":  b.OriginalPrice,
			"new_price":  quote.Total,
		})
	}
	return nil
}

// RejectAddress помечает адрес не прошедшим проверку и отменяет ждавшие
// бронирования.
func (s *AddressService) RejectAddress(ctx context.Context, addressID uuid.UUID) error {
	if err := s.addrs.Reject(ctx, addressID); err != nil {
		switch {
		case errors.Is(err, repository.ErrAddressNotFound):
			return apperror.ErrAddressNotFound
		case errors.Is(err, repository.ErrStatusConflict):
			return apperror.New(apperror.ErrCodeConflict, "адрес уже проверен")
		}
		return fmt.Errorf("address service: reject %w", err)
	}

	waiting, err := s.bookings.ListPendingVerificationByAddress(ctx, addressID)
	if err != nil {
		return fmt.Errorf("address service: reject %w", err)
	}
	for i := range waiting {
		b := &waiting[i]
		err := s.bookings.UpdateStatusIf(ctx, b.ID,
			models.BookingStatusPendingAddressVerification, models.BookingStatusCancelled)
		if err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				continue
			}
			return fmt.Errorf("address service: reject %w", err)
		}
		s.notifier.Notify(b.CustomerID, EventAddressRejected, map[string]interface{}{
			"booking_id": b.ID,
			"address_id": addressID,
		})
	}

	logger.Log.WithFields(logrus.Fields{
		"address_id": addressID,
		"cancelled":  len(waiting),
	}).Info("адрес отклонён, ждавшие бронирования отменены")
	return nil
}
