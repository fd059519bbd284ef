package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/ignatzorin/lawncare-backend/internal/models"
	"github.com/ignatzorin/lawncare-backend/internal/pkg/apperror"
	"github.com/ignatzorin/lawncare-backend/internal/repository"
	"github.com/ignatzorin/lawncare-backend/internal/storage"
)

// PhotoService принимает фотографии выполнения работ. Тип файла проверяется
// по магическим байтам, а не по расширению или Content-Type клиента.
type PhotoService struct {
	photos   PhotoRepository
	bookings BookingRepository
	store    *storage.PhotoStorage
}

func NewPhotoService(photos PhotoRepository, bookings BookingRepository, store *storage.PhotoStorage) *PhotoService {
	return &PhotoService{photos: photos, bookings: bookings, store: store}
}

// UploadPhoto сохраняет фотографию до/после по подтверждённому бронированию.
// Загружать может только назначенный подрядчик.
func (s *PhotoService) UploadPhoto(ctx context.Context, bookingID, contractorID uuid.UUID, photoType, originalName string, r io.Reader) (*models.CompletionPhoto, error) {
	if photoType != models.PhotoTypeBefore && photoType != models.PhotoTypeAfter {
		return nil, apperror.New(apperror.ErrCodeValidation, "тип фотографии должен быть before или after")
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("photo service: upload %w", err)
	}
	if b.ContractorID == nil || *b.ContractorID != contractorID {
		return nil, apperror.ErrForbidden
	}
	if b.Status != models.BookingStatusConfirmed {
		return nil, apperror.ErrInvalidTransition
	}

	buffered := bufio.NewReader(r)
	head, err := buffered.Peek(261)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("photo service: read header %w", err)
	}
	if !isAllowedImage(head) {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл не является изображением поддерживаемого формата")
	}

	path, size, err := s.store.Save(ctx, bookingID, photoType, originalName, buffered)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "не удалось сохранить файл")
	}

	photo := &models.CompletionPhoto{
		BookingID:    bookingID,
		ContractorID: contractorID,
		Type:         photoType,
		Path:         path,
		SizeBytes:    size,
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		_ = s.store.Delete(ctx, path)
		return nil, fmt.Errorf("photo service: upload %w", err)
	}
	return photo, nil
}

// ListPhotos возвращает фотографии бронирования с проверкой видимости.
func (s *PhotoService) ListPhotos(ctx context.Context, bookingID, actorID uuid.UUID, actorRole string) ([]models.CompletionPhoto, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperror.ErrBookingNotFound
		}
		return nil, fmt.Errorf("photo service: list %w", err)
	}
	if actorRole != models.RoleAdmin && b.CustomerID != actorID &&
		(b.ContractorID == nil || *b.ContractorID != actorID) {
		return nil, apperror.ErrForbidden
	}
	return s.photos.ListByBooking(ctx, bookingID)
}

// isAllowedImage проверяет магические байты: допускаются JPEG, PNG и WebP.
func isAllowedImage(head []byte) bool {
	kind, err := filetype.Match(head)
	if err != nil {
		return false
	}
	switch kind {
	case matchers.TypeJpeg, matchers.TypePng, matchers.TypeWebp:
		return true
	}
	return false
}
