package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/lawncare-backend/internal/logger"
	"github.com/ignatzorin/lawncare-backend/internal/models"
)

// claimBatchSize — сколько созревших таймеров забирает воркер за проход.
const claimBatchSize = 50

// AutoReleaser выполняет действие сработавшего таймера.
type AutoReleaser interface {
	AutoRelease(ctx context.Context, bookingID uuid.UUID) error
}

// SchedulerService опрашивает отложенные действия и исполняет созревшие.
// Захват таймера — условное обновление, поэтому несколько экземпляров
// сервиса не исполнят один таймер дважды.
type SchedulerService struct {
	timers   TimerRepository
	releaser AutoReleaser
	interval time.Duration
}

func NewSchedulerService(timers TimerRepository, releaser AutoReleaser, interval time.Duration) *SchedulerService {
	return &SchedulerService{
		timers:   timers,
		releaser: releaser,
		interval: interval,
	}
}

// Run крутит цикл опроса до отмены контекста.
func (s *SchedulerService) Run(ctx context.Context) {
	logger.Log.WithField("interval", s.interval.String()).Info("планировщик запущен")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("планировщик остановлен")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick выполняет один проход: захватывает созревшие таймеры и освобождает
// выплаты. Ошибка одного бронирования не прерывает остальные.
func (s *SchedulerService) Tick(ctx context.Context) {
	bookingIDs, err := s.timers.ClaimDue(ctx, models.TimerKindAutoRelease, claimBatchSize)
	if err != nil {
		logger.Log.WithError(err).Error("планировщик: не удалось захватить таймеры")
		return
	}

	for _, bookingID := range bookingIDs {
		if err := s.releaser.AutoRelease(ctx, bookingID); err != nil {
			logger.Log.WithFields(logrus.Fields{
				"booking_id": bookingID,
			}).WithError(err).Error("планировщик: автоосвобождение выплаты не удалось")

			// Возвращаем таймер во взвод, чтобы следующий проход повторил
			// попытку. Конфликт статуса сюда не попадает: его AutoRelease
			// считает штатным исходом и возвращает nil.
			if err := s.timers.Unclaim(ctx, bookingID, models.TimerKindAutoRelease); err != nil {
				logger.Log.WithFields(logrus.Fields{
					"booking_id": bookingID,
				}).WithError(err).Error("планировщик: не удалось вернуть таймер во взвод")
			}
		}
	}
}
