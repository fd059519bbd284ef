package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/lawncare-backend/internal/models"
)

type mockReleaser struct {
	mock.Mock
}

func (m *mockReleaser) AutoRelease(ctx context.Context, bookingID uuid.UUID) error {
	return m.Called(ctx, bookingID).Error(0)
}

func TestSchedulerService_Tick_ReleasesClaimed(t *testing.T) {
	timers := new(mockTimerRepo)
	releaser := new(mockReleaser)
	svc := NewSchedulerService(timers, releaser, time.Second)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()

	timers.On("ClaimDue", ctx, models.TimerKindAutoRelease, claimBatchSize).
		Return([]uuid.UUID{first, second}, nil)
	releaser.On("AutoRelease", ctx, first).Return(nil)
	// Ошибка одного бронирования не прерывает остальные.
	releaser.On("AutoRelease", ctx, second).Return(errors.New("db down"))
	timers.On("Unclaim", ctx, second, models.TimerKindAutoRelease).Return(nil)

	svc.Tick(ctx)

	releaser.AssertExpectations(t)
	// Успешно исполненный таймер во взвод не возвращается.
	timers.AssertNotCalled(t, "Unclaim", ctx, first, models.TimerKindAutoRelease)
}

// Сбой освобождения не теряет таймер: он возвращается во взвод и будет
// захвачен следующим проходом.
func TestSchedulerService_Tick_RequeuesFailedRelease(t *testing.T) {
	timers := new(mockTimerRepo)
	releaser := new(mockReleaser)
	svc := NewSchedulerService(timers, releaser, time.Second)
	ctx := context.Background()

	bookingID := uuid.New()

	timers.On("ClaimDue", ctx, models.TimerKindAutoRelease, claimBatchSize).
		Return([]uuid.UUID{bookingID}, nil)
	releaser.On("AutoRelease", ctx, bookingID).Return(errors.New("connection reset"))
	timers.On("Unclaim", ctx, bookingID, models.TimerKindAutoRelease).Return(nil)

	svc.Tick(ctx)

	timers.AssertExpectations(t)
}

func TestSchedulerService_Tick_ClaimFailure(t *testing.T) {
	timers := new(mockTimerRepo)
	releaser := new(mockReleaser)
	svc := NewSchedulerService(timers, releaser, time.Second)
	ctx := context.Background()

	timers.On("ClaimDue", ctx, models.TimerKindAutoRelease, claimBatchSize).
		Return([]uuid.UUID{}, errors.New("db down"))

	svc.Tick(ctx)

	releaser.AssertNotCalled(t, "AutoRelease", mock.Anything, mock.Anything)
}

func TestSchedulerService_Run_StopsOnContextCancel(t *testing.T) {
	timers := new(mockTimerRepo)
	releaser := new(mockReleaser)
	svc := NewSchedulerService(timers, releaser, 10*time.Millisecond)

	timers.On("ClaimDue", mock.Anything, models.TimerKindAutoRelease, claimBatchSize).
		Return([]uuid.UUID{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("планировщик не остановился после отмены контекста")
	}
}
