package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/lawncare-backend/internal/goroutine"
	"github.com/ignatzorin/lawncare-backend/internal/logger"
	"github.com/ignatzorin/lawncare-backend/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// Pusher доставляет событие по живым подключениям пользователя.
type Pusher interface {
	Push(userID uuid.UUID, event string, data interface{})
}

// NotificationService сохраняет уведомления и раздаёт их по WebSocket.
// Реализует Notifier для сервисов жизненного цикла: доставка fire-and-forget,
// её сбой не влияет на переход статуса.
type NotificationService struct {
	repo   NotificationRepository
	pusher Pusher
}

func NewNotificationService(repo NotificationRepository, pusher Pusher) *NotificationService {
	return &NotificationService{repo: repo, pusher: pusher}
}

// Notify сохраняет уведомление и отправляет его по WebSocket в фоне.
func (s *NotificationService) Notify(userID uuid.UUID, event string, data map[string]interface{}) {
	goroutine.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		payload, err := json.Marshal(map[string]interface{}{
			"event": event,
			"data":  data,
		})
		if err != nil {
			logger.Log.WithError(err).Error("notification service: не удалось сериализовать уведомление")
			return
		}

		n := &models.Notification{UserID: userID, Payload: payload}
		if err := s.repo.Create(ctx, n); err != nil {
			logger.Log.WithError(err).Error("notification service: не удалось сохранить уведомление")
		}

		if s.pusher != nil {
			s.pusher.Push(userID, event, data)
		}
	})
}

// ListNotifications возвращает уведомления пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, userID, normalizeLimit(limit), offset)
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkAsRead отмечает уведомление прочитанным.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

// MarkAllAsRead отмечает все уведомления пользователя прочитанными.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// DeleteNotification удаляет уведомление пользователя.
func (s *NotificationService) DeleteNotification(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.Delete(ctx, id, userID)
}
