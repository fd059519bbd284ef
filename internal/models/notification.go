package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notification представляет уведомление пользователя о событии жизненного
// цикла бронирования. Доставка — fire-and-forget: сбой отправки не влияет
// на переход статуса.
type Notification struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	IsRead    bool            `db:"is_read" json:"is_read"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
