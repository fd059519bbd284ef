package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы фотографий выполнения работ
const (
	PhotoTypeBefore = "before"
	PhotoTypeAfter  = "after"
)

// CompletionPhoto описывает фотографию участка до или после покоса.
// Путь к файлу для машины состояний непрозрачен — учитывается только
// количество фотографий по типам.
type CompletionPhoto struct {
	ID           uuid.UUID `db:"id" json:"id"`
	BookingID    uuid.UUID `db:"booking_id" json:"booking_id"`
	ContractorID uuid.UUID `db:"contractor_id" json:"contractor_id"`
	Type         string    `db:"type" json:"type"`
	Path         string    `db:"path" json:"path"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// PhotoCounts хранит количество загруженных фотографий по типам.
type PhotoCounts struct {
	Before int `db:"before_count" json:"before"`
	After  int `db:"after_count" json:"after"`
}
