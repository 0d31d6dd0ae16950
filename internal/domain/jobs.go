package domain

import (
	"context"
	"time"
)

// AuditJob содержит одну запись рекомендации для отложенного сохранения.
type AuditJob struct {
	ID        string    `json:"job_id,omitempty"`
	UserID    string    `json:"user_id"`
	VideoID   string    `json:"video_id"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditQueue описывает очередь записей аудита рекомендаций. Публикация
// fire-and-forget: ошибки публикации и обработки не влияют на ответ
// пользователю и не ретраятся сервисом.
type AuditQueue interface {
	Enqueue(ctx context.Context, job AuditJob) error
	Pop(ctx context.Context) (AuditJob, error)
}
