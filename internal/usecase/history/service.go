package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"video-recs/internal/domain"
)

// Ошибки валидации входных данных.
var (
	ErrEmptyUserID  = errors.New("не задан пользователь")
	ErrEmptyVideoID = errors.New("не задан ролик")
)

// Service управляет историей просмотров и лайками — поведенческими
// сигналами, которые затем читает конвейер рекомендаций.
type Service struct {
	history domain.HistoryRepo
	likes   domain.LikeRepo
	log     zerolog.Logger
}

// NewService создаёт сервис истории.
func NewService(history domain.HistoryRepo, likes domain.LikeRepo, logger zerolog.Logger) *Service {
	return &Service{history: history, likes: likes, log: logger}
}

// RecordWatch фиксирует просмотр ролика. Повторный просмотр той же пары
// user+video обновляет существующую запись, а не плодит новую.
func (s *Service) RecordWatch(ctx context.Context, userID, videoID string, watchedSeconds int, completed bool) (domain.WatchEntry, error) {
	if userID == "" {
		return domain.WatchEntry{}, ErrEmptyUserID
	}
	if videoID == "" {
		return domain.WatchEntry{}, ErrEmptyVideoID
	}
	if watchedSeconds < 0 {
		watchedSeconds = 0
	}

	entry := domain.WatchEntry{
		UserID:         userID,
		VideoID:        videoID,
		WatchedSeconds: watchedSeconds,
		Completed:      completed,
		UpdatedAt:      time.Now().UTC(),
	}
	saved, err := s.history.UpsertWatch(ctx, entry)
	if err != nil {
		return domain.WatchEntry{}, fmt.Errorf("запись просмотра: %w", err)
	}
	return saved, nil
}

// Like ставит лайк ролику. Повторный лайк той же пары — no-op.
func (s *Service) Like(ctx context.Context, userID, videoID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if videoID == "" {
		return ErrEmptyVideoID
	}
	if err := s.likes.AddLike(ctx, userID, videoID); err != nil {
		return fmt.Errorf("лайк: %w", err)
	}
	return nil
}

// Unlike снимает лайк. Отсутствующий лайк не считается ошибкой.
func (s *Service) Unlike(ctx context.Context, userID, videoID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if videoID == "" {
		return ErrEmptyVideoID
	}
	if err := s.likes.RemoveLike(ctx, userID, videoID); err != nil {
		return fmt.Errorf("снятие лайка: %w", err)
	}
	return nil
}
