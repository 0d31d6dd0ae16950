package history

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"video-recs/internal/domain"
)

type stubHistoryRepo struct {
	entries []domain.WatchEntry
	err     error
}

func (s *stubHistoryRepo) UpsertWatch(ctx context.Context, entry domain.WatchEntry) (domain.WatchEntry, error) {
	if s.err != nil {
		return domain.WatchEntry{}, s.err
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *stubHistoryRepo) ListRecentWatches(ctx context.Context, userID string, limit int) ([]domain.WatchEntry, error) {
	return s.entries, nil
}

type stubLikeRepo struct {
	added   []string
	removed []string
	err     error
}

func (s *stubLikeRepo) AddLike(ctx context.Context, userID, videoID string) error {
	if s.err != nil {
		return s.err
	}
	s.added = append(s.added, videoID)
	return nil
}

func (s *stubLikeRepo) RemoveLike(ctx context.Context, userID, videoID string) error {
	if s.err != nil {
		return s.err
	}
	s.removed = append(s.removed, videoID)
	return nil
}

func (s *stubLikeRepo) ListRecentLikes(ctx context.Context, userID string, limit int) ([]domain.Like, error) {
	return nil, nil
}

func (s *stubLikeRepo) ListLikedVideoIDs(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (s *stubLikeRepo) ListSimilarUsers(ctx context.Context, userID string, likedVideoIDs []string, limit int) ([]string, error) {
	return nil, nil
}

func TestRecordWatch(t *testing.T) {
	repo := &stubHistoryRepo{}
	svc := NewService(repo, &stubLikeRepo{}, zerolog.Nop())

	saved, err := svc.RecordWatch(context.Background(), "user-1", "video-1", 42, true)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if saved.UserID != "user-1" || saved.VideoID != "video-1" {
		t.Fatalf("неверная запись: %+v", saved)
	}
	if saved.WatchedSeconds != 42 || !saved.Completed {
		t.Fatalf("прогресс просмотра потерян: %+v", saved)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("ожидали одну запись, получили %d", len(repo.entries))
	}
}

func TestRecordWatchNegativeSecondsClamped(t *testing.T) {
	repo := &stubHistoryRepo{}
	svc := NewService(repo, &stubLikeRepo{}, zerolog.Nop())

	saved, err := svc.RecordWatch(context.Background(), "user-1", "video-1", -5, false)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if saved.WatchedSeconds != 0 {
		t.Fatalf("отрицательные секунды должны обнуляться, получили %d", saved.WatchedSeconds)
	}
}

func TestRecordWatchValidation(t *testing.T) {
	svc := NewService(&stubHistoryRepo{}, &stubLikeRepo{}, zerolog.Nop())

	if _, err := svc.RecordWatch(context.Background(), "", "video-1", 0, false); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("ожидали ErrEmptyUserID, получили %v", err)
	}
	if _, err := svc.RecordWatch(context.Background(), "user-1", "", 0, false); !errors.Is(err, ErrEmptyVideoID) {
		t.Fatalf("ожидали ErrEmptyVideoID, получили %v", err)
	}
}

func TestLikeUnlike(t *testing.T) {
	likes := &stubLikeRepo{}
	svc := NewService(&stubHistoryRepo{}, likes, zerolog.Nop())

	if err := svc.Like(context.Background(), "user-1", "video-1"); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if err := svc.Unlike(context.Background(), "user-1", "video-1"); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(likes.added) != 1 || len(likes.removed) != 1 {
		t.Fatalf("ожидали по одному вызову, получили %d/%d", len(likes.added), len(likes.removed))
	}
}

func TestLikeRepoErrorWrapped(t *testing.T) {
	likes := &stubLikeRepo{err: errors.New("база недоступна")}
	svc := NewService(&stubHistoryRepo{}, likes, zerolog.Nop())

	if err := svc.Like(context.Background(), "user-1", "video-1"); err == nil {
		t.Fatal("ожидали ошибку репозитория")
	}
}
