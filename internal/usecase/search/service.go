package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"video-recs/internal/domain"
)

// ErrEmptyQuery возвращается на пустую или пробельную строку поиска.
var ErrEmptyQuery = errors.New("пустой поисковый запрос")

// Service реализует поиск роликов и запись поисковых запросов —
// источника ключевых слов для рекомендаций.
type Service struct {
	searches  domain.SearchRepo
	videos    domain.VideoRepo
	extractor domain.KeywordExtractor
	log       zerolog.Logger
	limit     int
}

// NewService создаёт сервис поиска. limit ограничивает размер выдачи.
func NewService(searches domain.SearchRepo, videos domain.VideoRepo, extractor domain.KeywordExtractor, logger zerolog.Logger, limit int) *Service {
	return &Service{searches: searches, videos: videos, extractor: extractor, log: logger, limit: limit}
}

// Search ищет публичные ролики по подстроке запроса. Для
// аутентифицированного пользователя (userID не пуст) запрос сохраняется
// вместе с извлечёнными ключевыми словами; ошибка записи не ломает выдачу.
func (s *Service) Search(ctx context.Context, userID, raw string) ([]domain.Video, error) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if userID != "" {
		sq := domain.SearchQuery{
			UserID:    userID,
			Query:     query,
			Keywords:  s.extractor.Extract(query),
			CreatedAt: time.Now().UTC(),
		}
		if _, err := s.searches.SaveSearchQuery(ctx, sq); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("search: запрос не сохранён")
		}
	}

	videos, err := s.videos.SearchVideos(ctx, query, s.limit)
	if err != nil {
		return nil, fmt.Errorf("поиск роликов: %w", err)
	}
	return videos, nil
}
