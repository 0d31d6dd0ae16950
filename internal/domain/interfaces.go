package domain

import (
	"context"
	"time"
)

// KeywordExtractor превращает свободный текст в набор ключевых слов.
type KeywordExtractor interface {
	Extract(raw string) []string
}

// Ranker оценивает кандидатов по сигналам пользователя и возвращает их
// отсортированными по убыванию и обрезанными до limit. Порядок выборки
// сохраняется при равных оценках.
type Ranker interface {
	Rank(signals UserSignals, candidates []Candidate, limit int) []ScoredVideo
}

// SearchRepo управляет поисковыми запросами.
type SearchRepo interface {
	SaveSearchQuery(ctx context.Context, q SearchQuery) (SearchQuery, error)
	ListRecentSearches(ctx context.Context, userID string, limit int) ([]SearchQuery, error)
}

// HistoryRepo управляет историей просмотров.
type HistoryRepo interface {
	UpsertWatch(ctx context.Context, entry WatchEntry) (WatchEntry, error)
	ListRecentWatches(ctx context.Context, userID string, limit int) ([]WatchEntry, error)
}

// LikeRepo управляет лайками и коллаборативными сигналами.
type LikeRepo interface {
	AddLike(ctx context.Context, userID, videoID string) error
	RemoveLike(ctx context.Context, userID, videoID string) error
	ListRecentLikes(ctx context.Context, userID string, limit int) ([]Like, error)
	ListLikedVideoIDs(ctx context.Context, userID string) ([]string, error)
	// ListSimilarUsers возвращает пользователей, лайкнувших хотя бы один
	// из переданных роликов, кроме самого userID.
	ListSimilarUsers(ctx context.Context, userID string, likedVideoIDs []string, limit int) ([]string, error)
}

// VideoRepo отвечает за выборку роликов.
type VideoRepo interface {
	// ListCandidates интерпретирует спецификацию выборки кандидатов.
	ListCandidates(ctx context.Context, q CandidateQuery) ([]Candidate, error)
	SearchVideos(ctx context.Context, query string, limit int) ([]Video, error)
}

// RecommendationRepo сохраняет след показанных рекомендаций.
// Запись best-effort: конфликт по уникальному ключу не считается ошибкой.
type RecommendationRepo interface {
	SaveRecommendation(ctx context.Context, rec RecommendationRecord) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
