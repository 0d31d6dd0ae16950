package domain

import "time"

// Video представляет ролик — кандидата на рекомендацию.
type Video struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Category    string
	Views       int64
	Likes       int64
	Comments    int64
	IsPublic    bool
	CreatedAt   time.Time
}

// SearchQuery хранит поисковый запрос пользователя вместе с извлечёнными
// ключевыми словами. После создания не изменяется.
type SearchQuery struct {
	ID        int64
	UserID    string
	Query     string
	Keywords  []string
	CreatedAt time.Time
}

// WatchEntry описывает запись истории просмотров (upsert по паре user+video).
type WatchEntry struct {
	ID             int64
	UserID         string
	VideoID        string
	WatchedSeconds int
	Completed      bool
	UpdatedAt      time.Time
	Video          Video
}

// Like описывает лайк ролика.
type Like struct {
	ID        int64
	UserID    string
	VideoID   string
	CreatedAt time.Time
	Video     Video
}

// Candidate — ролик из пула кандидатов вместе с признаком, что его лайкнул
// хотя бы один «похожий» пользователь.
type Candidate struct {
	Video          Video
	LikedBySimilar bool
}

// ScoredVideo хранит оценённый ролик. Живёт только внутри одного запроса
// на рекомендации.
type ScoredVideo struct {
	Video Video
	Score float64
}

// RecommendationRecord — след показанной рекомендации. Запись best-effort:
// дубликаты и ошибки записи игнорируются.
type RecommendationRecord struct {
	UserID    string
	VideoID   string
	Score     float64
	CreatedAt time.Time
}

// UserSignals агрегирует сигналы пользователя для скоринга.
type UserSignals struct {
	Keywords          []string
	WatchedCategories []string
	LikedCategories   []string
	WatchedVideoIDs   []string
	LikedVideoIDs     []string
}

// Empty сообщает, что у пользователя нет ни одного сигнала и нужен
// trending-фоллбэк.
func (s UserSignals) Empty() bool {
	return len(s.Keywords) == 0 &&
		len(s.WatchedCategories) == 0 &&
		len(s.LikedCategories) == 0 &&
		len(s.WatchedVideoIDs) == 0 &&
		len(s.LikedVideoIDs) == 0
}

// CandidateQueryKind задаёт вариант выборки кандидатов.
type CandidateQueryKind string

const (
	// CandidatesBySignals — выборка по сигналам пользователя.
	CandidatesBySignals CandidateQueryKind = "by_signals"
	// CandidatesTrending — глобальный топ по просмотрам.
	CandidatesTrending CandidateQueryKind = "trending"
)

// CandidateQuery — явная спецификация выборки кандидатов. Строится один раз
// сервисом рекомендаций и интерпретируется одной функцией репозитория.
type CandidateQuery struct {
	Kind            CandidateQueryKind
	Keyword         string
	Categories      []string
	ExcludeVideoIDs []string
	SimilarUserIDs  []string
	Limit           int
}
