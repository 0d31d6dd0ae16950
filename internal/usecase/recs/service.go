package recs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"video-recs/internal/domain"
	"video-recs/internal/infra/metrics"
)

const trendingCacheKey = "recs:trending"

// Config задаёт лимиты конвейера рекомендаций.
type Config struct {
	MaxItems      int
	CandidatePool int
	SearchLimit   int
	WatchLimit    int
	LikesLimit    int
	SimilarUsers  int
	TrendingLimit int
	TrendingTTL   time.Duration
	AuditThrottle time.Duration
}

// DefaultConfig возвращает лимиты по умолчанию.
func DefaultConfig() Config {
	return Config{
		MaxItems:      10,
		CandidatePool: 50,
		SearchLimit:   20,
		WatchLimit:    50,
		LikesLimit:    20,
		SimilarUsers:  10,
		TrendingLimit: 10,
		TrendingTTL:   time.Minute,
	}
}

// Service реализует конвейер рекомендаций: агрегация сигналов пользователя,
// выборка кандидатов, скоринг и best-effort аудит показанного.
type Service struct {
	searches  domain.SearchRepo
	history   domain.HistoryRepo
	likes     domain.LikeRepo
	videos    domain.VideoRepo
	records   domain.RecommendationRepo
	extractor domain.KeywordExtractor
	ranker    domain.Ranker
	queue     domain.AuditQueue // nil: запись аудита напрямую в БД
	cache     domain.Cache      // nil: без кэша trending и троттлинга
	log       zerolog.Logger
	cfg       Config

	audit sync.WaitGroup
}

// NewService создаёт сервис рекомендаций.
func NewService(searches domain.SearchRepo, history domain.HistoryRepo, likes domain.LikeRepo, videos domain.VideoRepo, records domain.RecommendationRepo, extractor domain.KeywordExtractor, ranker domain.Ranker, queue domain.AuditQueue, cache domain.Cache, logger zerolog.Logger, cfg Config) *Service {
	return &Service{
		searches:  searches,
		history:   history,
		likes:     likes,
		videos:    videos,
		records:   records,
		extractor: extractor,
		ranker:    ranker,
		queue:     queue,
		cache:     cache,
		log:       logger,
		cfg:       cfg,
	}
}

// Recommend строит список рекомендаций для пользователя. Пустой userID —
// анонимный вызов: возвращается trending-фоллбэк без скоринга и аудита.
// Тот же фоллбэк получает аутентифицированный пользователь без сигналов.
func (s *Service) Recommend(ctx context.Context, userID string) ([]domain.ScoredVideo, error) {
	metrics.IncRecsRequest()
	start := time.Now()

	if userID == "" {
		metrics.IncRecsFallback()
		return s.trending(ctx)
	}

	signals, err := s.aggregateSignals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("агрегация сигналов: %w", err)
	}
	if signals.Empty() {
		metrics.IncRecsFallback()
		return s.trending(ctx)
	}

	similar, err := s.likes.ListSimilarUsers(ctx, userID, signals.LikedVideoIDs, s.cfg.SimilarUsers)
	if err != nil {
		return nil, fmt.Errorf("похожие пользователи: %w", err)
	}

	query := domain.CandidateQuery{
		Kind:            domain.CandidatesBySignals,
		Keyword:         representativeKeyword(signals.Keywords),
		Categories:      signals.WatchedCategories,
		ExcludeVideoIDs: signals.WatchedVideoIDs,
		SimilarUserIDs:  similar,
		Limit:           s.cfg.CandidatePool,
	}
	candidates, err := s.videos.ListCandidates(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("выборка кандидатов: %w", err)
	}

	ranked := s.ranker.Rank(signals, candidates, s.cfg.MaxItems)
	metrics.ObserveRecsBuild(start, len(candidates))
	s.persist(userID, ranked)
	return ranked, nil
}

// aggregateSignals собирает сигналы пользователя: ключевые слова из
// последних поисков, категории просмотренного и лайкнутого, множество
// исключения. Пустая история — валидный частый случай, не ошибка.
func (s *Service) aggregateSignals(ctx context.Context, userID string) (domain.UserSignals, error) {
	var signals domain.UserSignals

	queries, err := s.searches.ListRecentSearches(ctx, userID, s.cfg.SearchLimit)
	if err != nil {
		return signals, fmt.Errorf("поисковые запросы: %w", err)
	}
	seenKeywords := make(map[string]struct{})
	for _, q := range queries {
		kws := q.Keywords
		if len(kws) == 0 {
			// Старые записи без сохранённого набора: переизвлекаем из текста.
			kws = s.extractor.Extract(q.Query)
		}
		for _, kw := range kws {
			if _, ok := seenKeywords[kw]; ok {
				continue
			}
			seenKeywords[kw] = struct{}{}
			signals.Keywords = append(signals.Keywords, kw)
		}
	}

	watches, err := s.history.ListRecentWatches(ctx, userID, s.cfg.WatchLimit)
	if err != nil {
		return signals, fmt.Errorf("история просмотров: %w", err)
	}
	seenCategories := make(map[string]struct{})
	seenVideos := make(map[string]struct{})
	for _, w := range watches {
		if _, ok := seenVideos[w.VideoID]; !ok {
			seenVideos[w.VideoID] = struct{}{}
			signals.WatchedVideoIDs = append(signals.WatchedVideoIDs, w.VideoID)
		}
		if w.Video.Category == "" {
			continue
		}
		if _, ok := seenCategories[w.Video.Category]; ok {
			continue
		}
		seenCategories[w.Video.Category] = struct{}{}
		signals.WatchedCategories = append(signals.WatchedCategories, w.Video.Category)
	}

	likes, err := s.likes.ListRecentLikes(ctx, userID, s.cfg.LikesLimit)
	if err != nil {
		return signals, fmt.Errorf("лайки: %w", err)
	}
	seenLiked := make(map[string]struct{})
	for _, l := range likes {
		if l.Video.Category != "" {
			if _, ok := seenLiked[l.Video.Category]; !ok {
				seenLiked[l.Video.Category] = struct{}{}
				signals.LikedCategories = append(signals.LikedCategories, l.Video.Category)
			}
		}
	}

	likedIDs, err := s.likes.ListLikedVideoIDs(ctx, userID)
	if err != nil {
		return signals, fmt.Errorf("лайкнутые ролики: %w", err)
	}
	signals.LikedVideoIDs = likedIDs

	return signals, nil
}

// trending возвращает глобальный топ по просмотрам без скоринга и без
// записи аудита. Список кэшируется: для анонимов он одинаковый.
func (s *Service) trending(ctx context.Context) ([]domain.ScoredVideo, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(trendingCacheKey); err == nil && len(data) > 0 {
			var cached []domain.ScoredVideo
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	candidates, err := s.videos.ListCandidates(ctx, domain.CandidateQuery{
		Kind:  domain.CandidatesTrending,
		Limit: s.cfg.TrendingLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	out := make([]domain.ScoredVideo, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.ScoredVideo{Video: c.Video})
	}

	if s.cache != nil && len(out) > 0 {
		if data, err := json.Marshal(out); err == nil {
			_ = s.cache.Set(trendingCacheKey, data, s.cfg.TrendingTTL)
		}
	}
	return out, nil
}

// persist запускает best-effort запись следа рекомендаций: не блокирует
// ответ, не ретраится, ошибки проглатываются. При настроенном троттлинге
// повторные показы одному пользователю внутри окна не пишутся.
func (s *Service) persist(userID string, ranked []domain.ScoredVideo) {
	if len(ranked) == 0 {
		return
	}
	if s.cache != nil && s.cfg.AuditThrottle > 0 {
		err := s.cache.Once("recs:audit:"+userID, s.cfg.AuditThrottle, func() error {
			s.launchAudit(userID, ranked)
			return nil
		})
		if err != nil {
			// Недоступный кэш не повод терять аудит.
			s.launchAudit(userID, ranked)
		}
		return
	}
	s.launchAudit(userID, ranked)
}

func (s *Service) launchAudit(userID string, ranked []domain.ScoredVideo) {
	now := time.Now().UTC()
	s.audit.Add(1)
	go func() {
		defer s.audit.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, item := range ranked {
			rec := domain.RecommendationRecord{
				UserID:    userID,
				VideoID:   item.Video.ID,
				Score:     item.Score,
				CreatedAt: now,
			}
			if err := s.saveRecord(ctx, rec); err != nil {
				metrics.IncAuditWriteError()
				s.log.Debug().Err(err).Str("video_id", item.Video.ID).Msg("recs: запись аудита не сохранена")
			}
		}
	}()
}

func (s *Service) saveRecord(ctx context.Context, rec domain.RecommendationRecord) error {
	if s.queue != nil {
		return s.queue.Enqueue(ctx, domain.AuditJob{
			ID:        uuid.NewString(),
			UserID:    rec.UserID,
			VideoID:   rec.VideoID,
			Score:     rec.Score,
			CreatedAt: rec.CreatedAt,
		})
	}
	return s.records.SaveRecommendation(ctx, rec)
}

// WaitAudit дожидается фоновых записей аудита. Используется при остановке
// и в тестах.
func (s *Service) WaitAudit() {
	s.audit.Wait()
}

func representativeKeyword(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	return keywords[0]
}
