package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"video-recs/internal/adapters/keywords"
	"video-recs/internal/adapters/ranker"
	"video-recs/internal/adapters/repo"
	"video-recs/internal/domain"
	"video-recs/internal/infra/cache"
	"video-recs/internal/infra/config"
	"video-recs/internal/infra/db"
	httpinfra "video-recs/internal/infra/http"
	"video-recs/internal/infra/metrics"
	"video-recs/internal/infra/queue"
	historyusecase "video-recs/internal/usecase/history"
	recsusecase "video-recs/internal/usecase/recs"
	searchusecase "video-recs/internal/usecase/search"
)

func main() {
	cfg := config.Load()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	extractor := keywords.NewExtractor()
	scorer := ranker.NewWeighted(ranker.Config{
		KeywordWeight:    cfg.Scoring.KeywordWeight,
		CategoryWeight:   cfg.Scoring.CategoryWeight,
		EngagementWeight: cfg.Scoring.EngagementWeight,
		TrendingWeight:   cfg.Scoring.TrendingWeight,
		EngagementScale:  cfg.Scoring.EngagementScale,
		TrendingCap:      cfg.Scoring.TrendingCap,
		CollabBonus:      cfg.Scoring.CollabBonus,
	})

	var redisClient *redis.Client
	var recsCache domain.Cache
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		recsCache = cache.NewRedis(redisClient)
	}

	var auditQueue domain.AuditQueue
	switch {
	case cfg.Queues.AMQPURL != "":
		amqpQueue, err := queue.NewAMQPAuditQueue(cfg.Queues.AMQPURL, cfg.Queues.Audit)
		if err != nil {
			log.Fatal().Err(err).Msg("api: нет подключения к AMQP")
		}
		defer amqpQueue.Close()
		auditQueue = amqpQueue
	case redisClient != nil:
		auditQueue = queue.NewRedisAuditQueue(redisClient, cfg.Queues.Audit)
	}

	recsService := recsusecase.NewService(
		repoAdapter, repoAdapter, repoAdapter, repoAdapter, repoAdapter,
		extractor, scorer, auditQueue, recsCache,
		log.With().Str("component", "recs").Logger(),
		recsusecase.Config{
			MaxItems:      cfg.Recs.MaxItems,
			CandidatePool: cfg.Recs.CandidatePool,
			SearchLimit:   cfg.Recs.SearchLimit,
			WatchLimit:    cfg.Recs.WatchLimit,
			LikesLimit:    cfg.Recs.LikesLimit,
			SimilarUsers:  cfg.Recs.SimilarUsers,
			TrendingLimit: cfg.Recs.TrendingLimit,
			TrendingTTL:   cfg.Recs.TrendingTTL,
			AuditThrottle: cfg.Recs.AuditThrottle,
		},
	)
	searchService := searchusecase.NewService(repoAdapter, repoAdapter, extractor,
		log.With().Str("component", "search").Logger(), cfg.Search.ResultsLimit)
	historyService := historyusecase.NewService(repoAdapter, repoAdapter,
		log.With().Str("component", "history").Logger())

	r := httpinfra.NewRouter()

	r.Group(func(public chi.Router) {
		public.Use(httpinfra.OptionalAuth(cfg.Auth.JWTSecret))

		public.Get("/api/v1/recommendations", func(w http.ResponseWriter, r *http.Request) {
			ranked, err := recsService.Recommend(r.Context(), httpinfra.UserID(r.Context()))
			if err != nil {
				log.Error().Err(err).Msg("recs: построение рекомендаций")
				httpinfra.WriteError(w, http.StatusInternalServerError, "failed to build recommendations")
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, recommendationsResponse{Items: toRecommendationItems(ranked)})
		})

		public.Get("/api/v1/search", func(w http.ResponseWriter, r *http.Request) {
			videos, err := searchService.Search(r.Context(), httpinfra.UserID(r.Context()), r.URL.Query().Get("q"))
			if err != nil {
				if errors.Is(err, searchusecase.ErrEmptyQuery) {
					httpinfra.WriteError(w, http.StatusBadRequest, "q is required")
					return
				}
				log.Error().Err(err).Msg("search: поиск роликов")
				httpinfra.WriteError(w, http.StatusInternalServerError, "search failed")
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, searchResponse{Items: toVideoItems(videos)})
		})
	})

	r.Group(func(protected chi.Router) {
		protected.Use(httpinfra.RequireAuth(cfg.Auth.JWTSecret))

		protected.Post("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var req recordWatchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpinfra.WriteError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			entry, err := historyService.RecordWatch(r.Context(), httpinfra.UserID(r.Context()),
				req.VideoID, req.WatchedSeconds, req.Completed)
			if err != nil {
				if errors.Is(err, historyusecase.ErrEmptyVideoID) {
					httpinfra.WriteError(w, http.StatusBadRequest, "video_id is required")
					return
				}
				log.Error().Err(err).Msg("history: запись просмотра")
				httpinfra.WriteError(w, http.StatusInternalServerError, "failed to record watch")
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, watchEntryResponse{
				VideoID:        entry.VideoID,
				WatchedSeconds: entry.WatchedSeconds,
				Completed:      entry.Completed,
				UpdatedAt:      entry.UpdatedAt,
			})
		})

		protected.Post("/api/v1/videos/{id}/like", func(w http.ResponseWriter, r *http.Request) {
			err := historyService.Like(r.Context(), httpinfra.UserID(r.Context()), chi.URLParam(r, "id"))
			if err != nil {
				log.Error().Err(err).Msg("history: лайк")
				httpinfra.WriteError(w, http.StatusInternalServerError, "failed to like video")
				return
			}
			httpinfra.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		protected.Delete("/api/v1/videos/{id}/like", func(w http.ResponseWriter, r *http.Request) {
			err := historyService.Unlike(r.Context(), httpinfra.UserID(r.Context()), chi.URLParam(r, "id"))
			if err != nil {
				log.Error().Err(err).Msg("history: снятие лайка")
				httpinfra.WriteError(w, http.StatusInternalServerError, "failed to unlike video")
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: r}
	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), fmt.Sprintf(":%d", cfg.MetricsPort))
	go func() {
		log.Info().Int("port", cfg.Port).Msg("api: старт")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()
	<-ctx.Done()
	log.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	// Фоновые записи аудита должны успеть дописаться.
	recsService.WaitAudit()
}

type recommendationsResponse struct {
	Items []recommendationItem `json:"items"`
}

type recommendationItem struct {
	videoItem
	Score float64 `json:"score"`
}

type searchResponse struct {
	Items []videoItem `json:"items"`
}

type videoItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	Comments    int64     `json:"comments"`
	CreatedAt   time.Time `json:"created_at"`
}

type recordWatchRequest struct {
	VideoID        string `json:"video_id"`
	WatchedSeconds int    `json:"watched_seconds"`
	Completed      bool   `json:"completed"`
}

type watchEntryResponse struct {
	VideoID        string    `json:"video_id"`
	WatchedSeconds int       `json:"watched_seconds"`
	Completed      bool      `json:"completed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toVideoItem(v domain.Video) videoItem {
	return videoItem{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Category:    v.Category,
		Views:       v.Views,
		Likes:       v.Likes,
		Comments:    v.Comments,
		CreatedAt:   v.CreatedAt,
	}
}

func toVideoItems(videos []domain.Video) []videoItem {
	items := make([]videoItem, 0, len(videos))
	for _, v := range videos {
		items = append(items, toVideoItem(v))
	}
	return items
}

func toRecommendationItems(ranked []domain.ScoredVideo) []recommendationItem {
	items := make([]recommendationItem, 0, len(ranked))
	for _, sv := range ranked {
		items = append(items, recommendationItem{videoItem: toVideoItem(sv.Video), Score: sv.Score})
	}
	return items
}
