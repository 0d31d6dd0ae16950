package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"video-recs/internal/adapters/repo"
	"video-recs/internal/domain"
	"video-recs/internal/infra/config"
	"video-recs/internal/infra/db"
	applog "video-recs/internal/infra/log"
	"video-recs/internal/infra/metrics"
	"video-recs/internal/infra/queue"
)

// audit-worker вычитывает задания аудита рекомендаций из очереди и пишет
// их в БД. Запись best-effort: ошибка отдельного задания логируется и
// проглатывается, воркер продолжает работу.
func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("audit-worker: нет подключения к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	var auditQueue domain.AuditQueue
	switch {
	case cfg.Queues.AMQPURL != "":
		amqpQueue, err := queue.NewAMQPAuditQueue(cfg.Queues.AMQPURL, cfg.Queues.Audit)
		if err != nil {
			logger.Fatal().Err(err).Msg("audit-worker: нет подключения к AMQP")
		}
		defer amqpQueue.Close()
		auditQueue = amqpQueue
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		auditQueue = queue.NewRedisAuditQueue(client, cfg.Queues.Audit)
	default:
		logger.Fatal().Msg("audit-worker: не настроен ни AMQP_URL, ни REDIS_ADDR")
	}

	logger.Info().Str("queue", cfg.Queues.Audit).Msg("audit-worker: старт")
	for {
		job, err := auditQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			logger.Error().Err(err).Msg("audit-worker: ошибка чтения очереди")
			// Пауза, чтобы не крутить горячий цикл, пока очередь недоступна.
			time.Sleep(time.Second)
			continue
		}
		rec := domain.RecommendationRecord{
			UserID:    job.UserID,
			VideoID:   job.VideoID,
			Score:     job.Score,
			CreatedAt: job.CreatedAt,
		}
		if err := repoAdapter.SaveRecommendation(ctx, rec); err != nil {
			metrics.IncAuditWriteError()
			logger.Error().Err(err).Str("job_id", job.ID).Msg("audit-worker: запись не сохранена")
		}
	}
	logger.Info().Msg("audit-worker: остановка")
}
