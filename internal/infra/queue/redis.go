package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"video-recs/internal/domain"
	"video-recs/internal/infra/metrics"
)

// Шаг блокирующего опроса: достаточно короткий, чтобы быстро замечать
// отмену контекста.
const defaultPollTimeout = time.Second

// RedisAuditQueue реализует очередь записей аудита на базе Redis lists.
type RedisAuditQueue struct {
	client      *redis.Client
	key         string
	pollTimeout time.Duration
}

var _ domain.AuditQueue = (*RedisAuditQueue)(nil)

// NewRedisAuditQueue создаёт очередь по указанному ключу.
func NewRedisAuditQueue(client *redis.Client, key string) *RedisAuditQueue {
	return &RedisAuditQueue{client: client, key: key, pollTimeout: defaultPollTimeout}
}

// Enqueue публикует запись аудита.
func (q *RedisAuditQueue) Enqueue(ctx context.Context, job domain.AuditJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает запись из очереди, учитывая отмену контекста.
func (q *RedisAuditQueue) Pop(ctx context.Context) (domain.AuditJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.AuditJob{}, err
		}

		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil):
			// Таймаут опроса: очередь пуста, пробуем снова.
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return domain.AuditJob{}, ctx.Err()
			}
			continue
		default:
			return domain.AuditJob{}, fmt.Errorf("brpop: %w", err)
		}

		// BRPOP отвечает парой ключ/значение.
		if len(res) < 2 {
			return domain.AuditJob{}, fmt.Errorf("redis queue: неполный ответ BRPOP (%d)", len(res))
		}
		return decodeJob([]byte(res[len(res)-1]))
	}
}
