package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"video-recs/internal/domain"
	"video-recs/internal/infra/metrics"
)

// AMQPAuditQueue реализует очередь записей аудита поверх RabbitMQ.
type AMQPAuditQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

var _ domain.AuditQueue = (*AMQPAuditQueue)(nil)

// NewAMQPAuditQueue подключается к брокеру и объявляет durable-очередь.
func NewAMQPAuditQueue(url, queue string) (*AMQPAuditQueue, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &AMQPAuditQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует запись аудита.
func (q *AMQPAuditQueue) Enqueue(ctx context.Context, job domain.AuditJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает запись из очереди. Подтверждение автоматическое:
// запись аудита best-effort, потеря при падении обработчика допустима.
func (q *AMQPAuditQueue) Pop(ctx context.Context) (domain.AuditJob, error) {
	if q.deliveries == nil {
		deliveries, err := q.ch.ConsumeWithContext(ctx, q.queue, "", true, false, false, false, nil)
		if err != nil {
			return domain.AuditJob{}, fmt.Errorf("consume: %w", err)
		}
		q.deliveries = deliveries
	}
	select {
	case <-ctx.Done():
		return domain.AuditJob{}, ctx.Err()
	case msg, ok := <-q.deliveries:
		if !ok {
			// Брокер закрыл канал доставки: сбрасываем подписку, чтобы
			// следующий вызов переподписался, а не читал закрытый канал.
			q.deliveries = nil
			return domain.AuditJob{}, errors.New("amqp queue: delivery channel closed")
		}
		return decodeJob(msg.Body)
	}
}

// Close закрывает канал и соединение.
func (q *AMQPAuditQueue) Close() error {
	chErr := q.ch.Close()
	connErr := q.conn.Close()
	if chErr != nil {
		return chErr
	}
	return connErr
}
