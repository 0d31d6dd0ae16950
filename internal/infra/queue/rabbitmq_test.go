package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"video-recs/internal/domain"
)

func TestAMQPPopDecodesJob(t *testing.T) {
	want := domain.AuditJob{ID: "j1", UserID: "user-1", VideoID: "video-1", Score: 0.5}
	payload, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("не удалось сериализовать: %v", err)
	}
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{Body: payload}
	q := &AMQPAuditQueue{deliveries: deliveries}

	got, err := q.Pop(context.Background())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got != want {
		t.Fatalf("ожидали %+v, получили %+v", want, got)
	}
}

func TestAMQPPopClosedChannelResetsSubscription(t *testing.T) {
	// Брокер рестартовал: канал доставки закрыт. Pop должен вернуть ошибку
	// и сбросить подписку, чтобы следующий вызов переподписался, а не
	// мгновенно читал тот же закрытый канал по кругу.
	deliveries := make(chan amqp.Delivery)
	close(deliveries)
	q := &AMQPAuditQueue{deliveries: deliveries}

	if _, err := q.Pop(context.Background()); err == nil {
		t.Fatal("ожидали ошибку на закрытом канале доставки")
	}
	if q.deliveries != nil {
		t.Fatal("после закрытия канала подписка должна сбрасываться")
	}
}

func TestAMQPPopCtxCancelled(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	q := &AMQPAuditQueue{deliveries: deliveries}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Pop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидали context.Canceled, получили %v", err)
	}
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	if _, err := decodeJob([]byte("не json")); err == nil {
		t.Fatal("ожидали ошибку разбора")
	}
}
