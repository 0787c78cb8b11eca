package app

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/domain"
	"github.com/vladislavdragonenkov/items/internal/storage/memory"
)

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	if producer := initKafkaProducer(nil, logger); producer != nil {
		t.Error("expected nil producer for empty brokers")
	}
}

func TestInitKafkaProducer_InvalidBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	// Несуществующие brokers: сервис продолжает работу без kafka.
	producer := initKafkaProducer([]string{"invalid-broker:9999"}, logger)
	if producer != nil {
		closeKafka(producer, logger)
		t.Skip("unexpected kafka broker reachable at invalid-broker:9999")
	}
}

func TestCloseKafka_NilProducer(_ *testing.T) {
	logger := log.WithField("test", "kafka")

	// Не должно паниковать
	closeKafka(nil, logger)
}

type recordingPublisher struct {
	published chan domain.OutboxMessage
}

func (p *recordingPublisher) Publish(msg domain.OutboxMessage) error {
	p.published <- msg
	return nil
}

func TestStartOutboxWorker_PublishesAndStops(t *testing.T) {
	logger := log.WithField("test", "outbox")
	repo := memory.NewOutboxRepository()

	msg, err := repo.Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: domain.AggregateItem,
		AggregateID:   "1",
		EventType:     domain.EventItemCreated,
		Payload:       []byte(`{"id":1}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	cfg := DefaultConfig()
	cfg.OutboxPollInterval = 10 * time.Millisecond
	publisher := &recordingPublisher{published: make(chan domain.OutboxMessage, 1)}

	cancel, done := startOutboxWorker(context.Background(), cfg, repo, publisher, nil, logger)

	select {
	case got := <-publisher.published:
		if got.ID != msg.ID {
			t.Fatalf("unexpected message published: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("outbox worker did not publish in time")
	}

	shutdownOutboxWorker(cancel, done, time.Second, logger)
	select {
	case <-done:
	default:
		t.Fatal("worker must be stopped after shutdown")
	}
}

func TestShutdownOutboxWorker_Nil(_ *testing.T) {
	shutdownOutboxWorker(nil, nil, time.Second, log.WithField("test", "outbox"))
}
