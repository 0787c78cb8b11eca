package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/domain"
	"github.com/vladislavdragonenkov/items/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/items/internal/service/outbox"
)

// initKafkaProducer создаёт producer, если заданы brokers.
// Ошибка не фатальна: сервис продолжает работу без публикации событий.
func initKafkaProducer(brokers []string, logger *log.Entry) *kafka.Producer {
	if len(brokers) == 0 {
		return nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// startOutboxWorker запускает воркер в отдельной горутине.
// Возвращает cancel и канал, закрывающийся после остановки воркера.
func startOutboxWorker(
	ctx context.Context,
	cfg Config,
	repo domain.OutboxRepository,
	publisher, dlq domain.OutboxPublisher,
	logger *log.Entry,
) (context.CancelFunc, <-chan struct{}) {
	worker := outbox.NewWorker(repo, publisher,
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithDLQPublisher(dlq),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	)

	workerCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(workerCtx)
	}()
	return cancel, done
}

// shutdownOutboxWorker останавливает воркер и ждёт завершения не дольше timeout.
func shutdownOutboxWorker(cancel context.CancelFunc, done <-chan struct{}, timeout time.Duration, logger *log.Entry) {
	if cancel == nil {
		return
	}
	cancel()
	if done == nil {
		return
	}

	select {
	case <-done:
		logger.Info("outbox worker stopped")
	case <-time.After(timeout):
		logger.Warn("outbox worker did not stop in time")
	}
}
