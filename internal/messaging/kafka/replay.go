package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

const (
	DefaultReplayLimit       = 100
	DefaultReplayIdleTimeout = 2 * time.Second
)

// ErrNotDeadLetter — сообщение в DLQ не похоже на запись outbox worker'а.
var ErrNotDeadLetter = errors.New("message is not an outbox dead letter")

// DecodeDeadLetter восстанавливает исходное outbox-сообщение из значения DLQ.
func DecodeDeadLetter(value []byte) (domain.OutboxMessage, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("%w: %v", ErrNotDeadLetter, err)
	}
	if len(envelope.Payload) == 0 {
		return domain.OutboxMessage{}, fmt.Errorf("%w: empty envelope payload", ErrNotDeadLetter)
	}

	var letter domain.DeadLetter
	if err := json.Unmarshal(envelope.Payload, &letter); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("%w: %v", ErrNotDeadLetter, err)
	}
	if len(letter.Payload) == 0 {
		return domain.OutboxMessage{}, fmt.Errorf("%w: original payload is missing", ErrNotDeadLetter)
	}

	return domain.OutboxMessage{
		ID:            firstNonEmpty(letter.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(letter.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(letter.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(letter.EventType, envelope.EventType),
		Payload:       []byte(letter.Payload),
	}, nil
}

// ReplayConfig — параметры повторной публикации из DLQ.
type ReplayConfig struct {
	SourceTopic string
	Limit       int
	IdleTimeout time.Duration
	// Execute=false — dry-run: кандидаты только логируются.
	Execute bool
}

// Validate проверяет параметры replay.
func (c ReplayConfig) Validate() error {
	if c.SourceTopic == "" {
		return errors.New("source topic is required")
	}
	if c.Limit <= 0 {
		return errors.New("limit must be > 0")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle timeout must be > 0")
	}
	return nil
}

// ReplayStats — итог прогона.
type ReplayStats struct {
	Processed int
	Replayed  int
	Skipped   int
}

// Replayer читает DLQ с начала и переотправляет восстановленные события через publisher.
type Replayer struct {
	consumer  sarama.Consumer
	publisher domain.OutboxPublisher
	cfg       ReplayConfig
	logger    *log.Entry
}

// NewConsumer создаёт sarama consumer для чтения DLQ.
func NewConsumer(brokers []string) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.ClientID = "items-dlq-replay"
	config.Consumer.Return.Errors = true

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return consumer, nil
}

// NewReplayer создаёт Replayer. publisher обязателен только в execute-режиме.
func NewReplayer(consumer sarama.Consumer, publisher domain.OutboxPublisher, cfg ReplayConfig) (*Replayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if consumer == nil {
		return nil, errors.New("kafka consumer is required")
	}
	if cfg.Execute && publisher == nil {
		return nil, errors.New("publisher is required in execute mode")
	}
	return &Replayer{
		consumer:  consumer,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithField("component", "dlq-replay"),
	}, nil
}

// Run обходит партиции source topic по возрастанию, пока не исчерпан limit.
// Партиция считается прочитанной, если за IdleTimeout не пришло новых сообщений.
func (r *Replayer) Run(ctx context.Context) (ReplayStats, error) {
	var stats ReplayStats

	partitions, err := r.consumer.Partitions(r.cfg.SourceTopic)
	if err != nil {
		return stats, fmt.Errorf("get partitions for topic %s: %w", r.cfg.SourceTopic, err)
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		if stats.Processed >= r.cfg.Limit {
			break
		}
		if err := r.replayPartition(ctx, partition, &stats); err != nil {
			return stats, err
		}
	}

	r.logger.WithFields(log.Fields{
		"execute":   r.cfg.Execute,
		"processed": stats.Processed,
		"replayed":  stats.Replayed,
		"skipped":   stats.Skipped,
	}).Info("dlq replay finished")

	return stats, nil
}

func (r *Replayer) replayPartition(ctx context.Context, partition int32, stats *ReplayStats) error {
	pc, err := r.consumer.ConsumePartition(r.cfg.SourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.cfg.IdleTimeout)
	defer idle.Stop()

	for stats.Processed < r.cfg.Limit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle.C:
			return nil
		case consumerErr, ok := <-pc.Errors():
			if ok && consumerErr != nil {
				return fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil {
				return nil
			}
			idle.Reset(r.cfg.IdleTimeout)

			if err := r.replayMessage(msg, stats); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Replayer) replayMessage(msg *sarama.ConsumerMessage, stats *ReplayStats) error {
	stats.Processed++
	logger := r.logger.WithFields(log.Fields{
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	event, err := DecodeDeadLetter(msg.Value)
	if err != nil {
		stats.Skipped++
		logger.WithError(err).Warn("skip unsupported dlq message")
		return nil
	}

	if !r.cfg.Execute {
		stats.Replayed++
		logger.WithFields(log.Fields{
			"outbox_id":    event.ID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID,
		}).Info("dlq replay candidate")
		return nil
	}

	if err := r.publisher.Publish(event); err != nil {
		return fmt.Errorf("%w: replay %s: %v", domain.ErrOutboxPublish, event.ID, err)
	}
	stats.Replayed++
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
