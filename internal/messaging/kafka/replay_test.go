package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

type capturePublisher struct {
	events []domain.OutboxMessage
	err    error
}

func (p *capturePublisher) Publish(event domain.OutboxMessage) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func deadLetterValue(t *testing.T, id, aggregateID string) []byte {
	t.Helper()

	letter, err := json.Marshal(domain.DeadLetter{
		OutboxID:      id,
		AggregateType: domain.AggregateItem,
		AggregateID:   aggregateID,
		EventType:     domain.EventItemUpdated,
		Payload:       json.RawMessage(`{"id":` + aggregateID + `}`),
		PublishError:  "broker unavailable",
		FailedAt:      time.Now().UTC(),
	})
	require.NoError(t, err)

	value, err := json.Marshal(Envelope{
		ID:            id,
		AggregateType: domain.AggregateItem,
		AggregateID:   aggregateID,
		EventType:     domain.EventItemUpdated,
		Payload:       letter,
	})
	require.NoError(t, err)
	return value
}

func TestDecodeDeadLetter(t *testing.T) {
	event, err := DecodeDeadLetter(deadLetterValue(t, "evt-1", "7"))
	require.NoError(t, err)

	assert.Equal(t, "evt-1", event.ID)
	assert.Equal(t, "7", event.AggregateID)
	assert.Equal(t, domain.EventItemUpdated, event.EventType)
	assert.JSONEq(t, `{"id":7}`, string(event.Payload))
}

func TestDecodeDeadLetter_Rejects(t *testing.T) {
	tests := map[string][]byte{
		"not json":         []byte("garbage"),
		"empty envelope":   []byte(`{"id":"x"}`),
		"missing original": []byte(`{"id":"x","payload":{"outbox_id":"x"}}`),
	}

	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeDeadLetter(value)
			assert.ErrorIs(t, err, ErrNotDeadLetter)
		})
	}
}

func newMockConsumer(t *testing.T, values ...[]byte) *mocks.Consumer {
	t.Helper()

	consumer := mocks.NewConsumer(t, nil)
	consumer.SetTopicMetadata(map[string][]int32{TopicDeadLetterQueue: {0}})
	pc := consumer.ExpectConsumePartition(TopicDeadLetterQueue, 0, sarama.OffsetOldest)
	for _, value := range values {
		pc.YieldMessage(&sarama.ConsumerMessage{Value: value})
	}
	return consumer
}

func replayConfig(execute bool) ReplayConfig {
	return ReplayConfig{
		SourceTopic: TopicDeadLetterQueue,
		Limit:       DefaultReplayLimit,
		IdleTimeout: 50 * time.Millisecond,
		Execute:     execute,
	}
}

func TestReplayer_ExecuteRepublishes(t *testing.T) {
	consumer := newMockConsumer(t,
		deadLetterValue(t, "evt-1", "1"),
		[]byte("not a dead letter"),
		deadLetterValue(t, "evt-2", "2"),
	)
	publisher := &capturePublisher{}

	replayer, err := NewReplayer(consumer, publisher, replayConfig(true))
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ReplayStats{Processed: 3, Replayed: 2, Skipped: 1}, stats)
	require.Len(t, publisher.events, 2)
	assert.Equal(t, "evt-1", publisher.events[0].ID)
	assert.Equal(t, "evt-2", publisher.events[1].ID)
}

func TestReplayer_DryRunDoesNotPublish(t *testing.T) {
	consumer := newMockConsumer(t, deadLetterValue(t, "evt-1", "1"))
	publisher := &capturePublisher{}

	replayer, err := NewReplayer(consumer, publisher, replayConfig(false))
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Replayed)
	assert.Empty(t, publisher.events)
}

func TestReplayer_RespectsLimit(t *testing.T) {
	consumer := newMockConsumer(t,
		deadLetterValue(t, "evt-1", "1"),
		deadLetterValue(t, "evt-2", "2"),
	)
	cfg := replayConfig(false)
	cfg.Limit = 1

	replayer, err := NewReplayer(consumer, nil, cfg)
	require.NoError(t, err)

	stats, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
}

func TestReplayer_PublishFailure(t *testing.T) {
	consumer := newMockConsumer(t, deadLetterValue(t, "evt-1", "1"))
	publisher := &capturePublisher{err: errors.New("broker down")}

	replayer, err := NewReplayer(consumer, publisher, replayConfig(true))
	require.NoError(t, err)

	_, err = replayer.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrOutboxPublish)
}

func TestNewReplayer_Validation(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)

	_, err := NewReplayer(consumer, nil, replayConfig(true))
	assert.Error(t, err, "execute mode requires publisher")

	cfg := replayConfig(false)
	cfg.Limit = 0
	_, err = NewReplayer(consumer, nil, cfg)
	assert.Error(t, err)

	_, err = NewReplayer(nil, nil, replayConfig(false))
	assert.Error(t, err)
}
