package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

// Topics для Kafka
const (
	TopicItemEvents      = "items.events"
	TopicDeadLetterQueue = "items.dlq"
)

// Kafka headers
const (
	HeaderEventType   = "x-event-type"
	HeaderAggregateID = "x-aggregate-id"
)

// Envelope — формат события изменения item в топике.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope упаковывает outbox-сообщение для публикации.
func NewEnvelope(msg domain.OutboxMessage) Envelope {
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		PublishedAt:   time.Now().UTC(),
	}
}
