package kafka

import (
	"fmt"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для outbox. Пустой topic означает TopicItemEvents.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicItemEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish отправляет событие с ключом aggregate id, чтобы события одного item попадали в одну партицию.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	return p.producer.PublishEvent(p.topic, key, NewEnvelope(event), map[string]string{
		HeaderEventType:   event.EventType,
		HeaderAggregateID: event.AggregateID,
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
