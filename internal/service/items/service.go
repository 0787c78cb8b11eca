// Package items связывает репозиторий items с метриками и outbox событий изменений.
package items

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/domain"
	"github.com/vladislavdragonenkov/items/internal/metrics"
)

// Options задаёт необязательные зависимости сервиса.
type Options struct {
	Logger  *log.Entry
	Outbox  domain.OutboxRepository
	Metrics *metrics.ItemMetrics
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithOutbox включает запись событий item.created/updated/deleted в outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = outbox
	}
}

// WithMetrics задаёт метрики операций.
func WithMetrics(m *metrics.ItemMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// Service — тонкая обёртка над репозиторием. Бизнес-логики не содержит:
// проксирует вызов, пишет метрики и ставит событие в outbox после успешной записи.
type Service struct {
	repo    domain.ItemRepository
	outbox  domain.OutboxRepository
	metrics *metrics.ItemMetrics
	logger  *log.Entry
}

// NewService создаёт сервис поверх репозитория.
func NewService(repo domain.ItemRepository, options ...Option) *Service {
	var opts Options
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "items-service")
	}

	return &Service{
		repo:    repo,
		outbox:  opts.Outbox,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Create сохраняет item и ставит в outbox событие item.created.
func (s *Service) Create(ctx context.Context, cmd domain.CreateItem) (domain.Item, error) {
	start := time.Now()
	item, err := s.repo.Create(ctx, cmd)
	s.observe("create", start, err)
	if err != nil {
		return domain.Item{}, err
	}

	s.recordEvent(ctx, domain.EventItemCreated, item.ID, item)
	return item, nil
}

// Get возвращает item по id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Item, error) {
	start := time.Now()
	item, err := s.repo.Get(ctx, id)
	s.observe("get", start, err)
	return item, err
}

// List возвращает страницу items в порядке вставки.
func (s *Service) List(ctx context.Context, page domain.Page) ([]domain.Item, error) {
	start := time.Now()
	items, err := s.repo.List(ctx, page)
	s.observe("list", start, err)
	return items, err
}

// Update применяет частичные изменения и ставит в outbox item.updated.
func (s *Service) Update(ctx context.Context, id int64, patch domain.ItemPatch) (domain.Item, error) {
	start := time.Now()
	item, err := s.repo.Update(ctx, id, patch)
	s.observe("update", start, err)
	if err != nil {
		return domain.Item{}, err
	}

	s.recordEvent(ctx, domain.EventItemUpdated, item.ID, item)
	return item, nil
}

// Delete удаляет item и ставит в outbox item.deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.repo.Delete(ctx, id)
	s.observe("delete", start, err)
	if err != nil {
		return err
	}

	s.recordEvent(ctx, domain.EventItemDeleted, id, struct {
		ID int64 `json:"id"`
	}{ID: id})
	return nil
}

func (s *Service) observe(operation string, start time.Time, err error) {
	s.metrics.RecordOperation(operation, resultLabel(err), time.Since(start))
}

// recordEvent ставит событие в outbox. Ошибка записи логируется и не влияет на ответ клиенту.
func (s *Service) recordEvent(ctx context.Context, eventType string, id int64, body any) {
	if s.outbox == nil {
		return
	}

	logger := s.logger.WithFields(log.Fields{
		"event_type": eventType,
		"item_id":    id,
	})

	payload, err := json.Marshal(body)
	if err != nil {
		logger.WithError(err).Error("failed to marshal item event")
		s.metrics.RecordOutboxEvent(eventType, false)
		return
	}

	if _, err := s.outbox.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateItem,
		AggregateID:   strconv.FormatInt(id, 10),
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		logger.WithError(err).Warn("failed to enqueue item event")
		s.metrics.RecordOutboxEvent(eventType, false)
		return
	}

	s.metrics.RecordOutboxEvent(eventType, true)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, domain.ErrItemNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrValidation):
		return metrics.ResultInvalid
	default:
		return metrics.ResultStoreError
	}
}

var _ domain.ItemRepository = (*Service)(nil)
