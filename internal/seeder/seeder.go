// Package seeder наполняет работающий items API тестовыми данными перед нагрузкой.
package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultSeedCount = 50
	DefaultDelay     = 100 * time.Millisecond
	DefaultTimeout   = 5 * time.Second

	maxResponseBytes = 1 << 20
)

// ErrInvalidConfig возвращается, если запуск невозможен до начала цикла.
var ErrInvalidConfig = errors.New("invalid seeder config")

// Config описывает один прогон сидера.
type Config struct {
	// Target — базовый URL сервиса, например http://localhost:8000.
	Target    string
	SeedCount int
	// Delay — пауза между последовательными запросами.
	Delay time.Duration
	// Timeout — таймаут одного HTTP-запроса.
	Timeout time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию для target.
func DefaultConfig(target string) Config {
	return Config{
		Target:    target,
		SeedCount: DefaultSeedCount,
		Delay:     DefaultDelay,
		Timeout:   DefaultTimeout,
	}
}

// Validate проверяет конфигурацию.
func (c Config) Validate() error {
	target := strings.TrimSpace(c.Target)
	if target == "" {
		return fmt.Errorf("%w: target is required", ErrInvalidConfig)
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: target must be an absolute http(s) URL: %q", ErrInvalidConfig, c.Target)
	}
	if c.SeedCount <= 0 {
		return fmt.Errorf("%w: seed count must be > 0", ErrInvalidConfig)
	}
	if c.Delay < 0 {
		return fmt.Errorf("%w: delay must be >= 0", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// Outcome — результат одной итерации: либо ID созданного item, либо причина отказа.
type Outcome struct {
	Index int
	ID    int64
	Err   error
}

// OK сообщает, что item создан.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Report — упорядоченные по индексу результаты прогона.
type Report struct {
	Outcomes []Outcome
}

// IDs возвращает index -> id для успешных итераций.
func (r Report) IDs() map[int]int64 {
	ids := make(map[int]int64, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		if outcome.OK() {
			ids[outcome.Index] = outcome.ID
		}
	}
	return ids
}

// Succeeded возвращает число успешных итераций.
func (r Report) Succeeded() int {
	return len(r.IDs())
}

// Failed возвращает число неудачных итераций.
func (r Report) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Option настраивает Seeder.
type Option func(*Seeder)

// WithHTTPClient подменяет HTTP-клиент. Таймаут из Config при этом не применяется.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Seeder) {
		s.client = client
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(s *Seeder) {
		s.logger = logger
	}
}

// Seeder последовательно создаёт SeedCount items через POST {target}/items/.
type Seeder struct {
	cfg      Config
	endpoint string
	client   *http.Client
	logger   *log.Entry
}

// New проверяет конфигурацию и создаёт Seeder.
func New(cfg Config, opts ...Option) (*Seeder, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Seeder{
		cfg:      cfg,
		endpoint: strings.TrimRight(strings.TrimSpace(cfg.Target), "/") + "/items/",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: cfg.Timeout}
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "seeder")
	}
	return s, nil
}

// Run выполняет цикл. Ошибка отдельной итерации не прерывает прогон.
// При отмене ctx возвращается частичный отчёт и ctx.Err().
func (s *Seeder) Run(ctx context.Context) (Report, error) {
	s.logger.WithFields(log.Fields{
		"target":     s.cfg.Target,
		"seed_count": s.cfg.SeedCount,
	}).Info("seeding test data")

	report := Report{Outcomes: make([]Outcome, 0, s.cfg.SeedCount)}
	for i := 0; i < s.cfg.SeedCount; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		outcome := Outcome{Index: i}
		outcome.ID, outcome.Err = s.createItem(ctx, i)
		if outcome.Err != nil {
			s.logger.WithError(outcome.Err).WithField("index", i).Error("failed to create seed item")
		}
		report.Outcomes = append(report.Outcomes, outcome)

		if i < s.cfg.SeedCount-1 && s.cfg.Delay > 0 {
			if err := sleep(ctx, s.cfg.Delay); err != nil {
				return report, err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	s.logger.WithFields(log.Fields{
		"succeeded": report.Succeeded(),
		"failed":    report.Failed(),
	}).Info("seeding finished")
	return report, nil
}

// Seed — сокращение для New + Run.
func Seed(ctx context.Context, cfg Config, opts ...Option) (Report, error) {
	s, err := New(cfg, opts...)
	if err != nil {
		return Report{}, err
	}
	return s.Run(ctx)
}

type seedItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type seedItemResponse struct {
	ID     *int64 `json:"id"`
	ItemID *int64 `json:"item_id"`
}

func (s *Seeder) createItem(ctx context.Context, index int) (int64, error) {
	body, err := json.Marshal(seedItemRequest{
		Name:        fmt.Sprintf("Seeded Item %d", index),
		Description: fmt.Sprintf("Seeded item %d for testing", index),
	})
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("HTTP error! status: %d", resp.StatusCode)
	}

	return ParseItemID(data)
}

// ParseItemID извлекает id созданного item из тела ответа (поле id или item_id).
func ParseItemID(data []byte) (int64, error) {
	var parsed seedItemResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	switch {
	case parsed.ID != nil:
		return *parsed.ID, nil
	case parsed.ItemID != nil:
		return *parsed.ItemID, nil
	default:
		return 0, errors.New("response has no id")
	}
}

// RandomNumber возвращает равномерное целое из [min, max] включительно.
func RandomNumber(min, max int) int {
	if min > max {
		min, max = max, min
	}
	span := uint64(max) - uint64(min)
	if span == math.MaxUint64 {
		return int(rand.Uint64())
	}
	return min + int(rand.Uint64N(span+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
