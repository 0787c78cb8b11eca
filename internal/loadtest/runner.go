// Package loadtest гоняет нагрузочные сценарии против работающего items API.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/seeder"
)

// Mode — тип нагрузочного сценария.
type Mode string

const (
	ModeWriteHeavy Mode = "write-heavy"
	ModeReadHeavy  Mode = "read-heavy"
	ModeCRUD       Mode = "crud"
)

// listEvery — каждый N-й read-heavy сценарий запрашивает список вместо одного item.
const listEvery = 10

// ParseMode разбирает имя режима.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.TrimSpace(value)) {
	case ModeWriteHeavy:
		return ModeWriteHeavy, nil
	case ModeReadHeavy:
		return ModeReadHeavy, nil
	case ModeCRUD:
		return ModeCRUD, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

// Config описывает прогон.
type Config struct {
	Target string
	Mode   Mode
	// Total — число сценариев. При Duration > 0 ограничивает прогон, только если TotalSet.
	Total       int
	TotalSet    bool
	Duration    time.Duration
	Concurrency int
	Timeout     time.Duration
	// SeedCount — сколько items засеять перед read-heavy.
	SeedCount int
	SeedDelay time.Duration
}

// DefaultConfig возвращает значения по умолчанию для CLI.
func DefaultConfig() Config {
	return Config{
		Target:      "http://localhost:8000",
		Mode:        ModeWriteHeavy,
		Total:       400,
		Concurrency: 40,
		Timeout:     5 * time.Second,
		SeedCount:   seeder.DefaultSeedCount,
		SeedDelay:   seeder.DefaultDelay,
	}
}

// Validate проверяет конфигурацию прогона.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return errors.New("target is required")
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.Duration < 0 {
		return errors.New("duration must be >= 0")
	}
	if c.Duration == 0 && c.Total <= 0 {
		return errors.New("total must be > 0 when duration is not set")
	}
	if c.Duration > 0 && c.TotalSet && c.Total <= 0 {
		return errors.New("total must be > 0 when explicitly set with duration")
	}
	if c.Concurrency <= 0 {
		return errors.New("concurrency must be > 0")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be > 0")
	}
	if c.Mode == ModeReadHeavy && c.SeedCount <= 0 {
		return errors.New("seed-count must be > 0 for read-heavy mode")
	}
	return nil
}

// Option настраивает Runner.
type Option func(*Runner)

// WithHTTPClient подменяет HTTP-клиент.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.client = client
	}
}

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// Runner выполняет сценарии конкурентными воркерами.
type Runner struct {
	cfg    Config
	base   string
	runID  string
	client *http.Client
	logger *log.Entry
	col    *collector

	seededIDs []int64
}

// NewRunner проверяет конфигурацию и создаёт Runner.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:   cfg,
		base:  strings.TrimRight(strings.TrimSpace(cfg.Target), "/"),
		runID: uuid.NewString(),
		col:   newCollector(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Concurrency,
				MaxIdleConnsPerHost: cfg.Concurrency,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if r.logger == nil {
		r.logger = log.WithField("component", "loadtest")
	}
	return r, nil
}

// Run засевает данные (для read-heavy), прогоняет сценарии и возвращает отчёт.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	if r.cfg.Mode == ModeReadHeavy {
		if err := r.seed(ctx); err != nil {
			return Report{}, err
		}
	}

	logger := r.logger.WithFields(log.Fields{
		"mode":        r.cfg.Mode,
		"run_id":      r.runID,
		"concurrency": r.cfg.Concurrency,
	})
	logger.Info("load test started")

	startedAt := time.Now()
	jobs := make(chan int, r.cfg.Concurrency*2)
	var wg sync.WaitGroup

	for workerID := 0; workerID < r.cfg.Concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				_ = r.runScenario(ctx, index)
			}
		}()
	}

	r.dispatchJobs(ctx, jobs)
	wg.Wait()

	result := r.col.buildReport(r.cfg.Mode, startedAt, time.Since(startedAt))
	result.SeededItems = len(r.seededIDs)
	logger.WithFields(log.Fields{
		"total":  result.TotalScenarios,
		"failed": result.FailedScenarios,
	}).Info("load test finished")
	return result, ctx.Err()
}

func (r *Runner) seed(ctx context.Context) error {
	report, err := seeder.Seed(ctx, seeder.Config{
		Target:    r.cfg.Target,
		SeedCount: r.cfg.SeedCount,
		Delay:     r.cfg.SeedDelay,
		Timeout:   r.cfg.Timeout,
	}, seeder.WithHTTPClient(r.client), seeder.WithLogger(r.logger))
	if err != nil {
		return fmt.Errorf("seed items: %w", err)
	}

	for _, outcome := range report.Outcomes {
		if outcome.OK() {
			r.seededIDs = append(r.seededIDs, outcome.ID)
		}
	}
	if len(r.seededIDs) == 0 {
		return errors.New("seed items: no item was created")
	}
	return nil
}

func (r *Runner) dispatchJobs(ctx context.Context, jobs chan<- int) {
	defer close(jobs)

	var deadline <-chan time.Time
	if r.cfg.Duration > 0 {
		timer := time.NewTimer(r.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (r.cfg.Duration <= 0 || r.cfg.TotalSet) && i >= r.cfg.Total {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}

func (r *Runner) runScenario(ctx context.Context, index int) (err error) {
	start := time.Now()
	defer func() {
		code := "ok"
		if err != nil {
			code = "failed"
		}
		r.col.record(scenarioStep, time.Since(start), code, err == nil)
	}()

	switch r.cfg.Mode {
	case ModeWriteHeavy:
		_, err = r.create(ctx, index)
		return err
	case ModeReadHeavy:
		if index%listEvery == listEvery-1 {
			return r.call(ctx, "list", http.MethodGet, "/items/?skip=0&limit=100", nil, http.StatusOK, nil)
		}
		id := r.seededIDs[seeder.RandomNumber(0, len(r.seededIDs)-1)]
		return r.call(ctx, "get", http.MethodGet, itemPath(id), nil, http.StatusOK, nil)
	case ModeCRUD:
		id, err := r.create(ctx, index)
		if err != nil {
			return err
		}
		if err := r.call(ctx, "get", http.MethodGet, itemPath(id), nil, http.StatusOK, nil); err != nil {
			return err
		}
		update := map[string]string{"name": fmt.Sprintf("Load Item %s-%d updated", r.runID, index)}
		if err := r.call(ctx, "update", http.MethodPut, itemPath(id), update, http.StatusOK, nil); err != nil {
			return err
		}
		return r.call(ctx, "delete", http.MethodDelete, itemPath(id), nil, http.StatusOK, nil)
	default:
		return fmt.Errorf("unsupported mode: %s", r.cfg.Mode)
	}
}

func (r *Runner) create(ctx context.Context, index int) (int64, error) {
	body := map[string]string{
		"name":        fmt.Sprintf("Load Item %s-%d", r.runID, index),
		"description": fmt.Sprintf("Load item %d for testing", index),
	}

	var id int64
	err := r.call(ctx, "create", http.MethodPost, "/items/", body, http.StatusCreated, func(data []byte) error {
		parsed, err := seeder.ParseItemID(data)
		id = parsed
		return err
	})
	return id, err
}

// call выполняет один HTTP-запрос шага и записывает его в collector.
func (r *Runner) call(
	ctx context.Context,
	step, method, path string,
	body any,
	wantStatus int,
	handle func([]byte) error,
) error {
	start := time.Now()
	code, err := r.do(ctx, method, path, body, wantStatus, handle)
	r.col.record(step, time.Since(start), code, err == nil)
	return err
}

func (r *Runner) do(
	ctx context.Context,
	method, path string,
	body any,
	wantStatus int,
	handle func([]byte) error,
) (string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "marshal", err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base+path, reader)
	if err != nil {
		return "request", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "transport", err
	}
	defer resp.Body.Close()

	code := statusClass(resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return code, err
	}
	if resp.StatusCode != wantStatus {
		return code, fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if handle != nil {
		if err := handle(data); err != nil {
			return "invalid_body", err
		}
	}
	return code, nil
}

func itemPath(id int64) string {
	return "/items/" + strconv.FormatInt(id, 10)
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
