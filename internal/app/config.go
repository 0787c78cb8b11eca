package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/items/internal/storage/postgres"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	Postgres            postgres.PoolConfig
	PostgresAutoMigrate bool

	// KafkaBrokers пустой — события изменений не записываются и не публикуются.
	KafkaBrokers       []string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPending — порог backlog, после которого /healthz отдаёт degraded.
	OutboxMaxPending int

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8000",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		Postgres:            postgres.DefaultPoolConfig(),
		PostgresAutoMigrate: true,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		OutboxMaxPending:    1000,
		ShutdownTimeout:     5 * time.Second,
	}
}

// Validate проверяет конфигурацию до запуска серверов.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http address is required")
	}
	if strings.TrimSpace(c.MetricsAddr) == "" {
		return errors.New("metrics address is required")
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if err := c.Postgres.Validate(); err != nil {
			return fmt.Errorf("postgres config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.StorageDriver)
	}

	if c.OutboxBatchSize <= 0 {
		return errors.New("outbox batch size must be > 0")
	}
	if c.OutboxMaxAttempts <= 0 {
		return errors.New("outbox max attempts must be > 0")
	}
	return nil
}

func (c Config) outboxEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ShutdownTimeout
}
