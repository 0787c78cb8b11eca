package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/items/internal/app"
)

const (
	envHTTPAddr               = "ITEMS_HTTP_ADDR"
	envMetricsAddr            = "ITEMS_METRICS_ADDR"
	envStorageDriver          = "ITEMS_STORAGE_DRIVER"
	envPostgresDSN            = "ITEMS_POSTGRES_DSN"
	envPostgresHost           = "ITEMS_POSTGRES_HOST"
	envPostgresPort           = "ITEMS_POSTGRES_PORT"
	envPostgresDB             = "ITEMS_POSTGRES_DB"
	envPostgresUser           = "ITEMS_POSTGRES_USER"
	envPostgresPassword       = "ITEMS_POSTGRES_PASSWORD"
	envPostgresMaxConns       = "ITEMS_POSTGRES_MAX_CONNS"
	envPostgresAcquireTimeout = "ITEMS_POSTGRES_ACQUIRE_TIMEOUT"
	envPostgresAutoMigrate    = "ITEMS_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers           = "KAFKA_BROKERS"
	envOutboxPollInterval     = "ITEMS_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize        = "ITEMS_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts      = "ITEMS_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay       = "ITEMS_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending       = "ITEMS_OUTBOX_MAX_PENDING"
	envLogLevel               = "ITEMS_LOG_LEVEL"
)

type envLookup func(string) (string, bool)

// readConfig формирует конфигурацию приложения из переменных окружения процесса.
func readConfig() (app.Config, []string) {
	return readConfigFromEnv(os.LookupEnv)
}

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения игнорируются, а причина возвращается в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}

	stringVar := func(key string, target *string) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			*target = v
		}
	}

	stringVar(envHTTPAddr, &cfg.HTTPAddr)
	stringVar(envMetricsAddr, &cfg.MetricsAddr)
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}

	stringVar(envPostgresDSN, &cfg.Postgres.DSN)
	stringVar(envPostgresHost, &cfg.Postgres.Host)
	stringVar(envPostgresDB, &cfg.Postgres.Database)
	stringVar(envPostgresUser, &cfg.Postgres.User)
	if v, ok := lookup(envPostgresPassword); ok && v != "" {
		cfg.Postgres.Password = v
	}

	if v, ok := lookupTrimmed(lookup, envPostgresPort); ok {
		port, err := parseInt(v, func(p int) bool { return p > 0 && p <= 65535 }, "must be a valid tcp port")
		if err != nil {
			warn(envPostgresPort, v, err)
		} else {
			cfg.Postgres.Port = port
		}
	}

	if v, ok := lookupTrimmed(lookup, envPostgresMaxConns); ok {
		maxConns, err := parseInt(v, func(n int) bool { return n > 0 && n <= 1<<15 }, "must be > 0")
		if err != nil {
			warn(envPostgresMaxConns, v, err)
		} else {
			cfg.Postgres.MaxConns = int32(maxConns)
		}
	}

	if v, ok := lookupTrimmed(lookup, envPostgresAcquireTimeout); ok {
		timeout, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warn(envPostgresAcquireTimeout, v, err)
		} else {
			cfg.Postgres.AcquireTimeout = timeout
		}
	}

	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		autoMigrate, err := parseBool(v)
		if err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = autoMigrate
		}
	}

	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = splitBrokers(v)
	}

	if v, ok := lookupTrimmed(lookup, envOutboxPollInterval); ok {
		interval, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxPollInterval, v, err)
		} else {
			cfg.OutboxPollInterval = interval
		}
	}

	if v, ok := lookupTrimmed(lookup, envOutboxBatchSize); ok {
		batch, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxBatchSize, v, err)
		} else {
			cfg.OutboxBatchSize = batch
		}
	}

	if v, ok := lookupTrimmed(lookup, envOutboxMaxAttempts); ok {
		attempts, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envOutboxMaxAttempts, v, err)
		} else {
			cfg.OutboxMaxAttempts = attempts
		}
	}

	if v, ok := lookupTrimmed(lookup, envOutboxRetryDelay); ok {
		delay, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
		if err != nil {
			warn(envOutboxRetryDelay, v, err)
		} else {
			cfg.OutboxRetryDelay = delay
		}
	}

	if v, ok := lookupTrimmed(lookup, envOutboxMaxPending); ok {
		maxPending, err := parseInt(v, func(n int) bool { return n >= 0 }, "must be >= 0")
		if err != nil {
			warn(envOutboxMaxPending, v, err)
		} else {
			cfg.OutboxMaxPending = maxPending
		}
	}

	return cfg, warnings
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// splitBrokers разбирает список брокеров через запятую, пропуская пустые элементы.
func splitBrokers(raw string) []string {
	var brokers []string
	for _, part := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(part); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q: %w", raw, err)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, rule)
	}
	return value, nil
}
