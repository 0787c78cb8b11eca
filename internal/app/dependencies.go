package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/items/internal/domain"
	"github.com/vladislavdragonenkov/items/internal/metrics"
	"github.com/vladislavdragonenkov/items/internal/storage/memory"
	"github.com/vladislavdragonenkov/items/internal/storage/postgres"
)

// runtimeDependencies — хранилища, выбранные драйвером.
type runtimeDependencies struct {
	repo       domain.ItemRepository
	outboxRepo domain.OutboxRepository
	pool       *postgres.Pool
}

// initRuntimeDependencies создаёт хранилища. Для postgres открывает пул и применяет миграции.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		return &runtimeDependencies{
			repo:       memory.NewItemRepository(),
			outboxRepo: memory.NewOutboxRepository(),
		}, nil
	case StorageDriverPostgres:
		pool, err := postgres.OpenPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open postgres pool: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := pool.MigrateUp(ctx, 0); err != nil {
				pool.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}

		logger.WithFields(log.Fields{
			"dsn":       cfg.Postgres.Redacted(),
			"max_conns": cfg.Postgres.MaxConns,
		}).Info("using postgres storage")

		return &runtimeDependencies{
			repo:       postgres.NewItemRepository(pool),
			outboxRepo: postgres.NewOutboxRepository(pool),
			pool:       pool,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

// ping проверяет доступность хранилища. In-memory хранилище доступно всегда.
func (d *runtimeDependencies) ping(ctx context.Context) error {
	if d.pool == nil {
		return ctx.Err()
	}
	return d.pool.Ping(ctx)
}

func (d *runtimeDependencies) poolSnapshot() metrics.PoolSnapshot {
	stats := d.pool.Stats()
	return metrics.PoolSnapshot{
		Acquired: stats.Acquired,
		Idle:     stats.Idle,
		Total:    stats.Total,
		Max:      stats.Max,
	}
}

func (d *runtimeDependencies) close() {
	if d == nil {
		return
	}
	d.pool.Close()
}
