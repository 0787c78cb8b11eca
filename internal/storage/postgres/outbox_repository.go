package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

type outboxRepository struct {
	pool *Pool
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(pool *Pool) domain.OutboxRepository {
	return &outboxRepository{pool: pool}
}

func (r *outboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO outbox_messages (
				id, aggregate_type, aggregate_id, event_type, payload,
				status, attempt_count, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7)
		`,
			msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, now, now,
		)
		return err
	})
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue outbox message: %w", err)
	}

	return msg, nil
}

func (r *outboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	var result []domain.OutboxMessage
	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload
			FROM outbox_messages
			WHERE status = 'pending'
			ORDER BY created_at, id
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		result, err = pgx.CollectRows(rows, pgx.RowToStructByPos[domain.OutboxMessage])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox messages: %w", err)
	}

	return result, nil
}

func (r *outboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest *time.Time
	)
	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT COUNT(*), MIN(created_at)
			FROM outbox_messages
			WHERE status = 'pending'
		`).Scan(&stats.PendingCount, &oldest)
	})
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox stats query failed: %w", err)
	}
	if oldest != nil {
		stats.OldestPendingAt = oldest.UTC()
	}

	return stats, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, "sent")
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, "failed")
}

func (r *outboxRepository) markStatus(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var affected int64
	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE outbox_messages
			SET status = $2,
			    attempt_count = attempt_count + 1,
			    updated_at = $3
			WHERE id = $1
		`, id, status, time.Now().UTC())
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark outbox message as %s: %w", status, err)
	}
	if affected == 0 {
		return domain.ErrOutboxPublish
	}

	return nil
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)
