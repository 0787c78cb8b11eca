package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vladislavdragonenkov/items/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type itemRepository struct {
	pool *Pool
}

// NewItemRepository создаёт PostgreSQL-реализацию ItemRepository поверх пула.
func NewItemRepository(pool *Pool) domain.ItemRepository {
	return &itemRepository{pool: pool}
}

func (r *itemRepository) Create(ctx context.Context, cmd domain.CreateItem) (domain.Item, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Item{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var item domain.Item
	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `
			INSERT INTO items (name, description)
			VALUES ($1, $2)
			RETURNING id, name, description
		`, cmd.Name, cmd.Description).Scan(&item.ID, &item.Name, &item.Description)
	})
	if err != nil {
		return domain.Item{}, storeError("insert item", err)
	}

	return item, nil
}

func (r *itemRepository) Get(ctx context.Context, id int64) (domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var item domain.Item
	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `
			SELECT id, name, description
			FROM items
			WHERE id = $1
		`, id).Scan(&item.ID, &item.Name, &item.Description)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, storeError("select item", err)
	}

	return item, nil
}

func (r *itemRepository) List(ctx context.Context, page domain.Page) ([]domain.Item, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// LIMIT NULL в PostgreSQL означает отсутствие ограничения.
	var limit any
	if page.Limit > 0 {
		limit = page.Limit
	}

	var items []domain.Item
	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, name, description
			FROM items
			ORDER BY id
			OFFSET $1
			LIMIT $2
		`, page.Offset, limit)
		if err != nil {
			return err
		}

		items, err = pgx.CollectRows(rows, pgx.RowToStructByPos[domain.Item])
		return err
	})
	if err != nil {
		return nil, storeError("list items", err)
	}
	if items == nil {
		items = make([]domain.Item, 0)
	}

	return items, nil
}

func (r *itemRepository) Update(ctx context.Context, id int64, patch domain.ItemPatch) (domain.Item, error) {
	if err := patch.Validate(); err != nil {
		return domain.Item{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var item domain.Item
	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `
			UPDATE items
			SET name = COALESCE($2::text, name),
			    description = CASE
			        WHEN $3::boolean THEN NULL
			        ELSE COALESCE($4::text, description)
			    END
			WHERE id = $1
			RETURNING id, name, description
		`, id, patch.Name, patch.ClearDescription, patch.Description).
			Scan(&item.ID, &item.Name, &item.Description)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, storeError("update item", err)
	}

	return item, nil
}

func (r *itemRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var affected int64
	err := r.pool.withConn(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return storeError("delete item", err)
	}
	if affected == 0 {
		return domain.ErrItemNotFound
	}

	return nil
}

// storeError классифицирует ошибку драйвера, сохраняя исходную причину в цепочке.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrConnection) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConnection, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w: sqlstate %s (%s): %w", op, domain.ErrStore, pgErr.Code, pgErr.ConstraintName, err)
	}

	return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
}

var _ domain.ItemRepository = (*itemRepository)(nil)
