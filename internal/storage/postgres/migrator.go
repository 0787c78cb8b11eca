package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	migrationsGlob    = "sql/migrations/*.sql"
	migrationLockKey  = int64(40417721)
	migrationTimeout  = 5 * time.Second
	migrationTableDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version BIGINT PRIMARY KEY,
    name TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
)

var (
	//go:embed sql/migrations/*.sql
	migrationsFS embed.FS

	migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)
)

// MigrationDirection — направление применения миграций.
type MigrationDirection string

const (
	MigrationUp   MigrationDirection = "up"
	MigrationDown MigrationDirection = "down"
)

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationState — текущее состояние схемы.
type MigrationState struct {
	Version int64
	Applied int
}

// MigrateUp применяет up-миграции. steps=0 означает "все доступные".
func (p *Pool) MigrateUp(ctx context.Context, steps int) error {
	return p.Migrate(ctx, MigrationUp, steps)
}

// MigrateDown откатывает миграции. steps<=0 трактуется как один шаг.
func (p *Pool) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return p.Migrate(ctx, MigrationDown, steps)
}

// MigrationStatus возвращает текущую версию схемы и число применённых миграций.
func (p *Pool) MigrationStatus(ctx context.Context) (MigrationState, error) {
	ctx, cancel := context.WithTimeout(ctx, migrationTimeout)
	defer cancel()

	var state MigrationState
	err := p.withConn(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, migrationTableDDL); err != nil {
			return fmt.Errorf("ensure migration table: %w", err)
		}
		if err := conn.QueryRow(ctx, `
			SELECT COALESCE(MAX(version), 0), COUNT(*)
			FROM schema_migrations
		`).Scan(&state.Version, &state.Applied); err != nil {
			return fmt.Errorf("query migration status: %w", err)
		}
		return nil
	})
	return state, err
}

// Migrate применяет миграции в заданном направлении под advisory lock,
// чтобы несколько экземпляров сервиса не мигрировали схему одновременно.
func (p *Pool) Migrate(ctx context.Context, direction MigrationDirection, steps int) error {
	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		return err
	}

	return p.withConn(ctx, func(conn *pgxpool.Conn) error {
		lockCtx, cancel := context.WithTimeout(ctx, migrationTimeout)
		defer cancel()
		if _, err := conn.Exec(lockCtx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		defer func() {
			_, _ = conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockKey)
		}()

		if _, err := conn.Exec(ctx, migrationTableDDL); err != nil {
			return fmt.Errorf("ensure migration table: %w", err)
		}

		switch direction {
		case MigrationUp:
			return applyUp(ctx, conn, migrations, steps)
		case MigrationDown:
			return applyDown(ctx, conn, migrations, steps)
		default:
			return fmt.Errorf("unsupported migration direction: %s", direction)
		}
	})
}

func applyUp(ctx context.Context, conn *pgxpool.Conn, migrations []migration, steps int) error {
	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return err
	}

	done := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		err := runInTx(ctx, conn, m.UpSQL, `
			INSERT INTO schema_migrations (version, name, applied_at)
			VALUES ($1, $2, NOW())
		`, m.Version, m.Name)
		if err != nil {
			return fmt.Errorf("up migration %d_%s: %w", m.Version, m.Name, err)
		}
		done++
		if steps > 0 && done >= steps {
			break
		}
	}

	return nil
}

func applyDown(ctx context.Context, conn *pgxpool.Conn, migrations []migration, steps int) error {
	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	rows, err := conn.Query(ctx, `
		SELECT version
		FROM schema_migrations
		ORDER BY version DESC
		LIMIT $1
	`, steps)
	if err != nil {
		return fmt.Errorf("query applied migrations desc: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return fmt.Errorf("collect applied migrations desc: %w", err)
	}

	for _, version := range versions {
		m, ok := byVersion[version]
		if !ok {
			return fmt.Errorf("cannot rollback unknown migration version %d", version)
		}
		err := runInTx(ctx, conn, m.DownSQL, `DELETE FROM schema_migrations WHERE version = $1`, m.Version)
		if err != nil {
			return fmt.Errorf("down migration %d_%s: %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// runInTx выполняет тело миграции и запись в schema_migrations одной транзакцией.
func runInTx(ctx context.Context, conn *pgxpool.Conn, body, bookkeeping string, args ...any) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, body); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if _, err := tx.Exec(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func appliedVersions(ctx context.Context, conn *pgxpool.Conn) (map[int64]bool, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect applied migrations: %w", err)
	}

	result := make(map[int64]bool, len(versions))
	for _, v := range versions {
		result[v] = true
	}
	return result, nil
}

func loadMigrationsFromFS(fsys fs.FS) ([]migration, error) {
	files, err := fs.Glob(fsys, migrationsGlob)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no migration files found")
	}

	byVersion := make(map[int64]*migration)
	for _, file := range files {
		base := path.Base(file)
		matches := migrationFilePattern.FindStringSubmatch(base)
		if len(matches) != 4 {
			return nil, fmt.Errorf("invalid migration file name: %s", base)
		}

		version, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", base, err)
		}
		name, direction := matches[2], MigrationDirection(matches[3])

		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", file, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, fmt.Errorf("migration file is empty: %s", base)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: name}
			byVersion[version] = m
		} else if m.Name != name {
			return nil, fmt.Errorf("migration name mismatch for version %d: %s vs %s", version, m.Name, name)
		}

		target := &m.UpSQL
		if direction == MigrationDown {
			target = &m.DownSQL
		}
		if *target != "" {
			return nil, fmt.Errorf("duplicate %s migration for version %d", direction, version)
		}
		*target = body
	}

	migrations := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("migration %d_%s must have both up and down files", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })

	return migrations, nil
}
