package postgres

import (
	"context"
	"testing"
	"time"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	pool := openRawPoolForIntegrationTest(t, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := pool.MigrateDown(ctx, 100); err != nil {
		t.Fatalf("migrate down reset: %v", err)
	}
	expectState := func(stage string, version int64, applied int) {
		t.Helper()
		state, err := pool.MigrationStatus(ctx)
		if err != nil {
			t.Fatalf("migration status %s: %v", stage, err)
		}
		if state.Version != version || state.Applied != applied {
			t.Fatalf("unexpected status %s: %+v", stage, state)
		}
	}

	expectState("after reset", 0, 0)

	if err := pool.MigrateUp(ctx, 1); err != nil {
		t.Fatalf("migrate up one step: %v", err)
	}
	expectState("after up 1", 1, 1)

	if err := pool.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up all: %v", err)
	}
	expectState("after up all", 2, 2)

	if err := pool.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("idempotent migrate up: %v", err)
	}
	expectState("after idempotent up", 2, 2)

	if err := pool.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down 1: %v", err)
	}
	expectState("after down 1", 1, 1)

	if err := pool.MigrateDown(ctx, 0); err != nil {
		t.Fatalf("migrate down default step: %v", err)
	}
	expectState("after down default", 0, 0)

	if err := pool.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down on empty should be no-op: %v", err)
	}

	if err := pool.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("restore schema: %v", err)
	}
	requireNoAcquiredConns(t, pool)
}

func TestMigrator_GuardsAndUnsupportedDirection(t *testing.T) {
	var nilPool *Pool
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := nilPool.MigrateUp(ctx, 0); err == nil {
		t.Fatal("expected error for nil pool MigrateUp")
	}
	if err := nilPool.MigrateDown(ctx, 1); err == nil {
		t.Fatal("expected error for nil pool MigrateDown")
	}
	if _, err := nilPool.MigrationStatus(ctx); err == nil {
		t.Fatal("expected error for nil pool MigrationStatus")
	}

	pool := openRawPoolForIntegrationTest(t, 1)
	if err := pool.Migrate(ctx, MigrationDirection("sideways"), 0); err == nil {
		t.Fatal("expected unsupported direction error")
	}
	requireNoAcquiredConns(t, pool)
}
