package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/items/internal/storage/postgres"
)

const (
	defaultTimeout = 30 * time.Second
	envPostgresDSN = "ITEMS_POSTGRES_DSN"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.LookupEnv).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// migrationRunner — операции над схемой, которые нужны CLI.
type migrationRunner interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (postgres.MigrationState, error)
	Close()
}

type openFunc func(ctx context.Context, cfg postgres.PoolConfig) (migrationRunner, error)

func openPool(ctx context.Context, cfg postgres.PoolConfig) (migrationRunner, error) {
	return postgres.OpenPool(ctx, cfg)
}

func newRootCmd(out io.Writer, lookup func(string) (string, bool)) *cobra.Command {
	return newRootCmdWithOpener(out, lookup, openPool)
}

func newRootCmdWithOpener(out io.Writer, lookup func(string) (string, bool), open openFunc) *cobra.Command {
	var (
		dsn     string
		timeout time.Duration
	)

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back items schema migrations",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+envPostgresDSN+")")
	root.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "overall operation timeout")

	withPool := func(cmd *cobra.Command, fn func(ctx context.Context, runner migrationRunner) error) error {
		resolved := strings.TrimSpace(dsn)
		if resolved == "" {
			if v, ok := lookup(envPostgresDSN); ok {
				resolved = strings.TrimSpace(v)
			}
		}
		if resolved == "" {
			return fmt.Errorf("%s (or --dsn) is required", envPostgresDSN)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		cfg := postgres.DefaultPoolConfig()
		cfg.DSN = resolved
		cfg.MaxConns = 1

		runner, err := open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open postgres pool: %w", err)
		}
		defer runner.Close()

		return fn(ctx, runner)
	}

	printStatus := func(ctx context.Context, out io.Writer, runner migrationRunner, prefix string) error {
		state, err := runner.MigrationStatus(ctx)
		if err != nil {
			return fmt.Errorf("migration status failed: %w", err)
		}
		fmt.Fprintf(out, "%s: version=%d applied=%d\n", prefix, state.Version, state.Applied)
		return nil
	}

	var upSteps int
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd, func(ctx context.Context, runner migrationRunner) error {
				if err := runner.MigrateUp(ctx, upSteps); err != nil {
					return fmt.Errorf("migrate up failed: %w", err)
				}
				return printStatus(ctx, cmd.OutOrStdout(), runner, "migrate up ok")
			})
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "number of migrations to apply (0 = all)")

	var downSteps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd, func(ctx context.Context, runner migrationRunner) error {
				if err := runner.MigrateDown(ctx, downSteps); err != nil {
					return fmt.Errorf("migrate down failed: %w", err)
				}
				return printStatus(ctx, cmd.OutOrStdout(), runner, "migrate down ok")
			})
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd, func(ctx context.Context, runner migrationRunner) error {
				return printStatus(ctx, cmd.OutOrStdout(), runner, "migration status")
			})
		},
	}

	root.AddCommand(up, down, status)
	return root
}
