package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/items/internal/loadtest"
	"github.com/vladislavdragonenkov/items/internal/seeder"
	"github.com/vladislavdragonenkov/items/internal/version"
)

// errRunFailed — прогон завершился, но часть сценариев упала.
var errRunFailed = errors.New("load test finished with failed scenarios")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "loadtest",
		Short:        "Seed and load-test the items API",
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			log.SetLevel(level)
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newSeedCmd(), newRunCmd())
	return root
}

func newSeedCmd() *cobra.Command {
	cfg := seeder.DefaultConfig("http://localhost:8000")

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create seed items through POST /items/",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := seeder.Seed(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			printSeedReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Target, "target", cfg.Target, "base URL of the items API")
	flags.IntVar(&cfg.SeedCount, "seed-count", cfg.SeedCount, "number of items to create")
	flags.DurationVar(&cfg.Delay, "delay", cfg.Delay, "pause between consecutive requests")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	return cmd
}

func newRunCmd() *cobra.Command {
	cfg := loadtest.DefaultConfig()
	var mode string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a load scenario against the items API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := loadtest.ParseMode(mode)
			if err != nil {
				return err
			}
			cfg.Mode = parsed
			cfg.TotalSet = cmd.Flags().Changed("total")

			runner, err := loadtest.NewRunner(cfg)
			if err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			result, err := runner.Run(cmd.Context())
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			loadtest.Print(cmd.OutOrStdout(), result)
			if outputPath != "" {
				if err := loadtest.WriteJSON(outputPath, result); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
			}
			if result.FailedScenarios > 0 {
				return errRunFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Target, "target", cfg.Target, "base URL of the items API")
	flags.StringVar(&mode, "mode", string(cfg.Mode), "load mode: write-heavy | read-heavy | crud")
	flags.IntVar(&cfg.Total, "total", cfg.Total, "total scenarios in count mode; with --duration only used when explicitly set")
	flags.DurationVar(&cfg.Duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "number of concurrent workers")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	flags.IntVar(&cfg.SeedCount, "seed-count", cfg.SeedCount, "items to seed before read-heavy runs")
	flags.DurationVar(&cfg.SeedDelay, "seed-delay", cfg.SeedDelay, "pause between seed requests")
	flags.StringVar(&outputPath, "output", "", "optional JSON report output file path")
	return cmd
}

func printSeedReport(out io.Writer, report seeder.Report) {
	fmt.Fprintf(out, "seeded=%d failed=%d\n", report.Succeeded(), report.Failed())

	ids := report.IDs()
	indexes := make([]int, 0, len(ids))
	for index := range ids {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)
	for _, index := range indexes {
		fmt.Fprintf(out, "item_%d_id=%d\n", index, ids[index])
	}
}

