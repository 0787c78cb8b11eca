package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/items/internal/domain"
	"github.com/vladislavdragonenkov/items/internal/messaging/kafka"
)

const envKafkaBrokers = "KAFKA_BROKERS"

// replayDeps — kafka-зависимости одного прогона; close освобождает всё открытое.
type replayDeps struct {
	consumer  sarama.Consumer
	publisher domain.OutboxPublisher
	close     func()
}

type depsFactory func(brokers []string, targetTopic string, execute bool) (replayDeps, error)

func newKafkaDeps(brokers []string, targetTopic string, execute bool) (replayDeps, error) {
	consumer, err := kafka.NewConsumer(brokers)
	if err != nil {
		return replayDeps{}, err
	}
	if !execute {
		return replayDeps{consumer: consumer, close: func() { _ = consumer.Close() }}, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		_ = consumer.Close()
		return replayDeps{}, err
	}
	return replayDeps{
		consumer:  consumer,
		publisher: kafka.NewOutboxPublisher(producer, targetTopic),
		close: func() {
			_ = producer.Close()
			_ = consumer.Close()
		},
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	if err := newRootCmd(os.Stdout, os.LookupEnv, newKafkaDeps).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer, lookup func(string) (string, bool), factory depsFactory) *cobra.Command {
	cfg := kafka.ReplayConfig{
		SourceTopic: kafka.TopicDeadLetterQueue,
		Limit:       kafka.DefaultReplayLimit,
		IdleTimeout: kafka.DefaultReplayIdleTimeout,
	}
	var (
		brokersRaw  string
		targetTopic string
	)

	cmd := &cobra.Command{
		Use:          "dlq-replay",
		Short:        "Replay item events from the dead letter topic",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(brokersRaw) == "" {
				brokersRaw, _ = lookup(envKafkaBrokers)
			}
			brokers := parseBrokers(brokersRaw)
			if len(brokers) == 0 {
				return fmt.Errorf("kafka brokers are required (--brokers or %s)", envKafkaBrokers)
			}
			if strings.TrimSpace(targetTopic) == "" {
				return errors.New("target topic is required")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			deps, err := factory(brokers, targetTopic, cfg.Execute)
			if err != nil {
				return err
			}
			defer deps.close()

			replayer, err := kafka.NewReplayer(deps.consumer, deps.publisher, cfg)
			if err != nil {
				return err
			}

			stats, err := replayer.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("dlq replay failed: %w", err)
			}

			mode := "dry-run"
			if cfg.Execute {
				mode = "execute"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mode=%s processed=%d replayed=%d skipped=%d\n",
				mode, stats.Processed, stats.Replayed, stats.Skipped)
			return nil
		},
	}
	cmd.SetOut(out)

	flags := cmd.Flags()
	flags.StringVar(&brokersRaw, "brokers", "", "comma-separated kafka brokers (fallback: "+envKafkaBrokers+")")
	flags.StringVar(&cfg.SourceTopic, "source-topic", cfg.SourceTopic, "dead letter topic to read")
	flags.StringVar(&targetTopic, "target-topic", kafka.TopicItemEvents, "topic to republish events to")
	flags.IntVar(&cfg.Limit, "limit", cfg.Limit, "max number of messages to scan")
	flags.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "stop reading a partition after this idle period")
	flags.BoolVar(&cfg.Execute, "execute", false, "republish events; default is dry-run")
	return cmd
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, chunk := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
