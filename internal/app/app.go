// Package app собирает items-service из хранилища, HTTP API, outbox и метрик.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/items/internal/health"
	"github.com/vladislavdragonenkov/items/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/items/internal/metrics"
	"github.com/vladislavdragonenkov/items/internal/service/httpapi"
	"github.com/vladislavdragonenkov/items/internal/service/items"
	"github.com/vladislavdragonenkov/items/internal/version"
)

const readHeaderTimeout = 5 * time.Second

// Run запускает сервис и блокируется до отмены ctx или ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	if deps.pool != nil {
		collector := metrics.RegisterPoolCollector(prometheus.DefaultRegisterer, deps.poolSnapshot)
		defer prometheus.DefaultRegisterer.Unregister(collector)
	}

	serviceOpts := []items.Option{
		items.WithLogger(logger.WithField("layer", "service")),
		items.WithMetrics(metrics.NewItemMetrics()),
	}

	var (
		producer     *kafka.Producer
		cancelWorker context.CancelFunc
		workerDone   <-chan struct{}
	)
	if cfg.outboxEnabled() {
		producer = initKafkaProducer(cfg.KafkaBrokers, logger)
	}
	if producer != nil {
		serviceOpts = append(serviceOpts, items.WithOutbox(deps.outboxRepo))
		cancelWorker, workerDone = startOutboxWorker(ctx, cfg, deps.outboxRepo,
			kafka.NewOutboxPublisher(producer, kafka.TopicItemEvents),
			kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue),
			logger,
		)
	}

	svc := items.NewService(deps.repo, serviceOpts...)
	handler := httpapi.NewRouter(svc,
		httpapi.WithLogger(logger.WithField("layer", "http")),
		httpapi.WithMetrics(metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)),
	)

	healthHandler := newHealthHandler(cfg, deps, producer != nil)
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	lis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		shutdownHTTP(metricsSrv, cfg.shutdownTimeout(), logger)
		shutdownOutboxWorker(cancelWorker, workerDone, cfg.shutdownTimeout(), logger)
		closeKafka(producer, logger)
		return fmt.Errorf("listen http: %w", err)
	}

	httpSrv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP сервер слушает %s", lis.Addr())
		errCh <- httpSrv.Serve(lis)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		runErr = ctx.Err()
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	shutdownHTTP(httpSrv, cfg.shutdownTimeout(), logger)
	shutdownOutboxWorker(cancelWorker, workerDone, cfg.shutdownTimeout(), logger)
	closeKafka(producer, logger)
	shutdownHTTP(metricsSrv, cfg.shutdownTimeout(), logger)

	return runErr
}

// newHealthHandler регистрирует проверки хранилища и, при включённом outbox, его backlog.
func newHealthHandler(cfg Config, deps *runtimeDependencies, outboxEnabled bool) *healthcheck.Handler {
	h := healthcheck.NewHandler(version.GetVersion())
	h.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", deps.ping))

	if outboxEnabled && deps.outboxRepo != nil {
		maxPending := cfg.OutboxMaxPending
		h.RegisterChecker("outbox", healthcheck.NewDegradingChecker("outbox", func(ctx context.Context) error {
			stats, err := deps.outboxRepo.Stats(ctx)
			if err != nil {
				return err
			}
			if maxPending > 0 && stats.PendingCount > maxPending {
				return fmt.Errorf("outbox backlog %d exceeds %d", stats.PendingCount, maxPending)
			}
			return nil
		}))
	}
	return h
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus и health endpoints.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, 5*time.Second, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
