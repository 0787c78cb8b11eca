package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для label result.
const (
	ResultOK         = "ok"
	ResultNotFound   = "not_found"
	ResultInvalid    = "invalid"
	ResultStoreError = "error"
)

// ItemMetrics содержит метрики операций над items.
type ItemMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	events     *prometheus.CounterVec
}

// NewItemMetrics создаёт метрики в DefaultRegisterer.
func NewItemMetrics() *ItemMetrics {
	return NewItemMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewItemMetricsWithRegisterer создаёт метрики в переданном registerer (удобно для тестов).
func NewItemMetricsWithRegisterer(registerer prometheus.Registerer) *ItemMetrics {
	return &ItemMetrics{
		operations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "items_repository_operations_total",
			Help: "Total number of item repository operations grouped by operation and result.",
		}, []string{"operation", "result"}), "items_repository_operations_total"),
		duration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "items_repository_operation_duration_seconds",
			Help:    "Duration of item repository operations in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}), "items_repository_operation_duration_seconds"),
		events: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "items_outbox_events_total",
			Help: "Total number of item change events recorded to the outbox grouped by result.",
		}, []string{"event_type", "result"}), "items_outbox_events_total"),
	}
}

// RecordOperation фиксирует результат и длительность операции.
func (m *ItemMetrics) RecordOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOutboxEvent фиксирует постановку события в outbox.
func (m *ItemMetrics) RecordOutboxEvent(eventType string, ok bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultStoreError
	}
	m.events.WithLabelValues(eventType, result).Inc()
}
