package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshot — состояние пула соединений на момент сбора метрик.
type PoolSnapshot struct {
	Acquired int32
	Idle     int32
	Total    int32
	Max      int32
}

// PoolCollector отдаёт состояние пула соединений при каждом scrape.
type PoolCollector struct {
	snapshot func() PoolSnapshot

	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
}

// NewPoolCollector создаёт collector поверх функции снимка состояния.
func NewPoolCollector(snapshot func() PoolSnapshot) *PoolCollector {
	return &PoolCollector{
		snapshot: snapshot,
		acquired: prometheus.NewDesc("items_pool_acquired_connections", "Connections currently checked out of the pool.", nil, nil),
		idle:     prometheus.NewDesc("items_pool_idle_connections", "Idle connections in the pool.", nil, nil),
		total:    prometheus.NewDesc("items_pool_total_connections", "Total open connections in the pool.", nil, nil),
		max:      prometheus.NewDesc("items_pool_max_connections", "Configured maximum pool size.", nil, nil),
	}
}

// Describe реализует prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
}

// Collect реализует prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.snapshot()
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.Acquired))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.Max))
}

// RegisterPoolCollector регистрирует collector пула в registerer.
func RegisterPoolCollector(registerer prometheus.Registerer, snapshot func() PoolSnapshot) *PoolCollector {
	return register(registerer, NewPoolCollector(snapshot), "items_pool")
}
