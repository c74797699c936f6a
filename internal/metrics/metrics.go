// Package metrics exposes Prometheus counters for the poll loop.
//
// Collectors live on a private registry so that several bots, or tests,
// can run in one process without colliding on the global default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statusbot"

// Cycle is the summary of one poll cycle as seen by the metrics layer.
type Cycle struct {
	Outcome   string
	Stage     string
	ErrorKind string
	Delivered bool
	Duration  time.Duration
	At        time.Time
}

// Metrics holds the poll loop collectors.
//
// All methods are safe on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal        *prometheus.CounterVec
	FailuresTotal      *prometheus.CounterVec
	NotificationsTotal prometheus.Counter
	LastCycle          prometheus.Gauge
	CycleDuration      prometheus.Histogram
}

// New creates and registers the collectors on a fresh registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	m.FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_failures_total",
			Help:      "Total number of failed poll cycles by stage and error kind",
		},
		[]string{"stage", "kind"},
	)

	m.NotificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of chat messages delivered",
		},
	)

	m.LastCycle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time at which the last poll cycle finished",
		},
	)

	m.CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of poll cycles in seconds, excluding the retry sleep",
			Buckets:   prometheus.DefBuckets,
		},
	)

	m.registry.MustRegister(
		m.CyclesTotal,
		m.FailuresTotal,
		m.NotificationsTotal,
		m.LastCycle,
		m.CycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Observe records one finished cycle.
func (m *Metrics) Observe(c Cycle) {
	if m == nil {
		return
	}

	m.CyclesTotal.WithLabelValues(c.Outcome).Inc()
	if c.Stage != "" {
		m.FailuresTotal.WithLabelValues(c.Stage, c.ErrorKind).Inc()
	}
	if c.Delivered {
		m.NotificationsTotal.Inc()
	}
	if !c.At.IsZero() {
		m.LastCycle.Set(float64(c.At.Unix()))
	}
	m.CycleDuration.Observe(c.Duration.Seconds())
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
