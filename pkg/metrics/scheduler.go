// Package metrics exposes Prometheus instrumentation for the prefetch
// scheduler. All methods are nil-safe: a nil *SchedulerMetrics drops every
// observation, so callers never need to guard instrumentation sites.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// Label constants for scheduler metrics.
const (
	LabelPriority = "priority"
	LabelClass    = "class"
	LabelReason   = "reason"
	LabelGate     = "gate"
)

// SchedulerMetrics implements prefetch.MetricsSink on top of Prometheus.
type SchedulerMetrics struct {
	startedTotal   *prometheus.CounterVec
	succeededTotal *prometheus.CounterVec
	failedTotal    *prometheus.CounterVec
	skippedTotal   *prometheus.CounterVec
	fallbackTotal  prometheus.Counter
	cacheHitsTotal prometheus.Counter

	loadDuration *prometheus.HistogramVec

	inFlightGauge   prometheus.Gauge
	queueDepthGauge prometheus.Gauge
}

// NewSchedulerMetrics creates and registers scheduler metrics.
// If registry is nil, metrics are created but not registered (useful for
// testing).
func NewSchedulerMetrics(registry prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		startedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "requests_total",
				Help:      "Total number of prefetch requests",
			},
			[]string{LabelPriority},
		),

		succeededTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "succeeded_total",
				Help:      "Total number of successful prefetch loads",
			},
			[]string{LabelClass},
		),

		failedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "failed_total",
				Help:      "Total number of failed load attempts by reason",
			},
			[]string{LabelReason},
		),

		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "skipped_total",
				Help:      "Total number of requests skipped by admission gates",
			},
			[]string{LabelGate},
		),

		fallbackTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "fallback_total",
				Help:      "Total number of requests resolved as fallback",
			},
		),

		cacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "cache_hits_total",
				Help:      "Total number of requests served from the resource cache",
			},
		),

		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "load_duration_seconds",
				Help:      "Duration of successful prefetch loads",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{LabelClass},
		),

		inFlightGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "in_flight",
				Help:      "Number of load attempts currently in flight",
			},
		),

		queueDepthGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "prefetchd",
				Subsystem: "scheduler",
				Name:      "queue_depth",
				Help:      "Number of tasks waiting in the priority queues",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.startedTotal,
			m.succeededTotal,
			m.failedTotal,
			m.skippedTotal,
			m.fallbackTotal,
			m.cacheHitsTotal,
			m.loadDuration,
			m.inFlightGauge,
			m.queueDepthGauge,
		)
	}
	return m
}

// PrefetchStarted counts a prefetch request.
func (m *SchedulerMetrics) PrefetchStarted(priority prefetch.Priority) {
	if m == nil {
		return
	}
	m.startedTotal.WithLabelValues(priority.String()).Inc()
}

// PrefetchSucceeded counts a successful load and observes its duration.
func (m *SchedulerMetrics) PrefetchSucceeded(class prefetch.ResourceClass, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.succeededTotal.WithLabelValues(class.String()).Inc()
	m.loadDuration.WithLabelValues(class.String()).Observe(elapsed.Seconds())
}

// PrefetchFailed counts a failed load attempt.
func (m *SchedulerMetrics) PrefetchFailed(reason prefetch.FailureReason) {
	if m == nil {
		return
	}
	m.failedTotal.WithLabelValues(reason.String()).Inc()
}

// PrefetchSkipped counts an admission-gate skip.
func (m *SchedulerMetrics) PrefetchSkipped(gate string) {
	if m == nil {
		return
	}
	m.skippedTotal.WithLabelValues(gate).Inc()
}

// PrefetchFallback counts a request resolved as fallback.
func (m *SchedulerMetrics) PrefetchFallback() {
	if m == nil {
		return
	}
	m.fallbackTotal.Inc()
}

// CacheHit counts a request served from the cache.
func (m *SchedulerMetrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

// QueueDepth updates the queue depth gauge.
func (m *SchedulerMetrics) QueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepthGauge.Set(float64(depth))
}

// InFlight updates the in-flight gauge.
func (m *SchedulerMetrics) InFlight(n int) {
	if m == nil {
		return
	}
	m.inFlightGauge.Set(float64(n))
}
