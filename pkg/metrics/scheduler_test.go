package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

func TestSchedulerMetricsNilSafe(t *testing.T) {
	var m *SchedulerMetrics

	// None of these may panic on a nil receiver.
	m.PrefetchStarted(prefetch.PriorityHigh)
	m.PrefetchSucceeded(prefetch.ClassCode, time.Second)
	m.PrefetchFailed(prefetch.ReasonTimeout)
	m.PrefetchSkipped("save_data")
	m.PrefetchFallback()
	m.CacheHit()
	m.QueueDepth(3)
	m.InFlight(1)
}

func TestSchedulerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetrics(registry)

	m.PrefetchStarted(prefetch.PriorityHigh)
	m.PrefetchStarted(prefetch.PriorityLow)
	m.PrefetchFailed(prefetch.ReasonNetwork)
	m.PrefetchFailed(prefetch.ReasonNetwork)
	m.PrefetchSkipped("network_class")
	m.PrefetchFallback()
	m.CacheHit()

	if got := testutil.ToFloat64(m.startedTotal.WithLabelValues("high")); got != 1 {
		t.Fatalf("expected 1 high request, got %v", got)
	}
	if got := testutil.ToFloat64(m.failedTotal.WithLabelValues("network_error")); got != 2 {
		t.Fatalf("expected 2 network failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.skippedTotal.WithLabelValues("network_class")); got != 1 {
		t.Fatalf("expected 1 skip, got %v", got)
	}
	if got := testutil.ToFloat64(m.fallbackTotal); got != 1 {
		t.Fatalf("expected 1 fallback, got %v", got)
	}
	if got := testutil.ToFloat64(m.cacheHitsTotal); got != 1 {
		t.Fatalf("expected 1 cache hit, got %v", got)
	}
}

func TestSchedulerMetricsGauges(t *testing.T) {
	m := NewSchedulerMetrics(nil)

	m.InFlight(2)
	m.QueueDepth(7)

	if got := testutil.ToFloat64(m.inFlightGauge); got != 2 {
		t.Fatalf("expected in-flight 2, got %v", got)
	}
	if got := testutil.ToFloat64(m.queueDepthGauge); got != 7 {
		t.Fatalf("expected queue depth 7, got %v", got)
	}
}

func TestSchedulerMetricsImplementsSink(t *testing.T) {
	var _ prefetch.MetricsSink = NewSchedulerMetrics(nil)
	var _ prefetch.MetricsSink = (*SchedulerMetrics)(nil)
}
