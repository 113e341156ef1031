package prefetch

import (
	"sync"
	"time"
)

// MetricsSink receives scheduler events. The Prometheus implementation
// lives in pkg/metrics; a nil sink is valid and drops everything.
type MetricsSink interface {
	PrefetchStarted(priority Priority)
	PrefetchSucceeded(class ResourceClass, elapsed time.Duration)
	PrefetchFailed(reason FailureReason)
	PrefetchSkipped(gate string)
	PrefetchFallback()
	CacheHit()
	QueueDepth(depth int)
	InFlight(n int)
}

// Snapshot is a point-in-time view of the aggregate counters, shaped for
// the metrics endpoint.
type Snapshot struct {
	TotalRequested int64            `json:"totalRequested"`
	TotalSucceeded int64            `json:"totalPrefetched"`
	TotalFailed    int64            `json:"totalFailed"`
	TotalSkipped   int64            `json:"totalSkipped"`
	TotalFallback  int64            `json:"fallbacksUsed"`
	CacheHits      int64            `json:"cacheHits"`
	FailureReasons map[string]int64 `json:"failureReasons"`
	SkipGates      map[string]int64 `json:"skipGates"`

	// SuccessRate is succeeded over succeeded+failed; 1 with no attempts.
	SuccessRate   float64 `json:"successRate"`
	AvgLoadMillis float64 `json:"avgLoadMillis"`
	InFlight      int     `json:"currentlyPrefetching"`
	QueueDepth    int     `json:"queueDepth"`
	Phase         string  `json:"phase"`

	// ActiveStreams and StreamingMillis describe the stream registry at
	// snapshot time; filled by the scheduler, not the aggregator.
	ActiveStreams   int   `json:"activeStreams"`
	StreamingMillis int64 `json:"streamingDurationMs"`
}

// Aggregator accumulates scheduler counters and optionally mirrors every
// event to a MetricsSink. Skips are tracked separately from failures.
type Aggregator struct {
	mu sync.Mutex

	requested int64
	succeeded int64
	failed    int64
	skipped   int64
	fallback  int64
	cacheHits int64

	reasons map[FailureReason]int64
	gates   map[string]int64

	loadTotal time.Duration
	loadCount int64

	inFlight   int
	queueDepth int
	phase      Phase

	sink MetricsSink
}

// NewAggregator creates an aggregator mirroring to the given sink.
// A nil sink is valid.
func NewAggregator(sink MetricsSink) *Aggregator {
	return &Aggregator{
		reasons: make(map[FailureReason]int64),
		gates:   make(map[string]int64),
		sink:    sink,
	}
}

func (a *Aggregator) recordRequested(p Priority) {
	a.mu.Lock()
	a.requested++
	a.mu.Unlock()
	if a.sink != nil {
		a.sink.PrefetchStarted(p)
	}
}

func (a *Aggregator) recordSucceeded(class ResourceClass, elapsed time.Duration) {
	a.mu.Lock()
	a.succeeded++
	a.loadTotal += elapsed
	a.loadCount++
	a.mu.Unlock()
	if a.sink != nil {
		a.sink.PrefetchSucceeded(class, elapsed)
	}
}

func (a *Aggregator) recordFailed(reason FailureReason) {
	a.mu.Lock()
	a.failed++
	a.reasons[reason]++
	a.mu.Unlock()
	if a.sink != nil {
		a.sink.PrefetchFailed(reason)
	}
}

func (a *Aggregator) recordSkipped(gate string) {
	a.mu.Lock()
	a.skipped++
	a.gates[gate]++
	a.mu.Unlock()
	if a.sink != nil {
		a.sink.PrefetchSkipped(gate)
	}
}

func (a *Aggregator) recordFallback() {
	a.mu.Lock()
	a.fallback++
	a.mu.Unlock()
	if a.sink != nil {
		a.sink.PrefetchFallback()
	}
}

func (a *Aggregator) recordCacheHit() {
	a.mu.Lock()
	a.cacheHits++
	a.mu.Unlock()
	if a.sink != nil {
		a.sink.CacheHit()
	}
}

func (a *Aggregator) setGauges(inFlight, queueDepth int, phase Phase) {
	a.mu.Lock()
	a.inFlight = inFlight
	a.queueDepth = queueDepth
	a.phase = phase
	a.mu.Unlock()
	if a.sink != nil {
		a.sink.InFlight(inFlight)
		a.sink.QueueDepth(queueDepth)
	}
}

// SnapshotNow returns the current counter values.
func (a *Aggregator) SnapshotNow() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		TotalRequested: a.requested,
		TotalSucceeded: a.succeeded,
		TotalFailed:    a.failed,
		TotalSkipped:   a.skipped,
		TotalFallback:  a.fallback,
		CacheHits:      a.cacheHits,
		FailureReasons: make(map[string]int64, len(a.reasons)),
		SkipGates:      make(map[string]int64, len(a.gates)),
		InFlight:       a.inFlight,
		QueueDepth:     a.queueDepth,
		Phase:          a.phase.String(),
	}
	for r, n := range a.reasons {
		snap.FailureReasons[r.String()] = n
	}
	for g, n := range a.gates {
		snap.SkipGates[g] = n
	}
	if a.loadCount > 0 {
		snap.AvgLoadMillis = float64(a.loadTotal.Milliseconds()) / float64(a.loadCount)
	}
	if attempts := a.succeeded + a.failed; attempts > 0 {
		snap.SuccessRate = float64(a.succeeded) / float64(attempts)
	} else {
		snap.SuccessRate = 1
	}
	return snap
}
