package prefetch

import (
	"sync"
	"time"
)

// ConditionSample is a snapshot of the resource conditions relevant to
// admission. Unknown network signals map to NetworkMedium.
type ConditionSample struct {
	// Network is the current connection-quality class.
	Network NetworkClass

	// SaveData reports an explicit data-saving preference. When set, all
	// prefetching is suppressed (skipped, not failed).
	SaveData bool

	// IdleBudget estimates the processing budget currently available for
	// background work. Below the configured minimum, admission defers.
	IdleBudget time.Duration
}

// ConditionProbe supplies condition samples to the scheduler. Probes must
// be safe for concurrent use.
type ConditionProbe interface {
	Sample() ConditionSample
}

// ============================================================================
// Static probe
// ============================================================================

// StaticProbe returns a fixed sample, mutable between calls. Useful for
// tests and for deployments that wire condition data in from elsewhere.
type StaticProbe struct {
	mu     sync.Mutex
	sample ConditionSample
}

// NewStaticProbe creates a probe reporting the given sample.
func NewStaticProbe(sample ConditionSample) *StaticProbe {
	return &StaticProbe{sample: sample}
}

// Sample returns the current sample.
func (p *StaticProbe) Sample() ConditionSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sample
}

// Set replaces the sample.
func (p *StaticProbe) Set(sample ConditionSample) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sample = sample
}

// ============================================================================
// Adaptive probe
// ============================================================================

// Latency boundaries for deriving a network class from observed loads.
const (
	fastLatencyCeiling = 150 * time.Millisecond
	slowLatencyFloor   = 800 * time.Millisecond

	// ewmaAlpha weights the newest observation.
	ewmaAlpha = 0.3
)

// AdaptiveProbe derives the network class from an exponentially weighted
// moving average of observed load latencies. SaveData and IdleBudget are
// set explicitly by the embedding application.
type AdaptiveProbe struct {
	mu         sync.Mutex
	avgLatency time.Duration
	observed   bool
	saveData   bool
	idleBudget time.Duration
}

// NewAdaptiveProbe creates a probe with the given initial idle budget.
// Until the first observation the network class is NetworkMedium.
func NewAdaptiveProbe(idleBudget time.Duration) *AdaptiveProbe {
	return &AdaptiveProbe{idleBudget: idleBudget}
}

// Observe feeds a completed load's latency into the moving average.
func (p *AdaptiveProbe) Observe(latency time.Duration) {
	if latency <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.observed {
		p.avgLatency = latency
		p.observed = true
		return
	}
	p.avgLatency = time.Duration(ewmaAlpha*float64(latency) + (1-ewmaAlpha)*float64(p.avgLatency))
}

// SetSaveData updates the data-saving preference.
func (p *AdaptiveProbe) SetSaveData(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveData = on
}

// SetIdleBudget updates the reported idle budget.
func (p *AdaptiveProbe) SetIdleBudget(budget time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idleBudget = budget
}

// Sample derives the current condition sample.
func (p *AdaptiveProbe) Sample() ConditionSample {
	p.mu.Lock()
	defer p.mu.Unlock()

	network := NetworkMedium
	if p.observed {
		switch {
		case p.avgLatency <= fastLatencyCeiling:
			network = NetworkFast
		case p.avgLatency >= slowLatencyFloor:
			network = NetworkSlow
		}
	}
	return ConditionSample{
		Network:    network,
		SaveData:   p.saveData,
		IdleBudget: p.idleBudget,
	}
}
