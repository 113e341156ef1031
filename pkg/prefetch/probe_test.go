package prefetch

import (
	"testing"
	"time"
)

func TestStaticProbe(t *testing.T) {
	p := NewStaticProbe(ConditionSample{Network: NetworkFast, IdleBudget: time.Second})

	if got := p.Sample(); got.Network != NetworkFast || got.SaveData {
		t.Fatalf("unexpected sample %+v", got)
	}

	p.Set(ConditionSample{Network: NetworkSlow, SaveData: true})
	if got := p.Sample(); got.Network != NetworkSlow || !got.SaveData {
		t.Fatalf("unexpected sample after Set %+v", got)
	}
}

func TestAdaptiveProbeDefaultsToMedium(t *testing.T) {
	p := NewAdaptiveProbe(time.Second)

	if got := p.Sample().Network; got != NetworkMedium {
		t.Fatalf("expected medium before observations, got %v", got)
	}
}

func TestAdaptiveProbeClassifiesLatency(t *testing.T) {
	p := NewAdaptiveProbe(time.Second)

	for i := 0; i < 5; i++ {
		p.Observe(50 * time.Millisecond)
	}
	if got := p.Sample().Network; got != NetworkFast {
		t.Fatalf("expected fast after low latencies, got %v", got)
	}

	for i := 0; i < 20; i++ {
		p.Observe(2 * time.Second)
	}
	if got := p.Sample().Network; got != NetworkSlow {
		t.Fatalf("expected slow after high latencies, got %v", got)
	}
}

func TestAdaptiveProbeFlags(t *testing.T) {
	p := NewAdaptiveProbe(5 * time.Millisecond)

	p.SetSaveData(true)
	p.SetIdleBudget(42 * time.Millisecond)

	got := p.Sample()
	if !got.SaveData || got.IdleBudget != 42*time.Millisecond {
		t.Fatalf("unexpected sample %+v", got)
	}
}

func TestNetworkClassOrdering(t *testing.T) {
	if !(NetworkSlow < NetworkMedium && NetworkMedium < NetworkFast) {
		t.Fatal("network classes must be ordered slow < medium < fast")
	}
}
