package prefetch

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAggregatorCounters(t *testing.T) {
	agg := NewAggregator(nil)

	agg.recordRequested(PriorityHigh)
	agg.recordRequested(PriorityLow)
	agg.recordSucceeded(ClassCode, 40*time.Millisecond)
	agg.recordSucceeded(ClassCode, 60*time.Millisecond)
	agg.recordFailed(ReasonNetwork)
	agg.recordSkipped("save_data")
	agg.recordFallback()
	agg.recordCacheHit()

	snap := agg.SnapshotNow()
	if snap.TotalRequested != 2 {
		t.Errorf("TotalRequested = %d, want 2", snap.TotalRequested)
	}
	if snap.TotalSucceeded != 2 || snap.TotalFailed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 2/1", snap.TotalSucceeded, snap.TotalFailed)
	}
	if snap.TotalSkipped != 1 || snap.TotalFallback != 1 || snap.CacheHits != 1 {
		t.Errorf("skipped/fallback/cacheHits = %d/%d/%d, want 1/1/1",
			snap.TotalSkipped, snap.TotalFallback, snap.CacheHits)
	}
	if snap.FailureReasons["network_error"] != 1 {
		t.Errorf("FailureReasons = %v, want network_error:1", snap.FailureReasons)
	}
	if snap.SkipGates["save_data"] != 1 {
		t.Errorf("SkipGates = %v, want save_data:1", snap.SkipGates)
	}
	if snap.AvgLoadMillis != 50 {
		t.Errorf("AvgLoadMillis = %v, want 50", snap.AvgLoadMillis)
	}
}

func TestSnapshotWireNames(t *testing.T) {
	raw, err := json.Marshal(Snapshot{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// The metrics endpoint contract: consumers key off these names.
	for _, name := range []string{
		"totalRequested",
		"totalPrefetched",
		"totalFailed",
		"currentlyPrefetching",
		"successRate",
		"fallbacksUsed",
		"activeStreams",
		"streamingDurationMs",
	} {
		if _, ok := fields[name]; !ok {
			t.Errorf("snapshot is missing wire field %q (got %v)", name, fields)
		}
	}
}

func TestAggregatorSuccessRate(t *testing.T) {
	agg := NewAggregator(nil)

	// No attempts yet reads as fully healthy.
	if got := agg.SnapshotNow().SuccessRate; got != 1 {
		t.Fatalf("SuccessRate with no attempts = %v, want 1", got)
	}

	agg.recordSucceeded(ClassCode, time.Millisecond)
	agg.recordSucceeded(ClassCode, time.Millisecond)
	agg.recordSucceeded(ClassCode, time.Millisecond)
	agg.recordFailed(ReasonTimeout)

	if got := agg.SnapshotNow().SuccessRate; got != 0.75 {
		t.Errorf("SuccessRate = %v, want 0.75", got)
	}

	// Skips are not attempts and leave the rate untouched.
	agg.recordSkipped("network_class")
	if got := agg.SnapshotNow().SuccessRate; got != 0.75 {
		t.Errorf("SuccessRate after skip = %v, want 0.75", got)
	}
}
