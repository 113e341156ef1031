package prefetch

import (
	"sync"
	"time"
)

// NavigationEvent is one observed step transition.
type NavigationEvent struct {
	From string
	To   string
	At   time.Time
}

// Prediction is the tracker's estimate of upcoming navigation.
type Prediction struct {
	// Candidates are the likely next steps, most likely first.
	Candidates []string

	// Imminent reports that the user has dwelled at least 80% of this
	// step's average dwell time, so a transition is expected shortly.
	Imminent bool
}

// BehaviorTracker records step transitions in a bounded history and
// derives a navigation profile: per-step average dwell times, transition
// frequencies, and the back-navigation rate. With no history it falls
// back to the configured static step sequence.
type BehaviorTracker struct {
	mu sync.Mutex

	events   []NavigationEvent
	capacity int
	sequence []string

	// now is injectable for tests.
	now func() time.Time

	// current step and when it was entered.
	current   string
	enteredAt time.Time
}

// NewBehaviorTracker creates a tracker with the given history capacity and
// static fallback sequence. Capacity values below 1 use the default.
func NewBehaviorTracker(capacity int, sequence []string) *BehaviorTracker {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &BehaviorTracker{
		capacity: capacity,
		sequence: append([]string(nil), sequence...),
		now:      time.Now,
	}
}

// RecordVisit marks the given step as current without recording a
// transition. Used for the wizard's initial step.
func (t *BehaviorTracker) RecordVisit(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = step
	t.enteredAt = t.now()
}

// RecordTransition records a step change. The oldest event is evicted once
// the history reaches capacity.
func (t *BehaviorTracker) RecordTransition(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, NavigationEvent{From: from, To: to, At: t.now()})
	if len(t.events) > t.capacity {
		t.events = t.events[len(t.events)-t.capacity:]
	}
	t.current = to
	t.enteredAt = t.now()
}

// Current returns the current step and how long the user has been on it.
func (t *BehaviorTracker) Current() (string, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == "" {
		return "", 0
	}
	return t.current, t.now().Sub(t.enteredAt)
}

// EventCount returns the number of recorded transitions.
func (t *BehaviorTracker) EventCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// BackRate returns the fraction of recorded transitions that went to a
// step previously visited in the history. Zero with no history.
func (t *BehaviorTracker) BackRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.events) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(t.events))
	back := 0
	for _, ev := range t.events {
		if seen[ev.To] {
			back++
		}
		seen[ev.From] = true
		seen[ev.To] = true
	}
	return float64(back) / float64(len(t.events))
}

// PredictNext predicts the likely next steps from the given step, after
// the given time already spent on it.
//
// Candidates come from transition frequency out of the step, ties broken
// by recency. Without history for the step, the static sequence supplies
// the successor. Imminent is true once elapsed reaches 80% of the step's
// average dwell time; with no dwell data imminence is unknowable and
// reported false.
func (t *BehaviorTracker) PredictNext(step string, elapsed time.Duration) Prediction {
	t.mu.Lock()
	defer t.mu.Unlock()

	var pred Prediction

	// Transition frequency out of this step; lastSeen breaks ties.
	counts := make(map[string]int)
	lastSeen := make(map[string]int)
	for i, ev := range t.events {
		if ev.From != step {
			continue
		}
		counts[ev.To]++
		lastSeen[ev.To] = i
	}

	if len(counts) > 0 {
		for to := range counts {
			pred.Candidates = append(pred.Candidates, to)
		}
		sortCandidates(pred.Candidates, counts, lastSeen)
	} else if next := t.sequenceSuccessor(step); next != "" {
		pred.Candidates = []string{next}
	}

	if avg := t.avgDwellLocked(step); avg > 0 {
		pred.Imminent = float64(elapsed) >= imminentDwellFraction*float64(avg)
	}
	return pred
}

// AvgDwell returns the average time spent on the given step, computed from
// consecutive event pairs in the history. Zero with insufficient data.
func (t *BehaviorTracker) AvgDwell(step string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.avgDwellLocked(step)
}

// avgDwellLocked derives dwell samples from consecutive transitions: the
// time between arriving at a step and leaving it.
func (t *BehaviorTracker) avgDwellLocked(step string) time.Duration {
	var total time.Duration
	var n int
	for i := 1; i < len(t.events); i++ {
		if t.events[i-1].To == step && t.events[i].From == step {
			total += t.events[i].At.Sub(t.events[i-1].At)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / time.Duration(n)
}

// sequenceSuccessor returns the step after the given one in the static
// sequence, or "" when absent or last.
func (t *BehaviorTracker) sequenceSuccessor(step string) string {
	for i, s := range t.sequence {
		if s == step && i+1 < len(t.sequence) {
			return t.sequence[i+1]
		}
	}
	return ""
}

// sortCandidates orders candidates by descending count, then by recency.
func sortCandidates(cands []string, counts, lastSeen map[string]int) {
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0; j-- {
			a, b := cands[j-1], cands[j]
			if counts[b] > counts[a] || (counts[b] == counts[a] && lastSeen[b] > lastSeen[a]) {
				cands[j-1], cands[j] = b, a
			} else {
				break
			}
		}
	}
}
