package prefetch

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// StreamRegistry tracks active AI-streaming sessions. The scheduler keys
// its admission phases to how long the earliest still-active stream has
// been running, so prefetching never competes with stream establishment.
type StreamRegistry struct {
	mu      sync.Mutex
	active  map[string]time.Time
	stopped time.Time

	// now is injectable for tests.
	now func() time.Time
}

// NewStreamRegistry creates an empty registry.
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		active: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Register records a stream as active and returns its id. An empty id is
// replaced with a generated one. Re-registering an id keeps the original
// start time.
func (r *StreamRegistry) Register(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := r.active[id]; !ok {
		r.active[id] = r.now()
	}
	return id
}

// Unregister marks a stream as finished. Unknown ids are ignored.
func (r *StreamRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[id]; !ok {
		return
	}
	delete(r.active, id)
	r.stopped = r.now()
}

// IsAnyActive reports whether at least one stream is currently running.
func (r *StreamRegistry) IsAnyActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active) > 0
}

// ActiveCount returns the number of currently running streams.
func (r *StreamRegistry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// ActiveDuration returns how long the earliest still-active stream has
// been running, or zero when nothing is active.
func (r *StreamRegistry) ActiveDuration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) == 0 {
		return 0
	}
	earliest := time.Time{}
	for _, started := range r.active {
		if earliest.IsZero() || started.Before(earliest) {
			earliest = started
		}
	}
	return r.now().Sub(earliest)
}

// JustCompleted reports whether the last stream finished within the given
// window and nothing is active anymore. The scheduler uses this to trigger
// a high-priority burst right after a stream ends.
func (r *StreamRegistry) JustCompleted(window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) > 0 || r.stopped.IsZero() {
		return false
	}
	return r.now().Sub(r.stopped) <= window
}
