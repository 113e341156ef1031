package prefetch

import (
	"sync"
	"time"
)

// task is one unit of prefetch work tracked by the scheduler.
type task struct {
	key      ResourceKey
	priority Priority
	opts     RequestOptions

	status  TaskStatus
	attempt int

	requestedAt time.Time

	// done closes when the task reaches a terminal status; every
	// coalesced waiter is notified at once.
	done chan struct{}

	// result is valid after done closes.
	result Result

	// canceled short-circuits queued retries. In-flight attempts finish.
	canceled bool
}

// taskQueue holds pending tasks in two bounded FIFO lanes. High drains
// strictly before Low; within a lane, older requests first.
type taskQueue struct {
	mu    sync.Mutex
	high  []*task
	low   []*task
	bound int
}

func newTaskQueue(bound int) *taskQueue {
	if bound < 1 {
		bound = DefaultQueueSize
	}
	return &taskQueue{bound: bound}
}

// push enqueues a task. Returns false when the lane is full; the caller
// decides whether that means drop (speculative) or fallback (explicit).
func (q *taskQueue) push(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	lane := &q.low
	if t.priority == PriorityHigh {
		lane = &q.high
	}
	if len(*lane) >= q.bound {
		return false
	}
	*lane = append(*lane, t)
	return true
}

// popAdmissible dequeues the first task (High lane first) that the given
// predicate admits, skipping over inadmissible ones without reordering
// them. Canceled tasks are discarded on the way.
func (q *taskQueue) popAdmissible(admit func(*task) bool) *task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, lane := range []*[]*task{&q.high, &q.low} {
		kept := (*lane)[:0]
		var picked *task
		for _, t := range *lane {
			if t.canceled {
				continue
			}
			if picked == nil && admit(t) {
				picked = t
				continue
			}
			kept = append(kept, t)
		}
		*lane = kept
		if picked != nil {
			return picked
		}
	}
	return nil
}

// remove drops any queued task for the key. In-flight tasks are untouched.
func (q *taskQueue) remove(key ResourceKey) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := false
	for _, lane := range []*[]*task{&q.high, &q.low} {
		kept := (*lane)[:0]
		for _, t := range *lane {
			if t.key == key {
				t.canceled = true
				removed = true
				continue
			}
			kept = append(kept, t)
		}
		*lane = kept
	}
	return removed
}

// len returns the number of queued tasks across both lanes.
func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.high) + len(q.low)
}

// drain removes and returns every queued task.
func (q *taskQueue) drain() []*task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*task, 0, len(q.high)+len(q.low))
	out = append(out, q.high...)
	out = append(out, q.low...)
	q.high = nil
	q.low = nil
	return out
}
