package prefetch

import "testing"

func newTestTask(key string, p Priority) *task {
	return &task{
		key:      ResourceKey(key),
		priority: p,
		done:     make(chan struct{}),
	}
}

func admitAll(*task) bool { return true }

func TestQueueHighDrainsBeforeLow(t *testing.T) {
	q := newTaskQueue(16)

	q.push(newTestTask("low1", PriorityLow))
	q.push(newTestTask("high1", PriorityHigh))
	q.push(newTestTask("low2", PriorityLow))
	q.push(newTestTask("high2", PriorityHigh))

	want := []string{"high1", "high2", "low1", "low2"}
	for _, expected := range want {
		got := q.popAdmissible(admitAll)
		if got == nil || string(got.key) != expected {
			t.Fatalf("expected %s, got %v", expected, got)
		}
	}
	if q.popAdmissible(admitAll) != nil {
		t.Fatal("expected empty queue")
	}
}

func TestQueueBound(t *testing.T) {
	q := newTaskQueue(2)

	if !q.push(newTestTask("a", PriorityLow)) || !q.push(newTestTask("b", PriorityLow)) {
		t.Fatal("expected pushes within bound to succeed")
	}
	if q.push(newTestTask("c", PriorityLow)) {
		t.Fatal("expected push beyond bound to fail")
	}
	// Lanes are bounded independently.
	if !q.push(newTestTask("d", PriorityHigh)) {
		t.Fatal("expected high lane to accept")
	}
}

func TestQueuePopSkipsInadmissible(t *testing.T) {
	q := newTaskQueue(16)

	blocked := newTestTask("blocked", PriorityHigh)
	blocked.opts.RespectStreaming = true
	q.push(blocked)
	q.push(newTestTask("free", PriorityLow))

	got := q.popAdmissible(func(tk *task) bool { return !tk.opts.RespectStreaming })
	if got == nil || got.key != "free" {
		t.Fatalf("expected free, got %v", got)
	}

	// The skipped task keeps its place.
	got = q.popAdmissible(admitAll)
	if got == nil || got.key != "blocked" {
		t.Fatalf("expected blocked still queued, got %v", got)
	}
}

func TestQueueRemoveDiscardsCanceled(t *testing.T) {
	q := newTaskQueue(16)

	q.push(newTestTask("keep", PriorityLow))
	q.push(newTestTask("drop", PriorityLow))

	if !q.remove("drop") {
		t.Fatal("expected remove to report success")
	}
	if q.remove("missing") {
		t.Fatal("expected remove of unknown key to report false")
	}
	if got := q.len(); got != 1 {
		t.Fatalf("expected 1 queued task, got %d", got)
	}

	got := q.popAdmissible(admitAll)
	if got == nil || got.key != "keep" {
		t.Fatalf("expected keep, got %v", got)
	}
}

func TestQueueDrain(t *testing.T) {
	q := newTaskQueue(16)

	q.push(newTestTask("a", PriorityHigh))
	q.push(newTestTask("b", PriorityLow))

	drained := q.drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained tasks, got %d", len(drained))
	}
	if q.len() != 0 {
		t.Fatal("expected empty queue after drain")
	}
}
