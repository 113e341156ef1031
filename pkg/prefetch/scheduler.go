package prefetch

import (
	"context"
	"sync"
	"time"

	"github.com/mstellato/prefetchd/internal/logger"
)

// Cache holds prefetched resource bytes. Implementations live in
// pkg/store; a nil cache is valid and behaves as always-miss.
type Cache interface {
	Get(key ResourceKey) ([]byte, bool)
	Put(key ResourceKey, data []byte)
	Delete(key ResourceKey)
}

// SchedulerDeps carries the scheduler's collaborators. Loader is required;
// everything else has a working default.
type SchedulerDeps struct {
	Loader  Loader
	Probe   ConditionProbe
	Cache   Cache
	Metrics MetricsSink
}

// Scheduler orchestrates prefetching: admission against resource
// conditions and streaming phases, priority ordering, bounded concurrency,
// retry with exponential backoff, cooldown, and graceful fallback.
//
// Request never returns an error. Every request resolves to loaded bytes,
// a cache hit, an explicit skip, or a fallback marker.
type Scheduler struct {
	mu sync.Mutex

	cfg      Config
	strategy FallbackStrategy

	registry *StreamRegistry
	probe    ConditionProbe
	tracker  *BehaviorTracker
	ledger   *FailureLedger
	executor *Executor
	cache    Cache
	metrics  *Aggregator

	queue *taskQueue
	tasks map[ResourceKey]*task

	inFlight       int
	streamInFlight int
	phase          Phase
	phaseCap       int
	gated          bool

	timers map[ResourceKey]*time.Timer

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. Zero config values take the package
// defaults; a nil probe reports medium network with a generous idle budget.
func NewScheduler(cfg Config, deps SchedulerDeps) *Scheduler {
	cfg.applyDefaults()

	probe := deps.Probe
	if probe == nil {
		probe = NewStaticProbe(ConditionSample{
			Network:    NetworkMedium,
			IdleBudget: time.Second,
		})
	}

	s := &Scheduler{
		cfg: cfg,
		strategy: FallbackStrategy{
			MaxRetries:                cfg.MaxAttempts,
			RetryDelay:                cfg.BaseDelay,
			FallbackTimeout:           cfg.AttemptTimeout,
			EnableGracefulDegradation: true,
		},
		registry: NewStreamRegistry(),
		probe:    probe,
		tracker:  NewBehaviorTracker(cfg.HistoryCapacity, cfg.StepSequence),
		ledger:   NewFailureLedger(cfg.MaxAttempts, cfg.CooldownWindow),
		executor: NewExecutor(deps.Loader, cfg.AttemptTimeout),
		cache:    deps.Cache,
		metrics:  NewAggregator(deps.Metrics),
		queue:    newTaskQueue(cfg.QueueSize),
		tasks:    make(map[ResourceKey]*task),
		timers:   make(map[ResourceKey]*time.Timer),
		// No stream registered yet, so speculation starts unrestricted.
		phase:    PhaseBurst,
		phaseCap: cfg.MaxConcurrent,
		closeCh:  make(chan struct{}),
	}

	if adaptive, ok := probe.(*AdaptiveProbe); ok {
		s.executor.SetLatencyObserver(adaptive.Observe)
	}
	return s
}

// Registry exposes the stream registry for the embedding application.
func (s *Scheduler) Registry() *StreamRegistry { return s.registry }

// Tracker exposes the behavior tracker for the embedding application.
func (s *Scheduler) Tracker() *BehaviorTracker { return s.tracker }

// ============================================================================
// Requests
// ============================================================================

// Request asks for a resource to be prefetched and blocks until the task
// resolves or ctx is done. Coalesces with any pending task for the same
// key. When ctx ends first the result is OutcomeDetached and the load
// continues in the background, still populating the cache.
func (s *Scheduler) Request(ctx context.Context, key ResourceKey, opts RequestOptions) Result {
	t, res, resolved := s.admitRequest(key, opts)
	if resolved {
		return res
	}

	select {
	case <-t.done:
		return t.result
	case <-ctx.Done():
		return Result{Key: key, Outcome: OutcomeDetached}
	}
}

// RequestAsync enqueues a prefetch without waiting. The returned channel
// closes when the task resolves; nil when the request resolved immediately.
func (s *Scheduler) RequestAsync(key ResourceKey, opts RequestOptions) (Result, <-chan struct{}) {
	t, res, resolved := s.admitRequest(key, opts)
	if resolved {
		return res, nil
	}
	return Result{Key: key}, t.done
}

// admitRequest runs the admission chain. It either resolves the request on
// the spot (cache hit, cooldown, skip gates, closed scheduler, full queue)
// or returns the pending task to wait on.
func (s *Scheduler) admitRequest(key ResourceKey, opts RequestOptions) (*task, Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.recordRequested(opts.Priority)

	if s.closed {
		s.metrics.recordFallback()
		return nil, Result{Key: key, Outcome: OutcomeFallback}, true
	}

	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			s.metrics.recordCacheHit()
			return nil, Result{Key: key, Outcome: OutcomeCached, Data: data}, true
		}
	}

	if existing, ok := s.tasks[key]; ok {
		return existing, Result{}, false
	}

	if s.ledger.InCooldown(key) {
		s.metrics.recordFallback()
		return nil, Result{Key: key, Outcome: OutcomeFallback, Reason: s.ledger.LastReason(key)}, true
	}

	sample := s.probe.Sample()
	if sample.SaveData {
		s.metrics.recordSkipped("save_data")
		return nil, Result{Key: key, Outcome: OutcomeSkipped, SkipReason: "save_data"}, true
	}

	threshold := s.cfg.NetworkThreshold
	if opts.HasNetworkThreshold {
		threshold = opts.NetworkThreshold
	}
	if sample.Network < threshold && opts.Priority == PriorityLow {
		s.metrics.recordSkipped("network_class")
		return nil, Result{Key: key, Outcome: OutcomeSkipped, SkipReason: "network_class"}, true
	}

	// A request can land between ticks, right after a stream started or
	// ended. Realign the phase with the registry before admitting.
	s.refreshPhaseLocked()

	// A thin idle budget defers admission rather than skipping.
	s.gated = sample.IdleBudget < s.cfg.MinIdleBudget

	t := &task{
		key:         key,
		priority:    opts.Priority,
		opts:        opts,
		status:      StatusPending,
		requestedAt: time.Now(),
		done:        make(chan struct{}),
	}
	if !s.queue.push(t) {
		s.metrics.recordFallback()
		return nil, Result{Key: key, Outcome: OutcomeFallback}, true
	}
	s.tasks[key] = t
	s.pumpLocked()
	return t, Result{}, false
}

// Cancel short-circuits any queued task or pending retry for the key.
// An attempt already in flight runs to completion. Returns true when
// something was canceled.
func (s *Scheduler) Cancel(key ResourceKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[key]
	if !ok || t.status == StatusInFlight {
		return false
	}
	t.canceled = true
	s.queue.remove(key)
	if timer := s.timers[key]; timer != nil {
		timer.Stop()
		delete(s.timers, key)
	}
	s.metrics.recordFallback()
	s.finishLocked(t, Result{Key: key, Outcome: OutcomeFallback, Reason: s.ledger.LastReason(key)})
	return true
}

// ============================================================================
// Admission pump
// ============================================================================

// pumpLocked admits queued tasks while capacity allows. Streaming-aware
// tasks are additionally gated by the current phase cap.
func (s *Scheduler) pumpLocked() {
	if s.closed {
		return
	}
	for !s.gated && s.inFlight < s.cfg.MaxConcurrent {
		t := s.queue.popAdmissible(s.admitLocked)
		if t == nil {
			break
		}
		t.status = StatusInFlight
		t.attempt++
		s.inFlight++
		if t.opts.RespectStreaming {
			s.streamInFlight++
		}
		s.wg.Add(1)
		go s.runTask(t)
	}
	s.metrics.setGauges(s.inFlight, s.queue.len(), s.phase)
}

// admitLocked applies per-task phase gates. Tasks that opt out of
// streaming awareness only contend for the global cap.
func (s *Scheduler) admitLocked(t *task) bool {
	if !t.opts.RespectStreaming {
		return true
	}
	if s.phase == PhaseHold {
		return false
	}
	return s.streamInFlight < s.phaseCap
}

// runTask executes one attempt and routes the result: success, scheduled
// retry, or terminal fallback. Runs on its own goroutine.
func (s *Scheduler) runTask(t *task) {
	defer s.wg.Done()

	res := s.executor.Execute(context.Background(), t.key, t.attempt)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight--
	if t.opts.RespectStreaming {
		s.streamInFlight--
	}

	if !res.Failed {
		if s.cache != nil {
			s.cache.Put(t.key, res.Data)
		}
		s.ledger.RecordSuccess(t.key)
		s.metrics.recordSucceeded(t.opts.Class, res.Elapsed)
		s.finishLocked(t, Result{Key: t.key, Outcome: OutcomeLoaded, Data: res.Data})
		s.pumpLocked()
		return
	}

	attempts := s.ledger.RecordFailure(t.key, res.Reason)
	s.metrics.recordFailed(res.Reason)

	if t.canceled || s.closed || attempts >= s.attemptBudgetLocked(t) {
		s.metrics.recordFallback()
		logger.Warn("prefetch exhausted, falling back",
			"resource", string(t.key),
			"attempts", attempts,
			"reason", res.Reason.String())
		s.finishLocked(t, Result{Key: t.key, Outcome: OutcomeFallback, Reason: res.Reason})
		s.pumpLocked()
		return
	}

	// Retry after backoff. The task leaves flight and re-enters the queue
	// when its timer fires.
	t.status = StatusPending
	delay := backoffDelay(s.cfg.BaseDelay, s.cfg.MaxDelay, t.attempt+1)
	key := t.key
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.timers, key)
		if s.closed || t.canceled {
			return
		}
		if !s.queue.push(t) {
			s.metrics.recordFallback()
			s.finishLocked(t, Result{Key: key, Outcome: OutcomeFallback, Reason: res.Reason})
			return
		}
		s.pumpLocked()
	})
	s.pumpLocked()
}

// attemptBudgetLocked returns the total attempts a task may consume.
// Non-critical classes get a single best-effort attempt; with graceful
// degradation disabled the first failure is final.
func (s *Scheduler) attemptBudgetLocked(t *task) int {
	if !t.opts.Class.Critical() {
		return 1
	}
	if !s.strategy.EnableGracefulDegradation {
		return 1
	}
	return s.cfg.MaxAttempts
}

// finishLocked moves a task to a terminal status and wakes all waiters.
func (s *Scheduler) finishLocked(t *task, res Result) {
	if t.status.Terminal() {
		return
	}
	switch res.Outcome {
	case OutcomeLoaded, OutcomeCached:
		t.status = StatusSucceeded
	default:
		t.status = StatusFallback
	}
	t.result = res
	delete(s.tasks, t.key)
	close(t.done)
}

// backoffDelay computes the wait before the given attempt number
// (1-based): min(base * 2^(attempt-1), max). The first attempt runs
// without waiting.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// ============================================================================
// Periodic tick
// ============================================================================

// Tick samples conditions, recomputes the streaming phase, and enqueues
// speculative prefetches for predicted steps. Safe to call at any time;
// Start drives it on the configured interval.
func (s *Scheduler) Tick() {
	sample := s.probe.Sample()
	active := s.registry.IsAnyActive()
	dur := s.registry.ActiveDuration()
	just := s.registry.JustCompleted(s.cfg.TickInterval)
	current, elapsed := s.tracker.Current()
	pred := s.tracker.PredictNext(current, elapsed)

	s.tickWith(sample, active, dur, just, current, pred)
}

// tickWith is the testable body of Tick with all inputs explicit.
func (s *Scheduler) tickWith(sample ConditionSample, streamActive bool, streamDur time.Duration, justCompleted bool, current string, pred Prediction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	phase, phaseCap, lookahead, prio := s.classifyPhaseLocked(streamActive, streamDur, justCompleted)
	s.phase = phase
	s.phaseCap = phaseCap
	s.gated = sample.IdleBudget < s.cfg.MinIdleBudget

	if !sample.SaveData && !s.gated && phase != PhaseHold && current != "" {
		if pred.Imminent || phase == PhaseBurst {
			s.speculateLocked(current, pred, lookahead, prio)
		}
	}

	s.pumpLocked()
}

// refreshPhaseLocked recomputes the cached phase from the registry's
// current state. The tick keeps the phase fresh on its interval; this
// covers admissions arriving in between.
func (s *Scheduler) refreshPhaseLocked() {
	phase, phaseCap, _, _ := s.classifyPhaseLocked(
		s.registry.IsAnyActive(),
		s.registry.ActiveDuration(),
		s.registry.JustCompleted(s.cfg.TickInterval),
	)
	s.phase = phase
	s.phaseCap = phaseCap
}

// classifyPhaseLocked maps streaming state to an admission phase, its
// concurrency cap, prediction lookahead, and speculative priority.
func (s *Scheduler) classifyPhaseLocked(active bool, dur time.Duration, justCompleted bool) (Phase, int, int, Priority) {
	if !active {
		prio := PriorityLow
		if justCompleted {
			prio = PriorityHigh
		}
		return PhaseBurst, s.cfg.MaxConcurrent, 2, prio
	}
	switch {
	case dur < s.cfg.StreamWarmup:
		return PhaseHold, 0, 0, PriorityLow
	case dur < s.cfg.StreamSteady:
		return PhaseSingle, 1, 1, PriorityLow
	case dur < s.cfg.StreamLongRunning:
		return PhaseDual, 2, 2, PriorityLow
	default:
		return PhaseBurst, s.cfg.MaxConcurrent, 2, PriorityHigh
	}
}

// speculateLocked enqueues prefetch tasks for the resources backing the
// predicted next steps. Full lanes drop speculative work silently.
func (s *Scheduler) speculateLocked(current string, pred Prediction, lookahead int, prio Priority) {
	steps := pred.Candidates
	if len(steps) > lookahead {
		steps = steps[:lookahead]
	}
	for _, step := range steps {
		for _, key := range s.cfg.StepResources[step] {
			if s.cache != nil {
				if _, ok := s.cache.Get(key); ok {
					continue
				}
			}
			if _, pending := s.tasks[key]; pending {
				continue
			}
			if s.ledger.InCooldown(key) {
				continue
			}
			t := &task{
				key:      key,
				priority: prio,
				opts: RequestOptions{
					Priority:         prio,
					Class:            ClassCode,
					RespectStreaming: true,
				},
				status:      StatusPending,
				requestedAt: time.Now(),
				done:        make(chan struct{}),
			}
			if !s.queue.push(t) {
				return
			}
			s.tasks[key] = t
			logger.Debug("speculative prefetch queued",
				"resource", string(key),
				"step", step,
				"priority", prio.String(),
				"phase", s.phase.String())
		}
	}
}

// Start runs the periodic tick until ctx is done or the scheduler closes.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	logger.Info("prefetch scheduler started", "tick", s.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// ============================================================================
// Administration
// ============================================================================

// ConfigureFallbackStrategy validates and applies runtime degradation
// knobs. Invalid strategies are rejected whole; the previous strategy
// stays in force. Returns ErrSchedulerClosed after Close.
func (s *Scheduler) ConfigureFallbackStrategy(fs FallbackStrategy) error {
	if err := fs.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}

	s.strategy = fs
	s.cfg.MaxAttempts = fs.MaxRetries
	s.cfg.BaseDelay = fs.RetryDelay
	s.cfg.AttemptTimeout = fs.FallbackTimeout
	s.executor.SetTimeout(fs.FallbackTimeout)
	s.ledger.SetLimits(fs.MaxRetries, s.cfg.CooldownWindow)

	logger.Info("fallback strategy updated",
		"max_retries", fs.MaxRetries,
		"retry_delay", fs.RetryDelay,
		"attempt_timeout", fs.FallbackTimeout,
		"graceful_degradation", fs.EnableGracefulDegradation)
	return nil
}

// FallbackStrategySnapshot returns the active strategy.
func (s *Scheduler) FallbackStrategySnapshot() FallbackStrategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

// ClearFailureHistory drops all failure records and cooldowns.
func (s *Scheduler) ClearFailureHistory() {
	s.ledger.ClearAll()
	logger.Info("failure history cleared")
}

// Metrics returns a snapshot of the aggregate counters, enriched with the
// stream registry's current state.
func (s *Scheduler) Metrics() Snapshot {
	s.mu.Lock()
	s.metrics.setGauges(s.inFlight, s.queue.len(), s.phase)
	s.mu.Unlock()

	snap := s.metrics.SnapshotNow()
	snap.ActiveStreams = s.registry.ActiveCount()
	snap.StreamingMillis = s.registry.ActiveDuration().Milliseconds()
	return snap
}

// CurrentPhase returns the current admission phase.
func (s *Scheduler) CurrentPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Close stops admission, resolves queued tasks as fallback, and waits up
// to the shutdown timeout for in-flight attempts. Idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closeCh)

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
	for _, t := range s.queue.drain() {
		s.metrics.recordFallback()
		s.finishLocked(t, Result{Key: t.key, Outcome: OutcomeFallback})
	}
	timeout := s.cfg.ShutdownTimeout
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("prefetch scheduler stopped")
		return nil
	case <-time.After(timeout):
		logger.Warn("prefetch scheduler stop timed out", "timeout", timeout)
		return context.DeadlineExceeded
	}
}
