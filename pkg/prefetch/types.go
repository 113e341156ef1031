package prefetch

import "time"

// ============================================================================
// Constants
// ============================================================================

// Default tuning values. All of these are configurable; the phase boundaries
// and per-phase caps are documented behavior, not hard physical constraints.
const (
	// DefaultMaxConcurrent is the global cap on in-flight prefetch tasks.
	DefaultMaxConcurrent = 2

	// DefaultMaxAttempts is the number of load attempts before a resource
	// enters cooldown and the consumer falls back to a synchronous load.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the base for the exponential retry backoff.
	DefaultBaseDelay = 1000 * time.Millisecond

	// DefaultMaxDelay caps the exponential retry backoff.
	DefaultMaxDelay = 30 * time.Second

	// DefaultAttemptTimeout is the per-attempt deadline in the Executor.
	DefaultAttemptTimeout = 5 * time.Second

	// DefaultCooldownWindow is how long a repeatedly failing resource is
	// excluded from new prefetch attempts.
	DefaultCooldownWindow = 60 * time.Second

	// DefaultMinIdleBudget is the minimum idle processing budget required
	// to admit a new task; below it the task is deferred, not skipped.
	DefaultMinIdleBudget = 10 * time.Millisecond

	// DefaultTickInterval drives the low-frequency idle tick.
	DefaultTickInterval = 5 * time.Second

	// DefaultQueueSize bounds the pending task queue per priority.
	DefaultQueueSize = 256

	// DefaultHistoryCapacity bounds the navigation event history.
	DefaultHistoryCapacity = 50

	// DefaultShutdownTimeout is the maximum time Close waits for in-flight
	// attempts to finish.
	DefaultShutdownTimeout = 10 * time.Second

	// imminentDwellFraction is the fraction of a step's average dwell time
	// after which a transition is considered imminent.
	imminentDwellFraction = 0.8
)

// Phase boundaries keyed to streaming activity duration (see Scheduler).
const (
	DefaultStreamWarmup      = 2 * time.Second
	DefaultStreamSteady      = 8 * time.Second
	DefaultStreamLongRunning = 15 * time.Second
)

// ============================================================================
// Priority
// ============================================================================

// Priority orders pending tasks: High is dequeued strictly before Low.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ============================================================================
// Resource class
// ============================================================================

// ResourceKey is an opaque identifier for a prefetchable unit
// (a step's code bundle, a stylesheet, an asset).
type ResourceKey string

// ResourceClass categorizes a prefetchable unit. Non-critical classes
// (stylesheets, images) are downgraded to a single best-effort attempt
// because their failure must never block navigation.
type ResourceClass int

const (
	ClassCode ResourceClass = iota
	ClassAsset
	ClassStylesheet
	ClassImage
)

// Critical reports whether the class participates in the full retry chain.
func (c ResourceClass) Critical() bool {
	return c == ClassCode || c == ClassAsset
}

func (c ResourceClass) String() string {
	switch c {
	case ClassCode:
		return "code"
	case ClassAsset:
		return "asset"
	case ClassStylesheet:
		return "stylesheet"
	case ClassImage:
		return "image"
	default:
		return "unknown"
	}
}

// ParseResourceClass parses a class name; unknown names map to ClassAsset.
func ParseResourceClass(s string) ResourceClass {
	switch s {
	case "code":
		return ClassCode
	case "stylesheet":
		return ClassStylesheet
	case "image":
		return ClassImage
	default:
		return ClassAsset
	}
}

// ============================================================================
// Failure taxonomy
// ============================================================================

// FailureReason classifies a failed load attempt. Classification feeds
// metrics and logging only; backoff is uniform across reasons.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonTimeout
	ReasonNetwork
	ReasonModule
	ReasonResource
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonTimeout:
		return "timeout"
	case ReasonNetwork:
		return "network_error"
	case ReasonModule:
		return "module_error"
	case ReasonResource:
		return "resource_error"
	default:
		return "unknown"
	}
}

// ============================================================================
// Task status
// ============================================================================

// TaskStatus is the prefetch task state machine:
//
//	Pending -> InFlight -> {Succeeded | (retry) Pending | Fallback}
//
// Succeeded and Fallback are terminal.
type TaskStatus int

const (
	StatusPending TaskStatus = iota
	StatusInFlight
	StatusSucceeded
	StatusFailed
	StatusFallback
)

// Terminal reports whether a task may never leave this status.
func (s TaskStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFallback
}

func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInFlight:
		return "in_flight"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ============================================================================
// Network class
// ============================================================================

// NetworkClass is an ordered connection-quality classification.
// An unknown signal is treated as NetworkMedium.
type NetworkClass int

const (
	NetworkSlow NetworkClass = iota
	NetworkMedium
	NetworkFast
)

func (n NetworkClass) String() string {
	switch n {
	case NetworkSlow:
		return "slow"
	case NetworkMedium:
		return "medium"
	case NetworkFast:
		return "fast"
	default:
		return "unknown"
	}
}

// ParseNetworkClass parses a class name; unknown names map to NetworkMedium.
func ParseNetworkClass(s string) NetworkClass {
	switch s {
	case "slow":
		return NetworkSlow
	case "fast":
		return NetworkFast
	default:
		return NetworkMedium
	}
}

// ============================================================================
// Phases
// ============================================================================

// Phase is the streaming-aware admission phase. While an AI stream is
// active, prefetching ramps up with stream age so it never competes with
// stream establishment.
type Phase int

const (
	// PhaseHold: stream just started, no prefetching.
	PhaseHold Phase = iota
	// PhaseSingle: low priority, concurrency cap 1, next step only.
	PhaseSingle
	// PhaseDual: concurrency cap 2, next step and the one after.
	PhaseDual
	// PhaseBurst: high priority burst covering the next 1-2 steps.
	// Also entered when a stream just completed, or when no stream is active.
	PhaseBurst
)

func (p Phase) String() string {
	switch p {
	case PhaseHold:
		return "hold"
	case PhaseSingle:
		return "single"
	case PhaseDual:
		return "dual"
	case PhaseBurst:
		return "burst"
	default:
		return "unknown"
	}
}

// ============================================================================
// Configuration
// ============================================================================

// Config holds scheduler configuration. Zero values are replaced with the
// package defaults by NewScheduler.
type Config struct {
	// MaxConcurrent is the global cap on in-flight tasks.
	MaxConcurrent int

	// MaxAttempts is the total number of load attempts per resource before
	// fallback. Non-critical resource classes always get a single attempt.
	MaxAttempts int

	// BaseDelay is the base for exponential retry backoff.
	BaseDelay time.Duration

	// MaxDelay caps the retry backoff.
	MaxDelay time.Duration

	// AttemptTimeout is the per-attempt deadline.
	AttemptTimeout time.Duration

	// CooldownWindow excludes a repeatedly failing resource from new
	// prefetch attempts after MaxAttempts consecutive failures.
	CooldownWindow time.Duration

	// NetworkThreshold is the minimum network class for Low priority work.
	NetworkThreshold NetworkClass

	// MinIdleBudget defers admission when the probe reports less idle
	// processing budget than this.
	MinIdleBudget time.Duration

	// TickInterval drives the periodic idle tick when Start is used.
	TickInterval time.Duration

	// QueueSize bounds each priority queue. Speculative tasks beyond the
	// bound are dropped silently; explicit requests fall back.
	QueueSize int

	// HistoryCapacity bounds the navigation history ring.
	HistoryCapacity int

	// ShutdownTimeout is the maximum time Close waits for running attempts.
	ShutdownTimeout time.Duration

	// StreamWarmup, StreamSteady, StreamLongRunning are the phase
	// boundaries keyed to streaming activity duration.
	StreamWarmup      time.Duration
	StreamSteady      time.Duration
	StreamLongRunning time.Duration

	// StepSequence is the wizard's nominal step ordering, used as the
	// prediction fallback when no navigation history exists.
	StepSequence []string

	// StepResources maps a step name to the resources backing it.
	// Used by the tick to schedule speculative prefetches.
	StepResources map[string][]ResourceKey
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:     DefaultMaxConcurrent,
		MaxAttempts:       DefaultMaxAttempts,
		BaseDelay:         DefaultBaseDelay,
		MaxDelay:          DefaultMaxDelay,
		AttemptTimeout:    DefaultAttemptTimeout,
		CooldownWindow:    DefaultCooldownWindow,
		NetworkThreshold:  NetworkMedium,
		MinIdleBudget:     DefaultMinIdleBudget,
		TickInterval:      DefaultTickInterval,
		QueueSize:         DefaultQueueSize,
		HistoryCapacity:   DefaultHistoryCapacity,
		ShutdownTimeout:   DefaultShutdownTimeout,
		StreamWarmup:      DefaultStreamWarmup,
		StreamSteady:      DefaultStreamSteady,
		StreamLongRunning: DefaultStreamLongRunning,
	}
}

// applyDefaults fills zero values with package defaults.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = def.MaxConcurrent
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = def.AttemptTimeout
	}
	if c.CooldownWindow <= 0 {
		c.CooldownWindow = def.CooldownWindow
	}
	if c.MinIdleBudget <= 0 {
		c.MinIdleBudget = def.MinIdleBudget
	}
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = def.HistoryCapacity
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if c.StreamWarmup <= 0 {
		c.StreamWarmup = def.StreamWarmup
	}
	if c.StreamSteady <= 0 {
		c.StreamSteady = def.StreamSteady
	}
	if c.StreamLongRunning <= 0 {
		c.StreamLongRunning = def.StreamLongRunning
	}
}

// ============================================================================
// Requests and results
// ============================================================================

// RequestOptions control a single prefetch request.
type RequestOptions struct {
	// Priority orders the task relative to other pending tasks.
	Priority Priority

	// Class determines the retry budget (non-critical: single attempt).
	Class ResourceClass

	// RespectStreaming subjects the task to streaming-phase admission.
	RespectStreaming bool

	// NetworkThreshold overrides the configured minimum network class for
	// this request when non-zero... zero means "use scheduler default".
	NetworkThreshold NetworkClass

	// HasNetworkThreshold marks NetworkThreshold as explicitly set, so a
	// caller can request NetworkSlow (the zero value) deliberately.
	HasNetworkThreshold bool
}

// Outcome describes how a Request resolved.
type Outcome int

const (
	// OutcomeLoaded: the resource was fetched by this or a coalesced task.
	OutcomeLoaded Outcome = iota
	// OutcomeCached: served from the resource cache with no new work.
	OutcomeCached
	// OutcomeSkipped: admission declined the request (save-data, network
	// class); not counted as a failure and no Executor work was done.
	OutcomeSkipped
	// OutcomeFallback: the retry budget is exhausted or the key is in
	// cooldown; the consumer must load synchronously at point of use.
	OutcomeFallback
	// OutcomeDetached: the caller stopped waiting (context done); the load
	// continues in the background and its result will still be cached.
	OutcomeDetached
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoaded:
		return "loaded"
	case OutcomeCached:
		return "cached"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFallback:
		return "fallback"
	case OutcomeDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Result is the resolution of a prefetch request. Request never returns an
// error: failures surface as OutcomeFallback with a Reason.
type Result struct {
	Key     ResourceKey
	Outcome Outcome
	Data    []byte

	// Reason is the last failure classification for fallback outcomes.
	Reason FailureReason

	// SkipReason names the admission gate for OutcomeSkipped.
	SkipReason string
}

// ============================================================================
// Fallback strategy
// ============================================================================

// FallbackStrategy holds the runtime-tunable degradation knobs.
type FallbackStrategy struct {
	// MaxRetries is the total attempts per resource (1..10).
	MaxRetries int `json:"maxRetries"`

	// RetryDelay is the backoff base delay.
	RetryDelay time.Duration `json:"retryDelay"`

	// FallbackTimeout is the per-attempt deadline.
	FallbackTimeout time.Duration `json:"fallbackTimeout"`

	// EnableGracefulDegradation enables the retry chain. When false a
	// first failure resolves to fallback immediately.
	EnableGracefulDegradation bool `json:"enableGracefulDegradation"`
}

// Validate fails fast on administratively invalid strategies.
func (f FallbackStrategy) Validate() error {
	if f.MaxRetries < 1 || f.MaxRetries > 10 {
		return &ConfigError{Field: "maxRetries", Reason: "must be between 1 and 10"}
	}
	if f.RetryDelay < 0 {
		return &ConfigError{Field: "retryDelay", Reason: "must not be negative"}
	}
	if f.FallbackTimeout <= 0 {
		return &ConfigError{Field: "fallbackTimeout", Reason: "must be positive"}
	}
	return nil
}
