package prefetch

import (
	"context"
	"time"

	"github.com/mstellato/prefetchd/internal/logger"
	"github.com/mstellato/prefetchd/internal/telemetry"
)

// Loader fetches the bytes backing a resource. Implementations must honor
// context cancellation and should wrap errors with the package sentinels
// (ErrTransport, ErrMalformedResource, ErrResourceNotFound) so failures
// classify correctly.
type Loader interface {
	Load(ctx context.Context, key ResourceKey) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, key ResourceKey) ([]byte, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, key ResourceKey) ([]byte, error) {
	return f(ctx, key)
}

// ExecResult is the outcome of one load attempt. Executor never surfaces
// errors to the caller: a failed attempt carries its classification.
type ExecResult struct {
	Data    []byte
	Failed  bool
	Reason  FailureReason
	Elapsed time.Duration
}

// Executor performs single load attempts under a per-attempt deadline and
// classifies failures. It holds no retry state; the Scheduler owns that.
type Executor struct {
	loader  Loader
	timeout time.Duration

	// observe, when set, receives successful-load latencies (adaptive probe).
	observe func(time.Duration)
}

// NewExecutor creates an executor with the given loader and per-attempt
// timeout.
func NewExecutor(loader Loader, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	return &Executor{loader: loader, timeout: timeout}
}

// SetTimeout updates the per-attempt deadline for future attempts.
func (e *Executor) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		e.timeout = timeout
	}
}

// SetLatencyObserver registers a sink for successful-load latencies.
func (e *Executor) SetLatencyObserver(fn func(time.Duration)) {
	e.observe = fn
}

// Execute runs one load attempt. The attempt is bounded by the configured
// timeout; the loader goroutine is abandoned once its context expires.
// The attempt number is recorded on the span only.
func (e *Executor) Execute(ctx context.Context, key ResourceKey, attempt int) ExecResult {
	ctx, span := telemetry.StartAttemptSpan(ctx, string(key), attempt)
	defer span.End()

	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()

	type loadResult struct {
		data []byte
		err  error
	}
	done := make(chan loadResult, 1)
	go func() {
		data, err := e.loader.Load(attemptCtx, key)
		done <- loadResult{data: data, err: err}
	}()

	var res loadResult
	select {
	case res = <-done:
	case <-attemptCtx.Done():
		res.err = attemptCtx.Err()
	}

	elapsed := time.Since(start)

	if res.err != nil {
		reason := ClassifyError(res.err)
		telemetry.RecordError(ctx, res.err)
		logger.Debug("prefetch attempt failed",
			"resource", string(key),
			"attempt", attempt,
			"reason", reason.String(),
			"elapsed", elapsed,
			"error", res.err)
		return ExecResult{Failed: true, Reason: reason, Elapsed: elapsed}
	}

	if e.observe != nil {
		e.observe(elapsed)
	}
	logger.Debug("prefetch attempt succeeded",
		"resource", string(key),
		"attempt", attempt,
		"bytes", len(res.data),
		"elapsed", elapsed)
	return ExecResult{Data: res.data, Elapsed: elapsed}
}
