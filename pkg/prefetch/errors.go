package prefetch

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors loaders wrap to steer failure classification.
var (
	// ErrTransport marks connection-level failures (refused, reset, DNS).
	ErrTransport = errors.New("transport error")

	// ErrMalformedResource marks a resource that was fetched but cannot be
	// evaluated or parsed.
	ErrMalformedResource = errors.New("malformed resource")

	// ErrResourceNotFound marks a missing resource (404, no such key).
	ErrResourceNotFound = errors.New("resource not found")

	// ErrSchedulerClosed is returned by operations on a closed scheduler.
	ErrSchedulerClosed = errors.New("scheduler closed")
)

// ConfigError describes an administratively invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config field %q: %s", e.Field, e.Reason)
}

// ClassifyError maps a load error to its failure reason:
//
//	context deadline         -> ReasonTimeout
//	transport / net failures -> ReasonNetwork
//	malformed resource       -> ReasonModule
//	anything else            -> ReasonResource
//
// Classification feeds metrics and logging only; retry behavior is uniform.
func ClassifyError(err error) FailureReason {
	if err == nil {
		return ReasonNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.Is(err, ErrTransport) || errors.As(err, &netErr) {
		return ReasonNetwork
	}
	if errors.Is(err, ErrMalformedResource) {
		return ReasonModule
	}
	return ReasonResource
}
