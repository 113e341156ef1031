package logger

import "context"

// Standard field keys used across the prefetch daemon.
const (
	KeyRequestID = "request_id"
	KeyResource  = "resource"
	KeyStep      = "step"
	KeyStreamID  = "stream_id"
)

// LogContext carries request-scoped logging fields through a context.Context.
// Handlers populate it once at the API boundary; the *Ctx logging functions
// prepend its fields to every record.
type LogContext struct {
	RequestID string
	Resource  string
	Step      string
	StreamID  string
}

type contextKey struct{}

// WithContext returns a context carrying the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, contextKey{}, lc)
}

// FromContext extracts the LogContext from a context, or nil if absent.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(contextKey{}).(*LogContext)
	return lc
}

// WithResource returns a context whose LogContext has Resource set.
// A new LogContext is created if the context does not carry one.
func WithResource(ctx context.Context, resource string) context.Context {
	lc := FromContext(ctx)
	if lc == nil {
		return WithContext(ctx, &LogContext{Resource: resource})
	}
	clone := *lc
	clone.Resource = resource
	return WithContext(ctx, &clone)
}
