package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, Config{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Shutdown of the no-op setup is a no-op.
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Without initialization StartSpan must still work (no-op).
	newCtx, span := StartSpan(ctx, "prefetch.tick")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartAttemptSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartAttemptSpan(ctx, "step-2/module", 1)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		AddEvent(ctx, "cooldown.engaged", attribute.String(AttrResource, "step-3/styles"))
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("attempt failed"))
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	require.NotPanics(t, func() {
		SetAttributes(ctx, attribute.Int(AttrAttempt, 2))
	})
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestProfilingDisabled(t *testing.T) {
	shutdown, err := InitProfiling(ProfilingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown())
	assert.False(t, IsProfilingEnabled())
}
