package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false // Disable colors for easier testing
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		reconfigure()
	}

	return buf, cleanup
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("DEBUG")
		defer SetLevel("INFO")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		output := buf.String()
		assert.Contains(t, output, "debug message")
		assert.Contains(t, output, "info message")
		assert.Contains(t, output, "warn message")
		assert.Contains(t, output, "error message")
	})

	t.Run("InfoLevelFiltersDebug", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")

		Debug("debug message")
		Info("info message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.Contains(t, output, "info message")
	})

	t.Run("ErrorLevelShowsOnlyErrors", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("ERROR")
		defer SetLevel("INFO")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.NotContains(t, output, "warn message")
		assert.Contains(t, output, "error message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		SetLevel("INFO")
		SetLevel("VERBOSE")

		Info("still info")
		assert.Contains(t, buf.String(), "still info")
	})
}

// ============================================================================
// Format Tests
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	defer SetFormat("text")

	Info("prefetch complete", "resource", "step-2/module", "attempt", 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record), "output: %s", buf.String())

	assert.Equal(t, "prefetch complete", record["msg"])
	assert.Equal(t, "step-2/module", record["resource"])
	assert.Equal(t, float64(1), record["attempt"])
}

func TestTextFormatFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("text")

	Info("task queued", "resource", "step-3/styles", "priority", "low")

	output := buf.String()
	assert.Contains(t, output, "task queued")
	assert.Contains(t, output, "step-3/styles")
	assert.Contains(t, output, "low")
}

// ============================================================================
// Context-aware Logging Tests
// ============================================================================

func TestContextFields(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	defer SetFormat("text")

	ctx := WithContext(context.Background(), &LogContext{
		RequestID: "req-42",
		Resource:  "step-2/module",
		Step:      "details",
	})
	InfoCtx(ctx, "admission granted")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "req-42", record[KeyRequestID])
	assert.Equal(t, "step-2/module", record[KeyResource])
	assert.Equal(t, "details", record[KeyStep])
}

func TestContextFieldsAbsent(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	// A bare context logs without injected fields and without panicking.
	InfoCtx(context.Background(), "no context fields")
	assert.Contains(t, buf.String(), "no context fields")
}

func TestWithResource(t *testing.T) {
	ctx := WithResource(context.Background(), "step-4/image")
	lc := FromContext(ctx)
	require.NotNil(t, lc)
	assert.Equal(t, "step-4/image", lc.Resource)

	// Overriding does not mutate the original LogContext.
	ctx2 := WithResource(ctx, "step-5/image")
	assert.Equal(t, "step-4/image", FromContext(ctx).Resource)
	assert.Equal(t, "step-5/image", FromContext(ctx2).Resource)
}

// ============================================================================
// Init Tests
// ============================================================================

func TestInitWithWriter(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)
	defer func() { _ = Init(Config{Output: "stdout"}) }()

	Info("writer configured")
	assert.Contains(t, buf.String(), "writer configured")
}

func TestInitInvalidFileFails(t *testing.T) {
	err := Init(Config{Output: "/nonexistent-dir/prefetchd.log"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to open log file"))
}
