package prefetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExecutorSuccess(t *testing.T) {
	loader := LoaderFunc(func(ctx context.Context, key ResourceKey) ([]byte, error) {
		return []byte("bundle-bytes"), nil
	})
	e := NewExecutor(loader, time.Second)

	var observed time.Duration
	e.SetLatencyObserver(func(d time.Duration) { observed = d })

	res := e.Execute(context.Background(), "bundle/step1", 1)
	if res.Failed {
		t.Fatalf("unexpected failure: %v", res.Reason)
	}
	if string(res.Data) != "bundle-bytes" {
		t.Fatalf("unexpected data %q", res.Data)
	}
	if observed <= 0 {
		t.Fatal("expected latency observation on success")
	}
}

func TestExecutorTimeoutClassification(t *testing.T) {
	loader := LoaderFunc(func(ctx context.Context, key ResourceKey) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	e := NewExecutor(loader, 20*time.Millisecond)

	res := e.Execute(context.Background(), "bundle/slow", 1)
	if !res.Failed || res.Reason != ReasonTimeout {
		t.Fatalf("expected timeout failure, got failed=%v reason=%v", res.Failed, res.Reason)
	}
}

func TestExecutorFailureClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureReason
	}{
		{"transport", fmt.Errorf("fetch: %w", ErrTransport), ReasonNetwork},
		{"malformed", fmt.Errorf("parse: %w", ErrMalformedResource), ReasonModule},
		{"not found", fmt.Errorf("origin: %w", ErrResourceNotFound), ReasonResource},
		{"opaque", errors.New("boom"), ReasonResource},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loader := LoaderFunc(func(ctx context.Context, key ResourceKey) ([]byte, error) {
				return nil, tc.err
			})
			e := NewExecutor(loader, time.Second)

			res := e.Execute(context.Background(), "bundle/x", 1)
			if !res.Failed || res.Reason != tc.want {
				t.Fatalf("expected %v, got failed=%v reason=%v", tc.want, res.Failed, res.Reason)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	if got := ClassifyError(nil); got != ReasonNone {
		t.Fatalf("expected none for nil error, got %v", got)
	}
	if got := ClassifyError(context.DeadlineExceeded); got != ReasonTimeout {
		t.Fatalf("expected timeout, got %v", got)
	}
	if got := ClassifyError(ErrTransport); got != ReasonNetwork {
		t.Fatalf("expected network, got %v", got)
	}
	if got := ClassifyError(ErrMalformedResource); got != ReasonModule {
		t.Fatalf("expected module, got %v", got)
	}
	if got := ClassifyError(errors.New("other")); got != ReasonResource {
		t.Fatalf("expected resource, got %v", got)
	}
}
