package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

func TestHTTPLoaderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bundles/step2.js" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, "bundle-bytes")
	}))
	defer srv.Close()

	l := NewHTTPLoader(srv.URL, nil)
	data, err := l.Load(context.Background(), "bundles/step2.js")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "bundle-bytes" {
		t.Fatalf("unexpected data %q", data)
	}
}

func TestHTTPLoaderNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	l := NewHTTPLoader(srv.URL, nil)
	_, err := l.Load(context.Background(), "bundles/missing.js")
	if !errors.Is(err, prefetch.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
	if got := prefetch.ClassifyError(err); got != prefetch.ReasonResource {
		t.Fatalf("expected resource classification, got %v", got)
	}
}

func TestHTTPLoaderServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	l := NewHTTPLoader(srv.URL, nil)
	_, err := l.Load(context.Background(), "bundles/step2.js")
	if !errors.Is(err, prefetch.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if got := prefetch.ClassifyError(err); got != prefetch.ReasonNetwork {
		t.Fatalf("expected network classification, got %v", got)
	}
}

func TestHTTPLoaderConnectionRefusedIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	l := NewHTTPLoader(srv.URL, nil)
	_, err := l.Load(context.Background(), "bundles/step2.js")
	if !errors.Is(err, prefetch.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestHTTPLoaderValidatorFailureIsModuleError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "garbage")
	}))
	defer srv.Close()

	l := NewHTTPLoader(srv.URL, nil)
	l.SetValidator(func(data []byte) error {
		return errors.New("not a bundle")
	})

	_, err := l.Load(context.Background(), "bundles/step2.js")
	if !errors.Is(err, prefetch.ErrMalformedResource) {
		t.Fatalf("expected ErrMalformedResource, got %v", err)
	}
	if got := prefetch.ClassifyError(err); got != prefetch.ReasonModule {
		t.Fatalf("expected module classification, got %v", got)
	}
}

func TestHTTPLoaderHonorsContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewHTTPLoader(srv.URL, nil)
	_, err := l.Load(ctx, "bundles/step2.js")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
