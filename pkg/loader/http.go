// Package loader provides origin loaders for step bundles: an HTTP loader
// for bundle servers and CDNs, and an S3 loader for object storage.
//
// Loaders wrap their errors with the prefetch package sentinels so the
// executor classifies failures correctly: connection-level problems as
// network errors, missing objects as resource errors, and payloads that
// fail validation as module errors.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mstellato/prefetchd/internal/logger"
	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// DefaultHTTPTimeout bounds a single origin request including body read.
// The scheduler applies its own per-attempt deadline on top.
const DefaultHTTPTimeout = 30 * time.Second

// HTTPLoader fetches resources from an HTTP origin. The resource key is
// joined to the base URL as a path.
type HTTPLoader struct {
	baseURL string
	client  *http.Client

	// validate, when set, checks the fetched payload. Validation failures
	// classify as module errors.
	validate func([]byte) error
}

// NewHTTPLoader creates a loader for the given origin base URL.
// A nil client uses a default with DefaultHTTPTimeout.
func NewHTTPLoader(baseURL string, client *http.Client) *HTTPLoader {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPLoader{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// SetValidator installs a payload check run after every successful fetch.
func (l *HTTPLoader) SetValidator(fn func([]byte) error) {
	l.validate = fn
}

// Load fetches the resource from the origin.
func (l *HTTPLoader) Load(ctx context.Context, key prefetch.ResourceKey) ([]byte, error) {
	target := l.baseURL + "/" + strings.TrimLeft(string(key), "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid resource url %q: %w", target, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch %s: %w: %w", key, prefetch.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %s: %w", key, prefetch.ErrResourceNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch %s: origin status %d: %w", key, resp.StatusCode, prefetch.ErrTransport)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected origin status %d", key, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", key, prefetch.ErrTransport, err)
	}

	if l.validate != nil {
		if err := l.validate(data); err != nil {
			return nil, fmt.Errorf("validate %s: %w: %w", key, prefetch.ErrMalformedResource, err)
		}
	}

	logger.Debug("origin fetch completed", "resource", string(key), "bytes", len(data))
	return data, nil
}
