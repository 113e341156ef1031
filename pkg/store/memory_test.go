package store

import (
	"testing"
	"time"
)

func TestMemoryCachePutGet(t *testing.T) {
	c := NewMemoryCache(4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("a", []byte("alpha"))
	data, ok := c.Get("a")
	if !ok || string(data) != "alpha" {
		t.Fatalf("expected alpha, got %q (ok=%v)", data, ok)
	}

	// Overwrite keeps a single entry.
	c.Put("a", []byte("alpha2"))
	if got := c.Len(); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
	data, _ = c.Get("a")
	if string(data) != "alpha2" {
		t.Fatalf("expected alpha2, got %q", data)
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	c := NewMemoryCache(2, time.Minute)

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Put("c", []byte("3"))

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a retained")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("expected c retained")
	}
}

func TestMemoryCacheTTLExpiry(t *testing.T) {
	now := time.Now()
	c := NewMemoryCache(4, time.Minute)
	c.now = func() time.Time { return now }

	c.Put("a", []byte("1"))
	now = now.Add(61 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected entry expired")
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("expected expired entry dropped, got %d", got)
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(4, time.Minute)

	c.Put("a", []byte("1"))
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected delete to remove entry")
	}

	// Deleting a missing key is a no-op.
	c.Delete("missing")
}
