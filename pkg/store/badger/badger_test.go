package badger

import (
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerCachePutGet(t *testing.T) {
	c := openTestCache(t)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put("bundle/step2", []byte("payload"))
	data, ok := c.Get("bundle/step2")
	if !ok || string(data) != "payload" {
		t.Fatalf("expected payload, got %q (ok=%v)", data, ok)
	}
}

func TestBadgerCacheDelete(t *testing.T) {
	c := openTestCache(t)

	c.Put("bundle/step3", []byte("x"))
	c.Delete("bundle/step3")
	if _, ok := c.Get("bundle/step3"); ok {
		t.Fatal("expected entry deleted")
	}
}

func TestBadgerCacheLen(t *testing.T) {
	c := openTestCache(t)

	c.Put("a", []byte("1"))
	c.Put("b", []byte("2"))
	if got := c.Len(); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}
}

func TestBadgerCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(dir, time.Hour)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	c.Put("bundle/warm", []byte("survivor"))
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close cache: %v", err)
	}

	c, err = Open(dir, time.Hour)
	if err != nil {
		t.Fatalf("failed to reopen cache: %v", err)
	}
	defer c.Close()

	data, ok := c.Get("bundle/warm")
	if !ok || string(data) != "survivor" {
		t.Fatalf("expected survivor after reopen, got %q (ok=%v)", data, ok)
	}
}
