package store

import (
	"container/list"
	"sync"
	"time"

	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// Default memory cache sizing.
const (
	DefaultMaxEntries = 512
	DefaultTTL        = 10 * time.Minute
)

// memoryEntry is one cached resource with its LRU list handle.
type memoryEntry struct {
	key       prefetch.ResourceKey
	data      []byte
	expiresAt time.Time
}

// MemoryCache is a bounded in-process LRU cache with per-entry TTL.
// Expired entries are dropped lazily on Get.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[prefetch.ResourceKey]*list.Element
	order      *list.List
	maxEntries int
	ttl        time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewMemoryCache creates a cache with the given capacity and TTL.
// Non-positive values take the defaults; a negative ttl disables expiry.
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries:    make(map[prefetch.ResourceKey]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached bytes for key, dropping the entry when expired.
func (c *MemoryCache) Get(key prefetch.ResourceKey) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(c.now()) {
		c.removeLocked(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.data, true
}

// Put stores bytes under key, evicting the least recently used entry when
// the cache is full.
func (c *MemoryCache) Put(key prefetch.ResourceKey, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if el, ok := c.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.data = data
		entry.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&memoryEntry{key: key, data: data, expiresAt: expiresAt})
	c.entries[key] = el

	for len(c.entries) > c.maxEntries {
		c.removeLocked(c.order.Back())
	}
}

// Delete drops the entry for key.
func (c *MemoryCache) Delete(key prefetch.ResourceKey) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
}

// Len returns the number of cached resources, including not yet collected
// expired entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close is a no-op for the memory cache.
func (c *MemoryCache) Close() error { return nil }

func (c *MemoryCache) removeLocked(el *list.Element) {
	if el == nil {
		return
	}
	entry := el.Value.(*memoryEntry)
	delete(c.entries, entry.key)
	c.order.Remove(el)
}
