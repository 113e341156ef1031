// Package badger provides a BadgerDB-backed warm cache for prefetched
// bundles. Unlike the in-process memory cache it survives restarts, so a
// redeployed daemon starts with yesterday's hot set already local.
package badger

import (
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/mstellato/prefetchd/internal/logger"
	"github.com/mstellato/prefetchd/pkg/prefetch"
)

// Key prefix for cached resources: res:{resourceKey} -> bytes
const prefixResource = "res:"

// DefaultTTL is the default entry lifetime in the warm cache.
const DefaultTTL = 24 * time.Hour

// Cache is a BadgerDB-backed resource cache. Read and write errors are
// logged and degrade to cache misses; the scheduler never sees them.
type Cache struct {
	db  *badgerdb.DB
	ttl time.Duration
}

// Open opens or creates the cache at the given directory.
// A non-positive ttl takes the default.
func Open(dir string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	opts := badgerdb.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache at %s: %w", dir, err)
	}
	return &Cache{db: db, ttl: ttl}, nil
}

// Get returns the cached bytes for key. Storage errors count as misses.
func (c *Cache) Get(key prefetch.ResourceKey) ([]byte, bool) {
	var data []byte
	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(resourceKey(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err != badgerdb.ErrKeyNotFound {
			logger.Warn("warm cache read failed", "resource", string(key), "error", err)
		}
		return nil, false
	}
	return data, true
}

// Put stores bytes under key with the cache TTL. Write errors are logged
// and swallowed.
func (c *Cache) Put(key prefetch.ResourceKey, data []byte) {
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		entry := badgerdb.NewEntry(resourceKey(key), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		logger.Warn("warm cache write failed", "resource", string(key), "error", err)
	}
}

// Delete drops the entry for key.
func (c *Cache) Delete(key prefetch.ResourceKey) {
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(resourceKey(key))
	})
	if err != nil {
		logger.Warn("warm cache delete failed", "resource", string(key), "error", err)
	}
}

// Len counts live resource entries. Used for diagnostics only.
func (c *Cache) Len() int {
	count := 0
	_ = c.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixResource)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count
}

// Close flushes and closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func resourceKey(key prefetch.ResourceKey) []byte {
	return []byte(prefixResource + string(key))
}
