// Package store provides resource caches for prefetched bundles: a
// process-local memory cache and a BadgerDB-backed warm cache that
// survives restarts (see the badger subpackage).
package store

import "github.com/mstellato/prefetchd/pkg/prefetch"

// Cache extends the scheduler's cache contract with lifecycle management.
type Cache interface {
	prefetch.Cache

	// Len returns the number of cached resources.
	Len() int

	// Close releases underlying storage.
	Close() error
}
