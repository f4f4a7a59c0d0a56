// Package cache stores encoded chart specs keyed by source and filters.
//
// Snapshots are read-only inputs, so entries are never invalidated; the
// in-memory cache is bounded and Redis entries may carry a TTL.
package cache

import "context"

// Cache stores encoded values by key.
type Cache interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Put stores val under key, replacing any previous value.
	Put(ctx context.Context, key string, val []byte) error

	// Len returns the number of stored entries.
	Len(ctx context.Context) int
}

// Backend names reported to metrics.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)
