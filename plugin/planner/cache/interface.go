// Package cache provides the in-memory cache service for the planning core.
package cache

import (
	"context"
	"time"
)

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate invalidates cache entries.
	// pattern: supports wildcards (schedule:2025-11-*)
	Invalidate(ctx context.Context, pattern string) error

	// Stats returns hit/miss counters and the current entry count.
	Stats(ctx context.Context) Stats
}
