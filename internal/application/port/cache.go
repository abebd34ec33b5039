package port

import (
	"context"
	"time"
)

// ComputeFunc produces a value for a cache key on miss.
type ComputeFunc func(ctx context.Context) (interface{}, error)

// Cache defines the TTL cache used in front of expensive probes (Port).
// Entries expire strictly by age, never by access count. Implementations
// must guarantee at most one concurrent computation per key: concurrent
// callers for the same key await the first computation's result.
type Cache interface {
	// GetOrCompute returns the cached value for key, or runs compute and
	// caches the result for ttl. The second return reports a cache hit.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (interface{}, bool, error)

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Clear discards all entries.
	Clear(ctx context.Context) error

	// Close releases cache resources.
	Close() error
}
