package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/avolkov/resource-sentinel/internal/application/port"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

const defaultSweepInterval = time.Minute

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is an in-process TTL cache. Entries expire strictly by age.
// Concurrent GetOrCompute calls for the same key run the computation at
// most once; the other callers wait for and share its result.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	clock   port.Clock
	logger  *logger.Logger

	stopSweep chan struct{}
	closeOnce sync.Once
}

// New creates a cache and starts its background sweeper. sweepInterval
// bounds how long an expired entry can occupy memory; reads never return
// expired values regardless.
func New(sweepInterval time.Duration, clock port.Clock, log *logger.Logger) *Cache {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	if clock == nil {
		clock = port.RealClock{}
	}
	c := &Cache{
		entries:   make(map[string]entry),
		clock:     clock,
		logger:    log,
		stopSweep: make(chan struct{}),
	}
	go c.sweep(sweepInterval)
	return c
}

// GetOrCompute returns the live cached value for key or runs compute and
// caches its result for ttl. The boolean reports a cache hit.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute port.ComputeFunc) (interface{}, bool, error) {
	key = normalizeKey(key)

	if value, ok := c.lookup(key); ok {
		return value, true, nil
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A second caller may have been queued behind the computation
		// that just stored this key.
		if value, ok := c.lookup(key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, value, ttl)
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, false, nil
}

// Delete removes a key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, normalizeKey(key))
	c.mu.Unlock()
	return nil
}

// Clear discards every entry.
func (c *Cache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return nil
}

// Close stops the background sweeper. The cache remains usable but no
// longer reclaims expired entries eagerly.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() { close(c.stopSweep) })
	return nil
}

// Len returns the number of stored entries, expired ones included until
// the next sweep.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresh value may have landed.
		if current, ok := c.entries[key]; ok && c.clock.Now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.clock.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			now := c.clock.Now()
			c.mu.Lock()
			removed := 0
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
					removed++
				}
			}
			c.mu.Unlock()
			if removed > 0 {
				c.logger.Debug("Swept expired cache entries", "removed", removed)
			}
		}
	}
}

// normalizeKey canonicalizes keys so logically equal lookups collide.
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
