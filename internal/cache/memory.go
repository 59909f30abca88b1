// Package cache provides caching implementations for claimguard.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-process cache with TTL support.
// Used as the Community tier cache and as L1 in two-phase caching.
type MemoryCache struct {
	store *gocache.Cache

	// counterMu serializes first-increment creation of counters.
	counterMu sync.Mutex
}

// NewMemoryCache creates a cache that sweeps expired items every cleanupInterval.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get retrieves a value from cache.
func (c *MemoryCache) Get(ctx context.Context, namespace string, key string) ([]byte, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}

	v, ok := c.store.Get(makeKey(namespace, key))
	if !ok {
		return nil, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Set stores a value with TTL. A zero ttl never expires.
func (c *MemoryCache) Set(ctx context.Context, namespace string, key string, value []byte, ttl time.Duration) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	c.store.Set(makeKey(namespace, key), stored, expiration(ttl))
	return nil
}

// Delete removes a value from cache.
func (c *MemoryCache) Delete(ctx context.Context, namespace string, key string) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}

	c.store.Delete(makeKey(namespace, key))
	return nil
}

// Acquire stores a marker only if no unexpired value exists.
func (c *MemoryCache) Acquire(ctx context.Context, namespace string, key string, ttl time.Duration) (bool, error) {
	if namespace == "" {
		return false, fmt.Errorf("namespace is required")
	}

	if err := c.store.Add(makeKey(namespace, key), []byte("1"), expiration(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

// IncrementCounter increments a counter whose window starts at first increment.
func (c *MemoryCache) IncrementCounter(ctx context.Context, namespace string, key string, window time.Duration) (int64, error) {
	if namespace == "" {
		return 0, fmt.Errorf("namespace is required")
	}

	fullKey := makeKey(namespace, "counter:"+key)

	c.counterMu.Lock()
	defer c.counterMu.Unlock()

	if _, ok := c.store.Get(fullKey); !ok {
		c.store.Set(fullKey, int64(1), expiration(window))
		return 1, nil
	}
	return c.store.IncrementInt64(fullKey, 1)
}

// GetCounter returns the counter value, 0 if unset or expired.
func (c *MemoryCache) GetCounter(ctx context.Context, namespace string, key string) (int64, error) {
	if namespace == "" {
		return 0, fmt.Errorf("namespace is required")
	}

	v, ok := c.store.Get(makeKey(namespace, "counter:"+key))
	if !ok {
		return 0, nil
	}
	n, _ := v.(int64)
	return n, nil
}

// Ping always succeeds for in-memory cache.
func (c *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close clears the cache.
func (c *MemoryCache) Close() error {
	c.store.Flush()
	return nil
}

// Size returns the number of stored items, including unswept expired ones.
func (c *MemoryCache) Size() int {
	return c.store.ItemCount()
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func makeKey(namespace, key string) string {
	return "claimguard:" + namespace + ":" + key
}
