package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/claimguard/internal/domain"
)

// LockPrefix marks keys that must never be served from L1.
const LockPrefix = "lock:"

// New creates a new cache based on configuration.
// For Community tier: returns MemoryCache.
// For Pro tier with two-phase: returns TwoPhaseCache wrapping memory + Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryCache(cfg.CleanupInterval), nil

	case "redis":
		remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis cache: %w", err)
		}
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(NewMemoryCache(cfg.CleanupInterval), remote, cfg.LocalTTL), nil
		}
		return remote, nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// TwoPhaseCache implements the two-phase caching strategy.
// L1: Local memory cache for fast reads
// L2: Shared cache for distributed state
type TwoPhaseCache struct {
	local  domain.Cache
	remote domain.Cache
	l1TTL  time.Duration
}

// NewTwoPhaseCache layers local over remote.
func NewTwoPhaseCache(local, remote domain.Cache, l1TTL time.Duration) *TwoPhaseCache {
	if l1TTL <= 0 {
		l1TTL = 5 * time.Second
	}
	return &TwoPhaseCache{
		local:  local,
		remote: remote,
		l1TTL:  l1TTL,
	}
}

// Get retrieves from L1 first, then L2. Populates L1 on L2 hit.
func (c *TwoPhaseCache) Get(ctx context.Context, namespace string, key string) ([]byte, error) {
	if remoteOnly(key) {
		return c.remote.Get(ctx, namespace, key)
	}

	val, err := c.local.Get(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		return val, nil
	}

	val, err = c.remote.Get(ctx, namespace, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.local.Set(ctx, namespace, key, val, c.l1TTL)
	}

	return val, nil
}

// Set writes to both L1 and L2.
func (c *TwoPhaseCache) Set(ctx context.Context, namespace string, key string, value []byte, ttl time.Duration) error {
	if !remoteOnly(key) {
		l1TTL := c.l1TTL
		if ttl > 0 && ttl < l1TTL {
			l1TTL = ttl
		}
		if err := c.local.Set(ctx, namespace, key, value, l1TTL); err != nil {
			return err
		}
	}

	return c.remote.Set(ctx, namespace, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, namespace string, key string) error {
	if err := c.local.Delete(ctx, namespace, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, namespace, key)
}

// Acquire is decided by L2 so the marker is shared across nodes.
func (c *TwoPhaseCache) Acquire(ctx context.Context, namespace string, key string, ttl time.Duration) (bool, error) {
	return c.remote.Acquire(ctx, namespace, key, ttl)
}

// IncrementCounter uses L2 for distributed atomic counters.
// L1 is not used for counters to ensure accuracy across nodes.
func (c *TwoPhaseCache) IncrementCounter(ctx context.Context, namespace string, key string, window time.Duration) (int64, error) {
	return c.remote.IncrementCounter(ctx, namespace, key, window)
}

// GetCounter reads from L2.
func (c *TwoPhaseCache) GetCounter(ctx context.Context, namespace string, key string) (int64, error) {
	return c.remote.GetCounter(ctx, namespace, key)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return fmt.Errorf("L1 ping failed: %w", err)
	}
	if err := c.remote.Ping(ctx); err != nil {
		return fmt.Errorf("L2 ping failed: %w", err)
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

func remoteOnly(key string) bool {
	return strings.HasPrefix(key, LockPrefix)
}
