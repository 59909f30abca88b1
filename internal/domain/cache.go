package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local memory (Community) + Redis (Pro).
// Every key is scoped by a namespace, normally a session ID.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, namespace string, key string) ([]byte, error)

	// Set stores a value in cache with expiration. A zero ttl never expires.
	Set(ctx context.Context, namespace string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, namespace string, key string) error

	// Acquire stores a marker only if the key is absent.
	// Returns false when another holder already owns it.
	Acquire(ctx context.Context, namespace string, key string, ttl time.Duration) (bool, error)

	// IncrementCounter atomically increments a counter and returns new value.
	// The window starts with the first increment; zero means no expiry.
	IncrementCounter(ctx context.Context, namespace string, key string, window time.Duration) (int64, error)

	// GetCounter returns the current counter value, 0 if unset.
	GetCounter(ctx context.Context, namespace string, key string) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string `json:"type" mapstructure:"type" yaml:"type"`

	// Local cache settings
	LocalTTL        time.Duration `json:"localTtl" mapstructure:"local_ttl" yaml:"local_ttl"`
	CleanupInterval time.Duration `json:"cleanupInterval" mapstructure:"cleanup_interval" yaml:"cleanup_interval"`

	// Redis settings (Pro tier)
	RedisAddr     string `json:"redisAddr" mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"-" mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redisDb" mapstructure:"redis_db" yaml:"redis_db"`

	// Two-phase settings
	EnableTwoPhase bool `json:"enableTwoPhase" mapstructure:"enable_two_phase" yaml:"enable_two_phase"` // If true, check local first, then Redis
}

// GlobalNamespace holds process-wide keys such as outcome counters.
const GlobalNamespace = "_global"
