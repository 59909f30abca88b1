package domain

import (
	"time"
)

// Config holds the complete claimguard configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" mapstructure:"server" yaml:"server"`

	// Tier selects the default component stack
	Tier Tier `json:"tier" mapstructure:"tier" yaml:"tier"`

	// Prediction workflow
	Scoring   ScoringConfig   `json:"scoring" mapstructure:"scoring" yaml:"scoring"`
	Heuristic HeuristicConfig `json:"heuristic" mapstructure:"heuristic" yaml:"heuristic"`
	Session   SessionConfig   `json:"session" mapstructure:"session" yaml:"session"`
	RateLimit RateLimitConfig `json:"rateLimit" mapstructure:"rate_limit" yaml:"rate_limit"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" mapstructure:"repository" yaml:"repository"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache" yaml:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" mapstructure:"event_bus" yaml:"event_bus"`

	// Observability
	Logging LoggingConfig `json:"logging" mapstructure:"logging" yaml:"logging"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing" yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" mapstructure:"host" yaml:"host"`
	Port         int    `json:"port" mapstructure:"port" yaml:"port"`
	ReadTimeout  int    `json:"readTimeout" mapstructure:"read_timeout" yaml:"read_timeout"`    // seconds
	WriteTimeout int    `json:"writeTimeout" mapstructure:"write_timeout" yaml:"write_timeout"` // seconds
}

// ScoringConfig points at the external prediction service.
type ScoringConfig struct {
	Endpoint string `json:"endpoint" mapstructure:"endpoint" yaml:"endpoint"`

	// Timeout bounds the outbound call. Zero leaves it to the transport.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" yaml:"timeout"`
}

// SessionConfig controls dashboard session storage.
type SessionConfig struct {
	TTL time.Duration `json:"ttl" mapstructure:"ttl" yaml:"ttl"`

	// LatchTTL only matters if a process dies while holding the latch.
	LatchTTL time.Duration `json:"latchTtl" mapstructure:"latch_ttl" yaml:"latch_ttl"`

	HistoryLimit int `json:"historyLimit" mapstructure:"history_limit" yaml:"history_limit"`
}

// RateLimitConfig throttles prediction submissions per session.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requestsPerSecond" mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" mapstructure:"burst" yaml:"burst"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level" yaml:"level"`    // debug, info, warn, error
	Format string `json:"format" mapstructure:"format" yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled" yaml:"enabled"`
	ServiceName string `json:"serviceName" mapstructure:"service_name" yaml:"service_name"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite, in-process channels and a local cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL, NATS and Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Scoring: ScoringConfig{
			Endpoint: "http://localhost:5000",
		},
		Heuristic: DefaultHeuristic(),
		Session: SessionConfig{
			TTL:          24 * time.Hour,
			LatchTTL:     5 * time.Minute,
			HistoryLimit: 20,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./claimguard.db",
		},
		Cache: CacheConfig{
			Type:            "memory",
			LocalTTL:        5 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "claimguard",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "claimguard",
	}
	cfg.Cache = CacheConfig{
		Type:            "redis",
		RedisAddr:       "localhost:6379",
		EnableTwoPhase:  true,
		LocalTTL:        5 * time.Second,
		CleanupInterval: time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
