// Package domain defines the core interfaces and types for claimguard.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for prediction history persistence.
// Every record is scoped to the session that submitted it.
type Repository interface {
	SavePrediction(ctx context.Context, sessionID string, rec *PredictionRecord) error
	GetPrediction(ctx context.Context, sessionID string, id string) (*PredictionRecord, error)

	// ListPredictions returns the newest records first.
	ListPredictions(ctx context.Context, sessionID string, limit int) ([]*PredictionRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath" mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost" mapstructure:"postgres_host" yaml:"postgres_host"`
	PostgresPort     int    `json:"postgresPort" mapstructure:"postgres_port" yaml:"postgres_port"`
	PostgresUser     string `json:"postgresUser" mapstructure:"postgres_user" yaml:"postgres_user"`
	PostgresPassword string `json:"-" mapstructure:"postgres_password" yaml:"postgres_password"`
	PostgresDB       string `json:"postgresDb" mapstructure:"postgres_db" yaml:"postgres_db"`
	PostgresSSLMode  string `json:"postgresSslMode" mapstructure:"postgres_ssl_mode" yaml:"postgres_ssl_mode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns" mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"maxIdleConns" mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}
