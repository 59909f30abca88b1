// Package repository provides prediction history persistence.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/opensource-finance/claimguard/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultListLimit applies when a caller passes a non-positive limit.
const DefaultListLimit = 20

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SavePrediction stores a settled submission with session isolation.
func (r *SQLRepository) SavePrediction(ctx context.Context, sessionID string, rec *domain.PredictionRecord) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionID is required", ErrInvalidInput)
	}
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: prediction id is required", ErrInvalidInput)
	}

	claim, err := json.Marshal(rec.Claim)
	if err != nil {
		return fmt.Errorf("failed to encode claim: %w", err)
	}

	query := `
		INSERT INTO predictions (
			id, session_id, model_id, model_name, outcome,
			classification, probability, error, fallback_cause,
			claim, trace_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, sessionID, string(rec.ModelID), rec.ModelName, string(rec.Outcome),
		nullable(string(rec.Classification)), rec.Probability,
		nullable(rec.Error), nullable(rec.FallbackCause),
		string(claim), nullable(rec.TraceID), rec.CreatedAt.UTC(),
	)
	return err
}

// GetPrediction retrieves one record, scoped to its session.
func (r *SQLRepository) GetPrediction(ctx context.Context, sessionID string, id string) (*domain.PredictionRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is required", ErrInvalidInput)
	}

	query := selectPredictions + ` WHERE session_id = ? AND id = ?`

	rec, err := scanPrediction(r.db.QueryRowContext(ctx, r.rebind(query), sessionID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPredictions returns a session's newest records first.
func (r *SQLRepository) ListPredictions(ctx context.Context, sessionID string, limit int) ([]*domain.PredictionRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := selectPredictions + ` WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.PredictionRecord
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

const selectPredictions = `
	SELECT id, session_id, model_id, model_name, outcome,
		   classification, probability, error, fallback_cause,
		   claim, trace_id, created_at
	FROM predictions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (*domain.PredictionRecord, error) {
	var rec domain.PredictionRecord
	var modelID, outcome, claim string
	var classification, errMsg, cause, traceID sql.NullString

	err := row.Scan(
		&rec.ID, &rec.SessionID, &modelID, &rec.ModelName, &outcome,
		&classification, &rec.Probability, &errMsg, &cause,
		&claim, &traceID, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ModelID = domain.ModelID(modelID)
	rec.Outcome = domain.Outcome(outcome)
	rec.Classification = domain.Classification(classification.String)
	rec.Error = errMsg.String
	rec.FallbackCause = cause.String
	rec.TraceID = traceID.String

	if err := json.Unmarshal([]byte(claim), &rec.Claim); err != nil {
		return nil, fmt.Errorf("failed to decode claim for %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
