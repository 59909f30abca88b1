package repository

// Schema definitions for the claimguard database.
// Compatible with both SQLite and PostgreSQL.

const schemaPredictions = `
CREATE TABLE IF NOT EXISTS predictions (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    model_id TEXT NOT NULL,
    model_name TEXT NOT NULL,
    outcome TEXT NOT NULL,
    classification TEXT,
    probability REAL NOT NULL DEFAULT 0,
    error TEXT,
    fallback_cause TEXT,
    claim TEXT NOT NULL,
    trace_id TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_predictions_session ON predictions(session_id);
CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_predictions_outcome ON predictions(outcome);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaPredictions,
	}
}
