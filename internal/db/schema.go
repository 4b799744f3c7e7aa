package db

// SchemaSQL is the complete run-ledger schema. Tests load it through
// GetSchemaSQL so test databases cannot drift from this definition.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at DATETIME NOT NULL,
	duration_ms INTEGER NOT NULL,
	categories TEXT NOT NULL,
	outcome TEXT NOT NULL CHECK(outcome IN ('ok', 'degraded', 'busy', 'failed')),
	detail TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// GetSchemaSQL returns the authoritative schema for tests.
func GetSchemaSQL() string {
	return SchemaSQL
}
