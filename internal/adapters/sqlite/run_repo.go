// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// RunRecord is one pipeline run as stored in the ledger.
type RunRecord struct {
	ID         int64
	StartedAt  time.Time
	DurationMs int64
	Categories []string
	Outcome    string // ok, degraded, busy, failed
	Detail     string
}

// RunRepository persists pipeline run records.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create appends a run record to the ledger.
func (r *RunRepository) Create(ctx context.Context, rec *RunRecord) error {
	var detail sql.NullString
	if rec.Detail != "" {
		detail = sql.NullString{String: rec.Detail, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, duration_ms, categories, outcome, detail) VALUES (?, ?, ?, ?, ?)`,
		rec.StartedAt.UTC(),
		rec.DurationMs,
		strings.Join(rec.Categories, ","),
		rec.Outcome,
		detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// ListRecent returns up to limit runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, categories, outcome, detail FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		var (
			rec        RunRecord
			categories string
			detail     sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.DurationMs, &categories, &rec.Outcome, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if categories != "" {
			rec.Categories = strings.Split(categories, ",")
		}
		rec.Detail = detail.String
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}
