package sqlite_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/primer/internal/adapters/sqlite"
	"github.com/example/primer/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

func TestCreateAndListRuns(t *testing.T) {
	repo := sqlite.NewRunRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	records := []*sqlite.RunRecord{
		{StartedAt: base, DurationMs: 1200, Categories: []string{"go", "shell"}, Outcome: "ok"},
		{StartedAt: base.Add(time.Minute), DurationMs: 90, Categories: nil, Outcome: "busy"},
		{StartedAt: base.Add(2 * time.Minute), DurationMs: 800, Categories: []string{"go"}, Outcome: "degraded", Detail: "remote unreachable"},
	}
	for _, rec := range records {
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if rec.ID == 0 {
			t.Error("Create did not populate ID")
		}
	}

	runs, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}

	// Newest first.
	if runs[0].Outcome != "degraded" || runs[2].Outcome != "ok" {
		t.Errorf("runs not ordered newest first: %s, %s, %s",
			runs[0].Outcome, runs[1].Outcome, runs[2].Outcome)
	}
	if runs[0].Detail != "remote unreachable" {
		t.Errorf("Detail = %q, want remote unreachable", runs[0].Detail)
	}
	if len(runs[2].Categories) != 2 || runs[2].Categories[0] != "go" {
		t.Errorf("Categories = %v, want [go shell]", runs[2].Categories)
	}
	if runs[1].Categories != nil {
		t.Errorf("busy run should have no categories, got %v", runs[1].Categories)
	}
}

func TestListRecentHonorsLimit(t *testing.T) {
	repo := sqlite.NewRunRepository(setupTestDB(t))
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		rec := &sqlite.RunRecord{
			StartedAt:  base.Add(time.Duration(i) * time.Second),
			DurationMs: int64(i),
			Categories: []string{"go"},
			Outcome:    "ok",
		}
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	runs, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestCreateRejectsUnknownOutcome(t *testing.T) {
	repo := sqlite.NewRunRepository(setupTestDB(t))

	err := repo.Create(context.Background(), &sqlite.RunRecord{
		StartedAt: time.Now().UTC(),
		Outcome:   "exploded",
	})
	if err == nil {
		t.Error("schema should reject unknown outcome values")
	}
}
