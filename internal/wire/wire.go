// Package wire provides dependency injection for the primer application.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/example/primer/internal/adapters/sqlite"
	"github.com/example/primer/internal/app"
	"github.com/example/primer/internal/config"
	"github.com/example/primer/internal/db"
)

var (
	cfg     *config.Config
	runRepo *sqlite.RunRepository
	service *app.BootstrapService
	once    sync.Once
)

// Config returns the resolved configuration singleton.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// BootstrapService returns the singleton pipeline service.
func BootstrapService() *app.BootstrapService {
	once.Do(initServices)
	return service
}

// RunRepository returns the singleton run-ledger repository, or nil when
// the ledger database could not be opened.
func RunRepository() *sqlite.RunRepository {
	once.Do(initServices)
	return runRepo
}

func initServices() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// The ledger is an observability convenience: if the database cannot
	// be opened the pipeline runs without it.
	var recorder app.RunRecorder
	if conn, err := db.Get(); err == nil {
		runRepo = sqlite.NewRunRepository(conn)
		recorder = runRecorder{repo: runRepo}
	}

	service = app.NewBootstrapService(cfg, recorder, os.Stderr)
}

// runRecorder adapts the sqlite repository to the app.RunRecorder port.
type runRecorder struct {
	repo *sqlite.RunRepository
}

func (r runRecorder) Record(ctx context.Context, report *app.Report) error {
	return r.repo.Create(ctx, &sqlite.RunRecord{
		StartedAt:  report.StartedAt,
		DurationMs: report.Duration.Milliseconds(),
		Categories: report.Categories,
		Outcome:    report.Outcome,
		Detail:     recordDetail(report),
	})
}

func recordDetail(report *app.Report) string {
	if report.DegradedReason != "" {
		return report.DegradedReason
	}
	return report.SettingsNote
}
