// Package app wires the pipeline stages into the bootstrap service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/example/primer/internal/config"
	"github.com/example/primer/internal/core/aggregate"
	"github.com/example/primer/internal/core/detect"
	"github.com/example/primer/internal/core/lockfile"
	"github.com/example/primer/internal/core/mirror"
	"github.com/example/primer/internal/core/settings"
)

// Run outcomes as recorded in the ledger and reported to the CLI.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeBusy     = "busy"
	OutcomeFailed   = "failed"
)

// Report summarizes one pipeline run.
type Report struct {
	Outcome        string
	Categories     []string
	Degraded       bool
	DegradedReason string
	SettingsMerged bool
	SettingsNote   string // why the merge was skipped, if it was
	StartedAt      time.Time
	Duration       time.Duration
}

// RunRecorder receives completed run reports. Implementations must treat
// recording as best effort; the pipeline never fails because of it.
type RunRecorder interface {
	Record(ctx context.Context, report *Report) error
}

// BootstrapService runs the five-stage sync pipeline: lock, mirror sync,
// technology detection, content aggregation, settings merge.
type BootstrapService struct {
	cfg      *config.Config
	recorder RunRecorder
	out      io.Writer
}

// NewBootstrapService creates the pipeline service. recorder may be nil.
// Progress output goes to out (normally stderr).
func NewBootstrapService(cfg *config.Config, recorder RunRecorder, out io.Writer) *BootstrapService {
	if out == nil {
		out = io.Discard
	}
	return &BootstrapService{cfg: cfg, recorder: recorder, out: out}
}

// Run executes one pipeline pass. A Busy result is reported with
// Outcome == OutcomeBusy and a nil error: another run owns the machine
// and will do the same work. Stage failures after aggregation do not
// invalidate the already-written document.
func (s *BootstrapService) Run(ctx context.Context, workDir string) (*Report, error) {
	report := &Report{StartedAt: time.Now()}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		s.record(ctx, report)
	}()

	handle, err := lockfile.Acquire(s.cfg.LockPath)
	if errors.Is(err, lockfile.ErrBusy) {
		report.Outcome = OutcomeBusy
		s.progress("another run holds %s, yielding", s.cfg.LockPath)
		return report, nil
	}
	if err != nil {
		report.Outcome = OutcomeFailed
		return report, err
	}
	defer handle.Release()

	ref, err := s.sync(ctx)
	if err != nil {
		report.Outcome = OutcomeFailed
		return report, err
	}
	report.Degraded = ref.Degraded
	report.DegradedReason = ref.Reason
	if ref.Degraded {
		s.progress("sync degraded (%s), using cached mirror", ref.Reason)
	}

	report.Categories = s.detectCategories(workDir)
	s.progress("detected categories: %v", report.Categories)

	doc, err := aggregate.Build(ref.Path, report.Categories)
	if err != nil {
		report.Outcome = OutcomeFailed
		return report, err
	}
	if err := aggregate.Write(s.cfg.RulesPath, doc); err != nil {
		report.Outcome = OutcomeFailed
		return report, err
	}
	s.progress("wrote %d bytes to %s", len(doc), s.cfg.RulesPath)

	s.mergeSettings(report)

	if report.Degraded {
		report.Outcome = OutcomeDegraded
	} else {
		report.Outcome = OutcomeOK
	}
	return report, nil
}

func (s *BootstrapService) sync(ctx context.Context) (*mirror.Ref, error) {
	s.progress("syncing mirror at %s", s.cfg.MirrorDir)
	return mirror.NewManager(s.cfg.MirrorDir, s.cfg.Remotes).Sync(ctx)
}

func (s *BootstrapService) detectCategories(workDir string) []string {
	table := detect.Builtin
	if s.cfg.CategoriesFile != "" {
		if user, err := config.LoadUserCategories(s.cfg.CategoriesFile); err != nil {
			s.progress("ignoring %s: %v", s.cfg.CategoriesFile, err)
		} else {
			for _, c := range user {
				table = append(table, detect.Category{Name: c.Name, Markers: c.Markers, Globs: c.Globs})
			}
		}
	}
	return detect.NewDetector(table, s.cfg.ScanDepth).Detect(workDir, s.cfg.ExtraCategories)
}

// mergeSettings runs the union merge. Every failure here is soft: the
// merge only saves permission prompts, so the pipeline result stands
// regardless.
func (s *BootstrapService) mergeSettings(report *Report) {
	if s.cfg.SkipSettings {
		report.SettingsNote = "disabled by " + config.EnvSkipSettings
		return
	}

	partial, err := os.ReadFile(s.cfg.PartialPath())
	if os.IsNotExist(err) {
		report.SettingsNote = "no permission partial in mirror"
		return
	}
	if err != nil {
		report.SettingsNote = fmt.Sprintf("cannot read permission partial: %v", err)
		s.progress("settings merge skipped: %s", report.SettingsNote)
		return
	}

	if err := settings.Merge(s.cfg.SettingsPath, partial); err != nil {
		report.SettingsNote = err.Error()
		s.progress("settings merge skipped: %v", err)
		return
	}
	report.SettingsMerged = true
	s.progress("merged permissions into %s", s.cfg.SettingsPath)
}

func (s *BootstrapService) record(ctx context.Context, report *Report) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, report); err != nil {
		s.progress("failed to record run: %v", err)
	}
}

func (s *BootstrapService) progress(format string, args ...any) {
	if !s.cfg.Verbose {
		return
	}
	fmt.Fprintf(s.out, "primer: "+format+"\n", args...)
}
