package app

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/example/primer/internal/config"
	"github.com/example/primer/internal/core/lockfile"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// makeContentRepo builds a local content repository with go and shell
// categories plus a permission partial, usable as a clone endpoint.
func makeContentRepo(t *testing.T) string {
	t.Helper()
	requireGit(t)

	dir := filepath.Join(t.TempDir(), "content")
	files := map[string]string{
		"go/10-style.md":            "go style rules\n",
		"go/20-testing.md":          "go testing rules\n",
		"shell/rules.md":            "shell rules\n",
		"settings/permissions.json": `{"permissions":{"allow":["read","write"]}}`,
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}

	for _, args := range [][]string{
		{"init", "--quiet", "--initial-branch=main"},
		{"add", "."},
		{"commit", "--quiet", "-m", "content"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@test",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@test",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v: %s", args, err, out)
		}
	}
	return dir
}

func testConfig(t *testing.T, endpoint string) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		MirrorDir:    filepath.Join(base, "mirror"),
		RulesPath:    filepath.Join(base, "primer.md"),
		SettingsPath: filepath.Join(base, "settings.json"),
		LockPath:     filepath.Join(base, "primer.lock"),
		Remotes:      []string{endpoint},
		ScanDepth:    config.DefaultScanDepth,
	}
}

func TestRunEndToEnd(t *testing.T) {
	endpoint := makeContentRepo(t)
	cfg := testConfig(t, endpoint)

	// Working directory that is a Go project and nothing else.
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "go.mod"), []byte("module x\n"), 0644); err != nil {
		t.Fatalf("failed to seed work dir: %v", err)
	}

	svc := NewBootstrapService(cfg, nil, nil)
	report, err := svc.Run(context.Background(), workDir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Outcome != OutcomeOK {
		t.Errorf("Outcome = %s, want ok", report.Outcome)
	}
	if !reflect.DeepEqual(report.Categories, []string{"go"}) {
		t.Errorf("Categories = %v, want [go]", report.Categories)
	}

	// Only go content, both items, shell excluded.
	doc, err := os.ReadFile(cfg.RulesPath)
	if err != nil {
		t.Fatalf("aggregated document missing: %v", err)
	}
	for _, fragment := range []string{"## go", "go style rules", "go testing rules"} {
		if !strings.Contains(string(doc), fragment) {
			t.Errorf("document missing %q:\n%s", fragment, doc)
		}
	}
	if strings.Contains(string(doc), "shell rules") {
		t.Errorf("shell content leaked into document:\n%s", doc)
	}

	// Permission partial merged into fresh settings.
	if !report.SettingsMerged {
		t.Fatalf("settings not merged: %s", report.SettingsNote)
	}
	data, err := os.ReadFile(cfg.SettingsPath)
	if err != nil {
		t.Fatalf("settings document missing: %v", err)
	}
	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		t.Fatalf("settings not valid JSON: %v", err)
	}
	allow := merged["permissions"].(map[string]any)["allow"].([]any)
	if !reflect.DeepEqual(allow, []any{"read", "write"}) {
		t.Errorf("allow = %v, want [read write]", allow)
	}

	// Lock released after the run.
	if _, err := os.Stat(cfg.LockPath); !os.IsNotExist(err) {
		t.Error("lock not released after run")
	}
}

func TestRunMergePreservesLocalSettings(t *testing.T) {
	endpoint := makeContentRepo(t)
	cfg := testConfig(t, endpoint)

	local := `{"permissions":{"allow":["read"]},"theme":"dark"}`
	if err := os.WriteFile(cfg.SettingsPath, []byte(local), 0644); err != nil {
		t.Fatalf("failed to seed settings: %v", err)
	}

	svc := NewBootstrapService(cfg, nil, nil)
	if _, err := svc.Run(context.Background(), t.TempDir()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(cfg.SettingsPath)
	if err != nil {
		t.Fatalf("settings missing: %v", err)
	}
	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		t.Fatalf("settings not valid JSON: %v", err)
	}
	allow := merged["permissions"].(map[string]any)["allow"].([]any)
	if !reflect.DeepEqual(allow, []any{"read", "write"}) {
		t.Errorf("allow = %v, want [read write] with no duplicates", allow)
	}
	if merged["theme"] != "dark" {
		t.Errorf("pre-existing top-level field lost: %v", merged)
	}
}

func TestRunYieldsWhenBusy(t *testing.T) {
	cfg := testConfig(t, "unused")

	held, err := lockfile.Acquire(cfg.LockPath)
	if err != nil {
		t.Fatalf("failed to pre-acquire lock: %v", err)
	}
	defer held.Release()

	svc := NewBootstrapService(cfg, nil, nil)
	report, err := svc.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("busy run must not be an error: %v", err)
	}
	if report.Outcome != OutcomeBusy {
		t.Errorf("Outcome = %s, want busy", report.Outcome)
	}

	// No side effects from the yielded run.
	if _, err := os.Stat(cfg.RulesPath); !os.IsNotExist(err) {
		t.Error("yielded run wrote the aggregated document")
	}
	if _, err := os.Stat(cfg.MirrorDir); !os.IsNotExist(err) {
		t.Error("yielded run touched the mirror")
	}
}

func TestRunDegradedOfflineUsesCachedMirror(t *testing.T) {
	endpoint := makeContentRepo(t)
	cfg := testConfig(t, endpoint)
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "go.mod"), []byte("module x\n"), 0644); err != nil {
		t.Fatalf("failed to seed work dir: %v", err)
	}

	svc := NewBootstrapService(cfg, nil, nil)
	if _, err := svc.Run(context.Background(), workDir); err != nil {
		t.Fatalf("warm-up run failed: %v", err)
	}
	firstDoc, err := os.ReadFile(cfg.RulesPath)
	if err != nil {
		t.Fatalf("aggregated document missing: %v", err)
	}

	// Simulate going offline.
	if err := os.RemoveAll(endpoint); err != nil {
		t.Fatalf("failed to remove endpoint: %v", err)
	}
	if err := os.Remove(cfg.RulesPath); err != nil {
		t.Fatalf("failed to remove document: %v", err)
	}

	report, err := svc.Run(context.Background(), workDir)
	if err != nil {
		t.Fatalf("offline run with warm cache must succeed: %v", err)
	}
	if report.Outcome != OutcomeDegraded {
		t.Errorf("Outcome = %s, want degraded", report.Outcome)
	}

	secondDoc, err := os.ReadFile(cfg.RulesPath)
	if err != nil {
		t.Fatalf("aggregated document missing after degraded run: %v", err)
	}
	if string(firstDoc) != string(secondDoc) {
		t.Error("degraded run output differs from cached mirror content")
	}
}

func TestRunColdStartOfflineFails(t *testing.T) {
	requireGit(t)
	bogus := filepath.Join(t.TempDir(), "unreachable")
	cfg := testConfig(t, bogus)

	svc := NewBootstrapService(cfg, nil, nil)
	report, err := svc.Run(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("cold start with no reachable endpoint must fail")
	}
	if report.Outcome != OutcomeFailed {
		t.Errorf("Outcome = %s, want failed", report.Outcome)
	}
	if !strings.Contains(err.Error(), bogus) {
		t.Errorf("error does not name the attempted endpoint: %v", err)
	}

	// Lock still released on the failure path.
	if _, err := os.Stat(cfg.LockPath); !os.IsNotExist(err) {
		t.Error("lock not released after failed run")
	}
}

func TestRunSkipSettingsFlag(t *testing.T) {
	endpoint := makeContentRepo(t)
	cfg := testConfig(t, endpoint)
	cfg.SkipSettings = true

	svc := NewBootstrapService(cfg, nil, nil)
	report, err := svc.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.SettingsMerged {
		t.Error("merge ran despite opt-out flag")
	}
	if _, err := os.Stat(cfg.SettingsPath); !os.IsNotExist(err) {
		t.Error("opt-out run still touched the settings document")
	}
}

func TestRunMalformedSettingsLeftUntouched(t *testing.T) {
	endpoint := makeContentRepo(t)
	cfg := testConfig(t, endpoint)

	broken := `{"permissions": oops`
	if err := os.WriteFile(cfg.SettingsPath, []byte(broken), 0644); err != nil {
		t.Fatalf("failed to seed settings: %v", err)
	}

	svc := NewBootstrapService(cfg, nil, nil)
	report, err := svc.Run(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("merge failure must not fail the pipeline: %v", err)
	}
	if report.SettingsMerged {
		t.Error("merge reported success against a malformed document")
	}
	if report.SettingsNote == "" {
		t.Error("merge skip should carry a note")
	}

	data, readErr := os.ReadFile(cfg.SettingsPath)
	if readErr != nil {
		t.Fatalf("settings missing: %v", readErr)
	}
	if string(data) != broken {
		t.Errorf("malformed settings were modified: %s", data)
	}

	// The aggregated document from the earlier stage remains valid.
	if _, err := os.Stat(cfg.RulesPath); err != nil {
		t.Errorf("aggregated document lost after merge failure: %v", err)
	}
}
