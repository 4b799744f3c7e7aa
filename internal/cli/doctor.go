package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/primer/internal/core/mirror"
	"github.com/example/primer/internal/version"
	"github.com/example/primer/internal/wire"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate the primer environment",
		Long: `Environment health check for primer.

Validates:
- Directory structure (~/.primer/, mirror)
- Mirror freshness (commits behind upstream)
- Settings document parseability
- Binary installation and PATH

Examples:
  primer doctor              # Run full health check
  primer doctor --quiet      # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wire.Config()

			results := []CheckResult{
				checkMirror(cfg.MirrorDir),
				checkMirrorFreshness(cfg.MirrorDir),
				checkSettings(cfg.SettingsPath),
				checkRulesDoc(cfg.RulesPath),
				checkBinary(),
			}

			hasErrors := false
			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				fmt.Println()
				fmt.Println("Check              Status")
				fmt.Println("─────────────────────────")
				for _, r := range results {
					fmt.Printf("%-18s %s\n", r.Name, r.Status)
				}
				fmt.Println()

				hasDetails := false
				for _, r := range results {
					if r.Status != "✓" && r.Details != "" {
						if !hasDetails {
							fmt.Println("Details:")
							hasDetails = true
						}
						fmt.Printf("\n%s:\n%s\n", r.Name, r.Details)
					}
				}

				if hasErrors {
					fmt.Println("\n⚠ Issues found. Run 'primer sync' to repair.")
				} else {
					fmt.Println("All checks passed.")
				}
			}

			if hasErrors {
				return fmt.Errorf("environment validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - exit code only")

	return cmd
}

// checkMirror validates that a complete mirror exists
func checkMirror(mirrorDir string) CheckResult {
	if _, err := os.Stat(mirrorDir); os.IsNotExist(err) {
		return CheckResult{
			Name:    "Mirror",
			Status:  "⚠",
			Details: "  No mirror yet; the first 'primer sync' will clone it",
		}
	}
	if _, err := os.Stat(filepath.Join(mirrorDir, ".git")); err != nil {
		return CheckResult{
			Name:    "Mirror",
			Status:  "✗",
			Details: "  Mirror is a partial clone; 'primer sync' will re-clone it",
		}
	}
	return CheckResult{Name: "Mirror", Status: "✓"}
}

// checkMirrorFreshness reports how far the mirror lags its upstream
func checkMirrorFreshness(mirrorDir string) CheckResult {
	if _, err := os.Stat(filepath.Join(mirrorDir, ".git")); err != nil {
		return CheckResult{Name: "Mirror Freshness", Status: "⚠", Details: "  No mirror to check"}
	}

	behind, err := mirror.NewManager(mirrorDir, nil).CommitsBehind(context.Background())
	if err != nil {
		return CheckResult{
			Name:    "Mirror Freshness",
			Status:  "⚠",
			Details: "  Could not check upstream (offline?)",
		}
	}
	if behind > 0 {
		return CheckResult{
			Name:    "Mirror Freshness",
			Status:  "⚠",
			Details: fmt.Sprintf("  %d commits behind upstream\n  Run: primer sync", behind),
		}
	}
	return CheckResult{Name: "Mirror Freshness", Status: "✓"}
}

// checkSettings verifies the settings document parses
func checkSettings(settingsPath string) CheckResult {
	data, err := os.ReadFile(settingsPath)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    "Settings",
			Status:  "⚠",
			Details: "  No settings document yet; the first merge will create it",
		}
	}
	if err != nil {
		return CheckResult{Name: "Settings", Status: "✗", Details: "  Cannot read " + settingsPath}
	}
	if len(data) == 0 {
		return CheckResult{Name: "Settings", Status: "✓"}
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return CheckResult{
			Name:    "Settings",
			Status:  "✗",
			Details: "  Invalid JSON in " + settingsPath + " (merges will be skipped until fixed)",
		}
	}
	return CheckResult{Name: "Settings", Status: "✓"}
}

// checkRulesDoc reports whether an aggregated document has been written
func checkRulesDoc(rulesPath string) CheckResult {
	if _, err := os.Stat(rulesPath); os.IsNotExist(err) {
		return CheckResult{
			Name:    "Guidance Doc",
			Status:  "⚠",
			Details: "  Not generated yet; run: primer sync",
		}
	}
	return CheckResult{Name: "Guidance Doc", Status: "✓"}
}

// checkBinary validates primer binary installation
func checkBinary() CheckResult {
	path, err := exec.LookPath("primer")
	if err != nil {
		return CheckResult{
			Name:    "Binary",
			Status:  "⚠",
			Details: "  'primer' not found in PATH",
		}
	}
	return CheckResult{Name: "Binary", Status: "✓", Details: fmt.Sprintf("  %s (%s)", path, version.String())}
}
