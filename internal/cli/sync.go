// Package cli provides CLI commands for the primer application.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/primer/internal/app"
	"github.com/example/primer/internal/wire"
)

// SyncCmd returns the sync command - the main bootstrap pipeline.
func SyncCmd() *cobra.Command {
	var workDir string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync guidance content and merge permissions",
		Long: `Run the bootstrap pipeline: acquire the run lock, refresh the
content mirror, detect project technologies, aggregate matching guidance
into one document, and merge remote permissions into the user settings.

Safe to run on every checkout, merge, or session start. If another run
is already in progress this one yields immediately with exit code 0.

Examples:
  primer sync                 # sync against the current directory
  primer sync --dir ~/src/app # sync against another working directory
  PRIMER_VERBOSE=1 primer sync`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The lock must be released even on SIGINT/SIGTERM: the
			// signal cancels the context, in-flight git commands die,
			// and the deferred release in the service runs.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir := workDir
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get working directory: %w", err)
				}
			}

			report, err := wire.BootstrapService().Run(ctx, dir)
			printSummary(report)
			return err
		},
	}

	cmd.Flags().StringVar(&workDir, "dir", "", "working directory to classify (default: current directory)")

	return cmd
}

// printSummary emits the one-line run summary. This line is printed on
// every run regardless of verbosity.
func printSummary(report *app.Report) {
	switch report.Outcome {
	case app.OutcomeBusy:
		fmt.Fprintln(os.Stderr, "primer: another run in progress, yielding")
	case app.OutcomeFailed:
		color.New(color.FgRed).Fprintln(os.Stderr, "primer: run failed")
	default:
		line := fmt.Sprintf("primer: synced %d categories: %s",
			len(report.Categories), strings.Join(report.Categories, ", "))
		if report.Degraded {
			line += " " + color.YellowString("(degraded: cached mirror)")
		}
		fmt.Fprintln(os.Stderr, line)
	}
}
