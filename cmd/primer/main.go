package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/primer/internal/cli"
	"github.com/example/primer/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "primer",
		Short:   "primer - keep this machine's guidance and permissions in sync",
		Version: version.String(),
		Long: `primer keeps a developer machine synchronized with a central guidance
repository: it mirrors the content, detects the technologies in use,
aggregates the matching guidance into one document, and merges remote
permission grants into the local settings.`,
	}

	rootCmd.AddCommand(cli.SyncCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.HistoryCmd())
	rootCmd.AddCommand(cli.HooksCmd())
	rootCmd.AddCommand(cli.FmtCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
