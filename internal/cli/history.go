package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/primer/internal/wire"
)

// HistoryCmd returns the history command listing recent pipeline runs.
func HistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		Long: `List recent bootstrap runs from the local run ledger.

Examples:
  primer history
  primer history --limit 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := wire.RunRepository()
			if repo == nil {
				return fmt.Errorf("run ledger unavailable")
			}

			runs, err := repo.ListRecent(context.Background(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tDURATION\tOUTCOME\tCATEGORIES\tDETAIL")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					run.StartedAt.Local().Format(time.DateTime),
					time.Duration(run.DurationMs)*time.Millisecond,
					run.Outcome,
					strings.Join(run.Categories, ","),
					run.Detail,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of runs to show")

	return cmd
}
