package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// formatter describes one external formatting tool and how to invoke it
// in fix and check modes.
type formatter struct {
	tool      string
	fixArgs   []string
	checkArgs []string
}

// formatters maps file extensions to their tool. Dispatch is purely by
// extension; primer carries no formatting logic of its own.
var formatters = map[string]formatter{
	".go":  {tool: "gofmt", fixArgs: []string{"-w"}, checkArgs: []string{"-l"}},
	".sh":  {tool: "shfmt", fixArgs: []string{"-w"}, checkArgs: []string{"-d"}},
	".py":  {tool: "black", fixArgs: []string{"-q"}, checkArgs: []string{"-q", "--check"}},
	".js":  {tool: "prettier", fixArgs: []string{"--write"}, checkArgs: []string{"--check"}},
	".ts":  {tool: "prettier", fixArgs: []string{"--write"}, checkArgs: []string{"--check"}},
	".tsx": {tool: "prettier", fixArgs: []string{"--write"}, checkArgs: []string{"--check"}},
}

// FmtCmd returns the fmt command - the formatter dispatcher.
func FmtCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "fmt <file>...",
		Short: "Format files by dispatching to per-language tools",
		Long: `Dispatch each file to its formatter by extension (gofmt, shfmt,
black, prettier). Files with an unknown extension, and files whose tool
is not installed, are skipped with a warning.

In check mode no file is modified and the exit code is non-zero if any
file needs formatting.

Examples:
  primer fmt main.go deploy.sh
  primer fmt --check $(git diff --name-only)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := runFormatters(args, check)
			if check && len(failed) > 0 {
				return fmt.Errorf("%d file(s) need formatting: %s", len(failed), strings.Join(failed, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "report files needing changes instead of rewriting them")

	return cmd
}

// runFormatters dispatches each file and returns the ones that failed
// their check.
func runFormatters(files []string, check bool) []string {
	var failed []string
	for _, file := range files {
		f, ok := formatters[strings.ToLower(filepath.Ext(file))]
		if !ok {
			fmt.Fprintf(os.Stderr, "primer: no formatter for %s, skipping\n", file)
			continue
		}
		if _, err := exec.LookPath(f.tool); err != nil {
			fmt.Fprintf(os.Stderr, "primer: %s not installed, skipping %s\n", f.tool, file)
			continue
		}

		args := f.fixArgs
		if check {
			args = f.checkArgs
		}
		cmd := exec.Command(f.tool, append(append([]string{}, args...), file)...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			failed = append(failed, file)
			continue
		}
		// gofmt -l lists offending files on stdout with exit code 0.
		if check && f.tool == "gofmt" && strings.TrimSpace(string(out)) != "" {
			failed = append(failed, file)
		}
	}
	return failed
}
