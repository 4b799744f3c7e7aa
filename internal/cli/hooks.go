package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/primer/internal/wire"
)

// HooksCmd returns the hooks command - parent for hook script management.
func HooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "Manage hook scripts",
	}

	cmd.AddCommand(hooksInstallCmd())

	return cmd
}

// hooksInstallCmd copies hook scripts from the mirror into the host
// tool's hook directory. A thin file copy: primer does not interpret
// the scripts.
func hooksInstallCmd() *cobra.Command {
	var destDir string

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install hook scripts from the mirror",
		Long: `Copy hook scripts from the mirror's hooks/ directory into the
host tool's hook directory, preserving executable bits. Run 'primer sync'
first so the mirror is current.

Examples:
  primer hooks install
  primer hooks install --dest ~/.claude/hooks`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := wire.Config()

			if destDir == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("failed to get home directory: %w", err)
				}
				destDir = filepath.Join(home, ".claude", "hooks")
			}

			installed, err := installHooks(cfg.HooksDir(), destDir)
			if err != nil {
				return err
			}
			if installed == 0 {
				fmt.Println("No hook scripts in mirror; nothing to install.")
				return nil
			}
			fmt.Printf("Installed %d hook script(s) to %s\n", installed, destDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&destDir, "dest", "", "hook directory (default: ~/.claude/hooks)")

	return cmd
}

func installHooks(srcDir, destDir string) (int, error) {
	entries, err := os.ReadDir(srcDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read hooks directory: %w", err)
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create hook directory: %w", err)
	}

	installed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(srcDir, entry.Name()))
		if err != nil {
			return installed, fmt.Errorf("failed to read hook %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(filepath.Join(destDir, entry.Name()), data, 0755); err != nil {
			return installed, fmt.Errorf("failed to install hook %s: %w", entry.Name(), err)
		}
		installed++
	}
	return installed, nil
}
