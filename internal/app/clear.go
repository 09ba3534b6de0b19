package app

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/daemon"
	"github.com/blackwell-systems/autoapply/internal/output"
)

var (
	clearYes bool

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete all saved data",
		Long: `Delete the whole data directory: the encryption key, credentials, search
config, statistics, journal and logs.

This cannot be undone. Stop the background server first.`,
		Example: `  autoapply clear
  autoapply clear --yes`,
		RunE: runClear,
	}
)

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")

	RootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	running, err := daemon.IsRunning(filepath.Join(cfgStore.Dir(), serverPIDFile))
	if err != nil {
		return fmt.Errorf("failed to check server status: %w", err)
	}
	if running {
		return fmt.Errorf("the background server is running; stop it with 'autoapply serve --stop' first")
	}

	if !clearYes {
		prompt := fmt.Sprintf("This deletes everything in %s.", cfgStore.Dir())
		if !confirm(cmd.InOrStdin(), out, prompt) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if err := cfgStore.Reset(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s All data deleted\n", output.Green("✓"))
	return nil
}
