package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/config"
)

var (
	homeDir string

	// RootCmd is the root command for autoapply
	RootCmd = &cobra.Command{
		Use:   "autoapply",
		Short: "Automated job applications on free-work.com",
		Long: `autoapply logs in to free-work.com, runs your saved search terms through the
site filters, screens each listing against your excluded keywords and submits
your application message, keeping per-session statistics.

Quick Start:
  1. autoapply login --email you@example.com
  2. autoapply config set --terms "golang,kubernetes" --max 20
  3. autoapply run
  4. autoapply stats --advanced

Everything lives in the data directory (default ~/.autoapply): the
encryption key, encrypted credentials, search config, statistics, the
application journal and daily logs. 'autoapply clear' deletes it.

Examples:
  # Check what is configured
  autoapply status

  # Run one session with a visible browser
  autoapply run

  # Serve the REST API and run a session every weekday at 9:00
  autoapply serve --schedule "0 9 * * 1-5" --daemon

  # Export your history to a spreadsheet
  autoapply export -o history.xlsx`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "autoapply: automated job applications on free-work.com")
			fmt.Fprintln(out)
			cfgStore, err := openConfig()
			if err == nil {
				if _, err := cfgStore.LoadCredentials(); err == nil {
					fmt.Fprintln(out, "Tip: Run 'autoapply status' to review your setup.")
					fmt.Fprintln(out, "     Run 'autoapply run' to start a session.")
					fmt.Fprintln(out, "     Run 'autoapply --help' for all commands.")
					return nil
				}
			}
			fmt.Fprintln(out, "Run 'autoapply login' to get started.")
			fmt.Fprintln(out, "Run 'autoapply --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "data directory (default: $AUTOAPPLY_HOME or ~/.autoapply)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// getDataDir returns the data directory, using the flag value or default
func getDataDir() (string, error) {
	if homeDir != "" {
		return homeDir, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve data directory: %w", err)
	}
	return dir, nil
}

// openConfig opens the config store in the data directory.
func openConfig() (*config.Store, error) {
	dir, err := getDataDir()
	if err != nil {
		return nil, err
	}
	return config.Open(dir)
}

// loadSettings reads environment settings, honouring --home.
func loadSettings() (config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return config.Settings{}, err
	}
	if homeDir != "" {
		settings.Home = homeDir
	}
	return settings, nil
}
