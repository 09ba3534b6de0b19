package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/config"
	"github.com/blackwell-systems/autoapply/internal/daemon"
	"github.com/blackwell-systems/autoapply/internal/output"
	"github.com/blackwell-systems/autoapply/internal/stats"
	"github.com/blackwell-systems/autoapply/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show account, configuration and server status",
	Long: `Show a summary of the saved account, search configuration, recorded
statistics, the application journal and the background server.`,
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Data directory:  %s\n", cfgStore.Dir())

	creds, err := cfgStore.LoadCredentials()
	switch {
	case errors.Is(err, config.ErrNoCredentials):
		fmt.Fprintf(out, "Account:         %s\n", output.Yellow("not logged in (run 'autoapply login')"))
	case err != nil:
		fmt.Fprintf(out, "Account:         %s\n", output.Red("unreadable: "+err.Error()))
	default:
		fmt.Fprintf(out, "Account:         %s\n", creds.Email)
	}

	cfg, err := cfgStore.LoadSearchConfig()
	if err != nil {
		return err
	}
	terms := strings.Join(cfg.SearchTerms, ", ")
	if terms == "" {
		terms = output.Yellow("none (run 'autoapply config set --terms ...')")
	}
	fmt.Fprintf(out, "Search terms:    %s\n", terms)
	fmt.Fprintf(out, "Max per term:    %d\n", cfg.MaxApplicationsPerSession)

	if creds.Email != "" {
		user, err := cfgStore.LoadStatistics(creds.Email)
		if err != nil {
			return err
		}
		global := stats.Aggregate(user)
		fmt.Fprintf(out, "Sessions:        %d\n", global.TotalSessions)
		fmt.Fprintf(out, "Applications:    %d (%d successful, %.1f%%)\n",
			global.TotalApplications, global.SuccessfulApplications, global.SuccessRate)
		if global.LastSession != "" {
			fmt.Fprintf(out, "Last session:    %s\n", global.LastSession)
		}
	}

	journal, err := openJournal(cfgStore)
	switch {
	case errors.Is(err, store.ErrNotInitialized):
		fmt.Fprintf(out, "Journal:         %s\n", output.Gray("empty"))
	case err != nil:
		fmt.Fprintf(out, "Journal:         %s\n", output.Red("unreadable: "+err.Error()))
	default:
		n, err := journal.CountApplications()
		journal.Close()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Journal:         %d application(s)\n", n)
	}

	pidFile := filepath.Join(cfgStore.Dir(), serverPIDFile)
	running, err := daemon.IsRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check server status: %w", err)
	}
	if running {
		pid, _ := daemon.ReadPID(pidFile)
		fmt.Fprintf(out, "Server:          %s (PID %d)\n", output.Green("running"), pid)
	} else {
		fmt.Fprintf(out, "Server:          %s\n", output.Gray("stopped"))
	}
	return nil
}
