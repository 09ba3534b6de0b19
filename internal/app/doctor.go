package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/config"
	"github.com/blackwell-systems/autoapply/internal/daemon"
	"github.com/blackwell-systems/autoapply/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that autoapply is ready to run",
	Long: `Runs diagnostic checks on your autoapply setup.

Checks:
  • Data directory exists and is writable
  • Credentials are saved and can be decrypted
  • Search configuration is valid and has search terms
  • A Chrome or Chromium executable is available
  • The application journal is readable
  • Whether the background server is running`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Running autoapply diagnostics...")
	fmt.Fprintln(out)

	// Critical issues prevent a session from running; warnings do not.
	criticalIssues := 0
	warningIssues := 0

	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintln(out, "✗ Invalid environment settings:", err)
		criticalIssues++
	}

	// Check 1: Data directory
	cfgStore, err := openConfig()
	if err != nil {
		fmt.Fprintln(out, "✗ Data directory unavailable:", err)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Found 1 critical issue.")
		return fmt.Errorf("diagnostics failed")
	}
	probe := filepath.Join(cfgStore.Dir(), ".doctor")
	if err := os.WriteFile(probe, nil, 0600); err != nil {
		fmt.Fprintln(out, "✗ Data directory not writable:", cfgStore.Dir())
		criticalIssues++
	} else {
		os.Remove(probe)
		fmt.Fprintln(out, "✓ Data directory:", cfgStore.Dir())
	}

	// Check 2: Credentials
	if _, err := cfgStore.LoadCredentials(); err != nil {
		if errors.Is(err, config.ErrNoCredentials) {
			fmt.Fprintln(out, "✗ No credentials saved")
			fmt.Fprintln(out, "  Action: Run 'autoapply login'")
		} else {
			fmt.Fprintln(out, "✗ Cannot read credentials:", err)
			fmt.Fprintln(out, "  Action: Run 'autoapply login' to save them again")
		}
		criticalIssues++
	} else {
		fmt.Fprintln(out, "✓ Credentials saved")
	}

	// Check 3: Search configuration
	cfg, err := cfgStore.LoadSearchConfig()
	if err != nil {
		fmt.Fprintln(out, "✗ Cannot read search config:", err)
		fmt.Fprintln(out, "  Action: Run 'autoapply config reset'")
		criticalIssues++
	} else if err := cfg.Ready(); err != nil {
		fmt.Fprintln(out, "✗ Search config not ready:", err)
		fmt.Fprintln(out, "  Action: Run 'autoapply config set --terms ...'")
		criticalIssues++
	} else {
		fmt.Fprintf(out, "✓ Search config: %d term(s)\n", len(cfg.SearchTerms))
	}

	// Check 4: Browser
	if path, err := findBrowser(settings.BrowserPath); err != nil {
		fmt.Fprintln(out, "✗ Browser:", err)
		fmt.Fprintln(out, "  Action: Install Chrome or Chromium, or set AUTOAPPLY_BROWSER")
		criticalIssues++
	} else {
		fmt.Fprintln(out, "✓ Browser:", path)
	}

	// Check 5: Journal (warning only; sessions create it)
	journal, err := openJournal(cfgStore)
	switch {
	case errors.Is(err, store.ErrNotInitialized):
		fmt.Fprintln(out, "⚠ No journal yet")
		fmt.Fprintln(out, "  This is normal before the first session")
		warningIssues++
	case err != nil:
		fmt.Fprintln(out, "⚠ Cannot open journal:", err)
		warningIssues++
	default:
		n, err := journal.CountApplications()
		journal.Close()
		if err != nil {
			fmt.Fprintln(out, "⚠ Cannot read journal:", err)
			warningIssues++
		} else {
			fmt.Fprintf(out, "✓ Journal: %d application(s) recorded\n", n)
		}
	}

	// Check 6: Background server (informational)
	pidFile := filepath.Join(cfgStore.Dir(), serverPIDFile)
	if running, err := daemon.IsRunning(pidFile); err != nil {
		fmt.Fprintln(out, "⚠ Failed to check server status:", err)
		warningIssues++
	} else if running {
		pid, _ := daemon.ReadPID(pidFile)
		fmt.Fprintf(out, "✓ Server running (PID %d)\n", pid)
	} else {
		fmt.Fprintln(out, "· Server not running")
	}

	fmt.Fprintln(out)
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Fprintln(out, "✓ All checks passed!")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Next steps:")
		fmt.Fprintln(out, "  • Start a session: autoapply run")
		fmt.Fprintln(out, "  • Review results: autoapply stats --advanced")
		return nil
	}

	if criticalIssues > 0 {
		fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return fmt.Errorf("diagnostics failed")
	}

	fmt.Fprintf(out, "Found %d warning(s). autoapply is ready to run.\n", warningIssues)
	return nil
}
