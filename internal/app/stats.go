package app

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/config"
	"github.com/blackwell-systems/autoapply/internal/output"
	"github.com/blackwell-systems/autoapply/internal/stats"
)

var (
	statsAdvanced bool
	statsJSON     bool

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show application statistics",
		Long: `Summarize every recorded session for the saved account.

The default view shows totals and the success rate. --advanced adds the
per-search-term counters, the contract/remote type breakdowns, applications
per day and per-session averages.`,
		Example: `  autoapply stats
  autoapply stats --advanced
  autoapply stats --advanced --json`,
		RunE: runStats,
	}
)

func init() {
	statsCmd.Flags().BoolVar(&statsAdvanced, "advanced", false, "show breakdowns and trends")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print as JSON")

	RootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	creds, err := cfgStore.LoadCredentials()
	if err != nil {
		if errors.Is(err, config.ErrNoCredentials) {
			return fmt.Errorf("no account saved; run 'autoapply login' first")
		}
		return err
	}
	user, err := cfgStore.LoadStatistics(creds.Email)
	if err != nil {
		return err
	}
	global := stats.Aggregate(user)

	out := cmd.OutOrStdout()
	if statsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if statsAdvanced {
			return enc.Encode(global)
		}
		return enc.Encode(map[string]interface{}{
			"total_applications":      global.TotalApplications,
			"successful_applications": global.SuccessfulApplications,
			"failed_applications":     global.FailedApplications,
			"success_rate":            global.SuccessRate,
			"total_sessions":          global.TotalSessions,
			"last_session":            global.LastSession,
		})
	}

	fmt.Fprint(out, output.RenderSummary(global))
	if !statsAdvanced {
		if global.TotalSessions > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Run 'autoapply stats --advanced' for per-term breakdowns.")
		}
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderTrend(global.Trend))
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderTermTable(global.PerSearchTerm))
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderBreakdown("Contract types", global.PerContractType))
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderBreakdown("Remote types", global.PerRemoteType))
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderBreakdown("Applications per day", global.PerDay))
	return nil
}
