package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/output"
	"github.com/blackwell-systems/autoapply/internal/store"
)

var (
	historyLimit        int
	historyApplications bool
	historyTerm         string
	historyStatus       string
	historySince        int
	historySession      string

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Browse journaled sessions and applications",
		Long: `List past sessions, or the individual application attempts, from the local
journal (journal.db in the data directory).

The journal is also what lets 'autoapply run' skip listings you already
applied to.`,
		Example: `  # Recent sessions
  autoapply history

  # Per-term counters of one session
  autoapply history --session session_20260301_090000

  # Failed applications for "golang" over the last week
  autoapply history --applications --term golang --status failed --since 7`,
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum rows (0 for all)")
	historyCmd.Flags().BoolVarP(&historyApplications, "applications", "a", false, "list application attempts instead of sessions")
	historyCmd.Flags().StringVar(&historyTerm, "term", "", "only applications for this search term")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "only applications with this status (success, failed)")
	historyCmd.Flags().IntVar(&historySince, "since", 0, "only applications from the last N days")
	historyCmd.Flags().StringVar(&historySession, "session", "", "show the per-term counters of one session")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyStatus != "" && historyStatus != string(model.StatusSuccess) && historyStatus != string(model.StatusFailed) {
		return fmt.Errorf("invalid --status %q (allowed: success, failed)", historyStatus)
	}
	if historySince < 0 {
		return fmt.Errorf("--since must be >= 0")
	}

	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	journal, err := openJournal(cfgStore)
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Fprintln(out, "No sessions journaled yet. Run 'autoapply run' first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	switch {
	case historySession != "":
		counters, err := journal.GetTermCounters(historySession)
		if err != nil {
			return err
		}
		if len(counters) == 0 {
			return fmt.Errorf("no counters journaled for session %s", historySession)
		}
		fmt.Fprintf(out, "Session %s\n\n", historySession)
		fmt.Fprint(out, output.RenderCounters(counters))

	case historyApplications:
		filter := store.ApplicationFilter{
			Term:   historyTerm,
			Status: model.Status(historyStatus),
			Limit:  historyLimit,
		}
		if historySince > 0 {
			filter.Since = time.Now().AddDate(0, 0, -historySince)
		}
		apps, err := journal.ListApplications(filter)
		if err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderApplicationTable(apps))

	default:
		sessions, err := journal.ListSessions(historyLimit)
		if err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderSessionTable(sessions))
	}
	return nil
}
