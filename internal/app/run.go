package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/automation"
	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/output"
	"github.com/blackwell-systems/autoapply/internal/session"
)

var (
	runQuiet    bool
	runHeadless bool

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run one application session now",
		Long: `Sign in, search every configured term, apply the site filters and submit
your application message to each listing that passes the keyword screen.

The session stops a term once max_applications_per_session records have been
produced for it. Listings you already applied to (on the site or in the local
journal) are counted but not resubmitted.

Press Ctrl+C to stop; an interrupted session is not saved to statistics.`,
		Example: `  # Watch the log
  autoapply run

  # Compact progress, no browser window
  autoapply run --quiet --headless`,
		RunE: runRun,
	}
)

func init() {
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "show a progress spinner instead of the log")
	runCmd.Flags().BoolVar(&runHeadless, "headless", false, "run Chrome without a window (default: $AUTOAPPLY_HEADLESS)")

	RootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("headless") {
		settings.Headless = runHeadless
	}

	cfgStore, err := openConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := serviceOptions(settings, cfgStore, out)

	var spinner *output.Spinner
	if runQuiet {
		opts.Console = nil
		spinner = output.NewSpinner("Starting browser").WithElapsed()
		spinner.SetWriter(out)
		progress := &runProgress{spinner: spinner}
		opts.OnTransition = progress.transition
		opts.OnOutcome = progress.outcome
		spinner.Start()
	}

	ctx, stop := signalContext()
	defer stop()

	rec, err := session.NewService(opts).Run(ctx)
	if spinner != nil {
		if err != nil {
			spinner.StopWithMessage(output.Red("✗") + " Session failed")
		} else {
			spinner.StopWithMessage(output.Green("✓") + " Session complete")
		}
	}
	if err != nil {
		return err
	}

	printRunSummary(out, rec)
	return nil
}

// runProgress turns engine callbacks into spinner messages.
type runProgress struct {
	spinner   *output.Spinner
	term      string
	submitted int
	skipped   int
}

func (p *runProgress) transition(from, to automation.State) {
	switch to {
	case automation.StateBrowserInitialized:
		p.spinner.UpdateMessage("Signing in")
	case automation.StateSessionComplete:
		p.spinner.UpdateMessage("Saving session")
	}
}

func (p *runProgress) outcome(o automation.Outcome) {
	p.term = o.Term
	if o.Kind == automation.OutcomeSubmitted {
		p.submitted++
	} else {
		p.skipped++
	}
	p.spinner.UpdateMessage(fmt.Sprintf("Searching %q: %d submitted, %d skipped", p.term, p.submitted, p.skipped))
}

func printRunSummary(out io.Writer, rec model.SessionRecord) {
	fmt.Fprintln(out)
	fmt.Fprint(out, output.RenderCounters(rec.PerSearchTerm))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Applications: %d (%d successful, %d failed)\n", rec.Total, rec.Successful, rec.Failed)
	if rec.Total > 0 {
		fmt.Fprintf(out, "Success rate: %.1f%%\n", rec.SuccessRate)
	}
}
