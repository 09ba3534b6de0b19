package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/output"
)

var (
	configJSON bool

	configTerms     []string
	configContracts []string
	configRemote    []string
	configTimeframe string
	configExclude   []string
	configMessage   string
	configMax       int
	configDelay     int

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show or change the search configuration",
		Long: `Manage the search configuration sessions run with.

Options:
  contract types: ` + strings.Join(model.ContractTypes, ", ") + `
  remote types:   ` + strings.Join(model.RemoteTypes, ", ") + `
  timeframes:     ` + strings.Join(model.Timeframes, ", "),
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the search configuration",
		RunE:  runConfigShow,
	}

	configSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Change fields of the search configuration",
		Long: `Change the given fields, keeping every other field as stored.

List flags take comma-separated values and replace the stored list. Pass an
empty value (e.g. --contracts "") to clear a list.`,
		Example: `  autoapply config set --terms "golang,kubernetes" --remote full
  autoapply config set --timeframe less_than_7_days --max 20 --delay 5
  autoapply config set --exclude "banc,assurance,stage"
  autoapply config set --message "Bonjour, votre mission m'intéresse..."`,
		RunE: runConfigSet,
	}

	configResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Restore the default search configuration",
		RunE:  runConfigReset,
	}
)

func init() {
	configShowCmd.Flags().BoolVar(&configJSON, "json", false, "print as JSON")

	f := configSetCmd.Flags()
	f.StringSliceVar(&configTerms, "terms", nil, "search terms")
	f.StringSliceVar(&configContracts, "contracts", nil, "contract types")
	f.StringSliceVar(&configRemote, "remote", nil, "remote types")
	f.StringVar(&configTimeframe, "timeframe", "", "publication timeframe (empty for any)")
	f.StringSliceVar(&configExclude, "exclude", nil, "excluded keywords")
	f.StringVar(&configMessage, "message", "", "application message")
	f.IntVar(&configMax, "max", 0, "maximum applications per search term")
	f.IntVar(&configDelay, "delay", 0, "seconds between applications")

	configCmd.AddCommand(configShowCmd, configSetCmd, configResetCmd)
	RootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	cfg, err := cfgStore.LoadSearchConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if configJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	printSearchConfig(out, cfg)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	cfg, err := cfgStore.LoadSearchConfig()
	if err != nil {
		return err
	}

	changed := applyConfigFlags(cmd.Flags(), &cfg)
	if len(changed) == 0 {
		return fmt.Errorf("nothing to change; see 'autoapply config set --help'")
	}

	if err := cfgStore.SaveSearchConfig(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Updated %s\n\n", output.Green("✓"), strings.Join(changed, ", "))
	printSearchConfig(out, cfg)
	return nil
}

// applyConfigFlags copies every flag the user set onto cfg and returns the
// names of the changed fields.
func applyConfigFlags(flags *pflag.FlagSet, cfg *model.SearchConfig) []string {
	var changed []string
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
			changed = append(changed, name)
		}
	}

	set("terms", func() { cfg.SearchTerms = cleanList(configTerms) })
	set("contracts", func() { cfg.ContractTypes = cleanList(configContracts) })
	set("remote", func() { cfg.RemoteTypes = cleanList(configRemote) })
	set("timeframe", func() { cfg.PublicationTimeframe = strings.TrimSpace(configTimeframe) })
	set("exclude", func() { cfg.ExcludedKeywords = cleanList(configExclude) })
	set("message", func() { cfg.ApplicationMessage = configMessage })
	set("max", func() { cfg.MaxApplicationsPerSession = configMax })
	set("delay", func() { cfg.DelayBetweenApplications = configDelay })

	return changed
}

func cleanList(values []string) []string {
	out := []string{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	cfgStore, err := openConfig()
	if err != nil {
		return err
	}
	if err := cfgStore.ResetSearchConfig(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Search configuration reset to defaults\n", output.Green("✓"))
	return nil
}

func printSearchConfig(out io.Writer, cfg model.SearchConfig) {
	list := func(v []string) string {
		if len(v) == 0 {
			return output.Gray("(none)")
		}
		return strings.Join(v, ", ")
	}
	timeframe := cfg.PublicationTimeframe
	if timeframe == "" {
		timeframe = output.Gray("(any)")
	}

	fmt.Fprintf(out, "Search terms:      %s\n", list(cfg.SearchTerms))
	fmt.Fprintf(out, "Contract types:    %s\n", list(cfg.ContractTypes))
	fmt.Fprintf(out, "Remote types:      %s\n", list(cfg.RemoteTypes))
	fmt.Fprintf(out, "Published within:  %s\n", timeframe)
	fmt.Fprintf(out, "Excluded keywords: %s\n", list(cfg.ExcludedKeywords))
	fmt.Fprintf(out, "Max per term:      %d\n", cfg.MaxApplicationsPerSession)
	fmt.Fprintf(out, "Delay:             %ds\n", cfg.DelayBetweenApplications)
	fmt.Fprintf(out, "Message:\n")
	for _, line := range strings.Split(strings.TrimRight(cfg.ApplicationMessage, "\n"), "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}
}
