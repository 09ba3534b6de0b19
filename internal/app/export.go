package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/autoapply/internal/config"
	"github.com/blackwell-systems/autoapply/internal/export"
	"github.com/blackwell-systems/autoapply/internal/output"
)

var (
	exportOutput string

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export statistics to an Excel workbook",
		Long: `Write the recorded sessions to an .xlsx workbook with three sheets:
Sessions, Applications and Search terms.`,
		Example: `  autoapply export
  autoapply export -o ~/Documents/applications.xlsx`,
		RunE: runExport,
	}
)

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: autoapply_<date>.xlsx)")

	RootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
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

	path := exportOutput
	if path == "" {
		path = fmt.Sprintf("autoapply_%s.xlsx", time.Now().Format("20060102"))
	}
	if err := export.Save(user, path); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Exported %d sessions, %d applications to %s\n",
		output.Green("✓"), len(user.Sessions), user.TotalApplications, path)
	return nil
}
