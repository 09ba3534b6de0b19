// Package export writes an account's session history to an xlsx workbook.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/stats"
)

// Sheet names.
const (
	SessionsSheet     = "Sessions"
	ApplicationsSheet = "Applications"
	TermsSheet        = "Search terms"
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	sessionHeaders     = []string{"Session", "Date", "Total", "Successful", "Failed", "Success rate (%)"}
	applicationHeaders = []string{"Session", "Timestamp", "Search term", "Job title", "Company", "Status", "Contract type", "Remote type", "Reason", "URL"}
	termHeaders        = []string{"Search term", "Found", "Submitted", "Already applied", "Excluded", "Failed", "Applications", "Successful"}
)

// Build returns a workbook with one sheet each for sessions, applications
// and per-term totals. The caller must Close it.
func Build(user model.UserStatistics) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SessionsSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{ApplicationsSheet, TermsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	sessions := [][]interface{}{}
	applications := [][]interface{}{}
	for _, s := range user.Sessions {
		sessions = append(sessions, []interface{}{
			s.SessionID,
			s.Date.Format(timestampLayout),
			s.Total,
			s.Successful,
			s.Failed,
			round1(s.SuccessRate),
		})
		for _, a := range s.Applications {
			applications = append(applications, []interface{}{
				s.SessionID,
				a.Timestamp.Format(timestampLayout),
				a.SearchTerm,
				a.JobTitle,
				a.Company,
				string(a.Status),
				strings.Join(a.ContractType, ", "),
				strings.Join(a.RemoteType, ", "),
				a.Reason,
				a.JobURL,
			})
		}
	}

	terms := [][]interface{}{}
	for _, t := range stats.Aggregate(user).PerSearchTerm {
		terms = append(terms, []interface{}{
			t.SearchTerm,
			t.JobsFound,
			t.JobsSubmitted,
			t.JobsAlreadyApplied,
			t.JobsExcluded,
			t.JobsFailed,
			t.Applications,
			t.Successful,
		})
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{SessionsSheet, sessionHeaders, sessions},
		{ApplicationsSheet, applicationHeaders, applications},
		{TermsSheet, termHeaders, terms},
	}
	for _, sh := range sheets {
		if err := writeSheet(f, sh.name, sh.headers, sh.rows, header); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Save writes the workbook for user to path.
func Save(user model.UserStatistics, path string) error {
	f, err := Build(user)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// Write streams the workbook for user to w.
func Write(user model.UserStatistics, w io.Writer) error {
	f, err := Build(user)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, r+2, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(sheet, "A", last, 18); err != nil {
		return fmt.Errorf("failed to size %s columns: %w", sheet, err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
