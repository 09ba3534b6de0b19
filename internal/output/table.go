// Package output provides terminal output utilities for autoapply.
//
// This package includes:
//   - Table rendering for sessions, applications and per-term counters
//   - Statistics summaries and breakdowns
//   - A spinner for long-running sessions
//
// Colour is emitted only when stdout is a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/stats"
	"github.com/blackwell-systems/autoapply/internal/store"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// Green, Yellow, Red and Gray colour text for the terminal.
func Green(text string) string  { return colorize(colorGreen, text) }
func Yellow(text string) string { return colorize(colorYellow, text) }
func Red(text string) string    { return colorize(colorRed, text) }
func Gray(text string) string   { return colorize(colorGray, text) }

// RenderSummary renders the headline numbers of an account's history.
func RenderSummary(g stats.GlobalStatistics) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Sessions:      %d\n", g.TotalSessions))
	sb.WriteString(fmt.Sprintf("Applications:  %d\n", g.TotalApplications))
	sb.WriteString(fmt.Sprintf("  Successful:  %d\n", g.SuccessfulApplications))
	sb.WriteString(fmt.Sprintf("  Failed:      %d\n", g.FailedApplications))
	sb.WriteString(fmt.Sprintf("Success rate:  %s\n", formatRate(g.SuccessRate)))

	last := "never"
	if g.LastSession != "" {
		last = g.LastSession
	}
	sb.WriteString(fmt.Sprintf("Last session:  %s\n", last))

	return sb.String()
}

// RenderTrend renders per-session averages.
func RenderTrend(tr stats.Trend) string {
	if tr.Sessions == 0 {
		return "No sessions recorded.\n"
	}
	return fmt.Sprintf("Per session:   mean %.1f, median %.1f applications, mean success rate %.1f%%\n",
		tr.MeanApplications, tr.MedianApplications, tr.MeanSuccessRate)
}

// RenderTermTable renders per-term counters. Rows keep the given order.
func RenderTermTable(terms []stats.TermStats) string {
	if len(terms) == 0 {
		return "No search terms recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-20s %6s %9s %8s %8s %6s\n",
		"Search term", "Found", "Submitted", "Already", "Excluded", "Failed"))
	sb.WriteString(strings.Repeat("─", 62))
	sb.WriteString("\n")

	for _, t := range terms {
		sb.WriteString(fmt.Sprintf("%-20s %6d %9d %8d %8d %6d\n",
			truncate(t.SearchTerm, 20),
			t.JobsFound,
			t.JobsSubmitted,
			t.JobsAlreadyApplied,
			t.JobsExcluded,
			t.JobsFailed))
	}

	return sb.String()
}

// RenderCounters renders the counters of a single session.
func RenderCounters(counters []model.PerTermCounters) string {
	terms := make([]stats.TermStats, len(counters))
	for i, c := range counters {
		terms[i] = stats.TermStats{PerTermCounters: c}
	}
	return RenderTermTable(terms)
}

// RenderBreakdown renders a count per key, largest first.
func RenderBreakdown(title string, counts map[string]int) string {
	var sb strings.Builder
	sb.WriteString(title + ":\n")

	if len(counts) == 0 {
		sb.WriteString("  (none)\n")
		return sb.String()
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-22s %d\n", truncate(k, 22), counts[k]))
	}
	return sb.String()
}

// RenderSessionTable renders journaled sessions, newest first.
func RenderSessionTable(sessions []*store.Session) string {
	if len(sessions) == 0 {
		return "No sessions found.\n"
	}

	sorted := make([]*store.Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-16s %6s %6s %6s %s\n",
		"Session", "Started", "Total", "OK", "Failed", "Rate"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, s := range sorted {
		sb.WriteString(fmt.Sprintf("%-24s %-16s %6d %6d %6d %s\n",
			s.ID,
			formatRelativeTime(s.StartedAt),
			s.Total,
			s.Successful,
			s.Failed,
			formatRate(s.SuccessRate)))
	}

	return sb.String()
}

// RenderApplicationTable renders journaled application attempts in the
// given order.
func RenderApplicationTable(apps []*store.Application) string {
	if len(apps) == 0 {
		return "No applications found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-14s %-30s %-22s %s\n",
		"When", "Term", "Job", "Company", "Status"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, a := range apps {
		status := formatStatus(a.Status)
		if a.Status == model.StatusFailed && a.Reason != "" {
			status += " " + Gray("("+truncate(a.Reason, 40)+")")
		}
		sb.WriteString(fmt.Sprintf("%-16s %-14s %-30s %-22s %s\n",
			formatRelativeTime(a.Timestamp.Time),
			truncate(a.SearchTerm, 14),
			truncate(a.JobTitle, 30),
			truncate(a.Company, 22),
			status))
	}

	return sb.String()
}

// formatStatus renders an application status with a marker.
func formatStatus(s model.Status) string {
	switch s {
	case model.StatusSuccess:
		return Green("✓ submitted")
	case model.StatusFailed:
		return Red("✗ failed")
	default:
		return string(s)
	}
}

// formatRate colours a success percentage: green from 75, yellow from 40.
func formatRate(rate float64) string {
	text := fmt.Sprintf("%.1f%%", rate)
	switch {
	case rate >= 75:
		return Green(text)
	case rate >= 40:
		return Yellow(text)
	default:
		return Red(text)
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
