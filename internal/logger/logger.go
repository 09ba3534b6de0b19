// Package logger writes the human-readable run log and the structured
// application log. Registered secrets never reach either destination.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blackwell-systems/autoapply/internal/model"
)

const (
	// ApplicationsFile receives one JSON object per application attempt.
	ApplicationsFile = "applications.jsonl"

	redacted = "[REDACTED]"
)

var keyValueSecret = regexp.MustCompile(`(?i)\b(password|passwd|token|secret|authorization)(\s*[:=]\s*)\S+`)

// Level tags a log line.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarn    Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelSuccess Level = "SUCCESS"
)

// Logger writes to a daily file under dir and mirrors the bare message to
// a console writer. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	dir     string
	name    string
	console io.Writer
	now     func() time.Time

	file    *os.File
	fileDay string
	secrets []*regexp.Regexp
}

// New creates a logger writing daily files to dir. A nil console discards
// console output; an empty dir disables file output.
func New(dir string, console io.Writer) (*Logger, error) {
	if console == nil {
		console = io.Discard
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return &Logger{
		dir:     dir,
		name:    "autoapply",
		console: console,
		now:     time.Now,
	}, nil
}

// Nop returns a logger that writes nowhere.
func Nop() *Logger {
	l, _ := New("", nil)
	return l
}

// Dir returns the log directory, or "" when file output is disabled.
func (l *Logger) Dir() string {
	return l.dir
}

// Redact registers values that must be masked in every line, matched
// case-insensitively.
func (l *Logger) Redact(values ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range values {
		v = strings.TrimSpace(v)
		if len(v) < 3 {
			continue
		}
		l.secrets = append(l.secrets, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(v)))
	}
}

// Sanitize masks registered secrets and key=value style credentials in s.
func (l *Logger) Sanitize(s string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sanitizeLocked(s)
}

func (l *Logger) sanitizeLocked(s string) string {
	for _, re := range l.secrets {
		s = re.ReplaceAllLiteralString(s, redacted)
	}
	return keyValueSecret.ReplaceAllString(s, "${1}${2}"+redacted)
}

func (l *Logger) Info(format string, args ...interface{})    { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})    { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{})   { l.log(LevelError, format, args...) }
func (l *Logger) Success(format string, args ...interface{}) { l.log(LevelSuccess, format, args...) }

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := l.sanitizeLocked(fmt.Sprintf(format, args...))
	now := l.now()

	fmt.Fprintln(l.console, msg)

	f, err := l.fileLocked(now)
	if err != nil || f == nil {
		return
	}
	fmt.Fprintf(f, "%s - %s - %s - %s\n", now.Format("2006-01-02 15:04:05"), l.name, level, msg)
}

// fileLocked returns today's log file, rotating at midnight.
func (l *Logger) fileLocked(now time.Time) (*os.File, error) {
	if l.dir == "" {
		return nil, nil
	}
	day := now.Format("20060102")
	if l.file != nil && l.fileDay == day {
		return l.file, nil
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	path := filepath.Join(l.dir, fmt.Sprintf("%s_%s.log", l.name, day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	l.file = f
	l.fileDay = day
	return f, nil
}

// CurrentFile returns the path of the log file for today.
func (l *Logger) CurrentFile() string {
	if l.dir == "" {
		return ""
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return filepath.Join(l.dir, fmt.Sprintf("%s_%s.log", l.name, l.now().Format("20060102")))
}

// LatestFile returns the newest daily log file in dir, or "" when there
// is none.
func LatestFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "autoapply_*.log"))
	if err != nil {
		return "", fmt.Errorf("failed to list log files: %w", err)
	}
	if len(matches) == 0 {
		return "", nil
	}
	// Names embed YYYYMMDD, so lexical order is chronological.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

type applicationEntry struct {
	LoggedAt   string       `json:"logged_at"`
	JobTitle   string       `json:"job_title"`
	Company    string       `json:"company"`
	Status     model.Status `json:"status"`
	SearchTerm string       `json:"search_term"`
	JobURL     string       `json:"job_url,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

// Application appends one record to the structured application log and
// writes a one-line summary to the run log.
func (l *Logger) Application(rec model.ApplicationRecord) error {
	if rec.Status == model.StatusSuccess {
		l.Success("Applied: %s at %s", rec.JobTitle, rec.Company)
	} else {
		l.Warn("Application failed: %s at %s (%s)", rec.JobTitle, rec.Company, rec.Reason)
	}

	if l.dir == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := applicationEntry{
		LoggedAt:   l.now().Format(time.RFC3339),
		JobTitle:   l.sanitizeLocked(rec.JobTitle),
		Company:    l.sanitizeLocked(rec.Company),
		Status:     rec.Status,
		SearchTerm: rec.SearchTerm,
		JobURL:     rec.JobURL,
		Reason:     l.sanitizeLocked(rec.Reason),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode application entry: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(l.dir, ApplicationsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open application log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write application log: %w", err)
	}
	return nil
}

// SessionStart logs the criteria a session runs with.
func (l *Logger) SessionStart(cfg model.SearchConfig) {
	l.Info("=== Session started ===")
	l.Info("Search terms: %s", strings.Join(cfg.SearchTerms, ", "))
	l.Info("Contract types: %s", strings.Join(cfg.ContractTypes, ", "))
	l.Info("Remote types: %s", strings.Join(cfg.RemoteTypes, ", "))
	if cfg.PublicationTimeframe != "" {
		l.Info("Published within: %s", cfg.PublicationTimeframe)
	}
}

// SessionEnd logs the outcome of a finished session.
func (l *Logger) SessionEnd(rec model.SessionRecord) {
	l.Info("=== Session finished: %s ===", rec.SessionID)
	l.Info("Applications submitted: %d", rec.Successful)
	l.Info("Applications failed: %d", rec.Failed)
	l.Info("Success rate: %.1f%%", rec.SuccessRate)
	for _, c := range rec.PerSearchTerm {
		l.Info("  %s: found %d, submitted %d, already applied %d, excluded %d, failed %d",
			c.SearchTerm, c.JobsFound, c.JobsSubmitted, c.JobsAlreadyApplied, c.JobsExcluded, c.JobsFailed)
	}
}

// Close closes the current log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
