package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/autoapply/internal/automation"
	"github.com/blackwell-systems/autoapply/internal/config"
	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/output"
	"github.com/blackwell-systems/autoapply/internal/session"
	"github.com/blackwell-systems/autoapply/internal/stats"
	"github.com/blackwell-systems/autoapply/internal/store"
)

const testEmail = "dev@example.com"

// seedHome saves an account and one recorded session in a fresh data dir.
func seedHome(t *testing.T) (string, model.SessionRecord) {
	t.Helper()
	home := t.TempDir()

	cfgStore, err := config.Open(home)
	if err != nil {
		t.Fatalf("config.Open failed: %v", err)
	}
	if err := cfgStore.SaveCredentials(model.Credentials{Email: testEmail, Password: "secret"}); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	apps := []model.ApplicationRecord{
		{
			JobTitle:     "Go Developer",
			Company:      "Acme",
			Status:       model.StatusSuccess,
			Timestamp:    model.NewTime(at),
			SearchTerm:   "golang",
			ContractType: model.Tokens{"contractor"},
			RemoteType:   model.Tokens{"full"},
			JobURL:       "https://jobs.test/job/1",
		},
		{
			JobTitle:   "Backend Engineer",
			Company:    "Globex",
			Status:     model.StatusFailed,
			Timestamp:  model.NewTime(at.Add(time.Minute)),
			SearchTerm: "golang",
			Reason:     "apply button missing",
			JobURL:     "https://jobs.test/job/2",
		},
	}
	counters := []model.PerTermCounters{{
		SearchTerm:    "golang",
		JobsFound:     3,
		JobsSubmitted: 1,
		JobsExcluded:  1,
		JobsFailed:    1,
	}}
	rec := stats.NewSession(model.SessionID(at), at, apps, counters)
	if _, err := cfgStore.SaveSession(testEmail, rec); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	return home, rec
}

func journalSession(t *testing.T, home string, rec model.SessionRecord) {
	t.Helper()
	journal, err := store.Open(filepath.Join(home, session.JournalFile))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	defer journal.Close()
	if err := journal.RecordSession(testEmail, rec); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}
}

func TestLogin_Flags(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, home, "", "login", "--email", testEmail, "--password", "pw")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "Credentials saved") {
		t.Errorf("unexpected output:\n%s", out)
	}

	cfgStore, _ := config.Open(home)
	creds, err := cfgStore.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.Email != testEmail || creds.Password != "pw" {
		t.Errorf("got %+v", creds)
	}
}

func TestLogin_Prompts(t *testing.T) {
	home := t.TempDir()

	if _, err := execute(t, home, testEmail+"\nhunter2\n", "login"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	cfgStore, _ := config.Open(home)
	creds, err := cfgStore.LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials failed: %v", err)
	}
	if creds.Email != testEmail || creds.Password != "hunter2" {
		t.Errorf("got %+v", creds)
	}
}

func TestLogin_ClosedInput(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "login", "--email", testEmail)
	if err == nil {
		t.Fatal("expected an error when the password cannot be read")
	}
}

func TestConfigSet_ChangesOnlyGivenFields(t *testing.T) {
	home := t.TempDir()

	out, err := execute(t, home, "", "config", "set", "--terms", "golang, rust", "--max", "10")
	if err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if !strings.Contains(out, "Updated terms, max") {
		t.Errorf("expected changed fields to be listed, got:\n%s", out)
	}

	cfgStore, _ := config.Open(home)
	cfg, err := cfgStore.LoadSearchConfig()
	if err != nil {
		t.Fatalf("LoadSearchConfig failed: %v", err)
	}
	if strings.Join(cfg.SearchTerms, "|") != "golang|rust" {
		t.Errorf("SearchTerms = %v", cfg.SearchTerms)
	}
	if cfg.MaxApplicationsPerSession != 10 {
		t.Errorf("MaxApplicationsPerSession = %d, want 10", cfg.MaxApplicationsPerSession)
	}
	def := model.DefaultSearchConfig()
	if cfg.DelayBetweenApplications != def.DelayBetweenApplications {
		t.Errorf("delay changed to %d", cfg.DelayBetweenApplications)
	}
	if cfg.PublicationTimeframe != def.PublicationTimeframe {
		t.Errorf("timeframe changed to %q", cfg.PublicationTimeframe)
	}
}

func TestConfigSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no flags", args: []string{"config", "set"}},
		{name: "unknown contract", args: []string{"config", "set", "--contracts", "freelance"}},
		{name: "unknown timeframe", args: []string{"config", "set", "--timeframe", "yesterday"}},
		{name: "negative delay", args: []string{"config", "set", "--delay=-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, t.TempDir(), "", tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestConfigShowJSONAndReset(t *testing.T) {
	home := t.TempDir()

	if _, err := execute(t, home, "", "config", "set", "--terms", "kotlin", "--timeframe", ""); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	out, err := execute(t, home, "", "config", "show", "--json")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	var cfg model.SearchConfig
	if err := json.Unmarshal([]byte(out), &cfg); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(cfg.SearchTerms) != 1 || cfg.SearchTerms[0] != "kotlin" {
		t.Errorf("SearchTerms = %v", cfg.SearchTerms)
	}
	if cfg.PublicationTimeframe != "" {
		t.Errorf("PublicationTimeframe = %q, want empty", cfg.PublicationTimeframe)
	}

	if _, err := execute(t, home, "", "config", "reset"); err != nil {
		t.Fatalf("config reset failed: %v", err)
	}
	out, err = execute(t, home, "", "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "java, angular, react, python") {
		t.Errorf("expected default terms after reset, got:\n%s", out)
	}
}

func TestStats_RequiresLogin(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "stats")
	if err == nil || !strings.Contains(err.Error(), "autoapply login") {
		t.Errorf("expected a login hint, got %v", err)
	}
}

func TestStats_Summary(t *testing.T) {
	home, _ := seedHome(t)

	out, err := execute(t, home, "", "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	for _, want := range []string{"Sessions:      1", "Applications:  2", "50.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStats_AdvancedJSON(t *testing.T) {
	home, _ := seedHome(t)

	out, err := execute(t, home, "", "stats", "--advanced", "--json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var global stats.GlobalStatistics
	if err := json.Unmarshal([]byte(out), &global); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if global.TotalApplications != 2 || global.SuccessfulApplications != 1 {
		t.Errorf("totals = %d/%d, want 2/1", global.TotalApplications, global.SuccessfulApplications)
	}
	if len(global.PerSearchTerm) != 1 || global.PerSearchTerm[0].JobsFound != 3 {
		t.Errorf("PerSearchTerm = %+v", global.PerSearchTerm)
	}
	if global.PerContractType["contractor"] != 1 {
		t.Errorf("PerContractType = %v", global.PerContractType)
	}
}

func TestHistory_NoJournal(t *testing.T) {
	home := t.TempDir()
	out, err := execute(t, home, "", "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No sessions journaled yet") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, session.JournalFile)); !os.IsNotExist(err) {
		t.Error("history must not create the journal")
	}
}

func TestHistory_SessionsAndApplications(t *testing.T) {
	home, rec := seedHome(t)
	journalSession(t, home, rec)

	out, err := execute(t, home, "", "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, rec.SessionID) {
		t.Errorf("expected session %s in output:\n%s", rec.SessionID, out)
	}

	out, err = execute(t, home, "", "history", "--applications", "--status", "failed")
	if err != nil {
		t.Fatalf("history --applications failed: %v", err)
	}
	if !strings.Contains(out, "Backend Engineer") || strings.Contains(out, "Go Developer") {
		t.Errorf("expected only the failed application, got:\n%s", out)
	}

	out, err = execute(t, home, "", "history", "--session", rec.SessionID)
	if err != nil {
		t.Fatalf("history --session failed: %v", err)
	}
	if !strings.Contains(out, "golang") {
		t.Errorf("expected term counters, got:\n%s", out)
	}
}

func TestHistory_InvalidStatus(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "", "history", "--applications", "--status", "pending"); err == nil {
		t.Error("expected an error for an unknown status")
	}
}

func TestExport_WritesWorkbook(t *testing.T) {
	home, _ := seedHome(t)
	path := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := execute(t, home, "", "export", "-o", path)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "Exported 1 sessions, 2 applications") {
		t.Errorf("unexpected output:\n%s", out)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("workbook not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("workbook is empty")
	}
}

func TestStatus_FreshHome(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{"not logged in", "Journal:         empty", "Server:          stopped"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestStatus_WithHistory(t *testing.T) {
	home, rec := seedHome(t)
	journalSession(t, home, rec)

	out, err := execute(t, home, "", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	for _, want := range []string{testEmail, "Sessions:        1", "Journal:         2 application(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestClear_Confirmation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		deleted bool
	}{
		{name: "yes flag", args: []string{"clear", "--yes"}, deleted: true},
		{name: "typed yes", args: []string{"clear"}, stdin: "yes\n", deleted: true},
		{name: "typed no", args: []string{"clear"}, stdin: "no\n", deleted: false},
		{name: "empty input", args: []string{"clear"}, stdin: "", deleted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home, _ := seedHome(t)

			if _, err := execute(t, home, tt.stdin, tt.args...); err != nil {
				t.Fatalf("clear failed: %v", err)
			}

			_, err := os.Stat(filepath.Join(home, config.StatisticsFile))
			if deleted := os.IsNotExist(err); deleted != tt.deleted {
				t.Errorf("deleted = %v, want %v", deleted, tt.deleted)
			}
		})
	}
}

func TestRun_RequiresCredentials(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "run", "--quiet")
	if !errors.Is(err, config.ErrNoCredentials) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestServe_InvalidSchedule(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "serve", "--schedule", "every tuesday")
	if err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}
}

func TestServe_StopWhenNotRunning(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "serve", "--stop")
	if err != nil {
		t.Fatalf("serve --stop failed: %v", err)
	}
	if !strings.Contains(out, "Server is not running") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDoctor_FreshHome(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "doctor")
	if err == nil {
		t.Fatal("expected diagnostics to fail without credentials")
	}
	if !strings.Contains(out, "No credentials saved") {
		t.Errorf("expected a credentials check, got:\n%s", out)
	}
	if !strings.Contains(out, "No journal yet") {
		t.Errorf("expected a journal warning, got:\n%s", out)
	}
}

func TestTailFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoapply_20260302.log")
	content := "one\ntwo\nthree\nfour\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		n    int
		want string
	}{
		{n: 2, want: "three\nfour\n"},
		{n: 0, want: content},
		{n: 10, want: content},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		offset, err := tailFile(path, tt.n, &buf)
		if err != nil {
			t.Fatalf("tailFile(%d) failed: %v", tt.n, err)
		}
		if buf.String() != tt.want {
			t.Errorf("tailFile(%d) = %q, want %q", tt.n, buf.String(), tt.want)
		}
		if offset != int64(len(content)) {
			t.Errorf("tailFile(%d) offset = %d, want %d", tt.n, offset, len(content))
		}
	}
}

func TestCopyFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoapply_20260302.log")
	if err := os.WriteFile(path, []byte("old\nnew\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	offset, err := copyFrom(path, 4, &buf)
	if err != nil {
		t.Fatalf("copyFrom failed: %v", err)
	}
	if buf.String() != "new\n" || offset != 8 {
		t.Errorf("got %q at %d", buf.String(), offset)
	}

	// A truncated file is read from the start.
	if err := os.WriteFile(path, []byte("x\n"), 0600); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	offset, err = copyFrom(path, offset, &buf)
	if err != nil {
		t.Fatalf("copyFrom failed: %v", err)
	}
	if buf.String() != "x\n" || offset != 2 {
		t.Errorf("got %q at %d", buf.String(), offset)
	}
}

func TestIsDailyLog(t *testing.T) {
	tests := map[string]bool{
		"/logs/autoapply_20260302.log":   true,
		"/logs/autoapply_20260302.jsonl": false,
		"/logs/server.log":               false,
		"autoapply_20260302.log.tmp":     false,
	}
	for name, want := range tests {
		if got := isDailyLog(name); got != want {
			t.Errorf("isDailyLog(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLogs_NoLogs(t *testing.T) {
	out, err := execute(t, t.TempDir(), "", "logs")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if !strings.Contains(out, "No logs yet") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestLogs_PrintsLatest(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, config.LogDirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "autoapply_20260301.log"), []byte("yesterday\n"), 0600)
	os.WriteFile(filepath.Join(dir, "autoapply_20260302.log"), []byte("a\nb\nc\n"), 0600)

	out, err := execute(t, home, "", "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs failed: %v", err)
	}
	if out != "b\nc\n" {
		t.Errorf("output = %q, want %q", out, "b\nc\n")
	}
}

func TestRunProgress(t *testing.T) {
	var buf bytes.Buffer
	spinner := output.NewSpinner("Starting browser")
	spinner.SetWriter(&buf)
	progress := &runProgress{spinner: spinner}

	spinner.Start()
	progress.transition(automation.StateStart, automation.StateBrowserInitialized)
	progress.outcome(automation.Outcome{Term: "golang", Kind: automation.OutcomeSubmitted})
	progress.outcome(automation.Outcome{Term: "golang", Kind: automation.OutcomeExcluded})
	spinner.Stop()

	got := buf.String()
	if !strings.Contains(got, "Signing in") {
		t.Errorf("expected login progress, got:\n%s", got)
	}
	if !strings.Contains(got, `Searching "golang": 1 submitted, 1 skipped`) {
		t.Errorf("expected outcome counts, got:\n%s", got)
	}
}
