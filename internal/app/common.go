package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/autoapply/internal/automation"
	"github.com/blackwell-systems/autoapply/internal/browser"
	"github.com/blackwell-systems/autoapply/internal/config"
	"github.com/blackwell-systems/autoapply/internal/daemon"
	"github.com/blackwell-systems/autoapply/internal/session"
	"github.com/blackwell-systems/autoapply/internal/store"
)

const (
	serverPIDFile = "server.pid"
	serverLogFile = "server.log"
)

// serviceOptions wires session options for the live site.
func serviceOptions(settings config.Settings, cfgStore *config.Store, console io.Writer) session.Options {
	return session.Options{
		Config: cfgStore,
		Launcher: browser.Launcher(browser.Options{
			Headless: settings.Headless,
			ExecPath: settings.BrowserPath,
			BaseURL:  settings.BaseURL,
		}),
		Site:    automation.FreeWork(settings.BaseURL),
		Timing:  automation.DefaultTiming(),
		Console: console,
	}
}

// openJournal opens the journal without creating it. Before the first
// session it returns store.ErrNotInitialized.
func openJournal(cfgStore *config.Store) (*store.Store, error) {
	path := filepath.Join(cfgStore.Dir(), session.JournalFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, store.ErrNotInitialized
	}
	return store.New(path)
}

// confirm prompts on out and reads a line from in. Only the literal "yes"
// confirms.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s Type \"yes\" to confirm (or press Enter to cancel): ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(strings.ToLower(line)) == "yes"
}

// readLine prompts on out and reads one trimmed line from in. Callers
// reading several lines pass the same *bufio.Reader.
func readLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// findBrowser returns the Chrome executable chromedp would use.
func findBrowser(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("AUTOAPPLY_BROWSER %s: %w", configured, err)
		}
		return configured, nil
	}
	for _, name := range []string{
		"headless_shell",
		"headless-shell",
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"google-chrome-beta",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
	} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome or Chromium executable found in PATH")
}

// signalContext returns a context cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return daemon.NotifyContext(context.Background())
}
