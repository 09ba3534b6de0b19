// Package automation drives a browser session through login, search,
// filtering, pagination and application submission.
package automation

import (
	"context"
	"time"
)

// By is a selector language.
type By int

const (
	ByCSS By = iota
	ByXPath
)

func (b By) String() string {
	if b == ByXPath {
		return "xpath"
	}
	return "css"
}

// Selector locates an element on a page.
type Selector struct {
	By    By
	Query string
}

// CSS returns a CSS selector.
func CSS(q string) Selector { return Selector{By: ByCSS, Query: q} }

// XPath returns an XPath selector.
func XPath(q string) Selector { return Selector{By: ByXPath, Query: q} }

func (s Selector) String() string {
	return s.By.String() + ":" + s.Query
}

// Page is the set of interactions the engine needs from one browser
// window or tab. Element lookups fail fast unless a timeout is given.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitFor polls until sel is visible or timeout elapses.
	WaitFor(ctx context.Context, sel Selector, timeout time.Duration) error
	Exists(ctx context.Context, sel Selector) (bool, error)
	Click(ctx context.Context, sel Selector) error
	// JSClick clicks through a script, bypassing overlays.
	JSClick(ctx context.Context, sel Selector) error
	// Check selects a checkbox or radio input unless it is already selected.
	Check(ctx context.Context, sel Selector) error
	Fill(ctx context.Context, sel Selector, value string) error
	// Submit presses Enter in the element.
	Submit(ctx context.Context, sel Selector) error
	Text(ctx context.Context, sel Selector) (string, error)
	// Hrefs returns the absolute link targets of up to limit matches.
	Hrefs(ctx context.Context, sel Selector, limit int) ([]string, error)
	HTML(ctx context.Context) (string, error)
}

// Tab is a listing opened in its own browser context.
type Tab interface {
	Page
	Close() error
}

// Browser is the main window plus the ability to open tabs.
type Browser interface {
	Page
	OpenTab(ctx context.Context, url string) (Tab, error)
	Close() error
}

// Launcher starts a browser.
type Launcher func(ctx context.Context) (Browser, error)
