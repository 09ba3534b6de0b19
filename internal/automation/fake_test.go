package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blackwell-systems/autoapply/internal/model"
)

var errNotFound = errors.New("element not found")

// fakeJob is one scripted listing.
type fakeJob struct {
	title    string
	company  string
	body     string
	applied  bool
	noBody   bool
	applyErr error
	confirm  bool
}

// fakeSite scripts the job board. Results are keyed by search term; each
// term has a list of pages of listing URLs.
type fakeSite struct {
	site Site

	loggedIn     bool
	loginOutcome string // "ok", "error" or "none"
	pages        map[string][][]string
	jobs         map[string]*fakeJob
	failSearch   map[string]bool
	failFilter   map[string]string // term → group name
	unavailable  map[string]bool
	launchErr    error

	launches       int
	term           string
	pendingTerm    string
	page           int
	panelOpen      bool
	group          string
	submittedLogin bool
	filled         map[string]string
	groupClicks    map[string]int
	checked        []string
	openTabs       int
	maxOpen        int
	opened         []string
	closedTabs     int
	applied        []string
	confirmed      []string
	messages       []string
	browserClosed  bool
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		site:         FreeWork("https://jobs.test"),
		loginOutcome: "ok",
		pages:        make(map[string][][]string),
		jobs:         make(map[string]*fakeJob),
		failSearch:   make(map[string]bool),
		failFilter:   make(map[string]string),
		unavailable:  make(map[string]bool),
		filled:       make(map[string]string),
		groupClicks:  make(map[string]int),
	}
}

// addPage registers listings for term on a new results page.
func (s *fakeSite) addPage(term string, jobs map[string]*fakeJob, order ...string) {
	s.pages[term] = append(s.pages[term], order)
	for url, j := range jobs {
		s.jobs[url] = j
	}
}

func (s *fakeSite) launcher() Launcher {
	return func(ctx context.Context) (Browser, error) {
		s.launches++
		if s.launchErr != nil {
			return nil, s.launchErr
		}
		return &fakeBrowser{s: s}, nil
	}
}

func (s *fakeSite) groups() []FilterGroup {
	return []FilterGroup{s.site.Contracts, s.site.Remote, s.site.Freshness}
}

func (s *fakeSite) hasNext() bool {
	return s.page < len(s.pages[s.term])-1
}

type fakeBrowser struct {
	s *fakeSite
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	return ctx.Err()
}

func (b *fakeBrowser) WaitFor(ctx context.Context, sel Selector, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := b.s
	switch sel {
	case s.site.LoginButton:
		if s.loggedIn {
			return errNotFound
		}
		return nil
	case s.site.EmailField, s.site.PasswordField, s.site.SearchField, s.site.ResultsContainer:
		return nil
	case s.site.NextPage:
		if s.hasNext() {
			return nil
		}
		return errNotFound
	case s.site.Contracts.Panel:
		if s.panelOpen {
			return nil
		}
		return errNotFound
	}
	for _, g := range s.groups() {
		if sel == g.Button {
			return nil
		}
	}
	return errNotFound
}

func (b *fakeBrowser) Exists(ctx context.Context, sel Selector) (bool, error) {
	s := b.s
	switch sel {
	case s.site.LoggedInIndicator:
		return s.loggedIn, nil
	case s.site.LoginError:
		return s.submittedLogin && s.loginOutcome == "error", nil
	case s.site.PostLoginMarker:
		return s.submittedLogin && s.loginOutcome == "ok", nil
	case s.site.NextPage:
		return s.hasNext(), nil
	case s.site.Contracts.Panel, s.site.Contracts.Reset:
		return s.panelOpen, nil
	}
	return false, nil
}

func (b *fakeBrowser) Click(ctx context.Context, sel Selector) error {
	s := b.s
	switch sel {
	case s.site.LoginButton:
		return nil
	case s.site.LoginSubmit:
		s.submittedLogin = true
		return nil
	}
	for _, g := range s.groups() {
		if sel == g.Button {
			s.panelOpen = true
			s.group = g.Name
			s.groupClicks[g.Name]++
			return nil
		}
	}
	return errNotFound
}

func (b *fakeBrowser) JSClick(ctx context.Context, sel Selector) error {
	s := b.s
	switch sel {
	case s.site.NextPage:
		if !s.hasNext() {
			return errNotFound
		}
		s.page++
		return nil
	case s.site.Contracts.Reset:
		if !s.panelOpen {
			return errNotFound
		}
		return nil
	case s.site.Contracts.Apply:
		if !s.panelOpen {
			return errNotFound
		}
		s.panelOpen = false
		if s.failFilter[s.term] == s.group {
			return fmt.Errorf("apply button for %s intercepted", s.group)
		}
		return nil
	}
	return errNotFound
}

func (b *fakeBrowser) Check(ctx context.Context, sel Selector) error {
	s := b.s
	if !s.panelOpen {
		return errNotFound
	}
	values := map[string][]string{
		"contracts": model.ContractTypes,
		"remote":    model.RemoteTypes,
		"freshness": model.Timeframes,
	}
	for _, g := range s.groups() {
		if g.Name != s.group {
			continue
		}
		for _, v := range values[g.Name] {
			if sel == g.Option(v) {
				if s.unavailable[v] {
					return errNotFound
				}
				s.checked = append(s.checked, g.Name+"="+v)
				return nil
			}
		}
	}
	return errNotFound
}

func (b *fakeBrowser) Fill(ctx context.Context, sel Selector, value string) error {
	s := b.s
	if sel == s.site.SearchField {
		if s.failSearch[value] {
			return fmt.Errorf("search field detached")
		}
		s.pendingTerm = value
	}
	s.filled[sel.Query] = value
	return nil
}

func (b *fakeBrowser) Submit(ctx context.Context, sel Selector) error {
	s := b.s
	if sel != s.site.SearchField {
		return errNotFound
	}
	s.term = s.pendingTerm
	s.page = 0
	return nil
}

func (b *fakeBrowser) Text(ctx context.Context, sel Selector) (string, error) {
	return "", errNotFound
}

func (b *fakeBrowser) Hrefs(ctx context.Context, sel Selector, limit int) ([]string, error) {
	s := b.s
	if sel != s.site.JobLinks {
		return nil, errNotFound
	}
	pages := s.pages[s.term]
	if s.page >= len(pages) {
		return nil, nil
	}
	urls := pages[s.page]
	if len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}

func (b *fakeBrowser) HTML(ctx context.Context) (string, error) {
	return "<html><body>results for " + b.s.term + "</body></html>", nil
}

func (b *fakeBrowser) OpenTab(ctx context.Context, url string) (Tab, error) {
	s := b.s
	job, ok := s.jobs[url]
	if !ok {
		return nil, fmt.Errorf("navigation to %s failed", url)
	}
	s.openTabs++
	if s.openTabs > s.maxOpen {
		s.maxOpen = s.openTabs
	}
	s.opened = append(s.opened, url)
	return &fakeTab{s: s, job: job, url: url}, nil
}

func (b *fakeBrowser) Close() error {
	b.s.browserClosed = true
	return nil
}

type fakeTab struct {
	s      *fakeSite
	job    *fakeJob
	url    string
	closed bool
}

func (t *fakeTab) Navigate(ctx context.Context, url string) error { return nil }

func (t *fakeTab) WaitFor(ctx context.Context, sel Selector, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch sel {
	case t.s.site.JobTitle, t.s.site.MessageField:
		return nil
	case t.s.site.ConfirmButton:
		if t.job.confirm {
			return nil
		}
	}
	return errNotFound
}

func (t *fakeTab) Exists(ctx context.Context, sel Selector) (bool, error) {
	if sel == t.s.site.AlreadyApplied {
		return t.job.applied, nil
	}
	return false, nil
}

func (t *fakeTab) Click(ctx context.Context, sel Selector) error { return t.JSClick(ctx, sel) }

func (t *fakeTab) JSClick(ctx context.Context, sel Selector) error {
	switch sel {
	case t.s.site.ApplyButton:
		if t.job.applyErr != nil {
			return t.job.applyErr
		}
		t.s.applied = append(t.s.applied, t.url)
		return nil
	case t.s.site.ConfirmButton:
		t.s.confirmed = append(t.s.confirmed, t.url)
		return nil
	}
	return errNotFound
}

func (t *fakeTab) Check(ctx context.Context, sel Selector) error { return errNotFound }

func (t *fakeTab) Fill(ctx context.Context, sel Selector, value string) error {
	if sel == t.s.site.MessageField {
		t.s.messages = append(t.s.messages, value)
		return nil
	}
	return errNotFound
}

func (t *fakeTab) Submit(ctx context.Context, sel Selector) error { return errNotFound }

func (t *fakeTab) Text(ctx context.Context, sel Selector) (string, error) {
	switch sel {
	case t.s.site.JobTitle:
		return t.job.title, nil
	case t.s.site.JobCompany:
		return t.job.company, nil
	case t.s.site.JobBody:
		if t.job.noBody {
			return "", errNotFound
		}
		return t.job.body, nil
	}
	return "", errNotFound
}

func (t *fakeTab) Hrefs(ctx context.Context, sel Selector, limit int) ([]string, error) {
	return nil, nil
}

func (t *fakeTab) HTML(ctx context.Context) (string, error) { return "", nil }

func (t *fakeTab) Close() error {
	if !t.closed {
		t.closed = true
		t.s.openTabs--
		t.s.closedTabs++
	}
	return nil
}
