package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/blackwell-systems/autoapply/internal/apperr"
	"github.com/blackwell-systems/autoapply/internal/logger"
	"github.com/blackwell-systems/autoapply/internal/model"
	"github.com/blackwell-systems/autoapply/internal/stats"
)

// DefaultMaxPages bounds pagination for one term.
const DefaultMaxPages = 50

// Options configures an Engine.
type Options struct {
	Site     Site
	Timing   Timing
	Launcher Launcher
	Logger   *logger.Logger

	// DebugDir receives <group>_filter_debug.html on filter failures.
	DebugDir string
	MaxPages int

	// Seen reports whether a listing URL was already applied to in an
	// earlier session. Seen listings are counted without being opened.
	Seen func(url string) bool

	OnTransition func(from, to State)
	OnOutcome    func(Outcome)

	Now func() time.Time
}

// Engine runs sessions. It holds no per-run state and may be reused.
type Engine struct {
	opts Options
}

// New creates an Engine, filling unset options with defaults.
func New(opts Options) *Engine {
	if opts.Site.ListingsURL == "" {
		opts.Site = FreeWork("")
	}
	if opts.Site.LinksPerPage <= 0 {
		opts.Site.LinksPerPage = 16
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}
}

// Result is the outcome of a run.
type Result struct {
	Final   State
	Session model.SessionRecord
}

// Run executes one session. A nil error means the run reached
// SessionComplete and Result.Session holds its record. Launch, login and
// cancellation errors end the run in Failed with no record.
func (e *Engine) Run(ctx context.Context, creds model.Credentials, cfg model.SearchConfig) (Result, error) {
	r := &run{
		opts:    e.opts,
		log:     e.opts.Logger,
		creds:   creds,
		cfg:     cfg,
		state:   StateStart,
		started: e.opts.Now(),
		termIdx: -1,
		limiter: newLimiter(cfg.DelayBetweenApplications),
	}
	defer r.release()

	for !r.state.Terminal() {
		if err := ctx.Err(); err != nil {
			r.fail(err)
			return Result{Final: r.state}, err
		}

		next, err := r.step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			r.fail(err)
			return Result{Final: r.state}, err
		}
		if err := r.transition(next); err != nil {
			r.fail(err)
			return Result{Final: r.state}, err
		}
	}

	return Result{Final: r.state, Session: r.session}, nil
}

func newLimiter(delaySeconds int) *rate.Limiter {
	if delaySeconds <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Duration(delaySeconds)*time.Second), 1)
}

// run is the mutable state of one session.
type run struct {
	opts  Options
	log   *logger.Logger
	creds model.Credentials
	cfg   model.SearchConfig

	state   State
	started time.Time
	browser Browser
	limiter *rate.Limiter

	termIdx  int
	counters []model.PerTermCounters
	records  []model.ApplicationRecord
	termRecs int
	page     int
	tabs     []*listing

	session model.SessionRecord
}

// listing is one opened job tab awaiting evaluation.
type listing struct {
	url     string
	tab     Tab
	openErr error
}

func (r *run) step(ctx context.Context) (State, error) {
	switch r.state {
	case StateStart:
		return r.launch(ctx)
	case StateBrowserInitialized:
		return r.login(ctx)
	case StateLoggedIn:
		return r.nextTerm(ctx)
	case StateSearchingTerm:
		return r.filter(ctx)
	case StateFiltered:
		return r.openPage(ctx)
	case StatePaginating, StateJobEvaluated:
		return r.evaluateNext(ctx)
	}
	return StateFailed, fmt.Errorf("no step defined for state %s", r.state)
}

func (r *run) transition(next State) error {
	if !IsTransitionAllowed(r.state, next) {
		return fmt.Errorf("invalid transition %s -> %s", r.state, next)
	}
	prev := r.state
	r.state = next
	if next == StateSessionComplete {
		r.complete()
	}
	if r.opts.OnTransition != nil {
		r.opts.OnTransition(prev, next)
	}
	return nil
}

func (r *run) fail(err error) {
	r.log.Error("Session aborted: %v", err)
	prev := r.state
	r.state = StateFailed
	if r.opts.OnTransition != nil && prev != StateFailed {
		r.opts.OnTransition(prev, StateFailed)
	}
}

// release closes any open tabs and the browser.
func (r *run) release() {
	r.closeTabs()
	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			r.log.Warn("Failed to close browser: %v", err)
		}
		r.browser = nil
	}
}

func (r *run) closeTabs() {
	for _, l := range r.tabs {
		if l.tab != nil {
			l.tab.Close()
		}
	}
	r.tabs = nil
}

func (r *run) launch(ctx context.Context) (State, error) {
	if r.cfg.MaxApplicationsPerSession == 0 {
		r.log.Info("Application quota is 0, nothing to do")
		return StateSessionComplete, nil
	}
	if r.opts.Launcher == nil {
		return StateFailed, apperr.New(apperr.KindEnvironment, "no browser launcher configured")
	}

	r.log.Info("Starting browser")
	b, err := r.opts.Launcher(ctx)
	if err != nil {
		return StateFailed, apperr.Wrap(apperr.KindEnvironment, err, "failed to launch browser")
	}
	r.browser = b

	if err := b.Navigate(ctx, r.opts.Site.ListingsURL); err != nil {
		return StateFailed, apperr.Wrapf(apperr.KindEnvironment, err, "failed to open %s", r.opts.Site.ListingsURL)
	}
	return StateBrowserInitialized, nil
}

func (r *run) login(ctx context.Context) (State, error) {
	site := r.opts.Site
	b := r.browser

	if ok, _ := b.Exists(ctx, site.LoggedInIndicator); ok {
		r.log.Info("Already logged in")
		return StateLoggedIn, nil
	}

	r.log.Info("Logging in")
	if err := b.WaitFor(ctx, site.LoginButton, r.opts.Timing.ElementWait); err != nil {
		return StateFailed, apperr.Wrap(apperr.KindLogin, err, "login button not found")
	}
	if err := b.Click(ctx, site.LoginButton); err != nil {
		return StateFailed, apperr.Wrap(apperr.KindLogin, err, "failed to open login form")
	}
	if err := b.WaitFor(ctx, site.EmailField, r.opts.Timing.ElementWait); err != nil {
		return StateFailed, apperr.Wrap(apperr.KindLogin, err, "login form not shown")
	}
	if err := b.Fill(ctx, site.EmailField, r.creds.Email); err != nil {
		return StateFailed, apperr.Wrap(apperr.KindLogin, err, "failed to fill email")
	}
	if err := b.Fill(ctx, site.PasswordField, r.creds.Password); err != nil {
		return StateFailed, apperr.Wrap(apperr.KindLogin, err, "failed to fill password")
	}
	if err := b.Click(ctx, site.LoginSubmit); err != nil {
		return StateFailed, apperr.Wrap(apperr.KindLogin, err, "failed to submit login form")
	}
	if err := sleep(ctx, r.opts.Timing.LoginSettle); err != nil {
		return StateFailed, err
	}

	if bad, _ := b.Exists(ctx, site.LoginError); bad {
		return StateFailed, apperr.New(apperr.KindLogin, "login rejected: invalid credentials")
	}
	if ok, _ := b.Exists(ctx, site.PostLoginMarker); !ok {
		return StateFailed, apperr.New(apperr.KindLogin, "login not confirmed: unrecognised page state after submit")
	}

	r.log.Success("Logged in")
	return StateLoggedIn, nil
}

// nextTerm closes the current term and searches the next one whose search
// succeeds. It returns SessionComplete when no term is left.
func (r *run) nextTerm(ctx context.Context) (State, error) {
	r.closeTabs()

	for {
		r.termIdx++
		if r.termIdx >= len(r.cfg.SearchTerms) {
			return StateSessionComplete, nil
		}
		term := strings.TrimSpace(r.cfg.SearchTerms[r.termIdx])
		if term == "" {
			continue
		}

		if len(r.counters) > 0 {
			pause := r.opts.Timing.termPause()
			if err := sleep(ctx, pause); err != nil {
				return StateFailed, err
			}
		}

		r.counters = append(r.counters, model.PerTermCounters{SearchTerm: term})
		r.termRecs = 0
		r.page = 0

		r.log.Info("Searching for %q", term)
		if err := r.search(ctx, term); err != nil {
			if ctx.Err() != nil {
				return StateFailed, ctx.Err()
			}
			r.log.Error("Search for %q failed: %v", term, err)
			continue
		}
		return StateSearchingTerm, nil
	}
}

func (r *run) search(ctx context.Context, term string) error {
	site := r.opts.Site
	b := r.browser

	if err := b.Navigate(ctx, site.ListingsURL); err != nil {
		return fmt.Errorf("failed to open listings: %w", err)
	}
	if err := b.WaitFor(ctx, site.SearchField, r.opts.Timing.ElementWait); err != nil {
		return fmt.Errorf("search field not found: %w", err)
	}
	if err := b.Fill(ctx, site.SearchField, term); err != nil {
		return fmt.Errorf("failed to enter search term: %w", err)
	}
	if err := b.Submit(ctx, site.SearchField); err != nil {
		return fmt.Errorf("failed to submit search: %w", err)
	}
	if err := b.WaitFor(ctx, site.ResultsContainer, r.opts.Timing.ResultsWait); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Warn("No results confirmed for %q yet, continuing", term)
	}
	return nil
}

func (r *run) term() *model.PerTermCounters {
	return &r.counters[len(r.counters)-1]
}

func (r *run) quotaReached() bool {
	return r.termRecs >= r.cfg.MaxApplicationsPerSession
}

// openPage collects the listing links of the current results page and
// opens each one in its own tab.
func (r *run) openPage(ctx context.Context) (State, error) {
	r.closeTabs()
	r.page++

	site := r.opts.Site
	urls, err := r.browser.Hrefs(ctx, site.JobLinks, site.LinksPerPage)
	if err != nil {
		if ctx.Err() != nil {
			return StateFailed, ctx.Err()
		}
		r.log.Error("Failed to collect listings on page %d: %v", r.page, err)
		return r.nextTerm(ctx)
	}
	if len(urls) == 0 {
		r.log.Info("No listings on page %d for %q", r.page, r.term().SearchTerm)
		return r.nextTerm(ctx)
	}

	r.log.Info("Page %d: %d listings", r.page, len(urls))
	for _, u := range urls {
		if r.opts.Seen != nil && r.opts.Seen(u) {
			c := r.term()
			c.JobsFound++
			c.JobsAlreadyApplied++
			r.emit(Outcome{Term: c.SearchTerm, URL: u, Kind: OutcomeAlreadyApplied})
			continue
		}
		tab, err := r.browser.OpenTab(ctx, u)
		if err != nil && ctx.Err() != nil {
			return StateFailed, ctx.Err()
		}
		r.tabs = append(r.tabs, &listing{url: u, tab: tab, openErr: err})
	}
	return StatePaginating, nil
}

// evaluateNext evaluates the next open tab, or moves on to the next page
// or term when the page is exhausted or the quota is reached.
func (r *run) evaluateNext(ctx context.Context) (State, error) {
	if r.quotaReached() {
		r.log.Info("Reached %d applications for %q", r.cfg.MaxApplicationsPerSession, r.term().SearchTerm)
		return r.nextTerm(ctx)
	}
	if len(r.tabs) == 0 {
		return r.nextPage(ctx)
	}

	l := r.tabs[0]
	r.tabs = r.tabs[1:]
	out := r.evaluate(ctx, l)
	if l.tab != nil {
		l.tab.Close()
	}
	if err := ctx.Err(); err != nil {
		return StateFailed, err
	}
	r.record(out)
	return StateJobEvaluated, nil
}

func (r *run) nextPage(ctx context.Context) (State, error) {
	site := r.opts.Site
	b := r.browser

	if r.page >= r.opts.MaxPages {
		r.log.Warn("Stopping %q after %d pages", r.term().SearchTerm, r.page)
		return r.nextTerm(ctx)
	}
	if err := b.WaitFor(ctx, site.NextPage, r.opts.Timing.NextPageWait); err != nil {
		if ctx.Err() != nil {
			return StateFailed, ctx.Err()
		}
		r.log.Info("No more pages for %q", r.term().SearchTerm)
		return r.nextTerm(ctx)
	}
	if err := b.JSClick(ctx, site.NextPage); err != nil {
		r.log.Warn("Next page not clickable: %v", err)
		return r.nextTerm(ctx)
	}
	if err := sleep(ctx, r.opts.Timing.PageSettle); err != nil {
		return StateFailed, err
	}

	return r.openPage(ctx)
}

func (r *run) record(out Outcome) {
	c := r.term()
	c.JobsFound++
	switch out.Kind {
	case OutcomeAlreadyApplied:
		c.JobsAlreadyApplied++
		r.log.Info("Already applied: %s", out.label())
	case OutcomeExcluded:
		c.JobsExcluded++
		r.log.Info("Excluded (%s): %s", out.Keyword, out.label())
	case OutcomeSubmitted:
		c.JobsSubmitted++
	case OutcomeFailed:
		c.JobsFailed++
	}

	if out.Record != nil {
		r.records = append(r.records, *out.Record)
		r.termRecs++
		if err := r.log.Application(*out.Record); err != nil {
			r.log.Warn("Failed to write application log: %v", err)
		}
	}
	r.emit(out)
}

func (r *run) emit(out Outcome) {
	if r.opts.OnOutcome != nil {
		r.opts.OnOutcome(out)
	}
}

func (r *run) complete() {
	r.closeTabs()
	r.session = stats.NewSession(model.SessionID(r.started), r.started, r.records, r.counters)
}
