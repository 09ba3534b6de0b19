package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/autoapply/internal/apperr"
)

// filter applies the contract, remote and freshness filters. A failing
// group abandons the current term.
func (r *run) filter(ctx context.Context) (State, error) {
	site := r.opts.Site
	groups := []struct {
		group   FilterGroup
		options []string
	}{
		{site.Contracts, r.cfg.ContractTypes},
		{site.Remote, r.cfg.RemoteTypes},
		{site.Freshness, r.cfg.TimeframeOptions()},
	}

	for _, g := range groups {
		if err := r.applyFilter(ctx, g.group, g.options); err != nil {
			if ctx.Err() != nil {
				return StateFailed, ctx.Err()
			}
			r.log.Error("%v; skipping %q", err, r.term().SearchTerm)
			return r.nextTerm(ctx)
		}
	}
	return StateFiltered, nil
}

// applyFilter runs open → reset → select → apply for one group. An empty
// option list succeeds without touching the page. On failure the page
// markup is saved to <DebugDir>/<group>_filter_debug.html.
func (r *run) applyFilter(ctx context.Context, g FilterGroup, options []string) error {
	if len(options) == 0 {
		return nil
	}

	if err := r.selectOptions(ctx, g, options); err != nil {
		r.dumpPage(ctx, g.Name)
		return apperr.Wrapf(apperr.KindFilter, err, "%s filter failed", g.Name)
	}
	r.log.Info("Applied %s filter: %v", g.Name, options)
	return nil
}

func (r *run) selectOptions(ctx context.Context, g FilterGroup, options []string) error {
	b := r.browser
	timing := r.opts.Timing

	if err := r.openPanel(ctx, g); err != nil {
		return err
	}

	if ok, _ := b.Exists(ctx, g.Reset); ok {
		if err := b.JSClick(ctx, g.Reset); err != nil {
			r.log.Warn("Could not reset %s filter: %v", g.Name, err)
		} else {
			if err := sleep(ctx, timing.ResetSettle); err != nil {
				return err
			}
			// Resetting may close the panel.
			if open, _ := b.Exists(ctx, g.Panel); !open {
				if err := r.openPanel(ctx, g); err != nil {
					return err
				}
			}
		}
	}

	for _, opt := range options {
		if err := b.Check(ctx, g.Option(opt)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Warn("Option %q unavailable in %s filter: %v", opt, g.Name, err)
		}
	}

	if err := b.JSClick(ctx, g.Apply); err != nil {
		return fmt.Errorf("apply button: %w", err)
	}
	return sleep(ctx, timing.ApplySettle)
}

func (r *run) openPanel(ctx context.Context, g FilterGroup) error {
	b := r.browser
	if err := b.WaitFor(ctx, g.Button, r.opts.Timing.ElementWait); err != nil {
		return fmt.Errorf("filter button: %w", err)
	}
	if err := b.Click(ctx, g.Button); err != nil {
		return fmt.Errorf("open panel: %w", err)
	}
	if err := b.WaitFor(ctx, g.Panel, r.opts.Timing.ElementWait); err != nil {
		return fmt.Errorf("panel not shown: %w", err)
	}
	return sleep(ctx, r.opts.Timing.FilterAnimation)
}

func (r *run) dumpPage(ctx context.Context, name string) {
	if r.opts.DebugDir == "" {
		return
	}
	html, err := r.browser.HTML(ctx)
	if err != nil {
		r.log.Warn("Could not capture page for %s filter: %v", name, err)
		return
	}
	if err := os.MkdirAll(r.opts.DebugDir, 0700); err != nil {
		r.log.Warn("Could not create debug directory: %v", err)
		return
	}
	path := filepath.Join(r.opts.DebugDir, name+"_filter_debug.html")
	if err := os.WriteFile(path, []byte(html), 0600); err != nil {
		r.log.Warn("Could not write %s: %v", path, err)
		return
	}
	r.log.Info("Saved page markup to %s", path)
}
