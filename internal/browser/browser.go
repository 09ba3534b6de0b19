// Package browser implements the automation capability interfaces on top of
// a Chrome instance driven through the DevTools protocol.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/blackwell-systems/autoapply/internal/automation"
)

// Options configures Chrome.
type Options struct {
	Headless  bool
	ExecPath  string
	BaseURL   string
	OpTimeout time.Duration
}

// Launcher returns an automation.Launcher that starts Chrome with opts.
func Launcher(opts Options) automation.Launcher {
	return func(ctx context.Context) (automation.Browser, error) {
		return Launch(ctx, opts)
	}
}

// Browser is a running Chrome instance and its main tab.
type Browser struct {
	*page
	allocCancel context.CancelFunc
}

// Launch starts Chrome and opens its main tab. The browser outlives ctx;
// call Close to stop it.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 15 * time.Second
	}

	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
		}
		base = u
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(1366, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := start(ctx, tabCtx, tabCancel); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &Browser{
		page: &page{
			ctx:       tabCtx,
			cancel:    tabCancel,
			opTimeout: opts.OpTimeout,
			base:      base,
		},
		allocCancel: allocCancel,
	}, nil
}

// OpenTab opens url in a new tab of the same browser.
func (b *Browser) OpenTab(ctx context.Context, target string) (automation.Tab, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := start(ctx, tabCtx, cancel); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	p := &page{ctx: tabCtx, cancel: cancel, opTimeout: b.opTimeout, base: b.base}
	if err := p.Navigate(ctx, target); err != nil {
		cancel()
		return nil, err
	}
	return p, nil
}

// Close closes every tab and stops Chrome.
func (b *Browser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if err != nil && err != context.Canceled {
		return fmt.Errorf("failed to close chrome: %w", err)
	}
	return nil
}

// start performs the first, empty Run on a new chromedp context. chromedp
// binds Chrome and the tab's event loop to the context of that Run, so it
// runs on tabCtx itself; cancel aborts it if ctx is done first.
func start(ctx, tabCtx context.Context, cancel context.CancelFunc) error {
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tabCtx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// run executes actions in tabCtx, bounded by timeout and aborted when the
// caller's ctx is done.
func run(ctx, tabCtx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
