package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/blackwell-systems/autoapply/internal/automation"
)

// ErrNotFound is returned when a selector matches nothing.
var ErrNotFound = errors.New("element not found")

// page is one Chrome tab. It implements automation.Tab.
type page struct {
	ctx       context.Context
	cancel    context.CancelFunc
	opTimeout time.Duration
	base      *url.URL
}

func queryOpt(sel automation.Selector) chromedp.QueryOption {
	if sel.By == automation.ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func (p *page) Navigate(ctx context.Context, target string) error {
	if err := run(ctx, p.ctx, p.opTimeout*2, chromedp.Navigate(target)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", target, err)
	}
	return nil
}

func (p *page) WaitFor(ctx context.Context, sel automation.Selector, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.opTimeout
	}
	if err := run(ctx, p.ctx, timeout, chromedp.WaitVisible(sel.Query, queryOpt(sel))); err != nil {
		return fmt.Errorf("%s not visible: %w", sel, err)
	}
	return nil
}

func (p *page) Exists(ctx context.Context, sel automation.Selector) (bool, error) {
	var nodes []*cdp.Node
	if err := run(ctx, p.ctx, p.opTimeout, chromedp.Nodes(sel.Query, &nodes, queryOpt(sel), chromedp.AtLeast(0))); err != nil {
		return false, fmt.Errorf("failed to query %s: %w", sel, err)
	}
	return len(nodes) > 0, nil
}

func (p *page) Click(ctx context.Context, sel automation.Selector) error {
	if err := run(ctx, p.ctx, p.opTimeout, chromedp.Click(sel.Query, queryOpt(sel))); err != nil {
		return fmt.Errorf("failed to click %s: %w", sel, err)
	}
	return nil
}

func (p *page) JSClick(ctx context.Context, sel automation.Selector) error {
	return p.script(ctx, sel, "el.click();")
}

func (p *page) Check(ctx context.Context, sel automation.Selector) error {
	return p.script(ctx, sel, "if (!el.checked) { el.click(); }")
}

func (p *page) Fill(ctx context.Context, sel automation.Selector, value string) error {
	err := run(ctx, p.ctx, p.opTimeout,
		chromedp.Clear(sel.Query, queryOpt(sel)),
		chromedp.SendKeys(sel.Query, value, queryOpt(sel)),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %s: %w", sel, err)
	}
	return nil
}

func (p *page) Submit(ctx context.Context, sel automation.Selector) error {
	if err := run(ctx, p.ctx, p.opTimeout, chromedp.SendKeys(sel.Query, kb.Enter, queryOpt(sel))); err != nil {
		return fmt.Errorf("failed to submit %s: %w", sel, err)
	}
	return nil
}

func (p *page) Text(ctx context.Context, sel automation.Selector) (string, error) {
	var text string
	if err := run(ctx, p.ctx, p.opTimeout, chromedp.Text(sel.Query, &text, queryOpt(sel))); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", sel, err)
	}
	return strings.TrimSpace(text), nil
}

func (p *page) Hrefs(ctx context.Context, sel automation.Selector, limit int) ([]string, error) {
	var nodes []*cdp.Node
	if err := run(ctx, p.ctx, p.opTimeout, chromedp.Nodes(sel.Query, &nodes, queryOpt(sel), chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", sel, err)
	}

	var hrefs []string
	seen := make(map[string]bool)
	for _, n := range nodes {
		if limit > 0 && len(hrefs) >= limit {
			break
		}
		abs, ok := resolve(p.base, n.AttributeValue("href"))
		if !ok || seen[abs] {
			continue
		}
		seen[abs] = true
		hrefs = append(hrefs, abs)
	}
	return hrefs, nil
}

func (p *page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := run(ctx, p.ctx, p.opTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read page markup: %w", err)
	}
	return html, nil
}

// Close closes the tab.
func (p *page) Close() error {
	p.cancel()
	return nil
}

func (p *page) script(ctx context.Context, sel automation.Selector, body string) error {
	var found bool
	if err := run(ctx, p.ctx, p.opTimeout, chromedp.Evaluate(elementScript(sel, body), &found)); err != nil {
		return fmt.Errorf("script on %s failed: %w", sel, err)
	}
	if !found {
		return fmt.Errorf("%s: %w", sel, ErrNotFound)
	}
	return nil
}

// elementScript wraps body in a function that binds el to the first match
// of sel and returns whether it was found.
func elementScript(sel automation.Selector, body string) string {
	q, _ := json.Marshal(sel.Query)
	locate := fmt.Sprintf("document.querySelector(%s)", q)
	if sel.By == automation.ByXPath {
		locate = fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", q)
	}
	return fmt.Sprintf("(() => { const el = %s; if (!el) { return false; } %s return true; })()", locate, body)
}

// resolve makes href absolute against base. Empty and javascript: links
// are rejected.
func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return "", false
	}
	return u.String(), true
}
