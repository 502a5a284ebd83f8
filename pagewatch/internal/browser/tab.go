package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page with the session setup a storefront needs:
// stealth patches and resource blocking. All page reads and writes go
// through Eval so the tab works against any execution context.
type Tab struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
}

// OpenTab creates a stealth tab and navigates it.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if mgr.cfg.Mode == ModeHeadful {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	} else {
		page, err = stealth.Page(b)
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.BlockResources) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.BlockResources); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	return &Tab{Page: page, PageURL: pageURL, manager: mgr}, nil
}

// URL reads the page's current location. SPA transitions change it
// without navigation events.
func (t *Tab) URL(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => location.href`)
	if err != nil {
		return "", fmt.Errorf("browser: read url: %w", err)
	}
	return res.Value.Str(), nil
}

// HTML serialises the full live DOM.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: read dom: %w", err)
	}
	return res.Value.Str(), nil
}

// ScrollY reads the vertical scroll offset.
func (t *Tab) ScrollY(ctx context.Context) (int, error) {
	res, err := t.Page.Context(ctx).Eval(`() => Math.round(window.scrollY)`)
	if err != nil {
		return 0, fmt.Errorf("browser: read scroll: %w", err)
	}
	return res.Value.Int(), nil
}

// InsertHTML appends markup as the last child of the element at an
// absolute XPath. A missing element is reported, not fatal: the page
// may have re-rendered since the snapshot was taken.
func (t *Tab) InsertHTML(ctx context.Context, xpath, markup string) error {
	res, err := t.Page.Context(ctx).Eval(`(xp, html) => {
		const el = document.evaluate(xp, document, null,
			XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
		if (!el) return false;
		el.insertAdjacentHTML('beforeend', html);
		return true;
	}`, xpath, markup)
	if err != nil {
		return fmt.Errorf("browser: insert html: %w", err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: insert html: no element at %s", xpath)
	}
	return nil
}

// RemoveByID removes the element with the given id, and its wrapper
// parent when the wrapper class matches.
func (t *Tab) RemoveByID(ctx context.Context, id, wrapperClass string) error {
	_, err := t.Page.Context(ctx).Eval(`(id, wrap) => {
		const el = document.getElementById(id);
		if (!el) return;
		const p = el.parentElement;
		if (wrap && p && p.classList.contains(wrap)) { p.remove(); return; }
		el.remove();
	}`, id, wrapperClass)
	if err != nil {
		return fmt.Errorf("browser: remove #%s: %w", id, err)
	}
	return nil
}

// WriteClipboard writes text via the page's clipboard API.
func (t *Tab) WriteClipboard(ctx context.Context, text string) error {
	_, err := t.Page.Context(ctx).Eval(`(txt) => navigator.clipboard.writeText(txt)`, text)
	if err != nil {
		return fmt.Errorf("browser: clipboard write: %w", err)
	}
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
