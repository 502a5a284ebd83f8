package annotate

import (
	"context"
	"strings"
	"time"
)

// Run drains the signal channel until ctx is done. It is the only
// goroutine that touches session state; timers and producers feed it
// through Post.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-e.signals:
			e.handle(ctx, sig)
		}
	}
}

func (e *Engine) handle(ctx context.Context, sig Signal) {
	switch sig.Kind {
	case SignalMutation:
		e.handleMutation(ctx, sig)
	case SignalScroll:
		e.handleScroll(ctx)
	case SignalNavigated:
		e.handleNavigated(sig.URL)
	case signalNavSettled:
		e.handleNavSettled(ctx)
	case signalRetry:
		e.handleRetry(ctx, sig.ItemID)
	case SignalOpenModal:
		e.openModal(ctx, sig.ItemID)
	case SignalDismissModal:
		e.dismissModal(ctx)
	case SignalCopy:
		e.handleCopy(ctx)
	case signalCopyRevert:
		e.handleCopyRevert(sig.token)
	case signalStoreRescan:
		if e.doc != nil {
			e.scanPasses(ctx)
		}
	default:
		e.logger.Warn("annotate: unknown signal", "kind", sig.Kind)
	}
}

// handleMutation installs the fresh snapshot and rescans. When the
// signal carries a URL it doubles as the navigation backstop: history
// hooks miss some transitions, so URL changes observed here are
// handled too, throttled so mutation storms do not turn every batch
// into a route check.
func (e *Engine) handleMutation(ctx context.Context, sig Signal) {
	if sig.Doc == nil {
		return
	}
	e.doc = sig.Doc

	if sig.URL != "" {
		now := time.Now()
		if now.Sub(e.lastBackstop) >= e.cfg.BackstopInterval {
			e.lastBackstop = now
			if sig.URL != e.pageURL {
				e.urlChanged(ctx, sig.URL)
			} else if e.detailItemID != "" && e.inj.ExistingButtonItem(e.doc) != e.detailItemID {
				// Hydration re-renders can wipe the injected button
				// without any navigation. Put it back.
				e.tryDetailButton(ctx)
			}
		}
	}

	e.scanAll(ctx)
}

func (e *Engine) handleScroll(ctx context.Context) {
	if !e.scrollLimiter.Allow() {
		e.stats.throttled.Add(1)
		return
	}
	e.scanAll(ctx)
}

// handleNavigated debounces route-change bursts. SPA transitions fire
// pushState, replaceState, and popstate in quick succession; only the
// URL that survives the quiet window matters.
func (e *Engine) handleNavigated(url string) {
	if url == "" {
		return
	}
	e.pendingNav = url
	e.stopNavTimer()
	e.navTimer = time.AfterFunc(e.cfg.NavDebounce, func() {
		e.Post(Signal{Kind: signalNavSettled})
	})
}

func (e *Engine) handleNavSettled(ctx context.Context) {
	url := e.pendingNav
	e.pendingNav = ""
	if url == "" {
		return
	}
	e.urlChanged(ctx, url)
}

func (e *Engine) stopNavTimer() {
	if e.navTimer != nil {
		e.navTimer.Stop()
		e.navTimer = nil
	}
}

// urlChanged is the single entry point for committed URL changes, from
// either the debounced navigation path or the mutation backstop.
// Equality is exact: query and fragment changes are transitions too.
func (e *Engine) urlChanged(ctx context.Context, url string) {
	if url == e.pageURL {
		return
	}
	e.logger.Debug("annotate: route change", "from", e.pageURL, "to", url)
	e.pageURL = url
	e.routeChanged(ctx)
	e.scanAll(ctx)

	// Opening the store tab re-renders pass cards after the hash
	// change lands, so a couple of delayed rescans catch them.
	if strings.Contains(url, "#store") && onGamePage(url) {
		for _, d := range []time.Duration{500 * time.Millisecond, time.Second} {
			time.AfterFunc(d, func() {
				e.Post(Signal{Kind: signalStoreRescan})
			})
		}
	}
}

// handleRetry re-attempts detail button insertion. The id guard drops
// retries scheduled for a route we have since left.
func (e *Engine) handleRetry(ctx context.Context, itemID string) {
	if itemID == "" || itemID != e.detailItemID {
		return
	}
	e.tryDetailButton(ctx)
}

func (e *Engine) scanAll(ctx context.Context) {
	if e.doc == nil {
		return
	}
	e.stats.scans.Add(1)
	e.scanGrid(ctx)
	e.scanPasses(ctx)
}
