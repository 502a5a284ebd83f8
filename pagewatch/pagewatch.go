// Package pagewatch runs the annotation engine against a live page. It
// drives a stealth Chrome tab, polls it for DOM and URL changes, feeds
// snapshots to the engine as signals, and applies the engine's
// artifacts back to the page.
//
// pagewatch observes and applies; it never interprets. Every decision
// about what to inject lives in the annotate engine.
package pagewatch

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/buxback/gild/annotate"
	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/pagewatch/internal/browser"
)

// Config configures a live annotation session.
type Config struct {
	// URL is the page the session opens on.
	URL string `yaml:"url"`

	// PollInterval is the snapshot cadence. Default: 250ms.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ScrollDelta is the minimum scroll offset change, in pixels, that
	// counts as a scroll. Default: 200.
	ScrollDelta int `yaml:"scroll_delta"`

	Browser BrowserConfig `yaml:"browser"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	MemoryLimit     int64         `yaml:"memory_limit"`
	RecycleInterval time.Duration `yaml:"recycle_interval"`
	BlockResources  []string      `yaml:"block_resources"`
	Mode            string        `yaml:"mode"` // headless | headful
	XvfbDisplay     string        `yaml:"xvfb_display"`
}

func (c *Config) applyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.ScrollDelta <= 0 {
		c.ScrollDelta = 200
	}
}

// tabSession is the slice of browser.Tab the watcher drives. Polling
// and artifact application go through it, so both can run against a
// stand-in in tests.
type tabSession interface {
	URL(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	ScrollY(ctx context.Context) (int, error)
	InsertHTML(ctx context.Context, xpath, markup string) error
	RemoveByID(ctx context.Context, id, wrapperClass string) error
	WriteClipboard(ctx context.Context, text string) error
	Close() error
}

// Watcher owns the browser session for one page.
type Watcher struct {
	cfg    Config
	mgr    *browser.Manager
	logger *slog.Logger

	mu  sync.RWMutex
	tab tabSession

	engine *annotate.Engine
	post   func(annotate.Signal)

	lastURL    string
	lastHash   uint64
	lastScroll int
}

// New creates a Watcher. Attach an engine before Start.
func New(cfg Config, logger *slog.Logger) *Watcher {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	mode := browser.ModeHeadless
	if cfg.Browser.Mode == "headful" {
		mode = browser.ModeHeadful
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval,
		BlockResources:  cfg.Browser.BlockResources,
		Mode:            mode,
		XvfbDisplay:     cfg.Browser.XvfbDisplay,
		Logger:          logger,
	})

	return &Watcher{cfg: cfg, mgr: mgr, logger: logger}
}

// Attach wires the engine the watcher feeds. The engine's clipboard is
// pointed at the live page.
func (w *Watcher) Attach(eng *annotate.Engine) {
	w.engine = eng
	w.post = eng.Post
	eng.SetClipboard(func(text string) error {
		w.mu.RLock()
		tab := w.tab
		w.mu.RUnlock()
		if tab == nil {
			return fmt.Errorf("pagewatch: no open tab")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tab.WriteClipboard(ctx, text)
	})
}

// Start launches Chrome and opens the session tab.
func (w *Watcher) Start(ctx context.Context) error {
	if w.engine == nil {
		return fmt.Errorf("pagewatch: no engine attached")
	}
	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("pagewatch: start browser: %w", err)
	}

	w.mgr.SetRecycleCallback(&browser.RecycleCallback{
		BeforeRecycle: func() {
			w.mu.Lock()
			w.tab = nil
			w.mu.Unlock()
		},
		AfterRecycle: func(_ *rod.Browser) { w.reopen(ctx) },
	})

	tab, err := browser.OpenTab(ctx, w.mgr, w.cfg.URL)
	if err != nil {
		return fmt.Errorf("pagewatch: open tab: %w", err)
	}
	w.mu.Lock()
	w.tab = tab
	w.mu.Unlock()
	return nil
}

// reopen reattaches the session tab after a browser recycle, at the
// last observed URL.
func (w *Watcher) reopen(ctx context.Context) {
	url := w.cfg.URL
	if w.lastURL != "" {
		url = w.lastURL
	}
	tab, err := browser.OpenTab(ctx, w.mgr, url)
	if err != nil {
		w.logger.Error("pagewatch: reopen after recycle failed", "error", err)
		return
	}
	w.mu.Lock()
	w.tab = tab
	w.mu.Unlock()
	// Force a fresh snapshot on the next poll.
	w.lastHash = 0
}

// Run polls the page until ctx is done. URL changes become navigation
// signals, DOM changes become mutation signals carrying a parsed
// snapshot, scroll movement becomes scroll signals.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	w.mu.RLock()
	tab := w.tab
	w.mu.RUnlock()
	if tab == nil {
		return
	}

	url, err := tab.URL(ctx)
	if err != nil {
		w.logger.Debug("pagewatch: url poll failed", "error", err)
		return
	}
	if url != w.lastURL {
		w.lastURL = url
		w.post(annotate.NavigatedSignal(url))
	}

	if y, err := tab.ScrollY(ctx); err == nil {
		if diff(y, w.lastScroll) >= w.cfg.ScrollDelta {
			w.lastScroll = y
			w.post(annotate.ScrollSignal())
		}
	}

	src, err := tab.HTML(ctx)
	if err != nil {
		w.logger.Debug("pagewatch: dom poll failed", "error", err)
		return
	}
	h := fnv.New64a()
	h.Write([]byte(src))
	sum := h.Sum64()
	if sum == w.lastHash {
		return
	}
	w.lastHash = sum

	doc, err := dom.ParseString(src)
	if err != nil {
		w.logger.Warn("pagewatch: parse snapshot failed", "error", err)
		return
	}
	w.post(annotate.MutationSignal(url, doc))
}

// Close shuts the session down.
func (w *Watcher) Close() error {
	return w.mgr.Close()
}

func diff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
