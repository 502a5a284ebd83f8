package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/buxback/gild/annotate/internal/inject"
	"github.com/buxback/gild/annotate/internal/sink"
	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
	"github.com/buxback/gild/ratesource"
)

// RateProvider supplies the current cashback rate table. Satisfied by
// *ratesource.Source and by fixed tables in tests.
type RateProvider interface {
	Current() ratesource.Snapshot
}

// FixedRates is a RateProvider that always returns the same table.
type FixedRates ratesource.Table

func (f FixedRates) Current() ratesource.Snapshot {
	return ratesource.Snapshot{Table: ratesource.Table(f), Origin: ratesource.OriginDefault}
}

// Engine is the annotation engine. It owns a single DOM snapshot and
// all annotation session state; every mutation of that state happens on
// the Run goroutine, in response to signals.
type Engine struct {
	cfg    *Config
	rates  RateProvider
	inj    *inject.Injector
	out    *sink.Router
	logger *slog.Logger
	dig    *digester

	signals chan Signal
	seq     atomic.Uint64
	stats   engineStats

	// Clipboard writes copied item ids out of process. nil means the
	// copy is purely cosmetic (offline snapshots).
	clipboard func(string) error

	// Session state below. Run goroutine only.
	doc             *dom.Document
	pageURL         string
	detailItemID    string
	processedPasses map[string]struct{}
	lastBackstop    time.Time
	pendingNav      string
	navTimer        *time.Timer
	retryTimers     []*time.Timer
	copyTimer       *time.Timer
	copyToken       uint64
	scrollLimiter   *rate.Limiter
	capture         *[]item.Event
}

type engineStats struct {
	scans     atomic.Uint64
	badges    atomic.Uint64
	buttons   atomic.Uint64
	modals    atomic.Uint64
	excluded  atomic.Uint64
	dropped   atomic.Uint64
	throttled atomic.Uint64
}

// Stats is a point-in-time counter snapshot.
type Stats struct {
	Scans     uint64 `json:"scans"`
	Badges    uint64 `json:"badges"`
	Buttons   uint64 `json:"buttons"`
	Modals    uint64 `json:"modals"`
	Excluded  uint64 `json:"excluded"`
	Dropped   uint64 `json:"dropped"`
	Throttled uint64 `json:"throttled"`
}

// New creates an Engine. Sinks receive one event per injected or
// removed artifact.
func New(cfg *Config, rates RateProvider, logger *slog.Logger, sinks ...Sink) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg.applyDefaults()
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg:             cfg,
		rates:           rates,
		inj:             inject.New(),
		out:             sink.NewRouter(logger, sinks...),
		logger:          logger,
		signals:         make(chan Signal, cfg.SignalBuffer),
		processedPasses: make(map[string]struct{}),
		scrollLimiter:   rate.NewLimiter(rate.Limit(cfg.ScrollRescanHz), 1),
	}
	if cfg.Digest {
		e.dig = newDigester()
	}
	return e
}

// SetClipboard installs the out-of-process clipboard writer used by the
// modal copy button. Call before Run.
func (e *Engine) SetClipboard(fn func(string) error) {
	e.clipboard = fn
}

// Signals is the engine input channel. Producers post; Run drains.
func (e *Engine) Signals() chan<- Signal {
	return e.signals
}

// Post offers a signal without blocking. Signals are best-effort: a
// full channel drops the newest, not the oldest, and every drop is
// counted. Page activity is self-refreshing, so a dropped mutation is
// replaced by the next one.
func (e *Engine) Post(sig Signal) {
	select {
	case e.signals <- sig:
	default:
		e.stats.dropped.Add(1)
		e.logger.Warn("annotate: signal dropped", "kind", sig.Kind)
	}
}

// Stats returns current counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Scans:     e.stats.scans.Load(),
		Badges:    e.stats.badges.Load(),
		Buttons:   e.stats.buttons.Load(),
		Modals:    e.stats.modals.Load(),
		Excluded:  e.stats.excluded.Load(),
		Dropped:   e.stats.dropped.Load(),
		Throttled: e.stats.throttled.Load(),
	}
}

// Document returns the current snapshot. Meaningful only when the
// engine is not running, or from within a callback sink.
func (e *Engine) Document() *dom.Document {
	return e.doc
}

// Close stops timers and closes sinks. Call after Run has returned.
func (e *Engine) Close() error {
	e.stopNavTimer()
	e.stopRetries()
	if e.copyTimer != nil {
		e.copyTimer.Stop()
		e.copyTimer = nil
	}
	return e.out.Close()
}

func (e *Engine) table() ratesource.Table {
	return e.rates.Current().Table
}

// Report is the outcome of a one-shot snapshot annotation.
type Report struct {
	// HTML is the annotated document, re-rendered.
	HTML string `json:"html"`
	// Events are the artifacts produced, in emission order.
	Events []item.Event `json:"events"`
}

// AnnotateSnapshot runs the full annotation pass over a single HTML
// snapshot: route handling, grid scan, pass scan. It is the offline
// entry point for the CLI and the MCP tools, and must not be called
// while Run is draining signals.
func (e *Engine) AnnotateSnapshot(ctx context.Context, pageURL, htmlSrc string) (*Report, error) {
	doc, err := dom.ParseString(htmlSrc)
	if err != nil {
		return nil, fmt.Errorf("annotate: parse snapshot: %w", err)
	}

	var events []item.Event
	e.capture = &events
	defer func() { e.capture = nil }()

	// Each snapshot is an independent report: dedup state from a
	// previous call must not suppress annotations in this one.
	e.processedPasses = make(map[string]struct{})

	e.doc = doc
	e.pageURL = pageURL
	e.routeChanged(ctx)
	e.stopRetries() // one-shot: no async retry window
	e.scanAll(ctx)

	out, err := doc.Render()
	if err != nil {
		return nil, fmt.Errorf("annotate: render snapshot: %w", err)
	}
	return &Report{HTML: out, Events: events}, nil
}
