// Package ratesource supplies the current reward rate table. The engine
// treats it as ambient read-only state: a built-in default, lazily
// replaced by fetched rates, optionally persisted in a small SQLite
// cache so a restart starts from the last known table instead of the
// default.
//
// The most recently completed fetch wins. Scans that already ran keep
// the results they computed — staleness is accepted, never repaired
// retroactively.
package ratesource

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/buxback/gild/item"
)

// Table maps categories to reward rates in (0, 1].
type Table struct {
	Catalog  float64 `json:"catalog"`
	Classic  float64 `json:"classic"`
	Gamepass float64 `json:"gamepass"`
}

// Default is the built-in table used until a fetch succeeds.
func Default() Table {
	return Table{Catalog: 0.30, Classic: 0.05, Gamepass: 0.05}
}

// Rate returns the rate for a category. Bundles price like catalog
// items.
func (t Table) Rate(cat item.Category) float64 {
	switch cat {
	case item.CategoryClassic:
		return t.Classic
	case item.CategoryGamepass:
		return t.Gamepass
	default:
		return t.Catalog
	}
}

// valid rejects tables with out-of-range rates. A partial or broken
// response must never poison the current table.
func (t Table) valid() bool {
	for _, r := range []float64{t.Catalog, t.Classic, t.Gamepass} {
		if r <= 0 || r > 1 {
			return false
		}
	}
	return true
}

// Origin says where the current table came from.
type Origin string

const (
	OriginDefault Origin = "default"
	OriginCached  Origin = "cached"
	OriginFetched Origin = "fetched"
)

// Snapshot is the table plus provenance, as read by the engine.
type Snapshot struct {
	Table     Table     `json:"rates"`
	Origin    Origin    `json:"origin"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
}

// Config tunes the source.
type Config struct {
	// URL is the rate API endpoint. Empty disables fetching — the
	// source serves the default (or cached) table forever.
	URL string `yaml:"url"`
	// RefreshInterval between fetches. Default: 1h.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// DBPath is the SQLite cache location. Empty disables persistence.
	DBPath string `yaml:"db_path"`
	// HTTPTimeout per fetch. Default: 10s.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

func (c *Config) defaults() {
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = time.Hour
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 10 * time.Second
	}
}

// Source serves the current rate table. Safe for concurrent reads.
type Source struct {
	cfg     Config
	store   *Store
	client  *http.Client
	logger  *slog.Logger
	current atomic.Value // Snapshot
}

// New creates a Source seeded from the cache when one exists, otherwise
// from the built-in default. When a cache path is configured, the
// install timestamp is recorded on first open.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	s := &Source{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}
	s.current.Store(Snapshot{Table: Default(), Origin: OriginDefault})

	if cfg.DBPath != "" {
		st, err := OpenStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		s.store = st
		if _, err := st.EnsureInstalledAt(context.Background(), time.Now()); err != nil {
			logger.Warn("ratesource: record install time failed", "error", err)
		}
		if cached, at, err := st.LoadTable(context.Background()); err != nil {
			logger.Warn("ratesource: load cached table failed", "error", err)
		} else if cached != nil && cached.valid() {
			s.current.Store(Snapshot{Table: *cached, Origin: OriginCached, FetchedAt: at})
			logger.Info("ratesource: cached table loaded", "fetched_at", at)
		}
	}

	return s, nil
}

// Current returns the table in effect right now.
func (s *Source) Current() Snapshot {
	return s.current.Load().(Snapshot)
}

// Run fetches once at startup and then on every refresh interval, until
// ctx is cancelled. Fetch failures keep the current table in effect.
func (s *Source) Run(ctx context.Context) {
	if s.cfg.URL == "" {
		s.logger.Info("ratesource: no URL configured, serving built-in rates")
		return
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("ratesource: initial fetch failed", "error", err)
	}

	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn("ratesource: refresh failed", "error", err)
			}
		}
	}
}

// Refresh performs one fetch. A response without rates is not an error;
// the current table simply stays in effect.
func (s *Source) Refresh(ctx context.Context) error {
	table, err := fetchTable(ctx, s.client, s.cfg.URL)
	if err != nil {
		return err
	}
	if table == nil {
		s.logger.Debug("ratesource: response carried no rates, keeping current table")
		return nil
	}
	if !table.valid() {
		s.logger.Warn("ratesource: fetched table out of range, ignored", "table", *table)
		return nil
	}

	now := time.Now()
	s.current.Store(Snapshot{Table: *table, Origin: OriginFetched, FetchedAt: now})
	s.logger.Info("ratesource: rates updated",
		"catalog", table.Catalog, "classic", table.Classic, "gamepass", table.Gamepass)

	if s.store != nil {
		if err := s.store.SaveTable(ctx, *table, now); err != nil {
			s.logger.Warn("ratesource: cache write failed", "error", err)
		}
	}
	return nil
}

// Close releases the cache store, if any.
func (s *Source) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
