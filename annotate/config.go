// Package annotate is the annotation engine. It detects purchasable items
// in HTML snapshots of catalog and game-detail pages, computes cashback
// rewards, injects badges, buttons, and modals into the tree, and emits
// one event per artifact to configured sinks.
//
// The engine is single-threaded by construction: all state lives behind
// one signal channel drained by Run. Producers (a live page watcher, a
// test, the CLI) post signals; nothing else touches session state.
package annotate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/buxback/gild/deeplink"
	"github.com/buxback/gild/ratesource"
)

// Config is the top-level engine configuration.
type Config struct {
	// PlaceID is the experience deep links open into.
	PlaceID string `yaml:"place_id"`

	// ThumbnailSelectors locate candidate item images on grid pages.
	ThumbnailSelectors []string `yaml:"thumbnail_selectors"`

	// PassContainerSelectors locate game pass cards on detail pages.
	PassContainerSelectors []string `yaml:"pass_container_selectors"`

	// NavDebounce coalesces bursts of navigation signals. SPA route
	// changes fire several history events per transition.
	NavDebounce time.Duration `yaml:"nav_debounce"`

	// BackstopInterval throttles URL-change detection piggybacked on
	// mutation signals, for transitions the history hooks miss.
	BackstopInterval time.Duration `yaml:"backstop_interval"`

	// RetrySchedule re-attempts detail button insertion while the page
	// hydrates. Delays are from route entry, not from each other.
	RetrySchedule []time.Duration `yaml:"retry_schedule"`

	// CopyRevert is how long the copy button reads "Copied!".
	CopyRevert time.Duration `yaml:"copy_revert"`

	// ScrollRescanHz caps scroll-driven rescans per second.
	ScrollRescanHz float64 `yaml:"scroll_rescan_hz"`

	// SignalBuffer sizes the engine signal channel.
	SignalBuffer int `yaml:"signal_buffer"`

	// Digest enables markdown digests on emitted artifacts.
	Digest bool `yaml:"digest"`

	Rates ratesource.Config `yaml:"rates"`
	Sinks []SinkConfig      `yaml:"sinks"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook
	URL  string `yaml:"url"`  // for webhook
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("annotate: read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("annotate: parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.PlaceID == "" {
		c.PlaceID = deeplink.DefaultPlaceID
	}
	if len(c.ThumbnailSelectors) == 0 {
		c.ThumbnailSelectors = []string{
			"img[src*=rbxcdn.com]",
			"img[src*=roblox.com]",
		}
	}
	if len(c.PassContainerSelectors) == 0 {
		c.PassContainerSelectors = []string{
			".store-card",
			".list-item",
			"[class*=game-pass]",
			"[class*=store-tab]",
		}
	}
	if c.NavDebounce <= 0 {
		c.NavDebounce = 100 * time.Millisecond
	}
	if c.BackstopInterval <= 0 {
		c.BackstopInterval = 500 * time.Millisecond
	}
	if len(c.RetrySchedule) == 0 {
		c.RetrySchedule = []time.Duration{
			500 * time.Millisecond,
			1 * time.Second,
			2 * time.Second,
			3 * time.Second,
		}
	}
	if c.CopyRevert <= 0 {
		c.CopyRevert = 2 * time.Second
	}
	// Once per animation frame.
	if c.ScrollRescanHz <= 0 {
		c.ScrollRescanHz = 60
	}
	if c.SignalBuffer <= 0 {
		c.SignalBuffer = 1024
	}
}
