// Package item holds the value types shared between the annotation
// engine, its sinks, and live-page appliers. It depends on nothing but
// the standard library so every layer can import it.
package item

import "strconv"

// Category is the classification bucket that decides which reward rate
// applies to an item.
type Category string

const (
	// CategoryCatalog covers 3D assets: bodies, heads, UGC clothing,
	// accessories. The default bucket.
	CategoryCatalog Category = "catalog"
	// CategoryClassic covers classic clothing: t-shirts, shirts, pants.
	CategoryClassic Category = "classic"
	// CategoryGamepass covers game passes.
	CategoryGamepass Category = "gamepass"
	// CategoryBundle covers bundles. Bundles price like catalog items.
	CategoryBundle Category = "bundle"
)

// ClassicAssetTypes are the host platform's asset type ids for classic
// clothing: t-shirt, shirt, pants.
var ClassicAssetTypes = map[int]bool{2: true, 11: true, 12: true}

// Item is one purchasable thing found on a page. Items are transient —
// built fresh on every scan pass, never persisted.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Category Category `json:"category"`
	// Price is nil when no plausible price was found. nil means "cannot
	// compute a reward", never zero.
	Price *int `json:"price,omitempty"`
	// Reward is the computed reward amount. nil when undetermined,
	// present-and-zero when computed but not worth annotating.
	Reward *int `json:"reward,omitempty"`
	// Excluded marks resale/free/off-sale items, ineligible regardless
	// of price.
	Excluded bool `json:"excluded,omitempty"`
}

// Net returns the effective price after the reward, when both are known.
func (it Item) Net() (int, bool) {
	if it.Price == nil || it.Reward == nil {
		return 0, false
	}
	return *it.Price - *it.Reward, true
}

// ArtifactKind is the type of UI artifact produced for an item.
type ArtifactKind string

const (
	ArtifactBadge  ArtifactKind = "badge"
	ArtifactButton ArtifactKind = "button"
	ArtifactModal  ArtifactKind = "modal"
)

// Artifact describes one injected UI node, addressed for replay on a
// live page: insert HTML as a child of the element at ParentXPath.
type Artifact struct {
	Kind        ArtifactKind `json:"kind"`
	ItemID      string       `json:"item_id"`
	ParentXPath string       `json:"parent_xpath"`
	HTML        string       `json:"html"`
	// Digest is a human-readable rendering of HTML for CLI and log
	// consumers. Optional.
	Digest string `json:"digest,omitempty"`
}

// EventKind classifies engine output events.
type EventKind string

const (
	EventAnnotated      EventKind = "annotated"
	EventCleanup        EventKind = "cleanup"
	EventModalOpened    EventKind = "modal_opened"
	EventModalDismissed EventKind = "modal_dismissed"
	EventCopied         EventKind = "copied"
)

// Event is one engine output record, emitted to sinks.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	PageURL   string    `json:"page_url"`
	Seq       uint64    `json:"seq"`
	Timestamp int64     `json:"timestamp"` // unix milliseconds
	Item      *Item     `json:"item,omitempty"`
	Artifact  *Artifact `json:"artifact,omitempty"`
}

// FormatAmount renders an integer with thousands separators, the way
// prices and rewards appear in badges and modals ("1,200").
func FormatAmount(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) > 3 {
		var out []byte
		lead := len(s) % 3
		if lead > 0 {
			out = append(out, s[:lead]...)
		}
		for i := lead; i < len(s); i += 3 {
			if len(out) > 0 {
				out = append(out, ',')
			}
			out = append(out, s[i:i+3]...)
		}
		s = string(out)
	}
	if neg {
		return "-" + s
	}
	return s
}

// IntPtr is a small helper for building optional amounts.
func IntPtr(v int) *int { return &v }
