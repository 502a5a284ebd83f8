// Package classify determines an item's category from DOM and page
// context. Classification is deterministic over a fixed snapshot: no
// randomness, no network.
//
// Detail pages run an ordered strategy list (embedded script data →
// page title → breadcrumbs). The order is observable behaviour — items
// whose signals disagree classify by the first satisfied strategy — so
// it must not be changed.
package classify

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

// MaxAncestorDepth bounds the walk from a thumbnail up to its item
// container. Cards deeper than this are not item thumbnails.
const MaxAncestorDepth = 8

var detailPath = regexp.MustCompile(`^/(catalog|bundles|game-pass)/(\d+)`)

// DetailPage reports whether the URL path is an item-detail page, and
// if so the item id and the path-level category (catalog paths may
// still be refined to classic by Detail).
func DetailPage(u *url.URL) (id string, cat item.Category, ok bool) {
	m := detailPath.FindStringSubmatch(u.Path)
	if m == nil {
		return "", "", false
	}
	switch m[1] {
	case "game-pass":
		cat = item.CategoryGamepass
	case "bundles":
		cat = item.CategoryBundle
	default:
		cat = item.CategoryCatalog
	}
	return m[2], cat, true
}

// GridContainer walks up from a candidate thumbnail image looking for
// the ancestor that holds an item link. The first ancestor containing a
// catalog/bundle/game-pass anchor is the item container; a game-pass
// anchor makes it a gamepass, anything else the catalog bucket.
// Images with no such ancestor within the depth bound are not item
// thumbnails.
func GridContainer(img *html.Node) (container *html.Node, cat item.Category, ok bool) {
	dom.Ancestors(img, MaxAncestorDepth, func(el *html.Node) bool {
		if dom.Query(el, `a[href*=/catalog/], a[href*=/bundles/]`) != nil {
			container, cat, ok = el, item.CategoryCatalog, true
			return false
		}
		if dom.Query(el, `a[href*=/game-pass/]`) != nil {
			container, cat, ok = el, item.CategoryGamepass, true
			return false
		}
		return true
	})
	return container, cat, ok
}

// GridItemID pulls the numeric item id out of a grid container's item
// link. Empty when the container has no parseable link, which is fine:
// badge events carry whatever identity the markup offers.
func GridItemID(container *html.Node) string {
	link := dom.Query(container, `a[href*=/catalog/], a[href*=/bundles/], a[href*=/game-pass/]`)
	if link == nil {
		if u, err := url.Parse(dom.Attr(container, "href")); err == nil {
			if m := detailPath.FindStringSubmatch(u.Path); m != nil {
				return m[2]
			}
		}
		return ""
	}
	u, err := url.Parse(dom.Attr(link, "href"))
	if err != nil {
		return ""
	}
	m := detailPath.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return m[2]
}

// DetailStrategy is one way of deciding a detail page's category.
type DetailStrategy interface {
	Name() string
	// Classify returns (category, true) when the strategy's signal is
	// present, or (_, false) to pass to the next strategy.
	Classify(doc *dom.Document) (item.Category, bool)
}

// detailStrategies in priority order. Order is load-bearing.
var detailStrategies = []DetailStrategy{
	scriptAssetType{},
	titleKeyword{},
	breadcrumbKeyword{},
}

// Detail classifies an item detail page. Game-pass and bundle paths are
// decided by the URL alone; catalog paths run the strategy list to
// detect classic clothing. When no strategy matches, the page stays in
// the catalog bucket — there is no "unknown" state.
func Detail(doc *dom.Document, u *url.URL) item.Category {
	_, cat, ok := DetailPage(u)
	if !ok || cat != item.CategoryCatalog {
		return cat
	}
	for _, s := range detailStrategies {
		if got, hit := s.Classify(doc); hit {
			return got
		}
	}
	return item.CategoryCatalog
}

// --- strategy 1: embedded script data ---

var assetTypePattern = regexp.MustCompile(`(?i)["']?assetTypeId["']?\s*:\s*(\d+)`)

// scriptAssetType extracts the asset-type id the host embeds in script
// content and tests membership in the classic clothing set.
type scriptAssetType struct{}

func (scriptAssetType) Name() string { return "script_asset_type" }

func (scriptAssetType) Classify(doc *dom.Document) (item.Category, bool) {
	for _, s := range doc.QueryAll("script") {
		m := assetTypePattern.FindStringSubmatch(scriptText(s))
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err == nil && item.ClassicAssetTypes[id] {
			return item.CategoryClassic, true
		}
	}
	return "", false
}

func scriptText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// --- strategy 2: page title keywords ---

var titleKeywords = []string{
	"- shirt", "- pants", "- t-shirt", "classic shirt", "classic pants",
}

type titleKeyword struct{}

func (titleKeyword) Name() string { return "title_keyword" }

func (titleKeyword) Classify(doc *dom.Document) (item.Category, bool) {
	title := strings.ToLower(doc.Title())
	for _, kw := range titleKeywords {
		if strings.Contains(title, kw) {
			return item.CategoryClassic, true
		}
	}
	return "", false
}

// --- strategy 3: breadcrumb keywords ---

var breadcrumbKeywords = []string{"shirts", "pants", "t-shirts"}

type breadcrumbKeyword struct{}

func (breadcrumbKeyword) Name() string { return "breadcrumb_keyword" }

func (breadcrumbKeyword) Classify(doc *dom.Document) (item.Category, bool) {
	crumb := doc.Query("[class*=breadcrumb]")
	if crumb == nil {
		return "", false
	}
	text := strings.ToLower(dom.Text(crumb))
	for _, kw := range breadcrumbKeywords {
		if strings.Contains(text, kw) {
			return item.CategoryClassic, true
		}
	}
	return "", false
}

// --- pass listing cards ---

var passLink = regexp.MustCompile(`/game-pass/(\d+)`)

// cardSelector identifies the card-like ancestor of a pass purchase
// control.
const cardSelector = ".store-card, .list-item, [class*=game-pass]"

// PassID recovers a game pass id starting from its purchase control:
// explicit data attributes first, then a pass link inside the nearest
// card ancestor, then the card's own purchase button attributes.
// List cards are always gamepass category; only the id needs recovery.
func PassID(control *html.Node) string {
	if id := dom.Attr(control, "data-item-id"); id != "" {
		return id
	}
	if id := dom.Attr(control, "data-assetid"); id != "" {
		return id
	}

	card := dom.Closest(control, cardSelector)
	if card == nil {
		return ""
	}
	if link := dom.Query(card, "a[href*=/game-pass/]"); link != nil {
		if m := passLink.FindStringSubmatch(dom.Attr(link, "href")); m != nil {
			return m[1]
		}
	}
	if btn := dom.Query(card, ".PurchaseButton, [class*=PurchaseButton]"); btn != nil {
		if id := dom.Attr(btn, "data-item-id"); id != "" {
			return id
		}
		return dom.Attr(btn, "data-assetid")
	}
	return ""
}

// LinkPassID extracts a pass id from a card's pass link, for cards that
// carry no purchase control at all.
func LinkPassID(card *html.Node) string {
	link := dom.Query(card, "a[href*=/game-pass/]")
	if link == nil {
		return ""
	}
	if m := passLink.FindStringSubmatch(dom.Attr(link, "href")); m != nil {
		return m[1]
	}
	return ""
}
