// Package price locates a plausible price integer inside noisy host
// markup. Everything here is heuristic: price labels are short leaf
// nodes holding a bare grouped integer, and values outside a sanity
// band are unrelated numbers (rating counts, view counts).
package price

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/buxback/gild/dom"
)

const (
	// Min and Max bound accepted leaf prices. Below Min are ratings and
	// quantities; above Max are view counters and ids.
	Min = 5
	Max = 5_000_000

	// maxLeafText is the longest trimmed text a leaf price label can
	// carry ("5,000,000" is 9 runes; 15 leaves headroom for currency
	// glyphs).
	maxLeafText = 15

	// maxLeafChildren is how many child elements a "leaf-like" node may
	// have — price labels wrap at most an icon and a span.
	maxLeafChildren = 2
)

// leafPattern matches a whole trimmed text that is exactly one grouped
// integer.
var leafPattern = regexp.MustCompile(`^\s*(\d{1,3}(?:,\d{3})*|\d+)\s*$`)

// anyNumber matches the first grouped integer anywhere in a string.
var anyNumber = regexp.MustCompile(`(\d{1,3}(?:,\d{3})*|\d+)`)

// labeledPrice matches the literal word "Price" followed by a number,
// for the whole-page fallback on detail pages.
var labeledPrice = regexp.MustCompile(`(?i)Price\D*(\d{1,3}(?:,\d{3})*|\d+)`)

// FromContainer scans descendants of a grid container for the first
// leaf-like node whose entire text is a grouped integer within bounds.
// Returns nil when no candidate qualifies — callers must treat that as
// "cannot compute", never as zero.
func FromContainer(container *html.Node) *int {
	var found *int
	dom.Walk(container, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n == container {
			return true
		}
		if dom.ElementChildCount(n) > maxLeafChildren {
			return true
		}
		text := strings.TrimSpace(dom.Text(n))
		if len(text) > maxLeafText {
			return true
		}
		m := leafPattern.FindStringSubmatch(text)
		if m == nil {
			return true
		}
		v, ok := parseAmount(m[1])
		if !ok || v < Min || v > Max {
			return true
		}
		found = &v
		return false
	})
	return found
}

// FromDetail extracts the price from an item detail page: the labeled
// price element first, then a whole-page text scan keyed on "Price".
func FromDetail(doc *dom.Document) *int {
	if el := doc.Query("[class*=price-row] [class*=text-robux]"); el != nil {
		if m := anyNumber.FindStringSubmatch(dom.Text(el)); m != nil {
			if v, ok := parseAmount(m[1]); ok {
				return &v
			}
		}
	}

	body := dom.Text(doc.Body())
	if m := labeledPrice.FindStringSubmatch(body); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			return &v
		}
	}
	return nil
}

// FromCard extracts a price from a pass listing card: a price-styled
// element first, then numbers inside the card's buttons.
func FromCard(card *html.Node) *int {
	if el := dom.Query(card, "[class*=price], .text-robux, .robux-price"); el != nil {
		if m := anyNumber.FindStringSubmatch(dom.Text(el)); m != nil {
			if v, ok := parseAmount(m[1]); ok {
				return &v
			}
		}
	}
	for _, btn := range dom.QueryAll(card, "button, .btn") {
		// Our own injected controls carry reward amounts, not prices.
		if strings.Contains(dom.Attr(btn, "class"), "buxback") {
			continue
		}
		if m := anyNumber.FindStringSubmatch(dom.Text(btn)); m != nil {
			if v, ok := parseAmount(m[1]); ok {
				return &v
			}
		}
	}
	return nil
}

func parseAmount(s string) (int, bool) {
	v, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0, false
	}
	return v, true
}
