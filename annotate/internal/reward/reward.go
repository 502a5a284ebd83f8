// Package reward turns (category, price, rate table) into a reward
// amount, after applying the exclusion rules that mark resale, free and
// off-sale items ineligible.
package reward

import (
	"math"
	"strings"

	"golang.org/x/net/html"

	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
	"github.com/buxback/gild/ratesource"
)

// exclusionKeywords are matched case-insensitively against the
// container's whole visible text. Known to false-positive on unrelated
// copy (e.g. "free shipping"); that is the shipped behaviour.
var exclusionKeywords = []string{"limited", "free", "off sale"}

// exclusionClassTokens mark resale state via styling hooks.
var exclusionClassTokens = []string{"resale", "limited"}

// Excluded reports whether the container holds an item ineligible for
// reward regardless of price. A nil container (detail pages) is never
// excluded.
func Excluded(container *html.Node) bool {
	if container == nil {
		return false
	}
	text := strings.ToLower(dom.Text(container))
	for _, kw := range exclusionKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	found := false
	dom.Walk(container, func(n *html.Node) bool {
		for _, tok := range exclusionClassTokens {
			if dom.ClassContains(n, tok) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// Amount is floor(price × rate).
func Amount(price int, rate float64) int {
	return int(math.Floor(float64(price) * rate))
}

// Evaluate fills in the reward fields of an item. Exclusion is decided
// first; an excluded item never gets an amount. A nil price leaves the
// reward undetermined (nil), which is not the same as zero.
func Evaluate(it *item.Item, table ratesource.Table, container *html.Node) {
	if Excluded(container) {
		it.Excluded = true
		it.Reward = nil
		return
	}
	if it.Price == nil {
		it.Reward = nil
		return
	}
	it.Reward = item.IntPtr(Amount(*it.Price, table.Rate(it.Category)))
}
