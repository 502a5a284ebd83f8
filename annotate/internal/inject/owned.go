package inject

import (
	"strings"

	"github.com/buxback/gild/dom"
)

// purchaseControlSelectors cover the host's primary purchase button.
// Only this control decides ownership — "you own a similar item" copy
// elsewhere on the page must not count.
var purchaseControlSelectors = []string{
	"[class*=PurchaseButton] button",
	"[class*=purchase-button] button",
	"[data-testid=purchase-button]",
	"[class*=action-button] button",
}

// Owned infers whether the detail-page item is already owned. The
// heuristic is deliberately biased toward "not owned" — with no
// positive signal the button shows.
func (inj *Injector) Owned(doc *dom.Document) bool {
	// Primary control explicitly showing the owned state.
	for _, sel := range purchaseControlSelectors {
		btn := doc.Query(sel)
		if btn == nil {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(dom.Text(btn)))
		if text == "owned" || text == "item owned" {
			return true
		}
	}

	// Owned styling on the purchase control itself.
	for _, el := range doc.QueryAll("[class*=PurchaseButton], [class*=purchase-button]") {
		if dom.ClassContains(el, "owned") {
			return true
		}
	}

	// A live buy control means definitely not owned.
	for _, b := range doc.QueryAll("button") {
		text := strings.ToLower(strings.TrimSpace(dom.Text(b)))
		if text == "buy" || text == "get" || text == "add to cart" {
			return false
		}
	}

	return false
}
