package inject

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

// fallbackSelectors locate the host's purchase control when no buy
// button is found by text.
var fallbackSelectors = []string{
	"[class*=PurchaseButton]",
	"[class*=action-button]",
	"[data-testid=purchase-button]",
}

// priceSectionSelector anchors the last-resort insertion next to the
// price display.
const priceSectionSelector = "[class*=price-row], [class*=item-price], [class*=PriceLabel]"

// ExistingButtonItem returns the item id the current detail button is
// scoped to, or "" when none is present.
func (inj *Injector) ExistingButtonItem(doc *dom.Document) string {
	btn := doc.Query("#" + ButtonID)
	if btn == nil {
		return ""
	}
	return dom.Attr(btn, ButtonItemAttr)
}

// DetailButton inserts the buy-with-reward button adjacent to the host's
// purchase control, searching three tiers: buy buttons by visible text,
// purchase-control role selectors, then the price section. When no
// insertion point exists the call is a silent no-op.
func (inj *Injector) DetailButton(doc *dom.Document, it item.Item) (wrapper, parent *html.Node) {
	btn := inj.buildDetailButton(it)
	wrapper = dom.Element("div", "class", ButtonWrapperClass)
	wrapper.AppendChild(btn)

	// Tier 1: a buy button identified by its visible text. When an
	// "add to cart" variant exists its position wins.
	buttons := doc.QueryAll("button")
	var buyBtn, addToCartBtn *html.Node
	for _, b := range buttons {
		text := strings.ToLower(strings.TrimSpace(dom.Text(b)))
		if text == "add to cart" && addToCartBtn == nil {
			addToCartBtn = b
		}
		if buyBtn == nil && (text == "buy" || text == "add to cart" || strings.Contains(text, "purchase")) {
			buyBtn = b
		}
	}
	if buyBtn != nil && buyBtn.Parent != nil {
		anchor := buyBtn
		if addToCartBtn != nil && addToCartBtn.Parent != nil {
			anchor = addToCartBtn
		}
		dom.InsertAfter(anchor, wrapper)
		return wrapper, anchor.Parent
	}

	// Tier 2: role selectors.
	for _, sel := range fallbackSelectors {
		if el := doc.Query(sel); el != nil && el.Parent != nil {
			dom.InsertAfter(el, wrapper)
			return wrapper, el.Parent
		}
	}

	// Tier 3: after the price section.
	if el := doc.Query(priceSectionSelector); el != nil && el.Parent != nil {
		dom.InsertAfter(el, wrapper)
		return wrapper, el.Parent
	}

	return nil, nil
}

func (inj *Injector) buildDetailButton(it item.Item) *html.Node {
	btn := dom.Element("button",
		"id", ButtonID,
		"class", ButtonClass,
		ButtonItemAttr, it.ID,
	)
	content := dom.Element("span", "class", "buxback-btn-content")
	main := dom.Element("span", "class", "buxback-btn-main")
	main.AppendChild(dom.TextNode("Buy with BuxBack"))
	content.AppendChild(main)
	if it.Reward != nil && *it.Reward > 0 {
		sub := dom.Element("span", "class", "buxback-btn-cashback")
		sub.AppendChild(dom.TextNode("+" + item.FormatAmount(*it.Reward) + " Robux back"))
		content.AppendChild(sub)
	}
	btn.AppendChild(content)
	return btn
}

// passCaptionSelector is where pass cards host secondary controls.
const passCaptionSelector = ".store-card-caption, .item-card-caption, [class*=caption]"

// PassButton appends a reward button to a pass card: into the card
// caption when one exists, otherwise next to the purchase control,
// otherwise onto the card itself.
func (inj *Injector) PassButton(card, control *html.Node, it item.Item) (btn, parent *html.Node) {
	if dom.Query(card, "."+PassButtonClass) != nil {
		return nil, nil
	}

	btn = dom.Element("button",
		"class", PassButtonClass,
		PassButtonIDAttr, it.ID,
	)
	label := dom.Element("span", "class", "buxback-gp-btn-text")
	label.AppendChild(dom.TextNode("BuxBack"))
	btn.AppendChild(label)
	if it.Reward != nil && *it.Reward > 0 {
		amount := dom.Element("span", "class", "buxback-gp-cashback")
		amount.AppendChild(dom.TextNode("+" + item.FormatAmount(*it.Reward)))
		btn.AppendChild(amount)
	}

	if caption := dom.Query(card, passCaptionSelector); caption != nil {
		caption.AppendChild(btn)
		return btn, caption
	}
	if control != nil && control.Parent != nil {
		control.Parent.AppendChild(btn)
		return btn, control.Parent
	}
	card.AppendChild(btn)
	return btn, card
}
