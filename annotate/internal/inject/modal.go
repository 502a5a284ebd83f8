package inject

import (
	"math"

	"golang.org/x/net/html"

	"github.com/buxback/gild/deeplink"
	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

// Modal creates the reward modal for an item and appends it to the
// document body. There is exactly one live modal system-wide: any
// previous modal node is removed first, unconditionally.
//
// A rate above zero adds the percentage to the cashback label. Callers
// pass the rate only for surfaces that display it (the pass listing);
// detail-page modals pass zero.
func (inj *Injector) Modal(doc *dom.Document, it item.Item, link string, rate float64) *html.Node {
	if prev := doc.Query("#" + ModalID); prev != nil {
		dom.Detach(prev)
	}

	modal := dom.Element("div", "id", ModalID)
	overlay := dom.Element("div", "class", "buxback-modal-overlay")
	content := dom.Element("div", "class", "buxback-modal-content")

	closeBtn := dom.Element("button", "class", "buxback-modal-close")
	closeBtn.AppendChild(dom.TextNode("×"))
	content.AppendChild(closeBtn)

	header := dom.Element("div", "class", "buxback-modal-header")
	logo := dom.Element("div", "class", "buxback-logo")
	logo.AppendChild(dom.TextNode("BuxBack"))
	title := dom.Element("h2")
	title.AppendChild(dom.TextNode("Buy & Earn Cashback"))
	header.AppendChild(logo)
	header.AppendChild(title)
	content.AppendChild(header)

	body := dom.Element("div", "class", "buxback-modal-body")

	name := dom.Element("p", "class", "buxback-item-name")
	name.AppendChild(dom.TextNode(inj.SanitizeName(it.Name)))
	body.AppendChild(name)

	body.AppendChild(inj.priceSummary(it, rate))

	if link != "" {
		instructions := dom.Element("div", "class", "buxback-instructions")
		p := dom.Element("p")
		strong := dom.Element("strong")
		strong.AppendChild(dom.TextNode("Click below to open the game with this item ready to buy:"))
		p.AppendChild(strong)
		instructions.AppendChild(p)
		body.AppendChild(instructions)

		open := dom.Element("a",
			"href", link,
			"class", "buxback-game-btn buxback-deeplink-btn")
		open.AppendChild(dom.TextNode("Open in BuxBack Game"))
		body.AppendChild(open)
	}

	body.AppendChild(inj.copySection(it.ID))

	fallbackLink := dom.Element("a",
		"href", deeplink.GameURL,
		"target", "_blank",
		"class", "buxback-fallback-link")
	fallbackLink.AppendChild(dom.TextNode("Open game manually →"))
	body.AppendChild(fallbackLink)

	content.AppendChild(body)
	overlay.AppendChild(content)
	modal.AppendChild(overlay)

	doc.Body().AppendChild(modal)
	return modal
}

// priceSummary renders the price / reward / net rows. Rows whose value
// is unknown are simply absent.
func (inj *Injector) priceSummary(it item.Item, rate float64) *html.Node {
	summary := dom.Element("div", "class", "buxback-price-summary")

	row := func(class, label, value string) *html.Node {
		r := dom.Element("div", "class", "buxback-price-row"+class)
		l := dom.Element("span")
		l.AppendChild(dom.TextNode(label))
		v := dom.Element("span", "class", valueClass(class))
		v.AppendChild(dom.TextNode(value))
		r.AppendChild(l)
		r.AppendChild(v)
		return r
	}

	if it.Price != nil {
		summary.AppendChild(row("", "Price", item.FormatAmount(*it.Price)+" Robux"))
	}
	if it.Reward != nil && *it.Reward > 0 {
		label := "Your Cashback"
		if rate > 0 {
			label = "Your Cashback (" + item.FormatAmount(int(math.Round(rate*100))) + "%)"
		}
		summary.AppendChild(row(" buxback-cashback-row", label,
			"+"+item.FormatAmount(*it.Reward)+" Robux"))
	}
	if net, ok := it.Net(); ok && *it.Reward > 0 {
		summary.AppendChild(row(" buxback-total-row", "You Actually Pay",
			item.FormatAmount(net)+" Robux"))
	}
	return summary
}

func valueClass(rowClass string) string {
	switch rowClass {
	case " buxback-cashback-row":
		return "buxback-cashback-value"
	case " buxback-total-row":
		return "buxback-total-value"
	default:
		return "buxback-price-value"
	}
}

// copySection renders the copyable raw id with its Copy button.
func (inj *Injector) copySection(id string) *html.Node {
	section := dom.Element("div", "class", "buxback-fallback")
	label := dom.Element("p", "class", "buxback-fallback-label")
	label.AppendChild(dom.TextNode("If the game doesn't open, copy the Item ID:"))
	section.AppendChild(label)

	row := dom.Element("div", "class", "buxback-copy-row")
	input := dom.Element("input",
		"type", "text",
		"value", id,
		"readonly", "",
		"id", "buxback-item-id")
	row.AppendChild(input)

	copyBtn := dom.Element("button",
		"class", CopyButtonClass,
		CopyAttr, id)
	copyBtn.AppendChild(dom.TextNode("Copy"))
	row.AppendChild(copyBtn)
	section.AppendChild(row)
	return section
}

// ModalNode returns the live modal, or nil.
func (inj *Injector) ModalNode(doc *dom.Document) *html.Node {
	return doc.Query("#" + ModalID)
}

// DismissModal removes the live modal. Backdrop click, the close
// control and the cancel key all funnel here; each removes the node
// unconditionally.
func (inj *Injector) DismissModal(doc *dom.Document) bool {
	modal := doc.Query("#" + ModalID)
	if modal == nil {
		return false
	}
	dom.Detach(modal)
	return true
}

// CopyButton returns the modal's copy control, or nil.
func (inj *Injector) CopyButton(doc *dom.Document) *html.Node {
	modal := doc.Query("#" + ModalID)
	if modal == nil {
		return nil
	}
	return dom.Query(modal, "."+CopyButtonClass)
}

// SetLabel replaces a control's children with a single text label.
func SetLabel(n *html.Node, label string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(dom.TextNode(label))
}
