package inject

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

// Badge overlays a reward badge on a grid item. The badge anchors to the
// nearest block-level ancestor of the thumbnail; that ancestor gets a
// relative positioning context only when it has none of its own.
//
// Returns the created wrapper and its parent, or (nil, nil) when the
// container already carries a badge or no anchor exists.
func (inj *Injector) Badge(container, img *html.Node, amount int) (wrapper, parent *html.Node) {
	if dom.Query(container, "."+BadgeClass) != nil {
		return nil, nil
	}

	target := img.Parent
	for target != nil && dom.IsInline(target) {
		target = target.Parent
	}
	if target == nil {
		return nil, nil
	}

	ensurePositioned(target)

	wrapper = dom.Element("div", "class", BadgeWrapperClass)
	badge := dom.Element("div", "class", BadgeClass)
	amountSpan := dom.Element("span")
	amountSpan.AppendChild(dom.TextNode("+" + item.FormatAmount(amount)))
	badge.AppendChild(amountSpan)
	badge.AppendChild(dom.TextNode(" back"))
	wrapper.AppendChild(badge)

	target.AppendChild(wrapper)
	return wrapper, target
}

// ensurePositioned adds position:relative when the element declares no
// positioning of its own. An existing non-static position is never
// overridden.
func ensurePositioned(n *html.Node) {
	style := dom.Attr(n, "style")
	if strings.Contains(strings.ToLower(style), "position:") ||
		strings.Contains(strings.ToLower(style), "position :") {
		return
	}
	if style != "" && !strings.HasSuffix(strings.TrimSpace(style), ";") {
		style += "; "
	}
	dom.SetAttr(n, "style", style+"position: relative")
}
