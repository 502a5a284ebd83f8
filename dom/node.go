package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr returns the value of an attribute on a node, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the node carries the attribute at all.
func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// ClassContains reports whether any class token of n contains sub
// (case-insensitive). This mirrors the `[class*="..."]` tests the host
// page heuristics rely on.
func ClassContains(n *html.Node, sub string) bool {
	sub = strings.ToLower(sub)
	for _, tok := range strings.Fields(Attr(n, "class")) {
		if strings.Contains(strings.ToLower(tok), sub) {
			return true
		}
	}
	return false
}

// Text collects the concatenated text content of a subtree, skipping
// script and style nodes. Whitespace is preserved within text nodes;
// callers trim as needed.
func Text(n *html.Node) string {
	var sb strings.Builder
	collectText(n, &sb)
	return sb.String()
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
		return
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

// ElementChildCount counts direct element children.
func ElementChildCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}

// Ancestors walks up from n (inclusive) at most depth steps, calling
// visit for each element until it returns false or the tree ends.
func Ancestors(n *html.Node, depth int, visit func(*html.Node) bool) {
	for i := 0; i < depth && n != nil; i++ {
		if n.Type == html.ElementNode && !visit(n) {
			return
		}
		n = n.Parent
	}
}

// Closest returns the nearest ancestor of n (inclusive) matching the
// selector, or nil. Depth is unbounded — use Ancestors for bounded walks.
func Closest(n *html.Node, selector string) *html.Node {
	matchers := parseSelectorList(selector)
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, m := range matchers {
			// Only the last simple part is meaningful for a closest()
			// style match.
			if matchesSelector(n, m[len(m)-1]) {
				return n
			}
		}
	}
	return nil
}

// inlineTags is the set of tags treated as inline for positioning
// purposes. Without computed styles this is an approximation; the host
// page's thumbnail wrappers are plain spans and anchors in practice.
var inlineTags = map[atom.Atom]bool{
	atom.A: true, atom.Span: true, atom.B: true, atom.I: true,
	atom.Em: true, atom.Strong: true, atom.Small: true, atom.Label: true,
	atom.Img: true, atom.Picture: true, atom.Code: true, atom.Sup: true,
	atom.Sub: true,
}

// IsInline reports whether the element renders inline: an inline-level
// tag, unless an inline style declares a block display, and vice versa.
func IsInline(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	style := strings.ToLower(Attr(n, "style"))
	if strings.Contains(style, "display:inline") || strings.Contains(style, "display: inline") {
		return true
	}
	if strings.Contains(style, "display:block") || strings.Contains(style, "display: block") {
		return false
	}
	return inlineTags[n.DataAtom]
}

// Element creates a detached element node with optional key/value
// attribute pairs.
func Element(tag string, attrs ...string) *html.Node {
	a := atom.Lookup([]byte(tag))
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: tag}
	for i := 0; i+1 < len(attrs); i += 2 {
		SetAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

// TextNode creates a detached text node.
func TextNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// InsertAfter inserts n as the next sibling of ref. ref must be attached.
func InsertAfter(ref, n *html.Node) {
	if ref.Parent == nil {
		return
	}
	if ref.NextSibling != nil {
		ref.Parent.InsertBefore(n, ref.NextSibling)
	} else {
		ref.Parent.AppendChild(n)
	}
}

// Detach removes n from its parent. A no-op for already-detached nodes.
func Detach(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
