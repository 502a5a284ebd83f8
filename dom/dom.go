// Package dom is the tree layer the annotation engine works on. It wraps
// golang.org/x/net/html with the small set of operations the heuristics
// need: a CSS selector subset, ancestor walks, visible-text collection,
// and XPath addressing for applying artifacts to a live page.
//
// dom holds no engine state. A Document is one parsed snapshot of a host
// page; the engine mutates it freely and re-renders it.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is one parsed HTML snapshot.
type Document struct {
	Root *html.Node
}

// Parse reads an HTML document. The x/net parser never fails on malformed
// markup — it repairs, which is exactly what we want for host pages we do
// not control.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{Root: root}, nil
}

// ParseString parses an in-memory HTML document.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Render serialises the document back to HTML.
func (d *Document) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.Root); err != nil {
		return "", fmt.Errorf("dom: render: %w", err)
	}
	return buf.String(), nil
}

// Body returns the document's body element, or the root when the parser
// produced no body (fragment input).
func (d *Document) Body() *html.Node {
	if n := FindTag(d.Root, atom.Body); n != nil {
		return n
	}
	return d.Root
}

// Head returns the document's head element, or nil.
func (d *Document) Head() *html.Node {
	return FindTag(d.Root, atom.Head)
}

// Title returns the text of the document's <title>, trimmed.
func (d *Document) Title() string {
	t := FindTag(d.Root, atom.Title)
	if t == nil {
		return ""
	}
	return strings.TrimSpace(Text(t))
}

// Query returns the first node under d matching the selector list.
func (d *Document) Query(selector string) *html.Node {
	return Query(d.Root, selector)
}

// QueryAll returns every node under d matching the selector list, in
// document order.
func (d *Document) QueryAll(selector string) []*html.Node {
	return QueryAll(d.Root, selector)
}

// RenderNode serialises a single node and its subtree to HTML.
func RenderNode(n *html.Node) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return "", fmt.Errorf("dom: render node: %w", err)
	}
	return sb.String(), nil
}

// FindTag returns the first element with the given tag, depth-first.
func FindTag(root *html.Node, tag atom.Atom) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

// Walk visits nodes pre-order, document order. The visitor returns false
// to stop the walk.
func Walk(root *html.Node, visit func(*html.Node) bool) {
	if root == nil {
		return
	}
	stopped := false
	walk(root, visit, &stopped)
}

func walk(n *html.Node, visit func(*html.Node) bool, stopped *bool) {
	if !visit(n) {
		*stopped = true
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit, stopped)
		if *stopped {
			return
		}
	}
}
