package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// XPath computes an absolute XPath for an element, suitable for
// re-locating it on the live page (document.evaluate). Elements are
// addressed by tag with a 1-based sibling index whenever the tag is not
// unique among its siblings.
func XPath(n *html.Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.DocumentNode {
			break
		}
		if cur.Type != html.ElementNode {
			continue
		}
		name := strings.ToLower(cur.Data)
		switch name {
		case "html":
			parts = append(parts, "html")
			continue
		}
		idx, total := siblingIndex(cur, name)
		if total > 1 {
			parts = append(parts, fmt.Sprintf("%s[%d]", name, idx))
		} else {
			parts = append(parts, name)
		}
	}
	// Reverse into root-first order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// siblingIndex returns the 1-based index of n among same-tag element
// siblings, and the total count of that tag.
func siblingIndex(n *html.Node, name string) (idx, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	for c := n.Parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || strings.ToLower(c.Data) != name {
			continue
		}
		total++
		if c == n {
			idx = total
		}
	}
	if idx == 0 {
		idx = 1
	}
	if total == 0 {
		total = 1
	}
	return idx, total
}
