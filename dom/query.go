package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Query and QueryAll support the selector subset the annotation
// heuristics need:
//
//   - tag: "button", "img", "a"
//   - .class: ".store-card" (exact token match)
//   - #id: "#rbx-passes-container"
//   - [attr], [attr=val], [attr*=val] (substring), combinable with a tag
//   - descendant combinator: "#store .store-card"
//   - selector lists: "h1, [class*=ItemName]"
//
// Anything fancier is deliberately unsupported; host-page heuristics that
// need more walk the tree by hand.

// Query returns the first match in document order, or nil.
func Query(root *html.Node, selector string) *html.Node {
	matches := QueryAll(root, selector)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// QueryAll returns all matches in document order. Matches from a selector
// list are deduplicated.
func QueryAll(root *html.Node, selector string) []*html.Node {
	var results []*html.Node
	seen := make(map[*html.Node]bool)
	for _, chain := range parseSelectorList(selector) {
		for _, n := range matchChain(root, chain) {
			if !seen[n] {
				seen[n] = true
				results = append(results, n)
			}
		}
	}
	if len(results) > 1 {
		sortDocumentOrder(root, results)
	}
	return results
}

// matchChain applies descendant-combinator parts left to right.
func matchChain(root *html.Node, chain []simpleSelector) []*html.Node {
	if len(chain) == 0 {
		return nil
	}
	matches := matchSimple(root, chain[0])
	for i := 1; i < len(chain); i++ {
		var next []*html.Node
		for _, parent := range matches {
			next = append(next, matchSimple(parent, chain[i])...)
		}
		matches = next
	}
	return matches
}

// matchSimple finds all descendants of root (exclusive) matching one
// simple selector.
func matchSimple(root *html.Node, s simpleSelector) []*html.Node {
	var results []*html.Node
	Walk(root, func(n *html.Node) bool {
		if n != root && matchesSelector(n, s) {
			results = append(results, n)
		}
		return true
	})
	return results
}

type simpleSelector struct {
	tag       string
	id        string
	class     string
	attrKey   string
	attrVal   string
	substring bool // [attr*=val] instead of [attr=val]
}

// parseSelectorList splits "a, b c" into chains of simple selectors.
func parseSelectorList(selector string) [][]simpleSelector {
	var list [][]simpleSelector
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var chain []simpleSelector
		for _, field := range strings.Fields(part) {
			chain = append(chain, parseSimpleSelector(field))
		}
		if len(chain) > 0 {
			list = append(list, chain)
		}
	}
	return list
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr*=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eq := strings.Index(attrPart, "*="); eq >= 0 {
			s.attrKey = attrPart[:eq]
			s.attrVal = strings.Trim(attrPart[eq+2:], `"'`)
			s.substring = true
		} else if eq := strings.IndexByte(attrPart, '='); eq >= 0 {
			s.attrKey = attrPart[:eq]
			s.attrVal = strings.Trim(attrPart[eq+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	if sel == "*" {
		sel = ""
	}
	s.tag = sel
	return s
}

func matchesSelector(n *html.Node, s simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && Attr(n, "id") != s.id {
		return false
	}
	if s.class != "" {
		found := false
		for _, c := range strings.Fields(Attr(n, "class")) {
			if c == s.class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.attrKey != "" {
		if !HasAttr(n, s.attrKey) {
			return false
		}
		val := Attr(n, s.attrKey)
		if s.substring {
			if !strings.Contains(strings.ToLower(val), strings.ToLower(s.attrVal)) {
				return false
			}
		} else if s.attrVal != "" && val != s.attrVal {
			return false
		}
	}
	return true
}

// sortDocumentOrder reorders nodes in place to pre-order position.
// Only needed after merging selector-list results.
func sortDocumentOrder(root *html.Node, nodes []*html.Node) {
	pos := make(map[*html.Node]int, len(nodes))
	want := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		want[n] = true
	}
	i := 0
	Walk(root, func(n *html.Node) bool {
		if want[n] {
			pos[n] = i
			i++
		}
		return i < len(nodes)
	})
	for a := 0; a < len(nodes); a++ {
		for b := a + 1; b < len(nodes); b++ {
			if pos[nodes[b]] < pos[nodes[a]] {
				nodes[a], nodes[b] = nodes[b], nodes[a]
			}
		}
	}
}
