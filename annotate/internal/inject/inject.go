// Package inject materialises annotation UI inside the host document:
// badges over grid thumbnails, buy buttons beside the host's purchase
// controls, and the reward modal. All insertions are idempotent —
// containers carry scan markers, the detail button is scoped to one
// item id, and the modal is a system-wide singleton.
//
// Injection never fails loudly. When an insertion point cannot be
// found, the artifact is simply not produced.
package inject

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/buxback/gild/dom"
)

// Marker and UI identifiers. These land in the host page's DOM, so they
// are namespaced with the product prefix.
const (
	// MarkerAttr tags a container as already evaluated in the current
	// navigation epoch.
	MarkerAttr = "data-buxback"

	BadgeClass        = "buxback-badge"
	BadgeWrapperClass = "buxback-badge-wrapper"

	ButtonID           = "buxback-btn"
	ButtonClass        = "buxback-buy-btn"
	ButtonWrapperClass = "buxback-btn-wrapper"
	ButtonItemAttr     = "data-item-id"

	PassButtonClass  = "buxback-gamepass-btn"
	PassButtonIDAttr = "data-pass-id"

	ModalID         = "buxback-modal"
	CopyButtonClass = "buxback-copy-btn"
	CopyAttr        = "data-copy"
)

// Injector builds and places annotation artifacts. One per engine.
type Injector struct {
	sanitizer *bluemonday.Policy
}

// New creates an Injector. Extracted item names pass through a strict
// sanitizer before being re-embedded anywhere.
func New() *Injector {
	return &Injector{sanitizer: bluemonday.StrictPolicy()}
}

// SanitizeName strips any markup from a name scraped off the host page.
func (inj *Injector) SanitizeName(name string) string {
	return strings.TrimSpace(inj.sanitizer.Sanitize(name))
}

// Marked reports whether the container was already evaluated.
func (inj *Injector) Marked(container *html.Node) bool {
	return dom.Attr(container, MarkerAttr) != ""
}

// Mark tags the container as evaluated. The mark lives and dies with
// the node — when the host tears the container down, the mark goes
// with it.
func (inj *Injector) Mark(container *html.Node) {
	dom.SetAttr(container, MarkerAttr, "1")
}

// CleanupDetail removes the detail-scoped button (with its wrapper) and
// any open modal. Returns true when something was actually removed.
func (inj *Injector) CleanupDetail(doc *dom.Document) bool {
	removed := false
	if btn := doc.Query("#" + ButtonID); btn != nil {
		target := btn
		if w := dom.Closest(btn, "."+ButtonWrapperClass); w != nil {
			target = w
		}
		dom.Detach(target)
		removed = true
	}
	if modal := doc.Query("#" + ModalID); modal != nil {
		dom.Detach(modal)
		removed = true
	}
	return removed
}
