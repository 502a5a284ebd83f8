package annotate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/buxback/gild/annotate/internal/inject"
	"github.com/buxback/gild/annotate/internal/price"
	"github.com/buxback/gild/annotate/internal/reward"
	"github.com/buxback/gild/deeplink"
	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

// openModal shows the purchase modal for an item. An empty id or the
// current detail item id opens the detail modal with a deep link; any
// other id is looked up among annotated pass cards. Only one modal
// exists at a time, the injector replaces any previous one.
func (e *Engine) openModal(ctx context.Context, itemID string) {
	if e.doc == nil {
		return
	}

	var it item.Item
	link := ""
	rate := 0.0
	switch {
	case itemID == "" || itemID == e.detailItemID:
		if e.detailItemID == "" {
			return
		}
		it = e.detailItem()
		link = deeplink.Build(e.cfg.PlaceID, it.ID, it.Category)
	default:
		ok := false
		it, ok = e.passItem(itemID)
		if !ok {
			e.logger.Debug("annotate: modal for unknown pass", "item", itemID)
			return
		}
		// The percentage is only shown on the pass-listing surface;
		// detail-page modals carry the flat amount alone.
		rate = e.table().Rate(it.Category)
	}

	node := e.inj.Modal(e.doc, it, link, rate)
	if node == nil {
		return
	}
	e.stats.modals.Add(1)
	e.emitArtifact(ctx, item.EventModalOpened, item.ArtifactModal, &it, node, node.Parent)
}

// passItem rebuilds the Item for an annotated pass button's card.
func (e *Engine) passItem(passID string) (item.Item, bool) {
	btn := e.doc.Query(fmt.Sprintf("button[%s=%s]", inject.PassButtonIDAttr, passID))
	if btn == nil {
		return item.Item{}, false
	}
	it := item.Item{ID: passID, Category: item.CategoryGamepass}
	card := dom.Closest(btn, strings.Join(e.cfg.PassContainerSelectors, ", "))
	if card != nil {
		if n := dom.Query(card, passNameSelector); n != nil {
			it.Name = e.inj.SanitizeName(dom.Text(n))
		}
		it.Price = price.FromCard(card)
	}
	reward.Evaluate(&it, e.table(), nil)
	return it, true
}

func (e *Engine) dismissModal(ctx context.Context) {
	if e.doc == nil {
		return
	}
	if e.inj.DismissModal(e.doc) {
		e.emit(ctx, item.EventModalDismissed, nil, nil)
	}
}

// handleCopy writes the modal's item id to the clipboard and flips the
// button label, reverting after the configured delay. The token guards
// the revert against a newer copy click re-arming the timer.
func (e *Engine) handleCopy(ctx context.Context) {
	if e.doc == nil {
		return
	}
	btn := e.inj.CopyButton(e.doc)
	if btn == nil {
		return
	}
	id := dom.Attr(btn, inject.CopyAttr)
	if e.clipboard != nil {
		if err := e.clipboard(id); err != nil {
			e.logger.Warn("annotate: clipboard write failed", "error", err)
			return
		}
	}
	inject.SetLabel(btn, "Copied!")
	e.copyToken++
	tok := e.copyToken
	if e.copyTimer != nil {
		e.copyTimer.Stop()
	}
	e.copyTimer = time.AfterFunc(e.cfg.CopyRevert, func() {
		e.Post(Signal{Kind: signalCopyRevert, token: tok})
	})
	e.emit(ctx, item.EventCopied, &item.Item{ID: id}, nil)
}

func (e *Engine) handleCopyRevert(token uint64) {
	if token != e.copyToken || e.doc == nil {
		return
	}
	btn := e.inj.CopyButton(e.doc)
	if btn == nil {
		return
	}
	if strings.TrimSpace(dom.Text(btn)) == "Copied!" {
		inject.SetLabel(btn, "Copy")
	}
}
