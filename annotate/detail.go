package annotate

import (
	"context"
	"net/url"
	"time"

	"github.com/buxback/gild/annotate/internal/classify"
	"github.com/buxback/gild/annotate/internal/price"
	"github.com/buxback/gild/annotate/internal/reward"
	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

const itemNameSelector = "h1, [class*=item-name], [class*=ItemName]"

// routeChanged re-derives the detail session for the current pageURL.
// Leaving a detail route removes the injected button and modal so
// stale UI never survives into the next page's markup.
func (e *Engine) routeChanged(ctx context.Context) {
	e.stopRetries()

	u, err := url.Parse(e.pageURL)
	if err != nil {
		e.logger.Warn("annotate: bad page url", "url", e.pageURL, "error", err)
		e.detailItemID = ""
		return
	}

	id, _, ok := classify.DetailPage(u)
	if !ok {
		e.detailItemID = ""
		if e.doc != nil && e.inj.CleanupDetail(e.doc) {
			e.emit(ctx, item.EventCleanup, nil, nil)
		}
		return
	}

	e.detailItemID = id
	e.tryDetailButton(ctx)
	e.scheduleRetries(id)
}

// tryDetailButton inserts the detail purchase button for the current
// route, once. It is safe to call repeatedly: an existing button for
// the same item is left alone, a button for a different item is torn
// down first.
func (e *Engine) tryDetailButton(ctx context.Context) {
	if e.doc == nil || e.detailItemID == "" {
		return
	}

	existing := e.inj.ExistingButtonItem(e.doc)
	if existing == e.detailItemID {
		return
	}
	if existing != "" {
		if e.inj.CleanupDetail(e.doc) {
			e.emit(ctx, item.EventCleanup, nil, nil)
		}
	}

	if e.inj.Owned(e.doc) {
		if e.inj.CleanupDetail(e.doc) {
			e.emit(ctx, item.EventCleanup, nil, nil)
		}
		return
	}

	it := e.detailItem()
	wrapper, parent := e.inj.DetailButton(e.doc, it)
	if wrapper == nil {
		e.logger.Debug("annotate: no button anchor yet", "item", it.ID)
		return
	}
	e.stats.buttons.Add(1)
	e.emitArtifact(ctx, item.EventAnnotated, item.ArtifactButton, &it, wrapper, parent)
}

// detailItem builds the Item for the current detail route from the
// current snapshot.
func (e *Engine) detailItem() item.Item {
	it := item.Item{ID: e.detailItemID, Category: item.CategoryCatalog}
	u, err := url.Parse(e.pageURL)
	if err != nil {
		return it
	}
	it.Category = classify.Detail(e.doc, u)
	if n := e.doc.Query(itemNameSelector); n != nil {
		it.Name = e.inj.SanitizeName(dom.Text(n))
	}
	it.Price = price.FromDetail(e.doc)
	reward.Evaluate(&it, e.table(), nil)
	return it
}

// scheduleRetries arms the insertion retry ladder for a freshly
// entered detail route. Delays are measured from route entry; each
// timer posts a guarded retry signal so retries for abandoned routes
// are dropped on delivery.
func (e *Engine) scheduleRetries(itemID string) {
	for _, d := range e.cfg.RetrySchedule {
		t := time.AfterFunc(d, func() {
			e.Post(Signal{Kind: signalRetry, ItemID: itemID})
		})
		e.retryTimers = append(e.retryTimers, t)
	}
}

func (e *Engine) stopRetries() {
	for _, t := range e.retryTimers {
		t.Stop()
	}
	e.retryTimers = e.retryTimers[:0]
}
