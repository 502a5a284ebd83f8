package annotate

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/buxback/gild/annotate/internal/classify"
	"github.com/buxback/gild/annotate/internal/inject"
	"github.com/buxback/gild/annotate/internal/price"
	"github.com/buxback/gild/annotate/internal/reward"
	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

const (
	passControlSelector = ".PurchaseButton, [class*=PurchaseButton], button[class*=purchase]"
	passNameSelector    = ".item-name, [class*=item-name], [class*=ItemName], h3, h4"
)

// scanPasses annotates game pass cards on experience pages. Processed
// pass ids are remembered for the session, not per snapshot: pass ids
// are globally unique, so a card re-rendered by hydration does not get
// a second button even after its old marker node is gone.
func (e *Engine) scanPasses(ctx context.Context) {
	if !onGamePage(e.pageURL) {
		return
	}
	sel := strings.Join(e.cfg.PassContainerSelectors, ", ")
	table := e.table()

	for _, card := range e.doc.QueryAll(sel) {
		if dom.Query(card, "."+inject.PassButtonClass) != nil {
			continue
		}

		control := dom.Query(card, passControlSelector)
		id := passID(card, control)
		if id == "" {
			continue
		}
		if _, done := e.processedPasses[id]; done {
			continue
		}

		it := item.Item{ID: id, Category: item.CategoryGamepass}
		if n := dom.Query(card, passNameSelector); n != nil {
			it.Name = e.inj.SanitizeName(dom.Text(n))
		}
		it.Price = price.FromCard(card)
		reward.Evaluate(&it, table, nil)

		btn, parent := e.inj.PassButton(card, control, it)
		if btn == nil {
			continue
		}
		e.processedPasses[id] = struct{}{}
		e.stats.buttons.Add(1)
		e.emitArtifact(ctx, item.EventAnnotated, item.ArtifactButton, &it, btn, parent)
	}
}

func passID(card, control *html.Node) string {
	if control != nil {
		if id := classify.PassID(control); id != "" {
			return id
		}
	}
	return classify.LinkPassID(card)
}

func onGamePage(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, "/games/")
}
