package annotate

import (
	"context"
	"strconv"
	"strings"

	"github.com/buxback/gild/annotate/internal/classify"
	"github.com/buxback/gild/annotate/internal/price"
	"github.com/buxback/gild/annotate/internal/reward"
	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

// Thumbnails narrower than this are icons and avatars, not item images.
const minThumbnailWidth = 50

// scanGrid annotates item cards on grid pages. One pass over every
// candidate thumbnail; containers are marked on first evaluation and
// never revisited, so repeated scans of the same snapshot are no-ops.
func (e *Engine) scanGrid(ctx context.Context) {
	sel := strings.Join(e.cfg.ThumbnailSelectors, ", ")
	table := e.table()

	for _, img := range e.doc.QueryAll(sel) {
		if w, err := strconv.Atoi(dom.Attr(img, "width")); err == nil && w < minThumbnailWidth {
			continue
		}

		container, cat, ok := classify.GridContainer(img)
		if !ok {
			continue
		}
		if e.inj.Marked(container) {
			continue
		}
		// Marked before the verdict: a container that fails the checks
		// below has been evaluated and stays skipped.
		e.inj.Mark(container)

		if reward.Excluded(container) {
			e.stats.excluded.Add(1)
			continue
		}

		p := price.FromContainer(container)
		if p == nil {
			continue
		}
		amt := reward.Amount(*p, table.Rate(cat))
		if amt < 1 {
			continue
		}

		wrapper, parent := e.inj.Badge(container, img, amt)
		if wrapper == nil {
			continue
		}

		it := item.Item{
			ID:       classify.GridItemID(container),
			Category: cat,
			Price:    p,
			Reward:   item.IntPtr(amt),
		}
		e.stats.badges.Add(1)
		e.emitArtifact(ctx, item.EventAnnotated, item.ArtifactBadge, &it, wrapper, parent)
	}
}
