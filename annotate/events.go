package annotate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
)

// emit sends one event to the sinks and, in one-shot mode, to the
// capture buffer. Sink errors are logged, never propagated: the page
// annotation already happened, losing an observer is not a reason to
// undo it.
func (e *Engine) emit(ctx context.Context, kind item.EventKind, it *item.Item, art *item.Artifact) {
	ev := item.Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		PageURL:   e.pageURL,
		Seq:       e.seq.Add(1),
		Timestamp: time.Now().UnixMilli(),
		Item:      it,
		Artifact:  art,
	}
	if e.capture != nil {
		*e.capture = append(*e.capture, ev)
	}
	if err := e.out.Send(ctx, ev); err != nil {
		e.logger.Error("annotate: sink send", "kind", kind, "error", err)
	}
}

// emitArtifact serialises an injected node and emits it addressed by
// its parent's XPath, so a live-page consumer can replay the insertion.
func (e *Engine) emitArtifact(ctx context.Context, kind item.EventKind, ak item.ArtifactKind, it *item.Item, node, parent *html.Node) {
	art := &item.Artifact{Kind: ak}
	if it != nil {
		art.ItemID = it.ID
	}
	if parent != nil {
		art.ParentXPath = dom.XPath(parent)
	}
	if node != nil {
		src, err := dom.RenderNode(node)
		if err != nil {
			e.logger.Warn("annotate: render artifact", "kind", ak, "error", err)
		} else {
			art.HTML = src
			if e.dig != nil {
				art.Digest = e.dig.render(src)
			}
		}
	}
	e.emit(ctx, kind, it, art)
}
