package pagewatch

import (
	"context"
	"fmt"
	"time"

	"github.com/buxback/gild/annotate"
	"github.com/buxback/gild/item"
)

// Applier returns a sink that replays engine artifacts on the live
// page. Insertions address the artifact's parent by XPath; removals go
// by the engine's fixed DOM identifiers.
func (w *Watcher) Applier() annotate.Sink {
	return annotate.NewCallbackSink(w.applyEvent)
}

func (w *Watcher) applyEvent(ctx context.Context, ev item.Event) error {
	w.mu.RLock()
	tab := w.tab
	w.mu.RUnlock()
	if tab == nil {
		// No tab during a recycle window. The next snapshot re-derives
		// missing artifacts, so dropping is safe.
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	switch ev.Kind {
	case item.EventAnnotated, item.EventModalOpened:
		if ev.Artifact == nil || ev.Artifact.HTML == "" || ev.Artifact.ParentXPath == "" {
			return nil
		}
		if err := tab.InsertHTML(ctx, ev.Artifact.ParentXPath, ev.Artifact.HTML); err != nil {
			return fmt.Errorf("pagewatch: apply %s: %w", ev.Artifact.Kind, err)
		}
	case item.EventCleanup:
		if err := tab.RemoveByID(ctx, annotate.ButtonID, annotate.ButtonWrapperClass); err != nil {
			return err
		}
		return tab.RemoveByID(ctx, annotate.ModalID, "")
	case item.EventModalDismissed:
		return tab.RemoveByID(ctx, annotate.ModalID, "")
	}
	return nil
}
