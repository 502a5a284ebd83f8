package sink

import (
	"context"

	"github.com/buxback/gild/item"
)

// EventFunc is called for each event (in-process, zero serialisation).
type EventFunc func(ctx context.Context, ev item.Event) error

// Callback delivers events via Go function calls. This is the local
// path — when the live watcher and the engine share a binary, events
// are delivered as in-memory calls with zero serialisation overhead.
type Callback struct {
	onEvent EventFunc
}

// NewCallback creates a Callback sink. A nil handler discards events.
func NewCallback(onEvent EventFunc) *Callback {
	return &Callback{onEvent: onEvent}
}

func (c *Callback) Send(ctx context.Context, ev item.Event) error {
	if c.onEvent != nil {
		return c.onEvent(ctx, ev)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
