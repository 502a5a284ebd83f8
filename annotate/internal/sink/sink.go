// Package sink defines output backends for annotation events.
package sink

import (
	"context"

	"github.com/buxback/gild/item"
)

// Sink is the output interface. Implementations deliver annotation
// events to different backends (stdout, webhook, in-process callback).
type Sink interface {
	Send(ctx context.Context, ev item.Event) error
	Close() error
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
