package annotate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/buxback/gild/annotate/internal/sink"
	"github.com/buxback/gild/item"
)

// Sink is the output interface for engine events.
type Sink = sink.Sink

// EventFunc is called for each event by a callback sink.
type EventFunc = sink.EventFunc

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process callback sink. Zero
// serialisation, for embedding the engine in another program.
func NewCallbackSink(onEvent func(ctx context.Context, ev item.Event) error) Sink {
	return sink.NewCallback(onEvent)
}

// BuildSinks constructs sinks from configuration.
func BuildSinks(cfgs []SinkConfig, logger *slog.Logger) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfgs))
	for _, sc := range cfgs {
		switch sc.Type {
		case "stdout", "":
			sinks = append(sinks, NewStdoutSink(os.Stdout))
		case "webhook":
			if sc.URL == "" {
				return nil, fmt.Errorf("annotate: webhook sink needs url")
			}
			sinks = append(sinks, NewWebhookSink(sc.URL, logger))
		default:
			return nil, fmt.Errorf("annotate: unknown sink type %q", sc.Type)
		}
	}
	return sinks, nil
}
