// Package kit holds the transport-agnostic endpoint plumbing shared by
// the HTTP and MCP surfaces.
package kit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Endpoint is one request/response operation. Transports decode into a
// typed request, call the endpoint, and encode the response.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares. The first middleware is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Recover converts endpoint panics into errors so one bad tool call
// cannot take the whole transport down.
func Recover(logger *slog.Logger) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (resp any, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("kit: endpoint panic", "panic", r)
					err = fmt.Errorf("kit: endpoint panic: %v", r)
				}
			}()
			return next(ctx, req)
		}
	}
}

// Instrument logs one line per endpoint call with duration and outcome.
func Instrument(logger *slog.Logger, name string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				logger.Warn("kit: endpoint failed",
					"endpoint", name, "duration", time.Since(start), "error", err)
				return resp, err
			}
			logger.Debug("kit: endpoint ok",
				"endpoint", name, "duration", time.Since(start))
			return resp, nil
		}
	}
}
