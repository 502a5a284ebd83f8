package annotate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/buxback/gild/deeplink"
	"github.com/buxback/gild/item"
	"github.com/buxback/gild/kit"
)

// RegisterMCP registers annotation tools on an MCP server.
func (e *Engine) RegisterMCP(srv *mcp.Server) {
	e.registerAnnotateTool(srv)
	e.registerRatesTool(srv)
	e.registerDeeplinkTool(srv)
	e.registerStatsTool(srv)
}

// wrap applies the shared endpoint middleware stack: panic recovery
// outermost, then per-call instrumentation.
func (e *Engine) wrap(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(
		kit.Recover(e.logger),
		kit.Instrument(e.logger, name),
	)(ep)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- annotate ---

type annotateRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

func (e *Engine) registerAnnotateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gild_annotate",
		Description: "Annotate an HTML snapshot of a catalog or experience page. Returns the rewritten HTML and one event per injected artifact.",
		InputSchema: inputSchema(map[string]any{
			"url":  map[string]any{"type": "string", "description": "Page URL the snapshot was captured from"},
			"html": map[string]any{"type": "string", "description": "Raw HTML of the page"},
		}, []string{"url", "html"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*annotateRequest)
		return e.AnnotateSnapshot(ctx, r.URL, r.HTML)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r annotateRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.HTML == "" {
			return nil, fmt.Errorf("html is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, e.wrap(tool.Name, endpoint), decode)
}

// --- rates ---

type ratesRequest struct{}

func (e *Engine) registerRatesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gild_rates",
		Description: "Return the current cashback rate table and its provenance.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return e.rates.Current(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &ratesRequest{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, e.wrap(tool.Name, endpoint), decode)
}

// --- deeplink ---

type deeplinkRequest struct {
	ItemID   string `json:"item_id"`
	Category string `json:"category"`
}

type deeplinkResponse struct {
	Link    string `json:"link"`
	GameURL string `json:"game_url"`
}

func (e *Engine) registerDeeplinkTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gild_deeplink",
		Description: "Build the purchase deep link for an item id and category.",
		InputSchema: inputSchema(map[string]any{
			"item_id":  map[string]any{"type": "string", "description": "Numeric item id"},
			"category": map[string]any{"type": "string", "enum": []any{"catalog", "classic", "gamepass", "bundle"}, "description": "Item category (default catalog)"},
		}, []string{"item_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*deeplinkRequest)
		cat := item.Category(r.Category)
		if cat == "" {
			cat = item.CategoryCatalog
		}
		return &deeplinkResponse{
			Link:    deeplink.Build(e.cfg.PlaceID, r.ItemID, cat),
			GameURL: deeplink.GameURL,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r deeplinkRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.ItemID == "" {
			return nil, fmt.Errorf("item_id is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, e.wrap(tool.Name, endpoint), decode)
}

// --- stats ---

type statsRequest struct{}

func (e *Engine) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "gild_stats",
		Description: "Return engine counters: scans, badges, buttons, modals, exclusions, drops.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return e.Stats(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &statsRequest{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, e.wrap(tool.Name, endpoint), decode)
}
