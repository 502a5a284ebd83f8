// Command gild annotates Roblox storefront pages with cashback UI.
//
// Usage:
//
//	gild -file page.html -url https://www.roblox.com/catalog/123/x   # annotate a saved snapshot
//	gild -live https://www.roblox.com/catalog                        # live browser session
//	gild -mcp                                                        # MCP server on stdio
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/buxback/gild/annotate"
	"github.com/buxback/gild/pagewatch"
	"github.com/buxback/gild/ratesource"
)

func main() {
	configPath := flag.String("config", "", "path to gild.yaml config file")
	filePath := flag.String("file", "", "annotate a saved HTML snapshot and exit")
	fileURL := flag.String("url", "", "page URL the snapshot was captured from")
	liveURL := flag.String("live", "", "run a live browser session on a URL")
	mcpMode := flag.Bool("mcp", false, "serve annotation tools over MCP stdio")
	ratesAddr := flag.String("rates-addr", "", "serve the rates HTTP endpoint on this address")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *filePath, *fileURL, *liveURL, *mcpMode, *ratesAddr); err != nil {
		logger.Error("gild: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, filePath, fileURL, liveURL string, mcpMode bool, ratesAddr string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	rates, err := ratesource.New(cfg.Rates, logger)
	if err != nil {
		return fmt.Errorf("rates: %w", err)
	}
	defer rates.Close()

	switch {
	case filePath != "":
		return runFile(ctx, logger, cfg, rates, filePath, fileURL)
	case mcpMode:
		return runMCP(ctx, logger, cfg, rates, ratesAddr)
	case liveURL != "":
		return runLive(ctx, logger, cfg, rates, liveURL, ratesAddr)
	}

	fmt.Fprintln(os.Stderr, "usage: gild -file <page.html> -url <url> | -live <url> | -mcp")
	os.Exit(1)
	return nil
}

func loadConfig(path string) (*annotate.Config, error) {
	if path == "" {
		return annotate.DefaultConfig(), nil
	}
	cfg, err := annotate.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// runFile annotates a single snapshot and prints the report as JSON.
func runFile(ctx context.Context, logger *slog.Logger, cfg *annotate.Config, rates *ratesource.Source, path, pageURL string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	eng := annotate.New(cfg, rates, logger)
	defer eng.Close()

	report, err := eng.AnnotateSnapshot(ctx, pageURL, string(src))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runMCP(ctx context.Context, logger *slog.Logger, cfg *annotate.Config, rates *ratesource.Source, ratesAddr string) error {
	go rates.Run(ctx)
	serveRates(ctx, logger, rates, ratesAddr)

	eng := annotate.New(cfg, rates, logger)
	defer eng.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "gild", Version: "0.1.0"}, nil)
	eng.RegisterMCP(srv)

	logger.Info("gild: mcp server on stdio")
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func runLive(ctx context.Context, logger *slog.Logger, cfg *annotate.Config, rates *ratesource.Source, url, ratesAddr string) error {
	go rates.Run(ctx)
	serveRates(ctx, logger, rates, ratesAddr)

	sinks, err := annotate.BuildSinks(cfg.Sinks, logger)
	if err != nil {
		return err
	}
	if len(sinks) == 0 {
		sinks = append(sinks, annotate.NewStdoutSink(os.Stdout))
	}

	w := pagewatch.New(pagewatch.Config{URL: url}, logger)
	eng := annotate.New(cfg, rates, logger, append(sinks, w.Applier())...)
	defer eng.Close()
	w.Attach(eng)

	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Close()

	errCh := make(chan error, 2)
	go func() { errCh <- eng.Run(ctx) }()
	go func() { errCh <- w.Run(ctx) }()

	err = <-errCh
	if err == context.Canceled {
		return nil
	}
	return err
}

// serveRates exposes the rate table over HTTP when an address is set.
func serveRates(ctx context.Context, logger *slog.Logger, rates *ratesource.Source, addr string) {
	if addr == "" {
		return
	}
	srv := &http.Server{Addr: addr, Handler: rates.Router()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	go func() {
		logger.Info("gild: rates endpoint", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("gild: rates endpoint failed", "error", err)
		}
	}()
}
