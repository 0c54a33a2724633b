package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Benny93/netscope/internal/analysis"
	"github.com/Benny93/netscope/internal/ingestion"
	"github.com/Benny93/netscope/mcp"
)

// MCPCmd starts the MCP server.
type MCPCmd struct {
	File string `arg:"" type:"existingfile" help:"Edge-list file to serve"`
}

// Run executes the mcp command.
func (c *MCPCmd) Run(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	server, err := newMCPServer(ctx, app, c.File)
	if err != nil {
		return err
	}

	// Note: No output to stdout - MCP server uses stdio for JSON-RPC only
	return server.Serve(ctx)
}

// ServeCmd starts the MCP server together with a Prometheus endpoint.
type ServeCmd struct {
	File        string `arg:"" type:"existingfile" help:"Edge-list file to serve"`
	MetricsAddr string `help:"Listen address for /metrics (default from config)"`
	Watch       bool   `short:"w" help:"Reload the graph when the file changes"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	server, err := newMCPServer(ctx, app, c.File)
	if err != nil {
		return err
	}

	addr := c.MetricsAddr
	if addr == "" {
		addr = app.Config.Metrics.Addr
	}
	metricsSrv := newMetricsServer(addr)
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()
	fmt.Fprintf(os.Stderr, "Serving metrics on %s/metrics\n", addr)

	if c.Watch {
		go func() {
			err := app.Loader().WatchFile(ctx, c.File, app.Config.Watch.Debounce,
				func(_ context.Context, res *ingestion.LoadResult) error {
					server.SetGraph(res.Graph, c.File)
					return nil
				})
			if err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()
		fmt.Fprintln(os.Stderr, "File watching enabled")
	}

	fmt.Fprintln(os.Stderr, "Starting MCP server...")
	return server.Serve(ctx)
}

func newMCPServer(ctx context.Context, app *App, path string) (*mcp.Server, error) {
	loaded, err := app.Loader().LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	runner, err := app.Runner()
	if err != nil {
		return nil, err
	}

	cfg := app.Config.Analysis
	server := mcp.NewServer(runner, app.Logger, mcp.Options{
		Version: Version,
		Analysis: analysis.Options{
			Weighted:      cfg.Weighted,
			HistogramBins: cfg.HistogramBins,
			GrowthSamples: cfg.GrowthSamples,
		},
		Timeout:     cfg.Timeout,
		Parallelism: cfg.Parallelism,
	})
	server.SetGraph(loaded.Graph, path)
	return server, nil
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
