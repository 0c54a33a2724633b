// Package cmd provides CLI command implementations for netscope.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/Benny93/netscope/internal/analysis"
	"github.com/Benny93/netscope/internal/config"
	"github.com/Benny93/netscope/internal/graph"
	"github.com/Benny93/netscope/internal/ingestion"
	"github.com/Benny93/netscope/internal/logging"
	"github.com/Benny93/netscope/internal/render"
	"github.com/Benny93/netscope/internal/report"
	"github.com/Benny93/netscope/internal/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App carries the resolved configuration and shared services into every
// command's Run method.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Out    io.Writer
	In     io.Reader

	// NoCache forces an in-memory cache for this invocation.
	NoCache bool

	store storage.StorageBackend
}

// Store opens the configured cache backend on first use.
func (a *App) Store() (storage.StorageBackend, error) {
	if a.store != nil {
		return a.store, nil
	}
	enabled := a.Config.Cache.Enabled && !a.NoCache
	store, err := storage.Open(filepath.Join(a.Config.Cache.Dir, "badger"), enabled, false)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	a.store = store
	return store, nil
}

// Close releases the cache backend.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// Runner builds a report runner backed by the cache.
func (a *App) Runner() (*report.Runner, error) {
	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	return report.NewRunner(a.Logger, store), nil
}

// Loader builds an edge-list loader.
func (a *App) Loader() *ingestion.Loader {
	return ingestion.NewLoader(a.Logger)
}

// reportOptions merges configuration with per-command flags.
func (a *App) reportOptions(names []string, weighted *bool) (report.Options, error) {
	kinds, err := analysis.ParseKinds(names)
	if err != nil {
		return report.Options{}, err
	}
	cfg := a.Config.Analysis
	opts := report.Options{
		Kinds: kinds,
		Analysis: analysis.Options{
			Weighted:      cfg.Weighted,
			HistogramBins: cfg.HistogramBins,
			GrowthSamples: cfg.GrowthSamples,
		},
		Timeout:     cfg.Timeout,
		Parallelism: cfg.Parallelism,
	}
	if weighted != nil {
		opts.Analysis.Weighted = *weighted
	}
	return opts, nil
}

func (a *App) renderOptions(topK int, charts bool) render.Options {
	if topK <= 0 {
		topK = a.Config.Analysis.TopK
	}
	return render.Options{TopK: topK, Charts: charts}
}

// loadGraph reads an edge list and reports skipped lines on stderr.
func (a *App) loadGraph(ctx context.Context, path string) (*ingestion.LoadResult, error) {
	res, err := a.Loader().LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if n := len(res.Malformed); n > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "Skipped %d malformed line(s) in %s\n", n, path)
		for _, m := range res.Malformed {
			fmt.Fprintf(os.Stderr, "  line %d: %s\n", m.Number, m.Reason)
		}
	}
	return res, nil
}

// AnalyzeCmd runs analyses on one edge-list file.
type AnalyzeCmd struct {
	File       string   `arg:"" type:"existingfile" help:"Edge-list file (node1 node2 weight per line)"`
	Analyses   []string `arg:"" optional:"" help:"Analyses to run (default: all)"`
	Weighted   bool     `help:"Use edge weights as distances and strengths" xor:"weights"`
	Unweighted bool     `help:"Ignore edge weights" xor:"weights"`
	JSON       bool     `help:"Print the report as JSON"`
	Charts     bool     `help:"Draw robustness and growth charts"`
	TopK       int      `short:"k" help:"Entries shown per ranking"`
	Refresh    bool     `help:"Ignore cached results"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	opts, err := app.reportOptions(c.Analyses, weightOverride(c.Weighted, c.Unweighted))
	if err != nil {
		return err
	}
	opts.Refresh = c.Refresh

	loaded, err := app.loadGraph(ctx, c.File)
	if err != nil {
		return err
	}
	runner, err := app.Runner()
	if err != nil {
		return err
	}

	rep, err := runner.Run(ctx, loaded.Graph, c.File, opts)
	if err != nil {
		return fmt.Errorf("running analyses: %w", err)
	}
	return printReport(app, rep, c.JSON, app.renderOptions(c.TopK, c.Charts))
}

func printReport(app *App, rep *report.Report, asJSON bool, opts render.Options) error {
	if asJSON {
		enc := json.NewEncoder(app.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	fmt.Fprintln(app.Out, render.Report(rep, opts))
	if rep.Failed() {
		color.New(color.FgYellow).Fprintf(app.Out, "%d analysis(es) failed\n", len(rep.Errors))
	}
	return nil
}

// ReportCmd analyzes a file or every edge list under a directory.
type ReportCmd struct {
	Path       string   `arg:"" optional:"" default:"." help:"Edge-list file or directory"`
	Analyses   []string `short:"a" help:"Analyses to run (default: all)"`
	Weighted   bool     `help:"Use edge weights as distances and strengths" xor:"weights"`
	Unweighted bool     `help:"Ignore edge weights" xor:"weights"`
	JSON       bool     `help:"Print reports as JSON"`
	Output     string   `short:"o" help:"Write reports to this directory as <name>.json"`
}

// Run executes the report command.
func (c *ReportCmd) Run(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	opts, err := app.reportOptions(c.Analyses, weightOverride(c.Weighted, c.Unweighted))
	if err != nil {
		return err
	}
	runner, err := app.Runner()
	if err != nil {
		return err
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("accessing %s: %w", c.Path, err)
	}

	var inputs []*ingestion.LoadResult
	if info.IsDir() {
		progress := func(phase string, pct float64) {
			fmt.Fprintf(os.Stderr, "\r\033[K%s (%.0f%%)", phase, pct*100)
		}
		batch, err := app.Loader().LoadDir(ctx, c.Path, progress)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("loading %s: %w", c.Path, err)
		}
		inputs = batch.Results
	} else {
		res, err := app.loadGraph(ctx, c.Path)
		if err != nil {
			return err
		}
		inputs = []*ingestion.LoadResult{res}
	}

	if len(inputs) == 0 {
		fmt.Fprintln(app.Out, "No edge-list files found")
		return nil
	}

	if c.Output != "" {
		if err := os.MkdirAll(c.Output, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	failed := 0
	for _, in := range inputs {
		rep, err := runner.Run(ctx, in.Graph, in.Source, opts)
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", in.Source, err)
		}
		if rep.Failed() {
			failed++
		}

		if c.Output != "" {
			if err := writeReportFile(c.Output, rep); err != nil {
				return err
			}
			continue
		}
		if err := printReport(app, rep, c.JSON, app.renderOptions(0, false)); err != nil {
			return err
		}
	}

	color.New(color.FgGreen).Fprintf(app.Out, "✓ Analyzed %d graph(s)\n", len(inputs))
	if failed > 0 {
		color.New(color.FgYellow).Fprintf(app.Out, "  %d report(s) contain failed analyses\n", failed)
	}
	return nil
}

func writeReportFile(dir string, rep *report.Report) error {
	name := strings.TrimSuffix(filepath.ToSlash(rep.Source), filepath.Ext(rep.Source))
	name = strings.ReplaceAll(name, "/", "_") + ".json"

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// ExportCmd writes a graph for external visualization tools.
type ExportCmd struct {
	File        string `arg:"" type:"existingfile" help:"Edge-list file"`
	Format      string `short:"f" enum:"dot,json,edgelist" default:"dot" help:"Output format (dot|json|edgelist)"`
	Output      string `short:"o" help:"Output file (default: stdout)"`
	Communities bool   `help:"Annotate nodes with their detected community"`
}

// Run executes the export command.
func (c *ExportCmd) Run(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	loaded, err := app.loadGraph(ctx, c.File)
	if err != nil {
		return err
	}

	opts := render.ExportOptions{Name: strings.TrimSuffix(filepath.Base(c.File), filepath.Ext(c.File))}
	if c.Communities {
		part := analysis.DetectCommunities(loaded.Graph, app.Config.Analysis.Weighted)
		opts.Communities = &part
	}

	return app.export(loaded.Graph, render.Format(c.Format), c.Output, opts)
}

// export writes g to output, or to stdout when output is empty.
func (a *App) export(g *graph.Graph, format render.Format, output string, opts render.ExportOptions) error {
	out := a.Out
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}

	if err := render.Export(out, g, format, opts); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	if output != "" {
		color.New(color.FgGreen).Fprintf(a.Out, "✓ Wrote %s\n", output)
	}
	return nil
}

// WatchCmd re-runs analyses whenever the edge-list file changes.
type WatchCmd struct {
	File       string        `arg:"" type:"existingfile" help:"Edge-list file to watch"`
	Analyses   []string      `short:"a" help:"Analyses to run (default: all)"`
	Weighted   bool          `help:"Use edge weights as distances and strengths" xor:"weights"`
	Unweighted bool          `help:"Ignore edge weights" xor:"weights"`
	Debounce   time.Duration `help:"Quiet period before reloading (default from config)"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	opts, err := app.reportOptions(c.Analyses, weightOverride(c.Weighted, c.Unweighted))
	if err != nil {
		return err
	}
	runner, err := app.Runner()
	if err != nil {
		return err
	}
	debounce := c.Debounce
	if debounce <= 0 {
		debounce = app.Config.Watch.Debounce
	}

	analyze := func(ctx context.Context, res *ingestion.LoadResult) error {
		rep, err := runner.Run(ctx, res.Graph, c.File, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.Out, "\n## %s (%s)\n", c.File, rep.GeneratedAt.Local().Format(time.TimeOnly))
		return printReport(app, rep, false, app.renderOptions(0, false))
	}

	loaded, err := app.loadGraph(ctx, c.File)
	if err != nil {
		return err
	}
	if err := analyze(ctx, loaded); err != nil {
		return err
	}

	fmt.Fprintln(app.Out, "## Watch Mode")
	fmt.Fprintf(app.Out, "Watching %s for changes (Ctrl+C to stop)\n", c.File)

	err = app.Loader().WatchFile(ctx, c.File, debounce, analyze)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(app.Out, "Watch mode stopped.")
	return nil
}

// CacheCmd groups cache maintenance commands.
type CacheCmd struct {
	List  CacheListCmd  `cmd:"" help:"List cached graphs and reports"`
	Graph CacheGraphCmd `cmd:"" help:"Restore a cached graph by fingerprint"`
	Clean CacheCleanCmd `cmd:"" help:"Delete cached entries"`
}

// CacheListCmd lists cache entries.
type CacheListCmd struct{}

// Run executes the cache list command.
func (c *CacheListCmd) Run(app *App) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	entries, err := store.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing cache: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(app.Out, "Cache is empty")
		return nil
	}

	fmt.Fprintf(app.Out, "Cached entries (%d):\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(app.Out, "  %-6s %-40s %-24s %8d B  %s\n",
			e.Kind, e.Key, e.Source, e.Size, e.StoredAt.Local().Format(time.DateTime))
	}
	return nil
}

// CacheGraphCmd writes a cached graph back out, e.g. after its source file
// has changed or been removed.
type CacheGraphCmd struct {
	Fingerprint string `arg:"" help:"Graph fingerprint or a unique prefix of it (see cache list)"`
	Format      string `short:"f" enum:"dot,json,edgelist" default:"edgelist" help:"Output format (dot|json|edgelist)"`
	Output      string `short:"o" help:"Output file (default: stdout)"`
}

// Run executes the cache graph command.
func (c *CacheGraphCmd) Run(app *App) error {
	ctx := context.Background()
	store, err := app.Store()
	if err != nil {
		return err
	}
	fingerprint, err := resolveGraphKey(ctx, store, c.Fingerprint)
	if err != nil {
		return err
	}
	rec, err := store.GetGraph(ctx, fingerprint)
	if err != nil {
		return fmt.Errorf("reading cached graph: %w", err)
	}
	g, err := rec.Graph()
	if err != nil {
		return fmt.Errorf("restoring cached graph %s: %w", fingerprint, err)
	}

	app.Logger.Debug("restored cached graph",
		zap.String("fingerprint", fingerprint),
		zap.String("source", rec.Source),
		zap.Int("nodes", g.NodeCount()),
	)
	name := strings.TrimSuffix(filepath.Base(rec.Source), filepath.Ext(rec.Source))
	return app.export(g, render.Format(c.Format), c.Output, render.ExportOptions{Name: name})
}

// resolveGraphKey expands a fingerprint prefix to the single cached graph
// it names.
func resolveGraphKey(ctx context.Context, store storage.StorageBackend, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("empty fingerprint: %w", storage.ErrNotFound)
	}
	entries, err := store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("listing cache: %w", err)
	}
	var matches []string
	for _, e := range entries {
		if e.Kind != storage.KindGraph {
			continue
		}
		if e.Key == prefix {
			return e.Key, nil
		}
		if strings.HasPrefix(e.Key, prefix) {
			matches = append(matches, e.Key)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("graph %s: %w", prefix, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("fingerprint prefix %s matches %d graphs", prefix, len(matches))
	}
}

// CacheCleanCmd deletes cache entries.
type CacheCleanCmd struct {
	OlderThan time.Duration `help:"Only delete entries older than this (default: all)"`
	Force     bool          `short:"f" help:"Skip confirmation"`
}

// Run executes the cache clean command.
func (c *CacheCleanCmd) Run(app *App) error {
	if !c.Force {
		fmt.Fprintf(app.Out, "Delete cached entries in %s? [y/N] ", app.Config.Cache.Dir)
		var response string
		_, _ = fmt.Fscanln(app.In, &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(app.Out, "Aborted")
			return nil
		}
	}

	store, err := app.Store()
	if err != nil {
		return err
	}
	var cutoff time.Time
	if c.OlderThan > 0 {
		cutoff = time.Now().Add(-c.OlderThan)
	}
	removed, err := store.Clean(context.Background(), cutoff)
	if err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}

	color.New(color.FgGreen).Fprintf(app.Out, "Deleted %d entries\n", removed)
	return nil
}

// ConfigCmd prints the effective configuration.
type ConfigCmd struct{}

// Run executes the config command.
func (c *ConfigCmd) Run(app *App) error {
	fmt.Fprintf(app.Out, "# sources: %s\n", strings.Join(app.Config.LoadedFrom, ", "))
	return app.Config.Write(app.Out)
}

// Helper functions

// weightOverride turns the --weighted/--unweighted pair into an optional
// override of the configured default.
func weightOverride(weighted, unweighted bool) *bool {
	switch {
	case weighted:
		return &weighted
	case unweighted:
		off := false
		return &off
	default:
		return nil
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// CLI is the root Kong command structure.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version information"`
	Config   string           `short:"c" type:"path" help:"Config file (default: ./netscope.yaml if present)"`
	LogLevel string           `help:"Override the configured log level (debug|info|warn|error)"`
	Verbose  bool             `short:"v" help:"Enable verbose output"`
	Quiet    bool             `short:"q" help:"Suppress non-essential output"`
	NoCache  bool             `help:"Do not read or write the on-disk cache"`

	// Commands
	Analyze AnalyzeCmd `cmd:"" help:"Run analyses on an edge-list file"`
	Report  ReportCmd  `cmd:"" help:"Analyze a file or every edge list under a directory"`
	Shell   ShellCmd   `cmd:"" help:"Interactive analysis loop"`
	Watch   WatchCmd   `cmd:"" help:"Re-run analyses when the file changes"`
	Export  ExportCmd  `cmd:"" help:"Export a graph as DOT or JSON"`
	MCP     MCPCmd     `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve   ServeCmd   `cmd:"" help:"Start MCP server with metrics endpoint and optional watch mode"`
	Cache   CacheCmd   `cmd:"" help:"Inspect or clean the result cache"`
	Conf    ConfigCmd  `cmd:"" name:"config" help:"Print the effective configuration"`

	out io.Writer
	in  io.Reader
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{out: os.Stdout, in: os.Stdin}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("netscope"),
		kong.Description("Structural analysis of weighted undirected networks"),
		kong.UsageOnError(),
		kong.Writers(c.out, os.Stderr),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	app, err := c.newApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
		_ = app.Logger.Sync()
	}()

	return kongCtx.Run(app)
}

func (c *CLI) newApp() (*App, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	switch {
	case c.LogLevel != "":
		cfg.Log.Level = c.LogLevel
	case c.Verbose:
		cfg.Log.Level = "debug"
	case c.Quiet:
		cfg.Log.Level = "error"
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Out:     c.out,
		In:      c.in,
		NoCache: c.NoCache,
	}, nil
}
