package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/Benny93/netscope/internal/analysis"
	"github.com/Benny93/netscope/internal/graph"
	"github.com/Benny93/netscope/internal/render"
	"github.com/Benny93/netscope/internal/report"
)

const selectFilePrefix = "select another file"

// visualizationNames are shell inputs answered with an export hint.
var visualizationNames = map[string]bool{
	"visualization":         true,
	"visualisation":         true,
	"network visualization": true,
	"network visualisation": true,
}

// ShellCmd reads analysis names line by line and prints each result.
type ShellCmd struct {
	File       string `arg:"" type:"existingfile" help:"Edge-list file to start with"`
	Weighted   bool   `help:"Use edge weights as distances and strengths" xor:"weights"`
	Unweighted bool   `help:"Ignore edge weights" xor:"weights"`
	Charts     bool   `default:"true" negatable:"" help:"Draw robustness and growth charts"`
}

// shell is the state of one interactive session.
type shell struct {
	app    *App
	runner *report.Runner
	opts   report.Options
	render render.Options

	source string
	graph  *graph.Graph
}

// Run executes the shell command.
func (c *ShellCmd) Run(app *App) error {
	ctx, cancel := signalContext()
	defer cancel()

	opts, err := app.reportOptions(nil, weightOverride(c.Weighted, c.Unweighted))
	if err != nil {
		return err
	}
	runner, err := app.Runner()
	if err != nil {
		return err
	}

	sh := &shell{
		app:    app,
		runner: runner,
		opts:   opts,
		render: app.renderOptions(0, c.Charts),
	}
	if err := sh.open(ctx, c.File); err != nil {
		return err
	}
	return sh.loop(ctx)
}

func (s *shell) open(ctx context.Context, path string) error {
	loaded, err := s.app.loadGraph(ctx, path)
	if err != nil {
		return err
	}
	s.source = path
	s.graph = loaded.Graph
	color.New(color.FgGreen).Fprintf(s.app.Out, "Loaded %s: %d nodes, %d edges\n",
		path, loaded.Graph.NodeCount(), loaded.Graph.EdgeCount())
	return nil
}

func (s *shell) loop(ctx context.Context) error {
	s.help()
	scanner := bufio.NewScanner(s.app.In)
	for {
		fmt.Fprint(s.app.Out, "netscope> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.app.Out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			return nil
		case line == "help":
			s.help()
		case strings.HasPrefix(line, selectFilePrefix):
			path := strings.TrimSpace(strings.TrimPrefix(line, selectFilePrefix))
			if path == "" {
				color.New(color.FgRed).Fprintf(s.app.Out, "Usage: %s <path>\n", selectFilePrefix)
				continue
			}
			if err := s.open(ctx, path); err != nil {
				color.New(color.FgRed).Fprintf(s.app.Out, "Error: %v\n", err)
			}
		default:
			s.analyze(ctx, line)
		}
	}
}

// analyze runs one named analysis. Failures are printed and the loop goes on.
func (s *shell) analyze(ctx context.Context, name string) {
	if visualizationNames[strings.ToLower(strings.Join(strings.Fields(name), " "))] {
		color.New(color.FgYellow).Fprintf(s.app.Out,
			"Visualization is not an analysis. Run \"netscope export %s --format dot\" and render the output with Graphviz.\n",
			s.source)
		return
	}

	kind, err := analysis.ParseKind(name)
	if err != nil {
		color.New(color.FgRed).Fprintf(s.app.Out, "Error: %v (type \"help\" for the list)\n", err)
		return
	}

	opts := s.opts
	opts.Kinds = []analysis.Kind{kind}
	rep, err := s.runner.Run(ctx, s.graph, s.source, opts)
	if err != nil {
		color.New(color.FgRed).Fprintf(s.app.Out, "Error: %v\n", err)
		return
	}
	if msg, failed := rep.Errors[kind]; failed {
		color.New(color.FgRed).Fprintf(s.app.Out, "Error: %s\n", msg)
		return
	}
	res, _ := rep.Result(kind)
	fmt.Fprintln(s.app.Out, render.Result(res, s.render))
}

func (s *shell) help() {
	names := make([]string, 0, len(analysis.AllKinds()))
	for _, k := range analysis.AllKinds() {
		names = append(names, k.String())
	}
	fmt.Fprintf(s.app.Out, "Analyses: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(s.app.Out, "Commands: %s <path>, help, quit\n", selectFilePrefix)
}
