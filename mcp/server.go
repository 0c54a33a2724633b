// Package mcp exposes netscope analyses as MCP (Model Context Protocol)
// tools and resources over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/Benny93/netscope/internal/analysis"
	"github.com/Benny93/netscope/internal/graph"
	"github.com/Benny93/netscope/internal/report"
)

// ErrNoGraph is returned by tools invoked before a graph was loaded.
var ErrNoGraph = errors.New("no graph loaded")

// Resource URIs.
const (
	OverviewURI = "netscope://overview"
	SchemaURI   = "netscope://schema"
)

// Options configures a Server.
type Options struct {
	Name    string
	Version string

	// Analysis holds defaults applied to every tool call.
	Analysis analysis.Options

	// Timeout bounds each analysis; zero disables it.
	Timeout time.Duration

	// Parallelism caps concurrent analyses of the report tool.
	Parallelism int
}

// Server serves one graph, which may be replaced while running.
type Server struct {
	mcpServer *mcp.Server
	runner    *report.Runner
	logger    *zap.Logger
	opts      Options

	mu     sync.RWMutex
	graph  *graph.Graph
	source string
}

// NewServer creates a server with every tool and resource registered.
func NewServer(runner *report.Runner, logger *zap.Logger, opts Options) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "netscope"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		runner: runner,
		logger: logger,
		opts:   opts,
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    opts.Name,
		Version: opts.Version,
	}, nil)

	s.registerTools()
	s.registerResources()
	return s
}

// SetGraph replaces the served graph.
func (s *Server) SetGraph(g *graph.Graph, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = g
	s.source = source
	s.logger.Info("serving graph",
		zap.String("source", source),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
	)
}

func (s *Server) current() (*graph.Graph, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return nil, "", ErrNoGraph
	}
	return s.graph, s.source, nil
}

// Serve runs the server over stdin and stdout until ctx ends or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// AnalyzeArgs defines the input for netscope_analyze.
type AnalyzeArgs struct {
	Analysis string `json:"analysis" jsonschema:"analysis to run: degree, connectivity, shortest_paths, centrality, community, robustness, topology or growth"`
	Weighted *bool  `json:"weighted,omitempty" jsonschema:"use edge weights as distances and strengths"`
}

// AnalyzeResult defines the output of netscope_analyze.
type AnalyzeResult struct {
	Analysis string          `json:"analysis" jsonschema:"canonical analysis name"`
	Source   string          `json:"source" jsonschema:"file the graph was loaded from"`
	Result   analysis.Result `json:"result" jsonschema:"analysis result"`
}

// ReportArgs defines the input for netscope_report.
type ReportArgs struct {
	Analyses []string `json:"analyses,omitempty" jsonschema:"analyses to run; empty runs all"`
	Weighted *bool    `json:"weighted,omitempty" jsonschema:"use edge weights as distances and strengths"`
}

// ReportResult defines the output of netscope_report.
type ReportResult struct {
	ID          string                     `json:"id" jsonschema:"report run id"`
	Source      string                     `json:"source" jsonschema:"file the graph was loaded from"`
	Fingerprint string                     `json:"fingerprint" jsonschema:"content hash of the graph"`
	Nodes       int                        `json:"nodes"`
	Edges       int                        `json:"edges"`
	Cached      bool                       `json:"cached" jsonschema:"served from the result cache"`
	Results     map[string]analysis.Result `json:"results"`
	Errors      map[string]string          `json:"errors,omitempty"`
}

// DistanceArgs defines the input for netscope_distance.
type DistanceArgs struct {
	Source   string `json:"source" jsonschema:"first node"`
	Target   string `json:"target" jsonschema:"second node"`
	Weighted *bool  `json:"weighted,omitempty" jsonschema:"sum edge weights instead of counting hops"`
}

// DistanceResult defines the output of netscope_distance.
type DistanceResult struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Reachable bool    `json:"reachable"`
	Distance  float64 `json:"distance" jsonschema:"shortest path length; zero when unreachable"`
}

// NodeArgs defines the input for netscope_node.
type NodeArgs struct {
	Node string `json:"node" jsonschema:"node identifier"`
}

// NodeResult defines the output of netscope_node.
type NodeResult struct {
	Node        string   `json:"node"`
	Degree      int      `json:"degree"`
	Neighbors   []string `json:"neighbors"`
	Centrality  float64  `json:"degree_centrality"`
	Closeness   float64  `json:"closeness"`
	Betweenness float64  `json:"betweenness"`
	Community   int      `json:"community" jsonschema:"index of the node's community, largest first"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "netscope_analyze",
		Description: "Run one graph analysis on the loaded network and return its structured result.",
		InputSchema: AnalyzeSchema(),
	}, s.handleAnalyze)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "netscope_report",
		Description: "Run several analyses concurrently and return every result plus per-analysis errors.",
	}, s.handleReport)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "netscope_distance",
		Description: "Shortest path length between two nodes, in hops or summed weights.",
	}, s.handleDistance)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "netscope_node",
		Description: "Degree, neighbors, centrality scores and community of a single node.",
	}, s.handleNode)
}

// AnalyzeSchema is the input schema of netscope_analyze: the schema inferred
// from AnalyzeArgs with the canonical analysis names listed as examples.
func AnalyzeSchema() *jsonschema.Schema {
	schema, err := jsonschema.For[AnalyzeArgs](nil)
	if err != nil {
		panic(fmt.Sprintf("inferring analyze schema: %v", err))
	}
	if prop, ok := schema.Properties["analysis"]; ok {
		for _, k := range analysis.AllKinds() {
			prop.Examples = append(prop.Examples, k.String())
		}
	}
	return schema
}

func (s *Server) analysisOptions(weighted *bool) analysis.Options {
	opts := s.opts.Analysis
	if weighted != nil {
		opts.Weighted = *weighted
	}
	return opts
}

func (s *Server) run(ctx context.Context, kinds []analysis.Kind, opts analysis.Options) (*report.Report, error) {
	g, source, err := s.current()
	if err != nil {
		return nil, err
	}
	return s.runner.Run(ctx, g, source, report.Options{
		Kinds:       kinds,
		Analysis:    opts,
		Timeout:     s.opts.Timeout,
		Parallelism: s.opts.Parallelism,
	})
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, args AnalyzeArgs) (*mcp.CallToolResult, AnalyzeResult, error) {
	kind, err := analysis.ParseKind(args.Analysis)
	if err != nil {
		return nil, AnalyzeResult{}, err
	}

	rep, err := s.run(ctx, []analysis.Kind{kind}, s.analysisOptions(args.Weighted))
	if err != nil {
		return nil, AnalyzeResult{}, err
	}
	if msg, failed := rep.Errors[kind]; failed {
		return nil, AnalyzeResult{}, errors.New(msg)
	}

	res, _ := rep.Result(kind)
	return nil, AnalyzeResult{Analysis: kind.String(), Source: rep.Source, Result: res}, nil
}

func (s *Server) handleReport(ctx context.Context, _ *mcp.CallToolRequest, args ReportArgs) (*mcp.CallToolResult, ReportResult, error) {
	kinds, err := analysis.ParseKinds(args.Analyses)
	if err != nil {
		return nil, ReportResult{}, err
	}

	rep, err := s.run(ctx, kinds, s.analysisOptions(args.Weighted))
	if err != nil {
		return nil, ReportResult{}, err
	}

	out := ReportResult{
		ID:          rep.ID.String(),
		Source:      rep.Source,
		Fingerprint: rep.Fingerprint,
		Nodes:       rep.Nodes,
		Edges:       rep.Edges,
		Cached:      rep.Cached,
		Results:     make(map[string]analysis.Result, len(rep.Results)),
	}
	for kind, res := range rep.Results {
		out.Results[kind.String()] = res
	}
	for kind, msg := range rep.Errors {
		if out.Errors == nil {
			out.Errors = make(map[string]string)
		}
		out.Errors[kind.String()] = msg
	}
	return nil, out, nil
}

func (s *Server) handleDistance(ctx context.Context, _ *mcp.CallToolRequest, args DistanceArgs) (*mcp.CallToolResult, DistanceResult, error) {
	g, _, err := s.current()
	if err != nil {
		return nil, DistanceResult{}, err
	}

	d, err := analysis.ShortestPathLength(g, args.Source, args.Target, s.analysisOptions(args.Weighted).Weighted)
	if err != nil {
		return nil, DistanceResult{}, err
	}
	return nil, DistanceResult{
		Source:    args.Source,
		Target:    args.Target,
		Reachable: d.Reachable,
		Distance:  d.Value,
	}, nil
}

func (s *Server) handleNode(ctx context.Context, _ *mcp.CallToolRequest, args NodeArgs) (*mcp.CallToolResult, NodeResult, error) {
	g, _, err := s.current()
	if err != nil {
		return nil, NodeResult{}, err
	}

	degree, err := g.Degree(args.Node)
	if err != nil {
		return nil, NodeResult{}, err
	}
	neighbors, err := g.Neighbors(args.Node)
	if err != nil {
		return nil, NodeResult{}, err
	}

	rep, err := s.run(ctx, []analysis.Kind{analysis.KindCentrality, analysis.KindCommunity}, s.opts.Analysis)
	if err != nil {
		return nil, NodeResult{}, err
	}

	out := NodeResult{Node: args.Node, Degree: degree, Neighbors: neighbors}
	if res, ok := rep.Result(analysis.KindCentrality); ok {
		scores := res.(analysis.CentralityScores)
		out.Centrality = scores.Degree.Values[args.Node]
		out.Closeness = scores.Closeness.Values[args.Node]
		out.Betweenness = scores.Betweenness.Values[args.Node]
	}
	if res, ok := rep.Result(analysis.KindCommunity); ok {
		out.Community = res.(analysis.CommunityPartition).Membership()[args.Node]
	}
	return nil, out, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         OverviewURI,
		Name:        "Network Overview",
		Description: "Size, connectivity and topology of the loaded network",
		MIMEType:    "text/markdown",
	}, s.readResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         SchemaURI,
		Name:        "Analysis Schema",
		Description: "Available analyses and the edge-list input format",
		MIMEType:    "text/markdown",
	}, s.readResource)
}

func (s *Server) readResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	text, err := s.ReadResource(ctx, uri)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "text/markdown", Text: text}},
	}, nil
}

// ReadResource renders a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case OverviewURI:
		return s.overview(ctx)
	case SchemaURI:
		return schema(), nil
	default:
		return "", mcp.ResourceNotFoundError(uri)
	}
}

func (s *Server) overview(ctx context.Context) (string, error) {
	g, source, err := s.current()
	if err != nil {
		return "", err
	}
	rep, err := s.run(ctx, []analysis.Kind{analysis.KindConnectivity, analysis.KindTopology}, s.opts.Analysis)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("# Network Overview\n\n")
	fmt.Fprintf(&sb, "**Source:** %s\n", source)
	fmt.Fprintf(&sb, "**Nodes:** %d\n", g.NodeCount())
	fmt.Fprintf(&sb, "**Edges:** %d\n", g.EdgeCount())
	fmt.Fprintf(&sb, "**Fingerprint:** %s\n", rep.Fingerprint)
	if res, ok := rep.Result(analysis.KindConnectivity); ok {
		p := res.(analysis.ComponentPartition)
		fmt.Fprintf(&sb, "**Components:** %d (largest %d)\n", p.Count(), p.LargestComponentSize())
	}
	if res, ok := rep.Result(analysis.KindTopology); ok {
		fmt.Fprintf(&sb, "**Topology:** %s\n", res.(analysis.Topology).Label)
	}
	return sb.String(), nil
}

func schema() string {
	var sb strings.Builder
	sb.WriteString("# netscope Analyses\n\n")
	sb.WriteString("| Analysis | Result |\n")
	sb.WriteString("|----------|--------|\n")
	sb.WriteString("| `degree` | degree per node, frequency table, histogram |\n")
	sb.WriteString("| `connectivity` | connected components, largest first |\n")
	sb.WriteString("| `shortest_paths` | all-pairs distances, diameter, average length |\n")
	sb.WriteString("| `centrality` | degree, closeness and betweenness per node |\n")
	sb.WriteString("| `community` | greedy modularity communities and Q |\n")
	sb.WriteString("| `robustness` | giant component fraction under node and edge removal |\n")
	sb.WriteString("| `topology` | Fully Connected, Ring, Star, Tree, Mesh or Unknown |\n")
	sb.WriteString("| `growth` | node and edge counts as edges are inserted |\n")
	sb.WriteString("\n## Input Format\n\n")
	sb.WriteString("One edge per line: `node1 node2 weight`. Lines starting with `#` are comments unless they hold exactly three fields.\n")
	sb.WriteString("Lines with a token count other than three or an invalid weight are skipped.\n")
	return sb.String()
}
