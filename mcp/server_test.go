package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Benny93/netscope/internal/analysis"
	"github.com/Benny93/netscope/internal/graph"
	"github.com/Benny93/netscope/internal/report"
	"github.com/Benny93/netscope/internal/storage"
)

func barbell(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, e := range [][2]string{
		{"A", "B"}, {"B", "C"}, {"A", "C"}, {"C", "D"},
		{"D", "E"}, {"D", "F"}, {"E", "F"}, {"F", "G"},
	} {
		require.NoError(t, g.AddUnweightedEdge(e[0], e[1]))
	}
	return g
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := storage.NewMemoryBackend()
	require.NoError(t, store.Initialize("", false))

	s := NewServer(report.NewRunner(zap.NewNop(), store), zap.NewNop(), Options{Parallelism: 2})
	s.SetGraph(barbell(t), "barbell.txt")
	return s
}

func boolPtr(b bool) *bool { return &b }

func TestServer_NoGraph(t *testing.T) {
	t.Parallel()

	s := NewServer(report.NewRunner(nil, nil), nil, Options{})
	ctx := context.Background()

	_, _, err := s.handleAnalyze(ctx, nil, AnalyzeArgs{Analysis: "degree"})
	assert.ErrorIs(t, err, ErrNoGraph)
	_, _, err = s.handleNode(ctx, nil, NodeArgs{Node: "A"})
	assert.ErrorIs(t, err, ErrNoGraph)
	_, err = s.ReadResource(ctx, OverviewURI)
	assert.ErrorIs(t, err, ErrNoGraph)
}

func TestServer_HandleAnalyze(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ctx := context.Background()

	t.Run("Topology", func(t *testing.T) {
		t.Parallel()
		_, out, err := s.handleAnalyze(ctx, nil, AnalyzeArgs{Analysis: "topology detector"})
		require.NoError(t, err)
		assert.Equal(t, "topology", out.Analysis)
		assert.Equal(t, "barbell.txt", out.Source)
		assert.Equal(t, analysis.TopologyUnknown, out.Result.(analysis.Topology).Label)
	})

	t.Run("Community", func(t *testing.T) {
		t.Parallel()
		_, out, err := s.handleAnalyze(ctx, nil, AnalyzeArgs{Analysis: "ml", Weighted: boolPtr(true)})
		require.NoError(t, err)
		part := out.Result.(analysis.CommunityPartition)
		assert.Equal(t, 2, part.Count())
		assert.True(t, part.Weighted)
	})

	t.Run("UnknownAnalysis", func(t *testing.T) {
		t.Parallel()
		_, _, err := s.handleAnalyze(ctx, nil, AnalyzeArgs{Analysis: "visualization"})
		assert.ErrorIs(t, err, analysis.ErrUnknownAnalysis)
	})
}

func TestAnalyzeSchema(t *testing.T) {
	t.Parallel()

	schema := AnalyzeSchema()
	assert.Equal(t, "object", schema.Type)
	assert.Contains(t, schema.Required, "analysis")

	prop := schema.Properties["analysis"]
	require.NotNil(t, prop)
	assert.Len(t, prop.Examples, len(analysis.AllKinds()))
	assert.Contains(t, prop.Examples, "shortest_paths")
}

func TestServer_HandleReport(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	_, out, err := s.handleReport(context.Background(), nil, ReportArgs{Analyses: []string{"degree", "connectivity"}})
	require.NoError(t, err)

	assert.Equal(t, 7, out.Nodes)
	assert.Equal(t, 8, out.Edges)
	assert.Len(t, out.Results, 2)
	assert.Contains(t, out.Results, "connectivity")
	assert.Empty(t, out.Errors)
	assert.NotEmpty(t, out.ID)

	_, _, err = s.handleReport(context.Background(), nil, ReportArgs{Analyses: []string{"bogus"}})
	assert.ErrorIs(t, err, analysis.ErrUnknownAnalysis)
}

func TestServer_HandleDistance(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleDistance(ctx, nil, DistanceArgs{Source: "A", Target: "G"})
	require.NoError(t, err)
	assert.True(t, out.Reachable)
	assert.InDelta(t, 4.0, out.Distance, 1e-9)

	_, _, err = s.handleDistance(ctx, nil, DistanceArgs{Source: "A", Target: "Z"})
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestServer_HandleNode(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	_, out, err := s.handleNode(context.Background(), nil, NodeArgs{Node: "D"})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Degree)
	assert.Equal(t, []string{"C", "E", "F"}, out.Neighbors)
	assert.InDelta(t, 0.5, out.Centrality, 1e-9)
	assert.Positive(t, out.Betweenness)
	assert.Equal(t, 0, out.Community)

	_, _, err = s.handleNode(context.Background(), nil, NodeArgs{Node: "nope"})
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestServer_Resources(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ctx := context.Background()

	overview, err := s.ReadResource(ctx, OverviewURI)
	require.NoError(t, err)
	assert.Contains(t, overview, "**Nodes:** 7")
	assert.Contains(t, overview, "**Components:** 1 (largest 7)")
	assert.Contains(t, overview, "**Topology:** Unknown")

	schemaText, err := s.ReadResource(ctx, SchemaURI)
	require.NoError(t, err)
	assert.Contains(t, schemaText, "`shortest_paths`")

	_, err = s.ReadResource(ctx, "netscope://missing")
	assert.Error(t, err)
}

func TestServer_SetGraphReplaces(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	ring := graph.New()
	for _, e := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}, {"d", "a"}} {
		require.NoError(t, ring.AddUnweightedEdge(e[0], e[1]))
	}
	s.SetGraph(ring, "ring.txt")

	_, out, err := s.handleAnalyze(context.Background(), nil, AnalyzeArgs{Analysis: "topology"})
	require.NoError(t, err)
	assert.Equal(t, analysis.TopologyRing, out.Result.(analysis.Topology).Label)
	assert.Equal(t, "ring.txt", out.Source)
}

func TestServer_Session(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newTestServer(t)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	serverSession, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	var names []string
	for tool, err := range session.Tools(ctx, nil) {
		require.NoError(t, err)
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"netscope_analyze", "netscope_report", "netscope_distance", "netscope_node"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "netscope_distance",
		Arguments: map[string]any{"source": "B", "target": "E"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"reachable":true`)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "netscope_analyze",
		Arguments: map[string]any{"analysis": "bogus"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	read, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: SchemaURI})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	assert.Contains(t, read.Contents[0].Text, "Input Format")
}
