package analysis

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Benny93/netscope/internal/graph"
)

const tolerance = 1e-9

// buildGraph parses "a b w" lines into a graph.
func buildGraph(t *testing.T, edges string) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, line := range strings.Split(edges, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		require.Len(t, fields, 3, "bad fixture line %q", line)
		w, err := strconv.ParseFloat(fields[2], 64)
		require.NoError(t, err)
		require.NoError(t, g.AddEdge(fields[0], fields[1], w))
	}
	return g
}

const (
	triangle     = "A B 1\nB C 1\nA C 1"
	star         = "A B 1\nA C 1\nA D 1"
	disjointPair = "A B 1\nC D 1"
	// barbell: two triangles joined through C -- D, plus a dangling E.
	barbell = "A B 1\nB C 1\nA C 1\nC D 1\nD E 1\nD F 1\nE F 1\nF G 1"
	// weighted diamond where the direct edge is longer than the detour.
	weightedDiamond = "A B 1\nB D 1\nA C 2\nC D 1\nA D 5\nD E 0.5"
)

// floydWarshall returns brute-force all-pairs distances with +Inf for
// unreachable pairs.
func floydWarshall(s *graph.Snapshot, weighted bool) [][]float64 {
	n := s.NodeCount()
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			if i != j {
				d[i][j] = math.Inf(1)
			}
		}
	}
	for _, e := range s.Edges {
		if e.U == e.V {
			continue
		}
		w := 1.0
		if weighted {
			w = e.Weight
		}
		if w < d[e.U][e.V] {
			d[e.U][e.V] = w
			d[e.V][e.U] = w
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if d[i][k]+d[k][j] < d[i][j] {
					d[i][j] = d[i][k] + d[k][j]
				}
			}
		}
	}
	return d
}

// bruteBetweenness enumerates every simple path between every pair and
// counts, for each shortest one, the interior nodes it passes through.
func bruteBetweenness(s *graph.Snapshot, weighted bool) []float64 {
	n := s.NodeCount()
	dist := floydWarshall(s, weighted)
	bc := make([]float64, n)

	for src := 0; src < n; src++ {
		for dst := src + 1; dst < n; dst++ {
			if math.IsInf(dist[src][dst], 1) {
				continue
			}
			var paths [][]int
			visited := make([]bool, n)
			var walk func(u int, length float64, path []int)
			walk = func(u int, length float64, path []int) {
				if length > dist[src][dst]+tolerance {
					return
				}
				if u == dst {
					if math.Abs(length-dist[src][dst]) <= tolerance {
						paths = append(paths, append([]int(nil), path...))
					}
					return
				}
				for _, nb := range s.Adjacency[u] {
					if visited[nb.Node] {
						continue
					}
					w := 1.0
					if weighted {
						w = nb.Weight
					}
					visited[nb.Node] = true
					walk(nb.Node, length+w, append(path, nb.Node))
					visited[nb.Node] = false
				}
			}
			visited[src] = true
			walk(src, 0, []int{src})

			for _, p := range paths {
				for _, v := range p[1 : len(p)-1] {
					bc[v] += 1 / float64(len(paths))
				}
			}
		}
	}

	if n > 2 {
		norm := float64((n-1)*(n-2)) / 2
		for i := range bc {
			bc[i] /= norm
		}
	} else {
		for i := range bc {
			bc[i] = 0
		}
	}
	return bc
}

// bruteGiant removes nodes and edges from a clone one at a time and returns
// the resulting giant-component fraction.
func bruteGiant(t *testing.T, g *graph.Graph, removeNodes []string, removeEdges []graph.Edge, n int) float64 {
	t.Helper()
	c := g.Clone()
	for _, id := range removeNodes {
		require.NoError(t, c.RemoveNode(id))
	}
	for _, e := range removeEdges {
		require.NoError(t, c.RemoveEdge(e.Source, e.Target))
	}
	return float64(ConnectedComponents(c).LargestComponentSize()) / float64(n)
}
