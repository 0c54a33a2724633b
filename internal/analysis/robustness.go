package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/Benny93/netscope/internal/graph"
)

// ErrInvalidOrder is returned when a removal order names a missing or
// repeated element.
var ErrInvalidOrder = errors.New("invalid removal order")

// RobustnessOptions selects the removal orders. Nil orders fall back to the
// graph's enumeration order. A partial order is completed with the remaining
// elements in enumeration order.
type RobustnessOptions struct {
	NodeOrder []string
	EdgeOrder []graph.Edge
}

// RobustnessCurve records how the giant component shrinks under removal.
//
// NodeRemoval[k] is the largest component size, as a fraction of the
// original node count, after removing the first k nodes of NodeOrder.
// EdgeRemoval[k] is the same after removing the first min(k, E) edges of
// EdgeOrder. Both curves have one entry per k in [0, N-1].
type RobustnessCurve struct {
	NodeRemoval []float64    `json:"node_removal"`
	EdgeRemoval []float64    `json:"edge_removal"`
	NodeOrder   []string     `json:"node_order"`
	EdgeOrder   []graph.Edge `json:"edge_order"`
	Nodes       int          `json:"nodes"`
	Edges       int          `json:"edges"`
}

// Kind implements Result.
func (RobustnessCurve) Kind() Kind { return KindRobustness }

// NodeIndex returns the mean of the node-removal curve, a single-number
// robustness score in (0, 1].
func (c RobustnessCurve) NodeIndex() float64 {
	return mean(c.NodeRemoval)
}

// EdgeIndex returns the mean of the edge-removal curve.
func (c RobustnessCurve) EdgeIndex() float64 {
	return mean(c.EdgeRemoval)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Robustness simulates sequential node and edge removal on a private copy of
// g and reports the normalized giant-component size after each step. The
// caller's graph is never modified.
func Robustness(ctx context.Context, g *graph.Graph, opts RobustnessOptions) (RobustnessCurve, error) {
	return robustness(ctx, g.Snapshot(), opts)
}

func robustness(ctx context.Context, s *graph.Snapshot, opts RobustnessOptions) (RobustnessCurve, error) {
	n := s.NodeCount()
	if n < 2 {
		return RobustnessCurve{}, fmt.Errorf("%w: robustness needs at least 2 nodes, got %d", ErrInsufficientGraphSize, n)
	}

	nodeOrder, err := resolveNodeOrder(s, opts.NodeOrder)
	if err != nil {
		return RobustnessCurve{}, err
	}
	edgeOrder, err := resolveEdgeOrder(s, opts.EdgeOrder)
	if err != nil {
		return RobustnessCurve{}, err
	}

	curve := RobustnessCurve{
		NodeRemoval: make([]float64, n),
		EdgeRemoval: make([]float64, n),
		NodeOrder:   make([]string, n),
		EdgeOrder:   make([]graph.Edge, len(edgeOrder)),
		Nodes:       n,
		Edges:       s.EdgeCount(),
	}
	for i, idx := range nodeOrder {
		curve.NodeOrder[i] = s.IDs[idx]
	}
	for i, idx := range edgeOrder {
		e := s.Edges[idx]
		curve.EdgeOrder[i] = graph.Edge{Source: s.IDs[e.U], Target: s.IDs[e.V], Weight: e.Weight}
	}

	// Removal is replayed backwards as insertion into a union-find, so each
	// curve costs one near-linear sweep.
	giantAfterNodes := nodeSweep(s, nodeOrder)
	if err := ctx.Err(); err != nil {
		return RobustnessCurve{}, err
	}
	giantAfterEdges := edgeSweep(s, edgeOrder)
	if err := ctx.Err(); err != nil {
		return RobustnessCurve{}, err
	}

	e := len(edgeOrder)
	for k := 0; k < n; k++ {
		curve.NodeRemoval[k] = float64(giantAfterNodes[k]) / float64(n)
		curve.EdgeRemoval[k] = float64(giantAfterEdges[min(k, e)]) / float64(n)
	}
	return curve, nil
}

// nodeSweep returns giant[k], the largest component size once order[:k]
// has been removed, for k in [0, n].
func nodeSweep(s *graph.Snapshot, order []int) []int {
	n := len(order)
	giant := make([]int, n+1)
	active := make([]bool, s.NodeCount())
	uf := newUnionFind(s.NodeCount())

	largest := 0
	for k := n - 1; k >= 0; k-- {
		u := order[k]
		active[u] = true
		if largest == 0 {
			largest = 1
		}
		for _, nb := range s.Adjacency[u] {
			if active[nb.Node] {
				if size := uf.union(u, nb.Node); size > largest {
					largest = size
				}
			}
		}
		giant[k] = largest
	}
	return giant
}

// edgeSweep returns giant[r], the largest component size once order[:r]
// has been removed, for r in [0, len(order)].
func edgeSweep(s *graph.Snapshot, order []int) []int {
	e := len(order)
	giant := make([]int, e+1)
	uf := newUnionFind(s.NodeCount())

	largest := 1
	giant[e] = largest
	for r := e - 1; r >= 0; r-- {
		edge := s.Edges[order[r]]
		if size := uf.union(edge.U, edge.V); size > largest {
			largest = size
		}
		giant[r] = largest
	}
	return giant
}

func resolveNodeOrder(s *graph.Snapshot, explicit []string) ([]int, error) {
	n := s.NodeCount()
	order := make([]int, 0, n)
	used := make([]bool, n)
	for _, id := range explicit {
		idx, ok := s.Index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %w: %s", ErrInvalidOrder, graph.ErrNodeNotFound, id)
		}
		if used[idx] {
			return nil, fmt.Errorf("%w: node %s repeated", ErrInvalidOrder, id)
		}
		used[idx] = true
		order = append(order, idx)
	}
	for i := 0; i < n; i++ {
		if !used[i] {
			order = append(order, i)
		}
	}
	return order, nil
}

func resolveEdgeOrder(s *graph.Snapshot, explicit []graph.Edge) ([]int, error) {
	m := s.EdgeCount()
	order := make([]int, 0, m)
	used := make([]bool, m)
	for _, e := range explicit {
		idx, err := s.EdgeIndex(e.Source, e.Target)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
		}
		if used[idx] {
			return nil, fmt.Errorf("%w: edge %s -- %s repeated", ErrInvalidOrder, e.Source, e.Target)
		}
		used[idx] = true
		order = append(order, idx)
	}
	for i := 0; i < m; i++ {
		if !used[i] {
			order = append(order, i)
		}
	}
	return order, nil
}

// unionFind is a disjoint-set forest with union by size and path halving.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// union merges the sets of a and b and returns the size of the result.
func (uf *unionFind) union(a, b int) int {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return uf.size[ra]
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	return uf.size[ra]
}
