package analysis

import (
	"container/heap"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Benny93/netscope/internal/graph"
)

// Distance is a shortest-path length. Unreachable pairs carry
// Reachable=false and a zero Value.
type Distance struct {
	Value     float64
	Reachable bool
}

// MarshalJSON encodes an unreachable distance as null.
func (d Distance) MarshalJSON() ([]byte, error) {
	if !d.Reachable {
		return []byte("null"), nil
	}
	return json.Marshal(d.Value)
}

func (d Distance) String() string {
	if !d.Reachable {
		return "unreachable"
	}
	return fmt.Sprintf("%g", d.Value)
}

// DistanceTable holds all-pairs shortest-path lengths.
type DistanceTable struct {
	ids      []string
	index    map[string]int
	dist     [][]float64
	reach    [][]bool
	weighted bool
}

// Kind implements Result.
func (*DistanceTable) Kind() Kind { return KindShortestPaths }

// Nodes returns the node IDs in table order.
func (t *DistanceTable) Nodes() []string {
	out := make([]string, len(t.ids))
	copy(out, t.ids)
	return out
}

// Weighted reports whether the table was computed over edge weights.
func (t *DistanceTable) Weighted() bool {
	return t.weighted
}

// Lookup returns the distance between a and b.
func (t *DistanceTable) Lookup(a, b string) (Distance, error) {
	i, ok := t.index[a]
	if !ok {
		return Distance{}, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, a)
	}
	j, ok := t.index[b]
	if !ok {
		return Distance{}, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, b)
	}
	return t.at(i, j), nil
}

func (t *DistanceTable) at(i, j int) Distance {
	if !t.reach[i][j] {
		return Distance{}
	}
	return Distance{Value: t.dist[i][j], Reachable: true}
}

// Each calls fn for every ordered pair in table order.
func (t *DistanceTable) Each(fn func(a, b string, d Distance)) {
	for i, a := range t.ids {
		for j, b := range t.ids {
			fn(a, b, t.at(i, j))
		}
	}
}

// Eccentricity returns the longest finite shortest-path length from id.
func (t *DistanceTable) Eccentricity(id string) (float64, error) {
	i, ok := t.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
	}
	var ecc float64
	for j := range t.ids {
		if t.reach[i][j] && t.dist[i][j] > ecc {
			ecc = t.dist[i][j]
		}
	}
	return ecc, nil
}

// PathStats summarizes a distance table over ordered pairs of distinct nodes.
type PathStats struct {
	ReachablePairs   int     `json:"reachable_pairs"`
	UnreachablePairs int     `json:"unreachable_pairs"`
	Diameter         float64 `json:"diameter"`
	AverageLength    float64 `json:"average_length"`
}

// Stats computes reachability counts, the longest finite shortest path and
// the mean over reachable pairs.
func (t *DistanceTable) Stats() PathStats {
	var st PathStats
	var sum float64
	for i := range t.ids {
		for j := range t.ids {
			if i == j {
				continue
			}
			if !t.reach[i][j] {
				st.UnreachablePairs++
				continue
			}
			st.ReachablePairs++
			sum += t.dist[i][j]
			if t.dist[i][j] > st.Diameter {
				st.Diameter = t.dist[i][j]
			}
		}
	}
	if st.ReachablePairs > 0 {
		st.AverageLength = sum / float64(st.ReachablePairs)
	}
	return st
}

// MarshalJSON encodes the table as a node list plus a row-major matrix with
// null for unreachable pairs.
func (t *DistanceTable) MarshalJSON() ([]byte, error) {
	rows := make([][]Distance, len(t.ids))
	for i := range t.ids {
		row := make([]Distance, len(t.ids))
		for j := range t.ids {
			row[j] = t.at(i, j)
		}
		rows[i] = row
	}
	return json.Marshal(struct {
		Nodes     []string     `json:"nodes"`
		Weighted  bool         `json:"weighted"`
		Distances [][]Distance `json:"distances"`
		Stats     PathStats    `json:"stats"`
	}{t.ids, t.weighted, rows, t.Stats()})
}

// UnmarshalJSON restores a table encoded by MarshalJSON.
func (t *DistanceTable) UnmarshalJSON(data []byte) error {
	var raw struct {
		Nodes     []string     `json:"nodes"`
		Weighted  bool         `json:"weighted"`
		Distances [][]*float64 `json:"distances"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n := len(raw.Nodes)
	if len(raw.Distances) != n {
		return fmt.Errorf("distance table: %d rows for %d nodes", len(raw.Distances), n)
	}

	*t = DistanceTable{
		ids:      raw.Nodes,
		index:    make(map[string]int, n),
		dist:     make([][]float64, n),
		reach:    make([][]bool, n),
		weighted: raw.Weighted,
	}
	for i, id := range raw.Nodes {
		t.index[id] = i
		if len(raw.Distances[i]) != n {
			return fmt.Errorf("distance table: row %d has %d entries", i, len(raw.Distances[i]))
		}
		t.dist[i] = make([]float64, n)
		t.reach[i] = make([]bool, n)
		for j, d := range raw.Distances[i] {
			if d != nil {
				t.dist[i][j] = *d
				t.reach[i][j] = true
			}
		}
	}
	return nil
}

// AllPairsShortestPaths computes all-pairs shortest-path lengths. Hop counts
// are used unless weighted is set.
func AllPairsShortestPaths(ctx context.Context, g *graph.Graph, weighted bool) (*DistanceTable, error) {
	return allPairs(ctx, g.Snapshot(), weighted)
}

// ShortestPathLength returns the distance between a single pair.
func ShortestPathLength(g *graph.Graph, a, b string, weighted bool) (Distance, error) {
	s := g.Snapshot()
	src, err := s.Lookup(a)
	if err != nil {
		return Distance{}, err
	}
	dst, err := s.Lookup(b)
	if err != nil {
		return Distance{}, err
	}
	tree := newPathTree(s.NodeCount())
	tree.build(s, src, weighted)
	if tree.dist[dst] < 0 {
		return Distance{}, nil
	}
	return Distance{Value: tree.dist[dst], Reachable: true}, nil
}

func allPairs(ctx context.Context, s *graph.Snapshot, weighted bool) (*DistanceTable, error) {
	n := s.NodeCount()
	t := &DistanceTable{
		ids:      s.IDs,
		index:    s.Index,
		dist:     make([][]float64, n),
		reach:    make([][]bool, n),
		weighted: weighted,
	}

	tree := newPathTree(n)
	for src := 0; src < n; src++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree.build(s, src, weighted)
		row := make([]float64, n)
		reach := make([]bool, n)
		for v, d := range tree.dist {
			if d >= 0 {
				row[v] = d
				reach[v] = true
			}
		}
		t.dist[src] = row
		t.reach[src] = reach
	}
	return t, nil
}

// pathTree is the shortest-path DAG rooted at one source: distances, path
// counts, predecessors and the order in which nodes were settled. Buffers
// are reused across sources.
type pathTree struct {
	dist    []float64
	sigma   []float64
	preds   [][]int
	order   []int
	settled []bool
	queue   distanceHeap
}

func newPathTree(n int) *pathTree {
	return &pathTree{
		dist:    make([]float64, n),
		sigma:   make([]float64, n),
		preds:   make([][]int, n),
		order:   make([]int, 0, n),
		settled: make([]bool, n),
	}
}

func (t *pathTree) reset(src int) {
	for i := range t.dist {
		t.dist[i] = -1
		t.sigma[i] = 0
		t.preds[i] = t.preds[i][:0]
		t.settled[i] = false
	}
	t.order = t.order[:0]
	t.dist[src] = 0
	t.sigma[src] = 1
}

func (t *pathTree) build(s *graph.Snapshot, src int, weighted bool) {
	t.reset(src)
	if weighted {
		t.dijkstra(s, src)
	} else {
		t.bfs(s, src)
	}
}

func (t *pathTree) bfs(s *graph.Snapshot, src int) {
	t.order = append(t.order, src)
	for qi := 0; qi < len(t.order); qi++ {
		u := t.order[qi]
		for _, nb := range s.Adjacency[u] {
			v := nb.Node
			if t.dist[v] < 0 {
				t.dist[v] = t.dist[u] + 1
				t.order = append(t.order, v)
			}
			if t.dist[v] == t.dist[u]+1 {
				t.sigma[v] += t.sigma[u]
				t.preds[v] = append(t.preds[v], u)
			}
		}
	}
}

func (t *pathTree) dijkstra(s *graph.Snapshot, src int) {
	t.queue = t.queue[:0]
	heap.Push(&t.queue, distanceItem{node: src, dist: 0})

	for t.queue.Len() > 0 {
		item := heap.Pop(&t.queue).(distanceItem)
		u := item.node
		if t.settled[u] || item.dist > t.dist[u] {
			continue
		}
		t.settled[u] = true
		t.order = append(t.order, u)

		for _, nb := range s.Adjacency[u] {
			v := nb.Node
			// A settled v is never a successor, even across a zero-weight tie.
			if t.settled[v] {
				continue
			}
			nd := t.dist[u] + nb.Weight
			switch {
			case t.dist[v] < 0 || nd < t.dist[v]:
				t.dist[v] = nd
				t.sigma[v] = t.sigma[u]
				t.preds[v] = append(t.preds[v][:0], u)
				heap.Push(&t.queue, distanceItem{node: v, dist: nd})
			case nd == t.dist[v]:
				t.sigma[v] += t.sigma[u]
				t.preds[v] = append(t.preds[v], u)
			}
		}
	}
}

type distanceItem struct {
	node int
	dist float64
}

// distanceHeap is a min-heap on distance with node index as tie-breaker.
type distanceHeap []distanceItem

func (h distanceHeap) Len() int { return len(h) }
func (h distanceHeap) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	return h[i].node < h[j].node
}
func (h distanceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *distanceHeap) Push(x any) { *h = append(*h, x.(distanceItem)) }

func (h *distanceHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
