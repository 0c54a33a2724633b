package graph

import (
	"fmt"
	"math"
	"sync"
)

// Graph is an in-memory weighted undirected graph.
//
// Nodes are keyed by their ID string and enumerated in insertion order.
// Edges are keyed by their unordered endpoint pair and enumerated in the
// order the pair was first added; overwriting an edge's weight keeps its
// position. Removing a node cascades to every edge incident to it.
//
// All methods are safe for concurrent use. Mutations take the write lock,
// so they never interleave with a read or a Snapshot.
type Graph struct {
	mu sync.RWMutex

	nodes     map[string]struct{}
	nodeOrder []string

	edges     map[pairKey]*Edge
	edgeOrder []pairKey

	// adjacency[a][b] points at the shared edge record for {a,b}.
	adjacency map[string]map[string]*Edge

	revision uint64
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[string]struct{}),
		edges:     make(map[pairKey]*Edge),
		adjacency: make(map[string]map[string]*Edge),
	}
}

// Revision returns a counter that increases on every mutation.
func (g *Graph) Revision() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.revision
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges, self-loops included.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// AddNode inserts a node if it does not exist yet.
func (g *Graph) AddNode(id string) error {
	if id == "" {
		return ErrEmptyNodeID
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ensureNode(id) {
		g.revision++
	}
	return nil
}

// AddEdge inserts the edge {a,b} or overwrites its weight, creating both
// endpoints when missing.
func (g *Graph) AddEdge(a, b string, weight float64) error {
	if a == "" || b == "" {
		return ErrEmptyNodeID
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.ensureNode(a)
	g.ensureNode(b)

	key := keyOf(a, b)
	if existing, ok := g.edges[key]; ok {
		existing.Weight = weight
		g.revision++
		return nil
	}

	edge := &Edge{Source: a, Target: b, Weight: weight}
	g.edges[key] = edge
	g.edgeOrder = append(g.edgeOrder, key)
	g.adjacency[a][b] = edge
	g.adjacency[b][a] = edge
	g.revision++
	return nil
}

// AddUnweightedEdge inserts the edge {a,b} with DefaultWeight.
func (g *Graph) AddUnweightedEdge(a, b string) error {
	return g.AddEdge(a, b, DefaultWeight)
}

// HasNode reports whether the node exists.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether the edge {a,b} exists.
func (g *Graph) HasEdge(a, b string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.edges[keyOf(a, b)]
	return ok
}

// Weight returns the weight of the edge {a,b}.
func (g *Graph) Weight(a, b string) (float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edge, ok := g.edges[keyOf(a, b)]
	if !ok {
		return 0, fmt.Errorf("%w: %s -- %s", ErrEdgeNotFound, a, b)
	}
	return edge.Weight, nil
}

// Nodes returns the node IDs in insertion order.
func (g *Graph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]string, len(g.nodeOrder))
	copy(result, g.nodeOrder)
	return result
}

// Edges returns copies of all edges in first-insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		result = append(result, *g.edges[key])
	}
	return result
}

// Neighbors returns the nodes adjacent to id, excluding id itself, in
// insertion order.
func (g *Graph) Neighbors(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	adj := g.adjacency[id]
	result := make([]string, 0, len(adj))
	for _, other := range g.nodeOrder {
		if other == id {
			continue
		}
		if _, ok := adj[other]; ok {
			result = append(result, other)
		}
	}
	return result, nil
}

// Degree returns the number of edges incident to id. A self-loop counts twice.
func (g *Graph) Degree(id string) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return g.degreeLocked(id), nil
}

// Degrees returns the degree of every node.
func (g *Graph) Degrees() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		result[id] = g.degreeLocked(id)
	}
	return result
}

// RemoveNode deletes a node and every edge incident to it.
func (g *Graph) RemoveNode(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	for other := range g.adjacency[id] {
		g.deleteEdgeLocked(keyOf(id, other))
	}
	delete(g.adjacency, id)
	delete(g.nodes, id)
	g.nodeOrder = removeString(g.nodeOrder, id)
	g.revision++
	return nil
}

// RemoveEdge deletes the edge {a,b}. Both endpoints stay in the graph.
func (g *Graph) RemoveEdge(a, b string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := keyOf(a, b)
	if _, ok := g.edges[key]; !ok {
		return fmt.Errorf("%w: %s -- %s", ErrEdgeNotFound, a, b)
	}
	g.deleteEdgeLocked(key)
	g.revision++
	return nil
}

// Clone returns a deep copy that shares no state with g.
func (g *Graph) Clone() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c := New()
	for _, id := range g.nodeOrder {
		c.ensureNode(id)
	}
	for _, key := range g.edgeOrder {
		e := *g.edges[key]
		edge := &e
		c.edges[key] = edge
		c.edgeOrder = append(c.edgeOrder, key)
		c.adjacency[e.Source][e.Target] = edge
		c.adjacency[e.Target][e.Source] = edge
	}
	c.revision = g.revision
	return c
}

// ensureNode adds id when missing and reports whether it was added.
// Must be called with the write lock held.
func (g *Graph) ensureNode(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return false
	}
	g.nodes[id] = struct{}{}
	g.nodeOrder = append(g.nodeOrder, id)
	g.adjacency[id] = make(map[string]*Edge)
	return true
}

// degreeLocked must be called with at least the read lock held.
func (g *Graph) degreeLocked(id string) int {
	adj := g.adjacency[id]
	degree := len(adj)
	if _, loop := adj[id]; loop {
		degree++
	}
	return degree
}

// deleteEdgeLocked must be called with the write lock held.
func (g *Graph) deleteEdgeLocked(key pairKey) {
	delete(g.edges, key)
	delete(g.adjacency[key.lo], key.hi)
	delete(g.adjacency[key.hi], key.lo)
	for i, k := range g.edgeOrder {
		if k == key {
			g.edgeOrder = append(g.edgeOrder[:i], g.edgeOrder[i+1:]...)
			break
		}
	}
}

func removeString(list []string, value string) []string {
	for i, v := range list {
		if v == value {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
