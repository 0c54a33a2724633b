package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// Neighbor is one entry of a snapshot adjacency list.
type Neighbor struct {
	// Node is the index of the adjacent node.
	Node int

	// Weight is the weight of the connecting edge.
	Weight float64

	// Edge is the index of the connecting edge in Snapshot.Edges.
	Edge int
}

// IndexedEdge is an edge expressed with node indexes.
type IndexedEdge struct {
	U, V   int
	Weight float64
}

// Snapshot is an immutable, index-based view of a graph at one revision.
//
// Node i is IDs[i]; nodes and edges keep the enumeration order of the graph
// they were taken from. Adjacency lists exclude self-loops, which only
// contribute to Degrees, Edges and TotalWeight.
type Snapshot struct {
	IDs         []string
	Index       map[string]int
	Edges       []IndexedEdge
	Adjacency   [][]Neighbor
	Degrees     []int
	TotalWeight float64
	Revision    uint64
}

// Snapshot captures the current state of the graph under the read lock.
func (g *Graph) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.nodeOrder)
	s := &Snapshot{
		IDs:       make([]string, n),
		Index:     make(map[string]int, n),
		Edges:     make([]IndexedEdge, 0, len(g.edgeOrder)),
		Adjacency: make([][]Neighbor, n),
		Degrees:   make([]int, n),
		Revision:  g.revision,
	}
	copy(s.IDs, g.nodeOrder)
	for i, id := range s.IDs {
		s.Index[id] = i
	}

	for _, key := range g.edgeOrder {
		e := g.edges[key]
		u, v := s.Index[e.Source], s.Index[e.Target]
		idx := len(s.Edges)
		s.Edges = append(s.Edges, IndexedEdge{U: u, V: v, Weight: e.Weight})
		s.TotalWeight += e.Weight
		s.Degrees[u]++
		s.Degrees[v]++
		if u == v {
			continue
		}
		s.Adjacency[u] = append(s.Adjacency[u], Neighbor{Node: v, Weight: e.Weight, Edge: idx})
		s.Adjacency[v] = append(s.Adjacency[v], Neighbor{Node: u, Weight: e.Weight, Edge: idx})
	}

	return s
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int {
	return len(s.IDs)
}

// EdgeCount returns the number of edges in the snapshot, self-loops included.
func (s *Snapshot) EdgeCount() int {
	return len(s.Edges)
}

// Lookup returns the index of a node ID.
func (s *Snapshot) Lookup(id string) (int, error) {
	i, ok := s.Index[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return i, nil
}

// EdgeIndex returns the index of the edge {a,b}.
func (s *Snapshot) EdgeIndex(a, b string) (int, error) {
	u, okU := s.Index[a]
	v, okV := s.Index[b]
	if okU && okV {
		if u == v {
			for i, e := range s.Edges {
				if e.U == u && e.V == u {
					return i, nil
				}
			}
		}
		for _, nb := range s.Adjacency[u] {
			if nb.Node == v {
				return nb.Edge, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s -- %s", ErrEdgeNotFound, a, b)
}

// OrderFingerprint hashes the graph in enumeration order. Graphs with equal
// content but a different insertion order hash differently, which matters
// for every result that follows enumeration order.
func (s *Snapshot) OrderFingerprint() string {
	h := sha256.New()
	for _, id := range s.IDs {
		fmt.Fprintf(h, "n %q\n", id)
	}
	for _, e := range s.Edges {
		fmt.Fprintf(h, "e %d %d %s\n", e.U, e.V, strconv.FormatFloat(e.Weight, 'g', -1, 64))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a content hash of the graph that does not depend on
// insertion order.
func (s *Snapshot) Fingerprint() string {
	lines := make([]string, 0, len(s.Edges)+len(s.IDs))
	for _, e := range s.Edges {
		a, b := s.IDs[e.U], s.IDs[e.V]
		if a > b {
			a, b = b, a
		}
		lines = append(lines, "e\x00"+a+"\x00"+b+"\x00"+strconv.FormatFloat(e.Weight, 'g', -1, 64))
	}
	for i, id := range s.IDs {
		if s.Degrees[i] == 0 {
			lines = append(lines, "n\x00"+id)
		}
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
