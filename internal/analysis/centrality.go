package analysis

import (
	"context"
	"sort"

	"github.com/Benny93/netscope/internal/graph"
)

// Measure is one centrality measure over all nodes. Defined is false when
// the measure has no meaning for the graph size, in which case Values is empty.
type Measure struct {
	Values  map[string]float64 `json:"values"`
	Defined bool               `json:"defined"`
}

// RankedNode pairs a node with its score.
type RankedNode struct {
	Node  string  `json:"node"`
	Score float64 `json:"score"`
}

// Top returns the k highest-scoring nodes, ties broken by node ID.
// A non-positive k returns every node.
func (m Measure) Top(k int) []RankedNode {
	ranked := make([]RankedNode, 0, len(m.Values))
	for id, v := range m.Values {
		ranked = append(ranked, RankedNode{Node: id, Score: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Node < ranked[j].Node
	})
	if k > 0 && k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// CentralityScores holds the three node centrality measures.
type CentralityScores struct {
	Degree      Measure `json:"degree"`
	Closeness   Measure `json:"closeness"`
	Betweenness Measure `json:"betweenness"`
	Weighted    bool    `json:"weighted"`
}

// Kind implements Result.
func (CentralityScores) Kind() Kind { return KindCentrality }

// Centrality computes degree, closeness and betweenness centrality.
//
// Weighted betweenness counts shortest paths on the predecessor DAG of each
// source. A zero-weight edge joining two nodes at the same distance would
// make that graph cyclic, so such an edge is counted in one direction only,
// following settle order. Distances and closeness stay exact; betweenness on
// those ties may differ from a count over all simple paths.
func Centrality(ctx context.Context, g *graph.Graph, weighted bool) (CentralityScores, error) {
	return centrality(ctx, g.Snapshot(), weighted)
}

func centrality(ctx context.Context, s *graph.Snapshot, weighted bool) (CentralityScores, error) {
	n := s.NodeCount()
	scores := CentralityScores{
		Degree:      degreeCentrality(s),
		Closeness:   Measure{Values: make(map[string]float64, n), Defined: n > 0},
		Betweenness: Measure{Values: make(map[string]float64, n), Defined: true},
		Weighted:    weighted,
	}

	bc := make([]float64, n)
	delta := make([]float64, n)
	tree := newPathTree(n)

	// Brandes: one shortest-path DAG per source, then dependencies are
	// accumulated in reverse settle order.
	for src := 0; src < n; src++ {
		if err := ctx.Err(); err != nil {
			return CentralityScores{}, err
		}
		tree.build(s, src, weighted)

		var total float64
		for _, v := range tree.order {
			total += tree.dist[v]
		}
		if reached := len(tree.order); total > 0 {
			scores.Closeness.Values[s.IDs[src]] = float64(reached-1) / total
		} else {
			scores.Closeness.Values[s.IDs[src]] = 0
		}

		for _, v := range tree.order {
			delta[v] = 0
		}
		for i := len(tree.order) - 1; i >= 0; i-- {
			w := tree.order[i]
			coeff := (1 + delta[w]) / tree.sigma[w]
			for _, v := range tree.preds[w] {
				delta[v] += tree.sigma[v] * coeff
			}
			if w != src {
				bc[w] += delta[w]
			}
		}
	}

	// Each unordered pair was counted from both ends; dividing by
	// (n-1)(n-2) halves that and scales to [0,1].
	scale := 0.0
	if n > 2 {
		scale = 1 / float64((n-1)*(n-2))
	}
	for i, id := range s.IDs {
		scores.Betweenness.Values[id] = bc[i] * scale
	}
	return scores, nil
}

func degreeCentrality(s *graph.Snapshot) Measure {
	n := s.NodeCount()
	if n <= 1 {
		return Measure{Values: map[string]float64{}, Defined: false}
	}
	m := Measure{Values: make(map[string]float64, n), Defined: true}
	norm := 1 / float64(n-1)
	for i, id := range s.IDs {
		m.Values[id] = float64(s.Degrees[i]) * norm
	}
	return m
}
