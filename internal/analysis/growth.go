package analysis

import "github.com/Benny93/netscope/internal/graph"

// GrowthPoint is the size of the graph after its first Step edges.
type GrowthPoint struct {
	Step  int `json:"step"`
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// GrowthSeries replays edge insertion in enumeration order.
type GrowthSeries struct {
	Points []GrowthPoint `json:"points"`
}

// Kind implements Result.
func (GrowthSeries) Kind() Kind { return KindGrowth }

// Growth replays the edges of g in order and records node and edge counts.
// When samples is positive and smaller than the edge count, points are
// spread evenly and the final step is always included.
func Growth(g *graph.Graph, samples int) GrowthSeries {
	return growth(g.Snapshot(), samples)
}

func growth(s *graph.Snapshot, samples int) GrowthSeries {
	e := s.EdgeCount()
	series := GrowthSeries{Points: []GrowthPoint{{}}}
	if e == 0 {
		return series
	}

	seen := make([]bool, s.NodeCount())
	nodes := 0
	next := 1
	for i, edge := range s.Edges {
		for _, v := range [2]int{edge.U, edge.V} {
			if !seen[v] {
				seen[v] = true
				nodes++
			}
		}
		step := i + 1
		if samples > 0 && samples < e {
			if step < e && step*samples < next*e {
				continue
			}
			next++
		}
		series.Points = append(series.Points, GrowthPoint{Step: step, Nodes: nodes, Edges: step})
	}
	return series
}
