package analysis

import (
	"sort"

	"github.com/Benny93/netscope/internal/graph"
)

// ComponentPartition is the set of connected components of a graph.
//
// Components are ordered by size, largest first, with ties broken by the
// enumeration position of their first node. Members keep enumeration order.
type ComponentPartition struct {
	Components [][]string `json:"components"`
}

// Kind implements Result.
func (ComponentPartition) Kind() Kind { return KindConnectivity }

// Count returns the number of components.
func (p ComponentPartition) Count() int {
	return len(p.Components)
}

// LargestComponentSize returns the size of the giant component, or 0 for an
// empty graph.
func (p ComponentPartition) LargestComponentSize() int {
	if len(p.Components) == 0 {
		return 0
	}
	return len(p.Components[0])
}

// Sizes returns the component sizes in partition order.
func (p ComponentPartition) Sizes() []int {
	sizes := make([]int, len(p.Components))
	for i, c := range p.Components {
		sizes[i] = len(c)
	}
	return sizes
}

// ConnectedComponents partitions the nodes of g into connected components.
func ConnectedComponents(g *graph.Graph) ComponentPartition {
	return componentsOf(g.Snapshot())
}

// IsConnected reports whether g has exactly one component.
func IsConnected(g *graph.Graph) bool {
	return ConnectedComponents(g).Count() == 1
}

func componentsOf(s *graph.Snapshot) ComponentPartition {
	groups := componentIndexes(s)
	result := ComponentPartition{Components: make([][]string, len(groups))}
	for i, group := range groups {
		ids := make([]string, len(group))
		for j, idx := range group {
			ids[j] = s.IDs[idx]
		}
		result.Components[i] = ids
	}
	return result
}

// componentIndexes runs a BFS from every unvisited node in enumeration order.
func componentIndexes(s *graph.Snapshot) [][]int {
	n := s.NodeCount()
	seen := make([]bool, n)
	var groups [][]int

	for start := 0; start < n; start++ {
		if seen[start] {
			continue
		}
		seen[start] = true
		queue := []int{start}
		for qi := 0; qi < len(queue); qi++ {
			for _, nb := range s.Adjacency[queue[qi]] {
				if !seen[nb.Node] {
					seen[nb.Node] = true
					queue = append(queue, nb.Node)
				}
			}
		}
		sort.Ints(queue)
		groups = append(groups, queue)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i]) > len(groups[j])
	})
	return groups
}

// DegreeCount is one row of the exact degree frequency table.
type DegreeCount struct {
	Degree int `json:"degree"`
	Count  int `json:"count"`
}

// HistogramBin is one equal-width bucket of the degree histogram.
// A bin covers [Low, High); the last bin also includes High.
type HistogramBin struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count int     `json:"count"`
}

// DegreeDistribution holds per-node degrees and their frequencies.
type DegreeDistribution struct {
	Degrees   map[string]int `json:"degrees"`
	Frequency []DegreeCount  `json:"frequency"`
	Bins      []HistogramBin `json:"bins"`
	Nodes     int            `json:"nodes"`
	Edges     int            `json:"edges"`
	MinDegree int            `json:"min_degree"`
	MaxDegree int            `json:"max_degree"`
	Sum       int            `json:"degree_sum"`
}

// Kind implements Result.
func (DegreeDistribution) Kind() Kind { return KindDegree }

// Average returns the mean degree. It is undefined for a graph without nodes.
func (d DegreeDistribution) Average() (float64, error) {
	if d.Nodes == 0 {
		return 0, ErrInsufficientGraphSize
	}
	return float64(d.Sum) / float64(d.Nodes), nil
}

// Degrees computes the degree distribution of g with the given bin count.
func Degrees(g *graph.Graph, bins int) DegreeDistribution {
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	return degreeDistribution(g.Snapshot(), bins)
}

func degreeDistribution(s *graph.Snapshot, bins int) DegreeDistribution {
	n := s.NodeCount()
	d := DegreeDistribution{
		Degrees: make(map[string]int, n),
		Nodes:   n,
		Edges:   s.EdgeCount(),
	}
	if n == 0 {
		return d
	}

	counts := make(map[int]int)
	d.MinDegree = s.Degrees[0]
	d.MaxDegree = s.Degrees[0]
	for i, deg := range s.Degrees {
		d.Degrees[s.IDs[i]] = deg
		counts[deg]++
		d.Sum += deg
		if deg < d.MinDegree {
			d.MinDegree = deg
		}
		if deg > d.MaxDegree {
			d.MaxDegree = deg
		}
	}

	for deg, c := range counts {
		d.Frequency = append(d.Frequency, DegreeCount{Degree: deg, Count: c})
	}
	sort.Slice(d.Frequency, func(i, j int) bool {
		return d.Frequency[i].Degree < d.Frequency[j].Degree
	})

	d.Bins = histogram(s.Degrees, d.MinDegree, d.MaxDegree, bins)
	return d
}

// histogram buckets values into equal-width bins over [lo, hi]. A degenerate
// range is widened by half a unit on each side.
func histogram(values []int, lo, hi, bins int) []HistogramBin {
	low, high := float64(lo), float64(hi)
	if lo == hi {
		low -= 0.5
		high += 0.5
	}
	width := (high - low) / float64(bins)

	result := make([]HistogramBin, bins)
	for i := range result {
		result[i].Low = low + float64(i)*width
		result[i].High = low + float64(i+1)*width
	}
	result[bins-1].High = high

	for _, v := range values {
		idx := int((float64(v) - low) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		result[idx].Count++
	}
	return result
}
