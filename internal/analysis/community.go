package analysis

import (
	"fmt"
	"sort"

	"github.com/Benny93/netscope/internal/graph"
)

// modularityEpsilon is the smallest modularity gain that still triggers a merge.
const modularityEpsilon = 1e-12

// CommunityPartition is a grouping of nodes produced by greedy modularity
// maximisation.
//
// Communities are ordered by size, largest first, ties broken by the
// enumeration position of their first member. Members keep enumeration order.
type CommunityPartition struct {
	Communities [][]string `json:"communities"`
	Modularity  float64    `json:"modularity"`
	Merges      int        `json:"merges"`
	Weighted    bool       `json:"weighted"`
}

// Kind implements Result.
func (CommunityPartition) Kind() Kind { return KindCommunity }

// Count returns the number of communities.
func (p CommunityPartition) Count() int {
	return len(p.Communities)
}

// Membership maps every node to the index of its community.
func (p CommunityPartition) Membership() map[string]int {
	out := make(map[string]int)
	for i, c := range p.Communities {
		for _, id := range c {
			out[id] = i
		}
	}
	return out
}

// DetectCommunities partitions g by agglomerative modularity maximisation.
// Each node starts alone; the pair of adjacent communities with the largest
// modularity gain is merged until no merge increases modularity.
func DetectCommunities(g *graph.Graph, weighted bool) CommunityPartition {
	return detectCommunities(g.Snapshot(), weighted)
}

func detectCommunities(s *graph.Snapshot, weighted bool) CommunityPartition {
	n := s.NodeCount()
	members := make([][]int, n)
	for i := range members {
		members[i] = []int{i}
	}

	w := edgeWeightFunc(weighted)
	m := totalWeight(s, w)
	if m == 0 {
		return buildPartition(s, members, 0, 0, weighted)
	}

	alive := make([]bool, n)
	strength := make([]float64, n)
	between := make([]map[int]float64, n)
	for i := range between {
		alive[i] = true
		between[i] = make(map[int]float64)
	}
	for _, e := range s.Edges {
		ew := w(e)
		strength[e.U] += ew
		strength[e.V] += ew
		if e.U != e.V {
			between[e.U][e.V] += ew
			between[e.V][e.U] += ew
		}
	}

	merges := 0
	for {
		bestGain := 0.0
		bi, bj := -1, -1
		for i := 0; i < n; i++ {
			if !alive[i] {
				continue
			}
			for j, eij := range between[i] {
				if j <= i {
					continue
				}
				gain := eij/m - strength[i]*strength[j]/(2*m*m)
				if gain <= modularityEpsilon {
					continue
				}
				// Near-equal gains resolve to the lowest (i, j) pair.
				if bi < 0 || gain > bestGain+modularityEpsilon ||
					(gain >= bestGain-modularityEpsilon && (i < bi || (i == bi && j < bj))) {
					bestGain, bi, bj = gain, i, j
				}
			}
		}
		if bi < 0 {
			break
		}

		// j folds into i; the surviving community keeps the smaller index.
		for k, wk := range between[bj] {
			if k == bi {
				continue
			}
			between[bi][k] += wk
			between[k][bi] += wk
			delete(between[k], bj)
		}
		delete(between[bi], bj)
		between[bj] = nil
		strength[bi] += strength[bj]
		members[bi] = append(members[bi], members[bj]...)
		members[bj] = nil
		alive[bj] = false
		merges++
	}

	groups := make([][]int, 0, n-merges)
	for i := 0; i < n; i++ {
		if alive[i] {
			groups = append(groups, members[i])
		}
	}
	q := modularity(s, groups, w)
	return buildPartition(s, groups, q, merges, weighted)
}

func buildPartition(s *graph.Snapshot, groups [][]int, q float64, merges int, weighted bool) CommunityPartition {
	for _, g := range groups {
		sort.Ints(g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i]) != len(groups[j]) {
			return len(groups[i]) > len(groups[j])
		}
		return groups[i][0] < groups[j][0]
	})

	p := CommunityPartition{
		Communities: make([][]string, len(groups)),
		Modularity:  q,
		Merges:      merges,
		Weighted:    weighted,
	}
	for i, g := range groups {
		ids := make([]string, len(g))
		for j, idx := range g {
			ids[j] = s.IDs[idx]
		}
		p.Communities[i] = ids
	}
	return p
}

// Modularity scores an arbitrary partition of g:
//
//	Q = sum_c [ L_c/m - (d_c / 2m)^2 ]
//
// where L_c is the intra-community edge weight, d_c the summed degree of the
// community and m the total edge weight. Every node must appear in exactly
// one community. A graph without edges has Q = 0.
func Modularity(g *graph.Graph, communities [][]string, weighted bool) (float64, error) {
	s := g.Snapshot()
	seen := make([]bool, s.NodeCount())
	groups := make([][]int, 0, len(communities))
	covered := 0
	for _, c := range communities {
		group := make([]int, 0, len(c))
		for _, id := range c {
			idx, err := s.Lookup(id)
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrInvalidPartition, err)
			}
			if seen[idx] {
				return 0, fmt.Errorf("%w: node %s appears twice", ErrInvalidPartition, id)
			}
			seen[idx] = true
			covered++
			group = append(group, idx)
		}
		groups = append(groups, group)
	}
	if covered != s.NodeCount() {
		return 0, fmt.Errorf("%w: %d of %d nodes assigned", ErrInvalidPartition, covered, s.NodeCount())
	}
	return modularity(s, groups, edgeWeightFunc(weighted)), nil
}

func modularity(s *graph.Snapshot, groups [][]int, w func(graph.IndexedEdge) float64) float64 {
	m := totalWeight(s, w)
	if m == 0 {
		return 0
	}

	label := make([]int, s.NodeCount())
	for c, g := range groups {
		for _, idx := range g {
			label[idx] = c
		}
	}
	inner := make([]float64, len(groups))
	strength := make([]float64, len(groups))
	for _, e := range s.Edges {
		ew := w(e)
		strength[label[e.U]] += ew
		strength[label[e.V]] += ew
		if label[e.U] == label[e.V] {
			inner[label[e.U]] += ew
		}
	}

	var q float64
	for c := range groups {
		frac := strength[c] / (2 * m)
		q += inner[c]/m - frac*frac
	}
	return q
}

func edgeWeightFunc(weighted bool) func(graph.IndexedEdge) float64 {
	if weighted {
		return func(e graph.IndexedEdge) float64 { return e.Weight }
	}
	return func(graph.IndexedEdge) float64 { return 1 }
}

func totalWeight(s *graph.Snapshot, w func(graph.IndexedEdge) float64) float64 {
	var m float64
	for _, e := range s.Edges {
		m += w(e)
	}
	return m
}
