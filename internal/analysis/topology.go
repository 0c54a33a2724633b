package analysis

import (
	"fmt"

	"github.com/Benny93/netscope/internal/graph"
)

// TopologyLabel is a coarse structural class of a graph.
type TopologyLabel int

const (
	TopologyUnknown TopologyLabel = iota
	TopologyFullyConnected
	TopologyRing
	TopologyMesh
	TopologyTree
	TopologyStar
)

var topologyNames = [...]string{
	TopologyUnknown:        "Unknown",
	TopologyFullyConnected: "Fully Connected",
	TopologyRing:           "Ring",
	TopologyMesh:           "Mesh",
	TopologyTree:           "Tree",
	TopologyStar:           "Star",
}

func (l TopologyLabel) String() string {
	if l < 0 || int(l) >= len(topologyNames) {
		return fmt.Sprintf("topology(%d)", int(l))
	}
	return topologyNames[l]
}

// MarshalText implements encoding.TextMarshaler.
func (l TopologyLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *TopologyLabel) UnmarshalText(text []byte) error {
	for i, name := range topologyNames {
		if name == string(text) {
			*l = TopologyLabel(i)
			return nil
		}
	}
	return fmt.Errorf("unknown topology %q", text)
}

// Topology is the classification of a graph together with the figures it
// was derived from.
type Topology struct {
	Label TopologyLabel `json:"label"`
	Nodes int           `json:"nodes"`
	Edges int           `json:"edges"`

	// AverageDegree is nil for a graph without nodes, where it is undefined.
	AverageDegree *float64 `json:"average_degree"`

	IsTree bool `json:"is_tree"`
}

// Kind implements Result.
func (Topology) Kind() Kind { return KindTopology }

// ClassifyTopology assigns g one topology label.
func ClassifyTopology(g *graph.Graph) Topology {
	return classifySnapshot(g.Snapshot())
}

func classifySnapshot(s *graph.Snapshot) Topology {
	n, e := s.NodeCount(), s.EdgeCount()
	tree := n > 0 && e == n-1 && len(componentIndexes(s)) == 1
	t := Topology{
		Label:  Classify(n, e, s.Degrees, tree),
		Nodes:  n,
		Edges:  e,
		IsTree: tree,
	}
	if n > 0 {
		sum := 0
		for _, d := range s.Degrees {
			sum += d
		}
		avg := float64(sum) / float64(n)
		t.AverageDegree = &avg
	}
	return t
}

// Classify applies the topology rules in a fixed order and returns the
// first that matches. The predicates overlap, so the order is significant.
//
//	N <= 1                         Unknown
//	E == N(N-1)/2                  Fully Connected
//	E == N, average degree == 2    Ring
//	E == N-1, max degree == N-1    Star
//	E == N-1, acyclic, connected   Tree
//	average degree > (N-1)/2       Mesh
//	otherwise                      Unknown
func Classify(n, e int, degrees []int, acyclicConnected bool) TopologyLabel {
	if n <= 1 {
		return TopologyUnknown
	}

	sum, maxDegree := 0, 0
	for _, d := range degrees {
		sum += d
		if d > maxDegree {
			maxDegree = d
		}
	}

	switch {
	case e == n*(n-1)/2:
		return TopologyFullyConnected
	case e == n && sum == 2*n:
		return TopologyRing
	case e == n-1 && maxDegree == n-1:
		return TopologyStar
	case e == n-1 && acyclicConnected:
		return TopologyTree
	case 2*sum > n*(n-1):
		// sum/n > (n-1)/2 kept in integers.
		return TopologyMesh
	default:
		return TopologyUnknown
	}
}
