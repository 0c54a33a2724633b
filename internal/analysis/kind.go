// Package analysis implements the netscope graph analysis engine.
//
// Every analyzer takes a *graph.Graph as an explicit argument, reads it
// through an immutable graph.Snapshot, and returns a plain result value.
// Nothing in this package mutates the caller's graph or holds state between
// calls.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Benny93/netscope/internal/graph"
)

var (
	// ErrInsufficientGraphSize is returned when a measure is undefined for
	// the graph's node count.
	ErrInsufficientGraphSize = errors.New("insufficient graph size")

	// ErrUnknownAnalysis is returned for an analysis name that maps to no Kind.
	ErrUnknownAnalysis = errors.New("unknown analysis")

	// ErrInvalidPartition is returned when a community partition does not
	// cover every node exactly once.
	ErrInvalidPartition = errors.New("invalid partition")
)

// Kind enumerates the analyses the engine can run.
type Kind int

const (
	KindDegree Kind = iota
	KindConnectivity
	KindShortestPaths
	KindCentrality
	KindCommunity
	KindRobustness
	KindTopology
	KindGrowth
)

var kindNames = [...]string{
	KindDegree:        "degree",
	KindConnectivity:  "connectivity",
	KindShortestPaths: "shortest_paths",
	KindCentrality:    "centrality",
	KindCommunity:     "community",
	KindRobustness:    "robustness",
	KindTopology:      "topology",
	KindGrowth:        "growth",
}

// kindAliases maps alternate spellings accepted by ParseKind.
var kindAliases = map[string]Kind{
	"shortest-paths":    KindShortestPaths,
	"paths":             KindShortestPaths,
	"ml":                KindCommunity,
	"communities":       KindCommunity,
	"topology detector": KindTopology,
	"topology-detector": KindTopology,
	"dynamic":           KindGrowth,
}

// AllKinds returns every Kind in declaration order.
func AllKinds() []Kind {
	kinds := make([]Kind, len(kindNames))
	for i := range kindNames {
		kinds[i] = Kind(i)
	}
	return kinds
}

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAnalysis, int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps an analysis name to its Kind. Matching ignores case and
// surrounding whitespace.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i, n := range kindNames {
		if n == normalized {
			return Kind(i), nil
		}
	}
	if k, ok := kindAliases[normalized]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAnalysis, name)
}

// ParseKinds parses a list of names, or returns AllKinds when names is empty.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return AllKinds(), nil
	}
	kinds := make([]Kind, 0, len(names))
	seen := make(map[Kind]bool, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}

// Options tunes the analyses run through Run.
type Options struct {
	// Weighted switches path-based measures and modularity from hop
	// counts to edge weights.
	Weighted bool

	// HistogramBins is the number of equal-width degree histogram bins.
	HistogramBins int

	// NodeOrder and EdgeOrder override the robustness removal orders.
	NodeOrder []string
	EdgeOrder []graph.Edge

	// GrowthSamples caps the number of growth points; zero keeps all.
	GrowthSamples int
}

// DefaultHistogramBins matches the bin count of the classic degree plot.
const DefaultHistogramBins = 20

// Result is implemented by every analysis result type.
type Result interface {
	Kind() Kind
}

// Run dispatches one analysis over g.
func Run(ctx context.Context, kind Kind, g *graph.Graph, opts Options) (Result, error) {
	return RunSnapshot(ctx, kind, g.Snapshot(), opts)
}

// RunSnapshot dispatches one analysis over an existing snapshot, which lets
// several analyses share a single read of the graph.
func RunSnapshot(ctx context.Context, kind Kind, s *graph.Snapshot, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch kind {
	case KindDegree:
		bins := opts.HistogramBins
		if bins <= 0 {
			bins = DefaultHistogramBins
		}
		return degreeDistribution(s, bins), nil
	case KindConnectivity:
		return componentsOf(s), nil
	case KindShortestPaths:
		return allPairs(ctx, s, opts.Weighted)
	case KindCentrality:
		return centrality(ctx, s, opts.Weighted)
	case KindCommunity:
		return detectCommunities(s, opts.Weighted), nil
	case KindRobustness:
		return robustness(ctx, s, RobustnessOptions{NodeOrder: opts.NodeOrder, EdgeOrder: opts.EdgeOrder})
	case KindTopology:
		return classifySnapshot(s), nil
	case KindGrowth:
		return growth(s, opts.GrowthSamples), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAnalysis, kind)
	}
}

// DecodeResult decodes the JSON encoding of a result of the given kind.
func DecodeResult(kind Kind, data []byte) (Result, error) {
	var res Result
	switch kind {
	case KindDegree:
		res = &DegreeDistribution{}
	case KindConnectivity:
		res = &ComponentPartition{}
	case KindShortestPaths:
		res = &DistanceTable{}
	case KindCentrality:
		res = &CentralityScores{}
	case KindCommunity:
		res = &CommunityPartition{}
	case KindRobustness:
		res = &RobustnessCurve{}
	case KindTopology:
		res = &Topology{}
	case KindGrowth:
		res = &GrowthSeries{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAnalysis, kind)
	}
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", kind, err)
	}
	return deref(res), nil
}

// deref returns value results by value so decoded results compare equal to
// freshly computed ones.
func deref(res Result) Result {
	switch r := res.(type) {
	case *DegreeDistribution:
		return *r
	case *ComponentPartition:
		return *r
	case *CentralityScores:
		return *r
	case *CommunityPartition:
		return *r
	case *RobustnessCurve:
		return *r
	case *Topology:
		return *r
	case *GrowthSeries:
		return *r
	default:
		return res
	}
}
