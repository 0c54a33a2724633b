// Package graph provides the weighted undirected graph data model for netscope.
//
// It defines the edge type, the sentinel errors shared by every graph
// operation, and the canonical key used to store an unordered node pair.
package graph

import (
	"errors"
	"fmt"
)

// DefaultWeight is the weight used by AddUnweightedEdge.
const DefaultWeight = 1.0

var (
	// ErrNodeNotFound is returned when an operation references an absent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when an operation references an absent edge.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrEmptyNodeID is returned when a node ID is the empty string.
	ErrEmptyNodeID = errors.New("empty node id")

	// ErrInvalidWeight is returned for negative, NaN or infinite edge weights.
	ErrInvalidWeight = errors.New("invalid edge weight")
)

// Edge is an undirected, weighted connection between two nodes.
//
// Source and Target carry the endpoints in the order they were first added;
// the edge (a,b) is the same edge as (b,a).
type Edge struct {
	// Source is the first endpoint as originally added.
	Source string `json:"source"`

	// Target is the second endpoint as originally added.
	Target string `json:"target"`

	// Weight is the non-negative edge weight.
	Weight float64 `json:"weight"`
}

// IsLoop reports whether the edge connects a node to itself.
func (e Edge) IsLoop() bool {
	return e.Source == e.Target
}

// String formats the edge as "a -- b (w)".
func (e Edge) String() string {
	return fmt.Sprintf("%s -- %s (%g)", e.Source, e.Target, e.Weight)
}

// pairKey identifies an unordered node pair.
type pairKey struct {
	lo, hi string
}

func keyOf(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}
