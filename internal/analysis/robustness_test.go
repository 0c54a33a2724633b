package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/netscope/internal/graph"
)

func TestRobustness_Triangle(t *testing.T) {
	t.Parallel()

	curve, err := Robustness(context.Background(), buildGraph(t, triangle), RobustnessOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, curve.NodeOrder)
	assert.InDeltaSlice(t, []float64{1, 2.0 / 3.0, 1.0 / 3.0}, curve.NodeRemoval, tolerance)
	assert.InDeltaSlice(t, []float64{1, 1, 2.0 / 3.0}, curve.EdgeRemoval, tolerance)
	assert.InDelta(t, 2.0/3.0, curve.NodeIndex(), tolerance)
}

func TestRobustness_EdgeCurveCapsAtEdgeCount(t *testing.T) {
	t.Parallel()

	curve, err := Robustness(context.Background(), buildGraph(t, disjointPair), RobustnessOptions{})
	require.NoError(t, err)

	assert.Len(t, curve.EdgeRemoval, 4)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.25, 0.25}, curve.EdgeRemoval, tolerance)
	assert.InDeltaSlice(t, []float64{0.5, 0.5, 0.5, 0.25}, curve.NodeRemoval, tolerance)
}

func TestRobustness_MatchesBruteForce(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, barbell+"\nX Y 1")
	require.NoError(t, g.AddNode("lonely"))

	opts := RobustnessOptions{
		NodeOrder: []string{"D", "lonely", "B"},
		EdgeOrder: []graph.Edge{{Source: "D", Target: "C"}, {Source: "F", Target: "G"}},
	}
	curve, err := Robustness(context.Background(), g, opts)
	require.NoError(t, err)

	n := g.NodeCount()
	require.Len(t, curve.NodeRemoval, n)
	assert.Equal(t, []string{"D", "lonely", "B"}, curve.NodeOrder[:3])
	assert.Equal(t, "C", curve.EdgeOrder[0].Source, "explicit edges keep store orientation")

	for k := 0; k < n; k++ {
		want := bruteGiant(t, g, curve.NodeOrder[:k], nil, n)
		assert.InDelta(t, want, curve.NodeRemoval[k], tolerance, "node k=%d", k)

		cut := min(k, len(curve.EdgeOrder))
		want = bruteGiant(t, g, nil, curve.EdgeOrder[:cut], n)
		assert.InDelta(t, want, curve.EdgeRemoval[k], tolerance, "edge k=%d", k)
	}
}

func TestRobustness_ConnectedStartsAtOne(t *testing.T) {
	t.Parallel()

	for _, edges := range []string{triangle, star, barbell, weightedDiamond} {
		curve, err := Robustness(context.Background(), buildGraph(t, edges), RobustnessOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1.0, curve.NodeRemoval[0])
		assert.Equal(t, 1.0, curve.EdgeRemoval[0])
		for k := 1; k < len(curve.NodeRemoval); k++ {
			assert.LessOrEqual(t, curve.NodeRemoval[k], curve.NodeRemoval[k-1])
			assert.LessOrEqual(t, curve.EdgeRemoval[k], curve.EdgeRemoval[k-1])
		}
	}
}

func TestRobustness_LeavesGraphUntouched(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, barbell)
	before := g.Revision()

	_, err := Robustness(context.Background(), g, RobustnessOptions{})
	require.NoError(t, err)

	assert.Equal(t, before, g.Revision())
	assert.Equal(t, 7, g.NodeCount())
	assert.Equal(t, 8, g.EdgeCount())
}

func TestRobustness_Errors(t *testing.T) {
	t.Parallel()

	t.Run("TooSmall", func(t *testing.T) {
		t.Parallel()
		g := graph.New()
		require.NoError(t, g.AddNode("solo"))

		_, err := Robustness(context.Background(), g, RobustnessOptions{})
		assert.ErrorIs(t, err, ErrInsufficientGraphSize)

		_, err = Robustness(context.Background(), graph.New(), RobustnessOptions{})
		assert.ErrorIs(t, err, ErrInsufficientGraphSize)
	})

	t.Run("UnknownNode", func(t *testing.T) {
		t.Parallel()
		_, err := Robustness(context.Background(), buildGraph(t, triangle), RobustnessOptions{NodeOrder: []string{"Z"}})
		assert.ErrorIs(t, err, ErrInvalidOrder)
		assert.ErrorIs(t, err, graph.ErrNodeNotFound)
	})

	t.Run("RepeatedNode", func(t *testing.T) {
		t.Parallel()
		_, err := Robustness(context.Background(), buildGraph(t, triangle), RobustnessOptions{NodeOrder: []string{"A", "A"}})
		assert.ErrorIs(t, err, ErrInvalidOrder)
	})

	t.Run("UnknownEdge", func(t *testing.T) {
		t.Parallel()
		_, err := Robustness(context.Background(), buildGraph(t, star), RobustnessOptions{
			EdgeOrder: []graph.Edge{{Source: "B", Target: "C"}},
		})
		assert.ErrorIs(t, err, graph.ErrEdgeNotFound)
	})

	t.Run("Cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Robustness(ctx, buildGraph(t, triangle), RobustnessOptions{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
