package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/netscope/internal/graph"
)

func TestCentrality_Star(t *testing.T) {
	t.Parallel()

	scores, err := Centrality(context.Background(), buildGraph(t, star), false)
	require.NoError(t, err)

	require.True(t, scores.Degree.Defined)
	assert.InDelta(t, 1.0, scores.Degree.Values["A"], tolerance)
	for _, leaf := range []string{"B", "C", "D"} {
		assert.InDelta(t, 1.0/3.0, scores.Degree.Values[leaf], tolerance)
		assert.InDelta(t, 0.6, scores.Closeness.Values[leaf], tolerance)
		assert.InDelta(t, 0.0, scores.Betweenness.Values[leaf], tolerance)
	}
	assert.InDelta(t, 1.0, scores.Closeness.Values["A"], tolerance)
	assert.InDelta(t, 1.0, scores.Betweenness.Values["A"], tolerance)

	top := scores.Betweenness.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, "A", top[0].Node)
}

func TestCentrality_CompleteGraph(t *testing.T) {
	t.Parallel()

	g := graph.New()
	ids := []string{"a", "b", "c", "d", "e"}
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			require.NoError(t, g.AddEdge(ids[i], ids[j], 1))
		}
	}

	scores, err := Centrality(context.Background(), g, false)
	require.NoError(t, err)

	for _, id := range ids {
		assert.InDelta(t, 1.0, scores.Degree.Values[id], tolerance)
		assert.InDelta(t, 1.0, scores.Closeness.Values[id], tolerance)
		assert.InDelta(t, 0.0, scores.Betweenness.Values[id], tolerance)
	}
}

func TestCentrality_MatchesBruteForce(t *testing.T) {
	t.Parallel()

	fixtures := map[string]string{
		"Barbell":         barbell,
		"WeightedDiamond": weightedDiamond,
		"Disconnected":    barbell + "\nX Y 1\nY Z 1",
		"Grid":            "a b 1\nb c 1\nd e 1\ne f 1\na d 1\nb e 1\nc f 1",
	}

	for name, edges := range fixtures {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			for _, weighted := range []bool{false, true} {
				g := buildGraph(t, edges)
				s := g.Snapshot()

				scores, err := Centrality(context.Background(), g, weighted)
				require.NoError(t, err)

				wantBC := bruteBetweenness(s, weighted)
				dist := floydWarshall(s, weighted)
				for i, id := range s.IDs {
					assert.InDelta(t, wantBC[i], scores.Betweenness.Values[id], tolerance,
						"betweenness of %s (weighted=%v)", id, weighted)

					reached, total := 0, 0.0
					for j := range s.IDs {
						if j != i && !math.IsInf(dist[i][j], 1) {
							reached++
							total += dist[i][j]
						}
					}
					want := 0.0
					if total > 0 {
						want = float64(reached) / total
					}
					assert.InDelta(t, want, scores.Closeness.Values[id], tolerance,
						"closeness of %s (weighted=%v)", id, weighted)

					assert.GreaterOrEqual(t, scores.Degree.Values[id], 0.0)
					assert.LessOrEqual(t, scores.Degree.Values[id], 1.0)
				}
			}
		})
	}
}

func TestCentrality_ZeroWeightEdges(t *testing.T) {
	t.Parallel()

	const triangle = "S A 1\nS B 1\nA B 0"

	t.Run("WeightedDistancesExact", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, triangle)
		s := g.Snapshot()

		scores, err := Centrality(context.Background(), g, true)
		require.NoError(t, err)

		dist := floydWarshall(s, true)
		for i, id := range s.IDs {
			total := 0.0
			for j := range s.IDs {
				if j != i {
					total += dist[i][j]
				}
			}
			assert.InDelta(t, 2/total, scores.Closeness.Values[id], tolerance, "closeness of %s", id)

			bc := scores.Betweenness.Values[id]
			assert.False(t, math.IsNaN(bc) || math.IsInf(bc, 0), "betweenness of %s", id)
			assert.GreaterOrEqual(t, bc, 0.0)
			assert.LessOrEqual(t, bc, 1.0)
		}
		assert.InDelta(t, 0.0, scores.Betweenness.Values["S"], tolerance)
		assert.InDelta(t, 1.0, scores.Closeness.Values["S"], tolerance)
	})

	t.Run("UnweightedMatchesBruteForce", func(t *testing.T) {
		t.Parallel()
		g := buildGraph(t, triangle)
		s := g.Snapshot()

		scores, err := Centrality(context.Background(), g, false)
		require.NoError(t, err)

		want := bruteBetweenness(s, false)
		for i, id := range s.IDs {
			assert.InDelta(t, want[i], scores.Betweenness.Values[id], tolerance, "betweenness of %s", id)
		}
	})
}

func TestCentrality_SmallGraphs(t *testing.T) {
	t.Parallel()

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		scores, err := Centrality(context.Background(), graph.New(), false)
		require.NoError(t, err)

		assert.False(t, scores.Degree.Defined)
		assert.False(t, scores.Closeness.Defined)
		assert.Empty(t, scores.Betweenness.Values)
	})

	t.Run("SingleNode", func(t *testing.T) {
		t.Parallel()
		g := graph.New()
		require.NoError(t, g.AddNode("solo"))

		scores, err := Centrality(context.Background(), g, false)
		require.NoError(t, err)

		assert.False(t, scores.Degree.Defined)
		assert.Empty(t, scores.Degree.Values)
		assert.Equal(t, 0.0, scores.Closeness.Values["solo"])
		assert.Equal(t, 0.0, scores.Betweenness.Values["solo"])
	})

	t.Run("TwoNodes", func(t *testing.T) {
		t.Parallel()
		scores, err := Centrality(context.Background(), buildGraph(t, "A B 4"), true)
		require.NoError(t, err)

		assert.Equal(t, 1.0, scores.Degree.Values["A"])
		assert.InDelta(t, 0.25, scores.Closeness.Values["A"], tolerance)
		assert.Equal(t, 0.0, scores.Betweenness.Values["A"])
	})
}

func TestMeasure_Top(t *testing.T) {
	t.Parallel()

	m := Measure{Values: map[string]float64{"b": 0.5, "a": 0.5, "c": 0.9, "d": 0.1}, Defined: true}

	assert.Equal(t, []RankedNode{{"c", 0.9}, {"a", 0.5}, {"b", 0.5}}, m.Top(3))
	assert.Len(t, m.Top(0), 4)
}
