package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEdge(t *testing.T) {
	t.Parallel()

	e := Edge{Source: "A", Target: "B", Weight: 1.5}
	assert.False(t, e.IsLoop())
	assert.Equal(t, "A -- B (1.5)", e.String())
	assert.True(t, Edge{Source: "A", Target: "A"}.IsLoop())
}

func TestKeyOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, keyOf("A", "B"), keyOf("B", "A"))
	assert.NotEqual(t, keyOf("A", "B"), keyOf("A", "C"))
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("IndexesNodesAndEdges", func(t *testing.T) {
		t.Parallel()
		g := New()
		require.NoError(t, g.AddEdge("A", "B", 1))
		require.NoError(t, g.AddEdge("B", "C", 2))
		require.NoError(t, g.AddEdge("C", "C", 3))

		s := g.Snapshot()

		assert.Equal(t, []string{"A", "B", "C"}, s.IDs)
		assert.Equal(t, 3, s.EdgeCount())
		assert.Equal(t, []int{1, 2, 3}, s.Degrees)
		assert.Equal(t, 6.0, s.TotalWeight)
		assert.Len(t, s.Adjacency[2], 1, "self-loops stay out of adjacency")
		assert.Equal(t, g.Revision(), s.Revision)

		idx, err := s.EdgeIndex("C", "B")
		require.NoError(t, err)
		assert.Equal(t, 1, idx)

		idx, err = s.EdgeIndex("C", "C")
		require.NoError(t, err)
		assert.Equal(t, 2, idx)

		_, err = s.EdgeIndex("A", "C")
		assert.ErrorIs(t, err, ErrEdgeNotFound)
		_, err = s.Lookup("Q")
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("IsolatedFromLaterMutation", func(t *testing.T) {
		t.Parallel()
		g := New()
		require.NoError(t, g.AddEdge("A", "B", 1))
		s := g.Snapshot()

		require.NoError(t, g.AddEdge("B", "C", 1))

		assert.Equal(t, 2, s.NodeCount())
		assert.Equal(t, 1, s.EdgeCount())
	})

	t.Run("FingerprintIgnoresOrder", func(t *testing.T) {
		t.Parallel()
		g1 := New()
		require.NoError(t, g1.AddEdge("A", "B", 1))
		require.NoError(t, g1.AddEdge("B", "C", 2))

		g2 := New()
		require.NoError(t, g2.AddEdge("C", "B", 2))
		require.NoError(t, g2.AddEdge("B", "A", 1))

		g3 := New()
		require.NoError(t, g3.AddEdge("A", "B", 1))
		require.NoError(t, g3.AddEdge("B", "C", 3))

		assert.Equal(t, g1.Snapshot().Fingerprint(), g2.Snapshot().Fingerprint())
		assert.NotEqual(t, g1.Snapshot().Fingerprint(), g3.Snapshot().Fingerprint())
	})

	t.Run("OrderFingerprintFollowsOrder", func(t *testing.T) {
		t.Parallel()
		g1 := New()
		require.NoError(t, g1.AddEdge("A", "B", 1))
		require.NoError(t, g1.AddEdge("B", "C", 1))

		g2 := New()
		require.NoError(t, g2.AddEdge("B", "C", 1))
		require.NoError(t, g2.AddEdge("A", "B", 1))

		g3 := g1.Clone()

		assert.NotEqual(t, g1.Snapshot().OrderFingerprint(), g2.Snapshot().OrderFingerprint())
		assert.Equal(t, g1.Snapshot().OrderFingerprint(), g3.Snapshot().OrderFingerprint())
	})
}
