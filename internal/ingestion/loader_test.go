package ingestion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	t.Run("Triangle", func(t *testing.T) {
		t.Parallel()
		res, err := ParseEdgeList("A B 1\nB C 1\nA C 1\n")
		require.NoError(t, err)

		assert.Equal(t, 3, res.Graph.NodeCount())
		assert.Equal(t, 3, res.Graph.EdgeCount())
		assert.Equal(t, 3, res.Edges)
		assert.Empty(t, res.Malformed)
	})

	t.Run("SkipsMalformedLines", func(t *testing.T) {
		t.Parallel()
		input := strings.Join([]string{
			"A B 1",
			"A B",
			"C D 2 extra",
			"E F heavy",
			"G H -3",
			"# this is a comment",
			"",
			"   ",
			"I J 0.5",
		}, "\n")

		res, err := ParseEdgeList(input)
		require.NoError(t, err)

		assert.Equal(t, 2, res.Graph.EdgeCount())
		assert.Equal(t, 9, res.Lines)
		require.Len(t, res.Malformed, 4)
		assert.Equal(t, []int{2, 3, 4, 5}, []int{
			res.Malformed[0].Number, res.Malformed[1].Number,
			res.Malformed[2].Number, res.Malformed[3].Number,
		})
		assert.True(t, errors.Is(res.Malformed[0], ErrMalformedLine))
		assert.Contains(t, res.Malformed[2].Error(), "invalid weight")
		assert.False(t, res.Graph.HasNode("G"))
	})

	t.Run("HashPrefixedNodeIsAnEdge", func(t *testing.T) {
		t.Parallel()
		res, err := ParseEdgeList("#x y 1\n# a comment line here\n#\n# note\n")
		require.NoError(t, err)

		assert.Equal(t, 1, res.Edges)
		assert.Empty(t, res.Malformed)
		assert.True(t, res.Graph.HasNode("#x"))
		w, err := res.Graph.Weight("#x", "y")
		require.NoError(t, err)
		assert.Equal(t, 1.0, w)
	})

	t.Run("TabsAndSpaces", func(t *testing.T) {
		t.Parallel()
		res, err := ParseEdgeList("A\tB\t2.5\n  C    D   1e1  ")
		require.NoError(t, err)

		w, err := res.Graph.Weight("D", "C")
		require.NoError(t, err)
		assert.Equal(t, 10.0, w)
	})

	t.Run("DuplicateLastWriteWins", func(t *testing.T) {
		t.Parallel()
		res, err := ParseEdgeList("A B 1\nB A 4")
		require.NoError(t, err)

		assert.Equal(t, 1, res.Graph.EdgeCount())
		assert.Equal(t, 2, res.Edges)
		w, err := res.Graph.Weight("A", "B")
		require.NoError(t, err)
		assert.Equal(t, 4.0, w)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		res, err := ParseEdgeList("")
		require.NoError(t, err)
		assert.Equal(t, 0, res.Graph.NodeCount())
	})

	t.Run("MaxMalformed", func(t *testing.T) {
		t.Parallel()
		l := NewLoader(nil)
		l.MaxMalformed = 1

		_, err := l.Load(context.Background(), strings.NewReader("x\ny\nA B 1"))
		assert.ErrorIs(t, err, ErrMalformedLine)
	})

	t.Run("LogsSummary", func(t *testing.T) {
		t.Parallel()
		core, logs := observer.New(zap.WarnLevel)
		l := NewLoader(zap.New(core))

		_, err := l.Load(context.Background(), strings.NewReader("A B 1\nbroken\n"))
		require.NoError(t, err)

		entries := logs.FilterMessage("skipped malformed lines").All()
		require.Len(t, entries, 1)
		assert.Equal(t, int64(1), entries[0].ContextMap()["count"])
	})
}

func TestLoader_LoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "net.txt")
	require.NoError(t, os.WriteFile(path, []byte("A B 1\nA C 1\nA D 1\n"), 0o644))

	res, err := NewLoader(zap.NewNop()).LoadFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, res.Source)
	assert.Equal(t, []string{"A", "B", "C", "D"}, res.Graph.Nodes())

	_, err = NewLoader(nil).LoadFile(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
