package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Benny93/netscope/internal/graph"
)

func TestGrowth(t *testing.T) {
	t.Parallel()

	t.Run("EveryEdge", func(t *testing.T) {
		t.Parallel()
		series := Growth(buildGraph(t, triangle), 0)

		assert.Equal(t, []GrowthPoint{
			{Step: 0, Nodes: 0, Edges: 0},
			{Step: 1, Nodes: 2, Edges: 1},
			{Step: 2, Nodes: 3, Edges: 2},
			{Step: 3, Nodes: 3, Edges: 3},
		}, series.Points)
	})

	t.Run("Sampled", func(t *testing.T) {
		t.Parallel()
		var b strings.Builder
		for i := 0; i < 10; i++ {
			fmt.Fprintf(&b, "n%d n%d 1\n", i, i+1)
		}
		series := Growth(buildGraph(t, b.String()), 3)

		steps := make([]int, len(series.Points))
		for i, p := range series.Points {
			steps[i] = p.Step
		}
		assert.Equal(t, []int{0, 4, 7, 10}, steps)
		assert.Equal(t, 11, series.Points[3].Nodes)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		series := Growth(graph.New(), 5)
		assert.Equal(t, []GrowthPoint{{}}, series.Points)
	})
}
