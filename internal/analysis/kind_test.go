package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/netscope/internal/graph"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected Kind
	}{
		{"degree", KindDegree},
		{"Connectivity", KindConnectivity},
		{"shortest_paths", KindShortestPaths},
		{"  centrality ", KindCentrality},
		{"ml", KindCommunity},
		{"community", KindCommunity},
		{"robustness", KindRobustness},
		{"topology detector", KindTopology},
		{"dynamic", KindGrowth},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			k, err := ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, k)
		})
	}

	_, err := ParseKind("visualization")
	assert.ErrorIs(t, err, ErrUnknownAnalysis)
}

func TestParseKinds(t *testing.T) {
	t.Parallel()

	all, err := ParseKinds(nil)
	require.NoError(t, err)
	assert.Equal(t, AllKinds(), all)

	kinds, err := ParseKinds([]string{"degree", "ml", "community"})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindDegree, KindCommunity}, kinds)

	_, err = ParseKinds([]string{"degree", "bogus"})
	assert.ErrorIs(t, err, ErrUnknownAnalysis)
}

func TestKind_Text(t *testing.T) {
	t.Parallel()

	for _, k := range AllKinds() {
		text, err := k.MarshalText()
		require.NoError(t, err)

		var back Kind
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, k, back)
	}

	_, err := Kind(99).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownAnalysis)
	assert.Equal(t, "kind(99)", Kind(99).String())

	data, err := json.Marshal(map[Kind]int{KindTopology: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"topology": 1}`, string(data))
}

func TestRun(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, star)

	for _, k := range AllKinds() {
		t.Run(k.String(), func(t *testing.T) {
			t.Parallel()
			res, err := Run(context.Background(), k, g, Options{GrowthSamples: 2})
			require.NoError(t, err)
			assert.Equal(t, k, res.Kind())

			_, err = json.Marshal(res)
			assert.NoError(t, err)
		})
	}

	_, err := Run(context.Background(), Kind(42), g, Options{})
	assert.ErrorIs(t, err, ErrUnknownAnalysis)
}

func TestRun_EmptyGraph(t *testing.T) {
	t.Parallel()

	g := graph.New()

	for _, k := range AllKinds() {
		res, err := Run(context.Background(), k, g, Options{})
		if k == KindRobustness {
			assert.ErrorIs(t, err, ErrInsufficientGraphSize)
			continue
		}
		require.NoError(t, err, k.String())
		assert.NotNil(t, res)
	}
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, KindDegree, buildGraph(t, triangle), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func ExampleRun() {
	g := graph.New()
	for _, line := range []string{"A B", "A C", "A D"} {
		f := strings.Fields(line)
		_ = g.AddUnweightedEdge(f[0], f[1])
	}

	res, _ := Run(context.Background(), KindTopology, g, Options{})
	fmt.Println(res.(Topology).Label)
	// Output: Star
}

func TestDecodeResult(t *testing.T) {
	t.Parallel()

	g := buildGraph(t, barbell+"\nX Y 1")

	for _, k := range AllKinds() {
		t.Run(k.String(), func(t *testing.T) {
			t.Parallel()
			res, err := Run(context.Background(), k, g, Options{})
			require.NoError(t, err)

			data, err := json.Marshal(res)
			require.NoError(t, err)

			decoded, err := DecodeResult(k, data)
			require.NoError(t, err)
			assert.Equal(t, k, decoded.Kind())

			again, err := json.Marshal(decoded)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(again))
		})
	}

	_, err := DecodeResult(Kind(77), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownAnalysis)
	_, err = DecodeResult(KindShortestPaths, []byte(`{"nodes":["a"],"distances":[]}`))
	assert.Error(t, err)
}
