package dispatch

import (
	"testing"

	"github.com/algo-boyz/wakegate/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestDispatchThreshold(t *testing.T) {
	identities := map[string]config.Identity{
		"seraphina": {Name: "seraphina", Threshold: 0.6},
	}
	for _, tc := range []struct {
		score float32
		want  int
	}{
		{0.59, 0},
		{0.6, 1}, // ties count as detections
		{0.61, 1},
		{1.0, 1},
	} {
		out := Dispatch(map[string]float32{"seraphina": tc.score}, identities, 0.5)
		require.Len(t, out, tc.want, "score=%f", tc.score)
	}
}

func TestDispatchUnknownIDFallsBackToDefault(t *testing.T) {
	out := Dispatch(map[string]float32{"hey_jarvis": 0.5}, nil, 0.5)
	require.Equal(t, []Detection{{Identity: "hey_jarvis", Score: 0.5}}, out,
		"unmapped model id is used as the identity name with the default threshold")

	out = Dispatch(map[string]float32{"hey_jarvis": 0.49}, nil, 0.5)
	require.Empty(t, out)
}

func TestDispatchSortedOrder(t *testing.T) {
	scores := map[string]float32{"zeta": 0.9, "alpha": 0.8, "mu": 0.7}
	out := Dispatch(scores, nil, 0.5)
	require.Equal(t, []Detection{
		{Identity: "alpha", Score: 0.8},
		{Identity: "mu", Score: 0.7},
		{Identity: "zeta", Score: 0.9},
	}, out)
}

func TestDispatchStateless(t *testing.T) {
	scores := map[string]float32{"a": 0.9, "b": 0.2}
	identities := map[string]config.Identity{
		"a": {Name: "a", Threshold: 0.5},
		"b": {Name: "b", Threshold: 0.5},
	}
	first := Dispatch(scores, identities, 0.5)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Dispatch(scores, identities, 0.5),
			"identical input must produce identical output")
	}
}

func TestDispatchEmptyScores(t *testing.T) {
	require.Empty(t, Dispatch(map[string]float32{}, nil, 0.5))
}
