package dispatch

import (
	"sort"

	"github.com/algo-boyz/wakegate/pkg/config"
)

// Detection is one identity whose confidence met its threshold for a frame.
type Detection struct {
	Identity string
	Score    float32
}

// Dispatch evaluates one frame's score map against per-identity thresholds.
// It carries no state across frames: every frame is judged independently,
// and a sustained wake phrase produces one detection per qualifying frame.
// Model identifiers are evaluated in sorted order so identical input always
// yields identical output. An identifier missing from the identity table is
// used verbatim as the identity name with the default threshold, which is
// how legacy flat-path mode resolves.
func Dispatch(scores map[string]float32, identities map[string]config.Identity, defaultThreshold float32) []Detection {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	var out []Detection
	for _, id := range ids {
		name, threshold := id, defaultThreshold
		if ident, ok := identities[id]; ok {
			name, threshold = ident.Name, ident.Threshold
		}
		// ties count as detections
		if scores[id] >= threshold {
			out = append(out, Detection{Identity: name, Score: scores[id]})
		}
	}
	return out
}
