package scorer

import "github.com/algo-boyz/wakegate/pkg/dsp"

// noiseFloorRMS is the energy level at which a frame is rated 50% speech.
const noiseFloorRMS = 0.01

// speechProbability maps frame energy to a [0, 1) pseudo-probability so the
// gate threshold lives on the same scale as a neural VAD score. Silence rates
// 0; a frame well above the noise floor approaches 1.
func speechProbability(frame []float32) float32 {
	r := dsp.RMS(frame)
	return r / (r + noiseFloorRMS)
}
