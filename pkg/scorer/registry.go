package scorer

import (
	"fmt"
	"io"

	"github.com/algo-boyz/wakegate/pkg/dsp"
	"go.uber.org/multierr"
)

// Backend scores one normalized mono audio frame and returns a confidence in
// [0, 1]. It is the only contract the pipeline has with an inference library.
type Backend interface {
	Score(frame []float32) (float32, error)
}

// Options are the runtime knobs applied to every frame before scoring.
type Options struct {
	// VADThreshold gates scoring on frame energy; 0 disables the gate.
	VADThreshold float32
	// NoiseSuppression applies a pre-emphasis high-pass to cut low-frequency
	// noise before scoring.
	NoiseSuppression bool
}

// Registry owns the set of loaded scoring backends and fans each frame out to
// all of them. It is immutable once the process enters streaming: Add is only
// called during load.
type Registry struct {
	ids      []string
	backends map[string]Backend
	opts     Options
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		backends: make(map[string]Backend),
		opts:     opts,
	}
}

// Add registers a backend under a model identifier. Identifier collisions are
// rejected so no two identities can shadow each other's scores.
func (r *Registry) Add(id string, b Backend) error {
	if _, dup := r.backends[id]; dup {
		return fmt.Errorf("duplicate model identifier %q", id)
	}
	r.ids = append(r.ids, id)
	r.backends[id] = b
	return nil
}

// ModelIDs lists loaded identifiers in registration order.
func (r *Registry) ModelIDs() []string {
	return append([]string(nil), r.ids...)
}

// Score runs every backend over one PCM frame and collects the confidences.
// A frame below the VAD gate scores nothing: the returned map is empty, which
// is not an error. A fault in any single backend aborts the frame; the caller
// reports it and moves on to the next frame.
func (r *Registry) Score(pcm []int16) (map[string]float32, error) {
	frame := dsp.PCMFloats(pcm)
	if r.opts.NoiseSuppression {
		frame = dsp.Preemphasis(frame, 0.97)
	}
	scores := make(map[string]float32, len(r.ids))
	if r.opts.VADThreshold > 0 && speechProbability(frame) < r.opts.VADThreshold {
		return scores, nil
	}
	for _, id := range r.ids {
		score, err := r.backends[id].Score(frame)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", id, err)
		}
		scores[id] = score
	}
	return scores, nil
}

// Close releases every backend that holds native resources.
func (r *Registry) Close() (err error) {
	for _, id := range r.ids {
		if c, ok := r.backends[id].(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
