package scorer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	score  float32
	err    error
	calls  int
	closed bool
	last   []float32
}

func (s *stubBackend) Score(frame []float32) (float32, error) {
	s.calls++
	s.last = frame
	return s.score, s.err
}

func (s *stubBackend) Close() error {
	s.closed = true
	return nil
}

func loudFrame(samples int) []int16 {
	frame := make([]int16, samples)
	for i := range frame {
		frame[i] = 16000
	}
	return frame
}

func TestRegistryFanOut(t *testing.T) {
	r := NewRegistry(Options{})
	a := &stubBackend{score: 0.9}
	b := &stubBackend{score: 0.1}
	require.NoError(t, r.Add("seraphina", a))
	require.NoError(t, r.Add("luna", b))

	scores, err := r.Score(make([]int16, 1280))
	require.NoError(t, err)
	require.Equal(t, map[string]float32{"seraphina": 0.9, "luna": 0.1}, scores)
	require.Equal(t, 1, a.calls)
	require.Equal(t, 1, b.calls)
}

func TestRegistryDuplicateID(t *testing.T) {
	r := NewRegistry(Options{})
	require.NoError(t, r.Add("wake", &stubBackend{}))
	err := r.Add("wake", &stubBackend{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate model identifier")
}

func TestRegistryModelIDsOrder(t *testing.T) {
	r := NewRegistry(Options{})
	require.NoError(t, r.Add("zeta", &stubBackend{}))
	require.NoError(t, r.Add("alpha", &stubBackend{}))
	require.Equal(t, []string{"zeta", "alpha"}, r.ModelIDs())
}

func TestRegistryBackendFaultIsFrameLocal(t *testing.T) {
	r := NewRegistry(Options{})
	require.NoError(t, r.Add("bad", &stubBackend{err: errors.New("tensor shape mismatch")}))

	_, err := r.Score(make([]int16, 1280))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad")
	require.Contains(t, err.Error(), "tensor shape mismatch")
}

func TestRegistryVADGatesSilence(t *testing.T) {
	r := NewRegistry(Options{VADThreshold: 0.5})
	b := &stubBackend{score: 0.9}
	require.NoError(t, r.Add("wake", b))

	scores, err := r.Score(make([]int16, 1280))
	require.NoError(t, err)
	require.Empty(t, scores, "a gated frame scores nothing, which is not an error")
	require.Zero(t, b.calls)

	scores, err = r.Score(loudFrame(1280))
	require.NoError(t, err)
	require.Equal(t, map[string]float32{"wake": 0.9}, scores)
	require.Equal(t, 1, b.calls)
}

func TestRegistryVADDisabled(t *testing.T) {
	r := NewRegistry(Options{VADThreshold: 0})
	b := &stubBackend{score: 0.9}
	require.NoError(t, r.Add("wake", b))

	scores, err := r.Score(make([]int16, 1280))
	require.NoError(t, err)
	require.Len(t, scores, 1, "threshold 0 disables the gate entirely")
}

func TestRegistryNoiseSuppression(t *testing.T) {
	r := NewRegistry(Options{NoiseSuppression: true})
	b := &stubBackend{score: 0.5}
	require.NoError(t, r.Add("wake", b))

	_, err := r.Score(loudFrame(1280))
	require.NoError(t, err)
	require.Len(t, b.last, 1280, "suppression must preserve frame length")
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry(Options{})
	b := &stubBackend{}
	require.NoError(t, r.Add("wake", b))
	require.NoError(t, r.Close())
	require.True(t, b.closed)
}

func TestSpeechProbability(t *testing.T) {
	require.Zero(t, speechProbability(make([]float32, 1280)))

	loud := make([]float32, 1280)
	for i := range loud {
		loud[i] = 0.5
	}
	require.Greater(t, speechProbability(loud), float32(0.9))
}
