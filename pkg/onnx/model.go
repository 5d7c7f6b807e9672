package onnx

import (
	"fmt"

	"github.com/algo-boyz/wakegate/pkg/dsp"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/multierr"
)

const sampleRate = 16000

// Model is one loaded wakeword classifier. Input and output shapes are
// validated eagerly at load so a broken model file fails the whole startup
// instead of the first frame. Scoring runs a fresh session per frame; the
// registry and identity table never see any of these types.
type Model struct {
	path    string
	opts    *ort.SessionOptions
	inputs  []ort.InputOutputInfo
	outputs []ort.InputOutputInfo
	melSpec *dsp.MelSpectrogram
}

// LoadModel reads the network's tensor shapes and prepares session options.
// Init must have been called first.
func LoadModel(path string) (*Model, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get net info for %s: %w", path, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s declares no input or output tensors", path)
	}
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session options: %w", err)
	}
	return &Model{
		path:    path,
		opts:    opts,
		inputs:  inputs,
		outputs: outputs,
	}, nil
}

// Score runs one normalized frame through the network. Rank-2 inputs receive
// the raw waveform fitted to the declared length; higher ranks receive log-mel
// features shaped to the declared band and frame counts.
func (m *Model) Score(frame []float32) (score float32, err error) {
	inDims := m.inputDims(len(frame))
	feats, err := m.features(frame, inDims)
	if err != nil {
		return 0, err
	}
	input, err := ort.NewTensor(inDims, feats)
	if err != nil {
		return 0, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, input.Destroy())
	}()
	output, err := ort.NewEmptyTensor[float32](fitDims(m.outputs[0].Dimensions))
	if err != nil {
		return 0, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, output.Destroy())
	}()
	session, err := ort.NewAdvancedSession(
		m.path,
		[]string{m.inputs[0].Name},
		[]string{m.outputs[0].Name},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		m.opts,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create onnx session: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, session.Destroy())
	}()
	if err = session.Run(); err != nil {
		return 0, fmt.Errorf("failed to run %s: %w", m.path, err)
	}
	out := output.GetData()
	if len(out) == 0 {
		return 0, fmt.Errorf("model %s produced an empty output tensor", m.path)
	}
	return clampUnit(out[0]), nil
}

// inputDims resolves the declared input shape for one frame. A dynamic
// trailing dimension on a waveform-shaped input takes the frame length.
func (m *Model) inputDims(frameLen int) []int64 {
	declared := m.inputs[0].Dimensions
	if len(declared) <= 2 && len(declared) > 0 && declared[len(declared)-1] < 1 {
		dims := fitDims(declared)
		dims[len(dims)-1] = int64(frameLen)
		return dims
	}
	return fitDims(declared)
}

func (m *Model) features(frame []float32, dims []int64) ([]float32, error) {
	if len(dims) <= 2 {
		return dsp.FitVector(frame, int(tensorLen(dims))), nil
	}
	// treat the two trailing dimensions as [melBands, frames]
	melBands := int(dims[len(dims)-2])
	frames := int(dims[len(dims)-1])
	if m.melSpec == nil || m.melSpec.NumMelBands != melBands {
		m.melSpec = dsp.NewMelSpectrogram(sampleRate, melBands)
	}
	return m.melSpec.Features(frame, melBands, frames)
}

// Close releases the session options held for this model.
func (m *Model) Close() error {
	return m.opts.Destroy()
}

// fitDims substitutes 1 for dynamic (-1) dimensions so tensors can be sized.
func fitDims(dims []int64) []int64 {
	out := make([]int64, len(dims))
	for i, d := range dims {
		if d < 1 {
			d = 1
		}
		out[i] = d
	}
	return out
}

func tensorLen(dims []int64) int64 {
	var n int64 = 1
	for _, d := range dims {
		n *= d
	}
	return n
}

func clampUnit(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
