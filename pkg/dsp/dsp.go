package dsp

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/mat"
)

// PCMFloats converts signed 16-bit samples to normalized float32 in [-1, 1).
func PCMFloats(pcm []int16) []float32 {
	var out = make([]float32, len(pcm))
	for i, s := range pcm {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// RMS returns the root-mean-square level of a normalized signal.
func RMS(signal []float32) float32 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, s := range signal {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(signal))))
}

// Preemphasis applies a first-order high-pass filter to the signal.
func Preemphasis(signal []float32, coeff float32) []float32 {
	if len(signal) <= 1 || coeff == 0 {
		return signal
	}
	var out = make([]float32, len(signal))
	out[0] = signal[0]
	for i := 1; i < len(signal); i++ {
		out[i] = signal[i] - coeff*signal[i-1]
	}
	return out
}

// HannWindow creates a Hann window of the given size.
func HannWindow(size int) []float64 {
	var window = make([]float64, size)
	for i := 0; i < size; i++ {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}

// HzToMel converts frequency from Hz to Mel scale.
func HzToMel(hz float32) float32 {
	return float32(2595 * math.Log10(1+float64(hz)/700.0))
}

// MelToHz converts frequency from Mel scale to Hz.
func MelToHz(mel float32) float32 {
	return float32(700 * (math.Pow(10, float64(mel)/2595.0) - 1))
}

// MelSpectrogram computes log-mel spectrogram features from a mono signal.
type MelSpectrogram struct {
	SampleRate   int
	WindowLen    int
	HopLength    int
	NumMelBands  int
	FFTSize      int
	LowFreq      float32
	HighFreq     float32
	PreEmphCoeff float32
}

// NewMelSpectrogram returns a configuration with a 25ms window, 10ms hop and
// a 512-point FFT, suitable for 16kHz mono input.
func NewMelSpectrogram(sampleRate, numMelBands int) *MelSpectrogram {
	return &MelSpectrogram{
		SampleRate:   sampleRate,
		WindowLen:    sampleRate / 40,  // 25ms
		HopLength:    sampleRate / 100, // 10ms
		NumMelBands:  numMelBands,
		FFTSize:      512,
		LowFreq:      0,
		HighFreq:     float32(sampleRate) / 2,
		PreEmphCoeff: 0.97,
	}
}

// melFilterbank generates the mel filterbank matrix.
func melFilterbank(numMelBands, windowSize, sampleRate int, lowFreq, highFreq float32) *mat.Dense {
	var (
		melMin     = HzToMel(lowFreq)
		melMax     = HzToMel(highFreq)
		melPoints  = make([]float32, numMelBands+2)
		freqPoints = make([]float32, numMelBands+2)
		fftBins    = make([]int, numMelBands+2)
		filterbank = mat.NewDense(numMelBands, windowSize/2+1, nil)
	)
	for i := 0; i < numMelBands+2; i++ {
		melPoints[i] = melMin + (melMax-melMin)*float32(i)/float32(numMelBands+1)
		freqPoints[i] = MelToHz(melPoints[i])
		fftBins[i] = int(math.Floor(float64(float32(windowSize+1) * freqPoints[i] / float32(sampleRate))))
	}
	for j := 0; j < numMelBands; j++ {
		for i := fftBins[j]; i < fftBins[j+1]; i++ {
			filterbank.Set(j, i, float64(i-fftBins[j])/float64(fftBins[j+1]-fftBins[j]))
		}
		for i := fftBins[j+1]; i < fftBins[j+2]; i++ {
			filterbank.Set(j, i, float64(fftBins[j+2]-i)/float64(fftBins[j+2]-fftBins[j+1]))
		}
	}
	return filterbank
}

// Compute returns log-mel features indexed [band][frame].
func (m *MelSpectrogram) Compute(signal []float32) ([][]float32, error) {
	signal = Preemphasis(signal, m.PreEmphCoeff)
	var numFrames = 1 + (len(signal)-m.WindowLen)/m.HopLength
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal of %d samples too short for a %d sample window", len(signal), m.WindowLen)
	}
	window := HannWindow(m.WindowLen)
	filterbank := melFilterbank(m.NumMelBands, m.FFTSize, m.SampleRate, m.LowFreq, m.HighFreq)
	spectrogram := make([][]float32, m.NumMelBands)
	for i := range spectrogram {
		spectrogram[i] = make([]float32, numFrames)
	}
	for f := 0; f < numFrames; f++ {
		start := f * m.HopLength
		framed := make([]float64, m.WindowLen)
		for i := 0; i < m.WindowLen; i++ {
			if start+i < len(signal) {
				framed[i] = float64(signal[start+i]) * window[i]
			}
		}
		fftResult := fft.FFTReal(framed)
		magnitude := make([]float64, m.FFTSize/2+1)
		for i := 0; i < len(magnitude) && i < len(fftResult); i++ {
			magnitude[i] = math.Sqrt(real(fftResult[i])*real(fftResult[i]) + imag(fftResult[i])*imag(fftResult[i]))
		}
		for band := 0; band < m.NumMelBands; band++ {
			var sum float64
			for k := 0; k < len(magnitude); k++ {
				sum += filterbank.At(band, k) * magnitude[k]
			}
			// epsilon avoids log(0)
			spectrogram[band][f] = float32(math.Log(sum + 1e-10))
		}
	}
	return spectrogram, nil
}

// Features computes log-mel features and shapes them to exactly
// melBands x frames, zero-padding or truncating both axes, flattened
// row-major for a [1, 1, melBands, frames] tensor.
func (m *MelSpectrogram) Features(signal []float32, melBands, frames int) ([]float32, error) {
	computed, err := m.Compute(signal)
	if err != nil {
		return nil, fmt.Errorf("failed to compute log mel spectrogram: %w", err)
	}
	var out = make([]float32, melBands*frames)
	for band := 0; band < melBands && band < len(computed); band++ {
		for f := 0; f < frames && f < len(computed[band]); f++ {
			out[band*frames+f] = computed[band][f]
		}
	}
	return out, nil
}

// FitVector zero-pads or truncates a signal to exactly n samples.
func FitVector(signal []float32, n int) []float32 {
	if len(signal) == n {
		return signal
	}
	var out = make([]float32, n)
	copy(out, signal)
	return out
}
