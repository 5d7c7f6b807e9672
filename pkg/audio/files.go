package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"go.uber.org/multierr"
)

// Load decodes an audio file to mono signed 16-bit PCM for the frame pipe.
func Load(filePath string) ([]int16, error) {
	switch ext := filepath.Ext(filePath); ext {
	case ".mp3":
		return loadMP3(filePath)
	case ".wav":
		return loadWAV(filePath)
	default:
		return nil, fmt.Errorf("unsupported audio file extension: %s", ext)
	}
}

func loadMP3(filePath string) (pcm []int16, err error) {
	audioFile, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening MP3 file: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, audioFile.Close())
	}()
	decoder, err := mp3.NewDecoder(audioFile)
	if err != nil {
		return nil, fmt.Errorf("error creating MP3 decoder: %w", err)
	}
	b, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("error reading MP3 data: %w", err)
	}
	// go-mp3 always emits interleaved 16-bit stereo
	var stereo = make([]int16, len(b)/2)
	for i := range stereo {
		stereo[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return downmix(stereo), nil
}

func loadWAV(filePath string) (pcm []int16, err error) {
	audioFile, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error opening WAV file: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, audioFile.Close())
	}()
	decoder := wav.NewDecoder(audioFile)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("error decoding WAV file: %w", err)
	}
	channels := buffer.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	var samples = make([]int16, len(buffer.Data))
	for i, sample := range buffer.Data {
		samples[i] = int16(sample)
	}
	if channels == 1 {
		return samples, nil
	}
	return downmixN(samples, channels), nil
}

func downmix(stereo []int16) []int16 {
	return downmixN(stereo, 2)
}

// downmixN averages interleaved channels into mono.
func downmixN(interleaved []int16, channels int) []int16 {
	var mono = make([]int16, len(interleaved)/channels)
	for i := range mono {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(interleaved[i*channels+c])
		}
		mono[i] = int16(sum / channels)
	}
	return mono
}

// EncodePCM serializes samples as little-endian bytes, the pipe wire format.
func EncodePCM(pcm []int16) []byte {
	var b = make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}
