package audio

import (
	"context"
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/multierr"
)

// ListInputDevices describes every capture-capable device, index first, so a
// user can pick one for Capture.
func ListInputDevices() (names []string, err error) {
	if err = portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio.Initialize: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, portaudio.Terminate())
	}()
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio.Devices: %w", err)
	}
	for i, d := range devices {
		if d.MaxInputChannels > 0 {
			names = append(names, fmt.Sprintf("%d: %s (%.0f Hz)", i, d.Name, d.DefaultSampleRate))
		}
	}
	return names, nil
}

// Capture streams mono 16-bit PCM from an input device to w, one frame at a
// time, until the context is canceled. A negative deviceIndex selects the
// default input device.
func Capture(ctx context.Context, deviceIndex, sampleRate, frameSize int, w io.Writer) (err error) {
	if err = portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio.Initialize: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, portaudio.Terminate())
	}()
	device, err := inputDevice(deviceIndex)
	if err != nil {
		return err
	}
	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = 1
	params.Output.Channels = 0
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = frameSize

	var buffer = make([]int16, frameSize)
	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return fmt.Errorf("portaudio.OpenStream: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, stream.Close())
	}()
	if err = stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	defer func() {
		err = multierr.Combine(err, stream.Stop())
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err = stream.Read(); err != nil {
			return fmt.Errorf("failed to read audio stream: %w", err)
		}
		if _, err = w.Write(EncodePCM(buffer)); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
	}
}

func inputDevice(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("portaudio.DefaultInputDevice: %w", err)
		}
		return device, nil
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio.Devices: %w", err)
	}
	if index >= len(devices) {
		return nil, fmt.Errorf("no audio device with index %d", index)
	}
	return devices[index], nil
}
