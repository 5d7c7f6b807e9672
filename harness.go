package main

import (
	"fmt"
	"os"

	"github.com/algo-boyz/wakegate/pkg/audio"
	"github.com/algo-boyz/wakegate/pkg/state"
	"github.com/spf13/cobra"
)

// Harness commands for exercising the detector without a parent process:
//
//	wakegate feed clip.wav | wakegate serve --wakewords-dir wakewords
//	wakegate listen | wakegate serve --models hey_jarvis.onnx

func newFeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed <file>",
		Short: "Decode a wav or mp3 file and write raw 16-bit PCM to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pcm, err := audio.Load(args[0])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(audio.EncodePCM(pcm))
			return err
		},
	}
}

func newListenCmd() *cobra.Command {
	var (
		device     = -1
		frameSize  = 1280
		sampleRate = 16000
	)
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Capture microphone input and write raw 16-bit PCM to stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := state.NewContext()
			errc := make(chan error, 1)
			go func() {
				errc <- audio.Capture(ctx, device, sampleRate, frameSize, os.Stdout)
				ctx.Exit()
			}()
			ctx.AwaitExit()
			select {
			case err := <-errc:
				return err
			default:
				return nil
			}
		},
	}
	cmd.Flags().IntVar(&device, "device", device, "audio input device index, -1 for default")
	cmd.Flags().IntVar(&frameSize, "frame-size", frameSize, "audio frame size in samples")
	cmd.Flags().IntVar(&sampleRate, "sample-rate", sampleRate, "capture sample rate in Hz")
	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := audio.ListInputDevices()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
