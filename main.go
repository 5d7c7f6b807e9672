package main

import (
	"log/slog"
	"os"

	"github.com/algo-boyz/wakegate/pkg/state"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wakegate",
		Short:        "Wake-event detection over a stdin/stdout PCM pipe",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newFeedCmd(), newListenCmd(), newDevicesCmd())
	return root
}

func newServeCmd() *cobra.Command {
	cfg := DefaultServerConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Read PCM frames from stdin and emit JSON detection events on stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			server := NewServer(os.Stdin, os.Stdout, log, cfg)
			ctx := state.NewContext()
			errc := make(chan error, 1)
			go func() {
				errc <- server.Run(ctx)
				ctx.Exit()
			}()
			ctx.AwaitExit()
			select {
			case err := <-errc:
				return err
			default:
				// interrupted mid-stream: clean exit
				return nil
			}
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.WakewordsDir, "wakewords-dir", "", "directory of per-identity wakeword configs")
	flags.StringSliceVar(&cfg.Characters, "characters", nil, "restrict loading to these identity names")
	flags.StringSliceVar(&cfg.ModelPaths, "models", nil, "flat .onnx model paths (legacy mode)")
	flags.Float32Var(&cfg.Threshold, "threshold", cfg.Threshold, "default detection threshold")
	flags.IntVar(&cfg.FrameSize, "frame-size", cfg.FrameSize, "audio frame size in samples")
	flags.Float32Var(&cfg.VADThreshold, "vad-threshold", 0, "voice activity gate in [0,1], 0 disables")
	flags.BoolVar(&cfg.NoiseSuppression, "noise-suppression", false, "enable noise suppression")
	flags.StringVar(&cfg.OnnxLibPath, "onnx-lib", "", "path to the onnxruntime shared library")
	return cmd
}
