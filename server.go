package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/algo-boyz/wakegate/pkg/config"
	"github.com/algo-boyz/wakegate/pkg/dispatch"
	"github.com/algo-boyz/wakegate/pkg/emit"
	"github.com/algo-boyz/wakegate/pkg/frame"
	"github.com/algo-boyz/wakegate/pkg/onnx"
	"github.com/algo-boyz/wakegate/pkg/scorer"
	"github.com/algo-boyz/wakegate/pkg/state"
)

type ServerConfig struct {
	WakewordsDir     string
	Characters       []string
	ModelPaths       []string
	Threshold        float32
	FrameSize        int
	VADThreshold     float32
	NoiseSuppression bool
	OnnxLibPath      string
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Threshold: 0.5,
		FrameSize: 1280, // 80ms at 16kHz
	}
}

// Server ties the identity table, scorer pool, frame reader and event
// emitter into the streaming lifecycle. Protocol events go to out; anything
// diagnostic goes to the logger, never to the protocol stream.
type Server struct {
	cfg      ServerConfig
	in       io.Reader
	emitter  *emit.Emitter
	log      *slog.Logger
	onnxOnce sync.Once

	// loadBackend is swapped for a fake in tests
	loadBackend func(ctx state.Context, modelPath string) (scorer.Backend, error)
}

func NewServer(in io.Reader, out io.Writer, log *slog.Logger, cfg ServerConfig) *Server {
	s := &Server{
		cfg:     cfg,
		in:      in,
		emitter: emit.New(out),
		log:     log,
	}
	s.loadBackend = s.loadONNX
	return s
}

func (s *Server) loadONNX(ctx state.Context, modelPath string) (scorer.Backend, error) {
	var initErr error
	s.onnxOnce.Do(func() {
		if initErr = onnx.EnsureRuntime(); initErr != nil {
			return
		}
		if initErr = onnx.Init(s.cfg.OnnxLibPath); initErr != nil {
			return
		}
		ctx.OnExit(func() {
			if err := onnx.Shutdown(); err != nil {
				s.log.Warn("failed to shut down onnx runtime", "error", err)
			}
		})
	})
	if initErr != nil {
		return nil, initErr
	}
	return onnx.LoadModel(modelPath)
}

// Run drives the lifecycle Loading -> Ready -> Streaming -> Closed. Any load
// failure emits one error event and returns non-nil (Failed, exit non-zero).
// Frame-local faults emit an error event and the stream continues. End of
// input and interrupts both return nil (clean exit).
func (s *Server) Run(ctx state.Context) error {
	resolved, err := config.Resolve(s.cfg.WakewordsDir, s.cfg.Characters, s.cfg.ModelPaths, s.cfg.Threshold)
	if err != nil {
		s.emitter.Error(err.Error())
		return err
	}
	for _, warning := range resolved.Warnings {
		if err := s.emitter.Warning(warning); err != nil {
			return err
		}
	}
	registry := scorer.NewRegistry(scorer.Options{
		VADThreshold:     s.cfg.VADThreshold,
		NoiseSuppression: s.cfg.NoiseSuppression,
	})
	for _, ident := range resolved.Identities {
		backend, err := s.loadBackend(ctx, ident.ModelPath)
		if err != nil {
			err = fmt.Errorf("failed to load models: %w", err)
			s.emitter.Error(err.Error())
			return err
		}
		if err = registry.Add(ident.Name, backend); err != nil {
			s.emitter.Error(err.Error())
			return err
		}
	}
	defer func() {
		if cerr := registry.Close(); cerr != nil {
			s.log.Warn("failed to close registry", "error", cerr)
		}
	}()

	names := config.Names(resolved.Identities)
	if err := s.emitter.Ready(names); err != nil {
		return err
	}
	s.log.Debug("streaming", "models", names, "frame_size", s.cfg.FrameSize)

	table := config.Table(resolved.Identities)
	reader := frame.NewReader(s.in, s.cfg.FrameSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		pcm, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			s.emitter.Error(err.Error())
			return err
		}
		scores, err := registry.Score(pcm)
		if err != nil {
			// frame-local fault: report it and keep streaming
			if err := s.emitter.Error(err.Error()); err != nil {
				return err
			}
			continue
		}
		for _, d := range dispatch.Dispatch(scores, table, s.cfg.Threshold) {
			if err := s.emitter.Detection(d.Identity, float64(d.Score)); err != nil {
				return err
			}
		}
	}
}
