package emit

import (
	"encoding/json"
	"fmt"
	"io"
)

// Emitter writes protocol events as newline-delimited JSON, one object per
// line, in the exact order the methods are called. Every line is flushed
// before the call returns so no event is ever held in a buffer at exit.
type Emitter struct {
	w io.Writer
}

type flusher interface {
	Flush() error
}

func New(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

type readyEvent struct {
	Type   string   `json:"type"`
	Models []string `json:"models"`
}

type detectionEvent struct {
	Type  string  `json:"type"`
	Model string  `json:"model"`
	Score float64 `json:"score"`
}

type messageEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Ready reports the loaded identity names. A nil slice is emitted as an
// empty JSON array, never null.
func (e *Emitter) Ready(models []string) error {
	if models == nil {
		models = []string{}
	}
	return e.emit(readyEvent{Type: "ready", Models: models})
}

func (e *Emitter) Detection(model string, score float64) error {
	return e.emit(detectionEvent{Type: "detection", Model: model, Score: score})
}

func (e *Emitter) Warning(message string) error {
	return e.emit(messageEvent{Type: "warning", Message: message})
}

func (e *Emitter) Error(message string) error {
	return e.emit(messageEvent{Type: "error", Message: message})
}

func (e *Emitter) emit(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err = e.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if f, ok := e.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
