package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgnsrekt/vortaro/internal/audio"
)

var (
	// ErrInvalidEngine is returned for an unknown engine name.
	ErrInvalidEngine = errors.New("invalid synthesis engine")

	// ErrEmptyText is returned when there is nothing to say.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrNoOutput is returned when the synthesizer exited cleanly but
	// produced no audio.
	ErrNoOutput = errors.New("synthesizer produced no audio")
)

// maxTextSize bounds the text of one item. Items are words or short
// sentences.
const maxTextSize = 1000

// Engine turns text into PCM audio.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]byte, audio.Format, error)

	// Validate checks that the synthesizer is installed and configured.
	Validate() error
}

// Config selects and configures an engine.
type Config struct {
	Engine  string        // "rhvoice" or "piper"
	Binary  string        // executable; empty for the engine's default
	Voice   string        // RHVoice voice or Piper speaker
	Model   string        // Piper model (.onnx)
	Timeout time.Duration // per item
}

// DefaultConfig returns the RHVoice Esperanto voice.
func DefaultConfig() Config {
	return Config{
		Engine:  "rhvoice",
		Voice:   "spomenka",
		Timeout: 10 * time.Second,
	}
}

// New returns the engine named in cfg.
func New(cfg Config) (Engine, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	switch cfg.Engine {
	case "", "rhvoice":
		return NewRHVoiceEngine(cfg), nil
	case "piper":
		return NewPiperEngine(cfg)
	default:
		return nil, fmt.Errorf("%w: %q (use rhvoice or piper)", ErrInvalidEngine, cfg.Engine)
	}
}

func checkText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if len(text) > maxTextSize {
		return fmt.Errorf("text too long: %d characters (max %d)", len(text), maxTextSize)
	}
	return nil
}
