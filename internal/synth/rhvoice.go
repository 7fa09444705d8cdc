package synth

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/dgnsrekt/vortaro/internal/asset"
	"github.com/dgnsrekt/vortaro/internal/audio"
)

const rhvoiceHint = `RHVoice is not installed. To install:

   # Ubuntu/Debian
   sudo apt install rhvoice rhvoice-esperanto

   # Arch Linux
   yay -S rhvoice rhvoice-voice-spomenka

Then check the voice with: echo saluton | RHVoice-test -p spomenka`

// RHVoiceEngine runs RHVoice-test, which reads text on stdin and writes a
// WAV file.
type RHVoiceEngine struct {
	binary string
	voice  string
	cfg    Config
}

// NewRHVoiceEngine returns an RHVoice engine. The binary defaults to
// RHVoice-test and the voice to spomenka.
func NewRHVoiceEngine(cfg Config) *RHVoiceEngine {
	binary := cfg.Binary
	if binary == "" {
		binary = "RHVoice-test"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultConfig().Voice
	}
	return &RHVoiceEngine{binary: binary, voice: voice, cfg: cfg}
}

func (e *RHVoiceEngine) Name() string { return "rhvoice/" + e.voice }

// Synthesize runs RHVoice into a temporary file and decodes it.
func (e *RHVoiceEngine) Synthesize(ctx context.Context, text string) ([]byte, audio.Format, error) {
	if err := checkText(text); err != nil {
		return nil, audio.Format{}, err
	}

	tmp, err := os.CreateTemp("", "vortaro-rhvoice-*.wav")
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	_ = tmp.Close()

	if _, err := run(ctx, e.cfg.Timeout, text, e.binary, "-p", e.voice, "-o", tmp.Name()); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, audio.Format{}, err
	}

	raw, err := readAndRemove(tmp.Name())
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("failed to read rhvoice output: %w", err)
	}
	if len(raw) == 0 {
		return nil, audio.Format{}, ErrNoOutput
	}
	return asset.DecodeWAV(bytes.NewReader(raw))
}

// Validate checks that the binary is on PATH.
func (e *RHVoiceEngine) Validate() error {
	_, err := lookPath(e.binary, rhvoiceHint)
	return err
}

var _ Engine = (*RHVoiceEngine)(nil)
