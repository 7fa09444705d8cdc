package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/vortaro/internal/audio"
)

const piperHint = `Piper TTS is not installed. To install:

1. Download Piper from: https://github.com/rhasspy/piper/releases
2. Extract it and add it to PATH
3. Download a voice model from: https://github.com/rhasspy/piper/blob/master/VOICES.md
4. Set synth.model in the vortaro config file`

// PiperEngine runs Piper, which reads text on stdin and writes raw PCM on
// stdout with --output-raw.
type PiperEngine struct {
	binary     string
	modelPath  string
	configPath string
	speaker    string
	sampleRate int
	cfg        Config
}

// piperModelConfig is the part of a Piper model's .onnx.json we need.
type piperModelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
}

// NewPiperEngine returns a Piper engine for cfg.Model. The sample rate is
// read from the model config next to it, defaulting to 22050 Hz.
func NewPiperEngine(cfg Config) (*PiperEngine, error) {
	if cfg.Model == "" {
		return nil, errors.New("piper model path is required")
	}
	if _, err := os.Stat(cfg.Model); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	binary := cfg.Binary
	if binary == "" {
		binary = "piper"
	}
	e := &PiperEngine{
		binary:     binary,
		modelPath:  cfg.Model,
		speaker:    cfg.Voice,
		sampleRate: audio.DefaultFormat().SampleRate,
		cfg:        cfg,
	}

	for _, p := range []string{
		cfg.Model + ".json",
		strings.TrimSuffix(cfg.Model, filepath.Ext(cfg.Model)) + ".json",
	} {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var mc piperModelConfig
		if err := json.Unmarshal(data, &mc); err != nil {
			return nil, fmt.Errorf("invalid model config %s: %w", filepath.Base(p), err)
		}
		e.configPath = p
		if mc.Audio.SampleRate > 0 {
			e.sampleRate = mc.Audio.SampleRate
		}
		break
	}
	return e, nil
}

func (e *PiperEngine) Name() string { return "piper/" + filepath.Base(e.modelPath) }

// Synthesize runs Piper and returns its raw output.
func (e *PiperEngine) Synthesize(ctx context.Context, text string) ([]byte, audio.Format, error) {
	if err := checkText(text); err != nil {
		return nil, audio.Format{}, err
	}

	args := []string{"--model", e.modelPath, "--output-raw"}
	if e.configPath != "" {
		args = append(args, "--config", e.configPath)
	}
	if e.speaker != "" {
		args = append(args, "--speaker", e.speaker)
	}

	data, err := run(ctx, e.cfg.Timeout, text, e.binary, args...)
	if err != nil {
		return nil, audio.Format{}, err
	}

	format := audio.Format{SampleRate: e.sampleRate, Channels: 1, BitDepth: 16}
	data = data[:len(data)-len(data)%format.FrameSize()]
	if len(data) == 0 {
		return nil, audio.Format{}, ErrNoOutput
	}
	return data, format, nil
}

// Validate checks that the binary is on PATH and the model is readable.
func (e *PiperEngine) Validate() error {
	if _, err := lookPath(e.binary, piperHint); err != nil {
		return err
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return fmt.Errorf("model file not accessible: %w", err)
	}
	return nil
}

var _ Engine = (*PiperEngine)(nil)
