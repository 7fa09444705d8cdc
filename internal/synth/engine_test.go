package synth

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/vortaro/internal/asset"
	"github.com/dgnsrekt/vortaro/internal/audio"
)

// fakeBinary writes an executable shell script standing in for a
// synthesizer.
func fakeBinary(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil { //nolint:gosec
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	if _, err := New(Config{Engine: "espeak"}); !errors.Is(err, ErrInvalidEngine) {
		t.Errorf("New(espeak) = %v, want ErrInvalidEngine", err)
	}
	e, err := New(Config{})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if e.Name() != "rhvoice/spomenka" {
		t.Errorf("default engine = %s", e.Name())
	}
	if _, err := New(Config{Engine: "piper"}); err == nil {
		t.Error("piper without a model should fail")
	}
}

func TestRun(t *testing.T) {
	cat := fakeBinary(t, "echo-stdin", "cat\n")
	out, err := run(context.Background(), time.Second, "saluton", cat)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if string(out) != "saluton" {
		t.Errorf("stdout = %q, want stdin echoed", out)
	}

	failing := fakeBinary(t, "fail", "echo 'no voice' >&2\nexit 3\n")
	if _, err := run(context.Background(), time.Second, "", failing); err == nil || !strings.Contains(err.Error(), "no voice") {
		t.Errorf("run = %v, want stderr in the error", err)
	}

	slow := fakeBinary(t, "slow", "exec sleep 5\n")
	start := time.Now()
	_, err = run(context.Background(), 50*time.Millisecond, "", slow)
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("run = %v, want a timeout", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("timed out synthesizer was not stopped")
	}
}

func TestRHVoiceEngine(t *testing.T) {
	format := audio.DefaultFormat()
	src := filepath.Join(t.TempDir(), "src.wav")
	var buf bytes.Buffer
	if err := asset.EncodeWAV(&buf, make([]byte, 2000), format); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	// RHVoice-test -p VOICE -o PATH
	bin := fakeBinary(t, "RHVoice-test", "cat > /dev/null\ncp '"+src+"' \"$4\"\n")
	e := NewRHVoiceEngine(Config{Binary: bin, Timeout: time.Second})

	data, got, err := e.Synthesize(context.Background(), "saluton")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if got != format || len(data) != 2000 {
		t.Errorf("got %v with %d bytes", got, len(data))
	}
	if err := e.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
	if _, _, err := e.Synthesize(context.Background(), ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Synthesize(\"\") = %v, want ErrEmptyText", err)
	}
}

func TestPiperEngine(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "eo-medium.onnx")
	if err := os.WriteFile(model, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(model+".json", []byte(`{"audio":{"sample_rate":16000}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	// 1001 bytes: the odd byte is not a whole frame.
	bin := fakeBinary(t, "piper", "cat > /dev/null\nhead -c 1001 /dev/zero\n")
	e, err := NewPiperEngine(Config{Binary: bin, Model: model, Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewPiperEngine failed: %v", err)
	}

	data, format, err := e.Synthesize(context.Background(), "saluton")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if format.SampleRate != 16000 || format.Channels != 1 {
		t.Errorf("format = %+v, want the model's 16 kHz mono", format)
	}
	if len(data) != 1000 {
		t.Errorf("len(data) = %d, want 1000", len(data))
	}
}
