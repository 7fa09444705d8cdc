package synth

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// interruptGrace is how long a timed out synthesizer gets to exit after an
// interrupt before it is killed.
const interruptGrace = 100 * time.Millisecond

// run executes a synthesizer with text on stdin and returns its stdout.
// Stdin is set before the process starts; some synthesizers read it the
// moment they launch.
func run(ctx context.Context, timeout time.Duration, stdin string, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = interruptGrace

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s timed out after %s: %w", name, timeout, ctx.Err())
		}
		return nil, fmt.Errorf("%s failed: %w, stderr: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// lookPath resolves a synthesizer binary with a hint when it is missing.
func lookPath(name, hint string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w\n\n%s", name, err, hint)
	}
	return path, nil
}

// readAndRemove reads a temporary output file and removes it.
func readAndRemove(path string) ([]byte, error) {
	defer os.Remove(path) //nolint:errcheck
	return os.ReadFile(path)
}
