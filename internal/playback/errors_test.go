package playback

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/freshness"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		sentinel  error
		failsSafe bool
	}{
		{
			name:      "storage",
			err:       &Error{Code: CodeStorageUnavailable, Checkpoint: "arm", Cause: freshness.ErrStorageUnavailable},
			sentinel:  ErrStorageUnavailable,
			failsSafe: true,
		},
		{
			name:      "mismatch",
			err:       &Error{Code: CodeEpochMismatch, Checkpoint: "monitor"},
			sentinel:  ErrEpochMismatch,
			failsSafe: true,
		},
		{
			name:      "acquisition",
			err:       &Error{Code: CodeResourceAcquisition, Checkpoint: "play", Cause: audio.ErrDeviceUnavailable},
			sentinel:  ErrResourceAcquisitionFailed,
			failsSafe: false,
		},
		{
			name:      "detached",
			err:       &Error{Code: CodeDetached, Checkpoint: "host"},
			sentinel:  ErrDetached,
			failsSafe: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			if tt.err.FailsSafe() != tt.failsSafe {
				t.Errorf("FailsSafe = %v, want %v", tt.err.FailsSafe(), tt.failsSafe)
			}
			if IsRetryable(tt.err) == tt.failsSafe {
				t.Errorf("IsRetryable = %v", IsRetryable(tt.err))
			}
			if tt.err.Cause != nil && !errors.Is(tt.err, tt.err.Cause) {
				t.Error("cause should be reachable")
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Code:       CodeEpochMismatch,
		Checkpoint: "monitor",
		Epoch:      epoch(1, "sipo"),
		Current:    epoch(2, "kato"),
	}
	msg := err.Error()
	for _, want := range []string{"EPOCH_MISMATCH", "monitor", "1:sipo", "current 2:kato"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q lacks %q", msg, want)
		}
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}
