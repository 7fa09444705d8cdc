package playback

import (
	"errors"
	"fmt"

	"github.com/dgnsrekt/vortaro/internal/freshness"
)

// Protocol errors
var (
	// ErrStorageUnavailable indicates the freshness channel could not be read.
	ErrStorageUnavailable = freshness.ErrStorageUnavailable

	// ErrEpochMismatch indicates a newer item has been published.
	ErrEpochMismatch = errors.New("epoch is no longer current")

	// ErrResourceAcquisitionFailed indicates the clip could not be loaded or
	// the output device refused to play it.
	ErrResourceAcquisitionFailed = errors.New("output resource acquisition failed")

	// ErrSuppressed is returned by actions on a suppressed context.
	ErrSuppressed = errors.New("playback suppressed")

	// ErrDetached indicates the host tore the context down.
	ErrDetached = errors.New("playback context detached")

	// ErrInvalidState indicates an action that the current state does not allow.
	ErrInvalidState = errors.New("invalid playback state")
)

// ErrorCode identifies the protocol error kinds.
type ErrorCode string

const (
	CodeStorageUnavailable  ErrorCode = "STORAGE_UNAVAILABLE"
	CodeEpochMismatch       ErrorCode = "EPOCH_MISMATCH"
	CodeResourceAcquisition ErrorCode = "RESOURCE_ACQUISITION_FAILED"
	CodeDetached            ErrorCode = "DETACHED"
)

// Error describes a failed checkpoint.
type Error struct {
	Code       ErrorCode
	Checkpoint string          // "arm", "autoplay", "play", "monitor", ...
	Epoch      freshness.Epoch // the context's own epoch
	Current    freshness.Epoch // what the channel held, for mismatches
	Cause      error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s at %s for %s", e.Code, e.Checkpoint, e.Epoch)
	if e.Code == CodeEpochMismatch && !e.Current.IsZero() {
		msg += fmt.Sprintf(" (current %s)", e.Current)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel for the code and the cause, so
// errors.Is(err, ErrEpochMismatch) and errors.Is(err, audio.ErrDeviceUnavailable)
// both work.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s := e.Code.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// FailsSafe reports whether the error suppresses the context.
func (e *Error) FailsSafe() bool {
	return e.Code != CodeResourceAcquisition
}

// IsRetryable reports whether a manual retry may succeed.
func (e *Error) IsRetryable() bool {
	return e.Code == CodeResourceAcquisition
}

func (c ErrorCode) sentinel() error {
	switch c {
	case CodeStorageUnavailable:
		return ErrStorageUnavailable
	case CodeEpochMismatch:
		return ErrEpochMismatch
	case CodeResourceAcquisition:
		return ErrResourceAcquisitionFailed
	case CodeDetached:
		return ErrDetached
	default:
		return nil
	}
}

// IsRetryable reports whether err is a recoverable acquisition failure.
func IsRetryable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.IsRetryable()
}
