package audio

import (
	"errors"
	"fmt"
	"time"
)

// Common errors for audio output.
var (
	// ErrDeviceUnavailable indicates the output device is closed, failed to
	// initialize, or refuses to start playback (e.g. autoplay blocked).
	ErrDeviceUnavailable = errors.New("audio device unavailable")

	// ErrFormatMismatch indicates a clip cannot be played on the device.
	ErrFormatMismatch = errors.New("clip format does not match device")

	// ErrVoiceReleased indicates an operation on a released voice.
	ErrVoiceReleased = errors.New("voice has been released")

	// ErrEmptyClip indicates a clip without audio data.
	ErrEmptyClip = errors.New("clip has no audio data")
)

// Format describes interleaved signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat is used for raw .pcm assets without a header.
func DefaultFormat() Format {
	return Format{SampleRate: 22050, Channels: 1, BitDepth: 16}
}

// FrameSize returns the number of bytes per frame (one sample per channel).
func (f Format) FrameSize() int {
	return f.BitDepth / 8 * f.Channels
}

// Duration returns the play time of n bytes at normal rate.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate == 0 || f.FrameSize() == 0 {
		return 0
	}
	frames := n / f.FrameSize()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Validate checks that the format can be played.
func (f Format) Validate() error {
	if f.SampleRate < 8000 || f.SampleRate > 96000 {
		return fmt.Errorf("sample rate must be between 8000 and 96000 Hz, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", f.BitDepth)
	}
	return nil
}

// Clip is a decoded audio asset keyed by item key.
type Clip struct {
	Key    string
	Data   []byte
	Format Format
}

// Duration returns the clip length at normal rate.
func (c Clip) Duration() time.Duration {
	return c.Format.Duration(len(c.Data))
}

// Validate checks the clip before it is handed to a device.
func (c Clip) Validate() error {
	if len(c.Data) == 0 {
		return ErrEmptyClip
	}
	if err := c.Format.Validate(); err != nil {
		return err
	}
	if len(c.Data)%c.Format.FrameSize() != 0 {
		return fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(c.Data), c.Format.FrameSize())
	}
	return nil
}

// VoiceState is the playback state of a voice.
type VoiceState int32

const (
	// VoiceIdle indicates the voice has not started yet.
	VoiceIdle VoiceState = iota
	// VoicePlaying indicates the voice is audible.
	VoicePlaying
	// VoicePaused indicates playback is paused.
	VoicePaused
	// VoiceStopped indicates playback was stopped or ran to its end.
	VoiceStopped
	// VoiceReleased indicates the voice gave its resources back.
	VoiceReleased
)

// String returns the string representation of the state.
func (s VoiceState) String() string {
	switch s {
	case VoiceIdle:
		return "idle"
	case VoicePlaying:
		return "playing"
	case VoicePaused:
		return "paused"
	case VoiceStopped:
		return "stopped"
	case VoiceReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Voice is one caller's exclusive handle on the output device.
type Voice interface {
	// Start begins playback from the current position.
	Start() error
	Pause() error
	Resume() error

	// Stop halts playback and rewinds. Stopping twice is a no-op.
	Stop() error

	// Release stops playback and frees the voice. Safe to call repeatedly.
	Release()

	// SetRate changes the playback rate (MinRate to MaxRate).
	SetRate(rate float64) error
	SetLoop(loop bool)
	Seek(pos time.Duration) error

	Position() time.Duration
	Duration() time.Duration
	State() VoiceState

	// Done is closed when a non-looping clip plays to its end.
	Done() <-chan struct{}
}

// Device hands out voices.
type Device interface {
	// Acquire returns a voice for the clip. The owner is only used for
	// bookkeeping and logs.
	Acquire(owner string, clip Clip) (Voice, error)
}
