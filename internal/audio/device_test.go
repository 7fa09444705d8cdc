package audio

import (
	"errors"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	f := DefaultFormat()
	if err := f.Validate(); err != nil {
		t.Fatalf("default format invalid: %v", err)
	}
	if f.FrameSize() != 2 {
		t.Errorf("FrameSize = %d, want 2", f.FrameSize())
	}
	if d := f.Duration(44100); d != time.Second {
		t.Errorf("Duration(44100) = %v, want 1s", d)
	}

	stereo := Format{SampleRate: 48000, Channels: 2, BitDepth: 16}
	if stereo.FrameSize() != 4 {
		t.Errorf("stereo FrameSize = %d, want 4", stereo.FrameSize())
	}

	bad := []Format{
		{SampleRate: 4000, Channels: 1, BitDepth: 16},
		{SampleRate: 22050, Channels: 0, BitDepth: 16},
		{SampleRate: 22050, Channels: 1, BitDepth: 8},
	}
	for _, f := range bad {
		if err := f.Validate(); err == nil {
			t.Errorf("Validate(%+v) should fail", f)
		}
	}
	if (Format{}).Duration(100) != 0 {
		t.Error("zero format should have zero duration")
	}
}

func TestClipValidate(t *testing.T) {
	ok := Clip{Key: "sipo", Data: make([]byte, 4), Format: DefaultFormat()}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	empty := Clip{Key: "sipo", Format: DefaultFormat()}
	if err := empty.Validate(); !errors.Is(err, ErrEmptyClip) {
		t.Errorf("Validate() = %v, want ErrEmptyClip", err)
	}

	odd := Clip{Key: "sipo", Data: make([]byte, 3), Format: DefaultFormat()}
	if err := odd.Validate(); err == nil {
		t.Error("misaligned clip should fail")
	}
}

func TestVoiceStateString(t *testing.T) {
	states := map[VoiceState]string{
		VoiceIdle:      "idle",
		VoicePlaying:   "playing",
		VoicePaused:    "paused",
		VoiceStopped:   "stopped",
		VoiceReleased:  "released",
		VoiceState(42): "unknown",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
