package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"
)

// rampClip returns a mono clip whose n-th frame holds the value n.
func rampClip(frames, sampleRate int) Clip {
	data := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(i))
	}
	return Clip{Key: "ramp", Data: data, Format: Format{SampleRate: sampleRate, Channels: 1, BitDepth: 16}}
}

func frameValues(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return out
}

func TestStream_ReadToEOF(t *testing.T) {
	s := newStream(rampClip(10, 8000), 8000)

	buf := make([]byte, 8)
	n, err := s.Read(buf)
	if err != nil || n != 8 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if got := frameValues(buf); got[0] != 0 || got[3] != 3 {
		t.Errorf("frames = %v", got)
	}

	all, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(all) != 12 {
		t.Errorf("remaining bytes = %d, want 12", len(all))
	}

	select {
	case <-s.end():
	default:
		t.Error("end channel should be closed after the last frame")
	}
	if _, err := s.Read(buf); !errors.Is(err, io.EOF) {
		t.Errorf("Read after end = %v, want EOF", err)
	}
}

func TestStream_Rate(t *testing.T) {
	tests := []struct {
		name   string
		rate   float64
		frames int
	}{
		{"normal", 1.0, 100},
		{"double", 2.0, 50},
		{"half", 0.5, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStream(rampClip(100, 8000), 8000)
			s.setRate(tt.rate)

			all, err := io.ReadAll(s)
			if err != nil {
				t.Fatalf("ReadAll failed: %v", err)
			}
			if got := len(all) / 2; got != tt.frames {
				t.Errorf("output frames = %d, want %d", got, tt.frames)
			}
		})
	}
}

func TestStream_ResamplesToOutputRate(t *testing.T) {
	// 22050 Hz clip on a 44100 Hz device doubles the frame count.
	s := newStream(rampClip(100, 22050), 44100)
	all, _ := io.ReadAll(s)
	if got := len(all) / 2; got != 200 {
		t.Errorf("output frames = %d, want 200", got)
	}
	if d := s.duration(); d != 100*time.Second/22050 {
		t.Errorf("duration = %v", d)
	}
}

func TestStream_Loop(t *testing.T) {
	s := newStream(rampClip(4, 8000), 8000)
	s.setLoop(true)

	buf := make([]byte, 20)
	n, err := s.Read(buf)
	if err != nil || n != 20 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	want := []uint16{0, 1, 2, 3, 0, 1, 2, 3, 0, 1}
	got := frameValues(buf)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("frames = %v, want %v", got, want)
		}
	}

	select {
	case <-s.end():
		t.Error("looping stream should not end")
	default:
	}
}

func TestStream_Seek(t *testing.T) {
	s := newStream(rampClip(8000, 8000), 8000)

	s.seek(500 * time.Millisecond)
	if got := s.position(); got != 500*time.Millisecond {
		t.Errorf("position = %v, want 500ms", got)
	}

	buf := make([]byte, 2)
	_, _ = s.Read(buf)
	if v := frameValues(buf)[0]; v != 4000 {
		t.Errorf("frame after seek = %d, want 4000", v)
	}

	s.seek(-time.Second)
	if s.position() != 0 {
		t.Errorf("negative seek should clamp to 0, got %v", s.position())
	}

	s.seek(time.Hour)
	if s.position() != time.Second {
		t.Errorf("seek past end should clamp to duration, got %v", s.position())
	}
}

func TestStream_RewindAfterEnd(t *testing.T) {
	s := newStream(rampClip(4, 8000), 8000)
	_, _ = io.ReadAll(s)

	s.rewind()
	buf := make([]byte, 8)
	n, err := s.Read(buf)
	if err != nil || n != 8 {
		t.Errorf("Read after rewind = %d, %v", n, err)
	}
}

func TestStream_CloseDropsData(t *testing.T) {
	s := newStream(rampClip(4, 8000), 8000)
	s.close()
	if _, err := s.Read(make([]byte, 2)); !errors.Is(err, io.EOF) {
		t.Errorf("Read after close = %v, want EOF", err)
	}
}
