package audio

import (
	"io"
	"math"
	"sync"
	"time"
)

// stream feeds clip frames to a player at an adjustable rate. Rate changes
// are done by stepping through source frames faster or slower (nearest
// neighbour), so pitch follows the rate.
type stream struct {
	mu sync.Mutex

	// CRITICAL: data must stay alive while the player reads from us.
	data      []byte
	frameSize int
	frames    int

	pos   float64 // source frame position
	step  float64 // source frames per output frame at rate 1.0
	rate  float64
	loop  bool
	ended bool

	sampleRate int
	endOnce    sync.Once
	endCh      chan struct{}
}

func newStream(clip Clip, outputRate int) *stream {
	fs := clip.Format.FrameSize()
	step := 1.0
	if outputRate > 0 {
		step = float64(clip.Format.SampleRate) / float64(outputRate)
	}
	return &stream{
		data:       clip.Data,
		frameSize:  fs,
		frames:     len(clip.Data) / fs,
		step:       step,
		rate:       DefaultRate,
		sampleRate: clip.Format.SampleRate,
		endCh:      make(chan struct{}),
	}
}

// Read implements io.Reader.
func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil || s.ended {
		return 0, io.EOF
	}

	n := 0
	advance := s.step * s.rate
	for n+s.frameSize <= len(p) {
		idx := int(s.pos)
		if idx >= s.frames {
			if !s.loop || s.frames == 0 {
				s.ended = true
				break
			}
			s.pos = math.Mod(s.pos, float64(s.frames))
			idx = int(s.pos)
		}
		copy(p[n:n+s.frameSize], s.data[idx*s.frameSize:(idx+1)*s.frameSize])
		n += s.frameSize
		s.pos += advance
	}

	if s.ended {
		s.endOnce.Do(func() { close(s.endCh) })
		if n == 0 {
			return 0, io.EOF
		}
	}
	return n, nil
}

func (s *stream) setRate(rate float64) {
	s.mu.Lock()
	s.rate = rate
	s.mu.Unlock()
}

func (s *stream) setLoop(loop bool) {
	s.mu.Lock()
	s.loop = loop
	s.mu.Unlock()
}

// seek moves to pos, clamped to the clip.
func (s *stream) seek(pos time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := pos.Seconds() * float64(s.sampleRate)
	if frame < 0 {
		frame = 0
	}
	if frame > float64(s.frames) {
		frame = float64(s.frames)
	}
	s.pos = frame
	if frame < float64(s.frames) {
		s.ended = false
	}
}

func (s *stream) rewind() {
	s.seek(0)
}

func (s *stream) position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampleRate == 0 {
		return 0
	}
	pos := s.pos
	if pos > float64(s.frames) {
		pos = float64(s.frames)
	}
	return time.Duration(pos / float64(s.sampleRate) * float64(time.Second))
}

func (s *stream) duration() time.Duration {
	if s.sampleRate == 0 {
		return 0
	}
	return time.Duration(s.frames) * time.Second / time.Duration(s.sampleRate)
}

// close drops the audio data so it can be collected.
func (s *stream) close() {
	s.mu.Lock()
	s.data = nil
	s.mu.Unlock()
}

// end is closed once the last frame has been handed out.
func (s *stream) end() <-chan struct{} {
	return s.endCh
}
