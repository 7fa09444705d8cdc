package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player is the oto-backed output device. Oto allows a single context per
// process, so a Player is created once and shared by every voice.
type Player struct {
	// OTO context - initialized once and reused
	context *oto.Context

	voices map[*otoVoice]struct{}
	closed bool
	mu     sync.Mutex

	// Configuration
	sampleRate int
	channels   int
	bitDepth   int
	bufferSize int
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // 16 bits per sample
	BufferSize int // Buffer size for streaming
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100, // CD quality
		Channels:   1,     // Mono for spoken words
		BitDepth:   16,    // Standard bit depth
		BufferSize: 4096,  // 4KB buffer
	}
}

// NewPlayer creates the audio device with the specified configuration.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: config.Channels,
		Format:       oto.FormatSignedInt16LE, // 16-bit little endian
		BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*config.Channels*2),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create oto context: %w", ErrDeviceUnavailable, err)
	}

	// Wait for context to be ready
	<-readyChan

	return &Player{
		context:    ctx,
		voices:     make(map[*otoVoice]struct{}),
		sampleRate: config.SampleRate,
		channels:   config.Channels,
		bitDepth:   config.BitDepth,
		bufferSize: config.BufferSize,
	}, nil
}

// validateConfig validates the player configuration.
func validateConfig(config PlayerConfig) error {
	// OTO only supports specific sample rates reliably
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}

	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}

	if config.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", config.BitDepth)
	}

	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}

	return nil
}

// Acquire creates a voice for the clip. Clips at another sample rate are
// resampled on the fly; the channel count must match the device.
func (p *Player) Acquire(owner string, clip Clip) (Voice, error) {
	if err := clip.Validate(); err != nil {
		return nil, fmt.Errorf("clip %q: %w", clip.Key, err)
	}
	if clip.Format.Channels != p.channels {
		return nil, fmt.Errorf("clip %q has %d channels, device %d: %w",
			clip.Key, clip.Format.Channels, p.channels, ErrFormatMismatch)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.context == nil {
		return nil, ErrDeviceUnavailable
	}

	st := newStream(clip, p.sampleRate)
	player := p.context.NewPlayer(st)
	if player == nil {
		return nil, fmt.Errorf("%w: failed to create oto player", ErrDeviceUnavailable)
	}

	v := &otoVoice{
		owner:  owner,
		device: p,
		player: player,
		stream: st,
		done:   make(chan struct{}),
	}
	v.state.Store(int32(VoiceIdle))
	p.voices[v] = struct{}{}

	return v, nil
}

// ActiveVoices returns the number of voices currently playing.
func (p *Player) ActiveVoices() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for v := range p.voices {
		if v.State() == VoicePlaying {
			n++
		}
	}
	return n
}

func (p *Player) forget(v *otoVoice) {
	p.mu.Lock()
	delete(p.voices, v)
	p.mu.Unlock()
}

// Close releases every voice and the audio device.
func (p *Player) Close() error {
	p.mu.Lock()
	voices := make([]*otoVoice, 0, len(p.voices))
	for v := range p.voices {
		voices = append(voices, v)
	}
	p.closed = true
	p.mu.Unlock()

	for _, v := range voices {
		v.Release()
	}

	p.mu.Lock()
	// Note: oto.Context doesn't have a Close method in v3
	// The context will be garbage collected when no longer referenced
	p.context = nil
	p.mu.Unlock()

	return nil
}

// outputPlayer is the part of *oto.Player a voice drives.
type outputPlayer interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// otoVoice plays one clip through an oto player.
type otoVoice struct {
	owner  string
	device *Player
	player outputPlayer
	stream *stream

	state atomic.Int32 // VoiceState

	done     chan struct{}
	doneOnce sync.Once
	watch    chan struct{} // closed to end the completion watcher
	mu       sync.Mutex
}

func (v *otoVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch VoiceState(v.state.Load()) {
	case VoiceReleased:
		return ErrVoiceReleased
	case VoicePlaying:
		return nil
	}

	v.player.Play()
	v.state.Store(int32(VoicePlaying))

	if v.watch == nil {
		v.watch = make(chan struct{})
		go v.watchCompletion(v.watch)
	}
	return nil
}

// stopWatchLocked ends the completion watcher. Caller holds v.mu.
func (v *otoVoice) stopWatchLocked() {
	if v.watch != nil {
		close(v.watch)
		v.watch = nil
	}
}

// watchCompletion waits for the stream to hand out its last frame, then for
// oto to drain its buffer, and marks the voice finished. It returns when stop
// is closed by Stop or Release.
func (v *otoVoice) watchCompletion(stop chan struct{}) {
	select {
	case <-v.stream.end():
	case <-stop:
		return
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		v.mu.Lock()
		if VoiceState(v.state.Load()) == VoicePlaying && !v.player.IsPlaying() {
			v.state.Store(int32(VoiceStopped))
			v.stopWatchLocked()
			v.mu.Unlock()
			v.doneOnce.Do(func() { close(v.done) })
			return
		}
		v.mu.Unlock()
	}
}

func (v *otoVoice) Pause() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := VoiceState(v.state.Load())
	if state == VoiceReleased {
		return ErrVoiceReleased
	}
	if state != VoicePlaying {
		return fmt.Errorf("cannot pause: voice is %s", state)
	}
	v.player.Pause()
	v.state.Store(int32(VoicePaused))
	return nil
}

func (v *otoVoice) Resume() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := VoiceState(v.state.Load())
	if state == VoiceReleased {
		return ErrVoiceReleased
	}
	if state != VoicePaused {
		return fmt.Errorf("cannot resume: voice is %s", state)
	}
	v.player.Play()
	v.state.Store(int32(VoicePlaying))
	return nil
}

func (v *otoVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := VoiceState(v.state.Load())
	if state == VoiceReleased || state == VoiceStopped {
		return nil
	}
	v.player.Pause()
	v.stream.rewind()
	v.stopWatchLocked()
	v.state.Store(int32(VoiceStopped))
	return nil
}

func (v *otoVoice) Release() {
	v.mu.Lock()
	if VoiceState(v.state.Load()) == VoiceReleased {
		v.mu.Unlock()
		return
	}
	v.stopWatchLocked()
	v.player.Pause()     // Pause first
	_ = v.player.Close() // Then close
	v.stream.close()     // Allows GC of the clip
	v.state.Store(int32(VoiceReleased))
	v.mu.Unlock()

	v.device.forget(v)
}

func (v *otoVoice) SetRate(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	if v.State() == VoiceReleased {
		return ErrVoiceReleased
	}
	v.stream.setRate(rate)
	return nil
}

func (v *otoVoice) SetLoop(loop bool) {
	v.stream.setLoop(loop)
}

func (v *otoVoice) Seek(pos time.Duration) error {
	if v.State() == VoiceReleased {
		return ErrVoiceReleased
	}
	v.stream.seek(pos)
	return nil
}

func (v *otoVoice) Position() time.Duration { return v.stream.position() }
func (v *otoVoice) Duration() time.Duration { return v.stream.duration() }
func (v *otoVoice) State() VoiceState       { return VoiceState(v.state.Load()) }
func (v *otoVoice) Done() <-chan struct{}   { return v.done }

var _ Device = (*Player)(nil)
