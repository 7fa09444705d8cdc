package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer implements Device for testing and headless runs. It simulates
// playback by draining each voice's stream in real time without producing
// sound, so rate, loop and seek behave as they do on a real device.
type MockPlayer struct {
	unavailable atomic.Bool

	// Speed up/slow down simulated playback; < 1.0 means faster.
	delayFactor float64
	tick        time.Duration

	// Metrics for testing
	acquireCount atomic.Int64
	audible      atomic.Int64
	maxAudible   atomic.Int64

	history []string
	mu      sync.Mutex
}

// MockPlayerMetrics contains playback metrics for testing.
type MockPlayerMetrics struct {
	AcquireCount int64
	Audible      int64
	MaxAudible   int64
}

// DefaultMockPlayer creates a new mock device with default settings.
func DefaultMockPlayer() *MockPlayer {
	return &MockPlayer{
		delayFactor: 1.0,
		tick:        5 * time.Millisecond,
	}
}

// SetDelayFactor sets the playback speed factor for testing.
// 1.0 is real time, 0.1 plays ten times faster.
func (mp *MockPlayer) SetDelayFactor(factor float64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if factor > 0 {
		mp.delayFactor = factor
	}
}

// SetAvailable simulates a device that refuses playback (autoplay blocked,
// device busy).
func (mp *MockPlayer) SetAvailable(available bool) {
	mp.unavailable.Store(!available)
}

// Acquire returns a simulated voice.
func (mp *MockPlayer) Acquire(owner string, clip Clip) (Voice, error) {
	if mp.unavailable.Load() {
		return nil, ErrDeviceUnavailable
	}
	if err := clip.Validate(); err != nil {
		return nil, fmt.Errorf("clip %q: %w", clip.Key, err)
	}
	mp.acquireCount.Add(1)

	mp.mu.Lock()
	delay := mp.delayFactor
	mp.mu.Unlock()

	v := &mockVoice{
		owner:  owner,
		device: mp,
		stream: newStream(clip, clip.Format.SampleRate),
		delay:  delay,
		done:   make(chan struct{}),
	}
	v.state.Store(int32(VoiceIdle))
	return v, nil
}

// Metrics returns playback metrics.
func (mp *MockPlayer) Metrics() MockPlayerMetrics {
	return MockPlayerMetrics{
		AcquireCount: mp.acquireCount.Load(),
		Audible:      mp.audible.Load(),
		MaxAudible:   mp.maxAudible.Load(),
	}
}

// History returns the owners of every voice that started playing, in order.
func (mp *MockPlayer) History() []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([]string, len(mp.history))
	copy(out, mp.history)
	return out
}

func (mp *MockPlayer) markAudible(owner string, first bool) {
	n := mp.audible.Add(1)
	for {
		peak := mp.maxAudible.Load()
		if n <= peak || mp.maxAudible.CompareAndSwap(peak, n) {
			break
		}
	}
	if !first {
		return
	}
	mp.mu.Lock()
	mp.history = append(mp.history, owner)
	mp.mu.Unlock()
}

func (mp *MockPlayer) markSilent() {
	mp.audible.Add(-1)
}

// mockVoice drains its stream on a ticker while playing.
type mockVoice struct {
	owner  string
	device *MockPlayer
	stream *stream
	delay  float64

	state   atomic.Int32 // VoiceState
	audible bool
	started bool

	stopCh     chan struct{}
	playbackWg sync.WaitGroup

	done     chan struct{}
	doneOnce sync.Once
	mu       sync.Mutex
}

func (v *mockVoice) Start() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch VoiceState(v.state.Load()) {
	case VoiceReleased:
		return ErrVoiceReleased
	case VoicePlaying:
		return nil
	}
	v.playInternal()
	return nil
}

// playInternal starts the simulation goroutine. Caller holds v.mu.
func (v *mockVoice) playInternal() {
	v.state.Store(int32(VoicePlaying))
	v.setAudible(true)
	v.stopCh = make(chan struct{})
	v.playbackWg.Add(1)
	go v.simulatePlayback(v.stopCh)
}

// haltInternal stops the simulation goroutine. Caller holds v.mu.
func (v *mockVoice) haltInternal() {
	if VoiceState(v.state.Load()) == VoicePlaying {
		close(v.stopCh)
	}
	v.setAudible(false)
}

func (v *mockVoice) setAudible(on bool) {
	if on == v.audible {
		return
	}
	v.audible = on
	if on {
		v.device.markAudible(v.owner, !v.started)
		v.started = true
		return
	}
	v.device.markSilent()
}

func (v *mockVoice) simulatePlayback(stopCh chan struct{}) {
	defer v.playbackWg.Done()

	tick := v.device.tick
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	frames := int(tick.Seconds() * float64(v.stream.sampleRate) / v.delay)
	if frames < 1 {
		frames = 1
	}
	buf := make([]byte, frames*v.stream.frameSize)

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := v.stream.Read(buf); err != nil {
				v.finish(stopCh)
				return
			}
		}
	}
}

// finish marks natural completion unless the voice was stopped meanwhile.
func (v *mockVoice) finish(stopCh chan struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()

	select {
	case <-stopCh:
		return
	default:
	}
	if VoiceState(v.state.Load()) != VoicePlaying {
		return
	}
	close(stopCh)
	v.setAudible(false)
	v.state.Store(int32(VoiceStopped))
	v.doneOnce.Do(func() { close(v.done) })
}

func (v *mockVoice) Pause() error {
	v.mu.Lock()

	state := VoiceState(v.state.Load())
	if state == VoiceReleased {
		v.mu.Unlock()
		return ErrVoiceReleased
	}
	if state != VoicePlaying {
		v.mu.Unlock()
		return fmt.Errorf("cannot pause: voice is %s", state)
	}
	v.haltInternal()
	v.state.Store(int32(VoicePaused))
	v.mu.Unlock()

	v.playbackWg.Wait()
	return nil
}

func (v *mockVoice) Resume() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := VoiceState(v.state.Load())
	if state == VoiceReleased {
		return ErrVoiceReleased
	}
	if state != VoicePaused {
		return fmt.Errorf("cannot resume: voice is %s", state)
	}
	v.playInternal()
	return nil
}

func (v *mockVoice) Stop() error {
	v.mu.Lock()
	state := VoiceState(v.state.Load())
	if state == VoiceReleased || state == VoiceStopped {
		v.mu.Unlock()
		return nil
	}
	v.haltInternal()
	v.state.Store(int32(VoiceStopped))
	v.mu.Unlock()

	v.playbackWg.Wait()
	v.stream.rewind()
	return nil
}

func (v *mockVoice) Release() {
	v.mu.Lock()
	if VoiceState(v.state.Load()) == VoiceReleased {
		v.mu.Unlock()
		return
	}
	v.haltInternal()
	v.state.Store(int32(VoiceReleased))
	v.mu.Unlock()

	v.playbackWg.Wait()
	v.stream.close()
}

func (v *mockVoice) SetRate(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	if v.State() == VoiceReleased {
		return ErrVoiceReleased
	}
	v.stream.setRate(rate)
	return nil
}

func (v *mockVoice) SetLoop(loop bool) {
	v.stream.setLoop(loop)
}

func (v *mockVoice) Seek(pos time.Duration) error {
	if v.State() == VoiceReleased {
		return ErrVoiceReleased
	}
	if pos < 0 {
		return errors.New("seek position must not be negative")
	}
	v.stream.seek(pos)
	return nil
}

func (v *mockVoice) Position() time.Duration { return v.stream.position() }
func (v *mockVoice) Duration() time.Duration { return v.stream.duration() }
func (v *mockVoice) State() VoiceState       { return VoiceState(v.state.Load()) }
func (v *mockVoice) Done() <-chan struct{}   { return v.done }

var _ Device = (*MockPlayer)(nil)
