package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/freshness"
)

// Loader returns the decoded clip for an item key.
type Loader interface {
	Load(ctx context.Context, key string) (audio.Clip, error)
}

// Config configures a playback Context.
type Config struct {
	Epoch     freshness.Epoch
	Channel   freshness.Channel
	Device    audio.Device
	Loader    Loader
	Presenter Presenter // optional
	Schedule  Schedule

	// After, when set, holds the arming check back until it is closed. A
	// session host passes the Done channel of the epoch's Beacon so the
	// Beacon wins the race to the channel.
	After <-chan struct{}

	// AutoStart starts output AutoplayDelay after arming.
	AutoStart bool

	// Initial rate (0 means audio.DefaultRate) and loop flag.
	Rate float64
	Loop bool

	Logger *log.Logger
}

// Context plays the clip of one epoch, for as long as that epoch stays
// current. All of its events (the arming check, monitor ticks, user actions,
// output completion and host teardown) run one at a time under mu.
type Context struct {
	cfg    Config
	epoch  freshness.Epoch
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	sm      *stateMachine
	voice   audio.Voice
	clip    *audio.Clip
	monitor *monitor
	rate    float64
	loop    bool
	paused  bool
	startAt time.Duration
	noAuto  bool  // a user action overrode autoplay
	err     error // suppression reason or last recoverable failure
	checks  int

	present *dispatcher
	done    chan struct{}
}

// New creates a context and starts its lifecycle in the background: wait the
// settle delay, check freshness, arm, and (with AutoStart) start output.
// Cancelling ctx detaches the context, which suppresses it.
func New(ctx context.Context, cfg Config) (*Context, error) {
	if cfg.Channel == nil || cfg.Device == nil || cfg.Loader == nil {
		return nil, errors.New("playback: channel, device and loader are required")
	}
	if cfg.Epoch.SessionID == "" {
		return nil, errors.New("playback: epoch has no session id")
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}
	if cfg.Rate == 0 {
		cfg.Rate = audio.DefaultRate
	}
	if err := audio.ValidateRate(cfg.Rate); err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}
	if cfg.Presenter == nil {
		cfg.Presenter = NopPresenter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("playback")
	}

	c := &Context{
		cfg:     cfg,
		epoch:   cfg.Epoch,
		logger:  logger.With("epoch", cfg.Epoch.String()),
		sm:      newStateMachine(),
		rate:    cfg.Rate,
		loop:    cfg.Loop,
		present: newDispatcher(),
		done:    make(chan struct{}),
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.sm.OnEnter(StateArmed, c.enterArmed)
	c.sm.OnEnter(StateProducing, c.enterProducing)
	c.sm.OnEnter(StateCompleted, c.enterCompleted)
	c.sm.OnEnter(StateSuppressed, c.enterSuppressed)

	go c.watchHost(ctx)
	go c.run()
	return c, nil
}

// Epoch returns the context's epoch.
func (c *Context) Epoch() freshness.Epoch { return c.epoch }

// State returns the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sm.Current()
}

// Err returns why the context was suppressed, or the last recoverable
// failure while it is still live.
func (c *Context) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the context reaches a terminal state.
func (c *Context) Done() <-chan struct{} { return c.done }

// Status returns a snapshot for display.
func (c *Context) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Checks returns how many freshness checks passed.
func (c *Context) Checks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checks
}

// Play starts output from Armed (a manual start or retry) or resumes it.
func (c *Context) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.actionLocked("play"); err != nil {
		return err
	}
	c.noAuto = true

	switch c.sm.Current() {
	case StateArmed:
		return c.startLocked("play")
	case StateProducing:
		if !c.paused {
			return nil
		}
		if err := c.voice.Resume(); err != nil {
			return fmt.Errorf("resume: %w", err)
		}
		c.paused = false
		c.updateLocked()
	}
	return nil
}

// Pause pauses output. In Armed it cancels the pending automatic start.
func (c *Context) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.actionLocked("pause"); err != nil {
		return err
	}
	c.noAuto = true

	if c.sm.Current() == StateProducing && !c.paused {
		if err := c.voice.Pause(); err != nil {
			return fmt.Errorf("pause: %w", err)
		}
		c.paused = true
		c.updateLocked()
	}
	return nil
}

// Toggle plays when paused or armed, and pauses otherwise.
func (c *Context) Toggle() error {
	c.mu.Lock()
	playing := c.sm.Current() == StateProducing && !c.paused
	c.mu.Unlock()

	if playing {
		return c.Pause()
	}
	return c.Play()
}

// SetRate changes the playback rate. Choosing a rate in Armed is a user
// gesture and starts output.
func (c *Context) SetRate(rate float64) error {
	if err := audio.ValidateRate(rate); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.actionLocked("rate"); err != nil {
		return err
	}
	c.rate = rate

	switch c.sm.Current() {
	case StateArmed:
		c.noAuto = true
		return c.startLocked("rate")
	case StateProducing:
		if err := c.voice.SetRate(rate); err != nil {
			return fmt.Errorf("set rate: %w", err)
		}
		c.updateLocked()
	}
	return nil
}

// SetLoop toggles looping. A looping clip never completes.
func (c *Context) SetLoop(loop bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.actionLocked("loop"); err != nil {
		return err
	}
	c.loop = loop
	if c.voice != nil {
		c.voice.SetLoop(loop)
	}
	c.updateLocked()
	return nil
}

// Seek moves the playback position. Before output starts it sets the start
// position.
func (c *Context) Seek(pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.actionLocked("seek"); err != nil {
		return err
	}
	if c.voice == nil {
		c.startAt = pos
		return nil
	}
	if err := c.voice.Seek(pos); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	c.updateLocked()
	return nil
}

// SeekFraction seeks to a fraction (0 to 1) of the clip.
func (c *Context) SeekFraction(f float64) error {
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}

	c.mu.Lock()
	var d time.Duration
	switch {
	case c.voice != nil:
		d = c.voice.Duration()
	case c.clip != nil:
		d = c.clip.Duration()
	}
	c.mu.Unlock()

	return c.Seek(time.Duration(f * float64(d)))
}

// run is the lifecycle goroutine.
func (c *Context) run() {
	if c.cfg.After != nil {
		select {
		case <-c.cfg.After:
		case <-c.ctx.Done():
			return
		}
	}
	if settle := c.cfg.Schedule.Settle; settle > 0 {
		timer := time.NewTimer(settle)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			return
		}
	}

	c.mu.Lock()
	armed := c.armLocked()
	c.mu.Unlock()

	if !armed || !c.cfg.AutoStart {
		return
	}

	timer := time.NewTimer(c.cfg.Schedule.AutoplayDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		c.autoStart()
	case <-c.ctx.Done():
	}
}

func (c *Context) armLocked() bool {
	if c.sm.Current() != StateInit {
		return false
	}
	if err := c.verifyLocked("arm"); err != nil {
		c.suppressLocked(err)
		return false
	}
	return c.sm.Transition(StateArmed)
}

func (c *Context) autoStart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sm.Current() != StateArmed || c.noAuto {
		return
	}
	if err := c.startLocked("autoplay"); err != nil && IsRetryable(err) {
		// Autoplay refused; the presenter now offers a manual start.
		c.logger.Info("autoplay failed", "err", err)
	}
}

// startLocked takes an Armed context to Producing. The freshness check is
// the last thing before the voice starts.
func (c *Context) startLocked(checkpoint string) error {
	clip, err := c.loadClipLocked()
	if err != nil {
		return c.acquisitionFailedLocked(checkpoint, err)
	}

	if err := c.verifyLocked(checkpoint); err != nil {
		c.suppressLocked(err)
		return fmt.Errorf("%w: %w", ErrSuppressed, err)
	}

	voice, err := c.cfg.Device.Acquire(c.epoch.String(), clip)
	if err != nil {
		return c.acquisitionFailedLocked(checkpoint, err)
	}
	if err := voice.SetRate(c.rate); err != nil {
		voice.Release()
		return c.acquisitionFailedLocked(checkpoint, err)
	}
	voice.SetLoop(c.loop)
	if c.startAt > 0 {
		_ = voice.Seek(c.startAt)
	}
	if err := voice.Start(); err != nil {
		voice.Release()
		return c.acquisitionFailedLocked(checkpoint, err)
	}

	c.voice = voice
	c.paused = false
	c.err = nil
	c.sm.Transition(StateProducing)
	return nil
}

func (c *Context) loadClipLocked() (audio.Clip, error) {
	if c.clip != nil {
		return *c.clip, nil
	}
	clip, err := c.cfg.Loader.Load(c.ctx, c.epoch.ItemKey)
	if err != nil {
		return audio.Clip{}, err
	}
	c.clip = &clip
	return clip, nil
}

// acquisitionFailedLocked keeps the context Armed and reports the failure.
func (c *Context) acquisitionFailedLocked(checkpoint string, cause error) error {
	err := &Error{
		Code:       CodeResourceAcquisition,
		Checkpoint: checkpoint,
		Epoch:      c.epoch,
		Cause:      cause,
	}
	c.err = err
	c.logger.Debug("acquisition failed", "checkpoint", checkpoint, "err", cause)
	c.updateLocked()
	return err
}

// verifyLocked is a freshness checkpoint.
func (c *Context) verifyLocked(checkpoint string) error {
	rec, ok, err := freshness.Matches(c.ctx, c.cfg.Channel, c.epoch)
	if err != nil {
		return &Error{Code: CodeStorageUnavailable, Checkpoint: checkpoint, Epoch: c.epoch, Cause: err}
	}
	if !ok {
		return &Error{Code: CodeEpochMismatch, Checkpoint: checkpoint, Epoch: c.epoch, Current: rec.Epoch}
	}
	c.checks++
	return nil
}

// actionLocked guards every user action: terminal contexts refuse, live ones
// re-check freshness first.
func (c *Context) actionLocked(checkpoint string) error {
	switch c.sm.Current() {
	case StateSuppressed:
		return ErrSuppressed
	case StateCompleted:
		return fmt.Errorf("%w: %s after completion", ErrInvalidState, checkpoint)
	case StateInit:
		return fmt.Errorf("%w: %s before arming", ErrInvalidState, checkpoint)
	}
	if err := c.verifyLocked(checkpoint); err != nil {
		c.suppressLocked(err)
		return fmt.Errorf("%w: %w", ErrSuppressed, err)
	}
	return nil
}

// tick is the monitor callback.
func (c *Context) tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sm.Current().IsTerminal() {
		return false
	}
	if err := c.verifyLocked("monitor"); err != nil {
		c.suppressLocked(err)
		return false
	}
	return true
}

// watchVoice completes the context when its voice plays to the end.
func (c *Context) watchVoice(voice audio.Voice) {
	select {
	case <-voice.Done():
	case <-c.done:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.voice == voice && c.sm.Current() == StateProducing {
		c.sm.Transition(StateCompleted)
	}
}

// watchHost suppresses the context when the host goes away.
func (c *Context) watchHost(host context.Context) {
	select {
	case <-host.Done():
	case <-c.done:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.suppressLocked(&Error{Code: CodeDetached, Checkpoint: "host", Epoch: c.epoch, Cause: host.Err()})
}

// suppressLocked retires the context. Calling it again, or after completion,
// changes nothing.
func (c *Context) suppressLocked(reason error) {
	if c.sm.Current().IsTerminal() {
		return
	}
	c.err = reason
	c.sm.Transition(StateSuppressed)
}

func (c *Context) enterArmed(State) {
	c.logger.Debug("armed")
	c.monitor = startMonitor(c.cfg.Schedule, c.tick)
	c.updateLocked()
}

func (c *Context) enterProducing(State) {
	c.logger.Debug("producing", "rate", c.rate, "loop", c.loop)
	go c.watchVoice(c.voice)
	c.updateLocked()
}

func (c *Context) enterCompleted(State) {
	c.logger.Debug("completed")
	c.releaseLocked()
	c.updateLocked()
	c.finishLocked()
}

func (c *Context) enterSuppressed(from State) {
	c.logger.Debug("suppressed", "from", from, "reason", c.err)
	c.releaseLocked()
	epoch := c.epoch
	presenter := c.cfg.Presenter
	c.present.push(func() { presenter.Hide(epoch) })
	c.finishLocked()
}

// releaseLocked stops output and gives the voice back. Safe to repeat.
func (c *Context) releaseLocked() {
	if c.voice != nil {
		c.voice.Release()
		c.voice = nil
	}
	if c.monitor != nil {
		c.monitor.stop()
	}
}

func (c *Context) finishLocked() {
	c.cancel()
	c.present.close()
	close(c.done)
}

func (c *Context) updateLocked() {
	status := c.statusLocked()
	presenter := c.cfg.Presenter
	c.present.push(func() { presenter.Update(status) })
}

func (c *Context) statusLocked() Status {
	s := Status{
		Epoch:  c.epoch,
		State:  c.sm.Current(),
		Paused: c.paused,
		Rate:   c.rate,
		Loop:   c.loop,
	}
	if c.voice != nil {
		s.Position = c.voice.Position()
		s.Duration = c.voice.Duration()
	} else if c.clip != nil {
		s.Position = c.startAt
		s.Duration = c.clip.Duration()
	}
	if c.err != nil && IsRetryable(c.err) {
		s.Err = c.err
	}
	return s
}
