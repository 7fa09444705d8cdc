package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/playback"
	"github.com/dgnsrekt/vortaro/internal/queue"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")

	// ErrNoItem is returned by controls before the first item is shown.
	ErrNoItem = errors.New("no item shown")

	// ErrEndOfItems is returned by Next when the queue is exhausted.
	ErrEndOfItems = errors.New("no more items")
)

// Config configures a Session.
type Config struct {
	// ID scopes the channel key. Empty means a fresh random id.
	ID string

	Channel   freshness.Channel
	Device    audio.Device
	Loader    playback.Loader
	Presenter playback.Presenter // optional, shared by every context
	Schedule  playback.Schedule

	AutoStart bool
	Rate      float64 // initial rate, 0 for normal speed
	Loop      bool

	// Upcoming items are kept in a queue of QueueSize keys and the next
	// Lookahead clips are preloaded through Loader.
	QueueSize int
	Lookahead int

	Logger *log.Logger
}

// Session owns the epochs of one quiz run. Advance is the item transition
// trigger; everything else is forwarded to the current context.
type Session struct {
	id     string
	cfg    Config
	logger *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	rate  *audio.RateControl
	items *queue.ItemQueue

	mu         sync.Mutex
	seq        uint64
	current    *playback.Context
	detach     context.CancelFunc // discards current
	lastBeacon *playback.Beacon
	loop       bool
	closed     bool
	wg         sync.WaitGroup
}

// New creates a session. Its contexts are detached when ctx is cancelled or
// the session is closed. When cfg.ID names a session already in the channel,
// sequences continue from its last published epoch.
func New(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Channel == nil || cfg.Device == nil || cfg.Loader == nil {
		return nil, errors.New("session: channel, device and loader are required")
	}
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	reused := cfg.ID != ""
	if !reused {
		cfg.ID = uuid.NewString()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Presenter == nil {
		cfg.Presenter = playback.NopPresenter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("session")
	}

	rate := audio.NewRateControl()
	if cfg.Rate != 0 {
		if err := rate.Set(cfg.Rate); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}

	s := &Session{
		id:     cfg.ID,
		cfg:    cfg,
		logger: logger.With("session", cfg.ID),
		rate:   rate,
		loop:   cfg.Loop,
	}
	// A reused id continues after the last published sequence.
	if reused {
		rec, ok, err := cfg.Channel.Read(ctx, cfg.ID)
		switch {
		case err != nil:
			s.logger.Warn("unable to read last epoch", "err", err)
		case ok:
			s.seq = rec.Epoch.Sequence
			s.logger.Debug("resuming session", "epoch", rec.Epoch)
		}
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.items = queue.NewItemQueue(cfg.QueueSize, cfg.Lookahead, s.preload)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Sequence returns the last allocated sequence number.
func (s *Session) Sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Advance shows itemKey: it allocates the next epoch and spawns its Beacon
// and playback Context concurrently. The context is detached when ctx is
// cancelled. Beacons publish in sequence order.
//
// The previous context is discarded one poll interval after the new epoch
// is published, so it stays silent even when its monitor has already
// stopped.
func (s *Session) Advance(ctx context.Context, itemKey string) (*playback.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.seq++
	epoch := freshness.Epoch{Sequence: s.seq, ItemKey: itemKey, SessionID: s.id}

	beacon := playback.NewBeacon(s.cfg.Channel, epoch, s.logger.WithPrefix("beacon"))
	prev := s.lastBeacon
	s.lastBeacon = beacon
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if prev != nil {
			<-prev.Done()
		}
		beacon.Run(s.ctx)
	}()

	host, detach := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, detach)

	c, err := playback.New(host, playback.Config{
		Epoch:     epoch,
		Channel:   s.cfg.Channel,
		Device:    s.cfg.Device,
		Loader:    s.cfg.Loader,
		Presenter: s.cfg.Presenter,
		Schedule:  s.cfg.Schedule,
		After:     beacon.Done(),
		AutoStart: s.cfg.AutoStart,
		Rate:      s.rate.Rate(),
		Loop:      s.loop,
		Logger:    s.logger.WithPrefix("playback"),
	})
	if err != nil {
		stop()
		detach()
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-c.Done()
		stop()
		detach()
	}()

	if s.detach != nil {
		s.retire(s.current, s.detach, beacon)
	}
	s.current = c
	s.detach = detach
	s.logger.Debug("advanced", "epoch", epoch)
	return c, nil
}

// retire detaches prev once next has published and prev has had one more
// poll to notice it is stale.
func (s *Session) retire(prev *playback.Context, detach context.CancelFunc, next *playback.Beacon) {
	grace := max(s.cfg.Schedule.FastInterval, s.cfg.Schedule.SlowInterval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer detach()

		select {
		case <-next.Done():
		case <-prev.Done():
			return
		case <-s.ctx.Done():
			return
		}

		t := time.NewTimer(grace)
		defer t.Stop()
		select {
		case <-t.C:
			s.logger.Debug("discarding stale context", "epoch", prev.Epoch())
		case <-prev.Done():
		case <-s.ctx.Done():
		}
	}()
}

// Current returns the context of the item on screen, or nil.
func (s *Session) Current() *playback.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Enqueue appends items to the upcoming queue.
func (s *Session) Enqueue(keys ...string) (int, error) {
	return s.items.EnqueueBatch(keys)
}

// Jump puts key in front of the queued items; the next call to Next shows it.
func (s *Session) Jump(key string) error {
	return s.items.Enqueue(key, true)
}

// Upcoming returns the next few queued items.
func (s *Session) Upcoming() []string {
	return s.items.Lookahead()
}

// Remaining returns the number of queued items.
func (s *Session) Remaining() int {
	return s.items.Size()
}

// Next advances to the next queued item.
func (s *Session) Next(ctx context.Context) (*playback.Context, error) {
	key, err := s.items.Dequeue()
	switch {
	case errors.Is(err, queue.ErrQueueEmpty):
		return nil, ErrEndOfItems
	case errors.Is(err, queue.ErrQueueClosed):
		return nil, ErrClosed
	case err != nil:
		return nil, err
	}
	return s.Advance(ctx, key)
}

// Replay shows the current item again under a new epoch.
func (s *Session) Replay(ctx context.Context) (*playback.Context, error) {
	c := s.Current()
	if c == nil {
		return nil, ErrNoItem
	}
	return s.Advance(ctx, c.Epoch().ItemKey)
}

func (s *Session) preload(key string) {
	if _, err := s.cfg.Loader.Load(s.ctx, key); err != nil {
		s.logger.Debug("preload failed", "key", key, "err", err)
	}
}

// Close detaches every live context and waits for pending publishes.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return s.items.Close()
}
