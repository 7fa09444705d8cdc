package session

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/freshness/sqlite"
	"github.com/dgnsrekt/vortaro/internal/playback"
)

// silentLoader serves silent clips of a fixed length.
type silentLoader struct {
	length time.Duration

	mu    sync.Mutex
	loads map[string]int
}

func (l *silentLoader) Load(ctx context.Context, key string) (audio.Clip, error) {
	l.mu.Lock()
	if l.loads == nil {
		l.loads = make(map[string]int)
	}
	l.loads[key]++
	l.mu.Unlock()

	frames := int(l.length.Seconds() * 22050)
	return audio.Clip{Key: key, Data: make([]byte, frames*2), Format: audio.DefaultFormat()}, nil
}

func (l *silentLoader) Loads(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[key]
}

// recordingChannel remembers every published sequence.
type recordingChannel struct {
	*freshness.MemoryChannel

	mu        sync.Mutex
	published []uint64
}

func (r *recordingChannel) Publish(ctx context.Context, sessionID string, e freshness.Epoch) error {
	err := r.MemoryChannel.Publish(ctx, sessionID, e)
	if err == nil {
		r.mu.Lock()
		r.published = append(r.published, e.Sequence)
		r.mu.Unlock()
	}
	return err
}

func (r *recordingChannel) Published() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.published...)
}

type fixture struct {
	channel *recordingChannel
	device  *audio.MockPlayer
	loader  *silentLoader
}

func newFixture() *fixture {
	return &fixture{
		channel: &recordingChannel{MemoryChannel: freshness.NewMemoryChannel()},
		device:  audio.DefaultMockPlayer(),
		loader:  &silentLoader{length: 5 * time.Second},
	}
}

func (f *fixture) config() Config {
	return Config{
		ID:      "test-session",
		Channel: f.channel,
		Device:  f.device,
		Loader:  f.loader,
		Schedule: playback.Schedule{
			FastInterval: 10 * time.Millisecond,
			FastDuration: 5 * time.Second,
			SlowInterval: 50 * time.Millisecond,
			SlowDuration: 5 * time.Second,
		},
		AutoStart: true,
		Logger:    log.New(io.Discard),
	}
}

func newSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	s, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew(t *testing.T) {
	f := newFixture()

	cfg := f.config()
	cfg.ID = ""
	s := newSession(t, cfg)
	if len(s.ID()) != 36 {
		t.Errorf("generated id %q is not a uuid", s.ID())
	}

	cfg = f.config()
	cfg.Rate = 5
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("New should reject an out of range rate")
	}

	cfg = f.config()
	cfg.Device = nil
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("New should require a device")
	}
}

func TestAdvance_NewItemTakesOver(t *testing.T) {
	f := newFixture()
	s := newSession(t, f.config())

	a, err := s.Advance(context.Background(), "sipo")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	waitFor(t, "first item to play", func() bool { return a.State() == playback.StateProducing })

	b, err := s.Advance(context.Background(), "kato")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if b.Epoch().Sequence != a.Epoch().Sequence+1 {
		t.Errorf("sequence %d does not follow %d", b.Epoch().Sequence, a.Epoch().Sequence)
	}
	if b.Epoch().SessionID != s.ID() {
		t.Errorf("epoch session = %q", b.Epoch().SessionID)
	}

	waitFor(t, "first item to be suppressed", func() bool { return a.State() == playback.StateSuppressed })
	waitFor(t, "second item to play", func() bool { return b.State() == playback.StateProducing })

	if !errors.Is(a.Err(), playback.ErrEpochMismatch) {
		t.Errorf("suppression reason = %v", a.Err())
	}
	if s.Current() != b {
		t.Error("Current should be the newest context")
	}
	if got := f.device.Metrics().Audible; got != 1 {
		t.Errorf("Audible = %d, want 1", got)
	}
}

func TestAdvance_DiscardsAfterMonitorWindow(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	cfg.Loop = true
	cfg.Schedule = playback.Schedule{
		FastInterval: 10 * time.Millisecond,
		FastDuration: 50 * time.Millisecond,
		SlowInterval: 20 * time.Millisecond,
		SlowDuration: 50 * time.Millisecond,
	}
	s := newSession(t, cfg)

	a, _ := s.Advance(context.Background(), "sipo")
	waitFor(t, "first item to play", func() bool { return a.State() == playback.StateProducing })

	// Let the first item's monitoring window run out.
	time.Sleep(300 * time.Millisecond)
	if a.State() != playback.StateProducing {
		t.Fatalf("looping item state = %v, want producing", a.State())
	}

	b, _ := s.Advance(context.Background(), "kato")
	waitFor(t, "first item to be discarded", func() bool { return a.State() == playback.StateSuppressed })
	waitFor(t, "second item to play", func() bool { return b.State() == playback.StateProducing })

	if !errors.Is(a.Err(), playback.ErrDetached) {
		t.Errorf("reason = %v, want ErrDetached", a.Err())
	}
	if got := f.device.Metrics().Audible; got != 1 {
		t.Errorf("Audible = %d, want 1", got)
	}
}

func TestAdvance_SameItemTwice(t *testing.T) {
	f := newFixture()
	s := newSession(t, f.config())

	a, _ := s.Advance(context.Background(), "sipo")
	b, _ := s.Replay(context.Background())

	if b.Epoch().ItemKey != "sipo" || b.Epoch().Equal(a.Epoch()) {
		t.Fatalf("replay epoch = %v, first = %v", b.Epoch(), a.Epoch())
	}
	waitFor(t, "replayed item to play", func() bool { return b.State() == playback.StateProducing })
	waitFor(t, "first showing to stop", func() bool { return a.State() == playback.StateSuppressed })
}

func TestAdvance_MonotonicPublishes(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	cfg.AutoStart = false
	s := newSession(t, cfg)

	// A reader polls the channel while transitions happen back to back.
	stop := make(chan struct{})
	var regressions atomic.Int64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var last uint64
		for {
			select {
			case <-stop:
				return
			default:
			}
			rec, ok, err := f.channel.Read(context.Background(), s.ID())
			if err == nil && ok {
				if rec.Epoch.Sequence < last {
					regressions.Add(1)
				}
				last = rec.Epoch.Sequence
			}
		}
	}()

	const n = 50
	for i := 0; i < n; i++ {
		if _, err := s.Advance(context.Background(), "sipo"); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}
	waitFor(t, "all publishes", func() bool { return len(f.channel.Published()) == n })
	close(stop)
	wg.Wait()

	published := f.channel.Published()
	for i := 1; i < len(published); i++ {
		if published[i] <= published[i-1] {
			t.Fatalf("publish order %v is not increasing", published)
		}
	}
	if regressions.Load() != 0 {
		t.Errorf("reader saw the sequence go backwards %d times", regressions.Load())
	}
	if s.Sequence() != n {
		t.Errorf("Sequence = %d, want %d", s.Sequence(), n)
	}
}

func TestNew_ResumesSequence(t *testing.T) {
	f := newFixture()
	last := freshness.Epoch{Sequence: 41, ItemKey: "domo", SessionID: "test-session"}
	if err := f.channel.Publish(context.Background(), last.SessionID, last); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	s := newSession(t, f.config())
	if s.Sequence() != 41 {
		t.Errorf("Sequence = %d, want 41", s.Sequence())
	}
	c, _ := s.Advance(context.Background(), "sipo")
	if c.Epoch().Sequence != 42 {
		t.Errorf("first epoch sequence = %d, want 42", c.Epoch().Sequence)
	}

	// A fresh id starts from zero.
	cfg := f.config()
	cfg.ID = ""
	if fresh := newSession(t, cfg); fresh.Sequence() != 0 {
		t.Errorf("fresh Sequence = %d", fresh.Sequence())
	}
}

func TestNew_ResumesSequenceFromSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channel.db")
	f := newFixture()

	readSeq := func(store *sqlite.Store) uint64 {
		rec, ok, err := store.Read(context.Background(), "demo")
		if err != nil || !ok {
			return 0
		}
		return rec.Epoch.Sequence
	}

	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := f.config()
	cfg.ID = "demo"
	cfg.Channel = store
	cfg.AutoStart = false
	s := newSession(t, cfg)
	for _, key := range []string{"a", "b", "c"} {
		if _, err := s.Advance(context.Background(), key); err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
	}
	waitFor(t, "third publish", func() bool { return readSeq(store) == 3 })
	_ = s.Close()
	_ = store.Close()

	store, err = sqlite.Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cfg.Channel = store
	s = newSession(t, cfg)

	c, err := s.Advance(context.Background(), "d")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if c.Epoch().Sequence != 4 {
		t.Errorf("sequence after reopen = %d, want 4", c.Epoch().Sequence)
	}
	waitFor(t, "fourth publish", func() bool { return readSeq(store) == 4 })
}

func TestAdvance_RandomTransitions(t *testing.T) {
	f := newFixture()
	s := newSession(t, f.config())
	rng := rand.New(rand.NewSource(7))
	keys := []string{"sipo", "kato", "domo", "hundo"}

	var contexts []*playback.Context
	for i := 0; i < 40; i++ {
		c, err := s.Advance(context.Background(), keys[rng.Intn(len(keys))])
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		contexts = append(contexts, c)

		switch rng.Intn(3) {
		case 0:
			_ = c.Play()
		case 1:
			time.Sleep(time.Duration(rng.Intn(15)) * time.Millisecond)
		}
	}

	last := contexts[len(contexts)-1]
	waitFor(t, "last item to play", func() bool { return last.State() == playback.StateProducing })
	for _, c := range contexts[:len(contexts)-1] {
		waitFor(t, "stale item to be suppressed", func() bool { return c.State() == playback.StateSuppressed })
	}

	if got := f.device.Metrics().Audible; got != 1 {
		t.Errorf("Audible = %d, want 1", got)
	}

	seen := make(map[string]bool)
	for _, owner := range f.device.History() {
		if seen[owner] {
			t.Errorf("epoch %s produced output twice", owner)
		}
		seen[owner] = true
	}
	if !seen[last.Epoch().String()] {
		t.Error("the last item never produced output")
	}
}

func TestControls_CarryOver(t *testing.T) {
	f := newFixture()
	s := newSession(t, f.config())

	if err := s.Toggle(); !errors.Is(err, ErrNoItem) {
		t.Errorf("Toggle before first item = %v, want ErrNoItem", err)
	}

	a, _ := s.Advance(context.Background(), "sipo")
	waitFor(t, "first item to play", func() bool { return a.State() == playback.StateProducing })

	if err := s.SetRate(1.5); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}
	if rate, err := s.IncreaseRate(); err != nil || rate != 1.75 {
		t.Errorf("IncreaseRate = %v, %v", rate, err)
	}
	if loop, err := s.ToggleLoop(); err != nil || !loop {
		t.Errorf("ToggleLoop = %v, %v", loop, err)
	}
	if st := a.Status(); st.Rate != 1.75 || !st.Loop {
		t.Errorf("current status = %+v", st)
	}

	b, _ := s.Advance(context.Background(), "kato")
	waitFor(t, "second item to play", func() bool { return b.State() == playback.StateProducing })
	if st := b.Status(); st.Rate != 1.75 || !st.Loop {
		t.Errorf("next item status = %+v, want rate and loop carried over", st)
	}
}

func TestControls_AfterCompletion(t *testing.T) {
	f := newFixture()
	f.loader.length = 100 * time.Millisecond
	f.device.SetDelayFactor(0.1)
	s := newSession(t, f.config())

	c, _ := s.Advance(context.Background(), "sipo")
	waitFor(t, "completion", func() bool { return c.State() == playback.StateCompleted })

	if err := s.SetRate(0.75); err != nil {
		t.Errorf("SetRate after completion = %v, want it remembered", err)
	}
	if s.Rate() != 0.75 {
		t.Errorf("Rate = %v", s.Rate())
	}
	if err := s.Toggle(); !errors.Is(err, playback.ErrInvalidState) {
		t.Errorf("Toggle after completion = %v, want ErrInvalidState", err)
	}
}

func TestQueue_NextAndJump(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	cfg.AutoStart = false
	cfg.Lookahead = 2
	s := newSession(t, cfg)

	if _, err := s.Enqueue("unu", "du", "tri"); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := s.Jump("nulo"); err != nil {
		t.Fatalf("Jump failed: %v", err)
	}

	want := []string{"nulo", "unu", "du", "tri"}
	for _, key := range want {
		c, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if c.Epoch().ItemKey != key {
			t.Errorf("Next showed %q, want %q", c.Epoch().ItemKey, key)
		}
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, ErrEndOfItems) {
		t.Errorf("Next on empty queue = %v, want ErrEndOfItems", err)
	}

	// The first lookahead window was preloaded before it was shown.
	waitFor(t, "preload", func() bool { return f.loader.Loads("unu") > 0 })
}

func TestClose_DetachesContexts(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	s, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	c, _ := s.Advance(context.Background(), "sipo")
	waitFor(t, "item to play", func() bool { return c.State() == playback.StateProducing })

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	waitFor(t, "detach", func() bool { return c.State() == playback.StateSuppressed })
	if !errors.Is(c.Err(), playback.ErrDetached) {
		t.Errorf("reason = %v, want ErrDetached", c.Err())
	}
	if got := f.device.Metrics().Audible; got != 0 {
		t.Errorf("Audible after Close = %d", got)
	}
	if _, err := s.Advance(context.Background(), "kato"); !errors.Is(err, ErrClosed) {
		t.Errorf("Advance after Close = %v, want ErrClosed", err)
	}
}

func TestAdvance_HostCancel(t *testing.T) {
	f := newFixture()
	s := newSession(t, f.config())

	host, cancel := context.WithCancel(context.Background())
	c, _ := s.Advance(host, "sipo")
	waitFor(t, "item to play", func() bool { return c.State() == playback.StateProducing })

	cancel()
	waitFor(t, "detach", func() bool { return c.State() == playback.StateSuppressed })
	if !errors.Is(c.Err(), playback.ErrDetached) {
		t.Errorf("reason = %v, want ErrDetached", c.Err())
	}
}

func TestAdvance_StorageDown(t *testing.T) {
	f := newFixture()
	s := newSession(t, f.config())

	f.channel.SetAvailable(false)
	c, err := s.Advance(context.Background(), "sipo")
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	waitFor(t, "fail-safe suppression", func() bool { return c.State() == playback.StateSuppressed })
	if !errors.Is(c.Err(), playback.ErrStorageUnavailable) {
		t.Errorf("reason = %v", c.Err())
	}
	if f.device.Metrics().AcquireCount != 0 {
		t.Error("no output should be acquired without a confirmed epoch")
	}
}
