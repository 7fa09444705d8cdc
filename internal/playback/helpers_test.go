package playback

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/freshness"
)

const testSession = "test-session"

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func testSchedule() Schedule {
	return Schedule{
		FastInterval: 10 * time.Millisecond,
		FastDuration: 5 * time.Second,
		SlowInterval: 50 * time.Millisecond,
		SlowDuration: 5 * time.Second,
	}
}

func epoch(seq uint64, key string) freshness.Epoch {
	return freshness.Epoch{Sequence: seq, ItemKey: key, SessionID: testSession}
}

// clipLoader serves silent clips of a fixed length for any key.
type clipLoader struct {
	length time.Duration
	fail   atomic.Bool
	loads  atomic.Int64
}

var errLoad = errors.New("load failed")

func (l *clipLoader) Load(ctx context.Context, key string) (audio.Clip, error) {
	l.loads.Add(1)
	if l.fail.Load() {
		return audio.Clip{}, errLoad
	}
	frames := int(l.length.Seconds() * 22050)
	return audio.Clip{
		Key:    key,
		Data:   make([]byte, frames*2),
		Format: audio.DefaultFormat(),
	}, nil
}

// recordingPresenter records presenter calls.
type recordingPresenter struct {
	mu      sync.Mutex
	updates []Status
	hidden  []freshness.Epoch
}

func (p *recordingPresenter) Update(s Status) {
	p.mu.Lock()
	p.updates = append(p.updates, s)
	p.mu.Unlock()
}

func (p *recordingPresenter) Hide(e freshness.Epoch) {
	p.mu.Lock()
	p.hidden = append(p.hidden, e)
	p.mu.Unlock()
}

func (p *recordingPresenter) Hidden() []freshness.Epoch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]freshness.Epoch(nil), p.hidden...)
}

func (p *recordingPresenter) LastUpdate() (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.updates) == 0 {
		return Status{}, false
	}
	return p.updates[len(p.updates)-1], true
}

// flakyChannel wraps a channel and can fail reads on demand.
type flakyChannel struct {
	freshness.Channel
	failReads atomic.Bool
	reads     atomic.Int64
}

func (f *flakyChannel) Read(ctx context.Context, sessionID string) (freshness.Record, bool, error) {
	f.reads.Add(1)
	if f.failReads.Load() {
		return freshness.Record{}, false, freshness.ErrStorageUnavailable
	}
	return f.Channel.Read(ctx, sessionID)
}

type fixture struct {
	channel   *freshness.MemoryChannel
	device    *audio.MockPlayer
	loader    *clipLoader
	presenter *recordingPresenter
}

func newFixture() *fixture {
	return &fixture{
		channel:   freshness.NewMemoryChannel(),
		device:    audio.DefaultMockPlayer(),
		loader:    &clipLoader{length: 5 * time.Second},
		presenter: &recordingPresenter{},
	}
}

func (f *fixture) config(e freshness.Epoch) Config {
	return Config{
		Epoch:     e,
		Channel:   f.channel,
		Device:    f.device,
		Loader:    f.loader,
		Presenter: f.presenter,
		Schedule:  testSchedule(),
		Logger:    testLogger(),
	}
}

func (f *fixture) publish(t *testing.T, e freshness.Epoch) {
	t.Helper()
	b := NewBeacon(f.channel, e, testLogger())
	b.Run(context.Background())
	<-b.Done()
}

func newContext(t *testing.T, cfg Config) *Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	c, err := New(ctx, cfg)
	if err != nil {
		cancel()
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		waitDone(t, c)
	})
	return c
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitState(t *testing.T, c *Context, want State) {
	t.Helper()
	waitFor(t, 2*time.Second, "state "+want.String(), func() bool {
		return c.State() == want
	})
}

func waitDone(t *testing.T, c *Context) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Errorf("context %s did not finish", c.Epoch())
	}
}
