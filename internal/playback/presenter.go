package playback

import (
	"sync"
	"time"

	"github.com/dgnsrekt/vortaro/internal/freshness"
)

// Status is a snapshot of a context for display.
type Status struct {
	Epoch    freshness.Epoch
	State    State
	Paused   bool
	Position time.Duration
	Duration time.Duration
	Rate     float64
	Loop     bool

	// Err holds a recoverable failure, typically a blocked autoplay, so the
	// presenter can offer a manual play.
	Err error
}

// Presenter is the visual side of a context. Hide is one-way: a hidden
// context is never shown again. Calls are delivered in order from a single
// goroutine per context and must not call back into the context
// synchronously.
type Presenter interface {
	Update(Status)
	Hide(freshness.Epoch)
}

// NopPresenter discards everything.
type NopPresenter struct{}

func (NopPresenter) Update(Status)        {}
func (NopPresenter) Hide(freshness.Epoch) {}

// dispatcher delivers presenter calls in order without blocking the caller.
type dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) push(fn func()) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// close lets the dispatcher exit once the queue is drained.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)

	for range d.wake {
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				closed := d.closed
				d.mu.Unlock()
				if closed {
					return
				}
				break
			}
			fn := d.queue[0]
			d.queue = d.queue[1:]
			d.mu.Unlock()

			fn()
		}
	}
}
