package playback

import (
	"sync"
	"sync/atomic"
	"time"
)

// monitor polls on the fast schedule, then the slow one, then stops. check
// returns false to end monitoring early.
type monitor struct {
	schedule Schedule
	check    func() bool

	ticks atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func startMonitor(schedule Schedule, check func() bool) *monitor {
	m := &monitor{
		schedule: schedule,
		check:    check,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *monitor) run() {
	defer close(m.done)

	if !m.phase(m.schedule.FastInterval, m.schedule.FastDuration) {
		return
	}
	m.phase(m.schedule.SlowInterval, m.schedule.SlowDuration)
}

// phase ticks every interval for d. It returns false if monitoring ended
// early.
func (m *monitor) phase(interval, d time.Duration) bool {
	if interval <= 0 || d <= 0 {
		return true
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(d)
	defer deadline.Stop()

	for {
		select {
		case <-m.stopCh:
			return false
		case <-deadline.C:
			return true
		case <-ticker.C:
			m.ticks.Add(1)
			if !m.check() {
				return false
			}
		}
	}
}

// stop ends monitoring. It does not wait, so the check callback may call it.
func (m *monitor) stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Done is closed when the monitor goroutine has exited.
func (m *monitor) Done() <-chan struct{} {
	return m.done
}
