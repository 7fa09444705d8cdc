package playback

import (
	"errors"
	"time"
)

// Schedule holds the protocol's timing parameters.
type Schedule struct {
	// The monitor polls every FastInterval for FastDuration, then every
	// SlowInterval for SlowDuration, then stops.
	FastInterval time.Duration
	FastDuration time.Duration
	SlowInterval time.Duration
	SlowDuration time.Duration

	// Settle is waited before the arming check, giving a Beacon spawned at
	// the same time a head start.
	Settle time.Duration

	// AutoplayDelay is waited between arming and the automatic start.
	AutoplayDelay time.Duration
}

// DefaultSchedule returns the desktop timing.
func DefaultSchedule() Schedule {
	return Schedule{
		FastInterval:  100 * time.Millisecond,
		FastDuration:  3 * time.Second,
		SlowInterval:  500 * time.Millisecond,
		SlowDuration:  30 * time.Second,
		AutoplayDelay: 30 * time.Millisecond,
	}
}

// MobileSchedule returns the timing for slow devices, where isolated
// contexts start late and in bursts.
func MobileSchedule() Schedule {
	s := DefaultSchedule()
	s.Settle = 150 * time.Millisecond
	s.AutoplayDelay = 150 * time.Millisecond
	return s
}

// ScheduleFor returns the named profile ("desktop" or "mobile").
func ScheduleFor(profile string) (Schedule, error) {
	switch profile {
	case "", "desktop":
		return DefaultSchedule(), nil
	case "mobile":
		return MobileSchedule(), nil
	default:
		return Schedule{}, errors.New("schedule profile must be desktop or mobile")
	}
}

// Validate checks that the schedule can be run.
func (s Schedule) Validate() error {
	switch {
	case s.FastInterval <= 0:
		return errors.New("fast interval must be positive")
	case s.FastDuration < 0 || s.SlowDuration < 0:
		return errors.New("phase durations must not be negative")
	case s.SlowDuration > 0 && s.SlowInterval <= 0:
		return errors.New("slow interval must be positive")
	case s.Settle < 0 || s.AutoplayDelay < 0:
		return errors.New("delays must not be negative")
	}
	return nil
}

// MaxSuppressionLatency is the longest a stale context keeps producing
// after a newer epoch is published, while the fast phase lasts.
func (s Schedule) MaxSuppressionLatency() time.Duration {
	return s.FastInterval
}
