package audio

import (
	"errors"
	"fmt"
	"sync"
)

// Playback rate bounds.
const (
	MinRate     = 0.5
	MaxRate     = 2.0
	DefaultRate = 1.0
)

// ErrRateOutOfRange is returned when a rate is outside MinRate..MaxRate.
var ErrRateOutOfRange = errors.New("rate must be between 0.5 and 2.0")

// ValidateRate checks a playback rate.
func ValidateRate(rate float64) error {
	if rate < MinRate || rate > MaxRate {
		return ErrRateOutOfRange
	}
	return nil
}

// FormatRate renders a rate the way the rate control shows it, e.g. "1.25x".
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.2fx", rate)
}

// RateControl steps the playback rate through fixed values. It is shared by
// every voice of a session so the chosen rate carries over to the next item.
type RateControl struct {
	current float64
	steps   []float64
	mu      sync.RWMutex
}

// NewRateControl creates a rate control at normal speed.
func NewRateControl() *RateControl {
	return &RateControl{
		current: DefaultRate,
		steps: []float64{
			0.5,
			0.75,
			1.0,
			1.25,
			1.5,
			1.75,
			2.0,
		},
	}
}

// Rate returns the current rate.
func (r *RateControl) Rate() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Set sets the rate (MinRate to MaxRate).
func (r *RateControl) Set(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = rate
	return nil
}

// Increase moves to the next higher step and returns the new rate.
func (r *RateControl) Increase() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, step := range r.steps {
		if step > r.current {
			r.current = step
			return r.current
		}
	}
	return r.current
}

// Decrease moves to the next lower step and returns the new rate.
func (r *RateControl) Decrease() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.steps) - 1; i >= 0; i-- {
		if r.steps[i] < r.current {
			r.current = r.steps[i]
			return r.current
		}
	}
	return r.current
}

// String returns the formatted current rate.
func (r *RateControl) String() string {
	return FormatRate(r.Rate())
}
