package session

import (
	"errors"
	"time"

	"github.com/dgnsrekt/vortaro/internal/playback"
)

// Controls act on the current item. Rate and loop are remembered by the
// session, so they also apply to every later item.

// Toggle plays or pauses the current item.
func (s *Session) Toggle() error {
	c, err := s.currentContext()
	if err != nil {
		return err
	}
	return c.Toggle()
}

// Play starts or resumes the current item.
func (s *Session) Play() error {
	c, err := s.currentContext()
	if err != nil {
		return err
	}
	return c.Play()
}

// Pause pauses the current item.
func (s *Session) Pause() error {
	c, err := s.currentContext()
	if err != nil {
		return err
	}
	return c.Pause()
}

// Rate returns the session rate.
func (s *Session) Rate() float64 {
	return s.rate.Rate()
}

// SetRate sets the session rate and applies it to the current item.
func (s *Session) SetRate(rate float64) error {
	if err := s.rate.Set(rate); err != nil {
		return err
	}
	return s.applyRate(rate)
}

// IncreaseRate steps the rate up and returns the new value.
func (s *Session) IncreaseRate() (float64, error) {
	rate := s.rate.Increase()
	return rate, s.applyRate(rate)
}

// DecreaseRate steps the rate down and returns the new value.
func (s *Session) DecreaseRate() (float64, error) {
	rate := s.rate.Decrease()
	return rate, s.applyRate(rate)
}

func (s *Session) applyRate(rate float64) error {
	c := s.Current()
	if c == nil {
		return nil
	}
	return ignoreFinished(c.SetRate(rate))
}

// Loop reports whether looping is on.
func (s *Session) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// SetLoop turns looping on or off for the current and later items.
func (s *Session) SetLoop(loop bool) error {
	s.mu.Lock()
	s.loop = loop
	c := s.current
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	return ignoreFinished(c.SetLoop(loop))
}

// ToggleLoop flips looping and returns the new setting.
func (s *Session) ToggleLoop() (bool, error) {
	loop := !s.Loop()
	return loop, s.SetLoop(loop)
}

// Seek moves the current item to pos.
func (s *Session) Seek(pos time.Duration) error {
	c, err := s.currentContext()
	if err != nil {
		return err
	}
	return c.Seek(pos)
}

// SeekBy moves the current item by d, which may be negative.
func (s *Session) SeekBy(d time.Duration) error {
	c, err := s.currentContext()
	if err != nil {
		return err
	}
	return c.Seek(c.Status().Position + d)
}

// SeekFraction moves the current item to a fraction of its length.
func (s *Session) SeekFraction(f float64) error {
	c, err := s.currentContext()
	if err != nil {
		return err
	}
	return c.SeekFraction(f)
}

// Status returns the current item's status.
func (s *Session) Status() (playback.Status, bool) {
	c := s.Current()
	if c == nil {
		return playback.Status{}, false
	}
	return c.Status(), true
}

func (s *Session) currentContext() (*playback.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.current == nil {
		return nil, ErrNoItem
	}
	return s.current, nil
}

// ignoreFinished drops the error of a setting applied to an item that
// already played to the end; the session still remembers the setting.
func ignoreFinished(err error) error {
	if errors.Is(err, playback.ErrInvalidState) {
		return nil
	}
	return err
}
