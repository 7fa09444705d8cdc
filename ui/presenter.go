package ui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/playback"
	"github.com/dgnsrekt/vortaro/internal/session"
)

type (
	statusMsg playback.Status
	hiddenMsg freshness.Epoch
)

// Presenter forwards playback events to a running program. Events that
// arrive before Attach are dropped.
type Presenter struct {
	mu      sync.RWMutex
	program *tea.Program
}

// NewPresenter returns a presenter with no program attached.
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Attach sets the program that receives events.
func (p *Presenter) Attach(program *tea.Program) {
	p.mu.Lock()
	p.program = program
	p.mu.Unlock()
}

// Update implements playback.Presenter.
func (p *Presenter) Update(s playback.Status) {
	p.send(statusMsg(s))
}

// Hide implements playback.Presenter.
func (p *Presenter) Hide(e freshness.Epoch) {
	p.send(hiddenMsg(e))
}

func (p *Presenter) send(msg tea.Msg) {
	p.mu.RLock()
	program := p.program
	p.mu.RUnlock()

	if program != nil {
		program.Send(msg)
	}
}

var _ playback.Presenter = (*Presenter)(nil)

// Controller is what the UI drives. *session.Session satisfies it through
// FromSession.
type Controller interface {
	Next(ctx context.Context) (freshness.Epoch, error)
	Replay(ctx context.Context) (freshness.Epoch, error)
	Toggle() error
	IncreaseRate() (float64, error)
	DecreaseRate() (float64, error)
	ToggleLoop() (bool, error)
	SeekBy(d time.Duration) error
	Status() (playback.Status, bool)
	Remaining() int
}

type sessionController struct {
	*session.Session
}

// FromSession adapts a session to the UI.
func FromSession(s *session.Session) Controller {
	return sessionController{s}
}

func (c sessionController) Next(ctx context.Context) (freshness.Epoch, error) {
	pc, err := c.Session.Next(ctx)
	if err != nil {
		return freshness.Epoch{}, err
	}
	return pc.Epoch(), nil
}

func (c sessionController) Replay(ctx context.Context) (freshness.Epoch, error) {
	pc, err := c.Session.Replay(ctx)
	if err != nil {
		return freshness.Epoch{}, err
	}
	return pc.Epoch(), nil
}
