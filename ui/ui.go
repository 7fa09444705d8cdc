// Package ui provides the quiz card TUI.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/playback"
	"github.com/dgnsrekt/vortaro/internal/session"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	ellipsis             = "…"
)

// NewProgram returns a new Tea program. ctx is the host of every playback
// context the UI starts; it is cancelled when the user quits.
func NewProgram(ctx context.Context, cfg Config, ctrl Controller) *tea.Program {
	log.Debug("starting vortaro ui", "total", cfg.Total, "refresh", cfg.RefreshInterval)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(ctx, cfg, ctrl), opts...)
}

type (
	advancedMsg struct {
		epoch freshness.Epoch
		err   error
	}
	actionDoneMsg struct {
		note string
		err  error
	}
	refreshMsg struct {
		status playback.Status
		ok     bool
	}
	statusMessageTimeoutMsg struct{}
)

// viewState is the status bar state.
type viewState int

const (
	viewStateBrowse viewState = iota
	viewStateStatusMessage
)

// Common stuff we'll need to access in all views.
type commonModel struct {
	cfg    Config
	width  int
	height int
}

type model struct {
	common   *commonModel
	ctrl     Controller
	fatalErr error

	ctx    context.Context
	cancel context.CancelFunc

	keys     keyMap
	help     help.Model
	progress progress.Model
	spinner  spinner.Model
	display  *statusDisplay

	shown    int  // items shown so far
	finished bool // the queue ran out

	state              viewState
	statusMessage      string
	statusMessageTimer *time.Timer
}

func newModel(ctx context.Context, cfg Config, ctrl Controller) model {
	if cfg.SeekStep <= 0 {
		cfg.SeekStep = 2 * time.Second
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(ctx)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sp.Style.Foreground(fuchsia)

	return model{
		common:   &commonModel{cfg: cfg},
		ctrl:     ctrl,
		ctx:      ctx,
		cancel:   cancel,
		keys:     newKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:  sp,
		display:  newStatusDisplay(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		nextCmd(m.ctx, m.ctrl),
		refreshCmd(m.ctrl, m.common.cfg.RefreshInterval),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.cancel()
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Toggle):
			return m, actionCmd(m.ctrl.Toggle, "")

		case key.Matches(msg, m.keys.Faster):
			return m, rateCmd(m.ctrl.IncreaseRate)

		case key.Matches(msg, m.keys.Slower):
			return m, rateCmd(m.ctrl.DecreaseRate)

		case key.Matches(msg, m.keys.Loop):
			return m, loopCmd(m.ctrl)

		case key.Matches(msg, m.keys.Next):
			return m, nextCmd(m.ctx, m.ctrl)

		case key.Matches(msg, m.keys.Replay):
			return m, replayCmd(m.ctx, m.ctrl)

		case key.Matches(msg, m.keys.Forward):
			step := m.common.cfg.SeekStep
			return m, actionCmd(func() error { return m.ctrl.SeekBy(step) }, "")

		case key.Matches(msg, m.keys.Back):
			step := m.common.cfg.SeekStep
			return m, actionCmd(func() error { return m.ctrl.SeekBy(-step) }, "")

		case key.Matches(msg, m.keys.Copy):
			if m.display.epoch.IsZero() {
				return m, nil
			}
			itemKey := m.display.epoch.ItemKey
			return m, actionCmd(func() error { return clipboard.WriteAll(itemKey) }, "Copied "+itemKey)

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.common.width = msg.Width
		m.common.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-8))

	case advancedMsg:
		switch {
		case errors.Is(msg.err, session.ErrEndOfItems):
			m.finished = true
			cmds = append(cmds, m.showStatusMessage("No more items, press r to hear this one again"))
		case errors.Is(msg.err, session.ErrClosed):
			m.fatalErr = msg.err
		case msg.err != nil:
			log.Error("unable to show next item", "error", msg.err)
			cmds = append(cmds, m.showStatusMessage(msg.err.Error()))
		default:
			m.shown++
			m.display.Reset(msg.epoch)
			log.Debug("showing item", "epoch", msg.epoch)
		}

	case statusMsg:
		m.display.Update(playback.Status(msg))

	case hiddenMsg:
		if m.display.Hide(freshness.Epoch(msg)) {
			log.Debug("item on screen was suppressed", "epoch", freshness.Epoch(msg))
		}

	case refreshMsg:
		if msg.ok {
			m.display.Update(msg.status)
		}
		cmds = append(cmds, refreshCmd(m.ctrl, m.common.cfg.RefreshInterval))

	case actionDoneMsg:
		switch {
		case msg.err == nil:
			if msg.note != "" {
				cmds = append(cmds, m.showStatusMessage(msg.note))
			}
		case errors.Is(msg.err, playback.ErrSuppressed):
			// Routine: a newer item took over.
		case playback.IsRetryable(msg.err):
			cmds = append(cmds, m.showStatusMessage("Audio unavailable, press space to retry"))
		default:
			log.Debug("action failed", "error", msg.err)
			cmds = append(cmds, m.showStatusMessage(msg.err.Error()))
		}

	case statusMessageTimeoutMsg:
		m.state = viewStateBrowse

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// showStatusMessage shows a message in the status bar for a few seconds.
func (m *model) showStatusMessage(msg string) tea.Cmd {
	m.state = viewStateStatusMessage
	m.statusMessage = msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}

	var b strings.Builder
	m.cardView(&b)
	m.statusBarView(&b)
	if m.help.ShowAll {
		fmt.Fprint(&b, "\n"+m.helpView())
	}
	return b.String()
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle("ERROR"),
		err,
		subtleStyle(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func nextCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		epoch, err := ctrl.Next(ctx)
		return advancedMsg{epoch: epoch, err: err}
	}
}

func replayCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		epoch, err := ctrl.Replay(ctx)
		if errors.Is(err, session.ErrNoItem) {
			return actionDoneMsg{}
		}
		return advancedMsg{epoch: epoch, err: err}
	}
}

func actionCmd(fn func() error, note string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{note: note, err: fn()}
	}
}

func rateCmd(step func() (float64, error)) tea.Cmd {
	return func() tea.Msg {
		rate, err := step()
		return actionDoneMsg{note: "Rate " + audio.FormatRate(rate), err: err}
	}
}

func loopCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		loop, err := ctrl.ToggleLoop()
		note := "Loop off"
		if loop {
			note = "Loop on"
		}
		return actionDoneMsg{note: note, err: err}
	}
}

// refreshCmd polls the position of the item on screen.
func refreshCmd(ctrl Controller, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		status, ok := ctrl.Status()
		return refreshMsg{status: status, ok: ok}
	})
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// ETC

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
