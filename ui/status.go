package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/playback"
)

// statusDisplay holds what the UI knows about the item on screen.
type statusDisplay struct {
	epoch    freshness.Epoch
	loaded   bool // at least one status arrived for epoch
	state    playback.State
	paused   bool
	position time.Duration
	duration time.Duration
	rate     float64
	loop     bool
	hidden   bool

	errorMessage string
}

func newStatusDisplay() *statusDisplay {
	return &statusDisplay{rate: audio.DefaultRate}
}

// Reset switches the display to a new item.
func (s *statusDisplay) Reset(epoch freshness.Epoch) {
	rate, loop := s.rate, s.loop
	*s = statusDisplay{epoch: epoch, rate: rate, loop: loop}
}

// Update applies a status of the item on screen. Statuses of other epochs
// are ignored; it reports whether the status was applied.
func (s *statusDisplay) Update(st playback.Status) bool {
	if !st.Epoch.Equal(s.epoch) || s.hidden {
		return false
	}
	s.loaded = true
	s.state = st.State
	s.paused = st.Paused
	s.position = st.Position
	s.duration = st.Duration
	s.rate = st.Rate
	s.loop = st.Loop

	s.errorMessage = ""
	if st.Err != nil {
		s.errorMessage = st.Err.Error()
	}
	return true
}

// Hide marks the item's context as retired. It reports whether epoch is the
// item on screen.
func (s *statusDisplay) Hide(epoch freshness.Epoch) bool {
	if !epoch.Equal(s.epoch) {
		return false
	}
	s.hidden = true
	s.paused = false
	return true
}

// IsLoading reports whether the item is still waiting for its first check.
func (s *statusDisplay) IsLoading() bool {
	return !s.hidden && (!s.loaded || s.state == playback.StateInit)
}

// IsPlaying reports whether audio is coming out.
func (s *statusDisplay) IsPlaying() bool {
	return !s.hidden && s.state == playback.StateProducing && !s.paused
}

// Progress returns the played fraction of the clip.
func (s *statusDisplay) Progress() float64 {
	switch {
	case s.state == playback.StateCompleted:
		return 1
	case s.duration <= 0:
		return 0
	}
	p := float64(s.position) / float64(s.duration)
	return min(max(p, 0), 1)
}

// CompactStatus returns a compact status string for the status bar.
func (s *statusDisplay) CompactStatus() string {
	if s.epoch.IsZero() {
		return ""
	}

	statusStyle := lipgloss.NewStyle().Foreground(s.stateColor())
	status := statusStyle.Render(fmt.Sprintf("%s %s", s.stateIcon(), s.stateText()))

	detailStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	status += detailStyle.Render(" " + audio.FormatRate(s.rate))
	if s.loop {
		status += detailStyle.Render(" ⟲")
	}
	return status
}

// DetailedStatus returns a multi-line status for the help panel.
func (s *statusDisplay) DetailedStatus(width int) string {
	if s.epoch.IsZero() {
		return ""
	}

	var lines []string
	stateStyle := lipgloss.NewStyle().Foreground(s.stateColor())
	lines = append(lines, stateStyle.Render(fmt.Sprintf("State: %s %s", s.stateIcon(), s.stateText())))

	if s.duration > 0 {
		lines = append(lines, fmt.Sprintf("Position: %s / %s", formatDuration(s.position), formatDuration(s.duration)))
	}
	lines = append(lines, fmt.Sprintf("Epoch: %s", s.epoch))

	if s.errorMessage != "" {
		errorStyle := lipgloss.NewStyle().Foreground(red)
		errorLine := truncate.StringWithTail(s.errorMessage, uint(max(0, width-9)), ellipsis) //nolint:gosec
		lines = append(lines, errorStyle.Render("Error: "+errorLine))
	}
	return strings.Join(lines, "\n")
}

func (s *statusDisplay) stateText() string {
	switch {
	case s.hidden:
		return "stale"
	case s.errorMessage != "":
		return "press space to play"
	case s.IsLoading():
		return "loading"
	case s.state == playback.StateArmed:
		return "ready"
	case s.state == playback.StateProducing && s.paused:
		return "paused"
	case s.state == playback.StateProducing:
		return "playing"
	case s.state == playback.StateCompleted:
		return "done"
	default:
		return s.state.String()
	}
}

func (s *statusDisplay) stateColor() lipgloss.TerminalColor {
	switch {
	case s.hidden:
		return midGray
	case s.errorMessage != "":
		return red
	case s.state == playback.StateProducing && s.paused:
		return yellow
	case s.state == playback.StateProducing:
		return green
	case s.state == playback.StateArmed:
		return normalDim
	default:
		return gray
	}
}

func (s *statusDisplay) stateIcon() string {
	switch {
	case s.hidden:
		return "✗"
	case s.IsLoading():
		return "⟳"
	case s.state == playback.StateProducing && s.paused:
		return "⏸"
	case s.state == playback.StateProducing:
		return "▶"
	case s.state == playback.StateCompleted:
		return "✓"
	default:
		return "■"
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
