package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
)

const statusBarHeight = 1

// cardView renders the item on screen, centered above the status bar.
func (m model) cardView(b *strings.Builder) {
	var lines []string

	switch {
	case m.display.epoch.IsZero() && m.finished:
		lines = append(lines, subtleStyle("Nothing to show."))
	case m.display.epoch.IsZero():
		lines = append(lines, m.spinner.View()+" "+subtleStyle("Loading…"))
	default:
		lines = append(lines, m.itemView())
		if counter := m.counterView(); counter != "" {
			lines = append(lines, subtleStyle(counter))
		}
		lines = append(lines, "")
		lines = append(lines, m.progress.ViewAs(m.display.Progress()))
		lines = append(lines, subtleStyle(fmt.Sprintf("%s / %s",
			formatDuration(m.display.position),
			formatDuration(m.display.duration))))
		if m.common.cfg.ShowEpoch {
			lines = append(lines, subtleStyle(m.display.epoch.String()))
		}
	}

	card := lipgloss.JoinVertical(lipgloss.Center, lines...)

	height := m.common.height - statusBarHeight
	if m.help.ShowAll {
		height -= lipgloss.Height(m.helpView()) + 1
	}
	if m.common.width <= 0 || height <= 0 {
		fmt.Fprintln(b, card)
		return
	}
	fmt.Fprintln(b, lipgloss.Place(m.common.width, height, lipgloss.Center, lipgloss.Center, card))
}

func (m model) itemView() string {
	word := m.display.epoch.ItemKey
	if w := m.common.width - 4; w > 0 && runewidth.StringWidth(word) > w {
		word = wordwrap.String(word, w)
	}
	if m.display.hidden {
		return staleItemStyle(word)
	}
	word = itemStyle(word)
	if m.display.IsLoading() {
		word = m.spinner.View() + " " + word
	}
	return word
}

// counterView returns e.g. "3rd of 12".
func (m model) counterView() string {
	if m.shown == 0 {
		return ""
	}
	if total := m.common.cfg.Total; total > 0 {
		return fmt.Sprintf("%s of %d", humanize.Ordinal(m.shown), total)
	}
	return fmt.Sprintf("%s item, %d queued", humanize.Ordinal(m.shown), m.ctrl.Remaining())
}

func (m model) statusBarView(b *strings.Builder) {
	showStatusMessage := m.state == viewStateStatusMessage

	logo := logoView()

	// Playback state, rate and loop
	position := " " + m.display.CompactStatus() + " "
	if !showStatusMessage {
		position = statusBarPositionStyle(position)
	}

	// "Help" note
	var helpNote string
	if showStatusMessage {
		helpNote = statusBarMessageHelpStyle(" ? Help ")
	} else {
		helpNote = statusBarHelpStyle(" ? Help ")
	}

	var note string
	if showStatusMessage {
		note = m.statusMessage
	} else {
		note = m.display.epoch.ItemKey
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	if showStatusMessage {
		note = statusBarMessageStyle(note)
	} else {
		note = statusBarNoteStyle(note)
	}

	// Empty space
	padding := max(0,
		m.common.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := strings.Repeat(" ", padding)
	if showStatusMessage {
		emptySpace = statusBarMessageStyle(emptySpace)
	} else {
		emptySpace = statusBarNoteStyle(emptySpace)
	}

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		position,
		helpNote,
	)
}

func (m model) helpView() string {
	s := m.help.View(m.keys)
	if detail := m.display.DetailedStatus(m.common.width); detail != "" {
		s += "\n\n" + detail
	}
	return indent(s, 2)
}
