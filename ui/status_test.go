package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/playback"
)

var (
	sipo = freshness.Epoch{Sequence: 1, ItemKey: "sipo", SessionID: "s"}
	kato = freshness.Epoch{Sequence: 2, ItemKey: "kato", SessionID: "s"}
)

// TestStatusDisplayCreation tests status display creation.
func TestStatusDisplayCreation(t *testing.T) {
	display := newStatusDisplay()

	if display.CompactStatus() != "" {
		t.Error("Initial compact status should be empty")
	}
	if display.IsPlaying() {
		t.Error("Display should not be playing initially")
	}

	display.Reset(sipo)
	if !display.IsLoading() {
		t.Error("A new item should be loading until its first status")
	}
}

func TestStatusDisplayUpdate(t *testing.T) {
	display := newStatusDisplay()
	display.Reset(sipo)

	applied := display.Update(playback.Status{
		Epoch:    sipo,
		State:    playback.StateProducing,
		Position: 1 * time.Second,
		Duration: 4 * time.Second,
		Rate:     1.25,
		Loop:     true,
	})
	if !applied {
		t.Fatal("status of the item on screen should apply")
	}
	if !display.IsPlaying() {
		t.Error("Display should be playing")
	}
	if got := display.Progress(); got != 0.25 {
		t.Errorf("Progress = %v, want 0.25", got)
	}

	status := display.CompactStatus()
	for _, want := range []string{"▶", "playing", "1.25x", "⟲"} {
		if !strings.Contains(status, want) {
			t.Errorf("status %q should contain %q", status, want)
		}
	}

	// Stale statuses never overwrite the item on screen.
	if display.Update(playback.Status{Epoch: kato, State: playback.StateArmed}) {
		t.Error("status of another epoch should be ignored")
	}
	if display.state != playback.StateProducing {
		t.Errorf("state = %v", display.state)
	}
}

func TestStatusDisplayPausedAndRetry(t *testing.T) {
	display := newStatusDisplay()
	display.Reset(sipo)

	display.Update(playback.Status{Epoch: sipo, State: playback.StateProducing, Paused: true})
	if !strings.Contains(display.CompactStatus(), "⏸") {
		t.Error("Paused status should contain pause icon")
	}

	display.Update(playback.Status{
		Epoch: sipo,
		State: playback.StateArmed,
		Err:   &playback.Error{Code: playback.CodeResourceAcquisition, Checkpoint: "autoplay", Cause: errors.New("busy")},
	})
	if !strings.Contains(display.CompactStatus(), "press space") {
		t.Errorf("status %q should offer a manual start", display.CompactStatus())
	}
	if !strings.Contains(display.DetailedStatus(80), "busy") {
		t.Error("detailed status should show the failure")
	}
}

func TestStatusDisplayHide(t *testing.T) {
	display := newStatusDisplay()
	display.Reset(sipo)
	display.Update(playback.Status{Epoch: sipo, State: playback.StateProducing, Rate: 1.5})

	if display.Hide(kato) {
		t.Error("hiding another epoch should not touch the display")
	}
	if !display.Hide(sipo) {
		t.Fatal("Hide should apply to the item on screen")
	}
	if display.IsPlaying() || display.IsLoading() {
		t.Error("a hidden item is neither playing nor loading")
	}
	if display.Update(playback.Status{Epoch: sipo, State: playback.StateProducing}) {
		t.Error("a hidden item never comes back")
	}

	// Rate and loop survive the switch to the next item.
	display.Reset(kato)
	if display.rate != 1.5 || display.hidden {
		t.Errorf("after Reset: rate=%v hidden=%v", display.rate, display.hidden)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name   string
		status playback.Status
		want   float64
	}{
		{"no duration", playback.Status{State: playback.StateArmed}, 0},
		{"completed", playback.Status{State: playback.StateCompleted}, 1},
		{"half", playback.Status{State: playback.StateProducing, Position: time.Second, Duration: 2 * time.Second}, 0.5},
		{"past the end", playback.Status{State: playback.StateProducing, Position: 3 * time.Second, Duration: 2 * time.Second}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			display := newStatusDisplay()
			display.Reset(sipo)
			tt.status.Epoch = sipo
			display.Update(tt.status)
			if got := display.Progress(); got != tt.want {
				t.Errorf("Progress = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{-time.Second, "0:00"},
		{1500 * time.Millisecond, "0:01"},
		{75 * time.Second, "1:15"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
