package ui

import "time"

// Config contains TUI-specific configuration.
type Config struct {
	EnableMouse bool

	// Number of items in the session, for the counter. Zero hides it.
	Total int

	SeekStep        time.Duration `env:"VORTARO_SEEK_STEP"        envDefault:"2s"`
	RefreshInterval time.Duration `env:"VORTARO_REFRESH_INTERVAL" envDefault:"200ms"`

	// For debugging the UI
	ShowEpoch bool `env:"VORTARO_SHOW_EPOCH" envDefault:"false"`
}
