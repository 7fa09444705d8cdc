package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "vortaro").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vortaro.log"), nil
}

// setupLog sends logs to a file in the user cache dir. The terminal belongs
// to the TUI, so nothing is logged there.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		// log disabled
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		// log disabled
		return func() error { return nil }, nil
	}
	log.SetOutput(f)
	log.SetReportTimestamp(true)

	level, err := log.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("invalid log_level: %w", err)
	}
	log.SetLevel(level)
	return f.Close, nil
}
