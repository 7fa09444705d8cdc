package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# directory of <key>.wav (or raw .pcm) files
assets: "~/vortaro/audio"
# mouse support
mouse: false
# debug, info, warn or error
log_level: "info"

# where sessions publish the item that may play
channel:
  # memory: one process. sqlite: shared by every process on this machine
  backend: "memory"
  # sqlite file (default: user data dir)
  path: ""

# how long and how often a playing item checks it is still current
schedule:
  # desktop or mobile (mobile waits longer before the first check)
  profile: "desktop"
  fast_interval: "100ms"
  fast_duration: "3s"
  slow_interval: "500ms"
  slow_duration: "30s"

playback:
  # wait for space before playing
  no_autoplay: false
  # 0.5 to 2.0
  rate: 1.0
  loop: false

# generating missing audio (vortaro generate)
synth:
  # rhvoice or piper
  engine: "rhvoice"
  # RHVoice voice or Piper speaker
  voice: "spomenka"
  # Piper model (.onnx)
  model: ""
  timeout: "10s"
  # 0 for no limit
  per_minute: 0

# decoded clips
cache:
  memory_mb: 64
  disk_mb: 256
  # default: user cache dir
  dir: ""
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the vortaro config file",
	Long:    paragraph(fmt.Sprintf("\n%s the vortaro config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("vortaro config\nvortaro config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Vortaro", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
