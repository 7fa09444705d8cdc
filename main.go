// Package main provides the entry point for the vortaro CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/vortaro/internal/playback"
	"github.com/dgnsrekt/vortaro/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	mouse      bool
	sessionID  string

	rootCmd = &cobra.Command{
		Use:   "vortaro [ITEM...]",
		Short: "Drill vocabulary by ear, one word at a time",
		Long: paragraph(
			fmt.Sprintf("\nDrill vocabulary by ear, %s. Items are audio files in the asset directory, named by their key.", keyword("one word at a time")),
		),
		Example:          paragraph("vortaro\nvortaro hundo kato ĉevalo\nvortaro --profile mobile --rate 0.75"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOptions()
		},
		RunE: execute,
	}
)

func validateOptions() error {
	mouse = viper.GetBool("mouse")

	switch backend := viper.GetString("channel.backend"); backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown channel backend %q: use memory or sqlite", backend)
	}

	if _, err := scheduleFromConfig(); err != nil {
		return err
	}

	rate := viper.GetFloat64("playback.rate")
	if rate < 0.5 || rate > 2.0 {
		return fmt.Errorf("playback rate must be between 0.5 and 2.0, got %.2f", rate)
	}
	return nil
}

// scheduleFromConfig starts from the named profile and applies any explicit
// interval overrides.
func scheduleFromConfig() (playback.Schedule, error) {
	s, err := playback.ScheduleFor(viper.GetString("schedule.profile"))
	if err != nil {
		return s, err
	}
	if d := viper.GetDuration("schedule.fast_interval"); d > 0 {
		s.FastInterval = d
	}
	if d := viper.GetDuration("schedule.fast_duration"); d > 0 {
		s.FastDuration = d
	}
	if d := viper.GetDuration("schedule.slow_interval"); d > 0 {
		s.SlowInterval = d
	}
	if d := viper.GetDuration("schedule.slow_duration"); d > 0 {
		s.SlowDuration = d
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("schedule: %w", err)
	}
	return s, nil
}

func execute(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("vortaro needs a terminal; use vortaro drill for headless runs")
	}
	return runTUI(cmd, args)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.EnableMouse = mouse

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	presenter := ui.NewPresenter()
	s, err := a.newSession(cmd.Context(), sessionID, presenter)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	items, err := a.resolveItems(args)
	if err != nil {
		return err
	}
	n, err := s.Enqueue(items...)
	if err != nil {
		log.Warn("some items were not queued", "queued", n, "error", err)
	}
	cfg.Total = n

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := followLibrary(ctx, a, s); err != nil {
		log.Warn("not following the asset directory", "error", err)
	}
	log.Info("starting session", "id", s.ID(), "items", n, "channel", viper.GetString("channel.backend"))

	// Run Bubble Tea program
	program := ui.NewProgram(ctx, cfg, ui.FromSession(s))
	presenter.Attach(program)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().String("assets", "", "directory of <key>.wav files")
	rootCmd.PersistentFlags().String("channel", "", "freshness channel backend (memory or sqlite)")
	rootCmd.PersistentFlags().String("profile", "", "timing profile (desktop or mobile)")
	rootCmd.PersistentFlags().Float64("rate", 0, "initial playback rate (0.5 to 2.0)")
	rootCmd.PersistentFlags().Bool("loop", false, "loop every item")
	rootCmd.PersistentFlags().Bool("no-autoplay", false, "wait for space before playing")
	rootCmd.PersistentFlags().StringVar(&sessionID, "session", "", "session id (default: random)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("assets", rootCmd.PersistentFlags().Lookup("assets"))
	_ = viper.BindPFlag("channel.backend", rootCmd.PersistentFlags().Lookup("channel"))
	_ = viper.BindPFlag("schedule.profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("playback.rate", rootCmd.PersistentFlags().Lookup("rate"))
	_ = viper.BindPFlag("playback.loop", rootCmd.PersistentFlags().Lookup("loop"))
	_ = viper.BindPFlag("playback.no_autoplay", rootCmd.PersistentFlags().Lookup("no-autoplay"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	viper.SetDefault("assets", "~/vortaro/audio")
	viper.SetDefault("channel.backend", "memory")
	viper.SetDefault("channel.path", "")
	viper.SetDefault("schedule.profile", "desktop")
	viper.SetDefault("playback.rate", 1.0)
	viper.SetDefault("playback.loop", false)
	viper.SetDefault("playback.no_autoplay", false)
	viper.SetDefault("cache.memory_mb", 64)
	viper.SetDefault("cache.disk_mb", 256)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("log_level", "info")

	rootCmd.AddCommand(configCmd, manCmd, drillCmd, channelCmd, keyCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "vortaro")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "vortaro")}, dirs...)
	}

	if c := os.Getenv("VORTARO_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("vortaro")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("vortaro")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "vortaro.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
