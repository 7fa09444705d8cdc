package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/vortaro/internal/asset"
	"github.com/dgnsrekt/vortaro/internal/audio"
	"github.com/dgnsrekt/vortaro/internal/cache"
	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/freshness/sqlite"
	"github.com/dgnsrekt/vortaro/internal/playback"
	"github.com/dgnsrekt/vortaro/internal/session"
)

// app holds the process-wide resources shared by every session.
type app struct {
	clips   *cache.Manager
	library *asset.Library
	channel freshness.Channel
	device  audio.Device

	closers []func() error
}

// newApp opens the clip cache, the asset library, the freshness channel and
// the audio device. With headless set, or when no device can be opened,
// playback is simulated.
func newApp(headless bool) (*app, error) {
	a := &app{}

	clips, err := cache.NewManager(cacheConfig(), log.Default().WithPrefix("cache"))
	if err != nil {
		return nil, fmt.Errorf("unable to open clip cache: %w", err)
	}
	a.clips = clips
	a.closers = append(a.closers, clips.Close)

	a.library, err = asset.NewLibrary(viper.GetString("assets"), clips, log.Default().WithPrefix("asset"))
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.channel, err = openChannel()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if c, ok := a.channel.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	a.device = openDevice(headless)
	if p, ok := a.device.(*audio.Player); ok {
		a.closers = append(a.closers, p.Close)
	}
	return a, nil
}

// Close releases everything newApp opened, last first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) newSession(ctx context.Context, id string, presenter playback.Presenter) (*session.Session, error) {
	schedule, err := scheduleFromConfig()
	if err != nil {
		return nil, err
	}
	return session.New(ctx, session.Config{
		ID:        id,
		Channel:   a.channel,
		Device:    a.device,
		Loader:    a.library,
		Presenter: presenter,
		Schedule:  schedule,
		AutoStart: !viper.GetBool("playback.no_autoplay"),
		Rate:      viper.GetFloat64("playback.rate"),
		Loop:      viper.GetBool("playback.loop"),
		Lookahead: 2,
		Logger:    log.Default().WithPrefix("session"),
	})
}

// resolveItems maps command line words to item keys. A word is tried as a
// key first, then through KeyFor, then by fuzzy match. No words means every
// item in the library.
func (a *app) resolveItems(words []string) ([]string, error) {
	if len(words) == 0 {
		keys, err := a.library.Keys()
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("no audio files in %s", a.library.Dir())
		}
		return keys, nil
	}

	keys := make([]string, 0, len(words))
	for _, word := range words {
		key, err := a.resolveItem(word)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (a *app) resolveItem(word string) (string, error) {
	for _, key := range []string{word, asset.KeyFor(word)} {
		if _, err := a.library.Path(key); err == nil {
			return key, nil
		} else if !errors.Is(err, asset.ErrNotFound) {
			return "", err
		}
	}

	matches, err := a.library.Find(word, 1)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%q: %w", word, asset.ErrNotFound)
	}
	log.Debug("fuzzy matched item", "word", word, "key", matches[0].Key)
	return matches[0].Key, nil
}

// followLibrary queues every item whose file is created while ctx lives.
func followLibrary(ctx context.Context, a *app, s *session.Session) error {
	changes, err := a.library.Watch(ctx)
	if err != nil {
		return err
	}
	go func() {
		for change := range changes {
			if !change.Op.Has(fsnotify.Create) {
				continue
			}
			if _, err := s.Enqueue(change.Key); err != nil {
				log.Debug("unable to queue new item", "key", change.Key, "error", err)
				continue
			}
			log.Info("queued new item", "key", change.Key)
		}
	}()
	return nil
}

func cacheConfig() cache.Config {
	cfg := cache.DefaultConfig()
	cfg.MemoryCapacity = viper.GetInt64("cache.memory_mb") * 1024 * 1024
	cfg.DiskCapacity = viper.GetInt64("cache.disk_mb") * 1024 * 1024
	cfg.DiskPath = viper.GetString("cache.dir")
	if cfg.DiskPath == "" && cfg.DiskCapacity > 0 {
		dir, err := gap.NewScope(gap.User, "vortaro").CacheDir()
		if err != nil {
			log.Warn("no cache directory, disk cache disabled", "error", err)
			cfg.DiskCapacity = 0
		} else {
			cfg.DiskPath = filepath.Join(dir, "clips")
		}
	}
	return cfg
}

func openChannel() (freshness.Channel, error) {
	if viper.GetString("channel.backend") != "sqlite" {
		return freshness.NewMemoryChannel(), nil
	}

	path, err := channelPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create channel directory: %w", err)
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open channel %s: %w", path, err)
	}
	log.Debug("opened sqlite channel", "path", path)
	return store, nil
}

func channelPath() (string, error) {
	if p := viper.GetString("channel.path"); p != "" {
		return p, nil
	}
	p, err := gap.NewScope(gap.User, "vortaro").DataPath("channel.db")
	if err != nil {
		return "", fmt.Errorf("unable to find data directory: %w", err)
	}
	return p, nil
}

func openDevice(headless bool) audio.Device {
	if headless {
		return audio.DefaultMockPlayer()
	}
	player, err := audio.NewPlayer(audio.DefaultPlayerConfig())
	if err != nil {
		log.Warn("audio device unavailable, playback is simulated", "error", err)
		return audio.DefaultMockPlayer()
	}
	return player
}
