package asset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Change reports that the file behind an item key was written, created,
// removed or renamed.
type Change struct {
	Key string
	Op  fsnotify.Op
}

// Watch watches the asset directory until ctx is done. Every change to a
// playable file drops the key from the clip cache and is sent on the
// returned channel, which is closed when watching stops.
func (l *Library) Watch(ctx context.Context) (<-chan Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", l.dir, err)
	}
	l.logger.Info("watching assets", "dir", l.dir)

	changes := make(chan Change, 16)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				key, playable := playableKey(filepath.Base(event.Name))
				if !playable || event.Op == fsnotify.Chmod {
					continue
				}
				l.logger.Debug("asset changed", "key", key, "op", event.Op)
				l.Invalidate(key)

				select {
				case changes <- Change{Key: key, Op: event.Op}:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Debug("watch error", "dir", l.dir, "err", err)
			}
		}
	}()
	return changes, nil
}
