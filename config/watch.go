package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PollInterval is how often Watch checks the file when fsnotify is
// unavailable.
var PollInterval = 500 * time.Millisecond

// Update is a reload result. Err is set when the changed file failed to
// load or validate; Settings then holds the defaults-based partial result.
type Update struct {
	Settings Settings
	Err      error
}

// Watch reloads path whenever it changes and sends the result. The channel
// closes when ctx is cancelled.
func Watch(ctx context.Context, path string) <-chan Update {
	ch := make(chan Update, 4)

	go func() {
		defer close(ch)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			slog.Debug("fsnotify unavailable, polling settings", slog.Any("error", err))
			pollFile(ctx, ch, path)
			return
		}
		defer watcher.Close()

		// Editors replace files on save, so watch the directory.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			slog.Debug("cannot watch settings directory, polling", slog.Any("error", err))
			pollFile(ctx, ch, path)
			return
		}
		watchFile(ctx, ch, watcher, path)
	}()

	return ch
}

func watchFile(ctx context.Context, ch chan<- Update, watcher *fsnotify.Watcher, path string) {
	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !send(ctx, ch, reload(path)) {
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("settings watcher error", slog.Any("error", err))
		}
	}
}

func pollFile(ctx context.Context, ch chan<- Update, path string) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var last time.Time
	if info, err := os.Stat(path); err == nil {
		last = info.ModTime()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil || !info.ModTime().After(last) {
				continue
			}
			last = info.ModTime()
			if !send(ctx, ch, reload(path)) {
				return
			}
		}
	}
}

func reload(path string) Update {
	s, err := Load(path)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		slog.Warn("settings reload failed", slog.String("path", path), slog.Any("error", err))
	} else {
		slog.Debug("settings reloaded", slog.String("path", path))
	}
	return Update{Settings: s, Err: err}
}

func send(ctx context.Context, ch chan<- Update, u Update) bool {
	select {
	case ch <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
