package automation

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch calls fn with the scenario at path once and again every time the
// file changes, until ctx is cancelled. A scenario that fails to load is
// logged and skipped; an error from fn stops the watch.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(*Scenario) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	reload := func() error {
		scenario, err := LoadScenario(path)
		if err != nil {
			logger.Warn("scenario not loaded", "path", path, "err", err)
			return nil
		}
		return fn(scenario)
	}
	if err := reload(); err != nil {
		return err
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)
		case <-debounce:
			debounce = nil
			logger.Debug("scenario changed", "path", path)
			if err := reload(); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "err", err)
		}
	}
}
