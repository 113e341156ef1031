package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/mstellato/prefetchd/internal/logger"
)

// Watch monitors the config file and invokes onChange with a freshly
// loaded configuration whenever the file is rewritten. A rewrite that
// fails to load or validate is logged and skipped; the previous
// configuration stays in force.
//
// The parent directory is watched rather than the file itself because
// editors and config management tools typically replace the file, which
// would otherwise drop the watch.
//
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	logger.Debug("watching config file", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(target)
			if err != nil {
				logger.Warn("config reload failed, keeping previous configuration",
					"path", target, "error", err)
				continue
			}
			logger.Info("config reloaded", "path", target)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
