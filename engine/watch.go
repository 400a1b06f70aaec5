package engine

import (
	"context"
	"path/filepath"

	"cardiorisk/logging"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchArtifacts reports changes to artifact files until ctx is done.
// Artifacts are never reloaded in place; the log tells operators a restart
// is needed. Parent directories are watched so atomic renames are seen.
func WatchArtifacts(ctx context.Context, paths []string, logger *zap.Logger, onChange func(path string)) error {
	logger = logging.OrNop(logger)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	targets := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return err
		}
		targets[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
		dirs[dir] = true
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !targets[filepath.Clean(event.Name)] {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				logger.Warn("artifact changed on disk, restart required to load it",
					zap.String("path", event.Name), zap.String("op", event.Op.String()))
				if onChange != nil {
					onChange(event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("artifact watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
