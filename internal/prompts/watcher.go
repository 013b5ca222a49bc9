package prompts

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 200 * time.Millisecond

// Watch reloads the override file whenever it changes, until ctx is
// cancelled. The parent directory is watched so editors that replace the
// file by rename are picked up. onReload, if non-nil, is called after each
// successful reload.
func (r *Registry) Watch(ctx context.Context, logger *slog.Logger, onReload func()) error {
	if r.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(r.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	logger.Info("prompts: watching overrides", slog.String("path", target))

	// reloadTimer debounces bursts of writes from editors.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDelay)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("prompts: watcher stopped")
			return nil

		case <-reloadCh:
			if err := r.Reload(); err != nil {
				logger.Warn("prompts: reload failed, keeping previous templates",
					slog.String("path", target),
					slog.String("error", err.Error()))
				continue
			}
			logger.Info("prompts: reloaded", slog.String("path", target))
			if onReload != nil {
				onReload()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("prompts: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
