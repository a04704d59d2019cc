package daemon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// watchConfig reloads budgets when the config file changes. The parent
// directory is watched because editors often replace the file by rename.
// A watcher that cannot start is logged and the daemon keeps running with
// the budgets it has.
func (s *Service) watchConfig(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.log.Warn("config watch disabled", "err", err)
		return nil
	}
	defer func() { _ = w.Close() }()

	target := filepath.Clean(s.cfg.ConfigPath)
	if err := w.Add(filepath.Dir(target)); err != nil {
		s.log.Warn("config watch disabled", "path", target, "err", err)
		return nil
	}
	s.log.Info("watching config", "path", target)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.log.Debug("config changed", "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if err := s.Reload(ctx); err != nil {
					s.log.Error("config reload failed", "err", err)
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("config watcher error", "err", err)
		}
	}
}
