package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reeveops/reeve/internal/logger"
)

// Watcher re-launches the served plan when its file changes on disk.
type Watcher struct {
	path     string
	runner   JobRunner
	log      *logger.Logger
	debounce time.Duration
}

// NewWatcher builds a watcher for the plan file at path.
func NewWatcher(path string, runner JobRunner, log *logger.Logger) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		runner:   runner,
		log:      log.WithComponent("watch"),
		debounce: 500 * time.Millisecond,
	}
}

// Run blocks until ctx is cancelled, launching a run after each burst of
// changes to the plan file. The watch covers the parent directory because
// editors replace files with rename+create rather than writing in place.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.log.WithFields(map[string]any{"path": w.path}).Info("watching plan")

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				pending = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error(err, "watch error")

		case <-pending:
			timer = nil
			pending = nil
			jid, err := w.runner.Launch(ctx, false)
			if err != nil {
				w.log.Error(err, "watch-triggered run failed")
				continue
			}
			w.log.WithFields(map[string]any{"jid": jid}).Info("plan changed, run launched")
		}
	}
}
