// Package watch re-runs an operation when its input file changes.
//
// The parent directory is watched rather than the file, because editors
// commonly save by writing a temp file and renaming it over the original,
// which drops a watch placed on the file itself.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fiberpath/bridge/internal/clog"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 200 * time.Millisecond

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watcher calls a function after its file settles.
type Watcher struct {
	path     string
	debounce time.Duration
	log      clog.Tracer
}

// New creates a Watcher for path. A non-positive debounce uses
// DefaultDebounce.
func New(path string, debounce time.Duration, log clog.Tracer) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = clog.Nop()
	}
	return &Watcher{path: path, debounce: debounce, log: log}
}

// Run blocks until ctx is done, calling onChange once per settled change.
// Calls never overlap: events arriving during a call are coalesced into
// the next one.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) error {
	target, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	w.log.Info("watching %s for changes", target)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&relevantOps == 0 {
				continue
			}
			w.log.Debug("%s: %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.log.Info("%s changed, re-running", target)
			onChange(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error: %v", err)
		}
	}
}
