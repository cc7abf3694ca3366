// Package watch re-runs a plot when its input files change on disk.
//
// Directories are watched rather than files so that editors and acquisition
// software that replace a file via rename are still picked up.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before a rerun.
const DefaultDebounce = 500 * time.Millisecond

// Watcher tracks a fixed set of files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time
	stats   Stats
}

// Stats counts what the watcher has seen.
type Stats struct {
	Events int
	Runs   int
	Errors int
}

// New watches the parent directories of files.
func New(logger *zap.Logger, debounce time.Duration, files ...string) (*Watcher, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("watch: no files")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]bool, len(files)),
		debounce: debounce,
		logger:   logger,
		pending:  make(map[string]time.Time),
	}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Debug("watching directory", zap.String("dir", dir))
	}
	return w, nil
}

// Run blocks until ctx is done, calling onChange with the changed paths once
// each burst of writes has settled. An onChange error is logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string) error) error {
	defer w.watcher.Close()

	tick := time.NewTicker(w.debounce / 5)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case now := <-tick.C:
			paths := w.settled(now)
			if len(paths) == 0 {
				continue
			}
			w.logger.Info("inputs changed", zap.Strings("paths", paths))
			err := onChange(ctx, paths)
			w.mu.Lock()
			w.stats.Runs++
			if err != nil {
				w.stats.Errors++
			}
			w.mu.Unlock()
			if err != nil {
				w.logger.Warn("rerun failed", zap.Error(err))
			}
		}
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil || !w.files[abs] {
		return
	}
	w.logger.Debug("input event", zap.String("path", abs), zap.Stringer("op", event.Op))

	w.mu.Lock()
	w.pending[abs] = time.Now()
	w.stats.Events++
	w.mu.Unlock()
}

// settled removes and returns the pending paths that have been quiet for the
// debounce period, sorted for stable output.
func (w *Watcher) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []string
	for p, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			out = append(out, p)
			delete(w.pending, p)
		}
	}
	slices.Sort(out)
	return out
}
