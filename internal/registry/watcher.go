package registry

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/logger"
)

// RefreshFunc runs a discovery pass and publishes the result
type RefreshFunc func(ctx context.Context) error

// WatcherConfig controls when the watcher triggers a rediscovery
type WatcherConfig struct {
	Debounce time.Duration // quiet period after the last relevant event
	MaxWait  time.Duration // longest a pending rediscovery is deferred, defaults to 10x Debounce
	Interval time.Duration // periodic rescan, 0 disables
}

// Watcher monitors the discovery roots and triggers a debounced rediscovery
// when log files appear, disappear, or an unregistered file is written to.
type Watcher struct {
	fsw        *fsnotify.Watcher
	discoverer *Discoverer
	registry   *Registry
	refresh    RefreshFunc
	config     WatcherConfig
	log        *zap.SugaredLogger

	// Owned by Run. written holds unregistered paths whose writes triggered
	// the pending pass; stale holds those the last pass still skipped, whose
	// writes are ignored until they are created, removed or renamed again.
	written map[string]struct{}
	stale   map[string]struct{}
}

// NewWatcher creates a watcher over every directory below the discovery roots
func NewWatcher(d *Discoverer, reg *Registry, refresh RefreshFunc, config WatcherConfig, log *zap.SugaredLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if config.Debounce <= 0 {
		config.Debounce = constants.DefaultWatchDebounce
	}
	if config.MaxWait < config.Debounce {
		config.MaxWait = 10 * config.Debounce
	}

	w := &Watcher{
		fsw:        fsw,
		discoverer: d,
		registry:   reg,
		refresh:    refresh,
		config:     config,
		log:        logger.OrNop(log),
		written:    make(map[string]struct{}),
		stale:      make(map[string]struct{}),
	}

	for _, root := range d.Config().Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		w.addTree(abs)
	}

	return w, nil
}

// addTree watches dir and all directories below it
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			w.log.Debugw("walking watch tree", "path", path, "error", err)
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warnw("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// WatchList returns the directories currently being watched
func (w *Watcher) WatchList() []string {
	return w.fsw.WatchList()
}

// Run processes events until ctx is cancelled. It closes the underlying
// fsnotify watcher on return. A rediscovery runs once events have been quiet
// for Debounce, or MaxWait after the first pending event at the latest.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	debounce := time.NewTimer(w.config.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	var tick <-chan time.Time
	if w.config.Interval > 0 {
		ticker := time.NewTicker(w.config.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var pendingSince time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			now := time.Now()
			if pendingSince.IsZero() {
				pendingSince = now
			}
			wait := w.config.Debounce
			if deadline := pendingSince.Add(w.config.MaxWait); now.Add(wait).After(deadline) {
				wait = max(deadline.Sub(now), 0)
			}
			debounce.Reset(wait)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("watcher error", "error", err)
		case <-debounce.C:
			pendingSince = time.Time{}
			w.runRefresh(ctx, "filesystem change")
		case <-tick:
			w.runRefresh(ctx, "interval")
		}
	}
}

func (w *Watcher) runRefresh(ctx context.Context, reason string) {
	w.log.Debugw("rediscovering log files", "reason", reason)
	if err := w.refresh(ctx); err != nil && ctx.Err() == nil {
		w.log.Warnw("rediscovery failed", "reason", reason, "error", err)
	}

	snap := w.registry.Snapshot()
	for path := range w.written {
		if !snap.HasPath(path) {
			w.stale[path] = struct{}{}
		}
		delete(w.written, path)
	}
}

// relevant reports whether ev should trigger a rediscovery. New directories
// are added to the watch set as a side effect.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addTree(ev.Name)
			return true
		}
	}

	if !w.discoverer.MatchesExtension(ev.Name) {
		return false
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		delete(w.stale, ev.Name)
		return true
	case ev.Has(fsnotify.Write):
		// Registered files are written to constantly; only a file that was
		// skipped (for example while still empty) needs a new pass.
		if w.registry.Snapshot().HasPath(ev.Name) {
			return false
		}
		if _, err := OwnerID(ev.Name, w.discoverer.Config().Suffix); err != nil {
			return false
		}
		if _, ok := w.stale[ev.Name]; ok {
			return false
		}
		w.written[ev.Name] = struct{}{}
		return true
	default:
		return false
	}
}
