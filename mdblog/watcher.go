package mdblog

// watcher rebuilds the whole site whenever something under the watched
// directories is created, written, removed or renamed. Rebuilds are not
// incremental: listings depend on every file in a directory, so the site
// is regenerated from scratch.
//
// Events are batched: they only mark the watcher dirty, and a ticker runs
// at most one rebuild per interval.

import (
	"context"
	"io/fs"
	"path/filepath"
	"regexp"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Only react to names that start and end with a word character, which
// leaves out editor swap and lock files.
var watchRe = regexp.MustCompile(`^[a-zA-Z0-9_-](.*[a-zA-Z0-9_-])?$`)

// DefaultWatchInterval bounds how often a changing tree is rebuilt.
const DefaultWatchInterval = time.Second

type watcher struct {
	fw       *fsnotify.Watcher
	dirs     []string
	rebuild  func(context.Context) error
	interval time.Duration
	log      Logger
	dirty    bool
}

func newWatcher(dirs []string, interval time.Duration, log Logger, rebuild func(context.Context) error) (w *watcher, err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return
	}
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	w = &watcher{fw: fw, dirs: dirs, rebuild: rebuild, interval: interval, log: log}
	w.addAll()
	return
}

// addAll watches every directory under the roots. fsnotify is not
// recursive, and new directories are picked up after each rebuild.
func (w *watcher) addAll() {
	for _, root := range w.dirs {
		root = filepath.Clean(root)
		walkFn := func(fpath string, d fs.DirEntry, inerr error) error {
			if inerr != nil {
				w.log.Warn("watch: cannot walk", "path", fpath, "error", inerr)
				return nil
			}
			if d.IsDir() {
				if fpath != root && skipEntry(d.Name()) {
					return filepath.SkipDir
				}
				if err := w.fw.Add(fpath); err != nil {
					w.log.Warn("watch: cannot add path", "path", fpath, "error", err)
				} else {
					w.log.Debug("watch: added path", "path", fpath)
				}
			}
			return nil
		}
		if err := filepath.WalkDir(root, walkFn); err != nil {
			w.log.Warn("watch: error walking", "root", root, "error", err)
		}
	}
}

// run blocks until ctx is done or the watcher is closed.
func (w *watcher) run(ctx context.Context) {
	tt := time.NewTicker(w.interval)
	defer tt.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !watchRe.MatchString(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.log.Debug("watch: event", "event", ev.String())
				w.dirty = true
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch: error", "error", err)
		case <-tt.C:
			if !w.dirty {
				continue
			}
			w.dirty = false
			w.log.Info("watch: change detected, rebuilding")
			if err := w.rebuild(ctx); err != nil {
				w.log.Error("watch: rebuild failed", "error", err)
			}
			w.addAll()
		}
	}
}

func (w *watcher) Close() error {
	return w.fw.Close()
}
