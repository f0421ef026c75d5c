package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch installs a filesystem watcher on the root and every nested
// directory. Events only mark the listing dirty; the rescan happens on
// the next Files call. The watcher stops when ctx is canceled.
func (l *Library) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	if err := addDirs(w, l.root); err != nil {
		_ = w.Close()
		return err
	}

	go l.watchLoop(ctx, w)
	return nil
}

func addDirs(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (l *Library) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			l.handleEvent(w, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.log.Warn("library watcher error", "error", err)
		}
	}
}

func (l *Library) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	// New subdirectories need their own watch before files land in them.
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.Add(ev.Name); err != nil {
				l.log.Warn("watching new directory failed", "path", ev.Name, "error", err)
			}
		}
	}

	if ev.Op == fsnotify.Chmod {
		return
	}

	l.mu.Lock()
	l.dirty = true
	l.mu.Unlock()
}
