package specstore

import (
	"context"
	"log"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a Store's per-project cache when a project's
// .synapse/specs/ directory changes on disk, so an edited user spec takes
// effect on the next Lookup instead of waiting out the project cache TTL.
type Watcher struct {
	store *Store
	fsw   *fsnotify.Watcher

	mu      sync.Mutex
	watched map[string]bool // project root -> already added to fsw
}

// NewWatcher creates a Watcher bound to store. Call Run in its own goroutine
// to start processing filesystem events.
func NewWatcher(store *Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{store: store, fsw: fsw, watched: make(map[string]bool)}, nil
}

// WatchRoot adds root's .synapse/specs/ directory to the watch set if it
// isn't already watched. Safe to call repeatedly; a project root resolved
// from many cwds is only added to the underlying fsnotify watcher once.
// Missing directories are skipped — fsnotify.Add fails on a path that
// doesn't exist yet, and most projects have no .synapse/specs/ at all.
func (w *Watcher) WatchRoot(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[root] {
		return
	}
	dir := filepath.Join(root, ".synapse", "specs")
	if err := w.fsw.Add(dir); err != nil {
		return
	}
	w.watched[root] = true
}

// Run processes fsnotify events until ctx is canceled, invalidating the
// owning project's cached spec set on every write/create/remove/rename.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			root := filepath.Dir(filepath.Dir(filepath.Dir(ev.Name))) // .synapse/specs/<file> -> project root
			w.store.InvalidateProject(root)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[SPECSTORE] watch error: %v", err)
		}
	}
}
