// Package watch monitors a source tree and signals when its contents
// settle after a burst of changes. The watch command uses it to re-invoke
// the collector; the collector itself stays a batch operation.
package watch

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long the tree must stay quiet before a change signal
// is emitted.
const DefaultSettle = 2 * time.Second

// Watcher monitors a directory tree for file changes using fsnotify.
type Watcher struct {
	Root    string
	Settle  time.Duration
	Changes <-chan struct{} // one signal per settled change burst

	changes chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher for the tree rooted at root.
func New(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)
	return &Watcher{
		Root:    root,
		Settle:  DefaultSettle,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

// Start registers every directory under the root and begins watching.
// Directories created while watching are picked up from their create
// events.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and channels.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	var last time.Time
	pending := false
	ticker := time.NewTicker(w.Settle / 4)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// New directories must be registered to keep the whole
				// tree covered.
				_ = w.watcher.Add(event.Name)
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending = true
				last = time.Now()
			}

		case <-ticker.C:
			if pending && time.Since(last) >= w.Settle {
				pending = false
				select {
				case w.changes <- struct{}{}:
				default: // a signal is already queued
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next scheduled collect
			// still captures the tree.
		}
	}
}
