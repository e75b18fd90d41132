package caption

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a local caption file whenever it changes on disk.
// Each successful reload is delivered on Tracks; parse failures go to
// Errors and keep the previous track intact. Both channels are closed
// when the watcher shuts down.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher

	// Tracks receives the parsed segments after each change.
	Tracks chan []Segment
	// Errors receives reload failures.
	Errors chan error

	done chan struct{}
}

// WatchFile starts watching the caption file at path. Editors replace
// files on save, so the parent directory is watched and events are
// filtered by name.
func WatchFile(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve caption path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close() //nolint:errcheck
		return nil, fmt.Errorf("unable to watch caption directory: %w", err)
	}

	w := &Watcher{
		path:    abs,
		watcher: fsw,
		Tracks:  make(chan []Segment, 1),
		Errors:  make(chan error, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.Tracks)
	defer close(w.Errors)

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			segments, err := LoadFile(w.path)
			if err != nil {
				select {
				case w.Errors <- err:
				default:
				}
				continue
			}
			// Only the latest track matters; drop a stale undelivered one.
			select {
			case <-w.Tracks:
			default:
			}
			select {
			case w.Tracks <- segments:
			case <-w.done:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		}
	}
}
