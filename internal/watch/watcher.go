// Package watch monitors the package directories of a target's transitive
// closure and reports debounced change notifications, driving rebuild-on-save
// in `pulsar watch`.
package watch

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeKind describes the type of file change detected.
type ChangeKind int

const (
	ChangeModified  ChangeKind = iota // source, data, or prebuilt file edited
	ChangeRemoved                     // file deleted
	ChangeBuildFile                   // a BUILD.toml changed; the workspace must reload
)

// Change represents a detected change in a watched package directory.
type Change struct {
	Kind ChangeKind
	File string // absolute path
}

// Watcher monitors a set of directories for build-relevant file changes.
type Watcher struct {
	Dirs    []string
	Changes <-chan Change // Read-only external channel

	changes chan Change // Internal write channel
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher over the given directories.
func New(dirs []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan Change, 16)
	w := &Watcher{
		Dirs:    dirs,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}
	return w, nil
}

// Start begins watching every directory for changes.
func (w *Watcher) Start() error {
	for _, dir := range w.Dirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and channels.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: track last event time per file, so editor write bursts
	// collapse into one rebuild.
	const debounce = 100 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				// Drain pending on close.
				for file := range pending {
					w.emitChange(file, false)
				}
				return
			}

			if !w.isBuildInput(event.Name) {
				continue
			}

			if event.Has(fsnotify.Remove) {
				delete(pending, event.Name)
				w.emitChange(event.Name, true)
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				pending[event.Name] = time.Now()
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= debounce {
					w.emitChange(file, false)
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Ignore watch errors; they're non-fatal.
		}
	}
}

// isBuildInput reports whether a file participates in closure computation:
// sources, data, prebuilt packages, or the BUILD.toml itself.
func (w *Watcher) isBuildInput(name string) bool {
	base := filepath.Base(name)
	if base == "BUILD.toml" || base == "workspace.toml" {
		return true
	}
	for _, suffix := range []string{".py", ".whl", ".egg"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	// Data resources have arbitrary suffixes; treat everything else in a
	// watched package dir as data, except editor droppings.
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

func (w *Watcher) emitChange(file string, removed bool) {
	base := filepath.Base(file)
	switch {
	case removed:
		w.changes <- Change{Kind: ChangeRemoved, File: file}
	case base == "BUILD.toml" || base == "workspace.toml":
		w.changes <- Change{Kind: ChangeBuildFile, File: file}
	default:
		w.changes <- Change{Kind: ChangeModified, File: file}
	}
}
