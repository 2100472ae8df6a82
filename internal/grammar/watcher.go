package grammar

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"improv/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the freshly loaded repository, or the load error.
type ReloadFunc func(Repository, error)

// Watcher reloads a grammar path whenever one of its files changes. Rapid
// saves are debounced into a single reload.
type Watcher struct {
	path     string
	file     bool
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload ReloadFunc
}

// NewWatcher creates a watcher over path. A directory is watched with all
// of its subdirectories, including ones created later. A single file is
// watched through its parent directory.
func NewWatcher(path string, onReload ReloadFunc) (*Watcher, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat grammar path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		path:     filepath.Clean(path),
		file:     !info.IsDir(),
		watcher:  fw,
		debounce: 200 * time.Millisecond,
		onReload: onReload,
	}

	if w.file {
		err = fw.Add(filepath.Dir(w.path))
	} else {
		err = w.addTree(w.path)
	}
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

// relevant reports whether event should schedule a reload. New
// directories are added to the watch as a side effect.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if w.file {
		return filepath.Clean(event.Name) == w.path
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logging.Get(logging.CategoryWatch).Warn("failed to watch new directory %s: %v", event.Name, err)
			}
			return true
		}
	}
	return IsGrammarFile(event.Name)
}

// SetDebounce changes the quiet period before a reload.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run processes events until ctx is cancelled. It closes the underlying
// fsnotify watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	log := logging.Get(logging.CategoryWatch)
	log.Info("watching grammar path: %s", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("watcher stopped: %v", ctx.Err())
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			log.Debug("%s event for %s", event.Op, event.Name)
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error: %v", err)

		case <-timer.C:
			repo, err := Load(w.path)
			if err != nil {
				log.Warn("reload failed: %v", err)
			}
			w.onReload(repo, err)
		}
	}
}
