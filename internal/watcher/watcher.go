// Package watcher resets cached templates when completion files change on
// disk.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 250 * time.Millisecond

// Watcher calls onChange once per burst of changes to files matching the
// pattern below any of the watched directories.
type Watcher struct {
	fsw      *fsnotify.Watcher
	roots    []string
	pattern  string
	debounce time.Duration
	onChange func()
	log      *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New starts watching dirs. Directories that do not exist are skipped.
func New(dirs []string, pattern string, onChange func(), opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		pattern:  pattern,
		debounce: DefaultDebounce,
		onChange: onChange,
		log:      slog.With("service", "watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		if err := w.addTree(abs); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				w.log.Debug("skipping missing template dir", "dir", abs)
				continue
			}
			fsw.Close()
			return nil, err
		}
		w.roots = append(w.roots, abs)
	}
	return w, nil
}

// Roots returns the watched directories.
func (w *Watcher) Roots() []string {
	return w.roots
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watch new dir", "dir", ev.Name, "error", err)
			}
			w.schedule()
			return
		}
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}
	if w.matches(ev.Name) {
		w.log.Debug("completion file changed", "path", ev.Name, "op", ev.Op.String())
		w.schedule()
	}
}

func (w *Watcher) matches(path string) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if ok, _ := doublestar.Match(w.pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.fsw.Close()
}
