// Package watcher keeps a collection in sync with directories on disk. File
// writes are debounced and re-indexed; removals delete the file's chunks.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hokan/hokan/internal/extract"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches directory roots and invokes callbacks for supported files.
type Watcher struct {
	roots     []string
	recursive bool
	onIndex   func(path string)
	onRemove  func(path string)
	debounce  time.Duration
	logger    *zap.Logger // optional

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	pending  map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for event-level debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides how long a file must stay quiet before re-indexing.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over roots. onIndex fires after a file is created or
// written and has settled; onRemove fires when a file disappears. Only files
// the extract registry supports trigger callbacks.
func New(roots []string, recursive bool, onIndex, onRemove func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		roots:     roots,
		recursive: recursive,
		onIndex:   onIndex,
		onRemove:  onRemove,
		debounce:  defaultDebounce,
		pending:   make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns immediately; events are handled until ctx
// is cancelled or Stop is called. Missing roots are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.started = true
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.fsw.Close()
			w.fsw = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Info("watching directories",
			zap.Strings("roots", w.roots),
			zap.Bool("recursive", w.recursive))
	}
	go w.run(ctx, fsw.Events, fsw.Errors)
	return nil
}

// run consumes the channels captured at Start. Stop nils w.fsw under the
// mutex, so the loop must never touch the field; Close closes both channels
// and the ok checks end the loop.
func (w *Watcher) run(ctx context.Context, events chan fsnotify.Event, errs chan error) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.watchNewDirectory(path)
			return
		}
		if extract.SupportedForPath(path) {
			w.scheduleIndex(path)
		}
	case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
		w.cancelPending(path)
		if extract.SupportedForPath(path) && w.onRemove != nil {
			w.onRemove(path)
		}
	}
}

// watchNewDirectory adds a directory created inside a watched root and indexes
// whatever it already contains (files moved in arrive without write events).
func (w *Watcher) watchNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	recursive := w.recursive
	w.mu.Unlock()
	if fsw == nil || !recursive {
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil && w.logger != nil {
				w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if extract.SupportedForPath(path) {
			w.scheduleIndex(path)
		}
		return nil
	})
}

func (w *Watcher) scheduleIndex(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if w.logger != nil {
			w.logger.Debug("file settled, indexing", zap.String("path", path))
		}
		if w.onIndex != nil {
			w.onIndex(path)
		}
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	if !w.recursive {
		return w.fsw.Add(root)
	}
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

// SyncExistingFiles fires onIndex for every supported file already under the
// roots. Call after Start to pick up files present before watching began.
func (w *Watcher) SyncExistingFiles() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	onIndex := w.onIndex
	w.mu.Unlock()
	if onIndex == nil {
		return
	}
	for _, root := range roots {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && extract.SupportedForPath(path) {
				onIndex(path)
			}
			return nil
		})
	}
}

// Stop stops watching and cancels any pending re-index timers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
