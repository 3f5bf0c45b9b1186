package workspace

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pbaille/expertkb/internal/errors"
)

// DefaultDebounce is the quiet period after the last write before reloading
const DefaultDebounce = 500 * time.Millisecond

// ReloadCallback receives the result of every reload attempt
type ReloadCallback func(*Snapshot, error)

// Watcher reloads a workspace when its source file changes
type Watcher struct {
	ws       *Workspace
	location string // as given, used for loading
	abs      string // absolute, used to match events
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	callbacks []ReloadCallback
}

// NewWatcher watches path for changes. The parent directory is watched so
// editors that replace the file by renaming are still noticed.
func NewWatcher(ws *Workspace, path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve watch path")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", path)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		ws:       ws,
		location: path,
		abs:      abs,
		watcher:  fw,
		debounce: debounce,
	}, nil
}

// OnReload registers a callback run after every reload attempt
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start watches in the background until ctx is done or Stop is called
func (w *Watcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
}

// Stop stops watching
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.ws.logger.Debugw("Source change detected",
				"file", event.Name,
				"op", event.Op.String())
			w.scheduleReload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.ws.logger.Warnw("Source watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.reload(ctx)
	})
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	snap, err := w.ws.Load(ctx, w.location)
	if err != nil {
		w.ws.logger.Errorw("Source reload failed, keeping previous knowledge base",
			"file", w.location,
			"error", err)
	}

	w.mu.Lock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(snap, err)
	}
}
