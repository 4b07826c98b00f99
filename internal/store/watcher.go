package store

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"neuropixel/internal/fsutil"
)

// settleDelay gives the writer a moment to finish before the new file
// is probed. Without it a half-written image fails DecodeConfig.
const settleDelay = 200 * time.Millisecond

// Watcher monitors directories and auto-registers image files dropped
// into them, so watched folders behave like a hot inbox for the
// library.
type Watcher struct {
	store     *Store
	watcher   *fsnotify.Watcher
	watchDirs []string
	done      chan struct{}
	log       *slog.Logger
}

// NewWatcher creates a watcher feeding the given store.
func NewWatcher(s *Store, dirs []string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		store:     s,
		watcher:   fw,
		watchDirs: dirs,
		done:      make(chan struct{}),
		log:       log,
	}, nil
}

// Start registers the configured directories and begins processing
// events in the background.
func (w *Watcher) Start() error {
	for _, dir := range w.watchDirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.log.Info("watching directory", "dir", dir)
	}
	go w.processEvents()
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !fsutil.IsImage(event.Name) {
				continue
			}
			time.Sleep(settleDelay)
			rec, err := w.store.Register(event.Name, "")
			if err != nil {
				w.log.Warn("failed to register watched image", "path", event.Name, "error", err)
				continue
			}
			w.log.Info("image auto-registered", "id", rec.ID, "path", rec.Path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("filesystem watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}
