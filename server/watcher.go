package server

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher monitors the files root in dev mode. Scripts are parsed fresh per
// dispatch so there is no cache to flush; the watcher only bumps a change
// sequence that dev tooling polls to reload.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
	seq     atomic.Uint64
}

// NewWatcher creates a watcher over root and all folders beneath it.
func NewWatcher(root string, logger zerolog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{watcher: fsWatcher, logger: logger}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// Start runs the event loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer w.watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create) {
					// New folders need watching too.
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						w.watcher.Add(event.Name)
					}
				}
				w.seq.Add(1)
				w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("file changed")
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn().Err(err).Msg("watcher error")
			}
		}
	}()
}

// Sequence returns the current change counter.
func (w *Watcher) Sequence() uint64 {
	return w.seq.Load()
}
