// Package watcher observes the hoard file on disk and announces changes to
// event subscribers. Watching the file rather than hooking store writes
// means edits from any source, including a human with a text editor, reach
// the UI the same way.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jonathan/stashboard/internal/events"
	"github.com/jonathan/stashboard/internal/hoard"
)

// debounceWindow coalesces the burst of write events a single save
// produces into one broadcast.
const debounceWindow = 250 * time.Millisecond

// HoardWatcher broadcasts hoard-updated events when the hoard file changes.
type HoardWatcher struct {
	store       *hoard.Store
	broadcaster *events.Broadcaster
	logger      *zap.Logger
}

// New creates a watcher over the given store's file.
func New(store *hoard.Store, broadcaster *events.Broadcaster, logger *zap.Logger) *HoardWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoardWatcher{store: store, broadcaster: broadcaster, logger: logger}
}

// Run watches until the context is cancelled. The parent directory is
// watched rather than the file itself because editors and atomic writers
// replace the file, which would silently drop an inode-bound watch.
func (w *HoardWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	dir := filepath.Dir(w.store.Path())
	if err := fsw.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(w.store.Path())
	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	w.logger.Info("watching hoard file", zap.String("path", target))

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceWindow, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			w.announce()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("hoard watch error", zap.Error(err))
		}
	}
}

func (w *HoardWatcher) announce() {
	count, err := w.store.Count()
	if err != nil {
		w.logger.Warn("failed to read hoard after change", zap.Error(err))
		return
	}
	w.logger.Debug("hoard changed", zap.Int("listings", count))
	w.broadcaster.HoardUpdated(count)
}
