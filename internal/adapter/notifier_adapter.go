package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	m "retest.dev/pkg/retest/internal/model"
)

// DefaultDebounce is the quiet period collected into one change batch.
const DefaultDebounce = 500 * time.Millisecond

// BatchFunc receives one debounced change batch. Returning false ends
// the subscription; the watch loop always returns true.
type BatchFunc func(batch m.ChangeBatch) bool

// Notifier abstracts the filesystem notification source. It delivers
// debounced batches of absolute added/deleted/modified paths for a set
// of watched directory roots.
type Notifier interface {
	// Subscribe blocks delivering batches to onBatch until ctx is
	// cancelled or onBatch returns false.
	Subscribe(ctx context.Context, roots []m.Path, onBatch BatchFunc) error
}

// FSNotifyAdapter implements Notifier on top of fsnotify. fsnotify
// watches single directories, so every subdirectory of each root is
// registered up front and directories created while watching are added
// as they appear. Rapid events are coalesced into one batch per
// debounce window.
type FSNotifyAdapter struct {
	fs       SourceFSAdapter
	debounce time.Duration
	exclude  []*regexp.Regexp
}

// NewFSNotifyAdapter constructs an FSNotifyAdapter. A zero debounce
// falls back to DefaultDebounce; exclude patterns filter event paths
// (editor temp files, VCS metadata) before they reach a batch.
func NewFSNotifyAdapter(fs SourceFSAdapter, debounce time.Duration, exclude []*regexp.Regexp) *FSNotifyAdapter {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &FSNotifyAdapter{
		fs:       fs,
		debounce: debounce,
		exclude:  exclude,
	}
}

// pendingBatch accumulates events until the debounce timer fires.
type pendingBatch struct {
	added    map[m.Path]struct{}
	deleted  map[m.Path]struct{}
	modified map[m.Path]struct{}
}

func newPendingBatch() *pendingBatch {
	return &pendingBatch{
		added:    make(map[m.Path]struct{}),
		deleted:  make(map[m.Path]struct{}),
		modified: make(map[m.Path]struct{}),
	}
}

func (p *pendingBatch) empty() bool {
	return len(p.added) == 0 && len(p.deleted) == 0 && len(p.modified) == 0
}

func (p *pendingBatch) batch() m.ChangeBatch {
	return m.ChangeBatch{
		Added:    sortedPaths(p.added),
		Deleted:  sortedPaths(p.deleted),
		Modified: sortedPaths(p.modified),
	}
}

func sortedPaths(set map[m.Path]struct{}) []m.Path {
	if len(set) == 0 {
		return nil
	}

	paths := make([]m.Path, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	return paths
}

// Subscribe registers the roots and blocks delivering debounced batches.
// Batches are delivered strictly in order from a single goroutine, and
// onBatch runs to completion before the next batch is assembled, so
// triggered runs never overlap.
func (a *FSNotifyAdapter) Subscribe(ctx context.Context, roots []m.Path, onBatch BatchFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			slog.Warn("failed to close watcher", "error", closeErr)
		}
	}()

	watched := make(map[string]struct{})

	for _, root := range roots {
		if err := a.watchTree(watcher, root, watched); err != nil {
			return err
		}
	}

	pending := newPendingBatch()

	var timer *time.Timer

	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if a.consume(watcher, watched, pending, event) {
				if timer == nil {
					timer = time.NewTimer(a.debounce)
				} else {
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(a.debounce)
				}

				timerC = timer.C
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			slog.Warn("watcher error", "error", watchErr)

		case <-timerC:
			timerC = nil

			if pending.empty() {
				continue
			}

			batch := pending.batch()
			pending = newPendingBatch()

			slog.Debug("delivering change batch",
				"added", len(batch.Added),
				"deleted", len(batch.Deleted),
				"modified", len(batch.Modified),
			)

			if !onBatch(batch) {
				return nil
			}
		}
	}
}

// consume folds one fsnotify event into the pending batch. It reports
// whether the debounce timer should be (re)armed.
func (a *FSNotifyAdapter) consume(watcher *fsnotify.Watcher, watched map[string]struct{}, pending *pendingBatch, event fsnotify.Event) bool {
	if a.excluded(event.Name) {
		return false
	}

	path := m.Path(event.Name)

	switch {
	case event.Op.Has(fsnotify.Create):
		// New directories must be registered or edits inside them
		// are invisible.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := a.watchTree(watcher, path, watched); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}

			return false
		}

		delete(pending.deleted, path)
		pending.added[path] = struct{}{}

	case event.Op.Has(fsnotify.Write):
		if _, isNew := pending.added[path]; !isNew {
			pending.modified[path] = struct{}{}
		}

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		delete(pending.added, path)
		delete(pending.modified, path)
		pending.deleted[path] = struct{}{}

	default:
		// Chmod and friends never affect what to rerun.
		return false
	}

	return true
}

func (a *FSNotifyAdapter) excluded(path string) bool {
	for _, pattern := range a.exclude {
		if pattern.MatchString(path) {
			return true
		}
	}

	return false
}

// watchTree registers root and all its subdirectories, skipping ones
// already watched so nested roots don't get registered twice.
func (a *FSNotifyAdapter) watchTree(watcher *fsnotify.Watcher, root m.Path, watched map[string]struct{}) error {
	return a.fs.Walk(root, true, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", root, err)
		}

		if !info.IsDir() {
			return nil
		}

		if a.excluded(path) {
			return filepath.SkipDir
		}

		if _, ok := watched[path]; ok {
			return nil
		}

		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}

		watched[path] = struct{}{}

		slog.Debug("watching directory", "path", path)

		return nil
	})
}
