package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/smark/internal/apperr"
	"github.com/starford/smark/internal/checksum"
)

// Event kinds reported to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// Event describes one watcher-driven index change.
type Event struct {
	Kind string
	Path string
	UUID string
}

// EventCallback is called after a watcher-driven index change.
type EventCallback func(Event)

func notify(cb EventCallback, o Outcome, path, uuid string) {
	if cb == nil {
		return
	}
	switch o {
	case Inserted:
		cb(Event{Kind: EventCreated, Path: path, UUID: uuid})
	case Updated:
		cb(Event{Kind: EventUpdated, Path: path, UUID: uuid})
	}
}

// Watch starts an fsnotify watcher on the vault root and keeps the index in
// step with file changes until ctx is cancelled. cb (if non-nil) is called
// only when the index actually changed, so a file rewritten by the syncer
// itself does not echo back as a second event.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced sync pass that picks up the new path.
func (s *Syncer) Watch(ctx context.Context, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.store.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	s.logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			s.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if _, err := s.sync(cb); err != nil {
				s.logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						s.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					s.indexNewDir(ev.Name, cb)
					continue
				}
			}

			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				s.handleWrite(rel, cb)

			case ev.Op&fsnotify.Remove != 0:
				s.handleRemove(rel, cb)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old path only; the new one arrives
				// as a Create when it stays inside a watched directory.
				s.handleRemove(rel, cb)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (s *Syncer) handleWrite(rel string, cb EventCallback) {
	data, err := s.store.Read(rel)
	if err != nil {
		s.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if e, err := s.ledger.Get(rel); err == nil && e.Checksum == checksum.Sum(data) {
		return
	}
	res, p, err := s.indexFile(rel, data, false)
	if err != nil {
		s.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("outcome", res.Outcome.String()))
	notify(cb, res.Outcome, rel, p.UUID())
}

func (s *Syncer) handleRemove(rel string, cb EventCallback) {
	e, err := s.ledger.Get(rel)
	if errors.Is(err, apperr.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("watcher: ledger lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := s.release(rel, e.UUID); err != nil {
		s.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	s.logger.Debug("watcher: deleted", slog.String("path", rel))
	if cb != nil {
		cb(Event{Kind: EventDeleted, Path: rel, UUID: e.UUID})
	}
}

// indexNewDir indexes any .md files found in a newly created directory.
func (s *Syncer) indexNewDir(dir string, cb EventCallback) {
	root := s.store.Root()
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		s.handleWrite(rel, cb)
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
