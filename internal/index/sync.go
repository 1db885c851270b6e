package index

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/starford/smark/internal/apperr"
	"github.com/starford/smark/internal/checksum"
	"github.com/starford/smark/internal/extract"
	"github.com/starford/smark/internal/ledger"
	"github.com/starford/smark/internal/post"
	"github.com/starford/smark/internal/storage"
)

// Ledger tracks which file produced which post.
type Ledger interface {
	Record(e ledger.Entry) error
	Get(path string) (*ledger.Entry, error)
	Forget(path string) error
	All() (map[string]ledger.Entry, error)
	PathsForUUID(uuid string) ([]string, error)
}

// Stats counts what a sync pass did.
type Stats struct {
	Inserted  int
	Updated   int
	Skipped   int // parsed and put, index already equal
	Unchanged int // checksum matched the ledger, not parsed
	Failed    int
	Pruned    int
}

func (s *Stats) add(o Outcome) {
	switch o {
	case Inserted:
		s.Inserted++
	case Updated:
		s.Updated++
	default:
		s.Skipped++
	}
}

// Syncer keeps the index and the vault files consistent.
type Syncer struct {
	engine *Engine
	store  storage.Provider
	ledger Ledger
	logger *slog.Logger
}

// NewSyncer wires an engine to a vault and its ledger.
func NewSyncer(engine *Engine, store storage.Provider, l Ledger, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{engine: engine, store: store, ledger: l, logger: logger}
}

// Sync walks the vault and brings the index up to date:
//   - files whose bytes match the ledger are left alone
//   - new or changed files are parsed, put, and rewritten with the dates
//     the index settled on
//   - files removed from disk release their post
//
// A file that fails to parse or index is logged and skipped.
func (s *Syncer) Sync() (Stats, error) {
	return s.sync(nil)
}

func (s *Syncer) sync(cb EventCallback) (Stats, error) {
	var stats Stats

	files, err := s.store.List("")
	if err != nil {
		return stats, fmt.Errorf("index: sync: %w", err)
	}
	entries, err := s.ledger.All()
	if err != nil {
		return stats, fmt.Errorf("index: sync: %w", err)
	}

	disk := make(map[string]struct{}, len(files))
	for _, f := range files {
		disk[f.Path] = struct{}{}

		if e, ok := entries[f.Path]; ok && e.Checksum == f.Checksum && s.indexed(e.UUID) {
			stats.Unchanged++
			continue
		}

		data, err := s.store.Read(f.Path)
		if err != nil {
			stats.Failed++
			s.logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		res, p, err := s.indexFile(f.Path, data, false)
		if err != nil {
			stats.Failed++
			s.logger.Warn("sync: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		stats.add(res.Outcome)
		s.logger.Debug("sync: indexed", slog.String("path", f.Path), slog.String("outcome", res.Outcome.String()))
		notify(cb, res.Outcome, f.Path, p.UUID())
	}

	for path, e := range entries {
		if _, ok := disk[path]; ok {
			continue
		}
		if err := s.release(path, e.UUID); err != nil {
			s.logger.Warn("sync: prune failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		stats.Pruned++
		s.logger.Debug("sync: pruned", slog.String("path", path))
		if cb != nil {
			cb(Event{Kind: EventDeleted, Path: path, UUID: e.UUID})
		}
	}

	s.logger.Info("sync: done",
		slog.Int("inserted", stats.Inserted),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed),
		slog.Int("pruned", stats.Pruned))
	return stats, nil
}

// Normalize strips HTML comments from every post body and re-indexes the
// posts without bumping their modification date. Files whose text changes
// are rewritten.
func (s *Syncer) Normalize() (Stats, error) {
	var stats Stats
	files, err := s.store.List("")
	if err != nil {
		return stats, fmt.Errorf("index: normalize: %w", err)
	}
	for _, f := range files {
		data, err := s.store.Read(f.Path)
		if err != nil {
			stats.Failed++
			s.logger.Warn("normalize: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		res, _, err := s.indexFile(f.Path, data, true)
		if err != nil {
			stats.Failed++
			s.logger.Warn("normalize: index failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		stats.add(res.Outcome)
	}
	return stats, nil
}

// indexFile puts the post in data and rewrites the file when the index
// changed. In normalize mode comments are stripped from the body first, the
// modification date is kept and the file is rewritten whenever its text
// differs.
func (s *Syncer) indexFile(path string, data []byte, normalize bool) (Result, *post.Post, error) {
	slug := post.Slug(filepath.Base(path))
	p, err := post.FromText(slug, string(data))
	if err != nil {
		return Result{}, nil, err
	}
	if normalize {
		p = post.New(slug, p.Matter(), extract.RemoveComments(p.Body()))
	}

	var previous string
	if e, err := s.ledger.Get(path); err == nil {
		previous = e.UUID
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return Result{}, nil, err
	}

	res, err := s.engine.Put(p, normalize)
	if err != nil {
		return Result{}, nil, err
	}

	final := data
	if res.Outcome != Skipped || normalize {
		if res.Outcome != Skipped {
			p.SetTimestamps(res.CreatedAt, res.UpdatedAt)
		}
		text, err := p.Text()
		if err != nil {
			return Result{}, nil, err
		}
		if text != string(data) {
			if err := s.store.Write(path, []byte(text)); err != nil {
				return Result{}, nil, err
			}
			final = []byte(text)
		}
	}

	if err := s.ledger.Record(ledger.Entry{Path: path, UUID: p.UUID(), Checksum: checksum.Sum(final)}); err != nil {
		return Result{}, nil, err
	}
	if previous != "" && previous != p.UUID() {
		if err := s.releaseUUID(previous); err != nil {
			return Result{}, nil, err
		}
	}
	return res, p, nil
}

// release forgets path and deletes its post once no other file claims it.
func (s *Syncer) release(path, uuid string) error {
	if err := s.ledger.Forget(path); err != nil {
		return err
	}
	return s.releaseUUID(uuid)
}

func (s *Syncer) releaseUUID(uuid string) error {
	paths, err := s.ledger.PathsForUUID(uuid)
	if err != nil {
		return err
	}
	if len(paths) > 0 {
		return nil
	}
	return s.engine.Delete(uuid)
}

func (s *Syncer) indexed(uuid string) bool {
	_, err := s.engine.LookupByUUID(uuid)
	return err == nil
}
