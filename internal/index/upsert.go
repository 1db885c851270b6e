package index

import (
	"errors"
	"fmt"

	"github.com/starford/smark/internal/apperr"
	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/post"
	"github.com/starford/smark/internal/schema"
)

// Outcome is what Put did with a post.
type Outcome int

const (
	Skipped Outcome = iota
	Inserted
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "skipped"
	}
}

// Result reports a Put. CreatedAt and UpdatedAt are the dates the index now
// holds for the post; callers write them back into the file.
type Result struct {
	Outcome   Outcome
	Document  schema.Document
	CreatedAt datetime.DateTime
	UpdatedAt datetime.DateTime
}

// Put inserts, updates or skips p, keyed by its uuid.
//
// An unchanged post is skipped without touching the index. On update the
// creation date falls back to the stored one, and the modification date is
// bumped to now in the notation the stored date was written in, unless
// skipUpdateTimestamp is set. The stored document is replaced in a single
// batch so readers never see zero or two documents for the uuid.
func (e *Engine) Put(p *post.Post, skipUpdateTimestamp bool) (Result, error) {
	if e.readOnly {
		return Result{}, ErrReadOnly
	}
	uuid := p.UUID()
	if uuid == "" {
		return Result{}, fmt.Errorf("index: put %s: empty uuid: %w", p.Slug(), apperr.ErrInvalidInput)
	}

	stored, err := e.LookupByUUID(uuid)
	if errors.Is(err, apperr.ErrNotFound) {
		return e.insert(p)
	}
	if err != nil {
		return Result{}, err
	}

	old, err := post.FromDocument(stored, e.catalog)
	if err != nil {
		return Result{}, fmt.Errorf("index: put %s: %w", uuid, err)
	}
	oldCreated, _ := old.Matter().CreatedAt()
	oldUpdated, _ := old.Matter().UpdatedAt()

	if post.EqualFromIndex(p, old) {
		return Result{
			Outcome:   Skipped,
			Document:  stored,
			CreatedAt: oldCreated,
			UpdatedAt: oldUpdated,
		}, nil
	}

	created, ok := p.Matter().CreatedAt()
	if !ok {
		created = oldCreated
	}
	var updated datetime.DateTime
	if skipUpdateTimestamp {
		if updated, ok = p.Matter().UpdatedAt(); !ok {
			updated = oldUpdated
		}
	} else {
		updated = datetime.Now(oldUpdated.Format())
	}

	doc := p.Document(created, updated)
	b := e.idx.NewBatch()
	b.Delete(uuid)
	if err := b.Index(uuid, map[string]any(doc)); err != nil {
		return Result{}, fmt.Errorf("index: put %s: %w", uuid, err)
	}
	if err := e.idx.Batch(b); err != nil {
		return Result{}, fmt.Errorf("index: commit %s: %w", uuid, err)
	}
	return Result{Outcome: Updated, Document: doc, CreatedAt: created, UpdatedAt: updated}, nil
}

func (e *Engine) insert(p *post.Post) (Result, error) {
	now := datetime.Now(datetime.Default)
	created, ok := p.Matter().CreatedAt()
	if !ok {
		created = now
	}
	updated, ok := p.Matter().UpdatedAt()
	if !ok {
		updated = now
	}

	doc := p.Document(created, updated)
	b := e.idx.NewBatch()
	if err := b.Index(p.UUID(), map[string]any(doc)); err != nil {
		return Result{}, fmt.Errorf("index: put %s: %w", p.UUID(), err)
	}
	if err := e.idx.Batch(b); err != nil {
		return Result{}, fmt.Errorf("index: commit %s: %w", p.UUID(), err)
	}
	return Result{Outcome: Inserted, Document: doc, CreatedAt: created, UpdatedAt: updated}, nil
}
