package index

import (
	"fmt"

	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/schema"
)

// Snapshots serves reads from an index another process writes to. Every
// call opens the index read-only, runs, and closes it again, so a writer
// waits at most for one query and each query sees the latest commit.
type Snapshots struct {
	path    string
	opts    []Option
	catalog *schema.Catalog
}

var _ Reader = (*Snapshots)(nil)

// OpenSnapshots checks that a readable index exists at path and captures
// its catalog. ReadOnly is implied.
func OpenSnapshots(path string, opts ...Option) (*Snapshots, error) {
	opts = append(append([]Option{}, opts...), ReadOnly())
	e, err := Open(path, opts...)
	if err != nil {
		return nil, err
	}
	catalog := e.Catalog()
	if err := e.Close(); err != nil {
		return nil, err
	}
	return &Snapshots{path: path, opts: opts, catalog: catalog}, nil
}

// Path is the on-disk location of the index.
func (s *Snapshots) Path() string { return s.path }

// Catalog is the field catalog captured when the snapshots were opened.
func (s *Snapshots) Catalog() *schema.Catalog { return s.catalog }

func withEngine[T any](s *Snapshots, fn func(*Engine) (T, error)) (res T, err error) {
	e, err := Open(s.path, s.opts...)
	if err != nil {
		return res, fmt.Errorf("index: snapshot: %w", err)
	}
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(e)
}

func (s *Snapshots) LookupByUUID(uuid string) (schema.Document, error) {
	return withEngine(s, func(e *Engine) (schema.Document, error) {
		return e.LookupByUUID(uuid)
	})
}

func (s *Snapshots) LookupBySlugAndLang(slug string, l lang.Lang) (schema.Document, error) {
	return withEngine(s, func(e *Engine) (schema.Document, error) {
		return e.LookupBySlugAndLang(slug, l)
	})
}

func (s *Snapshots) Filter(terms Terms, orderBy *schema.PostField) ([]schema.Document, error) {
	return withEngine(s, func(e *Engine) ([]schema.Document, error) {
		return e.Filter(terms, orderBy)
	})
}

func (s *Snapshots) Search(text string, fields []schema.PostField, limit int) ([]schema.Document, error) {
	return withEngine(s, func(e *Engine) ([]schema.Document, error) {
		return e.Search(text, fields, limit)
	})
}

func (s *Snapshots) Facets() (tags, categories []string, err error) {
	type pair struct{ tags, categories []string }
	p, err := withEngine(s, func(e *Engine) (pair, error) {
		t, c, err := e.Facets()
		return pair{t, c}, err
	})
	return p.tags, p.categories, err
}

func (s *Snapshots) Count() (uint64, error) {
	return withEngine(s, func(e *Engine) (uint64, error) {
		return e.Count()
	})
}
