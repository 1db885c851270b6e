package index

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/schema"
)

// ErrReadOnly is returned by write operations on an engine opened read-only.
var ErrReadOnly = errors.New("index: engine is read-only")

// ErrLangMismatch is returned when an existing index was created for another
// prose language than the one requested.
var ErrLangMismatch = errors.New("index: prose language differs from the index")

// DefaultLockTimeout bounds how long Open waits for the index file lock.
// Writers hold it exclusively and readers share it.
const DefaultLockTimeout = 10 * time.Second

// Engine is a bleve index together with the catalog describing its fields.
// It is safe for concurrent use; bleve serializes writers and gives every
// search its own snapshot.
type Engine struct {
	idx      bleve.Index
	catalog  *schema.Catalog
	path     string
	readOnly bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	readOnly    bool
	rebuild     bool
	proseLang   lang.Lang
	langSet     bool
	registry    *schema.AnalyzerRegistry
	lockTimeout time.Duration
}

// ReadOnly opens an existing index without taking the writer lock.
func ReadOnly() Option {
	return func(o *options) { o.readOnly = true }
}

// Rebuild removes any index at the path and creates an empty one.
func Rebuild() Option {
	return func(o *options) { o.rebuild = true }
}

// WithProseLang selects the analyzer language of the prose fields for a new
// index. An existing index keeps the language it was created with; asking
// for another one fails with ErrLangMismatch.
func WithProseLang(l lang.Lang) Option {
	return func(o *options) {
		o.proseLang = l
		o.langSet = true
	}
}

// WithLockTimeout bounds the wait for the index file lock. Zero waits
// forever.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithAnalyzers replaces the default analyzer registry.
func WithAnalyzers(reg *schema.AnalyzerRegistry) Option {
	return func(o *options) { o.registry = reg }
}

// Open opens the index at path. A writable open creates the index when the
// path does not exist yet. The catalog follows the prose language stored in
// an existing index.
func Open(path string, opts ...Option) (*Engine, error) {
	o := options{proseLang: lang.Default, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.readOnly && o.rebuild {
		return nil, fmt.Errorf("index: open %s: rebuild needs a writable index", path)
	}
	if o.registry == nil {
		o.registry = schema.NewAnalyzerRegistry()
	}

	if o.rebuild {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("index: remove %s: %w", path, err)
		}
	}

	config := map[string]interface{}{"read_only": o.readOnly}
	if o.lockTimeout > 0 {
		config["bolt_timeout"] = o.lockTimeout.String()
	}

	idx, err := bleve.OpenUsing(path, config)
	switch {
	case err == nil:
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist) && !o.readOnly:
		catalog, err := schema.Build(o.registry, o.proseLang)
		if err != nil {
			return nil, fmt.Errorf("index: build catalog: %w", err)
		}
		idx, err := bleve.New(path, catalog.Mapping())
		if err != nil {
			return nil, fmt.Errorf("index: create %s: %w", path, err)
		}
		return &Engine{idx: idx, catalog: catalog, path: path}, nil
	default:
		return nil, fmt.Errorf("index: open %s: %w", path, err)
	}

	prose, ok := storedProseLang(idx)
	switch {
	case !ok:
		prose = o.proseLang
	case o.langSet && prose != o.proseLang:
		idx.Close()
		return nil, fmt.Errorf("%w: %s is %s, not %s", ErrLangMismatch, path, prose, o.proseLang)
	}
	catalog, err := schema.Build(o.registry, prose)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("index: build catalog: %w", err)
	}
	return &Engine{idx: idx, catalog: catalog, path: path, readOnly: o.readOnly}, nil
}

// storedProseLang reads the prose language from the analyzer an existing
// index applies to titles.
func storedProseLang(idx bleve.Index) (lang.Lang, bool) {
	name := idx.Mapping().AnalyzerNameForPath(schema.Title.Name())
	for _, l := range lang.All() {
		if l.AnalyzerName() == name {
			return l, true
		}
	}
	return "", false
}

// Close releases the index and its writer lock.
func (e *Engine) Close() error {
	if err := e.idx.Close(); err != nil {
		return fmt.Errorf("index: close: %w", err)
	}
	return nil
}

// Catalog is the field catalog the engine was opened with.
func (e *Engine) Catalog() *schema.Catalog { return e.catalog }

// Path is the on-disk location of the index.
func (e *Engine) Path() string { return e.path }

// ReadOnly reports whether writes are rejected.
func (e *Engine) ReadOnly() bool { return e.readOnly }

// Count returns the number of indexed posts.
func (e *Engine) Count() (uint64, error) {
	n, err := e.idx.DocCount()
	if err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Delete removes the post with the given uuid. Deleting an absent uuid is
// not an error.
func (e *Engine) Delete(uuid string) error {
	if e.readOnly {
		return ErrReadOnly
	}
	if err := e.idx.Delete(uuid); err != nil {
		return fmt.Errorf("index: delete %s: %w", uuid, err)
	}
	return nil
}
