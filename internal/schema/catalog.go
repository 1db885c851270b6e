package schema

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/starford/smark/internal/lang"
)

// Entry is the index configuration of one field.
type Entry struct {
	Field    PostField
	Name     string
	Kind     Kind
	Stored   bool
	Analyzer string
}

// Catalog is the immutable field table plus the bleve mapping derived from
// it. Build it once per process.
type Catalog struct {
	entries [fieldCount]Entry
	prose   lang.Lang
	mapping *mapping.IndexMappingImpl
}

// Build creates the catalog. Prose fields use the analyzer of the given
// language; both it and RawAnalyzer must be in reg.
func Build(reg *AnalyzerRegistry, prose lang.Lang) (*Catalog, error) {
	proseAnalyzer := prose.AnalyzerName()
	for _, name := range []string{RawAnalyzer, proseAnalyzer} {
		if !reg.Has(name) {
			return nil, fmt.Errorf("schema: analyzer %q is not registered", name)
		}
	}

	c := &Catalog{prose: prose}
	for _, f := range Fields() {
		k, ok := f.kind()
		if !ok {
			return nil, fmt.Errorf("schema: field %s has no kind", f)
		}
		e := Entry{Field: f, Name: f.Name(), Kind: k, Stored: f.stored()}
		switch k {
		case KindProse:
			e.Analyzer = proseAnalyzer
		case KindRaw:
			e.Analyzer = RawAnalyzer
		}
		c.entries[f] = e
	}

	im := bleve.NewIndexMapping()
	if err := reg.apply(im); err != nil {
		return nil, err
	}
	doc := bleve.NewDocumentStaticMapping()
	for _, e := range c.entries {
		doc.AddFieldMappingsAt(e.Name, fieldMapping(e))
	}
	im.DefaultMapping = doc
	im.DefaultAnalyzer = proseAnalyzer
	im.StoreDynamic = false
	im.IndexDynamic = false
	im.DocValuesDynamic = false
	if err := im.Validate(); err != nil {
		return nil, fmt.Errorf("schema: validate mapping: %w", err)
	}
	c.mapping = im
	return c, nil
}

func fieldMapping(e Entry) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch e.Kind {
	case KindDate:
		fm = bleve.NewDateTimeFieldMapping()
		fm.DocValues = true
	default:
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = e.Analyzer
		fm.DocValues = false
	}
	fm.Store = e.Stored
	fm.IncludeInAll = false
	fm.IncludeTermVectors = e.Kind == KindProse
	if e.Kind == KindStored {
		fm.Index = false
	}
	return fm
}

// Field returns the configuration of f.
func (c *Catalog) Field(f PostField) (Entry, error) {
	if f < 0 || f >= fieldCount {
		return Entry{}, fieldErr("lookup", f, ErrUnknownField)
	}
	return c.entries[f], nil
}

// Mapping is the bleve mapping for creating a new index.
func (c *Catalog) Mapping() mapping.IndexMapping { return c.mapping }

// ProseLang is the language whose analyzer the prose fields use.
func (c *Catalog) ProseLang() lang.Lang { return c.prose }

// Searchable lists the prose fields used for free-text search by default.
func (c *Catalog) Searchable() []PostField {
	return []PostField{Title, Description, RawText}
}
