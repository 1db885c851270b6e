package schema

import (
	"fmt"
	"slices"

	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/starford/smark/internal/lang"
)

// RawAnalyzer keeps the whole value as one lower-cased token.
const RawAnalyzer = "raw"

// AnalyzerRegistry collects custom analyzer definitions before they are
// attached to an index mapping. It is owned by whoever opens the index.
type AnalyzerRegistry struct {
	names   []string
	configs map[string]map[string]any
}

// NewAnalyzerRegistry returns a registry holding the raw analyzer and one
// prose analyzer per supported language.
func NewAnalyzerRegistry() *AnalyzerRegistry {
	r := &AnalyzerRegistry{configs: make(map[string]map[string]any)}
	r.mustRegister(RawAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     single.Name,
		"token_filters": []string{lowercase.Name},
	})
	r.mustRegister(lang.Ja.AnalyzerName(), map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": []string{cjk.WidthName, lowercase.Name, cjk.BigramName},
	})
	r.mustRegister(lang.En.AnalyzerName(), map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": []string{en.PossessiveName, lowercase.Name, en.StopName, porter.Name},
	})
	return r
}

// Register adds a custom analyzer definition in bleve's map form.
func (r *AnalyzerRegistry) Register(name string, config map[string]any) error {
	if _, dup := r.configs[name]; dup {
		return fmt.Errorf("schema: analyzer %q already registered", name)
	}
	r.names = append(r.names, name)
	r.configs[name] = config
	return nil
}

func (r *AnalyzerRegistry) mustRegister(name string, config map[string]any) {
	if err := r.Register(name, config); err != nil {
		panic(err)
	}
}

// Has reports whether name is registered.
func (r *AnalyzerRegistry) Has(name string) bool {
	_, ok := r.configs[name]
	return ok
}

// Names lists registered analyzers in registration order.
func (r *AnalyzerRegistry) Names() []string {
	return slices.Clone(r.names)
}

func (r *AnalyzerRegistry) apply(im *mapping.IndexMappingImpl) error {
	for _, name := range r.names {
		if err := im.AddCustomAnalyzer(name, r.configs[name]); err != nil {
			return fmt.Errorf("schema: add analyzer %q: %w", name, err)
		}
	}
	return nil
}
