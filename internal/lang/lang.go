// Package lang enumerates the post languages the index knows analyzers for.
package lang

import "fmt"

// Lang is a post language code.
type Lang string

const (
	Ja Lang = "ja"
	En Lang = "en"
)

// Default is used when front matter omits the language.
const Default = Ja

// All lists every supported language in a stable order.
func All() []Lang {
	return []Lang{Ja, En}
}

// Parse validates a language code.
func Parse(s string) (Lang, error) {
	switch Lang(s) {
	case Ja, En:
		return Lang(s), nil
	}
	return "", fmt.Errorf("lang: unsupported language %q", s)
}

func (l Lang) String() string { return string(l) }

// AnalyzerName is the analyzer registered for prose in this language.
func (l Lang) AnalyzerName() string {
	return "lang_" + string(l)
}
