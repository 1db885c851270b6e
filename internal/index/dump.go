package index

import (
	"fmt"
	"os"

	"github.com/starford/smark/internal/post"
	"github.com/starford/smark/internal/storage"
)

// Dump writes every indexed post to outdir as <lang>/<slug>.md and returns
// how many files were written.
func (e *Engine) Dump(outdir string) (int, error) {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return 0, fmt.Errorf("index: dump: %w", err)
	}
	out, err := storage.NewFS(outdir)
	if err != nil {
		return 0, fmt.Errorf("index: dump: %w", err)
	}

	docs, err := e.Filter(nil, nil)
	if err != nil {
		return 0, err
	}
	for i, doc := range docs {
		p, err := post.FromDocument(doc, e.catalog)
		if err != nil {
			return i, fmt.Errorf("index: dump: %w", err)
		}
		text, err := p.Text()
		if err != nil {
			return i, fmt.Errorf("index: dump %s: %w", p.UUID(), err)
		}
		if err := out.Write(p.DumpPath(), []byte(text)); err != nil {
			return i, fmt.Errorf("index: dump %s: %w", p.UUID(), err)
		}
	}
	return len(docs), nil
}
