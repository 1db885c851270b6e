package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/frontmatter"
	"github.com/starford/smark/internal/index"
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/ledger"
	"github.com/starford/smark/internal/mcpserver"
	"github.com/starford/smark/internal/postservice"
	"github.com/starford/smark/internal/storage"
)

// Prep syncs every post under input into the index. An empty input uses the
// configured vault. Rebuild drops the index and the ledger first.
func Prep(_ context.Context, input string, rebuild bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if input == "" {
		input = app.config.Vault.Path
	}

	var extra []index.Option
	if rebuild {
		extra = append(extra, index.Rebuild())
		if err := resetLedger(app.config.Ledger.Path); err != nil {
			return err
		}
	}
	engine, err := app.openEngine(false, extra...)
	if err != nil {
		return err
	}
	defer engine.Close()

	syncer, closeLedger, err := app.openSyncer(engine, input)
	if err != nil {
		return err
	}
	defer closeLedger()

	stats, err := syncer.Sync()
	if err != nil {
		return fmt.Errorf("prep: %w", err)
	}
	if stats.Failed > 0 {
		app.logger.Warn("prep: some posts were skipped", slog.Int("failed", stats.Failed))
	}
	return nil
}

func resetLedger(path string) error {
	db, err := ledger.Open(path)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer db.Close()
	return db.Reset()
}

// Normalize strips HTML comments from the posts under input without bumping
// their update dates.
func Normalize(_ context.Context, input string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if input == "" {
		input = app.config.Vault.Path
	}

	engine, err := app.openEngine(false)
	if err != nil {
		return err
	}
	defer engine.Close()

	syncer, closeLedger, err := app.openSyncer(engine, input)
	if err != nil {
		return err
	}
	defer closeLedger()

	stats, err := syncer.Normalize()
	if err != nil {
		return err
	}
	app.logger.Info("normalize: done",
		slog.Int("inserted", stats.Inserted),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed))
	return nil
}

// Dump writes every indexed post to outdir/<lang>/<slug>.md.
func Dump(_ context.Context, outdir string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	engine, err := app.openEngine(true)
	if err != nil {
		return err
	}
	defer engine.Close()

	n, err := engine.Dump(outdir)
	if err != nil {
		return err
	}
	app.logger.Info("dump: done", slog.String("outdir", outdir), slog.Int("posts", n))
	return nil
}

// ServeMCP serves the read-only MCP tools over stdio.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	snaps, err := app.openSnapshots()
	if err != nil {
		return err
	}

	app.logger.Info("mcp: serving on stdio", slog.String("index_path", app.config.Index.Path))
	return mcpserver.New(postservice.NewService(snaps), app.version).ServeStdio()
}

// Template prints the header of a new post.
func Template(w io.Writer, l lang.Lang, withDate bool, f datetime.Format) error {
	text, err := frontmatter.Template(l, withDate, f).Text()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

// ReplaceParams are the inputs of Replace. Dates are raw strings parsed with
// the usual notation detection.
type ReplaceParams struct {
	Overrides frontmatter.Overrides
	CreatedAt string
	UpdatedAt string
	// Now sets updated_at, and created_at when missing, to the current second.
	Now bool
	// Write replaces the file in place instead of printing to w.
	Write bool
}

// Replace rebuilds the header of the post at path from the overrides and the
// existing header. The body is kept as is.
func Replace(w io.Writer, path string, p ReplaceParams) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	yamlText, body, err := frontmatter.Split(string(data))
	if err != nil {
		// A file without a header gets one; its whole text is the body.
		yamlText, body = "", string(data)
	}

	o := p.Overrides
	if o.CreatedAt, err = parseDateFlag(p.CreatedAt); err != nil {
		return err
	}
	if o.UpdatedAt, err = parseDateFlag(p.UpdatedAt); err != nil {
		return err
	}

	m, err := frontmatter.Replace(yamlText, o)
	if err != nil {
		return fmt.Errorf("replace: %s: %w", path, err)
	}
	if p.Now {
		m = touch(m)
	}

	head, err := m.Text()
	if err != nil {
		return err
	}
	text := head + body

	if !p.Write {
		_, err = io.WriteString(w, text)
		return err
	}
	fs, err := storage.NewFS(filepath.Dir(path))
	if err != nil {
		return err
	}
	return fs.Write(filepath.Base(path), []byte(text))
}

func parseDateFlag(s string) (*datetime.DateTime, error) {
	if s == "" {
		return nil, nil
	}
	d, err := datetime.Parse(s, "")
	if err != nil {
		return nil, fmt.Errorf("replace: %w", err)
	}
	return &d, nil
}

// touch stamps updated_at with the current second in its existing notation.
func touch(m frontmatter.FrontMatter) frontmatter.FrontMatter {
	f := datetime.Default
	if old, ok := m.UpdatedAt(); ok {
		f = old.Format()
	}
	now := datetime.Now(f)
	created, ok := m.CreatedAt()
	if !ok {
		created = now
	}
	return m.WithTimestamps(created, now)
}
