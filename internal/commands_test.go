package internal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/frontmatter"
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "posts")
	cfg.Index.Path = filepath.Join(dir, "smark.bleve")
	cfg.Ledger.Path = filepath.Join(dir, "smark.db")
	return cfg
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTemplate(t *testing.T) {
	var buf bytes.Buffer
	if err := Template(&buf, lang.En, true, datetime.Default); err != nil {
		t.Fatal(err)
	}
	m, err := frontmatter.Parse(buf.String())
	if err != nil {
		t.Fatalf("template does not parse: %v\n%s", err, buf.String())
	}
	if m.UUID() == "" || m.Lang() != lang.En {
		t.Errorf("uuid = %q, lang = %q", m.UUID(), m.Lang())
	}

	yamlText, body, err := frontmatter.Split(buf.String())
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		t.Errorf("body = %q", body)
	}
	for _, key := range []string{"uuid:", "lang: en", "created_at:", "updated_at:"} {
		if !strings.Contains(yamlText, key) {
			t.Errorf("template lacks %q:\n%s", key, yamlText)
		}
	}
}

func TestReplace_PrintsAndWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.md")
	original := testutil.PostText("uuid-1", "Old", lang.En, "Body\n")
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	title := "New"
	var buf bytes.Buffer
	err := Replace(&buf, path, ReplaceParams{
		Overrides: frontmatter.Overrides{Title: &title},
		CreatedAt: "2022/01/11 19:22:50",
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"uuid: uuid-1", "title: New", "created_at: \"2022/01/11 19:22:50\"", "---\nBody\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if data, _ := os.ReadFile(path); string(data) != original {
		t.Error("file changed without Write")
	}

	if err := Replace(io.Discard, path, ReplaceParams{Overrides: frontmatter.Overrides{Title: &title}, Write: true}); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "title: New") {
		t.Errorf("file not rewritten:\n%s", data)
	}
}

func TestReplace_Now(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	if err := os.WriteFile(path, []byte(testutil.PostText("u", "T", lang.Ja, "")), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Replace(&buf, path, ReplaceParams{Now: true}); err != nil {
		t.Fatal(err)
	}
	m, err := frontmatter.Parse(buf.String())
	if err != nil {
		t.Fatal(err)
	}
	created, okC := m.CreatedAt()
	updated, okU := m.UpdatedAt()
	if !okC || !okU || !created.Equal(updated) {
		t.Errorf("dates = %v %v", created, updated)
	}
}

func TestReplace_BadDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.md")
	_ = os.WriteFile(path, []byte(testutil.PostText("u", "T", lang.Ja, "")), 0o644)
	if err := Replace(io.Discard, path, ReplaceParams{UpdatedAt: "yesterday"}); err == nil {
		t.Error("expected error for unparseable date")
	}
}

func TestPrepAndDump(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(cfg.Vault.Path, "hello.md")
	if err := os.WriteFile(src, []byte(testutil.PostText("uuid-1", "Hello", lang.En, "Hi\n")), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := Prep(ctx, "", false, WithConfig(cfg), quiet()); err != nil {
		t.Fatalf("Prep: %v", err)
	}
	if err := Prep(ctx, "", true, WithConfig(cfg), quiet()); err != nil {
		t.Fatalf("Prep rebuild: %v", err)
	}

	out := filepath.Join(t.TempDir(), "dump")
	if err := Dump(ctx, out, WithConfig(cfg), quiet()); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	dumped, err := os.ReadFile(filepath.Join(out, "en", "hello.md"))
	if err != nil {
		t.Fatal(err)
	}
	indexed, _ := os.ReadFile(src)
	if string(dumped) != string(indexed) {
		t.Errorf("dump differs from source:\n%s\n---\n%s", dumped, indexed)
	}
}

func TestNormalize(t *testing.T) {
	cfg := testConfig(t)
	_ = os.MkdirAll(cfg.Vault.Path, 0o755)
	src := filepath.Join(cfg.Vault.Path, "c.md")
	_ = os.WriteFile(src, []byte(testutil.PostText("uuid-c", "C", lang.Ja, "keep<!-- drop -->\n")), 0o644)

	if err := Normalize(context.Background(), "", WithConfig(cfg), quiet()); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(src)
	if strings.Contains(string(data), "drop") {
		t.Errorf("comment kept:\n%s", data)
	}
}

func TestCommandsNeedConfig(t *testing.T) {
	if err := Dump(context.Background(), t.TempDir()); err != errConfigRequired {
		t.Errorf("err = %v", err)
	}
}
