// Package testutil provides shared test helpers for setting up vaults,
// ledgers and synthetic posts.
package testutil

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/starford/smark/internal/datetime"
	"github.com/starford/smark/internal/frontmatter"
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/ledger"
	"github.com/starford/smark/internal/post"
	"github.com/starford/smark/internal/storage"
)

// TestLedger creates a temporary ledger database that is automatically
// cleaned up.
func TestLedger(t *testing.T) *ledger.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "smark-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := ledger.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// IndexPath returns a not yet existing index location inside a temp dir.
func IndexPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "index")
}

// WriteFile writes content to rel under dir, creating parents.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// PostText renders a minimal post file.
func PostText(id, title string, l lang.Lang, body string) string {
	return "---\nuuid: " + id + "\ntitle: " + title + "\ndescription: about " + title +
		"\nlang: " + l.String() + "\ncategory: notes\n---\n" + body
}

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz"
	kana     = "いろはにほへとちりぬるをわかよたれそつねならむ"
)

func randString(base string, n int) string {
	runes := []rune(base)
	out := make([]rune, n)
	for i := range out {
		out[i] = runes[rand.IntN(len(runes))]
	}
	return string(out)
}

// RandomMatter returns a header with a fresh uuid, random text, a random
// language, zero or one category and zero or one tag, and both dates set to
// the current second.
func RandomMatter() frontmatter.FrontMatter {
	langs := lang.All()
	f := frontmatter.Fields{
		UUID:        uuid.NewString(),
		Title:       randString(kana, 10),
		Description: randString(kana, 40),
		Lang:        langs[rand.IntN(len(langs))],
	}
	if rand.IntN(2) == 0 {
		f.Category = randString(alphabet, 8)
	}
	if rand.IntN(2) == 0 {
		f.Tags = []string{randString(alphabet, 8)}
	}
	now := datetime.Now(datetime.Default)
	f.CreatedAt = &now
	f.UpdatedAt = &now
	return frontmatter.New(f)
}

// RandomPost returns a post with a random slug, header and body.
func RandomPost() *post.Post {
	return post.New(randString(alphabet, 10), RandomMatter(), randString(kana, 200))
}
