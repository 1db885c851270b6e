package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/starford/smark/internal/apperr"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "smark-ledger-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndGet(t *testing.T) {
	db := testDB(t).Vault(t.TempDir())
	if err := db.Record(Entry{Path: "a.md", UUID: "u1", Checksum: "c1"}); err != nil {
		t.Fatal(err)
	}
	e, err := db.Get("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if e.UUID != "u1" || e.Checksum != "c1" {
		t.Errorf("entry = %+v", e)
	}
	if e.IndexedAt.IsZero() {
		t.Error("indexed_at not set")
	}

	if err := db.Record(Entry{Path: "a.md", UUID: "u1", Checksum: "c2"}); err != nil {
		t.Fatal(err)
	}
	e, _ = db.Get("a.md")
	if e.Checksum != "c2" {
		t.Errorf("checksum = %q, want c2", e.Checksum)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t).Vault(t.TempDir())
	_, err := db.Get("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestForgetAllReset(t *testing.T) {
	root := t.TempDir()
	ldb := testDB(t)
	db := ldb.Vault(root)
	for _, e := range []Entry{
		{Path: "a.md", UUID: "u1"},
		{Path: "b.md", UUID: "u1"},
		{Path: "c.md", UUID: "u2"},
	} {
		if err := db.Record(e); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := db.PathsForUUID("u1")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(root, "a.md"), filepath.Join(root, "b.md")}
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %v", paths)
	}

	if err := db.Forget("a.md"); err != nil {
		t.Fatal(err)
	}
	if err := db.Forget("a.md"); err != nil {
		t.Errorf("second forget: %v", err)
	}
	all, err := db.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all["c.md"].UUID != "u2" {
		t.Errorf("all = %+v", all)
	}

	if err := ldb.Reset(); err != nil {
		t.Fatal(err)
	}
	all, _ = db.All()
	if len(all) != 0 {
		t.Errorf("after reset: %+v", all)
	}
}

func TestVaultsAreSeparate(t *testing.T) {
	db := testDB(t)
	rootA, rootB := t.TempDir(), t.TempDir()
	a, b := db.Vault(rootA), db.Vault(rootB)

	if err := a.Record(Entry{Path: "x.md", UUID: "u-a", Checksum: "ca"}); err != nil {
		t.Fatal(err)
	}
	if err := b.Record(Entry{Path: "x.md", UUID: "u-b", Checksum: "cb"}); err != nil {
		t.Fatal(err)
	}

	ea, err := a.Get("x.md")
	if err != nil || ea.UUID != "u-a" {
		t.Errorf("vault a = %+v, %v", ea, err)
	}
	eb, err := b.Get("x.md")
	if err != nil || eb.UUID != "u-b" {
		t.Errorf("vault b = %+v, %v", eb, err)
	}
	if all, _ := b.All(); len(all) != 1 {
		t.Errorf("vault b sees %d entries, want 1", len(all))
	}

	if err := b.Forget("x.md"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Get("x.md"); err != nil {
		t.Errorf("forget in b removed a's entry: %v", err)
	}

	// A uuid claimed from another vault is still visible.
	_ = b.Record(Entry{Path: "y.md", UUID: "u-a"})
	paths, _ := a.PathsForUUID("u-a")
	want := []string{filepath.Join(rootA, "x.md"), filepath.Join(rootB, "y.md")}
	slices.Sort(want)
	if !slices.Equal(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestVaultResolvesRelativeRoot(t *testing.T) {
	db := testDB(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if got := db.Vault("posts").Root(); got != filepath.Join(wd, "posts") {
		t.Errorf("root = %q", got)
	}
}
