package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/smark/internal/apperr"
	"github.com/starford/smark/internal/lang"
	"github.com/starford/smark/internal/ledger"
	"github.com/starford/smark/internal/testutil"
)

type syncEnv struct {
	dir    string
	engine *Engine
	ledger *ledger.Vault
	syncer *Syncer
}

func newSyncEnv(t *testing.T) *syncEnv {
	t.Helper()
	dir, store := testutil.TestVault(t)
	e := testEngine(t)
	l := testutil.TestLedger(t).Vault(store.Root())
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return &syncEnv{dir: dir, engine: e, ledger: l, syncer: NewSyncer(e, store, l, logger)}
}

func (env *syncEnv) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(env.dir, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSync_IndexesAndRewrites(t *testing.T) {
	env := newSyncEnv(t)
	testutil.WriteFile(t, env.dir, "a.md", testutil.PostText("uuid-a", "Alpha", lang.En, "alpha body\n"))
	testutil.WriteFile(t, env.dir, "sub/b.md", testutil.PostText("uuid-b", "Beta", lang.Ja, "beta body\n"))

	stats, err := env.syncer.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Inserted != 2 {
		t.Errorf("inserted = %d, want 2", stats.Inserted)
	}
	if n, _ := env.engine.Count(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	text := env.read(t, "a.md")
	if !strings.Contains(text, "created_at:") || !strings.Contains(text, "updated_at:") {
		t.Errorf("file not rewritten with dates:\n%s", text)
	}
	if !strings.HasSuffix(text, "---\nalpha body\n") {
		t.Errorf("body not preserved:\n%s", text)
	}

	e, err := env.ledger.Get("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if e.UUID != "uuid-a" {
		t.Errorf("ledger uuid = %q", e.UUID)
	}

	stats, err = env.syncer.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Unchanged != 2 || stats.Inserted != 0 || stats.Updated != 0 {
		t.Errorf("second sync = %+v, want 2 unchanged", stats)
	}
}

func TestSync_SkipsBadFiles(t *testing.T) {
	env := newSyncEnv(t)
	testutil.WriteFile(t, env.dir, "good.md", testutil.PostText("uuid-good", "Good", lang.En, "ok\n"))
	testutil.WriteFile(t, env.dir, "bad.md", "no front matter here\n")
	testutil.WriteFile(t, env.dir, "partial.md", "---\nuuid: x\n---\nmissing fields\n")

	stats, err := env.syncer.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 2 || stats.Inserted != 1 {
		t.Errorf("stats = %+v, want 2 failed 1 inserted", stats)
	}
}

func TestSync_UpdatesChangedFile(t *testing.T) {
	env := newSyncEnv(t)
	dated := "---\nuuid: uuid-a\ntitle: Alpha\ndescription: d\nlang: en\ncategory: c\n" +
		"created_at: \"2022-01-11T19:08:09+00:00\"\nupdated_at: \"2022-01-11T19:08:09+00:00\"\n---\nfirst\n"
	testutil.WriteFile(t, env.dir, "a.md", dated)
	if _, err := env.syncer.Sync(); err != nil {
		t.Fatal(err)
	}
	if got := env.read(t, "a.md"); got != dated {
		t.Errorf("inserted file with dates should be unchanged:\n%s", got)
	}

	testutil.WriteFile(t, env.dir, "a.md", strings.Replace(dated, "first", "second", 1))
	stats, err := env.syncer.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 1 {
		t.Errorf("stats = %+v, want 1 updated", stats)
	}
	text := env.read(t, "a.md")
	if !strings.Contains(text, `created_at: "2022-01-11T19:08:09+00:00"`) {
		t.Errorf("created_at changed:\n%s", text)
	}
	if strings.Contains(text, `updated_at: "2022-01-11T19:08:09+00:00"`) {
		t.Errorf("updated_at not bumped:\n%s", text)
	}
}

func TestSync_Prunes(t *testing.T) {
	env := newSyncEnv(t)
	testutil.WriteFile(t, env.dir, "a.md", testutil.PostText("uuid-a", "Alpha", lang.En, "a\n"))
	testutil.WriteFile(t, env.dir, "b.md", testutil.PostText("uuid-b", "Beta", lang.En, "b\n"))
	if _, err := env.syncer.Sync(); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(env.dir, "a.md")); err != nil {
		t.Fatal(err)
	}
	stats, err := env.syncer.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pruned != 1 {
		t.Errorf("pruned = %d, want 1", stats.Pruned)
	}
	if _, err := env.engine.LookupByUUID("uuid-a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("pruned post still indexed: %v", err)
	}
	if _, err := env.ledger.Get("a.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("pruned path still in ledger: %v", err)
	}
}

func TestSync_SeparateVaultsShareIndex(t *testing.T) {
	e := testEngine(t)
	db := testutil.TestLedger(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	dirA, storeA := testutil.TestVault(t)
	dirB, storeB := testutil.TestVault(t)
	testutil.WriteFile(t, dirA, "x.md", testutil.PostText("u-a", "A", lang.En, "from a\n"))
	testutil.WriteFile(t, dirB, "x.md", testutil.PostText("u-b", "B", lang.En, "from b\n"))

	syncA := NewSyncer(e, storeA, db.Vault(storeA.Root()), logger)
	syncB := NewSyncer(e, storeB, db.Vault(storeB.Root()), logger)

	if _, err := syncA.Sync(); err != nil {
		t.Fatal(err)
	}
	stats, err := syncB.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pruned != 0 || stats.Inserted != 1 {
		t.Errorf("second vault stats = %+v", stats)
	}
	if n, _ := e.Count(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if _, err := e.LookupByUUID("u-a"); err != nil {
		t.Errorf("first vault's post lost: %v", err)
	}

	// A file removed from one vault is still pruned from the index.
	if err := os.Remove(filepath.Join(dirA, "x.md")); err != nil {
		t.Fatal(err)
	}
	stats, err = syncA.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pruned != 1 {
		t.Errorf("pruned = %d, want 1", stats.Pruned)
	}
	if _, err := e.LookupByUUID("u-b"); err != nil {
		t.Errorf("other vault's post lost: %v", err)
	}
}

func TestSync_UUIDChangeReleasesOldPost(t *testing.T) {
	env := newSyncEnv(t)
	testutil.WriteFile(t, env.dir, "a.md", testutil.PostText("uuid-old", "Alpha", lang.En, "a\n"))
	if _, err := env.syncer.Sync(); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, env.dir, "a.md", testutil.PostText("uuid-new", "Alpha", lang.En, "a\n"))
	if _, err := env.syncer.Sync(); err != nil {
		t.Fatal(err)
	}
	if _, err := env.engine.LookupByUUID("uuid-old"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old uuid still indexed: %v", err)
	}
	if n, _ := env.engine.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestSync_ReindexesMissingDocument(t *testing.T) {
	env := newSyncEnv(t)
	testutil.WriteFile(t, env.dir, "a.md", testutil.PostText("uuid-a", "Alpha", lang.En, "a\n"))
	if _, err := env.syncer.Sync(); err != nil {
		t.Fatal(err)
	}
	if err := env.engine.Delete("uuid-a"); err != nil {
		t.Fatal(err)
	}
	stats, err := env.syncer.Sync()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Inserted != 1 {
		t.Errorf("stats = %+v, want 1 inserted", stats)
	}
}

func TestNormalize(t *testing.T) {
	env := newSyncEnv(t)
	text := "---\nuuid: uuid-a\ntitle: Alpha\ndescription: d\nlang: en\ncategory: c\n" +
		"created_at: \"2022-01-11T19:08:09+00:00\"\nupdated_at: \"2022-01-11T19:08:09+00:00\"\n---\n" +
		"# Title\n<!-- draft note -->\nkept\n"
	testutil.WriteFile(t, env.dir, "a.md", text)
	if _, err := env.syncer.Sync(); err != nil {
		t.Fatal(err)
	}

	stats, err := env.syncer.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Updated != 1 {
		t.Errorf("stats = %+v, want 1 updated", stats)
	}
	got := env.read(t, "a.md")
	if strings.Contains(got, "<!--") {
		t.Errorf("comment not removed:\n%s", got)
	}
	if !strings.HasSuffix(got, "---\n# Title\nkept\n") {
		t.Errorf("body = %q", got)
	}
	if !strings.Contains(got, `updated_at: "2022-01-11T19:08:09+00:00"`) {
		t.Errorf("updated_at bumped by normalize:\n%s", got)
	}

	stats, err = env.syncer.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 1 {
		t.Errorf("second normalize = %+v, want 1 skipped", stats)
	}
}

func TestDump(t *testing.T) {
	env := newSyncEnv(t)
	testutil.WriteFile(t, env.dir, "x/hello.md", testutil.PostText("uuid-a", "Alpha", lang.En, "hi\n"))
	testutil.WriteFile(t, env.dir, "y/hello.md", testutil.PostText("uuid-b", "Beta", lang.Ja, "yo\n"))
	if _, err := env.syncer.Sync(); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "dump")
	n, err := env.engine.Dump(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("dumped %d, want 2", n)
	}
	for _, rel := range []string{"en/hello.md", "ja/hello.md"} {
		data, err := os.ReadFile(filepath.Join(out, rel))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		if !strings.HasPrefix(string(data), "---\nuuid: ") {
			t.Errorf("%s = %q", rel, data)
		}
	}
	en, _ := os.ReadFile(filepath.Join(out, "en/hello.md"))
	if want := env.read(t, "x/hello.md"); string(en) != want {
		t.Errorf("dump differs from source:\n%s\nwant:\n%s", en, want)
	}
}
