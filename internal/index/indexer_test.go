package index

import (
	"bytes"
	"context"
	"testing"

	"github.com/dendrite-md/dendrite/internal/cachefile"
	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/store"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

func newVault(t *testing.T, files map[string]string) (*vfs.Memory, *store.Store, *Indexer) {
	t.Helper()
	m := model.Default()
	fs := vfs.NewMemoryFrom(files)
	st := store.New(m)
	ix := New(fs, vfs.Filter{Extensions: m.Extensions()}, st, m, Config{})
	return fs, st, ix
}

func TestFullScan(t *testing.T) {
	t.Parallel()
	_, st, ix := newVault(t, map[string]string{
		"a.md":     "hello [[b]]\n",
		"b.md":     "# B\n",
		"notes.md": "",
		"skip.txt": "not markdown",
	})

	stats, err := ix.FullScan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if stats.Scanned != 3 || stats.Parsed != 3 {
		t.Errorf("stats = %+v", stats)
	}
	if st.Len() != 3 {
		t.Errorf("store has %d notes", st.Len())
	}

	a, _ := st.NoteByPath("a.md")
	b, _ := st.NoteByPath("b.md")
	if st.Edges(a.ID)[0].Target != b.ID {
		t.Error("link graph not wired during scan")
	}
}

func TestSecondScanUsesMetadataTier(t *testing.T) {
	t.Parallel()
	_, _, ix := newVault(t, map[string]string{"a.md": "one\n", "b.md": "two\n"})

	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}
	stats, err := ix.FullScan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Skipped != 2 || stats.Parsed != 0 {
		t.Errorf("unchanged vault should settle on metadata: %+v", stats)
	}
	if stats.Bytes != 0 {
		t.Errorf("metadata tier must not read file bytes, read %d", stats.Bytes)
	}
}

// Idempotent indexing: two scans of an unchanged vault produce
// byte-identical store snapshots.
func TestIdempotentIndexing(t *testing.T) {
	t.Parallel()
	_, st, ix := newVault(t, map[string]string{
		"a.md": "---\ntitle: A\ntags: [x]\n---\n[[b]] text\n",
		"b.md": "# B\nbody ^blk\n",
	})

	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap1, err := cachefile.Encode(st.All())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap2, err := cachefile.Encode(st.All())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(snap1, snap2) {
		t.Error("re-indexing an unchanged vault must not change the store")
	}
}

func TestDigestTierSkipsParse(t *testing.T) {
	t.Parallel()
	fs, st, ix := newVault(t, map[string]string{"a.md": "same bytes\n"})

	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, _ := st.NoteByPath("a.md")
	version := st.Version()

	// Touch the file with identical content: mtime moves, bytes do not.
	if err := fs.WriteFile("a.md", []byte("same bytes\n")); err != nil {
		t.Fatal(err)
	}

	if out := ix.IndexPath("a.md"); out != OutcomeTouched {
		t.Fatalf("outcome = %v, want OutcomeTouched", out)
	}
	after, _ := st.NoteByPath("a.md")
	if after.ID != before.ID {
		t.Error("identity must survive a metadata-only change")
	}
	if st.Version() != version {
		t.Error("digest tier must not mutate the graph")
	}
}

func TestModifyEvent(t *testing.T) {
	t.Parallel()
	fs, st, ix := newVault(t, map[string]string{"a.md": "old [[x]]\n"})
	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := fs.WriteFile("a.md", []byte("new [[y]]\n")); err != nil {
		t.Fatal(err)
	}
	ix.Apply(vfs.Event{Kind: vfs.Modified, Path: "a.md"})

	a, _ := st.NoteByPath("a.md")
	if len(a.Links) != 1 || a.Links[0].Target != "y" {
		t.Errorf("links = %+v", a.Links)
	}
}

func TestDeleteEvent(t *testing.T) {
	t.Parallel()
	fs, st, ix := newVault(t, map[string]string{"a.md": "x\n", "b.md": "[[a]]\n"})
	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := fs.Remove("a.md"); err != nil {
		t.Fatal(err)
	}
	ix.Apply(vfs.Event{Kind: vfs.Deleted, Path: "a.md"})

	if _, ok := st.NoteByPath("a.md"); ok {
		t.Error("note should be removed")
	}
	b, _ := st.NoteByPath("b.md")
	if !st.Edges(b.ID)[0].Target.IsZero() {
		t.Error("incoming link should demote")
	}
}

func TestRenamePreservesIdentity(t *testing.T) {
	t.Parallel()
	fs, st, ix := newVault(t, map[string]string{"old.md": "stable content\n"})
	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, _ := st.NoteByPath("old.md")

	// The watcher sees a rename as Renamed(old) + Created(new).
	if err := fs.Rename("old.md", "new.md"); err != nil {
		t.Fatal(err)
	}
	ix.Apply(vfs.Event{Kind: vfs.Renamed, Path: "old.md"})
	ix.Apply(vfs.Event{Kind: vfs.Created, Path: "new.md"})

	after, ok := st.NoteByPath("new.md")
	if !ok {
		t.Fatal("renamed note missing")
	}
	if after.ID != before.ID {
		t.Errorf("id changed: %s -> %s", before.ID, after.ID)
	}
	if after.Key != "new" {
		t.Errorf("key = %q", after.Key)
	}
}

func TestModelRejectedPathIsIgnored(t *testing.T) {
	t.Parallel()
	// "a..b.md" passes the extension filter but derives an empty key
	// segment, which the dot model rejects.
	_, st, ix := newVault(t, map[string]string{"a.md": "fine\n", "a..b.md": "odd\n"})
	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st.Len() != 1 {
		t.Errorf("store has %d notes, want 1", st.Len())
	}
	if out := ix.IndexPath("a..b.md"); out != OutcomeIgnored {
		t.Errorf("rejected path should stay ignored, outcome = %v", out)
	}
}

func TestVanishedFileIsRemoved(t *testing.T) {
	t.Parallel()
	fs, st, ix := newVault(t, map[string]string{"a.md": "v1\n"})
	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A modify event for a file that disappeared mid-flight removes it.
	if err := fs.Remove("a.md"); err != nil {
		t.Fatal(err)
	}
	ix.Apply(vfs.Event{Kind: vfs.Modified, Path: "a.md"})
	if _, ok := st.NoteByPath("a.md"); ok {
		t.Error("vanished file should be treated as deleted")
	}
}

func TestCoalesce(t *testing.T) {
	t.Parallel()
	events := []vfs.Event{
		{Kind: vfs.Created, Path: "a.md"},
		{Kind: vfs.Modified, Path: "b.md"},
		{Kind: vfs.Modified, Path: "a.md"},
		{Kind: vfs.Deleted, Path: "a.md"},
	}
	out := coalesce(events)
	if len(out) != 2 {
		t.Fatalf("coalesced = %+v", out)
	}
	if out[0].Path != "a.md" || out[0].Kind != vfs.Deleted {
		t.Errorf("a.md should collapse to its latest kind, got %+v", out[0])
	}
	if out[1].Path != "b.md" {
		t.Errorf("order should follow first arrival, got %+v", out[1])
	}
}

func TestCancellation(t *testing.T) {
	t.Parallel()
	_, _, ix := newVault(t, map[string]string{"a.md": "x\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ix.FullScan(ctx); err == nil {
		t.Error("cancelled scan should report the context error")
	}
}
