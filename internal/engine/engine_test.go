package engine

import (
	"context"
	"testing"
	"time"

	"github.com/dendrite-md/dendrite/internal/cachefile"
	"github.com/dendrite-md/dendrite/internal/config"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/refactor"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

func newEngine(t *testing.T, files map[string]string) (*Engine, *vfs.Memory) {
	t.Helper()
	fs := vfs.NewMemoryFrom(files)
	opts := config.DefaultOptions()
	opts.CacheSaveInterval = 20 * time.Millisecond
	eng, err := New(fs, config.Default(), opts)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(eng.Shutdown)
	return eng, fs
}

func TestStartIndexesVault(t *testing.T) {
	t.Parallel()
	eng, _ := newEngine(t, map[string]string{
		"a.md": "hello [[b]]\n",
		"b.md": "# B\n",
	})

	notes := eng.ListNotes()
	if len(notes) != 2 {
		t.Fatalf("notes = %+v", notes)
	}
	if notes[0].Key != "a" || notes[1].Key != "b" {
		t.Errorf("keys = %+v", notes)
	}
	if notes[1].Title != "B" {
		t.Errorf("display name should use the heading, got %q", notes[1].Title)
	}
}

func TestGetNoteKeyAndBacklinks(t *testing.T) {
	t.Parallel()
	eng, _ := newEngine(t, map[string]string{
		"a.md": "[[b]]\n",
		"b.md": "",
	})

	key, err := eng.GetNoteKey("b.md")
	if err != nil || key != "b" {
		t.Fatalf("key = %q, %v", key, err)
	}
	refs, err := eng.GetBacklinks("b")
	if err != nil || len(refs) != 1 || refs[0].Key != "a" {
		t.Fatalf("backlinks = %+v, %v", refs, err)
	}
}

func TestGetHierarchyGhosts(t *testing.T) {
	t.Parallel()
	eng, _ := newEngine(t, map[string]string{"a.b.c.md": ""})

	tree := eng.GetHierarchy()
	if len(tree.Roots) != 1 || tree.Roots[0].Key != "a" || !tree.Roots[0].Ghost {
		t.Fatalf("roots = %+v", tree.Roots)
	}
}

func TestWatcherUpdatesStore(t *testing.T) {
	t.Parallel()
	eng, fs := newEngine(t, map[string]string{"a.md": ""})

	if err := fs.WriteFile("b.md", []byte("fresh [[a]]\n")); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		if _, err := eng.GetNoteKey("b.md"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("watcher never indexed the new file")
		case <-time.After(10 * time.Millisecond):
		}
	}

	refs, err := eng.GetBacklinks("a")
	if err != nil || len(refs) != 1 {
		t.Fatalf("backlinks = %+v, %v", refs, err)
	}
}

func TestHierarchyChangedNotification(t *testing.T) {
	t.Parallel()
	eng, fs := newEngine(t, map[string]string{"a.md": ""})
	ch := eng.SubscribeHierarchy()

	if err := fs.WriteFile("b.md", []byte("x\n")); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("no hierarchyChanged pulse after a new note")
	}
}

func TestOverlayPriority(t *testing.T) {
	t.Parallel()
	eng, _ := newEngine(t, map[string]string{
		"a.md": "disk [[one]]\n",
		"one.md": "", "two.md": "",
	})

	// The open buffer replaces the disk link.
	eng.OpenDocument("a.md", []byte("buffer [[two]]\n"))

	refs, err := eng.GetBacklinks("two")
	if err != nil || len(refs) != 1 {
		t.Fatalf("backlinks of two = %+v, %v", refs, err)
	}
	if refs, _ := eng.GetBacklinks("one"); len(refs) != 0 {
		t.Errorf("disk content should be shadowed, backlinks = %+v", refs)
	}

	// Closing falls back to disk.
	eng.CloseDocument("a.md")
	if refs, _ := eng.GetBacklinks("one"); len(refs) != 1 {
		t.Errorf("after close, disk should win again, backlinks = %+v", refs)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	t.Parallel()
	files := map[string]string{"a.md": "link [[b]]\n", "b.md": "x\n"}
	fs := vfs.NewMemoryFrom(files)
	opts := config.DefaultOptions()
	opts.CacheSaveInterval = 10 * time.Millisecond

	eng, err := New(fs, config.Default(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	var ids []note.ID
	for _, n := range eng.Store().All() {
		ids = append(ids, n.ID)
	}
	eng.Shutdown() // flushes the snapshot

	if _, err := fs.Read(cachefile.SnapshotPath); err != nil {
		t.Fatal("shutdown should leave a snapshot behind")
	}

	// A second engine over the same backend keeps the identities.
	eng2, err := New(fs, config.Default(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng2.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer eng2.Shutdown()

	var ids2 []note.ID
	for _, n := range eng2.Store().All() {
		ids2 = append(ids2, n.ID)
	}
	if len(ids) != len(ids2) {
		t.Fatalf("note counts differ: %d vs %d", len(ids), len(ids2))
	}
	for i := range ids {
		if ids[i] != ids2[i] {
			t.Errorf("id %d changed across restart", i)
		}
	}
}

func TestWorkspaceAuditCommand(t *testing.T) {
	t.Parallel()
	eng, _ := newEngine(t, map[string]string{"a.md": "[[gone]]\n"})
	diags, err := eng.WorkspaceAudit(context.Background())
	if err != nil || len(diags) != 1 {
		t.Fatalf("diags = %+v, %v", diags, err)
	}
}

func TestRenameCommandAndUndo(t *testing.T) {
	t.Parallel()
	eng, fs := newEngine(t, map[string]string{"a.md": "[[b]]", "b.md": "body"})

	plan, err := eng.RenameNote("b", "b2")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := refactor.Apply(plan, fs); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := eng.Indexer().FullScan(context.Background()); err != nil {
		t.Fatal(err)
	}

	inv, err := eng.UndoMutation()
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if err := refactor.Apply(inv, fs); err != nil {
		t.Fatalf("apply undo: %v", err)
	}
	data, _ := fs.Read("a.md")
	if string(data) != "[[b]]" {
		t.Errorf("a.md = %q", data)
	}
}
