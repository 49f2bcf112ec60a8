package query

import (
	"context"
	"strings"
	"testing"

	"github.com/dendrite-md/dendrite/internal/index"
	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/store"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

func newVault(t *testing.T, files map[string]string) (*vfs.Memory, *store.Store, *Queries) {
	t.Helper()
	m := model.Default()
	fs := vfs.NewMemoryFrom(files)
	st := store.New(m)
	ix := index.New(fs, vfs.Filter{Extensions: m.Extensions()}, st, m, index.Config{})
	if _, err := ix.FullScan(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return fs, st, New(st, m, fs)
}

func mustNote(t *testing.T, st *store.Store, path string) *note.Note {
	t.Helper()
	n, ok := st.NoteByPath(path)
	if !ok {
		t.Fatalf("missing note %s", path)
	}
	return n
}

func TestResolve(t *testing.T) {
	t.Parallel()
	_, st, q := newVault(t, map[string]string{
		"a.md": "[[b#intro]] [[gone]]\n",
		"b.md": "# Intro\n",
	})
	a := mustNote(t, st, "a.md")
	b := mustNote(t, st, "b.md")

	target, anchor, ok := q.Resolve(a.ID, 0)
	if !ok || target != b.ID {
		t.Fatalf("resolve = %v, %v", target, ok)
	}
	if anchor == nil || anchor.Value != "intro" {
		t.Errorf("anchor = %+v", anchor)
	}

	if _, _, ok := q.Resolve(a.ID, 1); ok {
		t.Error("broken link must not resolve")
	}
	if _, _, ok := q.Resolve(a.ID, 99); ok {
		t.Error("bad index must not resolve")
	}
}

func TestBacklinks(t *testing.T) {
	t.Parallel()
	_, st, q := newVault(t, map[string]string{
		"z.md": "[[target]]\n",
		"a.md": "first [[target]] second [[target]]\n",
		"target.md": "",
	})
	target := mustNote(t, st, "target.md")

	refs := q.Backlinks(target.ID)
	if len(refs) != 3 {
		t.Fatalf("backlinks = %+v", refs)
	}
	// Ordered by source key, then link index.
	if refs[0].Key != "a" || refs[0].Index != 0 ||
		refs[1].Key != "a" || refs[1].Index != 1 ||
		refs[2].Key != "z" {
		t.Errorf("order = %+v", refs)
	}
}

func TestDefinition(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"a.md": "go to [[b#setup]] now\n",
		"b.md": "# Intro\ntext\n# Setup\nsteps\n",
	}
	_, _, q := newVault(t, files)

	offset := strings.Index(files["a.md"], "[[b")
	loc, ok := q.Definition("a.md", offset+2)
	if !ok {
		t.Fatal("definition not found")
	}
	if loc.Path != "b.md" {
		t.Errorf("path = %q", loc.Path)
	}
	if got := files["b.md"][loc.Span.Start:loc.Span.End]; !strings.HasPrefix(got, "# Setup") {
		t.Errorf("span = %q, want the Setup section", got)
	}

	// Outside any link.
	if _, ok := q.Definition("a.md", 0); ok {
		t.Error("no link at offset 0")
	}
}

func TestDefinitionTargetsSecondDuplicateSlug(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"a.md": "[[b#setup-2]]\n",
		"b.md": "# Setup\nfirst\n# Setup\nsecond\n",
	}
	_, _, q := newVault(t, files)

	loc, ok := q.Definition("a.md", 2)
	if !ok {
		t.Fatal("definition not found")
	}
	got := files["b.md"][loc.Span.Start:loc.Span.End]
	if !strings.Contains(got, "second") || strings.Contains(got, "first") {
		t.Errorf("#setup-2 should land on the second heading, got %q", got)
	}
}

func TestCompletionsKeys(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"proj.one.md": "",
		"proj.two.md": "",
		"other.md":    "",
		"draft.md":    "link to [[proj.",
	}
	_, _, q := newVault(t, files)

	items := q.Completions("draft.md", len(files["draft.md"]))
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Label != "proj.one" || items[1].Label != "proj.two" {
		t.Errorf("labels = %+v", items)
	}
}

func TestCompletionsHeadings(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"b.md":     "# Alpha\n## Beta Section\n",
		"draft.md": "see [[b#",
	}
	_, _, q := newVault(t, files)

	items := q.Completions("draft.md", len(files["draft.md"]))
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Label != "alpha" || items[1].Label != "beta-section" {
		t.Errorf("labels = %+v", items)
	}
	if items[0].Kind != ItemHeading {
		t.Errorf("kind = %v", items[0].Kind)
	}
}

func TestCompletionsBlocks(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"b.md":     "fact one ^f1\n\nfact two ^f2\n",
		"draft.md": "see [[b#^",
	}
	_, _, q := newVault(t, files)

	items := q.Completions("draft.md", len(files["draft.md"]))
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Label != "^f1" || items[1].Label != "^f2" {
		t.Errorf("labels = %+v", items)
	}
}

func TestCompletionsRespectOverlay(t *testing.T) {
	t.Parallel()
	fs, st, _ := newVault(t, map[string]string{
		"b.md":     "",
		"draft.md": "no link here\n",
	})

	// The editor buffer has an unclosed wikilink the disk copy lacks.
	overlay := vfs.NewOverlay(fs)
	overlay.Open("draft.md", []byte("typing [[b"))
	q := New(st, model.Default(), overlay)

	items := q.Completions("draft.md", len("typing [[b"))
	if len(items) != 1 || items[0].Label != "b" {
		t.Errorf("items = %+v", items)
	}
}

func TestCompletionsOutsideWikilink(t *testing.T) {
	t.Parallel()
	files := map[string]string{"draft.md": "plain text\n", "b.md": ""}
	_, _, q := newVault(t, files)
	if items := q.Completions("draft.md", 5); items != nil {
		t.Errorf("no wikilink context, items = %+v", items)
	}
}
