package parser

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/dendrite-md/dendrite/internal/note"
)

func parse(t *testing.T, src string) *Result {
	t.Helper()
	return New([]string{".md"}).Parse("test.md", []byte(src))
}

func TestDigest(t *testing.T) {
	t.Parallel()
	src := "---\ntitle: x\n---\nbody [[link]]\n"
	res := parse(t, src)
	if res.Digest != sha256.Sum256([]byte(src)) {
		t.Error("digest must cover the unmodified file bytes")
	}
}

func TestFrontmatter(t *testing.T) {
	t.Parallel()

	res := parse(t, "---\ntitle: Hello\ntags: [a, b]\n---\nbody\n")
	if got := res.Frontmatter["title"]; got != "Hello" {
		t.Errorf("title = %v", got)
	}
	if res.BodyStart != len("---\ntitle: Hello\ntags: [a, b]\n---\n") {
		t.Errorf("BodyStart = %d", res.BodyStart)
	}
	if len(res.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
	}
}

func TestFrontmatterInvalidYAML(t *testing.T) {
	t.Parallel()
	res := parse(t, "---\n{not yaml\n---\nbody\n")
	if len(res.Frontmatter) != 0 {
		t.Errorf("invalid frontmatter should yield empty map, got %v", res.Frontmatter)
	}
	if len(res.Diagnostics) == 0 {
		t.Error("invalid frontmatter should attach a diagnostic")
	}
	if res.BodyStart == 0 {
		t.Error("body offset should still skip the fenced region")
	}
}

func TestFrontmatterUnclosed(t *testing.T) {
	t.Parallel()
	res := parse(t, "---\ntitle: x\nno close\n")
	if res.BodyStart != 0 {
		t.Errorf("unclosed fence: BodyStart = %d, want 0", res.BodyStart)
	}
	if len(res.Diagnostics) == 0 {
		t.Error("unclosed fence should attach a diagnostic")
	}
}

func TestNoFrontmatter(t *testing.T) {
	t.Parallel()
	res := parse(t, "# Just a note\n")
	if res.BodyStart != 0 || len(res.Frontmatter) != 0 {
		t.Errorf("BodyStart = %d, fm = %v", res.BodyStart, res.Frontmatter)
	}
}

func TestWikilinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src    string
		target string
		alias  string
		anchor *note.Anchor
	}{
		{"see [[a.b]]", "a.b", "", nil},
		{"see [[a.b|other]]", "a.b", "other", nil},
		{"see [[a.b#intro]]", "a.b", "", &note.Anchor{Kind: note.AnchorHeading, Value: "intro"}},
		{"see [[a.b#^quote|q]]", "a.b", "q", &note.Anchor{Kind: note.AnchorBlock, Value: "quote"}},
		{"see [[#intro]]", "", "", &note.Anchor{Kind: note.AnchorHeading, Value: "intro"}},
	}
	for _, tt := range tests {
		res := parse(t, tt.src)
		if len(res.Links) != 1 {
			t.Errorf("%q: got %d links", tt.src, len(res.Links))
			continue
		}
		l := res.Links[0]
		if l.Kind != note.KindWiki || l.Target != tt.target || l.Alias != tt.alias {
			t.Errorf("%q: link = %+v", tt.src, l)
		}
		switch {
		case tt.anchor == nil && l.Anchor != nil:
			t.Errorf("%q: unexpected anchor %+v", tt.src, l.Anchor)
		case tt.anchor != nil && (l.Anchor == nil || *l.Anchor != *tt.anchor):
			t.Errorf("%q: anchor = %+v, want %+v", tt.src, l.Anchor, tt.anchor)
		}
	}
}

func TestWikilinkSpanCoversBrackets(t *testing.T) {
	t.Parallel()
	src := "pad [[a.b|x]] tail"
	res := parse(t, src)
	if len(res.Links) != 1 {
		t.Fatalf("got %d links", len(res.Links))
	}
	span := res.Links[0].Span
	if got := src[span.Start:span.End]; got != "[[a.b|x]]" {
		t.Errorf("span text = %q", got)
	}
}

func TestWikilinkSpanWithFrontmatter(t *testing.T) {
	t.Parallel()
	src := "---\ntitle: t\n---\nsee [[x]]\n"
	res := parse(t, src)
	if len(res.Links) != 1 {
		t.Fatalf("got %d links", len(res.Links))
	}
	span := res.Links[0].Span
	if got := src[span.Start:span.End]; got != "[[x]]" {
		t.Errorf("span must be file-absolute, got %q", got)
	}
}

func TestEscapedBracketIsNotALink(t *testing.T) {
	t.Parallel()
	res := parse(t, `not a link \[[a.b]]`)
	if len(res.Links) != 0 {
		t.Errorf("escaped bracket parsed as link: %+v", res.Links)
	}
}

func TestLinksInsideCodeIgnored(t *testing.T) {
	t.Parallel()
	src := "```\n[[in.fence]]\n```\n\ninline `[[in.span]]` done\n\n[[real]]\n"
	res := parse(t, src)
	if len(res.Links) != 1 || res.Links[0].Target != "real" {
		t.Errorf("links = %+v, want only [[real]]", res.Links)
	}
}

func TestMarkdownLinks(t *testing.T) {
	t.Parallel()

	src := "[one](a.b.md) [ext](https://x.y/z.md) [abs](/a.md) [frag](#intro) [img]: ![i](p.md)\n"
	res := parse(t, src)

	var mds []note.LinkRef
	for _, l := range res.Links {
		if l.Kind == note.KindMarkdown {
			mds = append(mds, l)
		}
	}
	if len(mds) != 2 {
		t.Fatalf("got %d markdown links (%+v), want 2", len(mds), mds)
	}
	if mds[0].Target != "a.b.md" || mds[0].Alias != "one" {
		t.Errorf("first = %+v", mds[0])
	}
	if mds[1].Target != "" || mds[1].Anchor == nil || mds[1].Anchor.Value != "intro" {
		t.Errorf("fragment link = %+v", mds[1])
	}
}

func TestMarkdownLinkWithFragment(t *testing.T) {
	t.Parallel()
	res := parse(t, "[x](notes/a.md#sec-2)\n")
	if len(res.Links) != 1 {
		t.Fatalf("links = %+v", res.Links)
	}
	l := res.Links[0]
	if l.Target != "notes/a.md" || l.Anchor == nil || l.Anchor.Value != "sec-2" {
		t.Errorf("link = %+v anchor = %+v", l, l.Anchor)
	}
}

func TestHeadings(t *testing.T) {
	t.Parallel()
	src := "# Top\nalpha\n## Sub One\nbeta\n## Sub Two\ngamma\n# Next\nend\n"
	res := parse(t, src)

	if len(res.Headings) != 4 {
		t.Fatalf("got %d headings", len(res.Headings))
	}

	top := res.Headings[0]
	if top.Level != 1 || top.Text != "Top" || top.Slug != "top" {
		t.Errorf("top = %+v", top)
	}
	// Top's section runs to the next level-1 heading.
	if got := src[top.Span.Start:top.Span.End]; !strings.HasPrefix(got, "# Top") || strings.Contains(got, "# Next") {
		t.Errorf("top span = %q", got)
	}

	subOne := res.Headings[1]
	if got := src[subOne.Span.Start:subOne.Span.End]; got != "## Sub One\nbeta\n" {
		t.Errorf("sub one span = %q", got)
	}
}

func TestSlugCollisions(t *testing.T) {
	t.Parallel()
	res := parse(t, "# Setup\n## Setup\n### Setup\n")
	slugs := []string{res.Headings[0].Slug, res.Headings[1].Slug, res.Headings[2].Slug}
	want := []string{"setup", "setup-2", "setup-3"}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("slug[%d] = %q, want %q", i, slugs[i], want[i])
		}
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"Hello World", "hello-world"},
		{"  Spaces  Around ", "spaces-around"},
		{"C++ & Go!", "c-go"},
		{"Version 2.0", "version-2-0"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBlockAnchors(t *testing.T) {
	t.Parallel()
	src := "para one line a\npara one line b ^block1\n\nother text\n"
	res := parse(t, src)

	if len(res.Blocks) != 1 {
		t.Fatalf("blocks = %+v", res.Blocks)
	}
	b := res.Blocks[0]
	if b.ID != "block1" {
		t.Errorf("id = %q", b.ID)
	}
	if got := src[b.Span.Start:b.Span.End]; got != "para one line a\npara one line b ^block1\n" {
		t.Errorf("block span = %q", got)
	}
}

func TestDuplicateBlockAnchor(t *testing.T) {
	t.Parallel()
	src := "first ^dup\n\nsecond ^dup\n"
	res := parse(t, src)
	if len(res.Blocks) != 1 {
		t.Fatalf("blocks = %+v", res.Blocks)
	}
	if got := src[res.Blocks[0].Span.Start:res.Blocks[0].Span.End]; got != "first ^dup\n" {
		t.Errorf("first occurrence should win, span = %q", got)
	}
	if len(res.Diagnostics) == 0 {
		t.Error("duplicate block anchor should produce a warning")
	}
}

func TestLinksReportedInSourceOrder(t *testing.T) {
	t.Parallel()
	res := parse(t, "[md](a.md) then [[wiki]] then [md2](b.md)\n")
	if len(res.Links) != 3 {
		t.Fatalf("links = %+v", res.Links)
	}
	for i := 1; i < len(res.Links); i++ {
		if res.Links[i].Span.Start < res.Links[i-1].Span.Start {
			t.Fatal("links must be ordered by source position")
		}
	}
	if res.Links[1].Kind != note.KindWiki {
		t.Errorf("middle link should be the wikilink, got %+v", res.Links[1])
	}
}
