package assemble

import (
	"errors"
	"testing"
	"time"

	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/parser"
)

func build(t *testing.T, path, src string) *parser.Result {
	t.Helper()
	return parser.New([]string{".md"}).Parse(path, []byte(src))
}

func TestTitlePrecedence(t *testing.T) {
	t.Parallel()
	m := model.Default()
	now := time.Now()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"frontmatter wins", "---\ntitle: FM Title\n---\n# Heading\n", "FM Title"},
		{"first h1 fallback", "## Sub\n# The One\n", "The One"},
		{"no title", "plain text\n", ""},
	}
	for _, tt := range tests {
		res := build(t, "a.md", tt.src)
		n, err := Note("a.md", res, m, now, int64(len(tt.src)))
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if n.Title != tt.want {
			t.Errorf("%s: title = %q, want %q", tt.name, n.Title, tt.want)
		}
	}
}

func TestFieldsForwarded(t *testing.T) {
	t.Parallel()
	m := model.Default()
	now := time.Now()
	src := "# H\n[[link]]\nfact ^b1\n"

	res := build(t, "x.y.md", src)
	n, err := Note("x.y.md", res, m, now, int64(len(src)))
	if err != nil {
		t.Fatal(err)
	}
	if n.Key != "x.y" || n.Path != "x.y.md" {
		t.Errorf("identity = %q %q", n.Key, n.Path)
	}
	if n.Digest != res.Digest {
		t.Error("digest must forward verbatim")
	}
	if len(n.Headings) != 1 || len(n.Links) != 1 || len(n.Blocks) != 1 {
		t.Errorf("structure = %d/%d/%d", len(n.Headings), len(n.Links), len(n.Blocks))
	}
	if !n.MTime.Equal(now) || n.Size != int64(len(src)) {
		t.Error("metadata mismatch")
	}
}

func TestModelRejection(t *testing.T) {
	t.Parallel()
	m := model.Default()
	res := build(t, "not-a-note.txt", "x")
	if _, err := Note("not-a-note.txt", res, m, time.Now(), 1); !errors.Is(err, model.ErrNotANote) {
		t.Errorf("error = %v, want ErrNotANote", err)
	}
}
