package model

import (
	"fmt"
	"path"
	"strings"

	"github.com/dendrite-md/dendrite/internal/note"
)

// DotModel is the dot-hierarchy reference model: a.b.c.md holds key
// a.b.c, whose parent is a.b. Files in subdirectories map their
// directory components into key segments (proj/a.md -> proj.a); the
// canonical path for a key is always the flat form at the vault root.
type DotModel struct{}

func init() {
	Register(DotModel{})
}

func (DotModel) Name() string { return "Dendron" }

func (DotModel) Extensions() []string { return []string{".md"} }

func (DotModel) SuffixMatch() bool { return true }

func (DotModel) KeyFromPath(p string, _ []byte) (note.Key, error) {
	ext := path.Ext(p)
	if !strings.EqualFold(ext, ".md") {
		return "", fmt.Errorf("%s: %w", p, ErrNotANote)
	}
	stem := strings.TrimSuffix(p, ext)
	stem = strings.ReplaceAll(stem, "\\", "/")
	key := strings.ReplaceAll(strings.Trim(stem, "/"), "/", ".")
	if key == "" {
		return "", fmt.Errorf("%s: %w", p, ErrNotANote)
	}
	for _, seg := range strings.Split(key, ".") {
		if seg == "" {
			return "", fmt.Errorf("%s: empty key segment: %w", p, ErrNotANote)
		}
	}
	return note.Key(key), nil
}

func (DotModel) PathFromKey(key note.Key) (string, error) {
	k := string(key)
	if k == "" || strings.HasPrefix(k, ".") || strings.HasSuffix(k, ".") || strings.Contains(k, "..") {
		return "", fmt.Errorf("%q: %w", k, ErrBadKey)
	}
	if strings.ContainsAny(k, "/\\#|[]") {
		return "", fmt.Errorf("%q: %w", k, ErrBadKey)
	}
	return k + ".md", nil
}

func (DotModel) Parent(key note.Key) (note.Key, bool) {
	s := string(key)
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		return "", false
	}
	return note.Key(s[:i]), true
}

func (m DotModel) DisplayName(n *note.Note) string {
	if n == nil {
		return ""
	}
	if n.Title != "" {
		return n.Title
	}
	if len(n.Headings) > 0 {
		return n.Headings[0].Text
	}
	return LastSegment(n.Key)
}

func (DotModel) RenderWikilink(target note.Key, alias string, anchor *note.Anchor) string {
	var b strings.Builder
	b.WriteString("[[")
	b.WriteString(string(target))
	b.WriteString(RenderAnchor(anchor))
	if alias != "" {
		b.WriteByte('|')
		b.WriteString(alias)
	}
	b.WriteString("]]")
	return b.String()
}
