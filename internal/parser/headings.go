package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"

	"github.com/dendrite-md/dendrite/internal/note"
)

// extractHeadings walks the AST for headings and computes each one's
// section span: from the heading line down to (not including) the next
// heading of equal or higher level. Offsets are shifted into file
// coordinates by base.
func extractHeadings(doc ast.Node, body []byte, base int) []note.Heading {
	type rawHeading struct {
		level int
		text  string
		start int // body-relative start of the heading line
	}

	var raw []rawHeading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkContinue, nil
		}
		raw = append(raw, rawHeading{
			level: h.Level,
			text:  nodeText(h, body),
			start: lineStart(body, lines.At(0).Start),
		})
		return ast.WalkContinue, nil
	})

	slugs := newSlugSet()
	headings := make([]note.Heading, 0, len(raw))
	for i, rh := range raw {
		end := len(body)
		for _, later := range raw[i+1:] {
			if later.level <= rh.level {
				end = later.start
				break
			}
		}
		headings = append(headings, note.Heading{
			Level: rh.level,
			Text:  rh.text,
			Slug:  slugs.take(Slugify(rh.text)),
			Span:  note.Span{Start: base + rh.start, End: base + end},
		})
	}
	return headings
}

// nodeText concatenates the text segments under n, the way goldmark
// clients extract display text.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// Slugify converts heading text to its deterministic anchor form:
// lowercase, non-alphanumeric runs collapse to single hyphens, ends
// trimmed.
func Slugify(text string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// slugSet disambiguates duplicate slugs within one file: the second
// occurrence gets "-2", the third "-3", and so on.
type slugSet struct {
	seen map[string]int
}

func newSlugSet() *slugSet {
	return &slugSet{seen: map[string]int{}}
}

func (s *slugSet) take(slug string) string {
	n := s.seen[slug]
	s.seen[slug] = n + 1
	if n == 0 {
		return slug
	}
	return slug + "-" + strconv.Itoa(n+1)
}
