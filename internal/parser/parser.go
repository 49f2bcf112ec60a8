// Package parser extracts the indexable surface of a markdown file:
// frontmatter, headings, block anchors, links, and the content digest.
//
// Structure (headings, code regions) comes from the goldmark AST; link
// spans are located by a byte scanner that honors those regions, so
// every reported span is an exact range into the original file bytes.
// The refactor planner depends on that to synthesize edits.
package parser

import (
	"crypto/sha256"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/dendrite-md/dendrite/internal/note"
)

// Result is everything extracted from one file. Spans are byte ranges
// into the exact bytes that produced Digest.
type Result struct {
	Digest      [32]byte
	Frontmatter map[string]any
	BodyStart   int
	Headings    []note.Heading
	Blocks      []note.Block
	Links       []note.LinkRef
	Diagnostics []note.Diagnostic
}

// Parser is safe for concurrent use; the scan fan-out shares one.
type Parser struct {
	md         goldmark.Markdown
	extensions map[string]bool
}

// New builds a parser admitting markdown-link destinations with the
// given file extensions (".md", ...).
func New(extensions []string) *Parser {
	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[e] = true
	}
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(gparser.WithAutoHeadingID()),
		),
		extensions: exts,
	}
}

// Parse extracts the full Result from src. It never fails: malformed
// input degrades to diagnostics on the result.
func (p *Parser) Parse(path string, src []byte) *Result {
	res := &Result{
		Digest:      sha256.Sum256(src),
		Frontmatter: map[string]any{},
	}

	fm, bodyStart, diags := parseFrontmatter(path, src)
	res.Frontmatter = fm
	res.BodyStart = bodyStart
	res.Diagnostics = append(res.Diagnostics, diags...)

	body := src[bodyStart:]
	doc := p.md.Parser().Parse(text.NewReader(body))

	code := codeRegions(doc, body)

	res.Headings = extractHeadings(doc, body, bodyStart)
	res.Links = p.scanLinks(body, bodyStart, code)
	res.Blocks = scanBlockAnchors(path, body, bodyStart, code, res)

	return res
}

// codeRegions collects the byte ranges of fenced/indented code blocks
// and inline code spans. Link syntax inside them is inert.
func codeRegions(doc ast.Node, body []byte) []note.Span {
	var regions []note.Span
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			if lines.Len() > 0 {
				first := lines.At(0)
				last := lines.At(lines.Len() - 1)
				// Extend to cover the fence lines around the content.
				start := lineStart(body, first.Start)
				if prev := prevLineStart(body, start); prev >= 0 {
					start = prev
				}
				end := last.Stop
				if next := lineEnd(body, end); next > end {
					end = next
				}
				regions = append(regions, note.Span{Start: start, End: end})
			}
		case *ast.CodeSpan:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					regions = append(regions, note.Span{Start: t.Segment.Start, End: t.Segment.Stop})
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return regions
}

func inRegions(regions []note.Span, offset int) bool {
	for _, r := range regions {
		if r.Contains(offset) {
			return true
		}
	}
	return false
}

// lineStart walks back from offset to the first byte of its line.
func lineStart(b []byte, offset int) int {
	for offset > 0 && b[offset-1] != '\n' {
		offset--
	}
	return offset
}

// prevLineStart returns the start of the line before the one beginning
// at offset, or -1 at the top of the buffer.
func prevLineStart(b []byte, offset int) int {
	if offset == 0 {
		return -1
	}
	return lineStart(b, offset-1)
}

// lineEnd returns the offset one past the line's trailing newline (or
// end of buffer).
func lineEnd(b []byte, offset int) int {
	for offset < len(b) && b[offset] != '\n' {
		offset++
	}
	if offset < len(b) {
		offset++
	}
	return offset
}
