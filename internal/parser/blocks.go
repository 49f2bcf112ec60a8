package parser

import (
	"fmt"
	"regexp"

	"github.com/dendrite-md/dendrite/internal/note"
)

// blockIDRE matches a trailing ^block-id token.
var blockIDRE = regexp.MustCompile(`\^([A-Za-z0-9_-]+)$`)

// scanBlockAnchors finds lines whose last non-whitespace token is a
// ^block-id and records the id against the enclosing block: the run of
// contiguous non-blank lines around it. Duplicate ids within one file
// are a warning; the first wins.
func scanBlockAnchors(filePath string, body []byte, base int, code []note.Span, res *Result) []note.Block {
	var blocks []note.Block
	seen := map[string]bool{}

	lineOffsets := splitLineOffsets(body)
	isBlank := func(i int) bool {
		line := lineAt(body, lineOffsets, i)
		for _, c := range line {
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				return false
			}
		}
		return true
	}

	for i := range lineOffsets {
		start := lineOffsets[i]
		if inRegions(code, start) {
			continue
		}
		line := trimRightSpace(lineAt(body, lineOffsets, i))
		if len(line) == 0 {
			continue
		}
		tok := lastToken(line)
		m := blockIDRE.FindStringSubmatch(tok)
		if m == nil || tok != "^"+m[1] {
			continue
		}
		id := m[1]
		if seen[id] {
			res.Diagnostics = append(res.Diagnostics, note.Diagnostic{
				Path:     filePath,
				Severity: note.SeverityWarning,
				Message:  fmt.Sprintf("duplicate block anchor ^%s", id),
			})
			continue
		}
		seen[id] = true

		// Expand to the enclosing paragraph or list item: contiguous
		// non-blank lines.
		first, last := i, i
		for first > 0 && !isBlank(first-1) {
			first--
		}
		for last+1 < len(lineOffsets) && !isBlank(last+1) {
			last++
		}
		end := len(body)
		if last+1 < len(lineOffsets) {
			end = lineOffsets[last+1]
		}
		blocks = append(blocks, note.Block{
			ID:   id,
			Span: note.Span{Start: base + lineOffsets[first], End: base + end},
		})
	}
	return blocks
}

// splitLineOffsets returns the start offset of every line in b.
func splitLineOffsets(b []byte) []int {
	offsets := []int{0}
	for i, c := range b {
		if c == '\n' && i+1 < len(b) {
			offsets = append(offsets, i+1)
		}
	}
	if len(b) == 0 {
		return nil
	}
	return offsets
}

func lineAt(b []byte, offsets []int, i int) string {
	start := offsets[i]
	end := len(b)
	if i+1 < len(offsets) {
		end = offsets[i+1]
	}
	return string(b[start:end])
}

func trimRightSpace(s string) string {
	for len(s) > 0 {
		switch s[len(s)-1] {
		case ' ', '\t', '\n', '\r':
			s = s[:len(s)-1]
		default:
			return s
		}
	}
	return s
}

func lastToken(line string) string {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == ' ' || line[i] == '\t' {
			return line[i+1:]
		}
	}
	return line
}
