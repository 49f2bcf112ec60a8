package parser

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dendrite-md/dendrite/internal/note"
)

var fenceLine = []byte("---")

// parseFrontmatter splits off a leading YAML block. A parse failure
// yields an empty map plus a diagnostic; the body offset still skips
// the fenced region so the rest of the file indexes normally. An
// unclosed fence is not frontmatter at all.
func parseFrontmatter(path string, src []byte) (map[string]any, int, []note.Diagnostic) {
	fm := map[string]any{}

	first, rest := cutLine(src)
	if !bytes.Equal(bytes.TrimRight(first, "\r\n"), fenceLine) {
		return fm, 0, nil
	}

	offset := len(first)
	yamlStart := offset
	for len(rest) > 0 {
		line, tail := cutLine(rest)
		if bytes.Equal(bytes.TrimRight(line, "\r\n"), fenceLine) {
			bodyStart := offset + len(line)
			raw := src[yamlStart:offset]
			if err := yaml.Unmarshal(raw, &fm); err != nil {
				fm = map[string]any{}
				return fm, bodyStart, []note.Diagnostic{{
					Path:     path,
					Span:     note.Span{Start: yamlStart, End: offset},
					Severity: note.SeverityWarning,
					Message:  fmt.Sprintf("invalid frontmatter: %v", err),
				}}
			}
			if fm == nil {
				fm = map[string]any{}
			}
			return fm, bodyStart, nil
		}
		offset += len(line)
		rest = tail
	}

	return map[string]any{}, 0, []note.Diagnostic{{
		Path:     path,
		Severity: note.SeverityWarning,
		Message:  "unclosed frontmatter fence",
	}}
}

// cutLine splits b into its first line (newline included) and the rest.
func cutLine(b []byte) (line, rest []byte) {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i+1], b[i+1:]
	}
	return b, nil
}
