// Package assemble turns raw parse results into resolved Note entities.
// The transform is pure; everything it needs arrives as arguments.
package assemble

import (
	"time"

	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/parser"
)

// Note builds the entity for one file. The id stays zero here; the
// store assigns it through the identity registry on upsert. A model
// rejection propagates so the indexer can drop the path.
func Note(path string, res *parser.Result, m model.Model, mtime time.Time, size int64) (*note.Note, error) {
	key, err := m.KeyFromPath(path, nil)
	if err != nil {
		return nil, err
	}

	n := &note.Note{
		Key:         key,
		Path:        path,
		Title:       title(res),
		Digest:      res.Digest,
		MTime:       mtime,
		Size:        size,
		Headings:    res.Headings,
		Blocks:      res.Blocks,
		Frontmatter: res.Frontmatter,
		Links:       res.Links,
		Diagnostics: res.Diagnostics,
	}
	return n, nil
}

// title prefers the frontmatter "title" field, then the first H1.
func title(res *parser.Result) string {
	if t, ok := res.Frontmatter["title"].(string); ok && t != "" {
		return t
	}
	for _, h := range res.Headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}
