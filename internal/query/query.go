// Package query is the read-only surface over the store: link
// resolution, backlinks, definitions, and completions. Every call takes
// a read lease; none blocks a concurrent writer for longer than a map
// lookup.
package query

import (
	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/store"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

// Queries bundles the read dependencies.
type Queries struct {
	store *store.Store
	model model.Model
	fs    vfs.FS
}

// New creates the query surface. fs is the overlay-aware backend used
// where current buffer content matters (completions).
func New(st *store.Store, m model.Model, fs vfs.FS) *Queries {
	return &Queries{store: st, model: m, fs: fs}
}

// Resolve applies the resolution policy to one outgoing link of the
// source note. The second return is the link's anchor, if any; ok is
// false for broken links and bad indices.
func (q *Queries) Resolve(source note.ID, linkIndex int) (note.ID, *note.Anchor, bool) {
	edges := q.store.Edges(source)
	if linkIndex < 0 || linkIndex >= len(edges) {
		return note.ID{}, nil, false
	}
	e := edges[linkIndex]
	if e.Target.IsZero() {
		return note.ID{}, nil, false
	}
	return e.Target, e.Ref.Anchor, true
}

// BacklinkRef is one incoming reference with its source location.
type BacklinkRef struct {
	Source note.ID
	Path   string
	Key    note.Key
	Title  string
	Index  int
	Span   note.Span
}

// Backlinks lists the incoming references of target, ordered by source
// key then link index.
func (q *Queries) Backlinks(target note.ID) []BacklinkRef {
	var refs []BacklinkRef
	for _, bl := range q.store.Backlinks(target) {
		src, ok := q.store.NoteByID(bl.Source)
		if !ok {
			continue
		}
		edges := q.store.Edges(bl.Source)
		if bl.Index >= len(edges) {
			continue
		}
		refs = append(refs, BacklinkRef{
			Source: bl.Source,
			Path:   src.Path,
			Key:    src.Key,
			Title:  q.model.DisplayName(src),
			Index:  bl.Index,
			Span:   edges[bl.Index].Ref.Span,
		})
	}
	return refs
}

// Location is a byte range inside a vault file.
type Location struct {
	Path string
	Span note.Span
}

// Definition locates the link enclosing offset in the file at path and
// resolves it. The returned span is the target's anchor range when the
// link carries one, else the top of the file.
func (q *Queries) Definition(path string, offset int) (Location, bool) {
	n, ok := q.store.NoteByPath(path)
	if !ok {
		return Location{}, false
	}
	edges := q.store.Edges(n.ID)
	for _, e := range edges {
		if !e.Ref.Span.Contains(offset) {
			continue
		}
		if e.Target.IsZero() {
			return Location{}, false
		}
		target, ok := q.store.NoteByID(e.Target)
		if !ok {
			return Location{}, false
		}
		loc := Location{Path: target.Path}
		if a := e.Ref.Anchor; a != nil {
			switch a.Kind {
			case note.AnchorHeading:
				if h, ok := target.HeadingBySlug(a.Value); ok {
					loc.Span = h.Span
				}
			case note.AnchorBlock:
				if b, ok := target.BlockByID(a.Value); ok {
					loc.Span = b.Span
				}
			}
		}
		return loc, true
	}
	return Location{}, false
}
