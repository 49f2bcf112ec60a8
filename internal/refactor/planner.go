package refactor

import (
	"crypto/sha256"
	"fmt"
	"path"
	"strings"

	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/store"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

// Planner synthesizes plans from the current graph. It reads file
// content through the overlay-aware backend but never writes.
type Planner struct {
	store   *store.Store
	model   model.Model
	fs      vfs.FS
	history *History
}

// New creates a planner. historyDepth bounds the undo stack.
func New(st *store.Store, m model.Model, fs vfs.FS, historyDepth int) *Planner {
	return &Planner{
		store:   st,
		model:   m,
		fs:      fs,
		history: NewHistory(historyDepth),
	}
}

// History exposes the undo stack, mainly for tests.
func (p *Planner) History() *History { return p.history }

// Rename plans giving the target note a new key, rewriting every
// backlink and renaming the file.
func (p *Planner) Rename(target note.ID, newKey note.Key) (*Plan, error) {
	return p.rename(KindRename, target, newKey)
}

// Move is a rename whose new key lives under a different parent; the
// plan shape is identical.
func (p *Planner) Move(target note.ID, newKey note.Key) (*Plan, error) {
	return p.rename(KindMove, target, newKey)
}

func (p *Planner) rename(kind Kind, target note.ID, newKey note.Key) (*Plan, error) {
	moves, err := p.checkMove(target, newKey, nil)
	if err != nil {
		return nil, err
	}
	plan, err := p.renamePlan(kind, moves)
	if err != nil {
		return nil, err
	}
	p.remember(plan)
	return plan, nil
}

// keyMove is one (note, new key, new path) of a rename or reorganize.
type keyMove struct {
	n       *note.Note
	newKey  note.Key
	newPath string
}

// checkMove validates one move against the live key set and the other
// moves in the same plan.
func (p *Planner) checkMove(target note.ID, newKey note.Key, planned map[note.ID]note.Key) ([]keyMove, error) {
	n, ok := p.store.NoteByID(target)
	if !ok {
		return nil, fmt.Errorf("%s: %w", target, ErrNotFound)
	}
	if n.Key == newKey {
		return nil, fmt.Errorf("%q already holds that key: %w", n.Path, ErrConflict)
	}
	newPath, err := p.model.PathFromKey(newKey)
	if err != nil {
		return nil, err
	}
	if other, ok := p.store.NoteByKey(newKey); ok && other.ID != target {
		if _, moving := planned[other.ID]; !moving {
			return nil, fmt.Errorf("key %q claimed by %q: %w", newKey, other.Path, ErrConflict)
		}
	}
	if other, ok := p.store.NoteByPath(newPath); ok && other.ID != target {
		if _, moving := planned[other.ID]; !moving {
			return nil, fmt.Errorf("path %q exists: %w", newPath, ErrConflict)
		}
	}
	return []keyMove{{n: n, newKey: newKey, newPath: newPath}}, nil
}

// renamePlan builds the edit plan for a set of simultaneous moves. Link
// rewrites account for both ends moving: the new relative path runs
// from the source's new directory to the target's new path.
func (p *Planner) renamePlan(kind Kind, moves []keyMove) (*Plan, error) {
	newKeys := make(map[note.ID]note.Key, len(moves))
	newPaths := make(map[note.ID]string, len(moves))
	for _, mv := range moves {
		newKeys[mv.n.ID] = mv.newKey
		newPaths[mv.n.ID] = mv.newPath
	}
	pathAfter := func(id note.ID) string {
		if np, ok := newPaths[id]; ok {
			return np
		}
		n, _ := p.store.NoteByID(id)
		return n.Path
	}

	plan := &Plan{Kind: kind, Reversible: true}
	groups := map[string]*EditGroup{}
	preconditions := map[string][32]byte{}

	needPre := func(n *note.Note) {
		preconditions[n.Path] = n.Digest
	}

	for _, mv := range moves {
		needPre(mv.n)
		plan.Resources = append(plan.Resources, ResourceOp{
			Kind:    ResRename,
			Path:    mv.n.Path,
			NewPath: mv.newPath,
		})

		for _, bl := range p.store.Backlinks(mv.n.ID) {
			src, ok := p.store.NoteByID(bl.Source)
			if !ok {
				continue
			}
			edges := p.store.Edges(bl.Source)
			if bl.Index >= len(edges) {
				continue
			}
			ref := edges[bl.Index].Ref

			var newText string
			switch ref.Kind {
			case note.KindWiki:
				target := mv.newKey
				if ref.Target != "" && p.model.SuffixMatch() {
					// A suffix-style ref keeps its shape when the
					// suffix still addresses the new key.
					if suffixAddresses(mv.newKey, ref.Target) {
						continue
					}
				}
				newText = p.model.RenderWikilink(target, ref.Alias, ref.Anchor)
			case note.KindMarkdown:
				if ref.Target == "" {
					continue // bare fragment, nothing to rewrite
				}
				fromDir := path.Dir(pathAfter(src.ID))
				rel := relativePath(fromDir, mv.newPath)
				newText = "[" + ref.Alias + "](" + rel + model.RenderAnchor(ref.Anchor) + ")"
			}

			g, ok := groups[src.Path]
			if !ok {
				g = &EditGroup{Path: src.Path}
				groups[src.Path] = g
			}
			g.Edits = append(g.Edits, TextEdit{Span: ref.Span, NewText: newText})
			needPre(src)
		}
	}

	for _, g := range groups {
		plan.Groups = append(plan.Groups, *g)
	}
	for path, digest := range preconditions {
		plan.Preconditions = append(plan.Preconditions, Precondition{Path: path, Digest: digest})
	}
	plan.normalize()
	return plan, nil
}

// suffixAddresses reports whether ref still addresses key as a dot
// suffix, i.e. key == ref or key ends in ".ref".
func suffixAddresses(key note.Key, ref string) bool {
	return string(key) == ref || strings.HasSuffix(string(key), "."+ref)
}

// remember pushes the inverse plan onto the undo stack; plans whose
// inverse cannot be computed are kept out rather than half-remembered.
func (p *Planner) remember(plan *Plan) {
	if !plan.Reversible {
		return
	}
	inv, err := p.inverse(plan)
	if err != nil {
		return
	}
	p.history.Push(inv)
}

// digestOf hashes the current bytes of a vault file.
func (p *Planner) digestOf(path string) ([32]byte, []byte, error) {
	data, err := p.fs.Read(path)
	if err != nil {
		return [32]byte{}, nil, err
	}
	return sha256.Sum256(data), data, nil
}

// relativePath computes the slash-relative path from one directory to a
// file, both vault-relative.
func relativePath(fromDir, toPath string) string {
	if fromDir == "." || fromDir == "" {
		return toPath
	}
	from := strings.Split(fromDir, "/")
	to := strings.Split(toPath, "/")
	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}
	var parts []string
	for range from[common:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	return strings.Join(parts, "/")
}
