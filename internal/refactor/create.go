package refactor

import (
	"fmt"

	"github.com/dendrite-md/dendrite/internal/note"
)

// Create plans a new empty note for key. The plan is a single resource
// op; applying it and letting the watcher index the file is the whole
// creation flow.
func (p *Planner) Create(key note.Key, content []byte) (*Plan, error) {
	if _, taken := p.store.NoteByKey(key); taken {
		return nil, fmt.Errorf("key %q exists: %w", key, ErrConflict)
	}
	path, err := p.model.PathFromKey(key)
	if err != nil {
		return nil, err
	}
	if _, taken := p.store.NoteByPath(path); taken {
		return nil, fmt.Errorf("path %q exists: %w", path, ErrConflict)
	}

	plan := &Plan{
		Kind:       KindCreate,
		Reversible: true,
		Resources:  []ResourceOp{{Kind: ResCreate, Path: path, Content: content}},
	}
	plan.normalize()
	p.remember(plan)
	return plan, nil
}

// Delete plans removing the note holding key. Backlinks that will break
// ride along as warnings; the refs themselves are left alone, matching
// how the store demotes them after the file goes.
func (p *Planner) Delete(key note.Key) (*Plan, error) {
	n, ok := p.store.NoteByKey(key)
	if !ok {
		return nil, fmt.Errorf("key %q: %w", key, ErrNotFound)
	}
	digest, _, err := p.digestOf(n.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", n.Path, err)
	}

	plan := &Plan{
		Kind:          KindDelete,
		Reversible:    true,
		Resources:     []ResourceOp{{Kind: ResDelete, Path: n.Path}},
		Preconditions: []Precondition{{Path: n.Path, Digest: digest}},
	}
	for _, bl := range p.store.Backlinks(n.ID) {
		src, ok := p.store.NoteByID(bl.Source)
		if !ok {
			continue
		}
		edges := p.store.Edges(bl.Source)
		if bl.Index >= len(edges) {
			continue
		}
		plan.Diagnostics = append(plan.Diagnostics, note.Diagnostic{
			Path:     src.Path,
			Span:     edges[bl.Index].Ref.Span,
			Severity: note.SeverityWarning,
			Message:  fmt.Sprintf("link to %q will break", key),
		})
	}
	plan.normalize()
	p.remember(plan)
	return plan, nil
}
