package refactor

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/dendrite-md/dendrite/internal/note"
)

// inverse builds the plan that undoes plan, computed against the same
// content the forward plan was planned on. Edit spans land in
// post-apply coordinates; preconditions capture post-apply digests so a
// later undo detects intervening edits.
func (p *Planner) inverse(plan *Plan) (*Plan, error) {
	renames := plan.renameTargets()
	pathAfter := func(path string) string {
		if np, ok := renames[path]; ok {
			return np
		}
		return path
	}

	inv := &Plan{Kind: plan.Kind, Reversible: true}
	post := map[string][32]byte{}

	for _, g := range plan.Groups {
		_, content, err := p.digestOf(g.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", g.Path, err)
		}

		asc := append([]TextEdit(nil), g.Edits...)
		sort.Slice(asc, func(a, b int) bool { return asc[a].Span.Start < asc[b].Span.Start })

		invGroup := EditGroup{Path: pathAfter(g.Path)}
		delta := 0
		for _, e := range asc {
			if e.Span.End > len(content) {
				return nil, fmt.Errorf("edit past EOF in %s", g.Path)
			}
			original := string(content[e.Span.Start:e.Span.End])
			start := e.Span.Start + delta
			invGroup.Edits = append(invGroup.Edits, TextEdit{
				Span:    note.Span{Start: start, End: start + len(e.NewText)},
				NewText: original,
			})
			delta += len(e.NewText) - e.Span.Len()
		}
		inv.Groups = append(inv.Groups, invGroup)
		post[invGroup.Path] = sha256.Sum256(applyEdits(content, g.Edits))
	}

	for _, op := range plan.Resources {
		switch op.Kind {
		case ResCreate:
			inv.Resources = append(inv.Resources, ResourceOp{Kind: ResDelete, Path: op.Path})
			post[op.Path] = sha256.Sum256(op.Content)
		case ResRename:
			inv.Resources = append(inv.Resources, ResourceOp{Kind: ResRename, Path: op.NewPath, NewPath: op.Path})
			if _, edited := post[op.NewPath]; !edited {
				digest, _, err := p.digestOf(op.Path)
				if err != nil {
					return nil, fmt.Errorf("read %s: %w", op.Path, err)
				}
				post[op.NewPath] = digest
			}
		case ResDelete:
			_, content, err := p.digestOf(op.Path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", op.Path, err)
			}
			inv.Resources = append(inv.Resources, ResourceOp{Kind: ResCreate, Path: op.Path, Content: content})
		}
	}

	for path, digest := range post {
		inv.Preconditions = append(inv.Preconditions, Precondition{Path: path, Digest: digest})
	}
	inv.normalize()
	return inv, nil
}

// applyEdits returns content with the edits applied. Edits must be
// sorted descending by start (the plan's canonical order).
func applyEdits(content []byte, edits []TextEdit) []byte {
	out := append([]byte(nil), content...)
	for _, e := range edits {
		out = append(out[:e.Span.Start], append([]byte(e.NewText), out[e.Span.End:]...)...)
	}
	return out
}
