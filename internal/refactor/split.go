package refactor

import (
	"fmt"

	"github.com/dendrite-md/dendrite/internal/note"
)

// Split plans extracting the byte range from the source note into a new
// note, leaving a wikilink behind.
func (p *Planner) Split(source note.ID, span note.Span, newKey note.Key) (*Plan, error) {
	src, ok := p.store.NoteByID(source)
	if !ok {
		return nil, fmt.Errorf("%s: %w", source, ErrNotFound)
	}
	if _, taken := p.store.NoteByKey(newKey); taken {
		return nil, fmt.Errorf("key %q exists: %w", newKey, ErrConflict)
	}
	newPath, err := p.model.PathFromKey(newKey)
	if err != nil {
		return nil, err
	}
	if _, taken := p.store.NoteByPath(newPath); taken {
		return nil, fmt.Errorf("path %q exists: %w", newPath, ErrConflict)
	}

	digest, content, err := p.digestOf(src.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Path, err)
	}
	if span.Start < 0 || span.End > len(content) || span.Start > span.End {
		return nil, fmt.Errorf("range %d..%d outside %s: %w", span.Start, span.End, src.Path, ErrConflict)
	}

	extracted := append([]byte(nil), content[span.Start:span.End]...)
	link := p.model.RenderWikilink(newKey, "", nil)

	plan := &Plan{
		Kind:       KindSplit,
		Reversible: true,
		Groups: []EditGroup{{
			Path:  src.Path,
			Edits: []TextEdit{{Span: span, NewText: link}},
		}},
		Resources: []ResourceOp{{
			Kind:    ResCreate,
			Path:    newPath,
			Content: extracted,
		}},
		Preconditions: []Precondition{{Path: src.Path, Digest: digest}},
	}
	plan.normalize()
	p.remember(plan)
	return plan, nil
}
