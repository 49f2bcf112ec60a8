package refactor

import (
	"crypto/sha256"
	"fmt"

	"github.com/dendrite-md/dendrite/internal/vfs"
)

// Apply executes a plan against a writable backend. This is the client
// side of the contract: the engine hands out plans and something else
// applies them, here usually the CLI acting as its own editor. Every
// precondition is verified before the first byte changes.
func Apply(plan *Plan, fs vfs.WritableFS) error {
	for _, pre := range plan.Preconditions {
		data, err := fs.Read(pre.Path)
		if err != nil {
			return fmt.Errorf("precondition %s: %w", pre.Path, err)
		}
		if sha256.Sum256(data) != pre.Digest {
			return fmt.Errorf("%s is stale: %w", pre.Path, ErrConflict)
		}
	}

	for _, g := range plan.Groups {
		data, err := fs.Read(g.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", g.Path, err)
		}
		for _, e := range g.Edits {
			if e.Span.Start < 0 || e.Span.End > len(data) || e.Span.Start > e.Span.End {
				return fmt.Errorf("edit %d..%d outside %s: %w", e.Span.Start, e.Span.End, g.Path, ErrConflict)
			}
		}
		if err := fs.WriteFile(g.Path, applyEdits(data, g.Edits)); err != nil {
			return fmt.Errorf("write %s: %w", g.Path, err)
		}
	}

	// Canonical resource order: creates, renames, deletes.
	for _, op := range plan.Resources {
		var err error
		switch op.Kind {
		case ResCreate:
			err = fs.WriteFile(op.Path, op.Content)
		case ResRename:
			err = fs.Rename(op.Path, op.NewPath)
		case ResDelete:
			err = fs.Remove(op.Path)
		}
		if err != nil {
			return fmt.Errorf("resource op on %s: %w", op.Path, err)
		}
	}
	return nil
}
