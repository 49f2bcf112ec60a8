// Package refactor computes pure edit plans over the graph: whole-vault
// renames, subtree moves, note splits, and link audits. A plan is data;
// nothing here touches a file. The client (editor or CLI) verifies the
// digest preconditions and applies the edits atomically.
package refactor

import (
	"errors"
	"sort"

	"github.com/dendrite-md/dendrite/internal/note"
)

// Kind names the operation a plan performs.
type Kind int

const (
	KindRename Kind = iota
	KindMove
	KindSplit
	KindReorganize
	KindAudit
	KindCreate
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindRename:
		return "rename"
	case KindMove:
		return "move"
	case KindSplit:
		return "split"
	case KindReorganize:
		return "reorganize"
	case KindAudit:
		return "audit"
	case KindCreate:
		return "create"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

var (
	// ErrConflict covers rename collisions and stale-digest rejections.
	// A conflicting plan is never partially emitted.
	ErrConflict = errors.New("refactor conflict")

	// ErrNotFound is returned for unknown targets.
	ErrNotFound = errors.New("refactor target not found")
)

// TextEdit replaces one byte range with new text.
type TextEdit struct {
	Span    note.Span
	NewText string
}

// EditGroup collects every edit to one file, sorted by descending start
// offset so sequential application never disturbs a later range.
type EditGroup struct {
	Path    string
	Version int
	Edits   []TextEdit
}

// ResourceKind orders resource operations: creates first, then renames,
// then deletes, so references never dangle mid-apply.
type ResourceKind int

const (
	ResCreate ResourceKind = iota
	ResRename
	ResDelete
)

// ResourceOp is one file-level operation.
type ResourceOp struct {
	Kind    ResourceKind
	Path    string
	NewPath string // ResRename only
	Content []byte // ResCreate only
}

// Precondition asserts the digest a file must still have when the plan
// is applied; stale buffers fail the check instead of being clobbered.
type Precondition struct {
	Path   string
	Digest [32]byte
}

// Plan is the full, pure description of a multi-file change.
type Plan struct {
	Kind          Kind
	Groups        []EditGroup
	Resources     []ResourceOp
	Preconditions []Precondition
	Diagnostics   []note.Diagnostic
	Reversible    bool
}

// normalize sorts the plan into its canonical order: groups by path,
// edits descending by start, resources create/rename/delete.
func (p *Plan) normalize() {
	for gi := range p.Groups {
		edits := p.Groups[gi].Edits
		sort.Slice(edits, func(a, b int) bool {
			return edits[a].Span.Start > edits[b].Span.Start
		})
	}
	sort.Slice(p.Groups, func(a, b int) bool {
		return p.Groups[a].Path < p.Groups[b].Path
	})
	sort.SliceStable(p.Resources, func(a, b int) bool {
		return p.Resources[a].Kind < p.Resources[b].Kind
	})
	sort.Slice(p.Preconditions, func(a, b int) bool {
		return p.Preconditions[a].Path < p.Preconditions[b].Path
	})
}

// renameTargets maps pre-apply paths to post-apply paths.
func (p *Plan) renameTargets() map[string]string {
	m := map[string]string{}
	for _, op := range p.Resources {
		if op.Kind == ResRename {
			m[op.Path] = op.NewPath
		}
	}
	return m
}
