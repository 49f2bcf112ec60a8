package refactor

import (
	"context"
	"fmt"

	"github.com/dendrite-md/dendrite/internal/note"
)

// Audit walks every link in the vault and reports broken targets and
// anchors that the target does not define. The returned plan carries
// only diagnostics.
func (p *Planner) Audit(ctx context.Context) (*Plan, error) {
	plan := &Plan{Kind: KindAudit}

	for _, n := range p.store.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, e := range p.store.Edges(n.ID) {
			ref := e.Ref
			if e.Target.IsZero() {
				if ref.Target == "" {
					continue // bare fragment on an unindexed buffer
				}
				plan.Diagnostics = append(plan.Diagnostics, note.Diagnostic{
					Path:     n.Path,
					Span:     ref.Span,
					Severity: note.SeverityWarning,
					Message:  fmt.Sprintf("broken link: %q does not resolve", ref.Target),
				})
				continue
			}
			if ref.Anchor == nil {
				continue
			}
			target, ok := p.store.NoteByID(e.Target)
			if !ok {
				continue
			}
			switch ref.Anchor.Kind {
			case note.AnchorHeading:
				if _, ok := target.HeadingBySlug(ref.Anchor.Value); !ok {
					plan.Diagnostics = append(plan.Diagnostics, note.Diagnostic{
						Path:     n.Path,
						Span:     ref.Span,
						Severity: note.SeverityWarning,
						Message:  fmt.Sprintf("invalid anchor: %q has no heading %q", target.Key, ref.Anchor.Value),
					})
				}
			case note.AnchorBlock:
				if _, ok := target.BlockByID(ref.Anchor.Value); !ok {
					plan.Diagnostics = append(plan.Diagnostics, note.Diagnostic{
						Path:     n.Path,
						Span:     ref.Span,
						Severity: note.SeverityWarning,
						Message:  fmt.Sprintf("invalid anchor: %q has no block ^%s", target.Key, ref.Anchor.Value),
					})
				}
			}
		}
	}
	return plan, nil
}
