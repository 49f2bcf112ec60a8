package engine

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/dendrite-md/dendrite/internal/hierarchy"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/query"
	"github.com/dendrite-md/dendrite/internal/refactor"
	"github.com/dendrite-md/dendrite/internal/store"
)

// This file is the executeCommand surface: one method per custom
// dendrite/* command the transport exposes. Mutating commands return
// plans; the client applies them through workspace/applyEdit.

// NoteRef is the wire shape of one note in listings.
type NoteRef struct {
	Key   note.Key
	Title string
	Path  string
}

// GetHierarchy serves dendrite/getHierarchy.
func (e *Engine) GetHierarchy() *hierarchy.Tree {
	return e.hier.Tree()
}

// ListNotes serves dendrite/listNotes, ordered by key.
func (e *Engine) ListNotes() []NoteRef {
	return lo.Map(e.store.All(), func(n *note.Note, _ int) NoteRef {
		return NoteRef{Key: n.Key, Title: e.model.DisplayName(n), Path: n.Path}
	})
}

// GetNoteKey serves dendrite/getNoteKey.
func (e *Engine) GetNoteKey(path string) (note.Key, error) {
	n, ok := e.store.NoteByPath(path)
	if !ok {
		return "", fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	return n.Key, nil
}

// GetBacklinks serves dendrite/getBacklinks.
func (e *Engine) GetBacklinks(key note.Key) ([]query.BacklinkRef, error) {
	n, ok := e.store.NoteByKey(key)
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	return e.queries.Backlinks(n.ID), nil
}

// CreateNote serves dendrite/createNote.
func (e *Engine) CreateNote(key note.Key) (*refactor.Plan, error) {
	return e.planner.Create(key, nil)
}

// DeleteNote serves dendrite/deleteNote.
func (e *Engine) DeleteNote(key note.Key) (*refactor.Plan, error) {
	return e.planner.Delete(key)
}

// RenameNote serves textDocument/rename on a note.
func (e *Engine) RenameNote(key, newKey note.Key) (*refactor.Plan, error) {
	n, ok := e.store.NoteByKey(key)
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, store.ErrNotFound)
	}
	return e.planner.Rename(n.ID, newKey)
}

// SplitNote serves dendrite/splitNote.
func (e *Engine) SplitNote(path string, span note.Span, newKey note.Key) (*refactor.Plan, error) {
	n, ok := e.store.NoteByPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	return e.planner.Split(n.ID, span, newKey)
}

// ReorganizeHierarchy serves dendrite/reorganizeHierarchy.
func (e *Engine) ReorganizeHierarchy(ctx context.Context, oldPrefix, newPrefix string) (*refactor.Plan, error) {
	return e.planner.Reorganize(ctx, oldPrefix, newPrefix)
}

// ResolveHierarchyEdits serves the dry-run preview.
func (e *Engine) ResolveHierarchyEdits(ctx context.Context, oldPrefix, newPrefix string) ([]refactor.KeyPair, error) {
	return e.planner.ReorganizePairs(ctx, oldPrefix, newPrefix)
}

// WorkspaceAudit serves dendrite/workspaceAudit: every broken link and
// invalid anchor in the vault, plus the indexer's per-file diagnostics.
func (e *Engine) WorkspaceAudit(ctx context.Context) ([]note.Diagnostic, error) {
	plan, err := e.planner.Audit(ctx)
	if err != nil {
		return nil, err
	}
	diags := plan.Diagnostics
	for _, fileDiags := range e.indexer.Diagnostics() {
		diags = append(diags, fileDiags...)
	}
	return diags, nil
}

// UndoMutation serves dendrite/undoMutation.
func (e *Engine) UndoMutation() (*refactor.Plan, error) {
	return e.planner.Undo()
}

// Definition serves textDocument/definition.
func (e *Engine) Definition(path string, offset int) (query.Location, bool) {
	return e.queries.Definition(path, offset)
}

// Completions serves textDocument/completion.
func (e *Engine) Completions(path string, offset int) []query.Item {
	return e.queries.Completions(path, offset)
}
