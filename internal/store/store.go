// Package store holds the in-memory knowledge graph: the note map, the
// bidirectional link graph, and the identity registry. One writer
// mutates it at a time; readers take the read side of the lock and see
// a consistent snapshot, never a partial upsert.
package store

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/note"
)

var (
	// ErrKeyConflict is returned when an upsert would give two live
	// notes the same key. The earlier note wins; the later upsert is
	// rejected.
	ErrKeyConflict = errors.New("note key already in use")

	// ErrNotFound is returned for operations on unknown paths or ids.
	ErrNotFound = errors.New("note not found")
)

// Edge is one outgoing link with its current resolution. Target is the
// zero id while the link is unresolved.
type Edge struct {
	Ref    note.LinkRef
	Target note.ID
}

// Backlink identifies one incoming edge: the source note and the index
// of the link inside it.
type Backlink struct {
	Source note.ID
	Index  int
}

// Store is the shared graph. All exported methods are safe for
// concurrent use.
type Store struct {
	mu    sync.RWMutex
	model model.Model

	notes     map[note.ID]*note.Note
	byPath    map[string]note.ID
	byKey     map[note.Key]note.ID
	edges     map[note.ID][]Edge
	backlinks map[note.ID]map[Backlink]struct{}
	registry  *Registry

	// generation counts changes to the (path, key) set; the hierarchy
	// cache keys off it. version counts every graph mutation.
	generation uint64
	version    uint64
}

// New creates an empty store bound to a semantic model.
func New(m model.Model) *Store {
	return &Store{
		model:     m,
		notes:     map[note.ID]*note.Note{},
		byPath:    map[string]note.ID{},
		byKey:     map[note.Key]note.ID{},
		edges:     map[note.ID][]Edge{},
		backlinks: map[note.ID]map[Backlink]struct{}{},
		registry:  NewRegistry(),
	}
}

// Model returns the semantic model the store resolves against.
func (s *Store) Model() model.Model { return s.model }

// Upsert inserts or replaces the note for n.Path, wiring its id through
// the identity registry and rewiring the graph incrementally. A key
// collision with a different live path rejects the upsert.
func (s *Store) Upsert(n *note.Note) (note.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if otherID, ok := s.byKey[n.Key]; ok {
		if other := s.notes[otherID]; other != nil && other.Path != n.Path {
			return note.ID{}, fmt.Errorf("%q claimed by %q: %w", n.Key, other.Path, ErrKeyConflict)
		}
	}

	id := s.registry.Acquire(n.Path, n.Digest)
	n.ID = id

	prev := s.notes[id]
	keySetChanged := prev == nil || prev.Key != n.Key || prev.Path != n.Path

	if prev != nil {
		s.dropOutgoing(id)
		if prev.Key != n.Key {
			delete(s.byKey, prev.Key)
		}
		if prev.Path != n.Path {
			delete(s.byPath, prev.Path)
		}
	}

	s.notes[id] = n
	s.byPath[n.Path] = id
	s.byKey[n.Key] = id
	s.wireOutgoing(n)

	s.version++
	if keySetChanged {
		s.generation++
		s.reresolveAll()
	}
	return id, nil
}

// Remove deletes the note at path. Incoming links are demoted to
// unresolved; the source refs stay untouched.
func (s *Store) Remove(path string) (note.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPath[path]
	if !ok {
		return note.ID{}, false
	}
	n := s.notes[id]

	s.dropOutgoing(id)
	delete(s.backlinks, id)
	delete(s.notes, id)
	delete(s.byPath, path)
	delete(s.byKey, n.Key)
	s.registry.Release(path, n.Digest)

	s.version++
	s.generation++
	// Demotes every incoming edge to unresolved and lets suffix
	// matches that the removed key was shadowing settle.
	s.reresolveAll()
	return id, true
}

// Rename moves a note to a new path, preserving its id, recomputing the
// key, and re-resolving links that now match.
func (s *Store) Rename(oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byPath[oldPath]
	if !ok {
		return fmt.Errorf("%s: %w", oldPath, ErrNotFound)
	}
	n := s.notes[id]

	newKey, err := s.model.KeyFromPath(newPath, nil)
	if err != nil {
		return err
	}
	if otherID, ok := s.byKey[newKey]; ok && otherID != id {
		return fmt.Errorf("%q claimed by %q: %w", newKey, s.notes[otherID].Path, ErrKeyConflict)
	}

	s.registry.Rename(oldPath, newPath)
	delete(s.byPath, oldPath)
	delete(s.byKey, n.Key)
	n.Path = newPath
	n.Key = newKey
	s.byPath[newPath] = id
	s.byKey[newKey] = id

	s.version++
	s.generation++
	s.reresolveAll()
	return nil
}

// Touch patches change-detection metadata without reparsing. The graph
// is untouched, so neither counter moves.
func (s *Store) Touch(path string, mtime time.Time, size int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPath[path]
	if !ok {
		return false
	}
	s.notes[id].MTime = mtime
	s.notes[id].Size = size
	return true
}

// dropOutgoing removes id's edges and their backlink entries. Caller
// holds the write lock.
func (s *Store) dropOutgoing(id note.ID) {
	for i, e := range s.edges[id] {
		if !e.Target.IsZero() {
			delete(s.backlinks[e.Target], Backlink{Source: id, Index: i})
		}
	}
	delete(s.edges, id)
}

// wireOutgoing builds edges for n's links and registers backlinks.
// Caller holds the write lock.
func (s *Store) wireOutgoing(n *note.Note) {
	edges := make([]Edge, len(n.Links))
	for i, ref := range n.Links {
		target := s.resolveRef(n, ref)
		edges[i] = Edge{Ref: ref, Target: target}
		if !target.IsZero() {
			s.addBacklink(target, Backlink{Source: n.ID, Index: i})
		}
	}
	s.edges[n.ID] = edges
}

func (s *Store) addBacklink(target note.ID, bl Backlink) {
	set, ok := s.backlinks[target]
	if !ok {
		set = map[Backlink]struct{}{}
		s.backlinks[target] = set
	}
	set[bl] = struct{}{}
}

// reresolveAll recomputes every edge's resolution after the key set
// changed: new keys can satisfy dangling refs and removed keys must
// demote stale ones. Caller holds the write lock.
func (s *Store) reresolveAll() {
	for id := range s.backlinks {
		delete(s.backlinks, id)
	}
	for srcID, edges := range s.edges {
		src := s.notes[srcID]
		for i := range edges {
			target := s.resolveRef(src, edges[i].Ref)
			edges[i].Target = target
			if !target.IsZero() {
				s.addBacklink(target, Backlink{Source: srcID, Index: i})
			}
		}
	}
}

// resolveRef applies the resolution policy: exact key match, then
// unique suffix match if the model permits, else unresolved. Markdown
// refs resolve by path relative to the source's directory; refs with
// an empty target point at their own note. Caller holds the lock.
func (s *Store) resolveRef(src *note.Note, ref note.LinkRef) note.ID {
	if ref.Target == "" {
		if ref.Anchor != nil && src != nil {
			return src.ID
		}
		return note.ID{}
	}

	switch ref.Kind {
	case note.KindMarkdown:
		base := ""
		if src != nil {
			base = path.Dir(src.Path)
		}
		rel := path.Clean(path.Join(base, ref.Target))
		rel = strings.TrimPrefix(rel, "./")
		if id, ok := s.byPath[rel]; ok {
			return id
		}
		return note.ID{}

	default:
		if id, ok := s.byKey[note.Key(ref.Target)]; ok {
			return id
		}
		if s.model.SuffixMatch() {
			suffix := "." + ref.Target
			var found note.ID
			matches := 0
			for key, id := range s.byKey {
				if strings.HasSuffix(string(key), suffix) {
					found = id
					matches++
					if matches > 1 {
						return note.ID{}
					}
				}
			}
			if matches == 1 {
				return found
			}
		}
		return note.ID{}
	}
}

// --------------------------------------------------------------------
// Read surface
// --------------------------------------------------------------------

// NoteByPath returns the note at a vault-relative path.
func (s *Store) NoteByPath(path string) (*note.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPath[path]
	if !ok {
		return nil, false
	}
	return s.notes[id], true
}

// NoteByKey returns the note holding a key.
func (s *Store) NoteByKey(key note.Key) (*note.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	return s.notes[id], true
}

// NoteByID returns the note with the given id.
func (s *Store) NoteByID(id note.ID) (*note.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	return n, ok
}

// All returns every note ordered by key. The returned notes are shared;
// callers must not mutate them.
func (s *Store) All() []*note.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := make([]*note.Note, 0, len(s.notes))
	for _, n := range s.notes {
		notes = append(notes, n)
	}
	sort.Slice(notes, func(a, b int) bool { return notes[a].Key < notes[b].Key })
	return notes
}

// Len returns the number of live notes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Edges returns a copy of id's outgoing edges in link order.
func (s *Store) Edges(id note.ID) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Edge(nil), s.edges[id]...)
}

// Backlinks returns id's incoming edges ordered by source key, then
// link index.
func (s *Store) Backlinks(id note.ID) []Backlink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bls := make([]Backlink, 0, len(s.backlinks[id]))
	for bl := range s.backlinks[id] {
		bls = append(bls, bl)
	}
	sort.Slice(bls, func(a, b int) bool {
		ka := s.notes[bls[a].Source].Key
		kb := s.notes[bls[b].Source].Key
		if ka != kb {
			return ka < kb
		}
		return bls[a].Index < bls[b].Index
	})
	return bls
}

// Generation identifies the current (path, key) set.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Version identifies the current graph state, counting every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// SeedIdentity restores a path->id mapping from the persistent cache
// before the first scan.
func (s *Store) SeedIdentity(path string, id note.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry.Seed(path, id)
}
