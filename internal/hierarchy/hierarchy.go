// Package hierarchy projects the flat note set into the key tree served
// to clients. Keys with descendants but no backing file appear as ghost
// nodes. The projection is cached per store generation and rebuilt
// lazily, so only add/remove/rename pay for it.
package hierarchy

import (
	"sort"
	"strings"
	"sync"

	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/store"
)

// Node is one tree entry. Ghost nodes carry a key and children only.
type Node struct {
	Key      note.Key
	ID       note.ID // zero for ghosts
	Path     string  // empty for ghosts
	Name     string
	Ghost    bool
	Children []*Node
}

// Tree is an immutable hierarchy snapshot.
type Tree struct {
	Roots      []*Node
	Generation uint64
}

// Walk visits every node depth-first in display order.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var rec func(nodes []*Node, depth int)
	rec = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			rec(n.Children, depth+1)
		}
	}
	rec(t.Roots, 0)
}

// Builder memoises the tree under its own read/write lock, keyed by the
// store's generation counter.
type Builder struct {
	store *store.Store
	model model.Model

	mu     sync.RWMutex
	cached *Tree
}

// NewBuilder creates a builder over the store.
func NewBuilder(s *store.Store, m model.Model) *Builder {
	return &Builder{store: s, model: m}
}

// Tree returns the current hierarchy, rebuilding only when the store's
// (path, key) set has changed since the cached snapshot.
func (b *Builder) Tree() *Tree {
	gen := b.store.Generation()

	b.mu.RLock()
	cached := b.cached
	b.mu.RUnlock()
	if cached != nil && cached.Generation == gen {
		return cached
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cached != nil && b.cached.Generation == gen {
		return b.cached
	}
	b.cached = Build(b.store, b.model, gen)
	return b.cached
}

// Invalidate drops the cached snapshot. The next Tree call rebuilds.
func (b *Builder) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cached = nil
}

// Build constructs the tree from scratch: every note contributes its
// key, every missing ancestor becomes a ghost.
func Build(s *store.Store, m model.Model, generation uint64) *Tree {
	nodes := map[note.Key]*Node{}

	ensure := func(key note.Key) *Node {
		if n, ok := nodes[key]; ok {
			return n
		}
		n := &Node{Key: key, Ghost: true, Name: model.LastSegment(key)}
		nodes[key] = n
		return n
	}

	for _, n := range s.All() {
		node := ensure(n.Key)
		node.Ghost = false
		node.ID = n.ID
		node.Path = n.Path
		node.Name = m.DisplayName(n)

		for key := n.Key; ; {
			parent, ok := m.Parent(key)
			if !ok {
				break
			}
			ensure(parent)
			key = parent
		}
	}

	var roots []*Node
	for key, node := range nodes {
		if parent, ok := m.Parent(key); ok {
			p := nodes[parent]
			p.Children = append(p.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	sortNodes(roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}

	return &Tree{Roots: roots, Generation: generation}
}

// sortNodes orders siblings by display name, case-insensitive, with the
// key as a stable tie-break.
func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(a, b int) bool {
		na := strings.ToLower(nodes[a].Name)
		nb := strings.ToLower(nodes[b].Name)
		if na != nb {
			return na < nb
		}
		return nodes[a].Key < nodes[b].Key
	})
}
