package refactor

import (
	"fmt"
	"sync"
)

// History is the bounded stack of inverse plans backing undo. Pushing
// past the depth limit drops the oldest entry.
type History struct {
	mu    sync.Mutex
	depth int
	stack []*Plan
}

// NewHistory creates a stack bounded to depth (default 5 when zero).
func NewHistory(depth int) *History {
	if depth <= 0 {
		depth = 5
	}
	return &History{depth: depth}
}

// Push records an inverse plan.
func (h *History) Push(p *Plan) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack = append(h.stack, p)
	if len(h.stack) > h.depth {
		h.stack = h.stack[len(h.stack)-h.depth:]
	}
}

// Len returns the number of undoable operations.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stack)
}

func (h *History) pop() (*Plan, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) == 0 {
		return nil, false
	}
	p := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	return p, true
}

func (h *History) push(p *Plan) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stack = append(h.stack, p)
}

// Undo pops the most recent inverse plan after verifying that every
// affected file still carries the digest captured when the plan was
// built. A mismatch rejects the undo and leaves the stack untouched.
func (p *Planner) Undo() (*Plan, error) {
	inv, ok := p.history.pop()
	if !ok {
		return nil, fmt.Errorf("nothing to undo: %w", ErrNotFound)
	}
	for _, pre := range inv.Preconditions {
		digest, _, err := p.digestOf(pre.Path)
		if err != nil || digest != pre.Digest {
			p.history.push(inv)
			return nil, fmt.Errorf("%s changed since the operation: %w", pre.Path, ErrConflict)
		}
	}
	return inv, nil
}
