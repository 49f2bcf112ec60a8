package refactor

import (
	"context"
	"fmt"
	"strings"

	"github.com/dendrite-md/dendrite/internal/note"
)

// KeyPair is one (old, new) key mapping of a reorganize preview.
type KeyPair struct {
	Old note.Key
	New note.Key
}

// ReorganizePairs is the dry-run pass: the key mapping the full plan
// would perform, in key order, with no edits computed.
func (p *Planner) ReorganizePairs(ctx context.Context, oldPrefix, newPrefix string) ([]KeyPair, error) {
	var pairs []KeyPair
	for _, n := range p.store.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		newKey, ok := remapKey(n.Key, oldPrefix, newPrefix)
		if !ok {
			continue
		}
		pairs = append(pairs, KeyPair{Old: n.Key, New: newKey})
	}
	return pairs, nil
}

// Reorganize plans renaming every note under oldPrefix to the matching
// key under newPrefix. Edits across the member renames merge per file
// so each file is opened once.
func (p *Planner) Reorganize(ctx context.Context, oldPrefix, newPrefix string) (*Plan, error) {
	pairs, err := p.ReorganizePairs(ctx, oldPrefix, newPrefix)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no notes under %q: %w", oldPrefix, ErrNotFound)
	}

	planned := map[note.ID]note.Key{}
	newKeys := map[note.Key]bool{}
	for _, pair := range pairs {
		n, ok := p.store.NoteByKey(pair.Old)
		if !ok {
			continue
		}
		if newKeys[pair.New] {
			return nil, fmt.Errorf("duplicate target key %q: %w", pair.New, ErrConflict)
		}
		newKeys[pair.New] = true
		planned[n.ID] = pair.New
	}

	var moves []keyMove
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, _ := p.store.NoteByKey(pair.Old)
		mv, err := p.checkMove(n.ID, pair.New, planned)
		if err != nil {
			return nil, err
		}
		moves = append(moves, mv...)
	}

	plan, err := p.renamePlan(KindReorganize, moves)
	if err != nil {
		return nil, err
	}
	p.remember(plan)
	return plan, nil
}

// remapKey rewrites key from the old prefix to the new one. A key
// matches when it equals oldPrefix or starts with "oldPrefix.".
func remapKey(key note.Key, oldPrefix, newPrefix string) (note.Key, bool) {
	k := string(key)
	if k == oldPrefix {
		return note.Key(newPrefix), true
	}
	if strings.HasPrefix(k, oldPrefix+".") {
		return note.Key(newPrefix + k[len(oldPrefix):]), true
	}
	return "", false
}
