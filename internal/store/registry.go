package store

import (
	"github.com/dendrite-md/dendrite/internal/note"
)

// maxRetired bounds the pool of released identities kept around for
// rename matching.
const maxRetired = 1024

// Registry maps vault-relative paths to stable note ids. Identity
// survives a rename when the new file's content digest matches a
// recently released one; otherwise a fresh id is allocated. Two live
// paths never share an id.
type Registry struct {
	live    map[string]note.ID
	retired []retiredID // most recent last
}

type retiredID struct {
	id     note.ID
	digest [32]byte
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: map[string]note.ID{}}
}

// Acquire returns the id for path, reviving a retired identity when the
// digest matches, or allocating a new one.
func (r *Registry) Acquire(path string, digest [32]byte) note.ID {
	if id, ok := r.live[path]; ok {
		return id
	}
	for i := len(r.retired) - 1; i >= 0; i-- {
		if r.retired[i].digest == digest {
			id := r.retired[i].id
			r.retired = append(r.retired[:i], r.retired[i+1:]...)
			r.live[path] = id
			return id
		}
	}
	id := note.NewID()
	r.live[path] = id
	return id
}

// Release retires the identity for path so a subsequent Acquire with
// the same digest (the rename counterpart) gets it back.
func (r *Registry) Release(path string, digest [32]byte) (note.ID, bool) {
	id, ok := r.live[path]
	if !ok {
		return note.ID{}, false
	}
	delete(r.live, path)
	r.retired = append(r.retired, retiredID{id: id, digest: digest})
	if len(r.retired) > maxRetired {
		r.retired = r.retired[len(r.retired)-maxRetired:]
	}
	return id, true
}

// Rename moves the identity from oldPath to newPath directly; Store.Rename
// uses it when both paths of a rename are known.
func (r *Registry) Rename(oldPath, newPath string) (note.ID, bool) {
	id, ok := r.live[oldPath]
	if !ok {
		return note.ID{}, false
	}
	delete(r.live, oldPath)
	r.live[newPath] = id
	return id, true
}

// Lookup returns the live id for path.
func (r *Registry) Lookup(path string) (note.ID, bool) {
	id, ok := r.live[path]
	return id, ok
}

// Seed restores a live mapping from a cache snapshot.
func (r *Registry) Seed(path string, id note.ID) {
	r.live[path] = id
}
