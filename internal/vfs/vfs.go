// Package vfs abstracts vault file access behind a small capability
// object so the engine can run against the real filesystem or an
// in-memory fixture. All paths are vault-relative with forward slashes;
// no backend performs link resolution.
package vfs

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// EventKind classifies a watch notification.
type EventKind int

const (
	Created EventKind = iota
	Modified
	Deleted
	Renamed
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Event is one change notification for a vault-relative path. A rename
// observed without its counterpart carries only the old path; the
// indexer recovers identity through the registry when the new file
// shows up.
type Event struct {
	Kind EventKind
	Path string
}

// FileInfo is the metadata pair driving the indexer's first
// invalidation tier.
type FileInfo struct {
	MTime time.Time
	Size  int64
}

// Filter restricts List to indexable files.
type Filter struct {
	Extensions []string
	Ignore     *ignore.GitIgnore
}

// Admit reports whether a vault-relative path passes the filter.
// Entries under dot-directories (".dendrite", ".git") never pass.
func (f Filter) Admit(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	if len(f.Extensions) > 0 {
		ext := strings.ToLower(path.Ext(p))
		ok := false
		for _, e := range f.Extensions {
			if ext == e {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Ignore != nil && f.Ignore.MatchesPath(p) {
		return false
	}
	return true
}

// ErrNotWatchable is returned by backends without change notification.
var ErrNotWatchable = errors.New("backend does not support watching")

// FS is the read side used by the indexer and the queries.
type FS interface {
	// Read returns the full content of a vault-relative path.
	Read(p string) ([]byte, error)

	// List returns every path admitted by the filter, sorted.
	List(ctx context.Context, filter Filter) ([]string, error)

	// Stat returns the change-detection metadata for a path.
	Stat(p string) (FileInfo, error)

	// Watch streams change events onto ch until ctx is done. The
	// caller owns coalescing; backends deliver raw notifications in
	// arrival order.
	Watch(ctx context.Context, ch chan<- Event) error
}

// WritableFS extends FS with the mutations a plan applier needs. The
// engine itself never writes through this; only the client side does.
type WritableFS interface {
	FS
	WriteFile(p string, data []byte) error
	Rename(oldPath, newPath string) error
	Remove(p string) error
}

// listAfero walks an afero tree collecting admitted files. Shared by
// both backends. The walk is rooted at "" so joined child paths stay
// relative and match the keys both backends store.
func listAfero(ctx context.Context, afs afero.Fs, filter Filter) ([]string, error) {
	var paths []string
	err := afero.Walk(afs, "", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p = normalize(p)
		if info.IsDir() {
			if p != "" && strings.HasPrefix(path.Base(p), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if filter.Admit(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// normalize converts backend separators to the canonical slash form and
// strips any leading "./".
func normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return strings.TrimPrefix(p, "/")
}
