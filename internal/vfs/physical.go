package vfs

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Physical is the on-disk backend rooted at the vault directory.
// Reads and listing go through an afero BasePathFs; watching uses
// fsnotify with recursive directory registration.
type Physical struct {
	root string
	afs  afero.Fs
}

// NewPhysical creates a backend rooted at the absolute vault path.
func NewPhysical(root string) *Physical {
	return &Physical{
		root: root,
		afs:  afero.NewBasePathFs(afero.NewOsFs(), root),
	}
}

// Root returns the absolute vault directory.
func (p *Physical) Root() string { return p.root }

func (p *Physical) Read(rel string) ([]byte, error) {
	return afero.ReadFile(p.afs, filepath.FromSlash(rel))
}

func (p *Physical) List(ctx context.Context, filter Filter) ([]string, error) {
	return listAfero(ctx, p.afs, filter)
}

func (p *Physical) Stat(rel string) (FileInfo, error) {
	info, err := p.afs.Stat(filepath.FromSlash(rel))
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{MTime: info.ModTime(), Size: info.Size()}, nil
}

func (p *Physical) WriteFile(rel string, data []byte) error {
	full := filepath.FromSlash(rel)
	if dir := filepath.Dir(full); dir != "." {
		if err := p.afs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return afero.WriteFile(p.afs, full, data, 0o644)
}

func (p *Physical) Rename(oldRel, newRel string) error {
	newFull := filepath.FromSlash(newRel)
	if dir := filepath.Dir(newFull); dir != "." {
		if err := p.afs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return p.afs.Rename(filepath.FromSlash(oldRel), newFull)
}

func (p *Physical) Remove(rel string) error {
	return p.afs.Remove(filepath.FromSlash(rel))
}

// Watch registers every directory under the root (new directories are
// picked up as their create events arrive) and forwards notifications
// until ctx is cancelled.
func (p *Physical) Watch(ctx context.Context, ch chan<- Event) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	addDirs := func(dir string) {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != dir {
					return fs.SkipDir
				}
				if err := w.Add(path); err != nil {
					log.Printf("[watch] add %s: %v", path, err)
				}
			}
			return nil
		})
	}
	addDirs(p.root)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				rel, err := filepath.Rel(p.root, ev.Name)
				if err != nil {
					continue
				}
				rel = normalize(rel)
				if rel == "" || strings.HasPrefix(rel, ".") {
					continue
				}
				if ev.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
						addDirs(ev.Name)
						continue
					}
				}
				out, ok := mapOp(ev.Op, rel)
				if !ok {
					continue
				}
				select {
				case ch <- out:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("[watch] %v", err)
			}
		}
	}()
	return nil
}

func mapOp(op fsnotify.Op, rel string) (Event, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return Event{Kind: Created, Path: rel}, true
	case op.Has(fsnotify.Write):
		return Event{Kind: Modified, Path: rel}, true
	case op.Has(fsnotify.Remove):
		return Event{Kind: Deleted, Path: rel}, true
	case op.Has(fsnotify.Rename):
		// fsnotify reports only the old name; the paired create for
		// the new name arrives separately.
		return Event{Kind: Renamed, Path: rel}, true
	default:
		return Event{}, false
	}
}
