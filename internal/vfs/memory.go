package vfs

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Memory is the in-memory backend used by tests and fixtures. Events
// are injected explicitly with Emit; writes through the WritableFS
// surface emit the matching events automatically so a test vault
// behaves like a watched directory.
type Memory struct {
	mu   sync.Mutex
	afs  afero.Fs
	subs []chan<- Event
}

// NewMemory creates an empty in-memory vault.
func NewMemory() *Memory {
	return &Memory{afs: afero.NewMemMapFs()}
}

// NewMemoryFrom seeds a vault from a path->content map.
func NewMemoryFrom(files map[string]string) *Memory {
	m := NewMemory()
	for p, content := range files {
		_ = afero.WriteFile(m.afs, p, []byte(content), 0o644)
	}
	return m
}

func (m *Memory) Read(p string) ([]byte, error) {
	return afero.ReadFile(m.afs, p)
}

func (m *Memory) List(ctx context.Context, filter Filter) ([]string, error) {
	return listAfero(ctx, m.afs, filter)
}

func (m *Memory) Stat(p string) (FileInfo, error) {
	info, err := m.afs.Stat(p)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{MTime: info.ModTime(), Size: info.Size()}, nil
}

func (m *Memory) Watch(ctx context.Context, ch chan<- Event) error {
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subs {
			if sub == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				break
			}
		}
	}()
	return nil
}

// Emit delivers an event to every watcher.
func (m *Memory) Emit(ev Event) {
	m.mu.Lock()
	subs := make([]chan<- Event, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()
	for _, ch := range subs {
		ch <- ev
	}
}

func (m *Memory) WriteFile(p string, data []byte) error {
	_, statErr := m.afs.Stat(p)
	if err := afero.WriteFile(m.afs, p, data, 0o644); err != nil {
		return err
	}
	// MemMapFs timestamps have coarse resolution; bump mtime so the
	// metadata tier notices back-to-back writes.
	_ = m.afs.Chtimes(p, time.Now(), time.Now())
	if statErr != nil {
		m.Emit(Event{Kind: Created, Path: p})
	} else {
		m.Emit(Event{Kind: Modified, Path: p})
	}
	return nil
}

func (m *Memory) Rename(oldPath, newPath string) error {
	if err := m.afs.Rename(oldPath, newPath); err != nil {
		return err
	}
	m.Emit(Event{Kind: Renamed, Path: oldPath})
	m.Emit(Event{Kind: Created, Path: newPath})
	return nil
}

func (m *Memory) Remove(p string) error {
	if err := m.afs.Remove(p); err != nil {
		return err
	}
	m.Emit(Event{Kind: Deleted, Path: p})
	return nil
}
