package vfs

import (
	"context"
	"sync"
	"time"
)

// Overlay shadows on-disk content with open editor buffers. While a
// document is open its in-memory bytes win for Read and Stat; List and
// Watch pass through to the base backend.
type Overlay struct {
	base FS

	mu     sync.RWMutex
	open   map[string][]byte
	mtimes map[string]time.Time
}

// NewOverlay wraps base with an empty overlay.
func NewOverlay(base FS) *Overlay {
	return &Overlay{
		base:   base,
		open:   map[string][]byte{},
		mtimes: map[string]time.Time{},
	}
}

// Base returns the wrapped backend.
func (o *Overlay) Base() FS { return o.base }

// Open installs (or replaces) the buffer for a path.
func (o *Overlay) Open(p string, content []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.open[p] = append([]byte(nil), content...)
	o.mtimes[p] = time.Now()
}

// Close drops the buffer; disk content is authoritative again.
func (o *Overlay) Close(p string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.open, p)
	delete(o.mtimes, p)
}

// IsOpen reports whether a buffer shadows the path.
func (o *Overlay) IsOpen(p string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.open[p]
	return ok
}

func (o *Overlay) Read(p string) ([]byte, error) {
	o.mu.RLock()
	buf, ok := o.open[p]
	o.mu.RUnlock()
	if ok {
		return append([]byte(nil), buf...), nil
	}
	return o.base.Read(p)
}

func (o *Overlay) Stat(p string) (FileInfo, error) {
	o.mu.RLock()
	buf, ok := o.open[p]
	mtime := o.mtimes[p]
	o.mu.RUnlock()
	if ok {
		return FileInfo{MTime: mtime, Size: int64(len(buf))}, nil
	}
	return o.base.Stat(p)
}

func (o *Overlay) List(ctx context.Context, filter Filter) ([]string, error) {
	return o.base.List(ctx, filter)
}

func (o *Overlay) Watch(ctx context.Context, ch chan<- Event) error {
	return o.base.Watch(ctx, ch)
}
