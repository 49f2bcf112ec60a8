package cachefile

import (
	"log"
	"sync"
	"time"

	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

// Writer schedules snapshot writes after a quiet period. At most one
// write is pending; every mutation notification pushes it out, so a
// busy indexer never stalls on cache I/O. Close flushes synchronously.
type Writer struct {
	fs       vfs.WritableFS
	source   func() []*note.Note
	interval time.Duration

	notifyCh chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}

	mu      sync.Mutex
	running bool
}

// NewWriter creates a debounced writer. source supplies the notes to
// snapshot at write time; interval is the idle period (default 5s when
// zero).
func NewWriter(fs vfs.WritableFS, source func() []*note.Note, interval time.Duration) *Writer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Writer{
		fs:       fs,
		source:   source,
		interval: interval,
		notifyCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background loop.
func (w *Writer) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()
	go w.run()
}

// Notify records a store mutation, (re)arming the idle timer.
func (w *Writer) Notify() {
	select {
	case w.notifyCh <- struct{}{}:
	default:
	}
}

// Close stops the loop and flushes any pending snapshot synchronously.
func (w *Writer) Close() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
}

// Flush writes the snapshot immediately.
func (w *Writer) Flush() {
	if err := Save(w.fs, w.source()); err != nil {
		log.Printf("[cache] write snapshot: %v", err)
	}
}

func (w *Writer) run() {
	defer close(w.doneCh)

	timer := time.NewTimer(w.interval)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-w.notifyCh:
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.interval)
			pending = true
		case <-timer.C:
			pending = false
			w.Flush()
		case <-w.stopCh:
			if pending && !timer.Stop() {
				<-timer.C
			}
			// A Notify buffered before Close may lose the select race to
			// stopCh; it still counts as a pending write.
			select {
			case <-w.notifyCh:
				pending = true
			default:
			}
			if pending {
				w.Flush()
			}
			return
		}
	}
}
