// Package index drives the vault pipeline: scan, parse, assemble,
// upsert. Change detection is two-tier, (mtime, size) first and content
// digest second, so unchanged files cost a stat and touched-but-equal
// files cost a read, never a parse. A single writer applies watcher
// events in order; the initial scan fans parsing out across a bounded
// worker pool.
package index

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dendrite-md/dendrite/internal/assemble"
	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/parser"
	"github.com/dendrite-md/dendrite/internal/store"
	"github.com/dendrite-md/dendrite/internal/vfs"
)

// Outcome says which tier settled a path during indexing.
type Outcome int

const (
	// OutcomeSkipped means the metadata tier matched; nothing read.
	OutcomeSkipped Outcome = iota
	// OutcomeTouched means the digest matched; metadata was patched.
	OutcomeTouched
	// OutcomeParsed means the file went through the full pipeline.
	OutcomeParsed
	// OutcomeRemoved means the note was dropped.
	OutcomeRemoved
	// OutcomeIgnored means the semantic model rejected the path.
	OutcomeIgnored
	// OutcomeFailed means a read or upsert error; diagnostics recorded.
	OutcomeFailed
)

// Stats summarizes one scan.
type Stats struct {
	Scanned int
	Skipped int
	Touched int
	Parsed  int
	Removed int
	Bytes   int64
	Elapsed time.Duration
}

// Config tunes the indexer.
type Config struct {
	// Parallelism bounds the scan worker pool. Zero means GOMAXPROCS.
	Parallelism int
	// Debounce is the quiet window for coalescing watcher bursts.
	Debounce time.Duration
}

// Indexer owns the write path into the store.
type Indexer struct {
	fs     vfs.FS
	filter vfs.Filter
	store  *store.Store
	parser *parser.Parser
	model  model.Model
	cfg    Config

	// onMutation fires after every applied store change; the engine
	// hangs cache scheduling and hierarchy notifications off it.
	onMutation func()

	mu      sync.Mutex
	diags   map[string][]note.Diagnostic
	ignored map[string]bool
}

// New creates an indexer over the given backend and store.
func New(fs vfs.FS, filter vfs.Filter, st *store.Store, m model.Model, cfg Config) *Indexer {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 100 * time.Millisecond
	}
	return &Indexer{
		fs:      fs,
		filter:  filter,
		store:   st,
		parser:  parser.New(m.Extensions()),
		model:   m,
		cfg:     cfg,
		diags:   map[string][]note.Diagnostic{},
		ignored: map[string]bool{},
	}
}

// OnMutation installs the post-mutation hook. Call before FullScan or Run.
func (ix *Indexer) OnMutation(fn func()) { ix.onMutation = fn }

// Diagnostics returns the recorded per-path diagnostics.
func (ix *Indexer) Diagnostics() map[string][]note.Diagnostic {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	out := make(map[string][]note.Diagnostic, len(ix.diags))
	for p, d := range ix.diags {
		out[p] = append([]note.Diagnostic(nil), d...)
	}
	return out
}

// FullScan walks the vault, drops notes whose files are gone, and
// indexes every admitted path through the tier cascade. Parse work runs
// on the worker pool; store writes serialize on the store's lock.
func (ix *Indexer) FullScan(ctx context.Context) (Stats, error) {
	start := time.Now()
	var stats Stats

	paths, err := ix.fs.List(ctx, ix.filter)
	if err != nil {
		return stats, fmt.Errorf("list vault: %w", err)
	}
	stats.Scanned = len(paths)

	onDisk := make(map[string]bool, len(paths))
	for _, p := range paths {
		onDisk[p] = true
	}
	for _, n := range ix.store.All() {
		if !onDisk[n.Path] {
			if _, ok := ix.store.Remove(n.Path); ok {
				stats.Removed++
				ix.mutated()
			}
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Parallelism)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, nbytes := ix.indexPath(p, false)
			mu.Lock()
			defer mu.Unlock()
			stats.Bytes += nbytes
			switch outcome {
			case OutcomeSkipped:
				stats.Skipped++
			case OutcomeTouched:
				stats.Touched++
			case OutcomeParsed:
				stats.Parsed++
			case OutcomeRemoved, OutcomeIgnored:
				stats.Removed++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.Elapsed = time.Since(start)
	log.Printf("[index] scan: %d files, %d parsed, %d touched, %d skipped, %d removed in %s",
		stats.Scanned, stats.Parsed, stats.Touched, stats.Skipped, stats.Removed,
		stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}

// Run watches the vault and applies events until ctx is done. Bursts
// coalesce per path within the debounce window; application order
// follows first arrival.
func (ix *Indexer) Run(ctx context.Context) error {
	events := make(chan vfs.Event, 256)
	if err := ix.fs.Watch(ctx, events); err != nil {
		return fmt.Errorf("watch vault: %w", err)
	}

	var queue []vfs.Event
	var timer <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !ix.filter.Admit(ev.Path) {
				continue
			}
			queue = append(queue, ev)
			timer = time.After(ix.cfg.Debounce)
		case <-timer:
			batch := coalesce(queue)
			queue = nil
			timer = nil
			for _, ev := range batch {
				ix.Apply(ev)
			}
		}
	}
}

// Apply handles one change notification synchronously.
func (ix *Indexer) Apply(ev vfs.Event) {
	switch ev.Kind {
	case vfs.Deleted, vfs.Renamed:
		// A rename without its counterpart is a delete; the created
		// half revives the id through the registry's digest match.
		if _, ok := ix.store.Remove(ev.Path); ok {
			ix.clearDiags(ev.Path)
			ix.mutated()
		}
	case vfs.Created, vfs.Modified:
		// Events re-enter at the digest tier: mtime already changed.
		ix.indexPath(ev.Path, true)
	}
}

// IndexPath forces one path through the digest tier, used for overlay
// content changes.
func (ix *Indexer) IndexPath(path string) Outcome {
	out, _ := ix.indexPath(path, true)
	return out
}

// indexPath runs the tier cascade for one path. skipMetaTier is set for
// change events, where metadata is known stale.
func (ix *Indexer) indexPath(path string, skipMetaTier bool) (Outcome, int64) {
	ix.mu.Lock()
	ignored := ix.ignored[path]
	ix.mu.Unlock()
	if ignored {
		return OutcomeIgnored, 0
	}

	prev, hasPrev := ix.store.NoteByPath(path)

	info, err := ix.fs.Stat(path)
	if err != nil {
		// The file vanished between notification and read.
		if _, ok := ix.store.Remove(path); ok {
			ix.mutated()
			return OutcomeRemoved, 0
		}
		return OutcomeFailed, 0
	}

	if !skipMetaTier && hasPrev && prev.MTime.Equal(info.MTime) && prev.Size == info.Size {
		return OutcomeSkipped, 0
	}

	data, err := ix.fs.Read(path)
	if err != nil {
		ix.recordDiag(note.Diagnostic{
			Path:     path,
			Severity: note.SeverityError,
			Message:  fmt.Sprintf("read: %v", err),
		})
		return OutcomeFailed, 0
	}

	digest := sha256.Sum256(data)
	if hasPrev && digest == prev.Digest {
		ix.store.Touch(path, info.MTime, info.Size)
		return OutcomeTouched, int64(len(data))
	}

	res := ix.parser.Parse(path, data)
	n, err := assemble.Note(path, res, ix.model, info.MTime, info.Size)
	if err != nil {
		if errors.Is(err, model.ErrNotANote) {
			ix.mu.Lock()
			ix.ignored[path] = true
			ix.mu.Unlock()
			if _, ok := ix.store.Remove(path); ok {
				ix.mutated()
			}
			return OutcomeIgnored, int64(len(data))
		}
		ix.recordDiag(note.Diagnostic{
			Path:     path,
			Severity: note.SeverityError,
			Message:  fmt.Sprintf("assemble: %v", err),
		})
		return OutcomeFailed, int64(len(data))
	}

	if _, err := ix.store.Upsert(n); err != nil {
		ix.recordDiag(note.Diagnostic{
			Path:     path,
			Severity: note.SeverityError,
			Message:  err.Error(),
		})
		log.Printf("[index] upsert %s: %v", path, err)
		return OutcomeFailed, int64(len(data))
	}
	ix.clearDiags(path)
	if len(n.Diagnostics) > 0 {
		for _, d := range n.Diagnostics {
			ix.recordDiag(d)
		}
	}
	ix.mutated()
	return OutcomeParsed, int64(len(data))
}

func (ix *Indexer) mutated() {
	if ix.onMutation != nil {
		ix.onMutation()
	}
}

func (ix *Indexer) recordDiag(d note.Diagnostic) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.diags[d.Path] = append(ix.diags[d.Path], d)
}

func (ix *Indexer) clearDiags(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.diags, path)
}

// coalesce collapses a burst to one event per path, keeping first
// arrival order and the latest kind.
func coalesce(events []vfs.Event) []vfs.Event {
	latest := make(map[string]vfs.Event, len(events))
	var order []string
	for _, ev := range events {
		if _, seen := latest[ev.Path]; !seen {
			order = append(order, ev.Path)
		}
		latest[ev.Path] = ev
	}
	out := make([]vfs.Event, 0, len(order))
	for _, p := range order {
		out = append(out, latest[p])
	}
	return out
}
