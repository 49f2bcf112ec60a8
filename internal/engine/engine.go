// Package engine wires the vault pipeline into the single long-lived
// object the transport talks to. The engine owns the store, the
// indexer, the persistent cache writer, and the planner; handlers
// receive it explicitly; there are no process-wide singletons.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/dendrite-md/dendrite/internal/cachefile"
	"github.com/dendrite-md/dendrite/internal/config"
	"github.com/dendrite-md/dendrite/internal/hierarchy"
	"github.com/dendrite-md/dendrite/internal/index"
	"github.com/dendrite-md/dendrite/internal/model"
	"github.com/dendrite-md/dendrite/internal/note"
	"github.com/dendrite-md/dendrite/internal/query"
	"github.com/dendrite-md/dendrite/internal/refactor"
	"github.com/dendrite-md/dendrite/internal/store"
	"github.com/dendrite-md/dendrite/internal/vfs"

	ignore "github.com/sabhiram/go-gitignore"
)

// Engine is the authoritative holder of derived vault knowledge.
type Engine struct {
	cfg  *config.Config
	opts config.Options

	base    vfs.FS
	overlay *vfs.Overlay
	model   model.Model
	store   *store.Store
	indexer *index.Indexer
	queries *query.Queries
	planner *refactor.Planner
	hier    *hierarchy.Builder
	cacheW  *cachefile.Writer

	mu      sync.Mutex
	lastGen uint64
	subs    []chan struct{}

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles an engine over a vault backend. The backend should be
// the raw one; the engine adds the overlay layer itself.
func New(base vfs.FS, cfg *config.Config, opts config.Options) (*Engine, error) {
	m, ok := model.Lookup(cfg.Semantic.Model)
	if !ok {
		return nil, fmt.Errorf("unknown semantic model %q", cfg.Semantic.Model)
	}

	overlay := vfs.NewOverlay(base)
	st := store.New(m)

	filter := vfs.Filter{Extensions: m.Extensions()}
	if patterns := cfg.Workspace.IgnorePatterns; len(patterns) > 0 {
		filter.Ignore = ignore.CompileIgnoreLines(patterns...)
	}

	e := &Engine{
		cfg:     cfg,
		opts:    opts,
		base:    base,
		overlay: overlay,
		model:   m,
		store:   st,
		queries: query.New(st, m, overlay),
		planner: refactor.New(st, m, overlay, opts.MutationHistoryLimit),
		hier:    hierarchy.NewBuilder(st, m),
	}
	e.indexer = index.New(overlay, filter, st, m, index.Config{})
	e.indexer.OnMutation(e.onMutation)

	if opts.CacheEnabled {
		if wfs, ok := base.(vfs.WritableFS); ok {
			e.cacheW = cachefile.NewWriter(wfs, st.All, opts.CacheSaveInterval)
		}
	}
	return e, nil
}

// Start loads the persistent cache, runs the initial scan, and begins
// watching. It returns once the vault is fully indexed.
func (e *Engine) Start(ctx context.Context) error {
	if e.opts.CacheEnabled {
		notes, err := cachefile.Load(e.base)
		switch {
		case errors.Is(err, cachefile.ErrSchemaVersion):
			log.Printf("[engine] cache discarded: %v", err)
		case err != nil:
			log.Printf("[engine] cache unreadable: %v", err)
		default:
			e.seed(notes)
		}
	}

	if _, err := e.indexer.FullScan(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.indexer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[engine] watcher stopped: %v", err)
		}
	}()
	if e.cacheW != nil {
		e.cacheW.Start()
	}
	e.mu.Lock()
	e.lastGen = e.store.Generation()
	e.mu.Unlock()
	return nil
}

// Shutdown stops watching and flushes the cache synchronously.
func (e *Engine) Shutdown() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	if e.cacheW != nil {
		e.cacheW.Close()
	}
}

// seed restores cached notes, wiring identities before the first scan
// so the metadata tier can trust them.
func (e *Engine) seed(notes []*note.Note) {
	for _, n := range notes {
		e.store.SeedIdentity(n.Path, n.ID)
		if _, err := e.store.Upsert(n); err != nil {
			log.Printf("[engine] cache seed %s: %v", n.Path, err)
		}
	}
	log.Printf("[engine] seeded %d notes from cache", len(notes))
}

// onMutation runs after every applied store change, on whichever
// goroutine applied it: a scan worker, the watch loop, or an IndexPath
// caller.
func (e *Engine) onMutation() {
	if e.cacheW != nil {
		e.cacheW.Notify()
	}
	gen := e.store.Generation()
	e.mu.Lock()
	changed := gen != e.lastGen
	e.lastGen = gen
	subs := e.subs
	e.mu.Unlock()
	if changed {
		e.hier.Invalidate()
		for _, ch := range subs {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// SubscribeHierarchy returns a channel that pulses whenever the
// hierarchy invalidates, backing the hierarchyChanged notification.
func (e *Engine) SubscribeHierarchy() <-chan struct{} {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

// Store exposes the graph for read-only use.
func (e *Engine) Store() *store.Store { return e.store }

// Queries exposes the read surface.
func (e *Engine) Queries() *query.Queries { return e.queries }

// Planner exposes the refactor planner.
func (e *Engine) Planner() *refactor.Planner { return e.planner }

// Model returns the active semantic model.
func (e *Engine) Model() model.Model { return e.model }

// Indexer exposes scan control for the CLI.
func (e *Engine) Indexer() *index.Indexer { return e.indexer }

// --------------------------------------------------------------------
// Document overlay (textDocument/didOpen|Change|Save|Close)
// --------------------------------------------------------------------

// OpenDocument installs an editor buffer; its content shadows disk for
// parsing and queries until closed.
func (e *Engine) OpenDocument(path string, content []byte) {
	e.overlay.Open(path, content)
	e.indexer.IndexPath(path)
}

// ChangeDocument replaces the buffer content.
func (e *Engine) ChangeDocument(path string, content []byte) {
	e.overlay.Open(path, content)
	e.indexer.IndexPath(path)
}

// SaveDocument reconciles a just-saved file. The buffer usually equals
// the disk content at this point, so the digest tier settles it.
func (e *Engine) SaveDocument(path string) {
	e.indexer.IndexPath(path)
}

// CloseDocument drops the buffer; disk wins again.
func (e *Engine) CloseDocument(path string) {
	e.overlay.Close(path)
	e.indexer.IndexPath(path)
}
