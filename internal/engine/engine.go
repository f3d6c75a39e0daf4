// Package engine owns the record store and keeps the per-entrypoint module
// graphs in step with it. Merges are coalesced by a debounce window; each
// window produces one full rebuild.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/dusk-indust/modgraph/internal/graph"
	"github.com/dusk-indust/modgraph/internal/record"
)

// DefaultDebounce is the quiet period after the last merge before graphs are
// rebuilt.
const DefaultDebounce = 150 * time.Millisecond

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind misses events rather than stalling the engine.
const subscriberBuffer = 16

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce sets the debounce window. Zero or negative rebuilds on the next
// loop iteration.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// WithResolverCacheSize sets the size of the specifier resolution cache.
func WithResolverCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// Engine is the entry point for record ingestion and graph queries. It is
// safe for concurrent use. Call Close to stop the rebuild loop.
type Engine struct {
	store    *record.Store
	resolver *graph.Resolver
	builder  *graph.Builder

	debounce  time.Duration
	cacheSize int

	mu           sync.RWMutex
	graphs       graph.Graphs
	builtVersion uint64

	subMu   sync.Mutex
	subs    map[int]chan record.Change
	nextSub int

	// afterBuild, when set, runs between building and installing graphs.
	afterBuild func()

	kick     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an Engine with an empty store and starts its rebuild loop.
func New(opts ...Option) *Engine {
	e := &Engine{
		debounce: DefaultDebounce,
		graphs:   make(graph.Graphs),
		subs:     make(map[int]chan record.Change),
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = graph.NewResolver(e.cacheSize)
	e.builder = graph.NewBuilder(e.resolver)
	e.store = record.NewStore(record.WithOnChange(e.onStoreChange))

	e.wg.Add(1)
	go e.debounceLoop()
	return e
}

// Store returns the underlying record store. Ingestion uses it for the
// redirect and pending-script side tables.
func (e *Engine) Store() *record.Store {
	return e.store
}

// MergeRecord merges fields into the record for url and schedules a rebuild.
func (e *Engine) MergeRecord(url string, fields record.PartialRecord) record.FileRecord {
	return e.store.Merge(url, fields)
}

// Snapshot returns a copy of every record.
func (e *Engine) Snapshot() record.Snapshot {
	return e.store.Snapshot()
}

// ClearAll drops every record, every graph and every cached resolution. A
// rebuild already running or pending when ClearAll is called will not publish
// a result for the dropped records.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	e.store.Clear()
	e.graphs = make(graph.Graphs)
	snap := e.store.Snapshot()
	e.builtVersion = snap.Version
	e.mu.Unlock()

	e.resolver.Purge()
	e.publish(record.Change{Kind: record.ChangeCleared, Epoch: snap.Epoch, Version: snap.Version})
}

// GetGraphs returns the most recently built graphs. The result is shared and
// must be treated as read-only.
func (e *Engine) GetGraphs() graph.Graphs {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graphs
}

// Version returns the store version the current graphs were built from.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.builtVersion
}

// FindInitiatorPaths returns every distinct import chain from an entrypoint
// to url over the current graphs.
func (e *Engine) FindInitiatorPaths(url string) []graph.Path {
	return graph.FindPaths(e.GetGraphs(), url, e.resolver)
}

// GetTree renders the current graph of entry as indented rows.
func (e *Engine) GetTree(entry string) []graph.DisplayNode {
	return graph.BuildTree(e.GetGraphs(), entry)
}

// Flush rebuilds synchronously from the current store contents and returns
// the resulting graphs.
func (e *Engine) Flush() graph.Graphs {
	e.rebuild()
	return e.GetGraphs()
}

// Subscribe returns a channel receiving one Change per published rebuild or
// clear, and a function that cancels the subscription.
func (e *Engine) Subscribe() (<-chan record.Change, func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSub
	e.nextSub++
	ch := make(chan record.Change, subscriberBuffer)
	e.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			e.subMu.Lock()
			defer e.subMu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Close stops the rebuild loop and closes every subscription.
func (e *Engine) Close() error {
	e.stopOnce.Do(func() {
		close(e.done)
	})
	e.wg.Wait()

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	return nil
}

// onStoreChange runs after every store mutation. Clears are published by
// ClearAll itself, so only merges arm the debouncer.
func (e *Engine) onStoreChange(c record.Change) {
	if c.Kind != record.ChangeMerged {
		return
	}
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// rebuild builds graphs from a fresh snapshot and installs them unless the
// store was cleared meanwhile or a build of the same or a newer version
// already landed.
func (e *Engine) rebuild() {
	snap := e.store.Snapshot()
	graphs := e.builder.Build(snap.Records)
	if e.afterBuild != nil {
		e.afterBuild()
	}

	e.mu.Lock()
	if epoch := e.store.Epoch(); snap.Epoch != epoch {
		e.mu.Unlock()
		log.Printf("engine: discarding rebuild from epoch %d (now %d)", snap.Epoch, epoch)
		return
	}
	if snap.Version <= e.builtVersion {
		e.mu.Unlock()
		return
	}
	e.graphs = graphs
	e.builtVersion = snap.Version
	e.mu.Unlock()

	e.publish(record.Change{Kind: record.ChangeMerged, Epoch: snap.Epoch, Version: snap.Version})
}

func (e *Engine) publish(c record.Change) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- c:
		default:
			log.Printf("engine: subscriber full, dropping %s event (version %d)", c.Kind, c.Version)
		}
	}
}
