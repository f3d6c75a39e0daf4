package graph

import (
	"maps"
	"slices"

	"github.com/dusk-indust/modgraph/internal/record"
)

// Builder derives one ModuleGraph per entrypoint from a record snapshot.
// Build is a pure function of its input apart from the resolver cache.
type Builder struct {
	resolver *Resolver
}

// NewBuilder returns a Builder resolving specifiers through r. A nil r
// resolves without caching.
func NewBuilder(r *Resolver) *Builder {
	return &Builder{resolver: r}
}

// Build returns the graphs of every entrypoint in records.
func (b *Builder) Build(records map[string]record.FileRecord) Graphs {
	idx := newEdgeIndex(records)
	graphs := make(Graphs)
	for _, u := range idx.urls {
		if records[u].Entrypoint {
			graphs[u] = b.buildOne(u, records, idx)
		}
	}
	return graphs
}

// edgeIndex holds the reverse lookups the redirect and initiator rules need,
// each child list in sorted URL order.
type edgeIndex struct {
	urls              []string
	redirectChildren  map[string][]string
	initiatorChildren map[string][]string
}

func newEdgeIndex(records map[string]record.FileRecord) *edgeIndex {
	idx := &edgeIndex{
		urls:              sortedKeys(records),
		redirectChildren:  make(map[string][]string),
		initiatorChildren: make(map[string][]string),
	}
	for _, u := range idx.urls {
		r := records[u]
		if r.RedirectedFrom != "" && r.RedirectedFrom != u {
			idx.redirectChildren[r.RedirectedFrom] = append(idx.redirectChildren[r.RedirectedFrom], u)
		}
		if from := r.Initiator.FromURL; from != "" && from != u {
			idx.initiatorChildren[from] = append(idx.initiatorChildren[from], u)
		}
	}
	return idx
}

func (b *Builder) buildOne(entry string, records map[string]record.FileRecord, idx *edgeIndex) ModuleGraph {
	g := make(ModuleGraph)
	var visit func(u string)
	visit = func(u string) {
		if _, seen := g[u]; seen {
			return
		}
		rec, ok := records[u]
		if !ok {
			return
		}
		node := &Node{Record: rec}
		g[u] = node
		node.Dependencies = b.dependencies(rec, records, idx)
		for _, d := range node.Dependencies {
			visit(d.URL)
		}
	}
	visit(entry)
	return g
}

// dependencies applies the four edge rules to rec in order: redirects,
// initiator children, declared imports, then imports-files backlinks.
func (b *Builder) dependencies(rec record.FileRecord, records map[string]record.FileRecord, idx *edgeIndex) []Dependency {
	var deps []Dependency
	seen := make(map[string]bool)
	add := func(target string, reason EdgeReason) {
		if target == rec.URL || seen[target] {
			return
		}
		t, ok := records[target]
		if !ok {
			return
		}
		seen[target] = true
		deps = append(deps, Dependency{
			URL:       target,
			Reason:    reason,
			Initiator: t.Initiator,
			Inline:    t.IsInline,
		})
	}

	for _, child := range idx.redirectChildren[rec.URL] {
		add(child, ReasonRedirect)
	}
	for _, child := range idx.initiatorChildren[rec.URL] {
		add(child, ReasonInitiator)
	}
	for _, imp := range rec.Imports {
		target, ok := b.resolver.Resolve(rec.URL, imp.Specifier)
		if !ok {
			continue
		}
		reason := ReasonStaticImport
		if imp.Style == record.StyleDynamic {
			reason = ReasonDynamicImport
		}
		add(target, reason)
	}
	for _, target := range rec.ImportsFiles {
		add(target, ReasonImportsFiles)
	}
	return deps
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	return slices.Sorted(maps.Keys(m))
}
