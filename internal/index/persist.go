package index

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/dusk-indust/modgraph/internal/graph"
	"github.com/dusk-indust/modgraph/internal/record"
)

// ModuleFromRecord projects a FileRecord onto the columns the index keeps.
func ModuleFromRecord(r record.FileRecord) ModuleNode {
	return ModuleNode{
		URL:         r.URL,
		FileName:    record.FileName(r.URL),
		Status:      r.Status,
		Size:        r.Size,
		Entrypoint:  r.Entrypoint,
		IsModule:    r.IsModule,
		IsInline:    r.IsInline,
		IsPending:   r.IsPending,
		SideEffects: r.SideEffects,
		TLA:         r.TLA,
		BarrelFile:  r.BarrelFile,
	}
}

// Persist replaces the contents of store with graphs. Every module of every
// graph is written first, then every dependency edge tagged with the
// entrypoint whose graph produced it.
func Persist(ctx context.Context, store Store, graphs graph.Graphs) error {
	if err := store.InitSchema(ctx); err != nil {
		return fmt.Errorf("index: init schema: %w", err)
	}
	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("index: clear: %w", err)
	}

	written := make(map[string]bool)
	for _, entry := range graphs.Entrypoints() {
		for _, url := range sortedURLs(graphs[entry]) {
			if written[url] {
				continue
			}
			written[url] = true
			if err := store.AddModule(ctx, ModuleFromRecord(graphs[entry][url].Record)); err != nil {
				return fmt.Errorf("index: add module %s: %w", url, err)
			}
		}
	}

	for _, entry := range graphs.Entrypoints() {
		g := graphs[entry]
		for _, url := range sortedURLs(g) {
			for _, d := range g[url].Dependencies {
				edge := Edge{SourceURL: url, TargetURL: d.URL, Reason: string(d.Reason), Entrypoint: entry}
				if err := store.AddEdge(ctx, edge); err != nil {
					return fmt.Errorf("index: add edge %s -> %s: %w", url, d.URL, err)
				}
			}
		}
	}
	return nil
}

func sortedURLs(g graph.ModuleGraph) []string {
	return slices.Sorted(maps.Keys(g))
}
