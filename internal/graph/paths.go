package graph

import (
	"strings"

	"github.com/dusk-indust/modgraph/internal/record"
)

// FindPaths returns every distinct chain of imports leading from an
// entrypoint to target. Only declared imports are followed, and only to
// nodes present in the same entrypoint's graph. A node already on the
// current chain is never revisited, so cycles terminate. If target is itself
// an entrypoint there is nothing to explain and the result is empty.
func FindPaths(graphs Graphs, target string, r *Resolver) []Path {
	if _, isEntry := graphs[target]; isEntry {
		return nil
	}

	var paths []Path
	seen := make(map[string]bool)

	for _, entry := range graphs.Entrypoints() {
		g := graphs[entry]
		if _, ok := g[target]; !ok {
			continue
		}

		onPath := map[string]bool{entry: true}
		var walk func(u string, chain []string)
		walk = func(u string, chain []string) {
			if u == target {
				sig := strings.Join(chain, "\x00")
				if !seen[sig] {
					seen[sig] = true
					paths = append(paths, toPath(g, chain))
				}
				return
			}
			node, ok := g[u]
			if !ok {
				return
			}
			for _, imp := range node.Record.Imports {
				next, ok := r.Resolve(u, imp.Specifier)
				if !ok || onPath[next] {
					continue
				}
				if _, inGraph := g[next]; !inGraph {
					continue
				}
				onPath[next] = true
				walk(next, append(chain[:len(chain):len(chain)], next))
				delete(onPath, next)
			}
		}
		walk(entry, []string{entry})
	}
	return paths
}

func toPath(g ModuleGraph, chain []string) Path {
	p := make(Path, len(chain))
	for i, u := range chain {
		step := PathStep{URL: u, FileName: record.FileName(u)}
		if n, ok := g[u]; ok {
			step.IsEntrypoint = n.Record.Entrypoint
		}
		p[i] = step
	}
	return p
}
