package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/modgraph/internal/graph"
	"github.com/dusk-indust/modgraph/internal/index"
	"github.com/dusk-indust/modgraph/internal/record"
)

// mermaidIDs hands out stable alphanumeric node IDs, since Mermaid cannot
// use URLs as identifiers.
type mermaidIDs struct {
	ids  map[string]string
	next int
}

func (m *mermaidIDs) get(url string) (string, bool) {
	if m.ids == nil {
		m.ids = make(map[string]string)
	}
	if id, ok := m.ids[url]; ok {
		return id, false
	}
	id := fmt.Sprintf("N%d", m.next)
	m.next++
	m.ids[url] = id
	return id, true
}

// GenerateMermaid produces a Mermaid graph TD diagram of the graph of entry,
// or of every graph when entry is empty. Entrypoints are drawn as stadiums,
// edges are labelled with their reason and edges that close a cycle are
// dotted.
func GenerateMermaid(graphs graph.Graphs, entry string) (string, error) {
	entries := graphs.Entrypoints()
	if entry != "" {
		if _, ok := graphs[entry]; !ok {
			return "", fmt.Errorf("export: no graph for entrypoint %s", entry)
		}
		entries = []string{entry}
	}

	var ids mermaidIDs
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	declare := func(n *graph.Node) string {
		id, isNew := ids.get(n.Record.URL)
		if isNew {
			label := escapeLabel(record.FileName(n.Record.URL))
			if n.Record.Entrypoint {
				sb.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", id, label))
			} else {
				sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, label))
			}
		}
		return id
	}

	written := make(map[string]bool)
	for _, e := range entries {
		g := graphs[e]
		back := backEdges(g, e)

		for _, u := range entryFirst(g, e) {
			src := declare(g[u])
			for _, d := range g[u].Dependencies {
				target, ok := g[d.URL]
				if !ok {
					continue
				}
				dst := declare(target)
				key := src + ">" + dst
				if written[key] {
					continue
				}
				written[key] = true
				arrow := "-->"
				if back[u+"\x00"+d.URL] {
					arrow = "-.->"
				}
				sb.WriteString(fmt.Sprintf("  %s %s|%s| %s\n", src, arrow, d.Reason, dst))
			}
		}
	}
	return sb.String(), nil
}

// GenerateMermaidFromStore produces a Mermaid graph TD diagram from a
// persisted index. Edges recorded under several entrypoints are drawn once.
func GenerateMermaidFromStore(ctx context.Context, store index.Store) (string, error) {
	modules, err := store.ListModules(ctx)
	if err != nil {
		return "", fmt.Errorf("list modules: %w", err)
	}
	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	var ids mermaidIDs
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, m := range modules {
		id, _ := ids.get(m.URL)
		if m.Entrypoint {
			sb.WriteString(fmt.Sprintf("  %s([\"%s\"])\n", id, escapeLabel(m.FileName)))
		} else {
			sb.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", id, escapeLabel(m.FileName)))
		}
	}

	written := make(map[string]bool)
	for _, e := range edges {
		src, _ := ids.get(e.SourceURL)
		dst, _ := ids.get(e.TargetURL)
		key := src + ">" + dst
		if written[key] {
			continue
		}
		written[key] = true
		sb.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", src, e.Reason, dst))
	}
	return sb.String(), nil
}

// backEdges returns the edges (keyed "from\x00to") that point at a node on
// the current DFS stack when walking g from entry.
func backEdges(g graph.ModuleGraph, entry string) map[string]bool {
	back := make(map[string]bool)
	state := make(map[string]int) // 1 on stack, 2 done
	var dfs func(u string)
	dfs = func(u string) {
		state[u] = 1
		if n, ok := g[u]; ok {
			for _, d := range n.Dependencies {
				switch state[d.URL] {
				case 0:
					dfs(d.URL)
				case 1:
					back[u+"\x00"+d.URL] = true
				}
			}
		}
		state[u] = 2
	}
	dfs(entry)
	return back
}

// entryFirst returns the URLs of g with entry first and the rest sorted.
func entryFirst(g graph.ModuleGraph, entry string) []string {
	out := []string{entry}
	for _, u := range sortedNodeURLs(g) {
		if u != entry {
			out = append(out, u)
		}
	}
	return out
}

func sortedNodeURLs(g graph.ModuleGraph) []string {
	out := make([]string, 0, len(g))
	for u := range g {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
