package graph

import "github.com/dusk-indust/modgraph/internal/record"

const (
	branchMid  = "├── "
	branchLast = "└── "
	pipeMid    = "│   "
	pipeLast   = "    "
)

// BuildTree renders the graph of entry as a pre-order list of rows with
// box-drawing indentation. A node that repeats one of its own ancestors is
// emitted once with IsCircular set and not expanded. A node reached through
// two unrelated branches is expanded under both. Returns nil when entry has
// no graph.
func BuildTree(graphs Graphs, entry string) []DisplayNode {
	g, ok := graphs[entry]
	if !ok {
		return nil
	}

	var rows []DisplayNode
	var walk func(url string, base, connector string, depth int, reason EdgeReason, ancestors map[string]bool)
	walk = func(url string, base, connector string, depth int, reason EdgeReason, ancestors map[string]bool) {
		row := DisplayNode{
			URL:      url,
			FileName: record.FileName(url),
			Indent:   base + connector,
			Depth:    depth,
			Reason:   reason,
		}
		node, ok := g[url]
		var rec record.FileRecord
		if ok {
			rec = node.Record
		}
		row.SizeKB, row.SizeClass = record.SizeOf(rec)
		if ancestors[url] {
			row.IsCircular = true
			rows = append(rows, row)
			return
		}
		rows = append(rows, row)
		if !ok {
			return
		}

		visited := make(map[string]bool, len(ancestors)+1)
		for k := range ancestors {
			visited[k] = true
		}
		visited[url] = true

		// Children of the root hang directly off it. Deeper children continue
		// the parent's column with a pipe unless the parent was the last child.
		childBase := ""
		if depth > 0 {
			childBase = base + pipeMid
			if connector == branchLast {
				childBase = base + pipeLast
			}
		}
		for i, d := range node.Dependencies {
			c := branchMid
			if i == len(node.Dependencies)-1 {
				c = branchLast
			}
			walk(d.URL, childBase, c, depth+1, d.Reason, visited)
		}
	}
	walk(entry, "", "", 0, "", map[string]bool{})
	return rows
}
