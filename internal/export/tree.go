package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/modgraph/internal/graph"
)

// TreeOptions controls RenderTree output.
type TreeOptions struct {
	// ShowURL prints the full URL instead of the file name.
	ShowURL bool
	// ShowReason appends the edge reason to every non-root row.
	ShowReason bool
	// ShowSize appends the size in KB and the size class.
	ShowSize bool
}

// RenderTree writes rows as an indented text tree, one row per line.
func RenderTree(w io.Writer, rows []graph.DisplayNode, opts TreeOptions) error {
	var sb strings.Builder
	for _, r := range rows {
		name := r.FileName
		if opts.ShowURL {
			name = r.URL
		}
		sb.WriteString(r.Indent)
		sb.WriteString(name)
		if opts.ShowReason && r.Reason != "" {
			sb.WriteString(" [" + string(r.Reason) + "]")
		}
		if opts.ShowSize {
			fmt.Fprintf(&sb, " (%s KB, %s)", r.SizeKB, r.SizeClass)
		}
		if r.IsCircular {
			sb.WriteString(" (circular)")
		}
		sb.WriteByte('\n')
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("export: write tree: %w", err)
	}
	return nil
}

// RenderPaths writes each path on its own line as "a.js → b.js → c.js".
// Only opts.ShowURL applies.
func RenderPaths(w io.Writer, paths []graph.Path, opts TreeOptions) error {
	var sb strings.Builder
	for _, p := range paths {
		names := p.FileNames()
		if opts.ShowURL {
			names = p.URLs()
		}
		sb.WriteString(strings.Join(names, " → "))
		sb.WriteByte('\n')
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("export: write paths: %w", err)
	}
	return nil
}
