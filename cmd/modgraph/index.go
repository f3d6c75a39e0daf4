//go:build cgo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dusk-indust/modgraph/internal/config"
	"github.com/dusk-indust/modgraph/internal/export"
	"github.com/dusk-indust/modgraph/internal/index"
)

// newServeIndex returns the index the MCP tools traverse while serving.
func newServeIndex() (index.Store, error) {
	return index.NewKuzuStore()
}

func runIndex(args []string) error {
	var src sourceFlags
	var indexPath string

	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	src.register(fs)
	fs.StringVar(&indexPath, "index", config.DefaultIndexPath, "path of the persistent index")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	_, graphs, err := src.load(ctx)
	if err != nil {
		return err
	}

	// Remove the old index to avoid stale data.
	os.RemoveAll(indexPath)
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	store, err := index.NewKuzuFileStore(indexPath)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer store.Close()

	if err := index.Persist(ctx, store, graphs); err != nil {
		return err
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Indexed %d modules, %d entrypoints, %d edges into %s\n",
		stats.ModuleCount, stats.EntrypointCount, stats.EdgeCount, indexPath)
	return nil
}

func runDeps(args []string) error {
	var indexPath, target, dir string
	var depth int

	fs := flag.NewFlagSet("deps", flag.ContinueOnError)
	fs.StringVar(&indexPath, "index", config.DefaultIndexPath, "path of the persistent index")
	fs.StringVar(&target, "url", "", "script URL to start from")
	fs.StringVar(&dir, "direction", "downstream", "downstream (what it loads) or upstream (what loads it)")
	fs.IntVar(&depth, "depth", 5, "maximum traversal depth")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("usage: modgraph deps --url <script URL> [--direction upstream|downstream]")
	}
	direction, ok := index.ParseDirection(dir)
	if !ok {
		return fmt.Errorf("invalid direction %q", dir)
	}

	store, err := openIndex(indexPath)
	if err != nil {
		return err
	}
	defer store.Close()

	chains, err := store.GetDependencies(context.Background(), target, direction, depth)
	if err != nil {
		return err
	}
	if len(chains) == 0 {
		fmt.Fprintf(stdout, "No %s dependencies for %s.\n", direction, target)
		return nil
	}
	for _, c := range chains {
		fmt.Fprintf(stdout, "%d  %s\n", c.Depth, c.Nodes[len(c.Nodes)-1])
	}
	return nil
}

func diagramFromIndex(ctx context.Context, indexPath string) (string, error) {
	store, err := openIndex(indexPath)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return export.GenerateMermaidFromStore(ctx, store)
}

func openIndex(indexPath string) (*index.KuzuStore, error) {
	if _, err := os.Stat(indexPath); err != nil {
		return nil, fmt.Errorf("no index found at %s\nRun 'modgraph index' first", indexPath)
	}
	store, err := index.NewKuzuFileStore(indexPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return store, nil
}
