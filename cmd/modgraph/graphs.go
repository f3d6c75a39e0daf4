package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dusk-indust/modgraph/internal/export"
)

func runGraphs(args []string) error {
	var src sourceFlags
	var opts export.ExportOptions

	fs := flag.NewFlagSet("graphs", flag.ContinueOnError)
	src.register(fs)
	fs.BoolVar(&opts.IncludeContent, "content", false, "include script source in the exported records")
	if err := fs.Parse(args); err != nil {
		return err
	}

	snap, graphs, err := src.load(context.Background())
	if err != nil {
		return err
	}
	return export.WriteJSON(stdout, export.ExportGraphs(snap, graphs, opts))
}

func runDiagram(args []string) error {
	var src sourceFlags
	var entry, indexPath string

	fs := flag.NewFlagSet("diagram", flag.ContinueOnError)
	src.register(fs)
	fs.StringVar(&entry, "entry", "", "entrypoint URL (default: every entrypoint)")
	fs.StringVar(&indexPath, "index", "", "draw from a persistent index instead of records")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	if indexPath != "" {
		mermaid, err := diagramFromIndex(ctx, indexPath)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, mermaid)
		return nil
	}

	_, graphs, err := src.load(ctx)
	if err != nil {
		return err
	}
	mermaid, err := export.GenerateMermaid(graphs, entry)
	if err != nil {
		return err
	}
	fmt.Fprint(stdout, mermaid)
	return nil
}
