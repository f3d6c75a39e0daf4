package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dusk-indust/modgraph/internal/export"
	"github.com/dusk-indust/modgraph/internal/graph"
)

func runTree(args []string) error {
	var src sourceFlags
	var entry string
	var opts export.TreeOptions

	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	src.register(fs)
	fs.StringVar(&entry, "entry", "", "entrypoint URL (default: every entrypoint)")
	fs.BoolVar(&opts.ShowURL, "urls", false, "print full URLs instead of file names")
	fs.BoolVar(&opts.ShowReason, "reasons", false, "print the reason of every edge")
	fs.BoolVar(&opts.ShowSize, "sizes", false, "print each file's size and size class")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, graphs, err := src.load(context.Background())
	if err != nil {
		return err
	}

	entries := graphs.Entrypoints()
	if entry != "" {
		if _, ok := graphs[entry]; !ok {
			return fmt.Errorf("no graph for entrypoint %s", entry)
		}
		entries = []string{entry}
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No entrypoints found.")
		return nil
	}

	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		if err := export.RenderTree(stdout, graph.BuildTree(graphs, e), opts); err != nil {
			return err
		}
	}
	return nil
}

func runPaths(args []string) error {
	var src sourceFlags
	var target string
	var opts export.TreeOptions

	fs := flag.NewFlagSet("paths", flag.ContinueOnError)
	src.register(fs)
	fs.StringVar(&target, "url", "", "script URL to explain")
	fs.BoolVar(&opts.ShowURL, "urls", false, "print full URLs instead of file names")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if target == "" {
		return fmt.Errorf("usage: modgraph paths --url <script URL> (--records <file> | --server <url>)")
	}

	_, graphs, err := src.load(context.Background())
	if err != nil {
		return err
	}

	paths := graph.FindPaths(graphs, target, nil)
	if len(paths) == 0 {
		fmt.Fprintf(stdout, "No initiator paths to %s.\n", target)
		return nil
	}
	return export.RenderPaths(stdout, paths, opts)
}
