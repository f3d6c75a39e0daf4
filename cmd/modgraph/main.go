package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// version is set by goreleaser at build time.
var version = "dev"

// stdout is where commands print their results.
var stdout io.Writer = os.Stdout

type command struct {
	summary string
	run     func(args []string) error
}

var commands = map[string]command{
	"serve":   {"run the collector endpoint and MCP server", runServe},
	"tree":    {"print the dependency tree of each entrypoint", runTree},
	"paths":   {"print every import chain that loads a script", runPaths},
	"graphs":  {"export records and graphs as JSON", runGraphs},
	"diagram": {"print a Mermaid diagram", runDiagram},
	"index":   {"write the graphs into a persistent index", runIndex},
	"deps":    {"query the persistent index for dependencies", runDeps},
	"init":    {"register the MCP server in .mcp.json", runInit},
	"version": {"print version and exit", func([]string) error {
		fmt.Fprintln(stdout, version)
		return nil
	}},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stdout, usage())
		return nil
	}
	if args[0] == "--version" || args[0] == "-version" {
		args = []string{"version"}
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage())
	}
	err := cmd.run(args[1:])
	if err == flag.ErrHelp {
		return nil
	}
	return err
}

func usage() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("usage: modgraph <command> [flags]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  %-8s %s\n", name, commands[name].summary)
	}
	return sb.String()
}
