package mcptools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/modgraph/internal/engine"
	"github.com/dusk-indust/modgraph/internal/export"
	"github.com/dusk-indust/modgraph/internal/graph"
	"github.com/dusk-indust/modgraph/internal/index"
	"github.com/dusk-indust/modgraph/internal/record"
)

// GraphService answers MCP tool calls from a live engine. Traversal queries
// go through an index store that is refreshed from the engine whenever the
// graph version moves.
type GraphService struct {
	engine *engine.Engine
	store  index.Store

	mu             sync.Mutex
	indexed        bool
	indexedVersion uint64
}

// NewGraphService creates a GraphService over e, indexing into store.
func NewGraphService(e *engine.Engine, store index.Store) *GraphService {
	return &GraphService{engine: e, store: store}
}

// current rebuilds pending changes and returns the graphs with their version.
func (s *GraphService) current() (graph.Graphs, uint64) {
	graphs := s.engine.Flush()
	return graphs, s.engine.Version()
}

// syncIndex persists the current graphs unless the index already holds them.
func (s *GraphService) syncIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	graphs, version := s.current()
	if s.indexed && version == s.indexedVersion {
		return nil
	}
	if err := index.Persist(ctx, s.store, graphs); err != nil {
		return err
	}
	s.indexed = true
	s.indexedVersion = version
	return nil
}

// ListEntrypoints returns every entrypoint with the size of its graph.
func (s *GraphService) ListEntrypoints(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListEntrypointsInput,
) (*mcp.CallToolResult, ListEntrypointsOutput, error) {
	graphs, version := s.current()

	out := ListEntrypointsOutput{Version: version, Entrypoints: []EntrypointSummary{}}
	for _, url := range graphs.Entrypoints() {
		g := graphs[url]
		sum := EntrypointSummary{
			URL:         url,
			FileName:    record.FileName(url),
			ModuleCount: len(g),
		}
		var rec record.FileRecord
		if n, ok := g[url]; ok {
			rec = n.Record
			sum.IsInline = rec.IsInline
			sum.IsPending = rec.IsPending
		}
		sum.SizeKB, sum.SizeClass = record.SizeOf(rec)
		out.Entrypoints = append(out.Entrypoints, sum)
	}
	return nil, out, nil
}

// FindInitiatorPaths returns every import chain from an entrypoint to a URL.
func (s *GraphService) FindInitiatorPaths(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input FindInitiatorPathsInput,
) (*mcp.CallToolResult, FindInitiatorPathsOutput, error) {
	if input.URL == "" {
		return nil, FindInitiatorPathsOutput{}, fmt.Errorf("url is required")
	}

	s.current()
	paths := s.engine.FindInitiatorPaths(input.URL)
	if paths == nil {
		paths = []graph.Path{}
	}

	var sb strings.Builder
	if err := export.RenderPaths(&sb, paths, export.TreeOptions{ShowURL: input.ShowURL}); err != nil {
		return nil, FindInitiatorPathsOutput{}, err
	}
	return nil, FindInitiatorPathsOutput{Paths: paths, Text: sb.String()}, nil
}

// GetTree renders the graph of one entrypoint as an indented tree.
func (s *GraphService) GetTree(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetTreeInput,
) (*mcp.CallToolResult, GetTreeOutput, error) {
	if input.Entrypoint == "" {
		return nil, GetTreeOutput{}, fmt.Errorf("entrypoint is required")
	}

	graphs, _ := s.current()
	if _, ok := graphs[input.Entrypoint]; !ok {
		return nil, GetTreeOutput{}, fmt.Errorf("unknown entrypoint: %s", input.Entrypoint)
	}
	rows := graph.BuildTree(graphs, input.Entrypoint)

	var sb strings.Builder
	if err := export.RenderTree(&sb, rows, export.TreeOptions{ShowURL: input.ShowURL, ShowReason: true, ShowSize: input.ShowSize}); err != nil {
		return nil, GetTreeOutput{}, err
	}
	return nil, GetTreeOutput{Rows: rows, Text: sb.String()}, nil
}

// GetMermaid draws one entrypoint graph, or the whole index, as Mermaid.
func (s *GraphService) GetMermaid(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetMermaidInput,
) (*mcp.CallToolResult, GetMermaidOutput, error) {
	if input.Entrypoint != "" {
		graphs, _ := s.current()
		diagram, err := export.GenerateMermaid(graphs, input.Entrypoint)
		if err != nil {
			return nil, GetMermaidOutput{}, err
		}
		return nil, GetMermaidOutput{Diagram: diagram}, nil
	}

	if err := s.syncIndex(ctx); err != nil {
		return nil, GetMermaidOutput{}, fmt.Errorf("sync index: %w", err)
	}
	diagram, err := export.GenerateMermaidFromStore(ctx, s.store)
	if err != nil {
		return nil, GetMermaidOutput{}, fmt.Errorf("generate mermaid: %w", err)
	}
	return nil, GetMermaidOutput{Diagram: diagram}, nil
}

// GetDependencies traverses the index upstream or downstream from a URL.
func (s *GraphService) GetDependencies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDependenciesInput,
) (*mcp.CallToolResult, GetDependenciesOutput, error) {
	if input.URL == "" {
		return nil, GetDependenciesOutput{}, fmt.Errorf("url is required")
	}

	direction, ok := index.ParseDirection(strings.ToLower(input.Direction))
	if !ok {
		return nil, GetDependenciesOutput{}, fmt.Errorf("invalid direction %q: want upstream or downstream", input.Direction)
	}

	maxDepth := input.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	if err := s.syncIndex(ctx); err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("sync index: %w", err)
	}

	chains, err := s.store.GetDependencies(ctx, input.URL, direction, maxDepth)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("get dependencies: %w", err)
	}
	if chains == nil {
		chains = []index.DependencyChain{}
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, GetDependenciesOutput{}, fmt.Errorf("stats: %w", err)
	}

	return nil, GetDependenciesOutput{Chains: chains, Stats: *stats}, nil
}
