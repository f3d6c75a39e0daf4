package mcptools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/modgraph/internal/engine"
	"github.com/dusk-indust/modgraph/internal/index"
	"github.com/dusk-indust/modgraph/internal/record"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const base = "https://a.test/"

func u(name string) string { return base + name }

// newTestService returns a service over an engine seeded with:
//
//	main.js -> a.js -> shared.js
//	inline-script-0.js -> shared.js
func newTestService(t *testing.T) (*GraphService, *engine.Engine, *index.MemStore) {
	t.Helper()

	e := engine.New(engine.WithDebounce(time.Hour))
	t.Cleanup(func() { _ = e.Close() })

	static := func(specs ...string) []record.Import {
		out := make([]record.Import, len(specs))
		for i, s := range specs {
			out[i] = record.Import{Specifier: s, Style: record.StyleStatic}
		}
		return out
	}

	e.MergeRecord(u("main.js"), record.PartialRecord{
		Entrypoint: record.Ptr(true),
		Initiator:  &record.Initiator{Kind: record.InitiatorScriptTag},
		Imports:    static("./a.js"),
	})
	e.MergeRecord(u("a.js"), record.PartialRecord{Imports: static("./shared.js")})
	e.MergeRecord(u("shared.js"), record.PartialRecord{Content: record.Ptr("export {}")})
	e.MergeRecord(u("inline-script-0.js"), record.PartialRecord{
		Entrypoint: record.Ptr(true),
		IsInline:   record.Ptr(true),
		Initiator:  &record.Initiator{Kind: record.InitiatorInlineScript},
		Imports:    static("./shared.js"),
	})

	store := index.NewMemStore()
	return NewGraphService(e, store), e, store
}

func containsNode(chains []index.DependencyChain, url string) bool {
	for _, c := range chains {
		for _, n := range c.Nodes {
			if n == url {
				return true
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestListEntrypoints(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, out, err := svc.ListEntrypoints(context.Background(), nil, ListEntrypointsInput{})
	require.NoError(t, err)

	require.Len(t, out.Entrypoints, 2)
	assert.Equal(t, EntrypointSummary{
		URL: u("inline-script-0.js"), FileName: "inline-script-0.js", ModuleCount: 2, IsInline: true,
		SizeKB: "0.00", SizeClass: record.SizeSmall,
	}, out.Entrypoints[0])
	assert.Equal(t, EntrypointSummary{
		URL: u("main.js"), FileName: "main.js", ModuleCount: 3,
		SizeKB: "0.00", SizeClass: record.SizeSmall,
	}, out.Entrypoints[1])
	assert.Equal(t, uint64(4), out.Version)
}

func TestFindInitiatorPaths(t *testing.T) {
	t.Run("paths from every entrypoint", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.FindInitiatorPaths(context.Background(), nil, FindInitiatorPathsInput{URL: u("shared.js")})
		require.NoError(t, err)

		require.Len(t, out.Paths, 2)
		assert.Equal(t, []string{u("inline-script-0.js"), u("shared.js")}, out.Paths[0].URLs())
		assert.Equal(t, []string{u("main.js"), u("a.js"), u("shared.js")}, out.Paths[1].URLs())
		assert.Equal(t, "inline-script-0.js → shared.js\nmain.js → a.js → shared.js\n", out.Text)
	})

	t.Run("full urls in text", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.FindInitiatorPaths(context.Background(), nil, FindInitiatorPathsInput{URL: u("a.js"), ShowURL: true})
		require.NoError(t, err)
		assert.Equal(t, u("main.js")+" → "+u("a.js")+"\n", out.Text)
	})

	t.Run("entrypoint target has no paths", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.FindInitiatorPaths(context.Background(), nil, FindInitiatorPathsInput{URL: u("main.js")})
		require.NoError(t, err)
		assert.Empty(t, out.Paths)
		assert.NotNil(t, out.Paths)
	})

	t.Run("empty url returns error", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, _, err := svc.FindInitiatorPaths(context.Background(), nil, FindInitiatorPathsInput{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")
	})
}

func TestGetTree(t *testing.T) {
	t.Run("renders rows and text", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.GetTree(context.Background(), nil, GetTreeInput{Entrypoint: u("main.js")})
		require.NoError(t, err)

		require.Len(t, out.Rows, 3)
		assert.Equal(t, "main.js\n└── a.js [static-import]\n    └── shared.js [static-import]\n", out.Text)
	})

	t.Run("sizes", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.GetTree(context.Background(), nil, GetTreeInput{Entrypoint: u("main.js"), ShowSize: true})
		require.NoError(t, err)

		require.Len(t, out.Rows, 3)
		assert.Equal(t, "0.01", out.Rows[2].SizeKB)
		assert.Equal(t, "main.js (0.00 KB, small)\n"+
			"└── a.js [static-import] (0.00 KB, small)\n"+
			"    └── shared.js [static-import] (0.01 KB, small)\n", out.Text)
	})

	t.Run("unknown entrypoint returns error", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, _, err := svc.GetTree(context.Background(), nil, GetTreeInput{Entrypoint: u("a.js")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown entrypoint")
	})
}

func TestGetMermaid(t *testing.T) {
	t.Run("single entrypoint from live graphs", func(t *testing.T) {
		svc, _, store := newTestService(t)

		_, out, err := svc.GetMermaid(context.Background(), nil, GetMermaidInput{Entrypoint: u("main.js")})
		require.NoError(t, err)
		assert.Contains(t, out.Diagram, "graph TD\n")
		assert.Contains(t, out.Diagram, `N0(["main.js"])`)
		assert.NotContains(t, out.Diagram, "inline-script-0.js")

		st, err := store.Stats(context.Background())
		require.NoError(t, err)
		assert.Zero(t, st.ModuleCount, "single-entrypoint diagrams do not touch the index")
	})

	t.Run("whole index", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.GetMermaid(context.Background(), nil, GetMermaidInput{})
		require.NoError(t, err)
		assert.Contains(t, out.Diagram, "inline-script-0.js")
		assert.Contains(t, out.Diagram, "main.js")
		assert.Contains(t, out.Diagram, "|static-import|")
	})

	t.Run("unknown entrypoint returns error", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, _, err := svc.GetMermaid(context.Background(), nil, GetMermaidInput{Entrypoint: u("nope.js")})
		require.Error(t, err)
	})
}

func TestGetDependencies(t *testing.T) {
	t.Run("downstream from main reaches shared transitively", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.GetDependencies(context.Background(), nil, GetDependenciesInput{URL: u("main.js")})
		require.NoError(t, err)
		assert.True(t, containsNode(out.Chains, u("a.js")))
		assert.True(t, containsNode(out.Chains, u("shared.js")))
		assert.Equal(t, index.Stats{ModuleCount: 4, EntrypointCount: 2, EdgeCount: 3}, out.Stats)
	})

	t.Run("upstream from shared reaches both entrypoints", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.GetDependencies(context.Background(), nil, GetDependenciesInput{
			URL:       u("shared.js"),
			Direction: "Upstream",
		})
		require.NoError(t, err)
		assert.True(t, containsNode(out.Chains, u("main.js")))
		assert.True(t, containsNode(out.Chains, u("inline-script-0.js")))
	})

	t.Run("maxDepth=1 limits traversal", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, out, err := svc.GetDependencies(context.Background(), nil, GetDependenciesInput{URL: u("main.js"), MaxDepth: 1})
		require.NoError(t, err)
		assert.True(t, containsNode(out.Chains, u("a.js")))
		assert.False(t, containsNode(out.Chains, u("shared.js")))
	})

	t.Run("index follows engine changes", func(t *testing.T) {
		svc, e, _ := newTestService(t)
		ctx := context.Background()

		_, _, err := svc.GetDependencies(ctx, nil, GetDependenciesInput{URL: u("main.js")})
		require.NoError(t, err)

		e.ClearAll()
		_, out, err := svc.GetDependencies(ctx, nil, GetDependenciesInput{URL: u("main.js")})
		require.NoError(t, err)
		assert.Empty(t, out.Chains)
		assert.Equal(t, index.Stats{}, out.Stats)
	})

	t.Run("invalid direction returns error", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, _, err := svc.GetDependencies(context.Background(), nil, GetDependenciesInput{URL: u("a.js"), Direction: "sideways"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid direction")
	})

	t.Run("empty url returns error", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		_, _, err := svc.GetDependencies(context.Background(), nil, GetDependenciesInput{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")
	})
}
