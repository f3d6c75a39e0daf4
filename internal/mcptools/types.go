package mcptools

import (
	"github.com/dusk-indust/modgraph/internal/graph"
	"github.com/dusk-indust/modgraph/internal/index"
	"github.com/dusk-indust/modgraph/internal/record"
)

// --- MCP Tool Input Types ---
// The MCP Go SDK derives each tool's JSON schema from these struct tags.

// ListEntrypointsInput is the input for the list_entrypoints MCP tool.
type ListEntrypointsInput struct{}

// EntrypointSummary describes one entrypoint graph.
type EntrypointSummary struct {
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	ModuleCount int    `json:"moduleCount"`
	IsInline    bool   `json:"isInline,omitempty"`
	IsPending   bool   `json:"isPending,omitempty"`

	SizeKB    string           `json:"sizeKb"`
	SizeClass record.SizeClass `json:"sizeClass"`
}

// ListEntrypointsOutput is the result of the list_entrypoints MCP tool.
type ListEntrypointsOutput struct {
	Version     uint64              `json:"version"`
	Entrypoints []EntrypointSummary `json:"entrypoints"`
}

// FindInitiatorPathsInput is the input for the find_initiator_paths MCP tool.
type FindInitiatorPathsInput struct {
	URL     string `json:"url" jsonschema:"absolute URL of the script to explain"`
	ShowURL bool   `json:"showUrl,omitempty" jsonschema:"print full URLs instead of file names in text"`
}

// FindInitiatorPathsOutput is the result of the find_initiator_paths MCP tool.
type FindInitiatorPathsOutput struct {
	Paths []graph.Path `json:"paths"`
	Text  string       `json:"text"`
}

// GetTreeInput is the input for the get_tree MCP tool.
type GetTreeInput struct {
	Entrypoint string `json:"entrypoint" jsonschema:"absolute URL of the entrypoint whose graph to render"`
	ShowURL    bool   `json:"showUrl,omitempty" jsonschema:"print full URLs instead of file names"`
	ShowSize   bool   `json:"showSize,omitempty" jsonschema:"append each file's size in KB and size class to text"`
}

// GetTreeOutput is the result of the get_tree MCP tool.
type GetTreeOutput struct {
	Rows []graph.DisplayNode `json:"rows"`
	Text string              `json:"text"`
}

// GetMermaidInput is the input for the get_mermaid MCP tool.
type GetMermaidInput struct {
	Entrypoint string `json:"entrypoint,omitempty" jsonschema:"entrypoint URL to draw. Default: every module in the index"`
}

// GetMermaidOutput is the result of the get_mermaid MCP tool.
type GetMermaidOutput struct {
	Diagram string `json:"diagram"`
}

// GetDependenciesInput is the input for the get_dependencies MCP tool.
type GetDependenciesInput struct {
	URL       string `json:"url" jsonschema:"absolute URL of the script"`
	Direction string `json:"direction,omitempty" jsonschema:"downstream (what it loads) or upstream (what loads it). Default: downstream"`
	MaxDepth  int    `json:"maxDepth,omitempty" jsonschema:"maximum traversal depth (default: 5)"`
}

// GetDependenciesOutput is the result of the get_dependencies MCP tool.
type GetDependenciesOutput struct {
	Chains []index.DependencyChain `json:"chains"`
	Stats  index.Stats             `json:"stats"`
}
