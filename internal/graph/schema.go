package graph

import "github.com/dusk-indust/modgraph/internal/record"

// --- Enums ---

// EdgeReason says which rule produced a dependency edge.
type EdgeReason string

const (
	ReasonRedirect      EdgeReason = "redirect"
	ReasonInitiator     EdgeReason = "initiator"
	ReasonStaticImport  EdgeReason = "static-import"
	ReasonDynamicImport EdgeReason = "dynamic-import"
	ReasonImportsFiles  EdgeReason = "imports-files"
)

// --- Models ---

// Dependency is one outgoing edge of a Node.
type Dependency struct {
	URL       string           `json:"url"`
	Reason    EdgeReason       `json:"reason"`
	Initiator record.Initiator `json:"initiator,omitzero"`
	Inline    bool             `json:"inline,omitempty"`
}

// Node is a record placed in a ModuleGraph together with its resolved edges.
type Node struct {
	Record       record.FileRecord `json:"record"`
	Dependencies []Dependency      `json:"dependencies"`
}

// ModuleGraph is the reachable set of one entrypoint, keyed by URL.
type ModuleGraph map[string]*Node

// Graphs maps each entrypoint URL to its graph.
type Graphs map[string]ModuleGraph

// Entrypoints returns the entrypoint URLs in sorted order.
func (g Graphs) Entrypoints() []string {
	return sortedKeys(g)
}

// PathStep is one hop of an initiator path.
type PathStep struct {
	URL          string `json:"url"`
	FileName     string `json:"fileName"`
	IsEntrypoint bool   `json:"isEntrypoint"`
}

// Path is an ordered chain from an entrypoint to a target.
type Path []PathStep

// URLs returns the URL sequence of p.
func (p Path) URLs() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.URL
	}
	return out
}

// FileNames returns the file name sequence of p.
func (p Path) FileNames() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.FileName
	}
	return out
}

// DisplayNode is one row of a rendered dependency tree.
type DisplayNode struct {
	URL        string     `json:"url"`
	FileName   string     `json:"fileName"`
	Indent     string     `json:"indent"`
	Depth      int        `json:"depth"`
	IsCircular bool       `json:"isCircular"`
	Reason     EdgeReason `json:"reason,omitempty"`

	SizeKB    string           `json:"sizeKb"`
	SizeClass record.SizeClass `json:"sizeClass"`
}
