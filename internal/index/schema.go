package index

// ModuleNode is one script URL as stored in the index.
type ModuleNode struct {
	URL         string `json:"url"`
	FileName    string `json:"fileName"`
	Status      int    `json:"status,omitempty"`
	Size        int64  `json:"size"`
	Entrypoint  bool   `json:"entrypoint"`
	IsModule    bool   `json:"isModule,omitempty"`
	IsInline    bool   `json:"isInline,omitempty"`
	IsPending   bool   `json:"isPending,omitempty"`
	SideEffects bool   `json:"sideEffects,omitempty"`
	TLA         bool   `json:"tla,omitempty"`
	BarrelFile  bool   `json:"barrelFile,omitempty"`
}

// Edge is a DEPENDS_ON relationship recorded while walking the graph of
// Entrypoint. The same pair may appear once per owning entrypoint.
type Edge struct {
	SourceURL  string `json:"sourceUrl"`
	TargetURL  string `json:"targetUrl"`
	Reason     string `json:"reason"`
	Entrypoint string `json:"entrypoint"`
}

// Stats summarizes the index.
type Stats struct {
	ModuleCount     int `json:"moduleCount"`
	EntrypointCount int `json:"entrypointCount"`
	EdgeCount       int `json:"edgeCount"`
}

// DependencyChain is an ordered sequence of URLs forming a dependency path.
type DependencyChain struct {
	Nodes []string `json:"nodes"`
	Depth int      `json:"depth"`
}
