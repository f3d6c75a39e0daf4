package rpc

import (
	"github.com/dusk-indust/modgraph/internal/graph"
	"github.com/dusk-indust/modgraph/internal/ingest"
	"github.com/dusk-indust/modgraph/internal/record"
)

// MergeParams are the params of records/merge.
type MergeParams struct {
	URL    string               `json:"url"`
	Fields record.PartialRecord `json:"fields"`
}

// ClearResult is returned by records/clear.
type ClearResult struct {
	Epoch uint64 `json:"epoch"`
}

// ScriptsParams are the params of page/scripts.
type ScriptsParams struct {
	Scripts []ingest.ScriptTag `json:"scripts"`
}

// ScriptsResult reports how many records page/scripts wrote.
type ScriptsResult struct {
	Written int `json:"written"`
}

// NetworkResult reports whether network/finished produced a record.
type NetworkResult struct {
	Recorded bool `json:"recorded"`
}

// AckResult is returned by methods with nothing else to report.
type AckResult struct {
	OK bool `json:"ok"`
}

// GraphsParams are the params of graphs/get. With Flush set, the server
// rebuilds synchronously instead of returning the last debounced build.
type GraphsParams struct {
	Flush bool `json:"flush,omitempty"`
}

// GraphsResult is returned by graphs/get.
type GraphsResult struct {
	Version uint64       `json:"version"`
	Graphs  graph.Graphs `json:"graphs"`
}

// PathsParams are the params of paths/find.
type PathsParams struct {
	URL   string `json:"url"`
	Flush bool   `json:"flush,omitempty"`
}

// PathsResult is returned by paths/find.
type PathsResult struct {
	Paths []graph.Path `json:"paths"`
}

// TreeParams are the params of tree/get.
type TreeParams struct {
	Entrypoint string `json:"entrypoint"`
	Flush      bool   `json:"flush,omitempty"`
}

// TreeResult is returned by tree/get.
type TreeResult struct {
	Rows []graph.DisplayNode `json:"rows"`
}

// Event is one change notification read from /events.
type Event struct {
	Change record.Change
	Err    error
}
