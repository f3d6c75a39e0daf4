package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dusk-indust/modgraph/internal/graph"
	"github.com/dusk-indust/modgraph/internal/record"
)

// GraphExport is the top-level JSON export structure.
type GraphExport struct {
	ExportedAt string              `json:"exportedAt"`
	Epoch      uint64              `json:"epoch"`
	Version    uint64              `json:"version"`
	Records    []record.FileRecord `json:"records"`
	Graphs     []EntrypointExport  `json:"graphs,omitempty"`
}

// EntrypointExport describes the graph of one entrypoint.
type EntrypointExport struct {
	Entrypoint string       `json:"entrypoint"`
	Modules    []string     `json:"modules"`
	Edges      []EdgeExport `json:"edges"`
}

// EdgeExport is one dependency edge.
type EdgeExport struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	Reason graph.EdgeReason `json:"reason"`
}

// ExportOptions controls what ExportGraphs includes.
type ExportOptions struct {
	// IncludeContent keeps script source in the exported records.
	IncludeContent bool
}

// ExportGraphs builds a GraphExport from a snapshot and the graphs built
// from it. Records and graphs are sorted by URL.
func ExportGraphs(snap record.Snapshot, graphs graph.Graphs, opts ExportOptions) *GraphExport {
	out := &GraphExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Epoch:      snap.Epoch,
		Version:    snap.Version,
		Records:    make([]record.FileRecord, 0, len(snap.Records)),
	}

	urls := make([]string, 0, len(snap.Records))
	for u := range snap.Records {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	for _, u := range urls {
		r := snap.Records[u].Clone()
		if !opts.IncludeContent {
			r.Content = ""
		}
		out.Records = append(out.Records, r)
	}

	for _, entry := range graphs.Entrypoints() {
		g := graphs[entry]
		ee := EntrypointExport{Entrypoint: entry, Modules: sortedNodeURLs(g), Edges: []EdgeExport{}}
		for _, u := range ee.Modules {
			for _, d := range g[u].Dependencies {
				ee.Edges = append(ee.Edges, EdgeExport{From: u, To: d.URL, Reason: d.Reason})
			}
		}
		out.Graphs = append(out.Graphs, ee)
	}
	return out
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}

// ReadRecords decodes records from r. It accepts a GraphExport, a
// record.Snapshot (records keyed by URL) or a bare array of records.
func ReadRecords(r io.Reader) (map[string]record.FileRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("export: read records: %w", err)
	}

	var list []record.FileRecord
	if err := json.Unmarshal(data, &list); err == nil {
		return keyByURL(list), nil
	}

	var envelope struct {
		Records json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("export: decode records: %w", err)
	}
	if len(envelope.Records) == 0 {
		return map[string]record.FileRecord{}, nil
	}
	if err := json.Unmarshal(envelope.Records, &list); err == nil {
		return keyByURL(list), nil
	}
	var keyed map[string]record.FileRecord
	if err := json.Unmarshal(envelope.Records, &keyed); err != nil {
		return nil, fmt.Errorf("export: decode records: %w", err)
	}
	for u, rec := range keyed {
		if rec.URL == "" {
			rec.URL = u
			keyed[u] = rec
		}
	}
	return keyed, nil
}

func keyByURL(list []record.FileRecord) map[string]record.FileRecord {
	out := make(map[string]record.FileRecord, len(list))
	for _, r := range list {
		if r.URL != "" {
			out[r.URL] = r
		}
	}
	return out
}
