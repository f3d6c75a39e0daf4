package ingest

import (
	"context"

	"github.com/dusk-indust/modgraph/internal/record"
)

// ParseResult holds what a parser extracted from one script.
type ParseResult struct {
	Imports []record.Import `json:"imports"`
	Exports []string        `json:"exports"`
}

// Parser extracts import and export declarations from script source.
// Implementations: TreeSitterParser (production), NopParser (no parsing).
type Parser interface {
	// Parse extracts imports and exports from source. url picks the grammar.
	Parse(ctx context.Context, url string, source []byte) (*ParseResult, error)

	// Close releases parser resources.
	Close() error
}

// NopParser extracts nothing. Records ingested with it carry only the
// imports supplied by the caller.
type NopParser struct{}

// Parse returns an empty result.
func (NopParser) Parse(context.Context, string, []byte) (*ParseResult, error) {
	return &ParseResult{}, nil
}

// Close is a no-op.
func (NopParser) Close() error { return nil }
