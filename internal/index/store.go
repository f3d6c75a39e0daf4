package index

import (
	"context"
	"io"
)

// Store is the interface for the persistent module index.
// Implementations: KuzuStore (production), MemStore (testing and non-cgo builds).
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations.
	AddModule(ctx context.Context, node ModuleNode) error
	AddEdge(ctx context.Context, edge Edge) error
	Clear(ctx context.Context) error

	// Read operations.
	GetModule(ctx context.Context, url string) (*ModuleNode, error)
	ListModules(ctx context.Context) ([]ModuleNode, error)
	GetAllEdges(ctx context.Context) ([]Edge, error)

	// Graph traversal.
	GetDependencies(ctx context.Context, url string, direction Direction, maxDepth int) ([]DependencyChain, error)

	// Stats.
	Stats(ctx context.Context) (*Stats, error)
}

// Direction controls dependency traversal direction.
type Direction string

const (
	DirectionDownstream Direction = "downstream" // what does this load?
	DirectionUpstream   Direction = "upstream"   // what loads this?
)

// ParseDirection maps a user-supplied string to a Direction. The empty
// string means downstream.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case "", DirectionDownstream:
		return DirectionDownstream, true
	case DirectionUpstream:
		return DirectionUpstream, true
	default:
		return "", false
	}
}
