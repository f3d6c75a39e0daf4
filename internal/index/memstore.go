package index

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// DefaultMaxDepth bounds GetDependencies when the caller passes maxDepth <= 0.
const DefaultMaxDepth = 10

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu      sync.RWMutex
	modules map[string]ModuleNode
	edges   []Edge
	edgeSet map[Edge]bool
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		modules: make(map[string]ModuleNode),
		edgeSet: make(map[Edge]bool),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

// AddModule stores a module keyed by URL, replacing any previous value.
func (m *MemStore) AddModule(_ context.Context, node ModuleNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[node.URL] = node
	return nil
}

// AddEdge appends an edge. Exact duplicates are ignored.
func (m *MemStore) AddEdge(_ context.Context, edge Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.edgeSet[edge] {
		return nil
	}
	m.edgeSet[edge] = true
	m.edges = append(m.edges, edge)
	return nil
}

// Clear removes every module and edge.
func (m *MemStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules = make(map[string]ModuleNode)
	m.edges = nil
	m.edgeSet = make(map[Edge]bool)
	return nil
}

// GetModule returns the module for url, or nil if not found.
func (m *MemStore) GetModule(_ context.Context, url string) (*ModuleNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.modules[url]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

// ListModules returns every module sorted by URL.
func (m *MemStore) ListModules(_ context.Context) ([]ModuleNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ModuleNode, 0, len(m.modules))
	for _, n := range m.modules {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

// GetAllEdges returns a copy of all edges in insertion order.
func (m *MemStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Edge, len(m.edges))
	copy(out, m.edges)
	return out, nil
}

// GetDependencies performs a BFS on edges from url in the given direction,
// up to maxDepth hops. It returns one DependencyChain per reachable module.
func (m *MemStore) GetDependencies(_ context.Context, url string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return bfs(url, maxDepth, func(id string) ([]string, error) {
		return m.neighbors(id, direction), nil
	})
}

// neighbors returns the distinct URLs reachable from id in one hop along the
// given direction, sorted. An edge repeated across entrypoints counts once.
func (m *MemStore) neighbors(id string, direction Direction) []string {
	var result []string
	for _, e := range m.edges {
		switch direction {
		case DirectionDownstream:
			if e.SourceURL == id {
				result = append(result, e.TargetURL)
			}
		case DirectionUpstream:
			if e.TargetURL == id {
				result = append(result, e.SourceURL)
			}
		}
	}
	slices.Sort(result)
	return slices.Compact(result)
}

// Stats returns module, entrypoint and edge counts.
func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{ModuleCount: len(m.modules), EdgeCount: len(m.edges)}
	for _, n := range m.modules {
		if n.Entrypoint {
			st.EntrypointCount++
		}
	}
	return st, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

// bfs walks outward from start, calling next for the one-hop neighbors of
// each frontier node, and returns the first path found to every reachable node.
func bfs(start string, maxDepth int, next func(string) ([]string, error)) ([]DependencyChain, error) {
	type bfsEntry struct {
		path  []string
		depth int
	}
	visited := map[string]bool{start: true}
	queue := []bfsEntry{{path: []string{start}}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		neighbors, err := next(cur.path[len(cur.path)-1])
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := make([]string, len(cur.path)+1)
			copy(newPath, cur.path)
			newPath[len(cur.path)] = nb
			chains = append(chains, DependencyChain{Nodes: newPath, Depth: cur.depth + 1})
			queue = append(queue, bfsEntry{path: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}
