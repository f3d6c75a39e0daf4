//go:build cgo

package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given path. KuzuDB creates the leaf directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(dbPath string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database %s: %w", dbPath, err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Module(
		url STRING,
		file_name STRING,
		status INT64,
		size INT64,
		entrypoint BOOLEAN,
		is_module BOOLEAN,
		is_inline BOOLEAN,
		is_pending BOOLEAN,
		side_effects BOOLEAN,
		tla BOOLEAN,
		barrel_file BOOLEAN,
		PRIMARY KEY(url)
	)`,
	`CREATE REL TABLE IF NOT EXISTS DEPENDS_ON(
		FROM Module TO Module,
		reason STRING,
		entrypoint STRING
	)`,
}

// InitSchema creates the node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddModule upserts a Module node keyed by URL.
func (s *KuzuStore) AddModule(_ context.Context, node ModuleNode) error {
	return s.exec(
		`MERGE (m:Module {url: $url})
		 SET m.file_name = $name,
		     m.status = $status,
		     m.size = $size,
		     m.entrypoint = $entry,
		     m.is_module = $module,
		     m.is_inline = $inline,
		     m.is_pending = $pending,
		     m.side_effects = $side,
		     m.tla = $tla,
		     m.barrel_file = $barrel`,
		map[string]any{
			"url":     node.URL,
			"name":    node.FileName,
			"status":  int64(node.Status),
			"size":    node.Size,
			"entry":   node.Entrypoint,
			"module":  node.IsModule,
			"inline":  node.IsInline,
			"pending": node.IsPending,
			"side":    node.SideEffects,
			"tla":     node.TLA,
			"barrel":  node.BarrelFile,
		},
	)
}

// AddEdge inserts a DEPENDS_ON relationship between two existing modules.
// Inserting the same edge twice leaves a single relationship.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	return s.exec(
		`MATCH (a:Module {url: $src}), (b:Module {url: $dst})
		 MERGE (a)-[:DEPENDS_ON {reason: $reason, entrypoint: $entry}]->(b)`,
		map[string]any{
			"src":    edge.SourceURL,
			"dst":    edge.TargetURL,
			"reason": edge.Reason,
			"entry":  edge.Entrypoint,
		},
	)
}

// Clear deletes every module together with its relationships.
func (s *KuzuStore) Clear(_ context.Context) error {
	_, err := s.query("MATCH (m:Module) DETACH DELETE m", nil)
	return err
}

// ---------- Read operations ----------

const moduleColumns = `m.url, m.file_name, m.status, m.size, m.entrypoint,
	m.is_module, m.is_inline, m.is_pending, m.side_effects, m.tla, m.barrel_file`

// GetModule retrieves a single Module by URL, or returns nil if not found.
func (s *KuzuStore) GetModule(_ context.Context, url string) (*ModuleNode, error) {
	rows, err := s.query(
		"MATCH (m:Module {url: $url}) RETURN "+moduleColumns,
		map[string]any{"url": url},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToModule(rows[0]), nil
}

// ListModules returns every Module sorted by URL.
func (s *KuzuStore) ListModules(_ context.Context) ([]ModuleNode, error) {
	rows, err := s.query("MATCH (m:Module) RETURN "+moduleColumns+" ORDER BY m.url", nil)
	if err != nil {
		return nil, err
	}
	out := make([]ModuleNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToModule(r))
	}
	return out, nil
}

// GetAllEdges returns every DEPENDS_ON relationship.
func (s *KuzuStore) GetAllEdges(_ context.Context) ([]Edge, error) {
	rows, err := s.query(
		`MATCH (a:Module)-[r:DEPENDS_ON]->(b:Module)
		 RETURN a.url, b.url, r.reason, r.entrypoint
		 ORDER BY r.entrypoint, a.url, b.url`,
		nil,
	)
	if err != nil {
		return nil, err
	}
	edges := make([]Edge, 0, len(rows))
	for _, r := range rows {
		edges = append(edges, Edge{
			SourceURL:  toString(r[0]),
			TargetURL:  toString(r[1]),
			Reason:     toString(r[2]),
			Entrypoint: toString(r[3]),
		})
	}
	return edges, nil
}

// ---------- Graph traversal ----------

// GetDependencies performs a BFS over DEPENDS_ON edges starting from url.
// It returns one DependencyChain per reachable module.
func (s *KuzuStore) GetDependencies(_ context.Context, url string, dir Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	var cypher string
	switch dir {
	case DirectionDownstream:
		cypher = "MATCH (a:Module {url: $url})-[:DEPENDS_ON]->(b:Module) RETURN DISTINCT b.url ORDER BY b.url"
	case DirectionUpstream:
		cypher = "MATCH (a:Module)-[:DEPENDS_ON]->(b:Module {url: $url}) RETURN DISTINCT a.url ORDER BY a.url"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", dir)
	}
	return bfs(url, maxDepth, func(id string) ([]string, error) {
		rows, err := s.query(cypher, map[string]any{"url": id})
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, toString(r[0]))
		}
		return out, nil
	})
}

// ---------- Stats ----------

// Stats returns module, entrypoint and edge counts.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	modules, err := s.count("MATCH (m:Module) RETURN count(m)")
	if err != nil {
		return nil, err
	}
	entries, err := s.count("MATCH (m:Module) WHERE m.entrypoint = true RETURN count(m)")
	if err != nil {
		return nil, err
	}
	edges, err := s.count("MATCH ()-[r:DEPENDS_ON]->() RETURN count(r)")
	if err != nil {
		return nil, err
	}
	return &Stats{ModuleCount: modules, EntrypointCount: entries, EdgeCount: edges}, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func (s *KuzuStore) count(cypher string) (int, error) {
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

// rowToModule converts an 11-column result row in moduleColumns order.
func rowToModule(r []any) *ModuleNode {
	return &ModuleNode{
		URL:         toString(r[0]),
		FileName:    toString(r[1]),
		Status:      toInt(r[2]),
		Size:        int64(toInt(r[3])),
		Entrypoint:  toBool(r[4]),
		IsModule:    toBool(r[5]),
		IsInline:    toBool(r[6]),
		IsPending:   toBool(r[7]),
		SideEffects: toBool(r[8]),
		TLA:         toBool(r[9]),
		BarrelFile:  toBool(r[10]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
