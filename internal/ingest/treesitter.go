package ingest

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/modgraph/internal/record"
)

// grammar selects one of the two TypeScript grammars.
type grammar int

const (
	grammarTSX grammar = iota
	grammarTypeScript
)

// TreeSitterParser implements Parser with the tree-sitter TypeScript and TSX
// grammars. Plain JavaScript is parsed with TSX, which accepts JSX. A new
// tree-sitter parser is created per Parse call.
type TreeSitterParser struct {
	languages map[grammar]*tree_sitter.Language
}

// NewTreeSitterParser creates a TreeSitterParser with both grammars registered.
func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{
		languages: map[grammar]*tree_sitter.Language{
			grammarTSX:        tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			grammarTypeScript: tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
		},
	}
}

// Parse extracts imports and exports from source.
func (p *TreeSitterParser) Parse(ctx context.Context, rawURL string, source []byte) (*ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(source) == 0 {
		return &ParseResult{}, nil
	}

	g := grammarFor(rawURL)
	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(p.languages[g]); err != nil {
		return nil, fmt.Errorf("treesitter: set language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("treesitter: nil tree for %s", rawURL)
	}
	defer tree.Close()

	var ex moduleExtractor
	cursor := tree.RootNode().Walk()
	defer cursor.Close()
	ex.walk(cursor, source)

	return &ParseResult{Imports: ex.imports, Exports: ex.exports}, nil
}

// Close is a no-op because parsers are created per Parse call.
func (p *TreeSitterParser) Close() error {
	return nil
}

func grammarFor(rawURL string) grammar {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".ts", ".mts", ".cts":
		return grammarTypeScript
	default:
		return grammarTSX
	}
}

// moduleExtractor collects ES module imports and exports while walking an AST.
type moduleExtractor struct {
	imports []record.Import
	exports []string
}

func (e *moduleExtractor) walk(cursor *tree_sitter.TreeCursor, source []byte) {
	node := cursor.Node()

	switch node.Kind() {
	case "import_statement":
		// "import type" is erased by the compiler and never loads.
		if !typeOnly(node) {
			e.addImport(node.ChildByFieldName("source"), source, record.StyleStatic)
		}

	case "export_statement":
		if typeOnly(node) {
			break
		}
		// Re-exports ("export * from", "export { a } from") load a module.
		e.addImport(node.ChildByFieldName("source"), source, record.StyleStatic)
		e.addExports(node, source)

	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil && fn.Kind() == "import" {
			if args := node.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
				e.addImport(args.NamedChild(0), source, record.StyleDynamic)
			}
		}
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, source)
		for cursor.GotoNextSibling() {
			e.walk(cursor, source)
		}
		cursor.GotoParent()
	}
}

// typeOnly reports whether an import or export statement carries the
// TypeScript "type" modifier directly.
func typeOnly(node *tree_sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil && child.Kind() == "type" {
			return true
		}
	}
	return false
}

func (e *moduleExtractor) addImport(spec *tree_sitter.Node, source []byte, style record.ImportStyle) {
	s, ok := stringLiteral(spec, source)
	if !ok {
		return
	}
	e.imports = append(e.imports, record.Import{
		Specifier: s,
		Style:     style,
		Line:      int(spec.StartPosition().Row) + 1,
	})
}

func (e *moduleExtractor) addExports(node *tree_sitter.Node, source []byte) {
	isDefault := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "default":
			isDefault = true
			e.exports = append(e.exports, "default")
		case "namespace_export":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				if n := child.NamedChild(j); n != nil {
					e.exports = append(e.exports, n.Utf8Text(source))
				}
			}
		case "export_clause":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				spec := child.NamedChild(j)
				if spec == nil || spec.Kind() != "export_specifier" {
					continue
				}
				name := spec.ChildByFieldName("alias")
				if name == nil {
					name = spec.ChildByFieldName("name")
				}
				if name != nil {
					e.exports = append(e.exports, strings.Trim(name.Utf8Text(source), "\"'"))
				}
			}
		}
	}

	decl := node.ChildByFieldName("declaration")
	if decl == nil || isDefault {
		return
	}
	switch decl.Kind() {
	case "lexical_declaration", "variable_declaration":
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			d := decl.NamedChild(i)
			if d == nil || d.Kind() != "variable_declarator" {
				continue
			}
			if name := d.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
				e.exports = append(e.exports, name.Utf8Text(source))
			}
		}
	default:
		if name := decl.ChildByFieldName("name"); name != nil {
			e.exports = append(e.exports, name.Utf8Text(source))
		}
	}
}

// stringLiteral returns the contents of a string node, or of a template
// string without substitutions.
func stringLiteral(n *tree_sitter.Node, source []byte) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind() {
	case "string":
	case "template_string":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if c := n.NamedChild(i); c != nil && c.Kind() == "template_substitution" {
				return "", false
			}
		}
	default:
		return "", false
	}
	s := strings.Trim(n.Utf8Text(source), "\"'`")
	return s, s != ""
}
