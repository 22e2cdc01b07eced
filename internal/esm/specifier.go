// Package esm rewrites relative module specifiers in TypeScript and
// JavaScript sources into the explicit form Node's ESM loader requires:
// "./a" becomes "./a/index.js" or "./a.js" depending on what exists on disk.
package esm

import (
	"context"

	"cesm/internal/world"

	sitter "github.com/smacker/go-tree-sitter"
)

// SpecifierKind says which statement a specifier came from.
type SpecifierKind string

const (
	KindImport  SpecifierKind = "import"  // import ... from "x", import "x"
	KindExport  SpecifierKind = "export"  // export ... from "x"
	KindDynamic SpecifierKind = "dynamic" // import("x")
)

// Specifier is a module specifier string literal found in a source file.
// Start and End span the literal's contents, without the quotes.
type Specifier struct {
	Kind  SpecifierKind `json:"kind"`
	Value string        `json:"value"`
	Start uint32        `json:"-"`
	End   uint32        `json:"-"`
	Line  int           `json:"line"`
}

// FindSpecifiers parses content with the grammar matching path and returns
// every static import/export source and literal dynamic import argument,
// in document order.
func FindSpecifiers(ctx context.Context, path string, content []byte) ([]Specifier, error) {
	tree, _, err := world.ParseSource(ctx, path, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var specs []Specifier
	collectSpecifiers(tree.RootNode(), content, &specs)
	return specs, nil
}

func collectSpecifiers(node *sitter.Node, content []byte, out *[]Specifier) {
	switch node.Type() {
	case "import_statement":
		// import x = require("y") nests its string inside the clause and is skipped
		if src := sourceOf(node); src != nil {
			appendString(src, KindImport, content, out)
		}
	case "export_statement":
		// export default "x" carries a value, not a source
		if src := node.ChildByFieldName("source"); src != nil {
			appendString(src, KindExport, content, out)
		}
	case "call_expression":
		fn := node.ChildByFieldName("function")
		if fn != nil && fn.Type() == "import" {
			args := node.ChildByFieldName("arguments")
			if args != nil && args.NamedChildCount() > 0 {
				appendString(args.NamedChild(0), KindDynamic, content, out)
			}
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectSpecifiers(node.NamedChild(i), content, out)
	}
}

// sourceOf returns the module string of an import statement. Older
// grammar revisions do not label side-effect imports with the source field,
// so a direct string child is accepted as well.
func sourceOf(stmt *sitter.Node) *sitter.Node {
	if src := stmt.ChildByFieldName("source"); src != nil {
		return src
	}
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		if c := stmt.NamedChild(i); c.Type() == "string" {
			return c
		}
	}
	return nil
}

func appendString(n *sitter.Node, kind SpecifierKind, content []byte, out *[]Specifier) {
	if n == nil || n.Type() != "string" {
		return
	}
	start, end := n.StartByte(), n.EndByte()
	if end-start < 2 {
		return
	}
	start++
	end--
	*out = append(*out, Specifier{
		Kind:  kind,
		Value: string(content[start:end]),
		Start: start,
		End:   end,
		Line:  int(n.StartPoint().Row) + 1,
	})
}
