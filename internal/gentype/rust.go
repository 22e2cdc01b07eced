package gentype

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cesm/internal/logging"
	"cesm/internal/world"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrSyntax is returned for Rust source the grammar cannot parse cleanly.
var ErrSyntax = errors.New("rust syntax error")

// serdeAttrs is the subset of #[serde(...)] options gentype honors.
type serdeAttrs struct {
	tag     string
	content string
	rename  string
	skip    bool
}

// ParseRust extracts struct, enum and type alias declarations from Rust
// source, including those nested in inline mod blocks.
func ParseRust(ctx context.Context, content []byte) (*Module, error) {
	tree, err := world.ParseLanguage(ctx, world.LangRust, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if bad := world.FirstError(root); bad != nil {
		pos := bad.StartPoint()
		return nil, fmt.Errorf("%w at %d:%d", ErrSyntax, pos.Row+1, pos.Column+1)
	}

	p := &rustParser{content: content}
	mod := &Module{}
	p.walkItems(root, mod)
	logging.GentypeDebug("parsed %d declarations", len(mod.Decls))
	return mod, nil
}

type rustParser struct {
	content []byte
}

func (p *rustParser) text(n *sitter.Node) string {
	return world.NodeText(n, p.content)
}

func isComment(n *sitter.Node) bool {
	switch n.Type() {
	case "line_comment", "block_comment":
		return true
	}
	return false
}

func (p *rustParser) walkItems(node *sitter.Node, mod *Module) {
	var attrs serdeAttrs
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if isComment(child) {
			continue
		}
		if child.Type() == "attribute_item" {
			attrs.merge(p.parseAttribute(child))
			continue
		}

		switch child.Type() {
		case "struct_item":
			if d, ok := p.parseStruct(child); ok {
				mod.Decls = append(mod.Decls, d)
			}
		case "enum_item":
			if d, ok := p.parseEnum(child, attrs); ok {
				mod.Decls = append(mod.Decls, d)
			}
		case "type_item":
			if d, ok := p.parseAlias(child); ok {
				mod.Decls = append(mod.Decls, d)
			}
		case "mod_item":
			if body := child.ChildByFieldName("body"); body != nil {
				p.walkItems(body, mod)
			}
		}
		attrs = serdeAttrs{}
	}
}

func (p *rustParser) isPublic(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "visibility_modifier" {
			return strings.HasPrefix(p.text(child), "pub")
		}
	}
	return false
}

func (p *rustParser) typeParams(n *sitter.Node) []string {
	params := n.ChildByFieldName("type_parameters")
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		switch child.Type() {
		case "type_identifier":
			out = append(out, p.text(child))
		case "type_parameter", "constrained_type_parameter", "optional_type_parameter":
			name := child.ChildByFieldName("name")
			if name == nil {
				name = child.ChildByFieldName("left")
			}
			if name == nil && child.NamedChildCount() > 0 {
				name = child.NamedChild(0)
			}
			if name != nil && name.Type() == "type_identifier" {
				out = append(out, p.text(name))
			}
		}
	}
	return out
}

func (p *rustParser) parseStruct(n *sitter.Node) (Decl, bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return Decl{}, false
	}
	d := Decl{
		Kind:   DeclUnitStruct,
		Name:   p.text(name),
		Params: p.typeParams(n),
		Public: p.isPublic(n),
	}
	if body := n.ChildByFieldName("body"); body != nil {
		switch body.Type() {
		case "field_declaration_list":
			d.Kind = DeclStruct
			d.Fields = p.parseFields(body)
		case "ordered_field_declaration_list":
			d.Kind = DeclTupleStruct
			d.Tuple = p.parseTupleFields(body)
		}
	}
	return d, true
}

func (p *rustParser) parseAlias(n *sitter.Node) (Decl, bool) {
	name := n.ChildByFieldName("name")
	typ := n.ChildByFieldName("type")
	if name == nil || typ == nil {
		return Decl{}, false
	}
	return Decl{
		Kind:   DeclAlias,
		Name:   p.text(name),
		Params: p.typeParams(n),
		Public: p.isPublic(n),
		Alias:  p.parseType(typ),
	}, true
}

func (p *rustParser) parseEnum(n *sitter.Node, attrs serdeAttrs) (Decl, bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return Decl{}, false
	}
	d := Decl{
		Kind:    DeclEnum,
		Name:    p.text(name),
		Params:  p.typeParams(n),
		Public:  p.isPublic(n),
		Tag:     attrs.tag,
		Content: attrs.content,
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return d, true
	}

	var vattrs serdeAttrs
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if isComment(child) {
			continue
		}
		if child.Type() == "attribute_item" {
			vattrs.merge(p.parseAttribute(child))
			continue
		}
		if child.Type() == "enum_variant" && !vattrs.skip {
			if v, ok := p.parseVariant(child, vattrs); ok {
				d.Variants = append(d.Variants, v)
			}
		}
		vattrs = serdeAttrs{}
	}
	return d, true
}

func (p *rustParser) parseVariant(n *sitter.Node, attrs serdeAttrs) (Variant, bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return Variant{}, false
	}
	v := Variant{Name: p.text(name)}
	if attrs.rename != "" {
		v.Name = attrs.rename
	}
	if body := n.ChildByFieldName("body"); body != nil {
		switch body.Type() {
		case "field_declaration_list":
			v.Fields = p.parseFields(body)
			if v.Fields == nil {
				v.Fields = []Field{}
			}
		case "ordered_field_declaration_list":
			v.Tuple = p.parseTupleFields(body)
			if v.Tuple == nil {
				v.Tuple = []TypeRef{}
			}
		}
	}
	return v, true
}

func (p *rustParser) parseFields(list *sitter.Node) []Field {
	var fields []Field
	var attrs serdeAttrs
	for i := 0; i < int(list.NamedChildCount()); i++ {
		child := list.NamedChild(i)
		if isComment(child) {
			continue
		}
		if child.Type() == "attribute_item" {
			attrs.merge(p.parseAttribute(child))
			continue
		}
		if child.Type() == "field_declaration" && !attrs.skip {
			name := child.ChildByFieldName("name")
			typ := child.ChildByFieldName("type")
			if name != nil && typ != nil {
				f := Field{Name: strings.TrimPrefix(p.text(name), "r#"), Type: p.parseType(typ)}
				if attrs.rename != "" {
					f.Name = attrs.rename
				}
				fields = append(fields, f)
			}
		}
		attrs = serdeAttrs{}
	}
	return fields
}

func (p *rustParser) parseTupleFields(list *sitter.Node) []TypeRef {
	var types []TypeRef
	skip := false
	for i := 0; i < int(list.NamedChildCount()); i++ {
		child := list.NamedChild(i)
		switch {
		case isComment(child), child.Type() == "visibility_modifier":
			continue
		case child.Type() == "attribute_item":
			if p.parseAttribute(child).skip {
				skip = true
			}
			continue
		}
		if !skip {
			types = append(types, p.parseType(child))
		}
		skip = false
	}
	return types
}

func (p *rustParser) parseType(n *sitter.Node) TypeRef {
	switch n.Type() {
	case "primitive_type", "type_identifier":
		return Named(p.text(n))
	case "scoped_type_identifier":
		if name := n.ChildByFieldName("name"); name != nil {
			return Named(p.text(name))
		}
	case "generic_type":
		base := n.ChildByFieldName("type")
		if base == nil {
			break
		}
		ref := p.parseType(base)
		if args := n.ChildByFieldName("type_arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				arg := args.NamedChild(i)
				switch arg.Type() {
				case "lifetime", "type_binding", "block":
					continue
				}
				ref.Args = append(ref.Args, p.parseType(arg))
			}
		}
		return ref
	case "reference_type", "pointer_type":
		if inner := n.ChildByFieldName("type"); inner != nil {
			return TypeRef{Kind: TypeReference, Args: []TypeRef{p.parseType(inner)}}
		}
	case "array_type":
		if elem := n.ChildByFieldName("element"); elem != nil {
			return TypeRef{Kind: TypeArray, Args: []TypeRef{p.parseType(elem)}}
		}
	case "tuple_type":
		ref := TypeRef{Kind: TypeTuple}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			ref.Args = append(ref.Args, p.parseType(n.NamedChild(i)))
		}
		return ref
	case "unit_type":
		return TypeRef{Kind: TypeUnit}
	}
	return TypeRef{Kind: TypeUnknown, Name: p.text(n)}
}

// parseAttribute reads a #[serde(...)] attribute from its source text. Other
// attributes yield the zero value.
func (p *rustParser) parseAttribute(n *sitter.Node) serdeAttrs {
	src := strings.TrimSpace(p.text(n))
	src = strings.TrimPrefix(src, "#")
	src = strings.TrimSpace(src)
	src = strings.TrimPrefix(src, "[")
	src = strings.TrimSuffix(src, "]")
	src = strings.TrimSpace(src)
	if !strings.HasPrefix(src, "serde") {
		return serdeAttrs{}
	}
	src = strings.TrimSpace(strings.TrimPrefix(src, "serde"))
	if !strings.HasPrefix(src, "(") || !strings.HasSuffix(src, ")") {
		return serdeAttrs{}
	}
	return parseSerdeArgs(src[1 : len(src)-1])
}

// parseSerdeArgs scans `key = "value", flag` lists.
func parseSerdeArgs(s string) serdeAttrs {
	var attrs serdeAttrs
	i := 0
	for i < len(s) {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',' {
			i++
			continue
		}
		start := i
		for i < len(s) && isIdentByte(s[i]) {
			i++
		}
		key := s[start:i]
		if key == "" {
			// unknown token such as a nested list; skip to the next comma
			for i < len(s) && s[i] != ',' {
				i++
			}
			continue
		}
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i < len(s) && s[i] == '=' {
			i++
			for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
				i++
			}
			if i < len(s) && s[i] == '"' {
				end := strings.IndexByte(s[i+1:], '"')
				if end < 0 {
					return attrs
				}
				attrs.set(key, s[i+1:i+1+end])
				i += end + 2
				continue
			}
			for i < len(s) && s[i] != ',' {
				i++
			}
			continue
		}
		if key == "skip" || key == "skip_serializing" {
			attrs.skip = true
		}
	}
	return attrs
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (a *serdeAttrs) set(key, value string) {
	switch key {
	case "tag":
		a.tag = value
	case "content":
		a.content = value
	case "rename":
		a.rename = value
	}
}

func (a *serdeAttrs) merge(o serdeAttrs) {
	if o.tag != "" {
		a.tag = o.tag
	}
	if o.content != "" {
		a.content = o.content
	}
	if o.rename != "" {
		a.rename = o.rename
	}
	a.skip = a.skip || o.skip
}
