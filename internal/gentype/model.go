// Package gentype converts Rust type declarations into TypeScript
// declaration files. Rust source is parsed with tree-sitter into a small
// model (Module, Decl, TypeRef) which Emit renders as TypeScript.
package gentype

// TypeKind classifies a TypeRef.
type TypeKind int

const (
	TypeNamed TypeKind = iota
	TypeTuple
	TypeArray
	TypeReference
	TypeUnit
	TypeUnknown
)

// TypeRef is a Rust type expression. Named types carry their last path
// segment in Name and generic arguments in Args. Arrays, slices and
// references keep their element in Args[0]. Unknown types keep their
// source text in Name.
type TypeRef struct {
	Kind TypeKind
	Name string
	Args []TypeRef
}

// Named builds a named TypeRef.
func Named(name string, args ...TypeRef) TypeRef {
	return TypeRef{Kind: TypeNamed, Name: name, Args: args}
}

// Field is a named struct field or struct-variant field.
type Field struct {
	Name string
	Type TypeRef
}

// Variant is one enum variant. A unit variant has neither Fields nor Tuple.
type Variant struct {
	Name   string
	Fields []Field
	Tuple  []TypeRef
}

// IsUnit reports whether the variant carries no data.
func (v Variant) IsUnit() bool {
	return v.Fields == nil && v.Tuple == nil
}

// DeclKind is the kind of a top-level declaration.
type DeclKind string

const (
	DeclStruct      DeclKind = "struct"
	DeclTupleStruct DeclKind = "tuple struct"
	DeclUnitStruct  DeclKind = "unit struct"
	DeclEnum        DeclKind = "enum"
	DeclAlias       DeclKind = "alias"
)

// Decl is a type declaration in source order. Tag and Content hold the
// enum's serde tag names; empty means the emitter's defaults apply.
type Decl struct {
	Kind     DeclKind
	Name     string
	Params   []string
	Public   bool
	Fields   []Field
	Tuple    []TypeRef
	Variants []Variant
	Alias    TypeRef
	Tag      string
	Content  string
}

// Module is everything ParseRust found in one file.
type Module struct {
	Decls []Decl
}
