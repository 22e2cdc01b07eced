package gentype

import (
	"strings"
)

// Prelude declares the generic helpers mapped Rust collections refer to.
const Prelude = `type HashSet<T extends number | string> = Record<T, undefined>;
type HashMap<T extends number | string, U> = Record<T, U>;
type Vec<T> = Array<T>;
type Option<T> = T | undefined;
type Result<T, U> = T | U;
`

// EmitOptions controls rendering. Tag and Content are the default enum
// discriminator and payload keys. ExportPrivate exports non-pub items too.
type EmitOptions struct {
	Tag           string
	Content       string
	ExportPrivate bool
}

// DefaultEmitOptions matches serde's adjacently tagged layout with short keys.
func DefaultEmitOptions() EmitOptions {
	return EmitOptions{Tag: "t", Content: "c"}
}

var numberTypes = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"f32": true, "f64": true,
}

var wrapperTypes = map[string]bool{
	"Box": true, "Rc": true, "Arc": true, "Cell": true, "RefCell": true, "Cow": true,
}

var collectionAliases = map[string]string{
	"Vec": "Vec", "VecDeque": "Vec", "LinkedList": "Vec",
	"HashMap": "HashMap", "BTreeMap": "HashMap", "IndexMap": "HashMap",
	"HashSet": "HashSet", "BTreeSet": "HashSet", "IndexSet": "HashSet",
}

// MapType renders a Rust type as TypeScript.
func MapType(t TypeRef) string {
	switch t.Kind {
	case TypeUnit:
		return "null"
	case TypeReference:
		return MapType(t.Args[0])
	case TypeArray:
		return "Vec<" + MapType(t.Args[0]) + ">"
	case TypeTuple:
		return "[" + mapList(t.Args) + "]"
	case TypeUnknown:
		return "unknown"
	}

	switch {
	case numberTypes[t.Name]:
		return "number"
	case t.Name == "String" || t.Name == "str" || t.Name == "char":
		return "string"
	case t.Name == "bool":
		return "boolean"
	case wrapperTypes[t.Name] && len(t.Args) > 0:
		// Cow<'a, T> keeps T as its only type argument once lifetimes are dropped
		return MapType(t.Args[len(t.Args)-1])
	}

	name := t.Name
	if alias, ok := collectionAliases[name]; ok {
		name = alias
	}
	if len(t.Args) == 0 {
		return name
	}
	return name + "<" + mapList(t.Args) + ">"
}

func mapList(types []TypeRef) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = MapType(t)
	}
	return strings.Join(parts, ", ")
}

// Emit renders the prelude followed by every declaration in source order,
// separated by blank lines.
func Emit(mod *Module, opts EmitOptions) []byte {
	if opts.Tag == "" {
		opts.Tag = "t"
	}
	if opts.Content == "" {
		opts.Content = "c"
	}

	var b strings.Builder
	b.WriteString(Prelude)
	for i, d := range mod.Decls {
		if i > 0 {
			b.WriteString("\n\n")
		}
		emitDecl(&b, d, opts)
	}
	if len(mod.Decls) > 0 {
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func emitDecl(b *strings.Builder, d Decl, opts EmitOptions) {
	if d.Public || opts.ExportPrivate {
		b.WriteString("export ")
	}
	name := d.Name
	if len(d.Params) > 0 {
		name += "<" + strings.Join(d.Params, ", ") + ">"
	}

	switch d.Kind {
	case DeclAlias:
		b.WriteString("type " + name + " = " + MapType(d.Alias))
	case DeclUnitStruct:
		b.WriteString("type " + name + " = null")
	case DeclTupleStruct:
		b.WriteString("type " + name + " = " + tupleType(d.Tuple))
	case DeclStruct:
		b.WriteString("interface " + name + " {\n")
		for _, f := range d.Fields {
			b.WriteString("\t" + f.Name + ": " + MapType(f.Type) + "\n")
		}
		b.WriteString("}")
	case DeclEnum:
		if len(d.Variants) == 0 {
			b.WriteString("type " + name + " = never")
			return
		}
		tag, content := opts.Tag, opts.Content
		if d.Tag != "" {
			tag = d.Tag
		}
		if d.Content != "" {
			content = d.Content
		}
		b.WriteString("type " + name + " = ")
		for _, v := range d.Variants {
			b.WriteString("\n\t | { " + tag + ": \"" + v.Name + "\"")
			if payload, ok := variantPayload(v); ok {
				b.WriteString(", " + content + ": " + payload)
			}
			b.WriteString("}")
		}
	}
}

// tupleType renders tuple struct fields: none is null, one collapses to the
// field type, more become a TypeScript tuple.
func tupleType(types []TypeRef) string {
	switch len(types) {
	case 0:
		return "null"
	case 1:
		return MapType(types[0])
	}
	return "[" + mapList(types) + "]"
}

func variantPayload(v Variant) (string, bool) {
	switch {
	case v.Fields != nil:
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = f.Name + ": " + MapType(f.Type)
		}
		if len(parts) == 0 {
			return "{}", true
		}
		return "{ " + strings.Join(parts, ", ") + " }", true
	case v.Tuple != nil:
		return tupleType(v.Tuple), true
	}
	return "", false
}
