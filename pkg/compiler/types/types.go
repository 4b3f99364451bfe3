// Package types is the semantic type model: the Type sum, assignability,
// equality, and the custom-type registry. Mirrors the AST's marker-method
// idiom for its own closed sum.
package types

import "strings"

// Type is the semantic type of a value or expression. It is a closed
// sum over Primitive, Array, Object, Function, Union, Promise, Unknown.
type Type interface {
	typeNode()
}

// Primitive is number | string | boolean | null.
type Primitive struct {
	Name string
}

func (Primitive) typeNode() {}

var (
	Number  Type = Primitive{Name: "number"}
	String  Type = Primitive{Name: "string"}
	Boolean Type = Primitive{Name: "boolean"}
	Null    Type = Primitive{Name: "null"}
)

// Array is Array<Element>.
type Array struct {
	Element Type
}

func (Array) typeNode() {}

// Field is one ordered member of an Object type.
type Field struct {
	Name string
	Type Type
}

// Object is a structural object type, optionally carrying a display
// name (a "named object type" per the glossary). Fields preserve
// declaration order so stringification is stable.
type Object struct {
	Name   string // "" when anonymous
	Fields []Field
}

func (Object) typeNode() {}

// Lookup returns the field's type and whether it exists.
func (o Object) Lookup(name string) (Type, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// Function is a (possibly async) function signature.
type Function struct {
	Params []Type
	Return Type
	Async  bool
}

func (Function) typeNode() {}

// Union is an ordered, undeduplicated list of alternatives.
type Union struct {
	Alternatives []Type
}

func (Union) typeNode() {}

// Promise is Promise<Resolve>.
type Promise struct {
	Resolve Type
}

func (Promise) typeNode() {}

// Unknown is the top/bottom type: assignable to and from everything.
type Unknown struct{}

func (Unknown) typeNode() {}

// Equal reports structural equality. Primitives compare by name; Array
// and Promise compare recursively on their inner type; named Objects
// compare nominally; everything else (anonymous Object, Function,
// Union, Unknown-vs-non-Unknown) is treated as non-equal.
func Equal(a, b Type) bool {
	switch av := a.(type) {
	case Primitive:
		bv, ok := b.(Primitive)
		return ok && av.Name == bv.Name
	case Array:
		bv, ok := b.(Array)
		return ok && Equal(av.Element, bv.Element)
	case Promise:
		bv, ok := b.(Promise)
		return ok && Equal(av.Resolve, bv.Resolve)
	case Object:
		bv, ok := b.(Object)
		return ok && av.Name != "" && av.Name == bv.Name
	case Unknown:
		_, ok := b.(Unknown)
		return ok
	default:
		return false
	}
}

// IsAssignable reports whether a value of type source may be used
// where target is expected: Unknown matches anything in either
// position, a Union source requires every alternative to match, a
// Union target accepts any alternative, and Object matching is
// width-subtyped (source must have at least the target's fields).
func IsAssignable(source, target Type) bool {
	if u, ok := source.(Union); ok {
		for _, alt := range u.Alternatives {
			if !IsAssignable(alt, target) {
				return false
			}
		}
		return true
	}

	if _, ok := source.(Unknown); ok {
		return true
	}
	if _, ok := target.(Unknown); ok {
		return true
	}

	if Equal(source, target) {
		return true
	}

	if tu, ok := target.(Union); ok {
		for _, alt := range tu.Alternatives {
			if IsAssignable(source, alt) {
				return true
			}
		}
		return false
	}

	switch sv := source.(type) {
	case Array:
		tv, ok := target.(Array)
		return ok && IsAssignable(sv.Element, tv.Element)
	case Promise:
		tv, ok := target.(Promise)
		return ok && IsAssignable(sv.Resolve, tv.Resolve)
	case Object:
		tv, ok := target.(Object)
		if !ok {
			return false
		}
		for _, tf := range tv.Fields {
			sf, ok := sv.Lookup(tf.Name)
			if !ok || !IsAssignable(sf, tf.Type) {
				return false
			}
		}
		return true
	}

	return false
}

// ToString renders a stable, human-readable form of t.
func ToString(t Type) string {
	switch v := t.(type) {
	case Primitive:
		return v.Name
	case Array:
		return ToString(v.Element) + "[]"
	case Promise:
		return "Promise<" + ToString(v.Resolve) + ">"
	case Object:
		if v.Name != "" {
			return v.Name
		}
		if len(v.Fields) == 0 {
			return "{}"
		}
		parts := make([]string, len(v.Fields))
		for i, f := range v.Fields {
			parts[i] = f.Name + ": " + ToString(f.Type)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case Function:
		parts := make([]string, len(v.Params))
		for i, p := range v.Params {
			parts[i] = ToString(p)
		}
		prefix := ""
		if v.Async {
			prefix = "async "
		}
		return prefix + "(" + strings.Join(parts, ", ") + ") => " + ToString(v.Return)
	case Union:
		parts := make([]string, len(v.Alternatives))
		for i, alt := range v.Alternatives {
			parts[i] = ToString(alt)
		}
		return strings.Join(parts, " | ")
	case Unknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// MergeReturns collapses a list of return-statement types into a single
// program/function return type: Unknown when empty, the sole type when
// one, otherwise a Union in encounter order (no dedup).
func MergeReturns(types []Type) Type {
	switch len(types) {
	case 0:
		return Unknown{}
	case 1:
		return types[0]
	default:
		return Union{Alternatives: types}
	}
}

// Registry is the process-scoped custom-type registry, keyed by name.
// It survives across Compiler.Compile calls so previously-registered
// types remain visible.
type Registry struct {
	entries map[string]Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Type)}
}

// Register adds or replaces the named entry.
func (r *Registry) Register(name string, t Type) {
	r.entries[name] = t
}

// Lookup returns the named entry and whether it exists.
func (r *Registry) Lookup(name string) (Type, bool) {
	t, ok := r.entries[name]
	return t, ok
}
