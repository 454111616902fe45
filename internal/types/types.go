package types

import (
	"strings"
)

// Type is the resolved form of a type reference:
// ElementaryType | ArrayType | MappingType | UserDefinedType | FunctionType.
type Type interface {
	String() string
	isType()
}

// Declaration is a user-defined entity a type can refer to: a contract,
// struct, enum or function.
type Declaration interface {
	DeclName() string
	CanonicalName() string
}

// SignatureTyper is implemented by declarations whose ABI spelling differs
// from their name (contracts are addresses, enums are uint8).
type SignatureTyper interface {
	SignatureType() string
}

type ElementaryType struct {
	Name string
}

// NewElementary returns the elementary type with its canonical spelling.
func NewElementary(name string) *ElementaryType {
	return &ElementaryType{Name: Normalize(name)}
}

func (t *ElementaryType) String() string { return t.Name }
func (*ElementaryType) isType()          {}

func (t *ElementaryType) IsInteger() bool { return IsIntegerType(t.Name) }
func (t *ElementaryType) IsSigned() bool  { return IsSigned(t.Name) }
func (t *ElementaryType) Bits() int       { return IntegerBits(t.Name) }

// ArrayType is a fixed (Length != "") or dynamic array.
type ArrayType struct {
	Base   Type
	Length string
}

func (t *ArrayType) String() string { return t.Base.String() + "[" + t.Length + "]" }
func (*ArrayType) isType()          {}

// IsDynamic reports whether the outermost dimension is unsized.
func (t *ArrayType) IsDynamic() bool { return t.Length == "" }

type MappingType struct {
	Key   Type
	Value Type
}

func (t *MappingType) String() string {
	return "mapping(" + t.Key.String() + " => " + t.Value.String() + ")"
}
func (*MappingType) isType() {}

type UserDefinedType struct {
	Decl Declaration
}

func (t *UserDefinedType) String() string { return t.Decl.DeclName() }
func (*UserDefinedType) isType()          {}

type FunctionType struct {
	Params  []Type
	Returns []Type
}

func (t *FunctionType) String() string {
	s := "function(" + joinTypes(t.Params, ",") + ")"
	if len(t.Returns) > 0 {
		s += " returns(" + joinTypes(t.Returns, ",") + ")"
	}
	return s
}
func (*FunctionType) isType() {}

// ArrayOf wraps base in depth dynamic dimensions.
func ArrayOf(base Type, depth int) Type {
	for i := 0; i < depth; i++ {
		base = &ArrayType{Base: base}
	}
	return base
}

// Equal compares two types structurally.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch x := a.(type) {
	case *ElementaryType:
		y, ok := b.(*ElementaryType)
		return ok && x.Name == y.Name
	case *ArrayType:
		y, ok := b.(*ArrayType)
		return ok && x.Length == y.Length && Equal(x.Base, y.Base)
	case *MappingType:
		y, ok := b.(*MappingType)
		return ok && Equal(x.Key, y.Key) && Equal(x.Value, y.Value)
	case *UserDefinedType:
		y, ok := b.(*UserDefinedType)
		return ok && x.Decl.CanonicalName() == y.Decl.CanonicalName()
	case *FunctionType:
		y, ok := b.(*FunctionType)
		return ok && equalList(x.Params, y.Params) && equalList(x.Returns, y.Returns)
	}
	return false
}

// SignatureName spells t the way function signatures do.
func SignatureName(t Type) string {
	switch x := t.(type) {
	case *ElementaryType:
		return x.Name
	case *ArrayType:
		return SignatureName(x.Base) + "[" + x.Length + "]"
	case *UserDefinedType:
		if st, ok := x.Decl.(SignatureTyper); ok {
			return st.SignatureType()
		}
		return x.Decl.DeclName()
	case *FunctionType:
		return "function"
	case *MappingType:
		return x.String()
	}
	return ""
}

// IsAddress reports whether t is the elementary address type.
func IsAddress(t Type) bool {
	e, ok := t.(*ElementaryType)
	return ok && e.Name == "address"
}

func equalList(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func joinTypes(ts []Type, sep string) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, sep)
}
