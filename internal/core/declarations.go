package core

import (
	"encoding/hex"
	"strings"

	"solcheck/internal/ast"
	"solcheck/internal/types"
)

type StructMember struct {
	Name string
	Type types.Type
	Src  ast.Source
}

// Struct is a struct declaration. Members are filled in during the third
// analysis phase so that they may refer to any struct of the unit.
type Struct struct {
	Name     string
	Contract string
	Members  []*StructMember
	Src      ast.Source
	Decl     *ast.Node
}

func (s *Struct) String() string        { return s.Name }
func (s *Struct) DeclName() string      { return s.Name }
func (s *Struct) CanonicalName() string { return s.Contract + "." + s.Name }

// SignatureType returns the ABI tuple form of the struct.
func (s *Struct) SignatureType() string {
	parts := make([]string, len(s.Members))
	for i, m := range s.Members {
		parts[i] = types.SignatureName(m.Type)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Member returns the member with the given name.
func (s *Struct) Member(name string) *StructMember {
	for _, m := range s.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

type Enum struct {
	Name     string
	Contract string
	Values   []string
	Src      ast.Source
}

func (e *Enum) String() string        { return e.Name }
func (e *Enum) DeclName() string      { return e.Name }
func (e *Enum) CanonicalName() string { return e.Contract + "." + e.Name }
func (e *Enum) SignatureType() string { return "uint8" }

// Index returns the ordinal of a value, or -1.
func (e *Enum) Index(value string) int {
	for i, v := range e.Values {
		if v == value {
			return i
		}
	}
	return -1
}

type EventParam struct {
	Name    string
	Type    types.Type
	Indexed bool
}

type Event struct {
	Name      string
	Contract  string
	Params    []*EventParam
	Anonymous bool
	Src       ast.Source
	Decl      *ast.Node
}

func (e *Event) String() string        { return e.Name }
func (e *Event) DeclName() string      { return e.Name }
func (e *Event) CanonicalName() string { return e.Contract + "." + e.Name }

// Signature returns "Name(t1,t2)".
func (e *Event) Signature() string {
	parts := make([]string, len(e.Params))
	for i, p := range e.Params {
		parts[i] = types.SignatureName(p.Type)
	}
	return e.Name + "(" + strings.Join(parts, ",") + ")"
}

// Topic returns keccak256 of the signature as 0x-prefixed hex.
func (e *Event) Topic() string {
	return "0x" + hex.EncodeToString(keccak256([]byte(e.Signature())))
}
