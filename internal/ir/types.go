package ir

import (
	"fmt"
	"strings"

	"solcheck/grammar"
	"solcheck/internal/ast"
	"solcheck/internal/errors"
	"solcheck/internal/types"
)

// IR operands. Local and state variables, Solidity builtins and
// declarations used as call targets come from package core; the values
// below are introduced by lowering. Temporaries, references and tuples are
// numbered per node and written exactly once.

// Constant is a literal operand.
type Constant struct {
	Value string
	Type  types.Type
}

func (c *Constant) String() string {
	if c.Type != nil && c.Type.String() == "string" {
		return fmt.Sprintf("%q", c.Value)
	}
	return c.Value
}

func (c *Constant) ValueType() types.Type { return c.Type }

// Temporary holds an intermediate value.
type Temporary struct {
	Index int
	Type  types.Type
}

func (t *Temporary) String() string        { return fmt.Sprintf("TMP_%d", t.Index) }
func (t *Temporary) ValueType() types.Type { return t.Type }

// Reference points into storage or memory: an array element, a mapping
// entry or a member.
type Reference struct {
	Index int
	Type  types.Type
}

func (r *Reference) String() string        { return fmt.Sprintf("REF_%d", r.Index) }
func (r *Reference) ValueType() types.Type { return r.Type }

// TupleVariable holds the multiple results of a call until unpacked.
type TupleVariable struct {
	Index int
	Types []types.Type
}

func (t *TupleVariable) String() string { return fmt.Sprintf("TUPLE_%d", t.Index) }

// TypeResolver resolves compiler type strings. *semantic.Resolver
// implements it for the contract being lowered.
type TypeResolver interface {
	ResolveString(text string, src ast.Source) (types.Type, error)
}

// typer turns the type strings recorded on expressions into types.
// Compiler pseudo types have no declaration to resolve to: rational and
// string literal types map to their natural elementary type, while magic
// variables, type expressions and tuples stay untyped. Any other string that
// does not resolve fails the lowering.
type typer struct {
	resolver TypeResolver
	src      ast.Source
}

var magicTypes = map[string]bool{"msg": true, "block": true, "tx": true, "abi": true}

func (t typer) typeOf(text string) (types.Type, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "" || magicTypes[text]:
		return nil, nil
	case strings.HasPrefix(text, "int_const -"), strings.HasPrefix(text, "rational_const -"):
		return types.NewElementary("int256"), nil
	case strings.HasPrefix(text, "int_const"), strings.HasPrefix(text, "rational_const"):
		return types.NewElementary("uint256"), nil
	case strings.HasPrefix(text, "literal_string"):
		return types.NewElementary("string"), nil
	case strings.HasPrefix(text, "type("), strings.HasPrefix(text, "tuple("),
		strings.HasPrefix(text, "contract super "), strings.HasPrefix(text, "modifier "):
		return nil, nil
	}
	if t.resolver == nil {
		return nil, nil
	}
	resolved, err := t.resolver.ResolveString(text, t.src)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrorMalformedTypeDescriptor {
			return nil, errors.UntypedOperand("'"+text+"'", err)
		}
		return nil, err
	}
	return resolved, nil
}

// tupleTypes resolves the element types of "tuple(t1,t2)". Holes of the
// form "tuple(,uint256)" give nil elements.
func (t typer) tupleTypes(text string) ([]types.Type, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(text), "tuple("), ")")
	if inner == "" {
		return nil, nil
	}
	parts := splitTopLevel(inner)
	out := make([]types.Type, len(parts))
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		elem, err := t.typeOf(p)
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}

// tupleArity counts the elements of a "tuple(...)" type string, or returns
// -1 when text is not a tuple type.
func tupleArity(text string) int {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "tuple(") {
		return -1
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "tuple("), ")")
	if inner == "" {
		return 0
	}
	return len(splitTopLevel(inner))
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// isArrayLike reports whether a type string denotes a dynamic array,
// bytes or string, the types with a length member and push.
func isArrayLike(text string) bool {
	d, err := grammar.Parse(text)
	if err != nil {
		return false
	}
	if len(d.Dims()) > 0 {
		return true
	}
	if n := d.Base.Named; n != nil && n.Kind == "" && len(n.Path) == 1 {
		name := n.Path[0]
		return name == "bytes" || name == "string"
	}
	return false
}

// isAddressType reports whether a type string denotes an address.
func isAddressType(text string) bool {
	d, err := grammar.Parse(text)
	if err != nil {
		return false
	}
	n := d.Base.Named
	return n != nil && len(d.Dims()) == 0 && len(n.Path) == 1 && n.Path[0] == "address"
}
