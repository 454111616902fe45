package core

import (
	"solcheck/internal/ast"
	"solcheck/internal/types"
)

// ContractKind is the declared kind of a contract definition.
type ContractKind string

const (
	KindContract  ContractKind = "contract"
	KindLibrary   ContractKind = "library"
	KindInterface ContractKind = "interface"
)

// Phase is one of the four declaration analysis passes.
type Phase int

const (
	PhaseEnums Phase = iota
	PhaseSkeletons
	PhaseStructs
	PhaseBodies
	PhaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseEnums:
		return "enums"
	case PhaseSkeletons:
		return "declarations"
	case PhaseStructs:
		return "structs"
	case PhaseBodies:
		return "bodies"
	}
	return "unknown"
}

// UsingFor attaches the functions of Library to For. A nil For means "*".
type UsingFor struct {
	Library *Contract
	For     types.Type
}

// Matches reports whether the directive applies to values of type t.
func (u *UsingFor) Matches(t types.Type) bool {
	return u.For == nil || types.Equal(u.For, t)
}

// Contract is a contract, library or interface. Inheritance is the C3
// linearization without the contract itself, nearest ancestor first.
type Contract struct {
	ID          int
	Name        string
	Kind        ContractKind
	Src         ast.Source
	Decl        *ast.Node
	Inheritance []*Contract
	// Immediate lists the directly named bases in declaration order.
	Immediate []*Contract

	Structs        []*Struct
	Enums          []*Enum
	Events         []*Event
	StateVariables []*StateVariable
	Functions      []*Function
	Modifiers      []*Function
	UsingFor       []*UsingFor

	analyzed [PhaseCount]bool
}

func (c *Contract) String() string        { return c.Name }
func (c *Contract) DeclName() string      { return c.Name }
func (c *Contract) CanonicalName() string { return c.Name }
func (c *Contract) SignatureType() string { return "address" }

func (c *Contract) IsLibrary() bool { return c.Kind == KindLibrary }

func (c *Contract) IsAnalyzed(p Phase) bool { return c.analyzed[p] }
func (c *Contract) SetAnalyzed(p Phase)     { c.analyzed[p] = true }

// ResetAnalyzed clears the flag for phase p before the phase runs.
func (c *Contract) ResetAnalyzed(p Phase) { c.analyzed[p] = false }

// lineage returns the contract followed by its linearized ancestors.
func (c *Contract) lineage() []*Contract {
	return append([]*Contract{c}, c.Inheritance...)
}

// InheritsFrom reports whether other is an ancestor of c.
func (c *Contract) InheritsFrom(other *Contract) bool {
	for _, a := range c.Inheritance {
		if a == other {
			return true
		}
	}
	return false
}

// StateVariable looks up a state variable on the contract, then its ancestors.
func (c *Contract) StateVariable(name string) *StateVariable {
	for _, k := range c.lineage() {
		for _, v := range k.StateVariables {
			if v.Name == name {
				return v
			}
		}
	}
	return nil
}

// AllStateVariables lists inherited variables base-most first, then own ones.
func (c *Contract) AllStateVariables() []*StateVariable {
	var out []*StateVariable
	for i := len(c.Inheritance) - 1; i >= 0; i-- {
		out = append(out, c.Inheritance[i].StateVariables...)
	}
	return append(out, c.StateVariables...)
}

// FunctionsNamed returns own then inherited functions with the given name.
func (c *Contract) FunctionsNamed(name string) []*Function {
	var out []*Function
	for _, k := range c.lineage() {
		for _, f := range k.Functions {
			if f.Name == name {
				out = append(out, f)
			}
		}
	}
	return out
}

// OwnFunction returns the first function declared by c itself with the given name.
func (c *Contract) OwnFunction(name string) *Function {
	for _, f := range c.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FunctionBySignature looks up a function by its full signature.
func (c *Contract) FunctionBySignature(sig string) *Function {
	for _, k := range c.lineage() {
		for _, f := range k.Functions {
			if f.Signature() == sig {
				return f
			}
		}
	}
	return nil
}

// AllFunctions lists own functions followed by inherited ones that are not
// overridden by a nearer contract.
func (c *Contract) AllFunctions() []*Function {
	seen := make(map[string]bool)
	var out []*Function
	for _, k := range c.lineage() {
		for _, f := range k.Functions {
			key := f.Signature()
			if f.Kind != KindFunction {
				key = f.Kind.String() + ":" + k.Name
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, f)
		}
	}
	return out
}

// Modifier looks up a modifier on the contract, then its ancestors.
func (c *Contract) Modifier(name string) *Function {
	for _, k := range c.lineage() {
		for _, m := range k.Modifiers {
			if m.Name == name {
				return m
			}
		}
	}
	return nil
}

// Struct looks up a struct on the contract, then its ancestors.
func (c *Contract) Struct(name string) *Struct {
	for _, k := range c.lineage() {
		for _, s := range k.Structs {
			if s.Name == name {
				return s
			}
		}
	}
	return nil
}

// Enum looks up an enum on the contract, then its ancestors.
func (c *Contract) Enum(name string) *Enum {
	for _, k := range c.lineage() {
		for _, e := range k.Enums {
			if e.Name == name {
				return e
			}
		}
	}
	return nil
}

// Event looks up an event on the contract, then its ancestors.
func (c *Contract) Event(name string) *Event {
	for _, k := range c.lineage() {
		for _, e := range k.Events {
			if e.Name == name {
				return e
			}
		}
	}
	return nil
}

// LibrariesFor returns the libraries attached to t by using-for directives
// of the contract and its ancestors, in lookup order without duplicates.
func (c *Contract) LibrariesFor(t types.Type) []*Contract {
	seen := make(map[*Contract]bool)
	var out []*Contract
	for _, k := range c.lineage() {
		for _, u := range k.UsingFor {
			if u.Matches(t) && !seen[u.Library] {
				seen[u.Library] = true
				out = append(out, u.Library)
			}
		}
	}
	return out
}

// FunctionByID returns the function or modifier with the given id.
func (c *Contract) FunctionByID(id int) *Function {
	for _, f := range c.Functions {
		if f.ID == id {
			return f
		}
	}
	for _, m := range c.Modifiers {
		if m.ID == id {
			return m
		}
	}
	return nil
}
