package semantic

import (
	"sort"

	"solcheck/internal/core"
)

// DeclarationContext is the unit-wide view of every contract-level
// declaration. It is built once all skeletons exist and is never mutated
// afterwards, so body analysis can read it without synchronization.
type DeclarationContext struct {
	contracts map[string]*core.Contract
	order     []*core.Contract

	// byID maps AST declaration ids to contracts, state variables,
	// functions, modifiers, events, structs and enums.
	byID map[int]core.Value

	structs   map[string][]*core.Struct
	enums     map[string][]*core.Enum
	typeNames []string
}

// NewDeclarationContext snapshots the declarations registered on the unit.
// ids maps AST ids to the declarations created from them.
func NewDeclarationContext(unit *core.CompilationUnit, ids map[int]core.Value) *DeclarationContext {
	ctx := &DeclarationContext{
		contracts: make(map[string]*core.Contract, len(unit.Contracts)),
		order:     append([]*core.Contract(nil), unit.Contracts...),
		byID:      make(map[int]core.Value, len(ids)),
		structs:   make(map[string][]*core.Struct),
		enums:     make(map[string][]*core.Enum),
	}
	for id, v := range ids {
		ctx.byID[id] = v
	}

	names := make(map[string]bool)
	for _, c := range unit.Contracts {
		ctx.contracts[c.Name] = c
		names[c.Name] = true
		for _, s := range c.Structs {
			ctx.structs[s.Name] = append(ctx.structs[s.Name], s)
			names[s.Name] = true
			names[s.CanonicalName()] = true
		}
		for _, e := range c.Enums {
			ctx.enums[e.Name] = append(ctx.enums[e.Name], e)
			names[e.Name] = true
			names[e.CanonicalName()] = true
		}
	}
	for n := range names {
		ctx.typeNames = append(ctx.typeNames, n)
	}
	sort.Strings(ctx.typeNames)
	return ctx
}

// Contract returns the contract with the given name.
func (ctx *DeclarationContext) Contract(name string) *core.Contract {
	return ctx.contracts[name]
}

// Contracts lists all contracts in declaration order.
func (ctx *DeclarationContext) Contracts() []*core.Contract {
	return ctx.order
}

// Lookup returns the declaration created from the AST node with the given id.
func (ctx *DeclarationContext) Lookup(id int) (core.Value, bool) {
	v, ok := ctx.byID[id]
	return v, ok
}

// Struct returns the first struct with the given simple name in declaration order.
func (ctx *DeclarationContext) Struct(name string) *core.Struct {
	if list := ctx.structs[name]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// Enum returns the first enum with the given simple name in declaration order.
func (ctx *DeclarationContext) Enum(name string) *core.Enum {
	if list := ctx.enums[name]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// QualifiedStruct resolves "Contract.Struct".
func (ctx *DeclarationContext) QualifiedStruct(contract, name string) *core.Struct {
	if c := ctx.contracts[contract]; c != nil {
		return c.Struct(name)
	}
	return nil
}

// QualifiedEnum resolves "Contract.Enum".
func (ctx *DeclarationContext) QualifiedEnum(contract, name string) *core.Enum {
	if c := ctx.contracts[contract]; c != nil {
		return c.Enum(name)
	}
	return nil
}

// TypeNames lists every user type name, simple and qualified, for suggestions.
func (ctx *DeclarationContext) TypeNames() []string {
	return ctx.typeNames
}
