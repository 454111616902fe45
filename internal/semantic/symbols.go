package semantic

import (
	"solcheck/internal/core"
)

// SymbolTable maps local variable names to their declarations within one
// block scope. Lookups fall back to the enclosing scope.
type SymbolTable struct {
	symbols map[string]*core.LocalVariable
	parent  *SymbolTable
}

func NewSymbolTable(parent *SymbolTable) *SymbolTable {
	return &SymbolTable{
		symbols: make(map[string]*core.LocalVariable),
		parent:  parent,
	}
}

func (st *SymbolTable) Define(v *core.LocalVariable) {
	st.symbols[v.Name] = v
}

func (st *SymbolTable) Lookup(name string) *core.LocalVariable {
	if v, exists := st.symbols[name]; exists {
		return v
	}
	if st.parent != nil {
		return st.parent.Lookup(name)
	}
	return nil
}

func (st *SymbolTable) LookupLocal(name string) *core.LocalVariable {
	return st.symbols[name]
}

// Names lists every visible name, innermost scope first.
func (st *SymbolTable) Names() []string {
	var names []string
	for scope := st; scope != nil; scope = scope.parent {
		for name := range scope.symbols {
			names = append(names, name)
		}
	}
	return names
}
