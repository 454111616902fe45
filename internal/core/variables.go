package core

import (
	"solcheck/internal/ast"
	"solcheck/internal/types"
)

// Value is anything that can appear as an IR operand or be the target of an
// identifier: variables, IR temporaries, constants, and declarations such as
// contracts and enums used as member-access bases.
type Value interface {
	String() string
}

// TypedValue is a Value that carries a type.
type TypedValue interface {
	Value
	ValueType() types.Type
}

// Variable holds the attributes shared by state and local variables.
type Variable struct {
	Name       string
	Type       types.Type
	Initial    Expression
	Visibility string
	IsConstant bool
	Src        ast.Source
	Decl       *ast.Node
}

func (v *Variable) ValueType() types.Type { return v.Type }

// StateVariable is a contract storage variable. Contract names the declaring
// contract, which may be an ancestor of the contract it is looked up from.
type StateVariable struct {
	Variable
	Contract string
}

func (v *StateVariable) String() string { return v.Name }

// CanonicalName returns "Contract.name".
func (v *StateVariable) CanonicalName() string { return v.Contract + "." + v.Name }

// LocalVariable is a parameter, return variable or body declaration.
// FunctionID identifies the owning function within its contract.
type LocalVariable struct {
	Variable
	Location   string
	FunctionID int
	IsParam    bool
	IsReturn   bool
}

func (v *LocalVariable) String() string { return v.Name }

// IsStorage reports whether the local is a storage pointer.
func (v *LocalVariable) IsStorage() bool { return v.Location == "storage" }
