package ir

import (
	"fmt"
	"strings"

	"solcheck/internal/core"
	"solcheck/internal/types"
)

// Every operation implements core.Operation. LValue is nil for operations
// that produce no value.

// Assignment copies RValue into LValue.
type Assignment struct {
	LValue core.Value
	RValue core.Value
}

// Binary computes LValue = Left Op Right. Compound assignments and
// increments write the variable itself.
type Binary struct {
	LValue      core.Value
	Left, Right core.Value
	Op          core.BinaryOp
}

// Unary computes LValue = Op RValue for ! and ~.
type Unary struct {
	LValue core.Value
	RValue core.Value
	Op     core.UnaryOp
}

// Index binds LValue to Base[Index].
type Index struct {
	LValue *Reference
	Base   core.Value
	Index  core.Value
}

// Member binds LValue to Base.Field. BaseType is the compiler type string
// of the base, kept for call classification.
type Member struct {
	LValue   *Reference
	Base     core.Value
	Field    *Constant
	BaseType string
}

// Length binds LValue to Base.length.
type Length struct {
	LValue *Reference
	Base   core.Value
}

// Condition is the branch value of an IF or IF_LOOP node.
type Condition struct {
	Value core.Value
}

type Return struct {
	Values []core.Value
}

// Delete resets LValue to its zero value.
type Delete struct {
	LValue core.Value
}

type TypeConversion struct {
	LValue *Temporary
	Value  core.Value
	Type   types.Type
}

// Unpack extracts element Index of a call's tuple result.
type Unpack struct {
	LValue core.Value
	Tuple  *TupleVariable
	Index  int
}

// InitArray assigns an inline array literal.
type InitArray struct {
	LValue core.Value
	Values []core.Value
}

type NewArray struct {
	LValue core.Value
	Depth  int
	Base   types.Type
	Args   []core.Value
}

type NewStructure struct {
	LValue core.Value
	Struct *core.Struct
	Args   []core.Value
}

type NewContract struct {
	LValue    core.Value
	Contract  string
	Args      []core.Value
	CallValue core.Value
}

type NewElementaryType struct {
	LValue core.Value
	Type   types.Type
	Args   []core.Value
}

// InternalCall calls a function of the contract or its ancestors.
type InternalCall struct {
	LValue   core.Value
	Function *core.Function
	Args     []core.Value
}

// InternalDynamicCall calls through a variable of function type.
type InternalDynamicCall struct {
	LValue   core.Value
	Function core.Value
	Args     []core.Value
}

// LibraryCall calls Function of library Destination. Using-for calls carry
// the receiver as first argument.
type LibraryCall struct {
	LValue      core.Value
	Destination *core.Contract
	Function    string
	Args        []core.Value
}

// HighLevelCall is an external call to Function on contract Destination.
type HighLevelCall struct {
	LValue      core.Value
	Destination core.Value
	Function    string
	Args        []core.Value
	CallValue   core.Value
	CallGas     core.Value
}

// LowLevelCall is call, delegatecall, callcode or staticcall on an address.
type LowLevelCall struct {
	LValue      core.Value
	Destination core.Value
	Function    string
	Args        []core.Value
	CallValue   core.Value
	CallGas     core.Value
}

type SolidityCall struct {
	LValue   core.Value
	Function core.SolidityFunction
	Args     []core.Value
}

type EventCall struct {
	Event *core.Event
	Name  string
	Args  []core.Value
}

type Transfer struct {
	Destination core.Value
	Amount      core.Value
}

type Send struct {
	LValue      core.Value
	Destination core.Value
	Amount      core.Value
}

// Push appends Value to Array. LValue receives the new length.
type Push struct {
	LValue core.Value
	Array  core.Value
	Value  core.Value
}

// TmpCall is an unclassified call. It only exists during lowering of one
// node and is replaced by a concrete call before the node's IR is stored.
type TmpCall struct {
	LValue    core.Value
	Called    core.Value
	Args      []core.Value
	CallValue core.Value
	CallGas   core.Value
	TypeCall  string
}

// Lvalue implementations.

func (op *Assignment) Lvalue() core.Value          { return op.LValue }
func (op *Binary) Lvalue() core.Value              { return op.LValue }
func (op *Unary) Lvalue() core.Value               { return op.LValue }
func (op *Index) Lvalue() core.Value               { return op.LValue }
func (op *Member) Lvalue() core.Value              { return op.LValue }
func (op *Length) Lvalue() core.Value              { return op.LValue }
func (op *Condition) Lvalue() core.Value           { return nil }
func (op *Return) Lvalue() core.Value              { return nil }
func (op *Delete) Lvalue() core.Value              { return op.LValue }
func (op *TypeConversion) Lvalue() core.Value      { return op.LValue }
func (op *Unpack) Lvalue() core.Value              { return op.LValue }
func (op *InitArray) Lvalue() core.Value           { return op.LValue }
func (op *NewArray) Lvalue() core.Value            { return op.LValue }
func (op *NewStructure) Lvalue() core.Value        { return op.LValue }
func (op *NewContract) Lvalue() core.Value         { return op.LValue }
func (op *NewElementaryType) Lvalue() core.Value   { return op.LValue }
func (op *InternalCall) Lvalue() core.Value        { return op.LValue }
func (op *InternalDynamicCall) Lvalue() core.Value { return op.LValue }
func (op *LibraryCall) Lvalue() core.Value         { return op.LValue }
func (op *HighLevelCall) Lvalue() core.Value       { return op.LValue }
func (op *LowLevelCall) Lvalue() core.Value        { return op.LValue }
func (op *SolidityCall) Lvalue() core.Value        { return op.LValue }
func (op *EventCall) Lvalue() core.Value           { return nil }
func (op *Transfer) Lvalue() core.Value            { return nil }
func (op *Send) Lvalue() core.Value                { return op.LValue }
func (op *Push) Lvalue() core.Value                { return op.LValue }
func (op *TmpCall) Lvalue() core.Value             { return op.LValue }

// Read implementations. Constants are included; nil operands are not.

func values(vs ...core.Value) []core.Value {
	out := make([]core.Value, 0, len(vs))
	for _, v := range vs {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func (op *Assignment) Read() []core.Value { return values(op.RValue) }

func (op *Binary) Read() []core.Value { return values(op.Left, op.Right) }

func (op *Unary) Read() []core.Value { return values(op.RValue) }

func (op *Index) Read() []core.Value { return values(op.Base, op.Index) }

func (op *Member) Read() []core.Value { return values(op.Base, op.Field) }

func (op *Length) Read() []core.Value { return values(op.Base) }

func (op *Condition) Read() []core.Value { return values(op.Value) }

func (op *Return) Read() []core.Value { return values(op.Values...) }

func (op *Delete) Read() []core.Value { return nil }

func (op *TypeConversion) Read() []core.Value { return values(op.Value) }

func (op *Unpack) Read() []core.Value { return values(op.Tuple) }

func (op *InitArray) Read() []core.Value { return values(op.Values...) }

func (op *NewArray) Read() []core.Value { return values(op.Args...) }

func (op *NewStructure) Read() []core.Value { return values(op.Args...) }

func (op *NewContract) Read() []core.Value {
	return values(append(append([]core.Value(nil), op.Args...), op.CallValue)...)
}

func (op *NewElementaryType) Read() []core.Value { return values(op.Args...) }

func (op *InternalCall) Read() []core.Value { return values(op.Args...) }

func (op *InternalDynamicCall) Read() []core.Value {
	return values(append([]core.Value{op.Function}, op.Args...)...)
}

func (op *LibraryCall) Read() []core.Value { return values(op.Args...) }

func (op *HighLevelCall) Read() []core.Value {
	vs := append([]core.Value{op.Destination}, op.Args...)
	return values(append(vs, op.CallValue, op.CallGas)...)
}

func (op *LowLevelCall) Read() []core.Value {
	vs := append([]core.Value{op.Destination}, op.Args...)
	return values(append(vs, op.CallValue, op.CallGas)...)
}

func (op *SolidityCall) Read() []core.Value { return values(op.Args...) }

func (op *EventCall) Read() []core.Value { return values(op.Args...) }

func (op *Transfer) Read() []core.Value { return values(op.Destination, op.Amount) }

func (op *Send) Read() []core.Value { return values(op.Destination, op.Amount) }

func (op *Push) Read() []core.Value { return values(op.Array, op.Value) }

func (op *TmpCall) Read() []core.Value {
	vs := append([]core.Value{op.Called}, op.Args...)
	return values(append(vs, op.CallValue, op.CallGas)...)
}

// String implementations, one operation per line in the printer.

func joinValues(vs []core.Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func typed(v core.Value) string {
	if tv, ok := v.(core.TypedValue); ok && tv.ValueType() != nil {
		return fmt.Sprintf("%s(%s)", v, tv.ValueType())
	}
	return v.String()
}

func callSuffix(value, gas core.Value) string {
	var b strings.Builder
	if value != nil {
		b.WriteString(" value:" + value.String())
	}
	if gas != nil {
		b.WriteString(" gas:" + gas.String())
	}
	return b.String()
}

func assignTo(lv core.Value, rhs string) string {
	if lv == nil {
		return rhs
	}
	return typed(lv) + " = " + rhs
}

func (op *Assignment) String() string {
	return fmt.Sprintf("%s := %s", typed(op.LValue), op.RValue)
}

func (op *Binary) String() string {
	return fmt.Sprintf("%s = %s %s %s", typed(op.LValue), op.Left, op.Op, op.Right)
}

func (op *Unary) String() string {
	return fmt.Sprintf("%s = %s%s", typed(op.LValue), op.Op, op.RValue)
}

func (op *Index) String() string {
	return fmt.Sprintf("%s -> %s[%s]", typed(op.LValue), op.Base, op.Index)
}

func (op *Member) String() string {
	return fmt.Sprintf("%s -> %s.%s", typed(op.LValue), op.Base, op.Field.Value)
}

func (op *Length) String() string {
	return fmt.Sprintf("%s -> LENGTH %s", typed(op.LValue), op.Base)
}

func (op *Condition) String() string { return "CONDITION " + op.Value.String() }

func (op *Return) String() string {
	if len(op.Values) == 0 {
		return "RETURN"
	}
	return "RETURN " + joinValues(op.Values)
}

func (op *Delete) String() string { return "DELETE " + op.LValue.String() }

func (op *TypeConversion) String() string {
	return fmt.Sprintf("%s = CONVERT %s to %s", typed(op.LValue), op.Value, op.Type)
}

func (op *Unpack) String() string {
	return fmt.Sprintf("%s = UNPACK %s index: %d", typed(op.LValue), op.Tuple, op.Index)
}

func (op *InitArray) String() string {
	return fmt.Sprintf("%s = [%s]", typed(op.LValue), joinValues(op.Values))
}

func (op *NewArray) String() string {
	return assignTo(op.LValue, fmt.Sprintf("new %s%s(%s)", op.Base, strings.Repeat("[]", op.Depth), joinValues(op.Args)))
}

func (op *NewStructure) String() string {
	return assignTo(op.LValue, fmt.Sprintf("new %s(%s)", op.Struct.Name, joinValues(op.Args)))
}

func (op *NewContract) String() string {
	return assignTo(op.LValue, fmt.Sprintf("new %s(%s)%s", op.Contract, joinValues(op.Args), callSuffix(op.CallValue, nil)))
}

func (op *NewElementaryType) String() string {
	return assignTo(op.LValue, fmt.Sprintf("new %s(%s)", op.Type, joinValues(op.Args)))
}

func (op *InternalCall) String() string {
	return assignTo(op.LValue, fmt.Sprintf("INTERNAL_CALL %s(%s)", op.Function.CanonicalName(), joinValues(op.Args)))
}

func (op *InternalDynamicCall) String() string {
	return assignTo(op.LValue, fmt.Sprintf("INTERNAL_DYNAMIC_CALL %s(%s)", op.Function, joinValues(op.Args)))
}

func (op *LibraryCall) String() string {
	return assignTo(op.LValue, fmt.Sprintf("LIBRARY_CALL dest:%s function:%s arguments:[%s]",
		op.Destination.Name, op.Function, joinValues(op.Args)))
}

func (op *HighLevelCall) String() string {
	return assignTo(op.LValue, fmt.Sprintf("HIGH_LEVEL_CALL dest:%s function:%s arguments:[%s]%s",
		op.Destination, op.Function, joinValues(op.Args), callSuffix(op.CallValue, op.CallGas)))
}

func (op *LowLevelCall) String() string {
	return assignTo(op.LValue, fmt.Sprintf("LOW_LEVEL_CALL dest:%s function:%s arguments:[%s]%s",
		op.Destination, op.Function, joinValues(op.Args), callSuffix(op.CallValue, op.CallGas)))
}

func (op *SolidityCall) String() string {
	return assignTo(op.LValue, fmt.Sprintf("SOLIDITY_CALL %s(%s)", op.Function.Signature, joinValues(op.Args)))
}

func (op *EventCall) String() string {
	return fmt.Sprintf("EMIT %s(%s)", op.Name, joinValues(op.Args))
}

func (op *Transfer) String() string {
	return fmt.Sprintf("TRANSFER dest:%s value:%s", op.Destination, op.Amount)
}

func (op *Send) String() string {
	return assignTo(op.LValue, fmt.Sprintf("SEND dest:%s value:%s", op.Destination, op.Amount))
}

func (op *Push) String() string {
	return fmt.Sprintf("PUSH %s in %s", op.Value, op.Array)
}

func (op *TmpCall) String() string {
	return assignTo(op.LValue, fmt.Sprintf("TMPCALL %s(%s)%s", op.Called, joinValues(op.Args), callSuffix(op.CallValue, op.CallGas)))
}

// Tag returns the operation's kind name as used in summaries and in
// structural comparisons of lowered code.
func Tag(op core.Operation) string {
	switch op.(type) {
	case *Assignment:
		return "ASSIGNMENT"
	case *Binary:
		return "BINARY"
	case *Unary:
		return "UNARY"
	case *Index:
		return "INDEX"
	case *Member:
		return "MEMBER"
	case *Length:
		return "LENGTH"
	case *Condition:
		return "CONDITION"
	case *Return:
		return "RETURN"
	case *Delete:
		return "DELETE"
	case *TypeConversion:
		return "CONVERT"
	case *Unpack:
		return "UNPACK"
	case *InitArray:
		return "INIT_ARRAY"
	case *NewArray:
		return "NEW_ARRAY"
	case *NewStructure:
		return "NEW_STRUCTURE"
	case *NewContract:
		return "NEW_CONTRACT"
	case *NewElementaryType:
		return "NEW_ELEMENTARY_TYPE"
	case *InternalCall:
		return "INTERNAL_CALL"
	case *InternalDynamicCall:
		return "INTERNAL_DYNAMIC_CALL"
	case *LibraryCall:
		return "LIBRARY_CALL"
	case *HighLevelCall:
		return "HIGH_LEVEL_CALL"
	case *LowLevelCall:
		return "LOW_LEVEL_CALL"
	case *SolidityCall:
		return "SOLIDITY_CALL"
	case *EventCall:
		return "EVENT_CALL"
	case *Transfer:
		return "TRANSFER"
	case *Send:
		return "SEND"
	case *Push:
		return "PUSH"
	case *TmpCall:
		return "TMPCALL"
	}
	return "UNKNOWN"
}
