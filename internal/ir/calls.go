package ir

import (
	"fmt"
	"strings"

	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/types"
)

var lowLevelCalls = map[string]bool{
	"call":         true,
	"delegatecall": true,
	"callcode":     true,
	"staticcall":   true,
}

// callOptions is a `.value(v)` or `.gas(g)` wrapper around a call target.
type callOptions struct {
	target core.Value
	value  core.Value
	gas    core.Value
}

// resolveCalls replaces every TmpCall of the node by a concrete call.
// Wrapper calls setting value or gas are folded into the call they wrap.
func (b *nodeBuilder) resolveCalls() error {
	defs := make(map[core.Value]core.Operation)
	wrappers := make(map[core.Value]*callOptions)
	out := b.ops[:0:0]

	for _, op := range b.ops {
		tmp, ok := op.(*TmpCall)
		if !ok {
			if lv := op.Lvalue(); lv != nil {
				defs[lv] = op
			}
			out = append(out, op)
			continue
		}

		called, value, gas := tmp.Called, tmp.CallValue, tmp.CallGas
		if w, ok := wrappers[called]; ok {
			called = w.target
			if value == nil {
				value = w.value
			}
			if gas == nil {
				gas = w.gas
			}
		}

		if opts := wrapperOf(tmp, called, defs); opts != nil {
			if value != nil && opts.value == nil {
				opts.value = value
			}
			if gas != nil && opts.gas == nil {
				opts.gas = gas
			}
			if inner, ok := wrappers[opts.target]; ok {
				opts.target = inner.target
				if opts.value == nil {
					opts.value = inner.value
				}
				if opts.gas == nil {
					opts.gas = inner.gas
				}
			}
			wrappers[tmp.LValue] = opts
			continue
		}

		resolved, err := b.classify(tmp, called, value, gas, defs)
		if err != nil {
			return err
		}
		if lv := resolved.Lvalue(); lv != nil {
			defs[lv] = resolved
		}
		out = append(out, resolved)
	}
	b.ops = out
	return nil
}

// wrapperOf recognizes f.value(v) and f.gas(g): a call of a value or gas
// member whose result is itself a function.
func wrapperOf(tmp *TmpCall, called core.Value, defs map[core.Value]core.Operation) *callOptions {
	if tmp.LValue == nil || !strings.HasPrefix(strings.TrimSpace(tmp.TypeCall), "function") || len(tmp.Args) != 1 {
		return nil
	}
	m, ok := defs[called].(*Member)
	if !ok {
		return nil
	}
	switch m.Field.Value {
	case "value":
		return &callOptions{target: m.Base, value: tmp.Args[0]}
	case "gas":
		return &callOptions{target: m.Base, gas: tmp.Args[0]}
	}
	return nil
}

func (b *nodeBuilder) classify(tmp *TmpCall, called, value, gas core.Value, defs map[core.Value]core.Operation) (core.Operation, error) {
	lv, args := tmp.LValue, tmp.Args

	switch target := called.(type) {
	case *core.Function:
		return &InternalCall{LValue: lv, Function: target, Args: args}, nil

	case core.SolidityFunction:
		return &SolidityCall{LValue: lv, Function: target, Args: args}, nil

	case *core.Struct:
		return &NewStructure{LValue: lv, Struct: target, Args: args}, nil

	case *core.Event:
		return &EventCall{Event: target, Name: target.Name, Args: args}, nil

	case *core.Contract:
		if len(args) != 1 {
			break
		}
		t := &types.UserDefinedType{Decl: target}
		if lv == nil {
			lv = b.newTempOf(t)
		}
		tmpLV, ok := lv.(*Temporary)
		if !ok {
			break
		}
		return &TypeConversion{LValue: tmpLV, Value: args[0], Type: t}, nil

	case *newTarget:
		return newOperation(lv, target, args, value), nil

	case *Reference:
		if m, ok := defs[target].(*Member); ok {
			return b.classifyMember(lv, m, args, value, gas)
		}
		return &InternalDynamicCall{LValue: lv, Function: target, Args: args}, nil

	case *core.LocalVariable, *core.StateVariable, *Temporary:
		if _, ok := typedOf(target).(*types.FunctionType); ok {
			return &InternalDynamicCall{LValue: lv, Function: target, Args: args}, nil
		}
	}
	return nil, errors.UnknownCallTarget(describe(called, args))
}

func newOperation(lv core.Value, target *newTarget, args []core.Value, value core.Value) core.Operation {
	switch e := target.expr.(type) {
	case *core.NewArray:
		return &NewArray{LValue: lv, Depth: e.Depth, Base: e.Base, Args: args}
	case *core.NewElementaryType:
		return &NewElementaryType{LValue: lv, Type: e.Type, Args: args}
	case *core.NewContract:
		return &NewContract{LValue: lv, Contract: e.Name, Args: args, CallValue: value}
	}
	return nil
}

// classifyMember resolves base.f(args). A contract base is a library or
// inherited function; address bases get the builtin members; using-for
// attaches library functions to values; anything else is an external call.
func (b *nodeBuilder) classifyMember(lv core.Value, m *Member, args []core.Value, value, gas core.Value) (core.Operation, error) {
	name := m.Field.Value

	if c, ok := m.Base.(*core.Contract); ok {
		if c.IsLibrary() {
			return &LibraryCall{LValue: lv, Destination: c, Function: name, Args: args}, nil
		}
		if f := pickByArity(c.FunctionsNamed(name), len(args)); f != nil {
			return &InternalCall{LValue: lv, Function: f, Args: args}, nil
		}
		return nil, errors.UnknownCallTarget(fmt.Sprintf("%s.%s", c.Name, name))
	}

	if name == "push" && isArrayLike(m.BaseType) && len(args) <= 1 {
		p := &Push{LValue: lv, Array: m.Base}
		if len(args) == 1 {
			p.Value = args[0]
		}
		return p, nil
	}

	if isAddress(m.Base, m.BaseType) {
		switch {
		case name == "transfer" && len(args) == 1:
			return &Transfer{Destination: m.Base, Amount: args[0]}, nil
		case name == "send" && len(args) == 1:
			return &Send{LValue: lv, Destination: m.Base, Amount: args[0]}, nil
		case lowLevelCalls[name]:
			return &LowLevelCall{LValue: lv, Destination: m.Base, Function: name, Args: args, CallValue: value, CallGas: gas}, nil
		}
	}

	if lib := b.usingForLibrary(m.Base, name); lib != nil {
		withReceiver := append([]core.Value{m.Base}, args...)
		return &LibraryCall{LValue: lv, Destination: lib, Function: name, Args: withReceiver}, nil
	}

	return &HighLevelCall{
		LValue:      lv,
		Destination: m.Base,
		Function:    name,
		Args:        args,
		CallValue:   value,
		CallGas:     gas,
	}, nil
}

// usingForLibrary returns the first library attached to the receiver's
// type that declares a function with the given name.
func (b *nodeBuilder) usingForLibrary(receiver core.Value, name string) *core.Contract {
	if b.contract == nil {
		return nil
	}
	t := typedOf(receiver)
	if t == nil {
		return nil
	}
	for _, lib := range b.contract.LibrariesFor(t) {
		if lib.OwnFunction(name) != nil {
			return lib
		}
	}
	return nil
}

func isAddress(v core.Value, typeStr string) bool {
	if sv, ok := v.(core.SolidityVariable); ok && sv.IsSender() {
		return true
	}
	if isAddressType(typeStr) {
		return true
	}
	return types.IsAddress(typedOf(v))
}

func typedOf(v core.Value) types.Type {
	if tv, ok := v.(core.TypedValue); ok {
		return tv.ValueType()
	}
	return nil
}

func pickByArity(fs []*core.Function, arity int) *core.Function {
	for _, f := range fs {
		if len(f.Params) == arity {
			return f
		}
	}
	return nil
}

func describe(called core.Value, args []core.Value) string {
	return fmt.Sprintf("%s(%s)", called, joinValues(args))
}
