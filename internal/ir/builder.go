package ir

import (
	"strconv"
	"strings"

	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/types"
)

// nodeBuilder lowers the expression of one node. Operands it creates are
// numbered in creation order; renumber fixes the numbering once calls are
// classified and dead references are gone.
type nodeBuilder struct {
	contract *core.Contract
	fn       *core.Function
	typer    typer
	ops      []core.Operation

	temps, refs, tuples int
}

// newTarget stands for a `new` expression until the call using it is
// classified.
type newTarget struct {
	expr core.Expression
}

func (t *newTarget) String() string { return t.expr.String() }

func (b *nodeBuilder) emit(op core.Operation) {
	b.ops = append(b.ops, op)
}

func (b *nodeBuilder) newTemp(typeStr string) (*Temporary, error) {
	t, err := b.typer.typeOf(typeStr)
	if err != nil {
		return nil, err
	}
	return b.newTempOf(t), nil
}

func (b *nodeBuilder) newTempOf(t types.Type) *Temporary {
	tmp := &Temporary{Index: b.temps, Type: t}
	b.temps++
	return tmp
}

func (b *nodeBuilder) newRef(typeStr string) (*Reference, error) {
	t, err := b.typer.typeOf(typeStr)
	if err != nil {
		return nil, err
	}
	ref := &Reference{Index: b.refs, Type: t}
	b.refs++
	return ref, nil
}

func (b *nodeBuilder) newTuple(typeStr string) (*TupleVariable, error) {
	ts, err := b.typer.tupleTypes(typeStr)
	if err != nil {
		return nil, err
	}
	tv := &TupleVariable{Index: b.tuples, Types: ts}
	b.tuples++
	return tv, nil
}

// callResult allocates the lvalue of a call from its result type string.
// Calls without results get none.
func (b *nodeBuilder) callResult(typeCall string) (core.Value, error) {
	switch n := tupleArity(typeCall); {
	case n == 0:
		return nil, nil
	case n == 1:
		return b.newTemp(strings.TrimSuffix(strings.TrimPrefix(typeCall, "tuple("), ")"))
	case n > 1:
		return b.newTuple(typeCall)
	}
	if typeCall == "" {
		return nil, nil
	}
	return b.newTemp(typeCall)
}

// lower emits the operations computing e, operands left to right, and
// returns the value holding the result.
func (b *nodeBuilder) lower(e core.Expression) (core.Value, error) {
	switch x := e.(type) {
	case *core.Identifier:
		if x.Value == nil {
			return nil, errors.UnsupportedExpression("unresolved identifier " + x.Name)
		}
		return x.Value, nil

	case *core.Literal:
		t, err := b.typer.typeOf(x.TypeStr)
		if err != nil {
			return nil, err
		}
		return &Constant{Value: x.Value, Type: t}, nil

	case *core.ElementaryTypeExpr:
		return &Constant{Value: x.Type.String()}, nil

	case *core.BinaryOperation:
		l, err := b.lower(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := b.lower(x.Right)
		if err != nil {
			return nil, err
		}
		tmp, err := b.newTemp(x.TypeStr)
		if err != nil {
			return nil, err
		}
		b.emit(&Binary{LValue: tmp, Left: l, Right: r, Op: x.Op})
		return tmp, nil

	case *core.UnaryOperation:
		return b.lowerUnary(x)

	case *core.Assignment:
		return b.lowerAssignment(x)

	case *core.Call:
		return b.lowerCall(x)

	case *core.TypeConversion:
		v, err := b.lower(x.Expr)
		if err != nil {
			return nil, err
		}
		tmp := b.newTempOf(x.Type)
		b.emit(&TypeConversion{LValue: tmp, Value: v, Type: x.Type})
		return tmp, nil

	case *core.Tuple:
		return b.lowerTuple(x)

	case *core.IndexAccess:
		if x.Index == nil {
			return nil, errors.UnsupportedExpression("index access without index " + x.String())
		}
		base, err := b.lower(x.Base)
		if err != nil {
			return nil, err
		}
		idx, err := b.lower(x.Index)
		if err != nil {
			return nil, err
		}
		ref, err := b.newRef(x.TypeStr)
		if err != nil {
			return nil, err
		}
		b.emit(&Index{LValue: ref, Base: base, Index: idx})
		return ref, nil

	case *core.MemberAccess:
		return b.lowerMember(x)

	case *core.NewArray, *core.NewContract, *core.NewElementaryType:
		return &newTarget{expr: e}, nil

	case *core.Conditional:
		return nil, errors.UnsupportedExpression("conditional expression " + x.String())
	}
	return nil, errors.UnsupportedExpression(e.String())
}

func (b *nodeBuilder) lowerUnary(x *core.UnaryOperation) (core.Value, error) {
	v, err := b.lower(x.Expr)
	if err != nil {
		return nil, err
	}
	one := &Constant{Value: "1", Type: types.NewElementary("uint256")}

	switch x.Op {
	case core.UnaryDelete:
		b.emit(&Delete{LValue: v})
		return v, nil
	case core.UnaryPlus:
		return v, nil
	case core.UnaryPreInc:
		b.emit(&Binary{LValue: v, Left: v, Right: one, Op: core.OpAdd})
		return v, nil
	case core.UnaryPreDec:
		b.emit(&Binary{LValue: v, Left: v, Right: one, Op: core.OpSub})
		return v, nil
	case core.UnaryPostInc, core.UnaryPostDec:
		old, err := b.newTemp(x.TypeStr)
		if err != nil {
			return nil, err
		}
		op := core.OpAdd
		if x.Op == core.UnaryPostDec {
			op = core.OpSub
		}
		b.emit(&Assignment{LValue: old, RValue: v})
		b.emit(&Binary{LValue: v, Left: v, Right: one, Op: op})
		return old, nil
	case core.UnaryMinus:
		tmp, err := b.newTemp(x.TypeStr)
		if err != nil {
			return nil, err
		}
		zero := &Constant{Value: "0", Type: tmp.Type}
		b.emit(&Binary{LValue: tmp, Left: zero, Right: v, Op: core.OpSub})
		return tmp, nil
	}

	tmp, err := b.newTemp(x.TypeStr)
	if err != nil {
		return nil, err
	}
	b.emit(&Unary{LValue: tmp, RValue: v, Op: x.Op})
	return tmp, nil
}

func (b *nodeBuilder) lowerAssignment(x *core.Assignment) (core.Value, error) {
	if lt, ok := x.Left.(*core.Tuple); ok && !lt.IsInlineList {
		return nil, b.lowerTupleAssignment(lt, x.Right)
	}

	lv, err := b.lower(x.Left)
	if err != nil {
		return nil, err
	}

	if rt, ok := x.Right.(*core.Tuple); ok && rt.IsInlineList {
		vals := make([]core.Value, 0, len(rt.Elems))
		for _, el := range rt.Elems {
			v, err := b.lower(el)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		b.emit(&InitArray{LValue: lv, Values: vals})
		return lv, nil
	}

	rv, err := b.lower(x.Right)
	if err != nil {
		return nil, err
	}
	if rv == nil {
		return nil, errors.UnsupportedExpression("assignment of a call without result " + x.String())
	}
	if op, compound := x.Op.Binary(); compound {
		b.emit(&Binary{LValue: lv, Left: lv, Right: rv, Op: op})
	} else {
		b.emit(&Assignment{LValue: lv, RValue: rv})
	}
	return lv, nil
}

// lowerTupleAssignment handles (a, , c) = (x, y, z) element-wise and
// (a, , c) = f() by unpacking the call's tuple. Holes are skipped.
func (b *nodeBuilder) lowerTupleAssignment(lt *core.Tuple, right core.Expression) error {
	if rt, ok := right.(*core.Tuple); ok && !rt.IsInlineList {
		rights, err := b.lowerElems(rt.Elems)
		if err != nil {
			return err
		}
		lefts, err := b.lowerElems(lt.Elems)
		if err != nil {
			return err
		}
		for i := range lefts {
			if i >= len(rights) {
				break
			}
			if lefts[i] == nil || rights[i] == nil {
				continue
			}
			b.emit(&Assignment{LValue: lefts[i], RValue: rights[i]})
		}
		return nil
	}

	rv, err := b.lower(right)
	if err != nil {
		return err
	}
	tuple, ok := rv.(*TupleVariable)
	if !ok {
		if len(lt.Elems) == 1 && lt.Elems[0] != nil && rv != nil {
			lv, err := b.lower(lt.Elems[0])
			if err != nil {
				return err
			}
			b.emit(&Assignment{LValue: lv, RValue: rv})
			return nil
		}
		return errors.UnsupportedExpression("tuple assignment from " + right.String())
	}
	for i, el := range lt.Elems {
		if el == nil {
			continue
		}
		lv, err := b.lower(el)
		if err != nil {
			return err
		}
		b.emit(&Unpack{LValue: lv, Tuple: tuple, Index: i})
	}
	return nil
}

func (b *nodeBuilder) lowerElems(elems []core.Expression) ([]core.Value, error) {
	out := make([]core.Value, len(elems))
	for i, el := range elems {
		if el == nil {
			continue
		}
		v, err := b.lower(el)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (b *nodeBuilder) lowerTuple(x *core.Tuple) (core.Value, error) {
	if x.IsInlineList {
		vals, err := b.lowerElems(x.Elems)
		if err != nil {
			return nil, err
		}
		tmp, err := b.newTemp(x.TypeStr)
		if err != nil {
			return nil, err
		}
		if tmp.Type == nil {
			return nil, errors.UntypedOperand("inline array "+x.String(), nil)
		}
		b.emit(&InitArray{LValue: tmp, Values: values(vals...)})
		return tmp, nil
	}
	if len(x.Elems) == 1 && x.Elems[0] != nil {
		return b.lower(x.Elems[0])
	}

	// abi.decode(data, (uint256, bool)) passes a tuple of types.
	names := make([]string, 0, len(x.Elems))
	for _, el := range x.Elems {
		et, ok := el.(*core.ElementaryTypeExpr)
		if !ok {
			return nil, errors.UnsupportedExpression("tuple " + x.String())
		}
		names = append(names, et.Type.String())
	}
	return &Constant{Value: "(" + strings.Join(names, ",") + ")"}, nil
}

func (b *nodeBuilder) lowerCall(x *core.Call) (core.Value, error) {
	args := make([]core.Value, 0, len(x.Args))
	for _, a := range x.Args {
		v, err := b.lower(a)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errors.UnsupportedExpression("argument without value " + a.String())
		}
		args = append(args, v)
	}

	called, err := b.lower(x.Called)
	if err != nil {
		return nil, err
	}
	lv, err := b.callResult(x.TypeCall)
	if err != nil {
		return nil, err
	}
	b.emit(&TmpCall{LValue: lv, Called: called, Args: args, TypeCall: x.TypeCall})
	return lv, nil
}

func (b *nodeBuilder) lowerMember(x *core.MemberAccess) (core.Value, error) {
	if id, ok := x.Expr.(*core.Identifier); ok {
		if en, ok := id.Value.(*core.Enum); ok {
			i := en.Index(x.Member)
			if i < 0 {
				return nil, errors.UnsupportedExpression("unknown enum value " + x.String())
			}
			return &Constant{Value: strconv.Itoa(i), Type: &types.UserDefinedType{Decl: en}}, nil
		}
	}

	base, err := b.lower(x.Expr)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, errors.UnsupportedExpression("member of a call without result " + x.String())
	}
	ref, err := b.newRef(x.TypeStr)
	if err != nil {
		return nil, err
	}

	baseType := exprType(x.Expr)
	if x.Member == "length" && isArrayLike(baseType) {
		b.emit(&Length{LValue: ref, Base: base})
		return ref, nil
	}
	b.emit(&Member{LValue: ref, Base: base, Field: &Constant{Value: x.Member}, BaseType: baseType})
	return ref, nil
}

// exprType returns the compiler type string recorded for e, falling back to
// the type of the value an identifier resolves to.
func exprType(e core.Expression) string {
	switch x := e.(type) {
	case *core.Identifier:
		if x.TypeStr != "" {
			return x.TypeStr
		}
		if tv, ok := x.Value.(core.TypedValue); ok && tv.ValueType() != nil {
			return tv.ValueType().String()
		}
	case *core.Literal:
		return x.TypeStr
	case *core.MemberAccess:
		return x.TypeStr
	case *core.IndexAccess:
		return x.TypeStr
	case *core.Call:
		return x.TypeCall
	case *core.BinaryOperation:
		return x.TypeStr
	case *core.UnaryOperation:
		return x.TypeStr
	case *core.Assignment:
		return x.TypeStr
	case *core.TypeConversion:
		return x.Type.String()
	}
	return ""
}
