package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"solcheck/grammar"
	"solcheck/internal/ast"
	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/types"
)

// stubResolver parses descriptors with the real grammar but invents the
// declarations behind user-defined names, so lowering can be tested without
// a declaration context.
type stubResolver struct{}

func (r stubResolver) ResolveString(text string, src ast.Source) (types.Type, error) {
	d, err := grammar.Parse(text)
	if err != nil {
		return nil, errors.MalformedTypeDescriptor(text, err)
	}
	return r.resolve(d, src)
}

func (r stubResolver) resolve(d *grammar.Descriptor, src ast.Source) (types.Type, error) {
	var t types.Type
	switch b := d.Base; {
	case b.Named != nil:
		name := b.Named.QualifiedName()
		path := b.Named.Path
		switch b.Named.Kind {
		case "":
			if !types.IsElementary(types.Normalize(name)) {
				return nil, errors.TypeNotFound(name, "Vault", src, nil)
			}
			t = types.NewElementary(types.Normalize(name))
		case "struct":
			t = &types.UserDefinedType{Decl: &core.Struct{Name: path[len(path)-1]}}
		case "enum":
			t = &types.UserDefinedType{Decl: &core.Enum{Name: path[len(path)-1]}}
		default:
			t = &types.UserDefinedType{Decl: &core.Contract{Name: name}}
		}
	case b.Mapping != nil:
		k, err := r.resolve(b.Mapping.Key, src)
		if err != nil {
			return nil, err
		}
		v, err := r.resolve(b.Mapping.Value, src)
		if err != nil {
			return nil, err
		}
		t = &types.MappingType{Key: k, Value: v}
	case b.Function != nil:
		ft := &types.FunctionType{}
		for _, p := range b.Function.Params {
			pt, err := r.resolve(p, src)
			if err != nil {
				return nil, err
			}
			ft.Params = append(ft.Params, pt)
		}
		for _, p := range b.Function.Returns {
			rt, err := r.resolve(p, src)
			if err != nil {
				return nil, err
			}
			ft.Returns = append(ft.Returns, rt)
		}
		t = ft
	default:
		return nil, errors.MalformedTypeDescriptor(d.String(), nil)
	}
	for _, length := range d.Dims() {
		t = &types.ArrayType{Base: t, Length: length}
	}
	return t, nil
}

type fixture struct {
	token   *core.Contract
	lib     *core.Contract
	c       *core.Contract
	fn      *core.Function
	tokenSV *core.StateVariable
	balance *core.StateVariable
}

func newFixture() *fixture {
	token := &core.Contract{Name: "Token", Kind: core.KindContract}
	lib := &core.Contract{Name: "SafeMath", Kind: core.KindLibrary}
	lib.Functions = []*core.Function{{Name: "add", Contract: "SafeMath"}}

	c := &core.Contract{Name: "Vault", Kind: core.KindContract}
	c.UsingFor = []*core.UsingFor{{Library: lib, For: types.NewElementary("uint256")}}

	tokenSV := &core.StateVariable{
		Variable: core.Variable{Name: "token", Type: &types.UserDefinedType{Decl: token}},
		Contract: "Vault",
	}
	balance := &core.StateVariable{
		Variable: core.Variable{Name: "balances", Type: &types.MappingType{
			Key: types.NewElementary("address"), Value: types.NewElementary("uint256"),
		}},
		Contract: "Vault",
	}
	c.StateVariables = []*core.StateVariable{tokenSV, balance}

	fn := &core.Function{Name: "run", Contract: "Vault", Kind: core.KindFunction, IsImplemented: true}
	c.Functions = []*core.Function{fn}
	fn.NewNode(core.NodeEntryPoint, ast.Source{})

	return &fixture{token: token, lib: lib, c: c, fn: fn, tokenSV: tokenSV, balance: balance}
}

func (f *fixture) local(name, typ string) *core.LocalVariable {
	v := &core.LocalVariable{Variable: core.Variable{Name: name, Type: types.NewElementary(typ)}}
	f.fn.Locals = append(f.fn.Locals, v)
	return v
}

func (f *fixture) lower(t *testing.T, typ core.NodeType, e core.Expression) []core.Operation {
	t.Helper()
	n := f.fn.NewNode(typ, ast.Source{})
	n.Expression = e
	ops, err := LowerNode(f.c, f.fn, n, stubResolver{})
	require.NoError(t, err)
	n.IR = ops
	return ops
}

func ident(v core.Value, typeStr string) *core.Identifier {
	return &core.Identifier{Name: v.String(), Value: v, TypeStr: typeStr}
}

func number(v string) *core.Literal {
	return &core.Literal{Value: v, Kind: "number", TypeStr: "int_const " + v}
}

func member(e core.Expression, name, typeStr string) *core.MemberAccess {
	return &core.MemberAccess{Expr: e, Member: name, TypeStr: typeStr}
}

func call(called core.Expression, typeCall string, args ...core.Expression) *core.Call {
	return &core.Call{Called: called, Args: args, TypeCall: typeCall}
}

func assign(l, r core.Expression) *core.Assignment {
	return &core.Assignment{Op: "=", Left: l, Right: r}
}

func tags(ops []core.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = Tag(op)
	}
	return out
}

// tokenInfo builds token.info().field.
func (f *fixture) tokenInfo(field string) core.Expression {
	fn := member(ident(f.tokenSV, "contract Token"), "info", "function () view external returns (struct Token.Info memory)")
	return member(call(fn, "struct Token.Info memory"), field, "uint256")
}

// ==== Member ordering ====

func TestMemberFollowsExternalCall(t *testing.T) {
	f := newFixture()
	x := f.local("x", "uint256")

	ops := f.lower(t, core.NodeExpression, assign(ident(x, "uint256"), f.tokenInfo("field")))

	require.Equal(t, []string{"HIGH_LEVEL_CALL", "MEMBER", "ASSIGNMENT"}, tags(ops))
	hlc := ops[0].(*HighLevelCall)
	assert.Equal(t, "info", hlc.Function)
	assert.Equal(t, f.tokenSV, hlc.Destination)

	m := ops[1].(*Member)
	assert.Same(t, hlc.LValue, m.Base)
	assert.Equal(t, "field", m.Field.Value)

	a := ops[2].(*Assignment)
	assert.Equal(t, x, a.LValue)
	assert.Same(t, m.LValue, a.RValue)
	assert.Equal(t, "REF_0", m.LValue.String())
	assert.Equal(t, "TMP_0", hlc.LValue.String())
}

func TestMemberOrderingWithNestedCalls(t *testing.T) {
	f := newFixture()
	x := f.local("x", "uint256")
	helper := &core.Function{Name: "helper", Contract: "Vault"}
	inner := &core.Function{Name: "inner", Contract: "Vault"}

	// x = helper(inner()) + token.info().field
	left := call(ident(helper, ""), "uint256", call(ident(inner, ""), "uint256"))
	sum := &core.BinaryOperation{Op: core.OpAdd, Left: left, Right: f.tokenInfo("field"), TypeStr: "uint256"}
	ops := f.lower(t, core.NodeExpression, assign(ident(x, "uint256"), sum))

	assert.Equal(t, []string{
		"INTERNAL_CALL", "INTERNAL_CALL", "HIGH_LEVEL_CALL", "MEMBER", "BINARY", "ASSIGNMENT",
	}, tags(ops))
	assert.Same(t, ops[2].Lvalue(), ops[3].(*Member).Base)
	assert.NoError(t, CheckMemberOrdering(f.fn))
}

func TestCheckMemberOrderingViolation(t *testing.T) {
	f := newFixture()
	n := f.fn.NewNode(core.NodeExpression, ast.Source{Start: 10, Length: 5})
	result := &Temporary{Index: 0}
	other := &Temporary{Index: 1}
	n.IR = []core.Operation{
		&HighLevelCall{LValue: result, Destination: f.tokenSV, Function: "info"},
		&Binary{LValue: other, Left: &Constant{Value: "1"}, Right: &Constant{Value: "2"}, Op: core.OpAdd},
		&Member{LValue: &Reference{Index: 0}, Base: result, Field: &Constant{Value: "field"}},
	}

	err := CheckMemberOrdering(f.fn)
	require.Error(t, err)
	assert.True(t, errors.IsLowering(err))
	assert.Equal(t, errors.ErrorMemberOrdering, errors.CodeOf(err))
	if !strings.Contains(err.Error(), "TMP_0") {
		t.Errorf("expected the offending operand in %q", err.Error())
	}
}

// ==== Determinism ====

func TestLoweringIsDeterministic(t *testing.T) {
	f := newFixture()
	x := f.local("x", "uint256")
	expr := func() core.Expression {
		sum := &core.BinaryOperation{Op: core.OpMul, Left: f.tokenInfo("a"), Right: f.tokenInfo("b"), TypeStr: "uint256"}
		return assign(ident(x, "uint256"), sum)
	}

	first := f.lower(t, core.NodeExpression, expr())
	second := f.lower(t, core.NodeExpression, expr())

	assert.Equal(t, tags(first), tags(second))
	assert.Equal(t, FormatNode(f.fn.Nodes[1]), FormatNode(f.fn.Nodes[2]))
	assert.Contains(t, FormatNode(f.fn.Nodes[1]), "TMP_1(Info) = HIGH_LEVEL_CALL")
}

// ==== Expressions ====

func TestPostIncrementKeepsOldValue(t *testing.T) {
	f := newFixture()
	i := f.local("i", "uint256")

	ops := f.lower(t, core.NodeExpression, &core.UnaryOperation{Op: core.UnaryPostInc, Expr: ident(i, "uint256"), TypeStr: "uint256"})

	require.Equal(t, []string{"ASSIGNMENT", "BINARY"}, tags(ops))
	assert.Equal(t, "TMP_0(uint256) := i", ops[0].String())
	assert.Equal(t, "i(uint256) = i + 1", ops[1].String())
}

func TestCompoundAssignment(t *testing.T) {
	f := newFixture()
	total := f.local("total", "uint256")

	ops := f.lower(t, core.NodeExpression, &core.Assignment{Op: "+=", Left: ident(total, "uint256"), Right: number("3")})

	require.Len(t, ops, 1)
	b := ops[0].(*Binary)
	assert.Equal(t, core.OpAdd, b.Op)
	assert.Equal(t, total, b.LValue)
	assert.Equal(t, total, b.Left)
}

func TestUnaryMinusSubtractsFromZero(t *testing.T) {
	f := newFixture()
	v := f.local("v", "int256")
	ops := f.lower(t, core.NodeExpression, &core.UnaryOperation{Op: core.UnaryMinus, Expr: ident(v, "int256"), TypeStr: "int256"})

	require.Len(t, ops, 1)
	assert.Equal(t, "TMP_0(int256) = 0 - v", ops[0].String())
}

func TestTupleAssignmentFromCall(t *testing.T) {
	f := newFixture()
	a := f.local("a", "uint256")
	c := f.local("c", "uint256")
	pair := &core.Function{Name: "triple", Contract: "Vault"}

	lhs := &core.Tuple{Elems: []core.Expression{ident(a, "uint256"), nil, ident(c, "uint256")}}
	ops := f.lower(t, core.NodeExpression, assign(lhs, call(ident(pair, ""), "tuple(uint256,bool,uint256)")))

	require.Equal(t, []string{"INTERNAL_CALL", "UNPACK", "UNPACK"}, tags(ops))
	tuple := ops[0].Lvalue().(*TupleVariable)
	assert.Len(t, tuple.Types, 3)
	assert.Equal(t, 0, ops[1].(*Unpack).Index)
	assert.Equal(t, 2, ops[2].(*Unpack).Index)
	assert.Same(t, tuple, ops[2].(*Unpack).Tuple)
}

func TestTupleAssignmentElementWise(t *testing.T) {
	f := newFixture()
	a := f.local("a", "uint256")
	b := f.local("b", "uint256")

	lhs := &core.Tuple{Elems: []core.Expression{ident(a, "uint256"), ident(b, "uint256")}}
	rhs := &core.Tuple{Elems: []core.Expression{ident(b, "uint256"), ident(a, "uint256")}}
	ops := f.lower(t, core.NodeExpression, assign(lhs, rhs))

	require.Equal(t, []string{"ASSIGNMENT", "ASSIGNMENT"}, tags(ops))
	assert.Equal(t, "a(uint256) := b", ops[0].String())
	assert.Equal(t, "b(uint256) := a", ops[1].String())
}

func TestInlineArrayAssignment(t *testing.T) {
	f := newFixture()
	arr := &core.LocalVariable{Variable: core.Variable{Name: "arr", Type: types.ArrayOf(types.NewElementary("uint256"), 1)}}

	rhs := &core.Tuple{Elems: []core.Expression{number("1"), number("2")}, IsInlineList: true, TypeStr: "uint8[2] memory"}
	ops := f.lower(t, core.NodeExpression, assign(ident(arr, "uint256[] memory"), rhs))

	require.Equal(t, []string{"INIT_ARRAY"}, tags(ops))
	init := ops[0].(*InitArray)
	assert.Len(t, init.Values, 2)
	tmp, ok := init.LValue.(*Temporary)
	require.True(t, ok)
	require.NotNil(t, tmp.Type)
	assert.Equal(t, "uint8[2]", tmp.Type.String())
}

func TestInlineArrayWithoutTypeFails(t *testing.T) {
	f := newFixture()
	arr := f.local("arr", "uint256")
	n := f.fn.NewNode(core.NodeExpression, ast.Source{})
	n.Expression = assign(ident(arr, "uint256"), &core.Tuple{Elems: []core.Expression{number("1")}, IsInlineList: true})

	_, err := LowerNode(f.c, f.fn, n, stubResolver{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorUntypedOperand, errors.CodeOf(err))
}

func TestUnparsableOperandTypeFailsLowering(t *testing.T) {
	f := newFixture()
	x := f.local("x", "uint256")
	n := f.fn.NewNode(core.NodeExpression, ast.Source{Start: 10, Length: 1})
	n.Expression = assign(ident(x, "uint256"), &core.Literal{Value: "1", Kind: "number", TypeStr: "inaccessible dynamic type"})

	err := LowerFunction(f.c, f.fn, stubResolver{})
	require.Error(t, err)
	assert.True(t, errors.IsLowering(err))
	assert.Equal(t, errors.ErrorUntypedOperand, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "'inaccessible dynamic type'")
	assert.Nil(t, n.IR, "no partially lowered node is kept")
}

func TestEnumMemberIsConstant(t *testing.T) {
	f := newFixture()
	state := &core.Enum{Name: "State", Contract: "Vault", Values: []string{"Open", "Closed"}}
	s := &core.LocalVariable{Variable: core.Variable{Name: "s", Type: &types.UserDefinedType{Decl: state}}}

	ops := f.lower(t, core.NodeExpression, assign(ident(s, "enum Vault.State"), member(ident(state, ""), "Closed", "enum Vault.State")))

	require.Len(t, ops, 1)
	c := ops[0].(*Assignment).RValue.(*Constant)
	assert.Equal(t, "1", c.Value)
	assert.Equal(t, "State", c.Type.String())
}

func TestLengthOfArray(t *testing.T) {
	f := newFixture()
	arr := &core.LocalVariable{Variable: core.Variable{Name: "arr", Type: types.ArrayOf(types.NewElementary("uint256"), 1)}}
	n := f.local("n", "uint256")

	ops := f.lower(t, core.NodeExpression, assign(ident(n, "uint256"), member(ident(arr, "uint256[] memory"), "length", "uint256")))

	require.Equal(t, []string{"LENGTH", "ASSIGNMENT"}, tags(ops))
}

// ==== Call classification ====

func TestUsingForBecomesLibraryCall(t *testing.T) {
	f := newFixture()
	v := f.local("v", "uint256")

	add := member(ident(v, "uint256"), "add", "function (uint256,uint256) pure returns (uint256)")
	ops := f.lower(t, core.NodeExpression, call(add, "uint256", number("1")))

	require.Equal(t, []string{"LIBRARY_CALL"}, tags(ops))
	lc := ops[0].(*LibraryCall)
	assert.Same(t, f.lib, lc.Destination)
	assert.Equal(t, "add", lc.Function)
	require.Len(t, lc.Args, 2)
	assert.Equal(t, v, lc.Args[0])
}

func TestDirectLibraryCall(t *testing.T) {
	f := newFixture()
	add := member(ident(f.lib, ""), "add", "function (uint256,uint256) pure returns (uint256)")
	ops := f.lower(t, core.NodeExpression, call(add, "uint256", number("1"), number("2")))

	require.Equal(t, []string{"LIBRARY_CALL"}, tags(ops))
	assert.Len(t, ops[0].(*LibraryCall).Args, 2)
}

func TestValueAndGasAreFolded(t *testing.T) {
	f := newFixture()
	deposit := member(ident(f.tokenSV, "contract Token"), "deposit", "function (uint256) payable external")
	withValue := call(member(deposit, "value", "function (uint256) returns (function (uint256) payable external)"),
		"function (uint256) payable external", number("5"))
	withGas := call(member(withValue, "gas", "function (uint256) returns (function (uint256) payable external)"),
		"function (uint256) payable external", number("2300"))

	ops := f.lower(t, core.NodeExpression, call(withGas, "tuple()", number("1")))

	require.Equal(t, []string{"HIGH_LEVEL_CALL"}, tags(ops))
	hlc := ops[0].(*HighLevelCall)
	assert.Equal(t, "deposit", hlc.Function)
	assert.Equal(t, "5", hlc.CallValue.String())
	assert.Equal(t, "2300", hlc.CallGas.String())
	assert.Equal(t, "HIGH_LEVEL_CALL dest:token function:deposit arguments:[1] value:5 gas:2300", hlc.String())
}

func TestAddressMembers(t *testing.T) {
	sender := ident(core.SolidityVariable{Name: "msg.sender"}, "address")

	t.Run("transfer", func(t *testing.T) {
		f := newFixture()
		amount := f.local("amount", "uint256")
		ops := f.lower(t, core.NodeExpression, call(member(sender, "transfer", "function (uint256)"), "tuple()", ident(amount, "uint256")))
		require.Equal(t, []string{"TRANSFER"}, tags(ops))
		assert.Equal(t, "TRANSFER dest:msg.sender value:amount", ops[0].String())
	})

	t.Run("send", func(t *testing.T) {
		f := newFixture()
		ops := f.lower(t, core.NodeExpression, call(member(sender, "send", "function (uint256) returns (bool)"), "bool", number("1")))
		require.Equal(t, []string{"SEND"}, tags(ops))
		assert.NotNil(t, ops[0].Lvalue())
	})

	t.Run("call with value", func(t *testing.T) {
		f := newFixture()
		to := f.local("to", "address")
		raw := member(ident(to, "address"), "call", "function (bytes memory) payable returns (bool,bytes memory)")
		withValue := call(member(raw, "value", "function (uint256) returns (function (bytes memory) payable returns (bool,bytes memory))"),
			"function (bytes memory) payable returns (bool,bytes memory)", number("7"))
		data := &core.Literal{Value: "", Kind: "string", TypeStr: `literal_string ""`}

		ops := f.lower(t, core.NodeExpression, call(withValue, "tuple(bool,bytes memory)", data))
		require.Equal(t, []string{"LOW_LEVEL_CALL"}, tags(ops))
		llc := ops[0].(*LowLevelCall)
		assert.Equal(t, "call", llc.Function)
		assert.Equal(t, "7", llc.CallValue.String())
		assert.IsType(t, &TupleVariable{}, llc.LValue)
	})
}

func TestBuiltinsAndConstructors(t *testing.T) {
	f := newFixture()
	require_, ok := core.LookupSolidityFunction("require", 1)
	require.True(t, ok)
	flag := f.local("flag", "bool")

	ops := f.lower(t, core.NodeExpression, call(ident(require_, ""), "tuple()", ident(flag, "bool")))
	require.Equal(t, []string{"SOLIDITY_CALL"}, tags(ops))
	assert.Equal(t, "SOLIDITY_CALL require(bool)(flag)", ops[0].String())

	arr := &core.LocalVariable{Variable: core.Variable{Name: "arr", Type: types.ArrayOf(types.NewElementary("uint256"), 1)}}
	newArr := &core.NewArray{Depth: 1, Base: types.NewElementary("uint256")}
	ops = f.lower(t, core.NodeExpression, assign(ident(arr, "uint256[] memory"), call(newArr, "uint256[] memory", number("3"))))
	assert.Equal(t, []string{"NEW_ARRAY", "ASSIGNMENT"}, tags(ops))

	point := &core.Struct{Name: "Point", Contract: "Vault"}
	ops = f.lower(t, core.NodeExpression, call(ident(point, ""), "struct Vault.Point memory", number("1"), number("2")))
	assert.Equal(t, []string{"NEW_STRUCTURE"}, tags(ops))

	ev := &core.Event{Name: "Moved", Contract: "Vault"}
	ops = f.lower(t, core.NodeExpression, call(ident(ev, ""), "tuple()", number("1")))
	assert.Equal(t, []string{"EVENT_CALL"}, tags(ops))
	assert.Equal(t, "EMIT Moved(1)", ops[0].String())
}

func TestUnknownCallTarget(t *testing.T) {
	f := newFixture()
	n := f.fn.NewNode(core.NodeExpression, ast.Source{Start: 4, Length: 3})
	n.Expression = call(number("1"), "uint256")

	err := LowerFunction(f.c, f.fn, stubResolver{})
	require.Error(t, err)
	assert.True(t, errors.IsLowering(err))
	assert.Equal(t, errors.ErrorUnknownCallTarget, errors.CodeOf(err))

	var ae *errors.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "run", ae.Function)
	assert.Equal(t, 4, ae.Src.Start)
}

// ==== Nodes ====

func TestConditionAndReturn(t *testing.T) {
	f := newFixture()
	x := f.local("x", "uint256")
	y := f.local("y", "bool")

	cond := &core.BinaryOperation{Op: core.OpGreater, Left: ident(x, "uint256"), Right: number("1"), TypeStr: "bool"}
	ops := f.lower(t, core.NodeIf, cond)
	require.Equal(t, []string{"BINARY", "CONDITION"}, tags(ops))
	assert.Equal(t, "CONDITION TMP_0", ops[1].String())

	ret := &core.Tuple{Elems: []core.Expression{ident(x, "uint256"), ident(y, "bool")}}
	ops = f.lower(t, core.NodeReturn, ret)
	require.Equal(t, []string{"RETURN"}, tags(ops))
	assert.Equal(t, "RETURN x, y", ops[0].String())

	ops = f.lower(t, core.NodeReturn, nil)
	assert.Equal(t, "RETURN", ops[0].String())
}

func TestFormatFunction(t *testing.T) {
	f := newFixture()
	x := f.local("x", "uint256")
	body := f.fn.NewNode(core.NodeExpression, ast.Source{})
	body.Expression = assign(ident(x, "uint256"), number("2"))
	core.Link(f.fn.Nodes[0], body)

	require.NoError(t, LowerFunction(f.c, f.fn, stubResolver{}))
	out := FormatFunction(f.fn)

	assert.Contains(t, out, "FUNCTION Vault.run")
	assert.Contains(t, out, "Node 0: ENTRY_POINT -> 1")
	assert.Contains(t, out, "x(uint256) := 2")
}
