package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"solcheck/internal/ast"
	"solcheck/internal/types"
)

// ============================================================================
// NODES AND EDGES
// ============================================================================

func TestLinkIsSymmetric(t *testing.T) {
	f := &Function{Name: "f"}
	entry := f.NewNode(NodeEntryPoint, ast.Source{})
	cond := f.NewNode(NodeIf, ast.Source{})
	then := f.NewNode(NodeExpression, ast.Source{})
	end := f.NewNode(NodeEndIf, ast.Source{})

	Link(entry, cond)
	LinkBranch(cond, then, true)
	LinkBranch(cond, end, false)
	Link(then, end)

	assert.Equal(t, []int{1}, entry.Sons())
	assert.Equal(t, []int{2, 3}, cond.Sons())
	assert.Equal(t, []int{1, 2}, end.Fathers())
	assert.Equal(t, 2, cond.SonTrue)
	assert.Equal(t, 3, cond.SonFalse)
	require.NoError(t, f.CheckCFG())

	Unlink(cond, end)
	assert.Equal(t, -1, cond.SonFalse)
	assert.False(t, end.HasFather(cond.ID))
}

func TestLinkDeduplicates(t *testing.T) {
	f := &Function{Name: "f"}
	a := f.NewNode(NodeEntryPoint, ast.Source{})
	b := f.NewNode(NodeExpression, ast.Source{})
	Link(a, b)
	Link(a, b)
	assert.Equal(t, 1, a.NumSons())
	assert.Equal(t, 1, b.NumFathers())
}

func TestRemoveAndCompact(t *testing.T) {
	f := &Function{Name: "f"}
	entry := f.NewNode(NodeEntryPoint, ast.Source{})
	dead := f.NewNode(NodeEndIf, ast.Source{})
	cond := f.NewNode(NodeIfLoop, ast.Source{})
	body := f.NewNode(NodeExpression, ast.Source{})
	exit := f.NewNode(NodeEndLoop, ast.Source{})

	Link(entry, cond)
	Link(dead, body)
	LinkBranch(cond, body, true)
	LinkBranch(cond, exit, false)
	Link(body, cond)

	f.RemoveNode(dead)
	f.Compact()

	require.Len(t, f.Nodes, 4)
	require.NoError(t, f.CheckCFG())
	assert.Equal(t, NodeIfLoop, f.Nodes[1].Type)
	assert.Equal(t, 2, f.Nodes[1].SonTrue)
	assert.Equal(t, 3, f.Nodes[1].SonFalse)
	assert.Equal(t, []int{0, 2}, f.Nodes[1].Fathers())
	assert.Equal(t, []int{1}, f.Nodes[2].Fathers())
}

func TestCheckCFGRejectsFatherOnEntry(t *testing.T) {
	f := &Function{Name: "f"}
	a := f.NewNode(NodeEntryPoint, ast.Source{})
	b := f.NewNode(NodeExpression, ast.Source{})
	Link(a, b)
	Link(b, a)
	assert.Error(t, f.CheckCFG())
}

func TestNodeTypeNames(t *testing.T) {
	assert.Equal(t, "NEW VARIABLE", NodeVariable.String())
	assert.Equal(t, "BEGIN_LOOP", NodeStartLoop.String())
	assert.Equal(t, "_", NodePlaceholder.String())
	assert.True(t, NodeIfLoop.IsConditional())
	assert.True(t, NodeEndIf.IsSynthetic())
	assert.False(t, NodeReturn.IsSynthetic())
}

// ============================================================================
// SIGNATURES
// ============================================================================

func TestFunctionSelector(t *testing.T) {
	token := &Contract{Name: "Token"}
	f := &Function{
		Name:     "transfer",
		Contract: "Token",
		Params: []*LocalVariable{
			{Variable: Variable{Name: "to", Type: &types.UserDefinedType{Decl: token}}},
			{Variable: Variable{Name: "value", Type: types.NewElementary("uint")}},
		},
	}
	assert.Equal(t, "transfer(address,uint256)", f.Signature())
	assert.Equal(t, "0xa9059cbb", f.SelectorHex())
	assert.Equal(t, "Token.transfer(address,uint256)", f.CanonicalName())
}

func TestEventTopic(t *testing.T) {
	addr := types.NewElementary("address")
	e := &Event{
		Name: "Transfer",
		Params: []*EventParam{
			{Name: "from", Type: addr, Indexed: true},
			{Name: "to", Type: addr, Indexed: true},
			{Name: "value", Type: types.NewElementary("uint256")},
		},
	}
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", e.Topic())
}

func TestStructAndEnumSignatureTypes(t *testing.T) {
	s := &Struct{Name: "S", Contract: "A", Members: []*StructMember{
		{Name: "a", Type: types.NewElementary("uint")},
		{Name: "b", Type: types.ArrayOf(types.NewElementary("bool"), 1)},
	}}
	assert.Equal(t, "(uint256,bool[])", s.SignatureType())
	assert.NotNil(t, s.Member("b"))
	assert.Nil(t, s.Member("c"))

	e := &Enum{Name: "E", Contract: "B", Values: []string{"X", "Y"}}
	assert.Equal(t, "uint8", types.SignatureName(&types.UserDefinedType{Decl: e}))
	assert.Equal(t, 1, e.Index("Y"))
	assert.Equal(t, "B.E", e.CanonicalName())
}

// ============================================================================
// CONTRACT LOOKUPS
// ============================================================================

func TestInheritedLookups(t *testing.T) {
	base := &Contract{Name: "Base"}
	base.StateVariables = []*StateVariable{{Variable: Variable{Name: "owner"}, Contract: "Base"}}
	base.Functions = []*Function{{Name: "f", Contract: "Base"}, {Name: "g", Contract: "Base"}}
	base.Enums = []*Enum{{Name: "E", Contract: "Base"}}

	derived := &Contract{Name: "Derived", Inheritance: []*Contract{base}}
	derived.StateVariables = []*StateVariable{{Variable: Variable{Name: "total"}, Contract: "Derived"}}
	derived.Functions = []*Function{{Name: "f", Contract: "Derived"}}

	assert.Equal(t, "Base", derived.StateVariable("owner").Contract)
	assert.Equal(t, "Derived", derived.FunctionsNamed("f")[0].Contract)
	assert.Len(t, derived.FunctionsNamed("f"), 2)
	assert.Nil(t, derived.OwnFunction("g"))
	assert.NotNil(t, derived.Enum("E"))
	assert.True(t, derived.InheritsFrom(base))

	all := derived.AllFunctions()
	require.Len(t, all, 2)
	assert.Equal(t, "Derived", all[0].Contract)
	assert.Equal(t, "g", all[1].Name)

	vars := derived.AllStateVariables()
	assert.Equal(t, "owner", vars[0].Name)
	assert.Equal(t, "total", vars[1].Name)
}

func TestLibrariesFor(t *testing.T) {
	safeMath := &Contract{Name: "SafeMath", Kind: KindLibrary}
	every := &Contract{Name: "Every", Kind: KindLibrary}
	base := &Contract{Name: "Base", UsingFor: []*UsingFor{{Library: safeMath, For: types.NewElementary("uint256")}}}
	c := &Contract{Name: "C", Inheritance: []*Contract{base}, UsingFor: []*UsingFor{{Library: every}}}

	assert.Equal(t, []*Contract{every, safeMath}, c.LibrariesFor(types.NewElementary("uint")))
	assert.Equal(t, []*Contract{every}, c.LibrariesFor(types.NewElementary("bool")))
}

func TestAnalyzedFlags(t *testing.T) {
	c := &Contract{Name: "C"}
	assert.False(t, c.IsAnalyzed(PhaseStructs))
	c.SetAnalyzed(PhaseStructs)
	assert.True(t, c.IsAnalyzed(PhaseStructs))
	c.ResetAnalyzed(PhaseStructs)
	assert.False(t, c.IsAnalyzed(PhaseStructs))
}

func TestUnitPhaseLog(t *testing.T) {
	u := NewCompilationUnit("a.json")
	u.AddContract(&Contract{ID: 3, Name: "B"})
	u.AddContract(&Contract{ID: 1, Name: "A"})

	u.Log("A", PhaseEnums)
	u.Log("B", PhaseEnums)
	assert.Equal(t, 0, u.TickOf("A", PhaseEnums))
	assert.Equal(t, 1, u.TickOf("B", PhaseEnums))
	assert.Equal(t, -1, u.TickOf("A", PhaseBodies))
	assert.Equal(t, []string{"A", "B"}, u.ContractNames())
	assert.Equal(t, "B", u.ContractByID(3).Name)
}

// ============================================================================
// BUILTINS
// ============================================================================

func TestSolidityFunctionLookup(t *testing.T) {
	f, ok := LookupSolidityFunction("require", 2)
	require.True(t, ok)
	assert.Equal(t, "require(bool,string)", f.Signature)

	f, ok = LookupSolidityFunction("revert", 1)
	require.True(t, ok)
	assert.Equal(t, "revert(string)", f.Signature)

	f, ok = LookupSolidityFunction("keccak256", 3)
	require.True(t, ok)
	assert.Equal(t, "keccak256()", f.Signature)

	f, ok = LookupSolidityFunction("blockhash", -1)
	require.True(t, ok)
	assert.Equal(t, []string{"bytes32"}, f.ReturnTypes())

	_, ok = LookupSolidityFunction("transfer", -1)
	assert.False(t, ok)
}

func TestSolidityVariables(t *testing.T) {
	v, ok := LookupSolidityVariable("msg.sender")
	require.True(t, ok)
	assert.True(t, v.IsSender())
	assert.Equal(t, "address", v.ValueType().String())
	assert.True(t, IsComposedSolidityVariable("block.number"))
	assert.False(t, IsComposedSolidityVariable("now"))
	_, ok = LookupSolidityVariable("msg.foo")
	assert.False(t, ok)
}

// ============================================================================
// EXPRESSIONS
// ============================================================================

func TestExpressionStrings(t *testing.T) {
	x := &Identifier{Name: "x"}
	e := &Assignment{Op: "+=", Left: x, Right: &BinaryOperation{Op: OpMul, Left: &Literal{Value: "2"}, Right: &UnaryOperation{Op: UnaryPostInc, Expr: x}}}
	assert.Equal(t, "x += 2 * x++", e.String())

	op, ok := e.Op.Binary()
	require.True(t, ok)
	assert.Equal(t, OpAdd, op)

	call := &Call{Called: &MemberAccess{Expr: &Identifier{Name: "a"}, Member: "f"}, Args: []Expression{x, &Literal{Value: "s", Kind: "string"}}}
	assert.Equal(t, `a.f(x, "s")`, call.String())
	assert.Equal(t, "(, x)", (&Tuple{Elems: []Expression{nil, x}}).String())
}

func TestParseOperators(t *testing.T) {
	_, ok := ParseAssignOp("<<=")
	assert.True(t, ok)
	_, ok = ParseAssignOp("==")
	assert.False(t, ok)
	_, ok = ParseAssignOp("=>")
	assert.False(t, ok)

	op, ok := ParseUnaryOp("++", false)
	require.True(t, ok)
	assert.Equal(t, UnaryPostInc, op)
	assert.False(t, op.IsPrefix())
}

func TestMapExpressionSharesUnchanged(t *testing.T) {
	a, b := &Identifier{Name: "a"}, &Identifier{Name: "b"}
	cond := &Conditional{Cond: &Identifier{Name: "c"}, Then: a, Else: b}
	sum := &BinaryOperation{Op: OpAdd, Left: &Literal{Value: "1"}, Right: cond}
	root := &Assignment{Op: "=", Left: &Identifier{Name: "x"}, Right: sum}

	assert.Same(t, cond, FirstConditional(root))

	then := MapExpression(root, func(e Expression) Expression {
		if e == cond {
			return cond.Then
		}
		return nil
	})
	assert.Equal(t, "x = 1 + a", then.String())
	assert.Equal(t, "x = 1 + c ? a : b", root.String())
	assert.Same(t, root.Left, then.(*Assignment).Left)

	same := MapExpression(root, func(Expression) Expression { return nil })
	assert.Same(t, root, same)
}

func TestDOT(t *testing.T) {
	f := &Function{Name: "f", Contract: "C"}
	entry := f.NewNode(NodeEntryPoint, ast.Source{})
	cond := f.NewNode(NodeIf, ast.Source{})
	cond.Expression = &Literal{Value: "hi", Kind: "string"}
	end := f.NewNode(NodeEndIf, ast.Source{})
	Link(entry, cond)
	LinkBranch(cond, end, true)

	dot := f.DOT()
	assert.True(t, strings.HasPrefix(dot, "digraph {"))
	assert.Contains(t, dot, `IF \"hi\"`)
	assert.Contains(t, dot, `1 -> 2 [label="True"];`)
	assert.Contains(t, dot, "0 -> 1;")
}
