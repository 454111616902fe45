package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"solcheck/internal/ast"
	"solcheck/internal/core"
	"solcheck/internal/types"
)

func TestSummarizeStateAccess(t *testing.T) {
	f := newFixture()
	sender := ident(core.SolidityVariable{Name: "msg.sender"}, "address")
	amount := f.local("amount", "uint256")

	// balances[msg.sender] = amount
	slot := &core.IndexAccess{Base: ident(f.balance, "mapping(address => uint256)"), Index: sender, TypeStr: "uint256"}
	f.lower(t, core.NodeExpression, assign(slot, ident(amount, "uint256")))
	// token.info().field
	f.lower(t, core.NodeExpression, f.tokenInfo("field"))

	s := Summarize(f.fn)
	assert.Equal(t, "Vault.run()", s.Function)
	assert.True(t, s.StateWritten.Contains("Vault.balances"))
	assert.True(t, s.StateRead.Contains("Vault.balances", "Vault.token"))
	assert.False(t, s.StateWritten.Contains("Vault.token"))
	assert.Equal(t, []string{"amount"}, Sorted(s.LocalRead))
	assert.Equal(t, []string{"token.info"}, Sorted(s.HighLevelCalls))
	assert.False(t, s.SendsEther)
}

func TestSummarizeCallsAndEther(t *testing.T) {
	f := newFixture()
	helper := &core.Function{Name: "helper", Contract: "Vault", Params: []*core.LocalVariable{
		{Variable: core.Variable{Name: "a", Type: types.NewElementary("uint256")}},
	}}
	f.lower(t, core.NodeExpression, call(ident(helper, ""), "tuple()", number("1")))

	sender := ident(core.SolidityVariable{Name: "msg.sender"}, "address")
	f.lower(t, core.NodeExpression, call(member(sender, "transfer", "function (uint256)"), "tuple()", number("1")))

	v := f.local("v", "uint256")
	f.lower(t, core.NodeExpression, call(member(ident(v, "uint256"), "add", "function (uint256,uint256) pure returns (uint256)"), "uint256", number("1")))

	s := Summarize(f.fn)
	assert.Equal(t, []string{"Vault.helper(uint256)"}, Sorted(s.InternalCalls))
	assert.Equal(t, []string{"SafeMath.add"}, Sorted(s.LibraryCalls))
	assert.True(t, s.SendsEther)
	assert.Equal(t, 0, s.LowLevelCalls.Cardinality())
}

func TestSummarizePushAndDelete(t *testing.T) {
	f := newFixture()
	list := &core.StateVariable{
		Variable: core.Variable{Name: "list", Type: types.ArrayOf(types.NewElementary("uint256"), 1)},
		Contract: "Vault",
	}
	f.c.StateVariables = append(f.c.StateVariables, list)

	push := member(ident(list, "uint256[] storage ref"), "push", "function (uint256)")
	ops := f.lower(t, core.NodeExpression, call(push, "tuple()", number("4")))
	require.Equal(t, []string{"PUSH"}, tags(ops))

	n := f.fn.NewNode(core.NodeExpression, ast.Source{})
	n.IR = []core.Operation{&Delete{LValue: f.tokenSV}}

	s := Summarize(f.fn)
	assert.True(t, s.StateWritten.Contains("Vault.list", "Vault.token"))
}
