package dataflow

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"solcheck/internal/core"
	"solcheck/internal/ir"
	"solcheck/internal/types"
)

func taint(t *testing.T, g *graph, cfg TaintConfig) *Taint {
	t.Helper()
	p := NewTaint(cfg)
	require.NoError(t, NewEngine[mapset.Set[string]](g.fn, p).Run())
	return p
}

func TestTaintFlowsFromParameters(t *testing.T) {
	a, y, z := param("a"), local("y"), local("z")
	tmp := &ir.Temporary{Type: uintType}

	g := newGraph()
	g.fn.Params = []*core.LocalVariable{a}
	entry := g.node(core.NodeEntryPoint)
	body := g.node(core.NodeExpression,
		&ir.Binary{LValue: tmp, Left: a, Right: num("1"), Op: core.OpAdd},
		assign(y, tmp),
		assign(z, num("5")),
	)
	chain(entry, body)

	p := taint(t, g, TaintConfig{Seeds: ParameterSeeds(g.fn)})
	assert.True(t, p.IsTainted(body, "y"))
	assert.False(t, p.IsTainted(body, "z"))
	assert.Equal(t, []string{"1 EXPRESSION: {a, y}"}, DescribeTaint(g.fn, p)[1:])
}

func TestTaintStrongUpdateClears(t *testing.T) {
	a, y := param("a"), local("y")
	g := newGraph()
	entry := g.node(core.NodeEntryPoint)
	first := g.node(core.NodeExpression, assign(y, a))
	second := g.node(core.NodeExpression, assign(y, num("1")))
	chain(entry, first, second)

	p := taint(t, g, TaintConfig{Seeds: []string{"a"}})
	assert.True(t, p.IsTainted(first, "y"))
	assert.False(t, p.IsTainted(second, "y"))
}

func TestTaintThroughReferences(t *testing.T) {
	a := param("a")
	balances := &core.StateVariable{
		Variable: core.Variable{Name: "balances", Type: &types.MappingType{Key: types.NewElementary("address"), Value: uintType}},
		Contract: "Bank",
	}
	ref := &ir.Reference{Type: uintType}

	g := newGraph()
	entry := g.node(core.NodeEntryPoint)
	write := g.node(core.NodeExpression,
		&ir.Index{LValue: ref, Base: balances, Index: a},
		assign(ref, num("1")),
	)
	reset := g.node(core.NodeExpression, assign(balances, num("0")))
	chain(entry, write, reset)

	p := taint(t, g, TaintConfig{Seeds: []string{"a"}})
	assert.True(t, p.IsTainted(write, "Bank.balances"), "the written entry is chosen by a")
	assert.False(t, p.IsTainted(reset, "Bank.balances"))
}

func TestTaintBuiltins(t *testing.T) {
	owner := local("owner")
	g := newGraph()
	entry := g.node(core.NodeEntryPoint)
	body := g.node(core.NodeExpression, assign(owner, core.SolidityVariable{Name: "msg.sender"}))
	chain(entry, body)

	assert.True(t, taint(t, g, TaintConfig{Builtins: true}).IsTainted(body, "owner"))
	assert.False(t, taint(t, g, TaintConfig{}).IsTainted(body, "owner"))
}

func TestTaintAcrossLoopIterations(t *testing.T) {
	a, x, y := param("a"), local("x"), local("y")
	g, nodes := loop()
	// y only sees the taint of x from the previous iteration.
	nodes[2].IR = []core.Operation{assign(y, x), assign(x, a)}

	p := taint(t, g, TaintConfig{Seeds: []string{"a"}})
	assert.True(t, p.IsTainted(nodes[2], "y"))
	assert.True(t, p.IsTainted(nodes[3], "x"))
}

// =============================================================================
// DATA DEPENDENCY
// =============================================================================

func TestDependsOn(t *testing.T) {
	a, x, y, z := param("a"), local("x"), local("y"), local("z")
	g := newGraph()
	g.fn.Params = []*core.LocalVariable{a}
	entry := g.node(core.NodeEntryPoint)
	body := g.node(core.NodeExpression, assign(x, a), assign(y, x), assign(z, num("3")))
	chain(entry, body)

	tests := []struct {
		v, source string
		want      bool
	}{
		{"y", "a", true},
		{"x", "a", true},
		{"z", "a", false},
		{"a", "y", false},
		{"z", "z", true},
	}
	for _, tt := range tests {
		got, err := DependsOn(g.fn, tt.v, tt.source)
		require.NoError(t, err)
		if got != tt.want {
			t.Errorf("DependsOn(%s, %s) = %v, want %v", tt.v, tt.source, got, tt.want)
		}
	}
}
