package dataflow

import (
	"sort"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"solcheck/internal/ast"
	"solcheck/internal/core"
	"solcheck/internal/errors"
)

// graph builds CFGs by hand so the engine can be tested without lowering.
type graph struct {
	fn *core.Function
}

func newGraph() *graph {
	return &graph{fn: &core.Function{Name: "f", Contract: "C"}}
}

func (g *graph) node(typ core.NodeType, ops ...core.Operation) *core.Node {
	n := g.fn.NewNode(typ, ast.Source{})
	n.IR = ops
	return n
}

// chain links the nodes in order.
func chain(nodes ...*core.Node) {
	for i := 1; i < len(nodes); i++ {
		core.Link(nodes[i-1], nodes[i])
	}
}

// diamond is entry -> if -> (then | else) -> end.
func diamond() (*graph, []*core.Node) {
	g := newGraph()
	entry := g.node(core.NodeEntryPoint)
	cond := g.node(core.NodeIf)
	then := g.node(core.NodeExpression)
	otherwise := g.node(core.NodeExpression)
	end := g.node(core.NodeEndIf)
	core.Link(entry, cond)
	core.LinkBranch(cond, then, true)
	core.LinkBranch(cond, otherwise, false)
	core.Link(then, end)
	core.Link(otherwise, end)
	return g, []*core.Node{entry, cond, then, otherwise, end}
}

// loop is entry -> head <-> body, head -> exit.
func loop() (*graph, []*core.Node) {
	g := newGraph()
	entry := g.node(core.NodeEntryPoint)
	head := g.node(core.NodeIfLoop)
	body := g.node(core.NodeExpression)
	exit := g.node(core.NodeEndLoop)
	core.Link(entry, head)
	core.LinkBranch(head, body, true)
	core.LinkBranch(head, exit, false)
	core.Link(body, head)
	return g, []*core.Node{entry, head, body, exit}
}

// paths collects the ids of every node on some path to a node. It grows at
// joins, so it shows when a join is re-evaluated.
type paths struct {
	in, out map[int]mapset.Set[int]
	stores  int
}

func newPaths() *paths {
	return &paths{in: map[int]mapset.Set[int]{}, out: map[int]mapset.Set[int]{}}
}

func (p *paths) MergeFathers(n *core.Node, fathers []*core.Node) mapset.Set[int] {
	s := mapset.NewThreadUnsafeSet[int]()
	for _, f := range fathers {
		s = s.Union(p.out[f.ID])
	}
	return s
}

func (p *paths) IsFixpoint(n *core.Node, in mapset.Set[int]) bool {
	stored, ok := p.in[n.ID]
	return ok && in.IsSubset(stored)
}

func (p *paths) Store(n *core.Node, in mapset.Set[int]) {
	p.stores++
	if stored, ok := p.in[n.ID]; ok {
		p.in[n.ID] = stored.Union(in)
		return
	}
	p.in[n.ID] = in.Clone()
}

func (p *paths) Transfer(n *core.Node, _ mapset.Set[int]) mapset.Set[int] {
	out := p.in[n.ID].Clone()
	out.Add(n.ID)
	p.out[n.ID] = out
	return out
}

func (p *paths) FilterSons(n *core.Node, _ mapset.Set[int]) []int { return n.Sons() }

// restless never reaches a fixpoint.
type restless struct{}

func (restless) MergeFathers(*core.Node, []*core.Node) int { return 0 }
func (restless) IsFixpoint(*core.Node, int) bool          { return false }
func (restless) Store(*core.Node, int)                    {}
func (restless) Transfer(_ *core.Node, in int) int        { return in + 1 }
func (restless) FilterSons(n *core.Node, _ int) []int     { return n.Sons() }

// =============================================================================
// EXPLORATION
// =============================================================================

func TestEngineVisitsEveryReachableNode(t *testing.T) {
	g, nodes := diamond()
	p := newPaths()
	e := NewEngine[mapset.Set[int]](g.fn, p)
	require.NoError(t, e.Run())

	for _, n := range nodes {
		assert.NotNil(t, p.out[n.ID], "node %d", n.ID)
	}
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4}, p.out[4].ToSlice())
}

func TestEngineReevaluatesJoinOnNewFacts(t *testing.T) {
	g, nodes := diamond()
	p := newPaths()
	e := NewEngine[mapset.Set[int]](g.fn, p)
	require.NoError(t, e.Run())

	end := nodes[4]
	// The second arrival brings the other branch along.
	assert.Equal(t, 2, e.Visits(end))
	assert.Equal(t, 1, e.Visits(nodes[1]))
}

func TestEngineIsIdempotent(t *testing.T) {
	g, _ := diamond()
	p := newPaths()
	e := NewEngine[mapset.Set[int]](g.fn, p)
	require.NoError(t, e.Run())

	before := p.stores
	require.NoError(t, e.Run())
	assert.Equal(t, before, p.stores, "a second run must not store anything")

	// A fresh engine revisits every node but finds nothing new.
	snapshot := func() map[int][]int {
		out := map[int][]int{}
		for id, s := range p.in {
			out[id] = s.ToSlice()
			sort.Ints(out[id])
		}
		return out
	}
	stored := snapshot()
	require.NoError(t, NewEngine[mapset.Set[int]](g.fn, p).Run())
	assert.Equal(t, stored, snapshot())
}

func TestEngineRunFromStopsAtBackEdges(t *testing.T) {
	g, nodes := loop()
	p := newPaths()
	e := NewEngine[mapset.Set[int]](g.fn, p)
	require.NoError(t, e.RunFrom(nodes[0]))

	head := nodes[1]
	assert.False(t, p.in[head.ID].Contains(2), "the back edge is cut on the path")
	assert.Equal(t, 1, e.Visits(head))
}

func TestEngineRunCarriesBackEdges(t *testing.T) {
	g, nodes := loop()
	p := newPaths()
	e := NewEngine[mapset.Set[int]](g.fn, p)
	require.NoError(t, e.Run())

	head, exit := nodes[1], nodes[3]
	assert.True(t, p.in[head.ID].Contains(2))
	assert.True(t, p.out[exit.ID].Contains(2))
	assert.Equal(t, 2, e.Visits(head))
}

func TestEngineEmptyFunction(t *testing.T) {
	fn := &core.Function{Name: "f", Contract: "C"}
	assert.NoError(t, NewEngine[int](fn, restless{}).Run())
}

// =============================================================================
// BOUNDS
// =============================================================================

func TestEngineMaxVisits(t *testing.T) {
	g, _ := loop()
	e := &Engine[int]{Function: g.fn, Problem: restless{}, MaxVisits: 3}
	err := e.Run()
	require.Error(t, err)
	assert.True(t, errors.IsNonTermination(err))
	assert.Equal(t, errors.ErrorDataflowNonTermination, errors.CodeOf(err))
}

func TestEngineMaxDepth(t *testing.T) {
	g := newGraph()
	var nodes []*core.Node
	for i := 0; i < 6; i++ {
		nodes = append(nodes, g.node(core.NodeExpression))
	}
	chain(nodes...)

	e := &Engine[int]{Function: g.fn, Problem: restless{}, MaxDepth: 2}
	err := e.RunFrom(nodes[0])
	require.Error(t, err)
	assert.True(t, errors.IsNonTermination(err))
	assert.Equal(t, errors.ErrorDataflowDepth, errors.CodeOf(err))

	// The default guard is far above any acyclic path.
	assert.NoError(t, NewEngine[int](g.fn, restless{}).RunFrom(nodes[0]))
}
