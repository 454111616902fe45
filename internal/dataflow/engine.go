// Package dataflow runs fixpoint analyses over the control-flow graph of one
// function. A Problem supplies the lattice; the Engine only decides which
// node to visit next.
package dataflow

import (
	"golang.org/x/tools/container/intsets"
	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/logging"
)

var log = logging.Get("dataflow")

// Problem is one dataflow analysis. F is the type of the facts flowing
// along edges; problems keep their per-node results themselves.
type Problem[F any] interface {
	// MergeFathers joins the facts leaving fathers. fathers holds only the
	// predecessors explored so far that did not prune the edge to n; it is
	// empty for the start node.
	MergeFathers(n *core.Node, fathers []*core.Node) F

	// IsFixpoint reports whether in adds nothing to what is stored for n.
	IsFixpoint(n *core.Node, in F) bool

	// Store accumulates in into the facts kept for n.
	Store(n *core.Node, in F)

	// Transfer applies the IR of n and returns the facts leaving it.
	Transfer(n *core.Node, in F) F

	// FilterSons returns the ids of the sons worth exploring given the
	// facts leaving n.
	FilterSons(n *core.Node, out F) []int
}

// Engine explores one function depth first. MaxVisits bounds how often a
// single node may be transferred; zero means no bound.
type Engine[F any] struct {
	Function  *core.Function
	Problem   Problem[F]
	MaxVisits int

	// MaxDepth bounds the recursion. Zero selects 4 × nodes + 64.
	MaxDepth int

	visits   map[int]int
	explored intsets.Sparse
	live     map[int][]int
}

// NewEngine returns an engine for fn without a visit bound.
func NewEngine[F any](fn *core.Function, p Problem[F]) *Engine[F] {
	return &Engine[F]{Function: fn, Problem: p}
}

// Run explores from the entry node, then re-explores every node whose
// merged facts are no longer at fixpoint until none is left. The second
// step carries facts along back edges that the path-local visited set cut.
func (e *Engine[F]) Run() error {
	entry := e.Function.Entry()
	if entry == nil {
		return nil
	}
	if err := e.RunFrom(entry); err != nil {
		return err
	}
	for {
		changed := false
		for _, n := range e.Function.Nodes {
			if n == nil || !e.reached(n) {
				continue
			}
			in := e.Problem.MergeFathers(n, e.fathers(n))
			if e.explored.Has(n.ID) && e.Problem.IsFixpoint(n, in) {
				continue
			}
			log.Debugf("%s: node %d changed after its first visit", e.Function.CanonicalName(), n.ID)
			if err := e.RunFrom(n); err != nil {
				return err
			}
			changed = true
		}
		if !changed {
			return nil
		}
	}
}

// RunFrom explores depth first from start with a fresh visited set.
func (e *Engine[F]) RunFrom(start *core.Node) error {
	if e.visits == nil {
		e.visits = make(map[int]int)
		e.live = make(map[int][]int)
	}
	return e.explore(start, &intsets.Sparse{}, 0)
}

// Visits returns how often n was transferred.
func (e *Engine[F]) Visits(n *core.Node) int {
	return e.visits[n.ID]
}

func (e *Engine[F]) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return 4*len(e.Function.Nodes) + 64
}

func (e *Engine[F]) explore(n *core.Node, visited *intsets.Sparse, depth int) error {
	if visited.Has(n.ID) {
		return nil
	}
	if depth > e.maxDepth() {
		return errors.DataflowTooDeep(e.Function.CanonicalName(), depth)
	}

	in := e.Problem.MergeFathers(n, e.fathers(n))
	if e.explored.Has(n.ID) && e.Problem.IsFixpoint(n, in) {
		return nil
	}

	e.visits[n.ID]++
	if e.MaxVisits > 0 && e.visits[n.ID] > e.MaxVisits {
		return errors.DataflowBoundExceeded(e.Function.CanonicalName(), n.ID, e.visits[n.ID])
	}

	e.Problem.Store(n, in)
	out := e.Problem.Transfer(n, in)
	sons := e.Problem.FilterSons(n, out)
	e.live[n.ID] = sons
	e.explored.Insert(n.ID)

	path := &intsets.Sparse{}
	path.Copy(visited)
	path.Insert(n.ID)

	for _, id := range sons {
		son := e.Function.Node(id)
		if son == nil {
			continue
		}
		if err := e.explore(son, path, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// fathers returns the explored fathers of n whose last exploration kept the
// edge to n.
func (e *Engine[F]) fathers(n *core.Node) []*core.Node {
	var out []*core.Node
	for _, id := range n.Fathers() {
		if !e.explored.Has(id) {
			continue
		}
		for _, son := range e.live[id] {
			if son == n.ID {
				out = append(out, e.Function.Node(id))
				break
			}
		}
	}
	return out
}

// reached reports whether n is the entry or has a live explored father.
func (e *Engine[F]) reached(n *core.Node) bool {
	return n.NumFathers() == 0 && n == e.Function.Entry() || len(e.fathers(n)) > 0
}
