package semantic

import (
	"solcheck/internal/core"
)

// splitConditionals rewrites every node whose expression contains a
// ternary into an explicit IF diamond, until no ternary is left. Nested
// ternaries take one round each.
func splitConditionals(fn *core.Function) {
	split := 0
	for i := 0; i < len(fn.Nodes); i++ {
		n := fn.Nodes[i]
		if n == nil || n.Expression == nil {
			continue
		}
		if c := core.FirstConditional(n.Expression); c != nil {
			splitConditional(fn, n, c)
			split++
		}
	}
	if split > 0 {
		log.Debugf("%s: split %d conditional expressions", fn.Name, split)
		fn.Compact()
	}
}

func replaceConditional(e core.Expression, c *core.Conditional, with core.Expression) core.Expression {
	return core.MapExpression(e, func(x core.Expression) core.Expression {
		if x == core.Expression(c) {
			return with
		}
		return nil
	})
}

// splitConditional replaces n by IF(c.Cond) branching to two copies of n,
// one with c replaced by its true arm and one by its false arm. Copies of
// ordinary nodes merge again in an END_IF; copies of branching nodes keep
// the original branch targets; returns and throws stay terminal.
func splitConditional(fn *core.Function, n *core.Node, c *core.Conditional) {
	ifNode := fn.NewNode(core.NodeIf, n.Src)
	ifNode.Expression = c.Cond

	clone := func(arm core.Expression) *core.Node {
		cp := fn.NewNode(n.Type, n.Src)
		cp.Variable = n.Variable
		cp.Expression = replaceConditional(n.Expression, c, arm)
		return cp
	}
	onTrue := clone(c.Then)
	onFalse := clone(c.Else)

	target := func(id int) *core.Node {
		if id == n.ID {
			return ifNode
		}
		return fn.Nodes[id]
	}

	for _, id := range n.Fathers() {
		if id == n.ID {
			continue
		}
		father := fn.Nodes[id]
		core.Link(father, ifNode)
		if father.SonTrue == n.ID {
			father.SonTrue = ifNode.ID
		}
		if father.SonFalse == n.ID {
			father.SonFalse = ifNode.ID
		}
	}
	core.LinkBranch(ifNode, onTrue, true)
	core.LinkBranch(ifNode, onFalse, false)

	switch {
	case n.Type.IsConditional():
		for _, id := range n.Sons() {
			son := target(id)
			for _, cp := range []*core.Node{onTrue, onFalse} {
				core.Link(cp, son)
				if id == n.SonTrue {
					cp.SonTrue = son.ID
				}
				if id == n.SonFalse {
					cp.SonFalse = son.ID
				}
			}
		}
	case n.Type == core.NodeReturn || n.Type == core.NodeThrow:
	default:
		endIf := fn.NewNode(core.NodeEndIf, n.Src)
		core.Link(onTrue, endIf)
		core.Link(onFalse, endIf)
		for _, id := range n.Sons() {
			core.Link(endIf, target(id))
		}
	}
	fn.RemoveNode(n)
}
