// Package ir lowers the expressions attached to CFG nodes into flat,
// typed operation sequences. Every operation has at most one operator;
// intermediate values live in temporaries, and storage or memory accesses
// go through references.
package ir

import (
	stderrors "errors"

	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/logging"
)

var log = logging.Get("ir")

// LowerFunction lowers every node of fn and checks the member ordering of
// the result. The resolver turns compiler type strings into types for the
// contract c. On error no node of fn carries IR.
func LowerFunction(c *core.Contract, fn *core.Function, resolver TypeResolver) error {
	lowered := make([][]core.Operation, len(fn.Nodes))
	for i, n := range fn.Nodes {
		ops, err := LowerNode(c, fn, n, resolver)
		if err != nil {
			return locate(err, n, fn)
		}
		lowered[i] = ops
		log.Debugf("%s.%s node %d: %d operations", fn.Contract, fn.Name, n.ID, len(ops))
	}
	for i, n := range fn.Nodes {
		n.IR = lowered[i]
	}
	if err := CheckMemberOrdering(fn); err != nil {
		for _, n := range fn.Nodes {
			n.IR = nil
		}
		return err
	}
	return nil
}

// LowerNode returns the operations of a single node without storing them.
func LowerNode(c *core.Contract, fn *core.Function, n *core.Node, resolver TypeResolver) ([]core.Operation, error) {
	b := &nodeBuilder{contract: c, fn: fn, typer: typer{resolver: resolver, src: n.Src}}

	switch n.Type {
	case core.NodeExpression, core.NodeVariable:
		if n.Expression != nil {
			if _, err := b.lower(n.Expression); err != nil {
				return nil, err
			}
		}

	case core.NodeIf, core.NodeIfLoop:
		if n.Expression == nil {
			return nil, errors.UnsupportedExpression("condition without expression")
		}
		v, err := b.lower(n.Expression)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, errors.UnsupportedExpression("condition without value " + n.Expression.String())
		}
		b.emit(&Condition{Value: v})

	case core.NodeReturn:
		if err := b.lowerReturn(n.Expression); err != nil {
			return nil, err
		}
	}

	if err := b.resolveCalls(); err != nil {
		return nil, err
	}
	ops := removeUnusedMembers(b.ops)
	renumber(ops)
	return ops, nil
}

func (b *nodeBuilder) lowerReturn(e core.Expression) error {
	if e == nil {
		b.emit(&Return{})
		return nil
	}
	if t, ok := e.(*core.Tuple); ok && !t.IsInlineList && len(t.Elems) != 1 {
		vals, err := b.lowerElems(t.Elems)
		if err != nil {
			return err
		}
		b.emit(&Return{Values: values(vals...)})
		return nil
	}
	v, err := b.lower(e)
	if err != nil {
		return err
	}
	b.emit(&Return{Values: values(v)})
	return nil
}

// locate attaches the node source and function to a lowering error.
func locate(err error, n *core.Node, fn *core.Function) error {
	var ae *errors.AnalysisError
	if !stderrors.As(err, &ae) {
		return err
	}
	if ae.Src.IsZero() {
		ae.Src = n.Src
	}
	if ae.Function == "" {
		ae.Function = fn.Name
	}
	if ae.Contract == "" {
		ae.Contract = fn.Contract
	}
	return err
}
