package semantic

import (
	"solcheck/internal/ast"
	"solcheck/internal/core"
	"solcheck/internal/errors"
)

// jump is a BREAK or CONTINUE node whose edges are redirected once the
// whole body has been built.
type jump struct {
	node  *core.Node
	frame *loopFrame
}

type loopFrame struct {
	start      *core.Node
	end        *core.Node
	continueTo *core.Node
}

// flowBuilder turns a function body into its CFG.
type flowBuilder struct {
	fn    *core.Function
	scope *exprScope
	loops []*loopFrame
	jumps []jump

	// branchFrom, when set, makes the next edge leaving that node a
	// conditional edge with polarity branchValue.
	branchFrom  *core.Node
	branchValue bool
}

func newFlowBuilder(fn *core.Function, scope *exprScope) *flowBuilder {
	return &flowBuilder{fn: fn, scope: scope}
}

func (b *flowBuilder) link(from, to *core.Node) {
	if from == b.branchFrom {
		core.LinkBranch(from, to, b.branchValue)
		b.branchFrom = nil
		return
	}
	core.Link(from, to)
}

func (b *flowBuilder) branch(from *core.Node, value bool) {
	b.branchFrom = from
	b.branchValue = value
}

// build creates the entry node and the statement nodes, then applies the
// edge fixups. A nil body yields a lone entry node.
func (b *flowBuilder) build(body *ast.Node) error {
	entry := b.fn.NewNode(core.NodeEntryPoint, body.Source())
	if body != nil {
		if _, err := b.parseBlock(body, entry); err != nil {
			return err
		}
	}
	b.fixJumps()
	b.pruneUnreachable()
	b.fn.Compact()
	return nil
}

func (b *flowBuilder) newNode(typ core.NodeType, n *ast.Node, prev *core.Node) *core.Node {
	node := b.fn.NewNode(typ, n.Source())
	b.link(prev, node)
	return node
}

func (b *flowBuilder) parseBlock(block *ast.Node, prev *core.Node) (*core.Node, error) {
	if !block.Is(ast.Block) {
		return nil, errors.MalformedNode(block, "expected Block")
	}
	outer := b.scope.symbols
	b.scope.symbols = NewSymbolTable(outer)
	defer func() { b.scope.symbols = outer }()

	var err error
	for _, stmt := range block.Children {
		if prev, err = b.parseStatement(stmt, prev); err != nil {
			return nil, err
		}
	}
	return prev, nil
}

func (b *flowBuilder) parseStatement(stmt *ast.Node, prev *core.Node) (*core.Node, error) {
	if stmt == nil {
		return nil, errors.MalformedNode(nil, "missing statement")
	}

	switch stmt.Name {
	case ast.IfStatement:
		return b.parseIf(stmt, prev)
	case ast.WhileStatement:
		return b.parseWhile(stmt, prev)
	case ast.DoWhileStatement:
		return b.parseDoWhile(stmt, prev)
	case ast.ForStatement:
		return b.parseFor(stmt, prev)
	case ast.Block:
		return b.parseBlock(stmt, prev)

	case ast.InlineAssembly:
		return b.newNode(core.NodeAssembly, stmt, prev), nil

	case ast.PlaceholderStatement:
		return b.newNode(core.NodePlaceholder, stmt, prev), nil

	case ast.Continue, ast.Break:
		if len(b.loops) == 0 {
			return nil, errors.MalformedNode(stmt, "%s outside of a loop", stmt.Name)
		}
		typ := core.NodeContinue
		if stmt.Name == ast.Break {
			typ = core.NodeBreak
		}
		node := b.newNode(typ, stmt, prev)
		b.jumps = append(b.jumps, jump{node: node, frame: b.loops[len(b.loops)-1]})
		return node, nil

	case ast.Throw:
		return b.newNode(core.NodeThrow, stmt, prev), nil

	case ast.Return:
		node := b.newNode(core.NodeReturn, stmt, prev)
		if len(stmt.Children) > 0 {
			e, err := b.scope.parseExpression(stmt.Children[0])
			if err != nil {
				return nil, err
			}
			node.Expression = e
		}
		return node, nil

	case ast.ExpressionStatement, ast.EmitStatement:
		if len(stmt.Children) != 1 {
			return nil, errors.MalformedNode(stmt, "expected one expression")
		}
		e, err := b.scope.parseExpression(stmt.Children[0])
		if err != nil {
			return nil, err
		}
		node := b.newNode(core.NodeExpression, stmt, prev)
		node.Expression = e
		return node, nil

	case ast.VariableDeclStatement, ast.VariableDefStatement:
		return b.parseVariableStatement(stmt, prev)
	}
	return nil, errors.UnsupportedNode(stmt, "statement")
}

func (b *flowBuilder) parseCondition(n *ast.Node, node *core.Node) error {
	e, err := b.scope.parseExpression(n)
	if err != nil {
		return err
	}
	node.Expression = e
	return nil
}

func (b *flowBuilder) parseIf(stmt *ast.Node, prev *core.Node) (*core.Node, error) {
	if len(stmt.Children) < 2 {
		return nil, errors.MalformedNode(stmt, "if needs a condition and a body")
	}
	cond := b.newNode(core.NodeIf, stmt, prev)
	if err := b.parseCondition(stmt.Children[0], cond); err != nil {
		return nil, err
	}

	b.branch(cond, true)
	trueEnd, err := b.parseStatement(stmt.Children[1], cond)
	if err != nil {
		return nil, err
	}
	// An empty true branch leaves the pending branch for the END_IF edge.
	pendingTrue := b.branchFrom == cond
	b.branchFrom = nil

	var falseEnd *core.Node
	if len(stmt.Children) == 3 {
		b.branch(cond, false)
		if falseEnd, err = b.parseStatement(stmt.Children[2], cond); err != nil {
			return nil, err
		}
		if b.branchFrom == cond {
			falseEnd = nil
		}
		b.branchFrom = nil
	}

	endIf := b.fn.NewNode(core.NodeEndIf, stmt.Source())
	if pendingTrue {
		core.LinkBranch(cond, endIf, true)
	} else {
		core.Link(trueEnd, endIf)
	}
	if falseEnd != nil {
		core.Link(falseEnd, endIf)
	} else {
		core.LinkBranch(cond, endIf, false)
	}
	return endIf, nil
}

func (b *flowBuilder) pushLoop(start, end *core.Node) *loopFrame {
	frame := &loopFrame{start: start, end: end, continueTo: start}
	b.loops = append(b.loops, frame)
	return frame
}

func (b *flowBuilder) popLoop() { b.loops = b.loops[:len(b.loops)-1] }

func (b *flowBuilder) parseWhile(stmt *ast.Node, prev *core.Node) (*core.Node, error) {
	if len(stmt.Children) != 2 {
		return nil, errors.MalformedNode(stmt, "while needs a condition and a body")
	}
	start := b.newNode(core.NodeStartLoop, stmt, prev)
	cond := b.fn.NewNode(core.NodeIfLoop, stmt.Source())
	core.Link(start, cond)
	if err := b.parseCondition(stmt.Children[0], cond); err != nil {
		return nil, err
	}
	end := b.fn.NewNode(core.NodeEndLoop, stmt.Source())
	core.LinkBranch(cond, end, false)

	b.pushLoop(start, end)
	defer b.popLoop()

	b.branch(cond, true)
	body, err := b.parseStatement(stmt.Children[1], cond)
	if err != nil {
		return nil, err
	}
	b.link(body, cond)
	return end, nil
}

func (b *flowBuilder) parseDoWhile(stmt *ast.Node, prev *core.Node) (*core.Node, error) {
	if len(stmt.Children) != 2 {
		return nil, errors.MalformedNode(stmt, "do-while needs a condition and a body")
	}
	start := b.newNode(core.NodeStartLoop, stmt, prev)
	cond := b.fn.NewNode(core.NodeIfLoop, stmt.Source())
	if err := b.parseCondition(stmt.Children[0], cond); err != nil {
		return nil, err
	}
	end := b.fn.NewNode(core.NodeEndLoop, stmt.Source())

	frame := b.pushLoop(start, end)
	frame.continueTo = cond
	defer b.popLoop()

	body, err := b.parseStatement(stmt.Children[1], start)
	if err != nil {
		return nil, err
	}
	core.Link(body, cond)
	core.LinkBranch(cond, start, true)
	core.LinkBranch(cond, end, false)
	return end, nil
}

func isSimpleStatement(n *ast.Node) bool {
	switch n.Name {
	case ast.VariableDefStatement, ast.VariableDeclStatement, ast.ExpressionStatement:
		return true
	}
	return false
}

// parseFor handles the legacy layout, where the optional init, condition
// and loop expression are only distinguishable by node kind and position.
// Attributes set to null, when present, mark absent parts explicitly.
func (b *flowBuilder) parseFor(stmt *ast.Node, prev *core.Node) (*core.Node, error) {
	children := stmt.Children
	if len(children) == 0 {
		return nil, errors.MalformedNode(stmt, "for without body")
	}
	hasInit, hasCond, hasLoop := true, true, true
	for key, flag := range map[string]*bool{
		"initializationExpression": &hasInit,
		"condition":                &hasCond,
		"loopExpression":           &hasLoop,
	} {
		if v, ok := stmt.Attr(key); ok && v == nil {
			*flag = false
		}
	}

	start := b.fn.NewNode(core.NodeStartLoop, stmt.Source())
	end := b.fn.NewNode(core.NodeEndLoop, stmt.Source())

	if hasInit && len(children) >= 2 && isSimpleStatement(children[0]) {
		init, err := b.parseStatement(children[0], prev)
		if err != nil {
			return nil, err
		}
		b.link(init, start)
	} else {
		hasInit = false
		b.link(prev, start)
	}

	cond := start
	if hasCond {
		candidate := children[0]
		if hasInit {
			candidate = children[1]
		}
		if len(children) >= 2 && !isSimpleStatement(candidate) {
			cond = b.fn.NewNode(core.NodeIfLoop, stmt.Source())
			if err := b.parseCondition(candidate, cond); err != nil {
				return nil, err
			}
			core.Link(start, cond)
			core.LinkBranch(cond, end, false)
		} else {
			hasCond = false
		}
	}

	frame := b.pushLoop(start, end)
	defer b.popLoop()

	if hasCond {
		b.branch(cond, true)
	}
	body, err := b.parseStatement(children[len(children)-1], cond)
	if err != nil {
		return nil, err
	}

	loopExpr := body
	if hasLoop {
		if len(children) > 2 && children[len(children)-2].Is(ast.ExpressionStatement) {
			if loopExpr, err = b.parseStatement(children[len(children)-2], body); err != nil {
				return nil, err
			}
			frame.continueTo = loopExpr
		} else {
			hasLoop = false
		}
	}
	if !hasCond {
		if hasLoop {
			core.Link(loopExpr, end)
		} else {
			core.Link(start, end)
		}
	}
	b.link(loopExpr, cond)
	return end, nil
}

// parseVariableStatement creates one NEW VARIABLE node per declared
// variable. A tuple initializer is split per variable; any other
// initializer of several variables becomes a trailing tuple assignment.
func (b *flowBuilder) parseVariableStatement(stmt *ast.Node, prev *core.Node) (*core.Node, error) {
	var decls []*ast.Node
	var init *ast.Node
	for _, c := range stmt.Children {
		if c == nil {
			continue
		}
		if c.Is(ast.VariableDecl) {
			decls = append(decls, c)
		} else {
			init = c
		}
	}
	if len(decls) == 0 {
		return nil, errors.MalformedNode(stmt, "no variable declared")
	}

	if len(decls) == 1 {
		return b.declareVariable(decls[0], init, stmt, prev)
	}

	if init != nil && init.Is(ast.TupleExpression) && len(init.Children) == len(decls) {
		var err error
		for i, d := range decls {
			if prev, err = b.declareVariable(d, init.Children[i], d, prev); err != nil {
				return nil, err
			}
		}
		return prev, nil
	}

	idents := make([]core.Expression, 0, len(decls))
	for _, d := range decls {
		node, err := b.declareVariable(d, nil, d, prev)
		if err != nil {
			return nil, err
		}
		prev = node
		idents = append(idents, &core.Identifier{Name: node.Variable.Name, Value: node.Variable, TypeStr: d.StringAttr("type")})
	}
	if init == nil {
		return prev, nil
	}
	rhs, err := b.scope.parseExpression(init)
	if err != nil {
		return nil, err
	}
	node := b.newNode(core.NodeExpression, stmt, prev)
	node.Expression = &core.Assignment{Op: "=", Left: &core.Tuple{Elems: idents}, Right: rhs, TypeStr: "tuple()"}
	return node, nil
}

func (b *flowBuilder) declareVariable(decl, init, at *ast.Node, prev *core.Node) (*core.Node, error) {
	v, err := b.newLocal(decl)
	if err != nil {
		return nil, err
	}
	node := b.newNode(core.NodeVariable, at, prev)
	node.Variable = v
	if init != nil {
		rhs, err := b.scope.parseExpression(init)
		if err != nil {
			return nil, err
		}
		v.Initial = rhs
		lhs := &core.Identifier{Name: v.Name, Value: v, TypeStr: decl.StringAttr("type")}
		node.Expression = &core.Assignment{Op: "=", Left: lhs, Right: rhs, TypeStr: decl.StringAttr("type")}
	}
	return node, nil
}

// newLocal registers a local variable declared by decl in the current scope.
func (b *flowBuilder) newLocal(decl *ast.Node) (*core.LocalVariable, error) {
	return declareLocal(b.fn, b.scope, decl)
}

func declareLocal(fn *core.Function, scope *exprScope, decl *ast.Node) (*core.LocalVariable, error) {
	t, err := scope.resolver.ResolveVariableType(decl)
	if err != nil {
		return nil, err
	}
	v := &core.LocalVariable{
		Variable: core.Variable{
			Name: decl.StringAttr("name"),
			Type: t,
			Src:  decl.Source(),
			Decl: decl,
		},
		Location:   decl.StringAttr("storageLocation"),
		FunctionID: fn.ID,
	}
	fn.Locals = append(fn.Locals, v)
	scope.locals[decl.ID] = v
	if v.Name != "" {
		scope.symbols.Define(v)
	}
	return v, nil
}

// fixJumps cuts the fallthrough edges of terminal nodes and sends BREAK and
// CONTINUE nodes to their loop targets.
func (b *flowBuilder) fixJumps() {
	for _, n := range b.fn.Nodes {
		if n.Type == core.NodeReturn || n.Type == core.NodeThrow {
			b.cutSons(n)
		}
	}
	for _, j := range b.jumps {
		b.cutSons(j.node)
		if j.node.Type == core.NodeBreak {
			core.Link(j.node, j.frame.end)
		} else {
			core.Link(j.node, j.frame.continueTo)
		}
	}
}

func (b *flowBuilder) cutSons(n *core.Node) {
	for _, s := range n.Sons() {
		core.Unlink(n, b.fn.Nodes[s])
	}
}

// pruneUnreachable removes every node the entry cannot reach, such as
// END_IF nodes after two returning branches and the code following them.
func (b *flowBuilder) pruneUnreachable() {
	reached := make([]bool, len(b.fn.Nodes))
	stack := []int{0}
	reached[0] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range b.fn.Nodes[id].Sons() {
			if !reached[s] {
				reached[s] = true
				stack = append(stack, s)
			}
		}
	}
	for id, ok := range reached {
		if !ok {
			log.Debugf("%s: pruning unreachable %s node %d", b.fn.Name, b.fn.Nodes[id].Type, id)
			b.fn.RemoveNode(b.fn.Nodes[id])
		}
	}
}
