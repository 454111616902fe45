package semantic

import (
	"solcheck/internal/ast"
	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/ir"
)

// analyzeEnums records the enums of c with their values.
func (a *Analyzer) analyzeEnums(c *core.Contract) error {
	for _, n := range c.Decl.ChildrenOf(ast.EnumDefinition) {
		e := &core.Enum{Name: n.StringAttr("name"), Contract: c.Name, Src: n.Source()}
		for _, v := range n.ChildrenOf(ast.EnumValue) {
			e.Values = append(e.Values, v.StringAttr("name"))
		}
		c.Enums = append(c.Enums, e)
		a.ids[n.ID] = e
	}
	return nil
}

// analyzeSkeletons registers structs, events, state variables, functions
// and modifiers by name. No type is resolved yet.
func (a *Analyzer) analyzeSkeletons(c *core.Contract) error {
	for i, n := range c.Decl.Children {
		if n == nil {
			return errors.MalformedNode(c.Decl, "member %d is null", i)
		}
		switch n.Name {
		case ast.StructDefinition:
			s := &core.Struct{Name: n.StringAttr("name"), Contract: c.Name, Src: n.Source(), Decl: n}
			c.Structs = append(c.Structs, s)
			a.ids[n.ID] = s

		case ast.EventDefinition:
			e := &core.Event{
				Name:      n.StringAttr("name"),
				Contract:  c.Name,
				Anonymous: n.BoolAttr("anonymous"),
				Src:       n.Source(),
				Decl:      n,
			}
			c.Events = append(c.Events, e)
			a.ids[n.ID] = e

		case ast.VariableDecl:
			v := &core.StateVariable{
				Variable: core.Variable{
					Name:       n.StringAttr("name"),
					Visibility: visibility(n, "internal"),
					IsConstant: n.BoolAttr("constant") || n.StringAttr("mutability") == "constant",
					Src:        n.Source(),
					Decl:       n,
				},
				Contract: c.Name,
			}
			c.StateVariables = append(c.StateVariables, v)
			a.ids[n.ID] = v

		case ast.FunctionDefinition:
			f := &core.Function{
				ID:            n.ID,
				Name:          n.StringAttr("name"),
				Contract:      c.Name,
				Kind:          functionKind(n, c.Name),
				Visibility:    visibility(n, "public"),
				Mutability:    mutability(n),
				IsImplemented: isImplemented(n),
				IsVirtual:     n.BoolAttr("virtual"),
				Src:           n.Source(),
				Decl:          n,
			}
			c.Functions = append(c.Functions, f)
			a.ids[n.ID] = f

		case ast.ModifierDefinition:
			m := &core.Function{
				ID:            n.ID,
				Name:          n.StringAttr("name"),
				Contract:      c.Name,
				Kind:          core.KindModifier,
				Visibility:    visibility(n, "internal"),
				IsImplemented: true,
				IsVirtual:     n.BoolAttr("virtual"),
				Src:           n.Source(),
				Decl:          n,
			}
			c.Modifiers = append(c.Modifiers, m)
			a.ids[n.ID] = m
		}
	}
	return nil
}

// analyzeStructs resolves struct members, event parameters and using-for
// directives. Every struct, enum and contract of the unit is known by now.
func (a *Analyzer) analyzeStructs(c *core.Contract) error {
	r := NewResolver(a.ctx, c)

	for _, s := range c.Structs {
		for _, m := range s.Decl.ChildrenOf(ast.VariableDecl) {
			t, err := r.ResolveVariableType(m)
			if err != nil {
				return err
			}
			s.Members = append(s.Members, &core.StructMember{Name: m.StringAttr("name"), Type: t, Src: m.Source()})
		}
	}

	for _, e := range c.Events {
		for _, list := range e.Decl.ChildrenOf(ast.ParameterList) {
			for _, p := range list.ChildrenOf(ast.VariableDecl) {
				t, err := r.ResolveVariableType(p)
				if err != nil {
					return err
				}
				e.Params = append(e.Params, &core.EventParam{Name: p.StringAttr("name"), Type: t, Indexed: p.BoolAttr("indexed")})
			}
		}
	}

	for _, n := range c.Decl.ChildrenOf(ast.UsingForDirective) {
		if err := a.resolveUsingFor(c, r, n); err != nil {
			return err
		}
	}
	return nil
}

// resolveUsingFor handles `using L for T;` and `using L for *;`. The
// library is the first child; a missing second child means "*".
func (a *Analyzer) resolveUsingFor(c *core.Contract, r *Resolver, n *ast.Node) error {
	libNode := n.Child(0)
	if libNode == nil {
		return errors.MalformedNode(n, "missing library")
	}

	var lib *core.Contract
	if id, ok := libNode.IntAttr("referencedDeclaration"); ok {
		if v, found := a.ctx.Lookup(id); found {
			lib, _ = v.(*core.Contract)
		}
	}
	if lib == nil {
		lib = a.ctx.Contract(libNode.StringAttr("name"))
	}
	if lib == nil {
		log.Warningf("%s", unknownLibrary(c, libNode.StringAttr("name")))
		return nil
	}

	u := &core.UsingFor{Library: lib}
	if target := n.Child(1); target != nil {
		t, err := r.ResolveTypeName(target)
		if err != nil {
			return err
		}
		u.For = t
	}
	c.UsingFor = append(c.UsingFor, u)
	return nil
}

// analyzeBodies resolves state variable types, then every signature, then
// builds the CFG and IR of every function and modifier. State variable
// initial values are lowered into a synthetic constructorVariables function.
func (a *Analyzer) analyzeBodies(c *core.Contract) error {
	r := NewResolver(a.ctx, c)
	for _, v := range c.StateVariables {
		t, err := r.ResolveVariableType(v.Decl)
		if err != nil {
			return err
		}
		v.Type = t
	}

	all := append(append([]*core.Function(nil), c.Modifiers...), c.Functions...)
	scopes := make(map[*core.Function]*exprScope, len(all))
	for _, f := range all {
		scope := newExprScope(a.ctx, c, f)
		if err := declareSignature(f, scope); err != nil {
			return inContract(err, c, f)
		}
		scopes[f] = scope
	}

	for _, f := range all {
		if err := a.analyzeFunction(c, f, scopes[f]); err != nil {
			return inContract(err, c, f)
		}
	}

	if cv, err := a.constructorVariables(c); err != nil {
		return inContract(err, c, cv)
	} else if cv != nil {
		c.Functions = append(c.Functions, cv)
	}
	return nil
}

// declareSignature creates the parameters and return variables. The first
// ParameterList holds the parameters and the second the returns.
func declareSignature(f *core.Function, scope *exprScope) error {
	lists := f.Decl.ChildrenOf(ast.ParameterList)
	for i, list := range lists {
		for _, p := range list.ChildrenOf(ast.VariableDecl) {
			v, err := declareLocal(f, scope, p)
			if err != nil {
				return err
			}
			if i == 0 {
				v.IsParam = true
				f.Params = append(f.Params, v)
			} else {
				v.IsReturn = true
				f.Returns = append(f.Returns, v)
			}
		}
	}
	return nil
}

func (a *Analyzer) analyzeFunction(c *core.Contract, f *core.Function, scope *exprScope) error {
	for _, inv := range f.Decl.ChildrenOf(ast.ModifierInvocation) {
		call, err := parseModifierCall(scope, inv)
		if err != nil {
			return err
		}
		f.Modifiers = append(f.Modifiers, call)
	}

	if !f.IsImplemented {
		return nil
	}
	if err := newFlowBuilder(f, scope).build(bodyOf(f.Decl)); err != nil {
		return err
	}
	splitConditionals(f)
	if err := f.CheckCFG(); err != nil {
		return errors.NewAnalysisError(errors.KindStructural, errors.ErrorMalformedNode, "inconsistent control flow").
			At(f.Src).
			Wrap(err).
			Build()
	}
	log.Debugf("%s.%s: %d nodes", c.Name, f.Name, len(f.Nodes))
	return ir.LowerFunction(c, f, NewResolver(a.ctx, c))
}

// parseModifierCall resolves a modifier or base constructor invocation.
// The arguments are kept as expressions; the modifier body is not inlined.
func parseModifierCall(scope *exprScope, inv *ast.Node) (*core.ModifierCall, error) {
	nameNode := inv.Child(0)
	if nameNode == nil {
		return nil, errors.MalformedNode(inv, "missing modifier name")
	}
	target, err := scope.parseIdentifier(nameNode, len(inv.Children)-1)
	if err != nil {
		return nil, err
	}
	call := &core.ModifierCall{Name: nameNode.StringAttr("value"), Src: inv.Source()}
	if id, ok := target.(*core.Identifier); ok {
		call.Target = id.Value
	}
	for _, arg := range inv.Children[1:] {
		e, err := scope.parseExpression(arg)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, e)
	}
	return call, nil
}

// constructorVariables chains one `x = init` node per initialized state
// variable. It returns nil when no state variable has an initial value.
func (a *Analyzer) constructorVariables(c *core.Contract) (*core.Function, error) {
	fn := &core.Function{
		ID:            -c.ID - 1,
		Name:          "constructorVariables",
		Contract:      c.Name,
		Kind:          core.KindConstructorVariables,
		Visibility:    "internal",
		Mutability:    "nonpayable",
		IsImplemented: true,
		Src:           c.Src,
	}
	scope := newExprScope(a.ctx, c, fn)

	var prev *core.Node
	for _, v := range c.StateVariables {
		init := initializerOf(v.Decl)
		if init == nil {
			continue
		}
		e, err := scope.parseExpression(init)
		if err != nil {
			return fn, err
		}
		v.Initial = e
		if prev == nil {
			prev = fn.NewNode(core.NodeEntryPoint, c.Src)
		}
		node := fn.NewNode(core.NodeExpression, v.Src)
		node.Expression = &core.Assignment{
			Op:      "=",
			Left:    &core.Identifier{Name: v.Name, Value: v, TypeStr: v.Decl.StringAttr("type")},
			Right:   e,
			TypeStr: v.Decl.StringAttr("type"),
		}
		core.Link(prev, node)
		prev = node
	}
	if prev == nil {
		return nil, nil
	}
	splitConditionals(fn)
	return fn, ir.LowerFunction(c, fn, NewResolver(a.ctx, c))
}
