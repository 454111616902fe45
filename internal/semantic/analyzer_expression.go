package semantic

import (
	"math/big"
	"strings"

	"solcheck/grammar"
	"solcheck/internal/ast"
	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/types"
)

// exprScope is everything an expression can refer to: the unit-wide
// declarations, the enclosing contract and, inside bodies, the function's
// locals by declaration id and by name.
type exprScope struct {
	ctx      *DeclarationContext
	resolver *Resolver
	contract *core.Contract
	fn       *core.Function
	locals   map[int]*core.LocalVariable
	symbols  *SymbolTable
}

func newExprScope(ctx *DeclarationContext, contract *core.Contract, fn *core.Function) *exprScope {
	return &exprScope{
		ctx:      ctx,
		resolver: NewResolver(ctx, contract),
		contract: contract,
		fn:       fn,
		locals:   make(map[int]*core.LocalVariable),
		symbols:  NewSymbolTable(nil),
	}
}

func (s *exprScope) parseExpression(n *ast.Node) (core.Expression, error) {
	if n == nil {
		return nil, errors.MalformedNode(nil, "missing expression")
	}
	typeStr := n.StringAttr("type")

	switch n.Name {
	case ast.UnaryOperation:
		op, ok := core.ParseUnaryOp(n.StringAttr("operator"), n.BoolAttr("prefix"))
		if !ok || len(n.Children) != 1 {
			return nil, errors.MalformedNode(n, "bad unary operation %q", n.StringAttr("operator"))
		}
		e, err := s.parseExpression(n.Children[0])
		if err != nil {
			return nil, err
		}
		return &core.UnaryOperation{Op: op, Expr: e, TypeStr: typeStr}, nil

	case ast.BinaryOperation:
		op, ok := core.ParseBinaryOp(n.StringAttr("operator"))
		if !ok || len(n.Children) != 2 {
			return nil, errors.MalformedNode(n, "bad binary operation %q", n.StringAttr("operator"))
		}
		l, r, err := s.parsePair(n)
		if err != nil {
			return nil, err
		}
		return &core.BinaryOperation{Op: op, Left: l, Right: r, TypeStr: typeStr}, nil

	case ast.Assignment:
		op, ok := core.ParseAssignOp(n.StringAttr("operator"))
		if !ok || len(n.Children) != 2 {
			return nil, errors.MalformedNode(n, "bad assignment %q", n.StringAttr("operator"))
		}
		l, r, err := s.parsePair(n)
		if err != nil {
			return nil, err
		}
		return &core.Assignment{Op: op, Left: l, Right: r, TypeStr: typeStr}, nil

	case ast.FunctionCall:
		return s.parseCall(n)

	case ast.TupleExpression:
		return s.parseTuple(n)

	case ast.Conditional:
		if len(n.Children) != 3 {
			return nil, errors.MalformedNode(n, "expected 3 children, got %d", len(n.Children))
		}
		parts := make([]core.Expression, 3)
		for i, c := range n.Children {
			e, err := s.parseExpression(c)
			if err != nil {
				return nil, err
			}
			parts[i] = e
		}
		return &core.Conditional{Cond: parts[0], Then: parts[1], Else: parts[2]}, nil

	case ast.Literal:
		return parseLiteral(n)

	case ast.Identifier:
		return s.parseIdentifier(n, -1)

	case ast.IndexAccess:
		return s.parseIndexAccess(n)

	case ast.MemberAccess:
		return s.parseMemberAccess(n)

	case ast.ElementaryTypeNameExpression:
		return s.parseElementaryTypeExpr(n)

	case ast.NewExpression:
		return s.parseNew(n)
	}
	return nil, errors.UnsupportedNode(n, "expression")
}

func (s *exprScope) parsePair(n *ast.Node) (core.Expression, core.Expression, error) {
	l, err := s.parseExpression(n.Children[0])
	if err != nil {
		return nil, nil, err
	}
	r, err := s.parseExpression(n.Children[1])
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func (s *exprScope) parseCall(n *ast.Node) (core.Expression, error) {
	if len(n.Children) == 0 {
		return nil, errors.MalformedNode(n, "call without callee")
	}
	typeStr := n.StringAttr("type")

	if n.BoolAttr("type_conversion") {
		if len(n.Children) != 2 {
			return nil, errors.MalformedNode(n, "type conversion takes one argument")
		}
		t, err := s.resolver.ResolveString(typeStr, n.Source())
		if err != nil {
			return nil, err
		}
		e, err := s.parseExpression(n.Children[1])
		if err != nil {
			return nil, err
		}
		return &core.TypeConversion{Expr: e, Type: t}, nil
	}

	argNodes := n.Children[1:]
	var (
		called core.Expression
		err    error
	)
	if callee := n.Children[0]; callee.Is(ast.Identifier) {
		called, err = s.parseIdentifier(callee, len(argNodes))
	} else {
		called, err = s.parseExpression(callee)
	}
	if err != nil {
		return nil, err
	}

	args := make([]core.Expression, 0, len(argNodes))
	for _, a := range argNodes {
		e, err := s.parseExpression(a)
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	return &core.Call{Called: called, Args: args, TypeCall: typeStr}, nil
}

func (s *exprScope) parseTuple(n *ast.Node) (core.Expression, error) {
	children := n.Children
	if len(children) == 0 {
		if comps, err := n.NodeListAttr("components"); err == nil {
			children = comps
		}
	}

	elems := make([]core.Expression, 0, len(children))
	for _, c := range children {
		if c == nil {
			elems = append(elems, nil)
			continue
		}
		e, err := s.parseExpression(c)
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}

	// (a,,c) lists only the present components; the holes are only
	// visible in the tuple type string.
	if t := n.StringAttr("type"); strings.HasPrefix(t, "tuple(") && strings.HasSuffix(t, ")") {
		parts := strings.Split(t[len("tuple("):len(t)-1], ",")
		holes := 0
		for _, p := range parts {
			if p == "" {
				holes++
			}
		}
		if holes > 0 && len(parts) > 1 && len(parts) == len(elems)+holes {
			filled := make([]core.Expression, 0, len(parts))
			next := 0
			for _, p := range parts {
				if p == "" {
					filled = append(filled, nil)
					continue
				}
				filled = append(filled, elems[next])
				next++
			}
			elems = filled
		}
	}
	if n.BoolAttr("isInlineArray") {
		return &core.Tuple{Elems: elems, IsInlineList: true, TypeStr: n.StringAttr("type")}, nil
	}
	return &core.Tuple{Elems: elems}, nil
}

func parseLiteral(n *ast.Node) (core.Expression, error) {
	typeStr := n.StringAttr("type")
	kind := n.StringAttr("token")
	if kind == "" {
		switch {
		case strings.HasPrefix(typeStr, "int_const"), strings.HasPrefix(typeStr, "rational_const"):
			kind = "number"
		case strings.HasPrefix(typeStr, "literal_string"):
			kind = "string"
		case typeStr == "bool":
			kind = "bool"
		}
	}

	if !n.HasAttr("value") {
		hexValue := n.StringAttr("hexvalue")
		if hexValue == "" {
			return nil, errors.MalformedNode(n, "literal without value")
		}
		return &core.Literal{Value: "0x" + hexValue, Kind: "hexString", TypeStr: typeStr}, nil
	}

	value := n.StringAttr("value")
	if kind == "number" {
		value = normalizeNumber(value, n.StringAttr("subdenomination"))
	}
	return &core.Literal{Value: value, Kind: kind, TypeStr: typeStr}, nil
}

var subdenominations = map[string]int64{
	"wei":     1,
	"gwei":    1_000_000_000,
	"szabo":   1_000_000_000_000,
	"finney":  1_000_000_000_000_000,
	"ether":   1_000_000_000_000_000_000,
	"seconds": 1,
	"minutes": 60,
	"hours":   60 * 60,
	"days":    24 * 60 * 60,
	"weeks":   7 * 24 * 60 * 60,
	"years":   365 * 24 * 60 * 60,
}

// normalizeNumber scales a decimal literal by its unit and rewrites
// fractional or exponent forms that denote an integer as plain decimals.
// Hex literals and values that stay fractional are returned unchanged.
func normalizeNumber(value, unit string) string {
	clean := strings.ReplaceAll(value, "_", "")
	if strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X") {
		return clean
	}
	r, ok := new(big.Rat).SetString(clean)
	if !ok {
		return value
	}
	if mult, found := subdenominations[unit]; found {
		r.Mul(r, new(big.Rat).SetInt64(mult))
	}
	if !r.IsInt() {
		return value
	}
	return r.Num().String()
}

// parseIdentifier resolves an identifier. arity is the number of call
// arguments when the identifier is a callee, -1 otherwise; it selects the
// overload of builtin functions.
func (s *exprScope) parseIdentifier(n *ast.Node, arity int) (core.Expression, error) {
	name := n.StringAttr("value")
	typeStr := n.StringAttr("type")
	if name == "" {
		return nil, errors.MalformedNode(n, "identifier without value")
	}

	if id, ok := n.IntAttr("referencedDeclaration"); ok {
		if v := s.locals[id]; v != nil {
			return &core.Identifier{Name: name, Value: v, TypeStr: typeStr}, nil
		}
		if v, found := s.ctx.Lookup(id); found {
			return &core.Identifier{Name: name, Value: v, TypeStr: typeStr}, nil
		}
	}

	if v := s.findByName(name, typeStr, arity); v != nil {
		return &core.Identifier{Name: name, Value: v, TypeStr: typeStr}, nil
	}
	return nil, errors.UnresolvedIdentifier(name, n, s.visibleNames())
}

// findByName applies the name lookup order: locals, state variables,
// functions, modifiers, structs, events, enums, builtin variables, builtin
// functions and finally contracts.
func (s *exprScope) findByName(name, typeStr string, arity int) core.Value {
	if v := s.symbols.Lookup(name); v != nil {
		return v
	}
	if s.fn != nil {
		if v := s.fn.LocalByName(name); v != nil {
			return v
		}
	}
	if c := s.contract; c != nil {
		if v := c.StateVariable(name); v != nil {
			return v
		}
		if fs := c.FunctionsNamed(name); len(fs) > 0 {
			return s.pickOverload(fs, typeStr)
		}
		if m := c.Modifier(name); m != nil {
			return m
		}
		if st := c.Struct(name); st != nil {
			return st
		}
		if e := c.Event(name); e != nil {
			return e
		}
		if e := c.Enum(name); e != nil {
			return e
		}
	}
	if st := s.ctx.Struct(name); st != nil {
		return st
	}
	if e := s.ctx.Enum(name); e != nil {
		return e
	}
	if v, ok := core.LookupSolidityVariable(name); ok {
		return v
	}
	if f, ok := core.LookupSolidityFunction(name, arity); ok {
		return f
	}
	if c := s.ctx.Contract(name); c != nil {
		return c
	}
	return nil
}

// pickOverload selects the function whose parameter types match the
// identifier's function type string. The first candidate wins otherwise.
func (s *exprScope) pickOverload(fs []*core.Function, typeStr string) *core.Function {
	if len(fs) == 1 || typeStr == "" {
		return fs[0]
	}
	d, err := grammar.Parse(typeStr)
	if err != nil || d.Base.Function == nil {
		return fs[0]
	}
	params := d.Base.Function.Params
	for _, f := range fs {
		if len(f.Params) != len(params) {
			continue
		}
		match := true
		for i, p := range params {
			t, err := s.resolver.resolveDescriptor(p, typeStr, ast.Source{})
			if err != nil || types.SignatureName(t) != types.SignatureName(f.Params[i].Type) {
				match = false
				break
			}
		}
		if match {
			return f
		}
	}
	return fs[0]
}

func (s *exprScope) visibleNames() []string {
	names := s.symbols.Names()
	if s.fn != nil {
		for _, v := range s.fn.Locals {
			names = append(names, v.Name)
		}
	}
	if s.contract != nil {
		for _, v := range s.contract.AllStateVariables() {
			names = append(names, v.Name)
		}
		for _, f := range s.contract.AllFunctions() {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s *exprScope) parseIndexAccess(n *ast.Node) (core.Expression, error) {
	switch len(n.Children) {
	case 1:
		// abi.decode(data, (uint[])) encodes the array type as an index
		// access without index.
		base, err := s.parseExpression(n.Children[0])
		if err != nil {
			return nil, err
		}
		if et, ok := base.(*core.ElementaryTypeExpr); ok {
			return &core.ElementaryTypeExpr{Type: types.ArrayOf(et.Type, 1)}, nil
		}
		return &core.IndexAccess{Base: base, TypeStr: n.StringAttr("type")}, nil
	case 2:
		base, index, err := s.parsePair(n)
		if err != nil {
			return nil, err
		}
		return &core.IndexAccess{Base: base, Index: index, TypeStr: n.StringAttr("type")}, nil
	}
	return nil, errors.MalformedNode(n, "expected 1 or 2 children, got %d", len(n.Children))
}

func (s *exprScope) parseMemberAccess(n *ast.Node) (core.Expression, error) {
	member := n.StringAttr("member_name")
	typeStr := n.StringAttr("type")
	if len(n.Children) != 1 || member == "" {
		return nil, errors.MalformedNode(n, "member access needs a base and a member name")
	}

	base := n.Children[0]
	if base.Is(ast.Identifier) && base.StringAttr("value") == "super" {
		return s.parseSuper(n, member, typeStr)
	}

	e, err := s.parseExpression(base)
	if err != nil {
		return nil, err
	}

	if id, ok := e.(*core.Identifier); ok {
		switch v := id.Value.(type) {
		case core.SolidityVariable:
			composed := v.Name + "." + member
			if composed == "block.blockhash" {
				f, _ := core.LookupSolidityFunction("blockhash", 1)
				return &core.Identifier{Name: composed, Value: f, TypeStr: typeStr}, nil
			}
			if core.IsComposedSolidityVariable(composed) {
				sv, _ := core.LookupSolidityVariable(composed)
				return &core.Identifier{Name: composed, Value: sv, TypeStr: typeStr}, nil
			}
			if f, found := core.LookupSolidityFunction(composed, -1); found {
				return &core.Identifier{Name: composed, Value: f, TypeStr: typeStr}, nil
			}
		case *core.Contract:
			// C.E and C.S name a type declared in another contract.
			if en := v.Enum(member); en != nil {
				return &core.Identifier{Name: v.Name + "." + member, Value: en, TypeStr: typeStr}, nil
			}
			if st := v.Struct(member); st != nil {
				return &core.Identifier{Name: v.Name + "." + member, Value: st, TypeStr: typeStr}, nil
			}
		}
	}
	return &core.MemberAccess{Expr: e, Member: member, TypeStr: typeStr}, nil
}

// parseSuper resolves super.f to the nearest ancestor declaring f.
func (s *exprScope) parseSuper(n *ast.Node, member, typeStr string) (core.Expression, error) {
	if s.contract == nil {
		return nil, errors.UnresolvedIdentifier("super."+member, n, nil)
	}
	for _, ancestor := range s.contract.Inheritance {
		var candidates []*core.Function
		for _, f := range ancestor.Functions {
			if f.Name == member {
				candidates = append(candidates, f)
			}
		}
		if len(candidates) > 0 {
			f := s.pickOverload(candidates, typeStr)
			return &core.Identifier{Name: "super." + member, Value: f, TypeStr: typeStr, Super: true}, nil
		}
	}
	return nil, errors.UnresolvedIdentifier("super."+member, n, nil)
}

func (s *exprScope) parseElementaryTypeExpr(n *ast.Node) (core.Expression, error) {
	name := n.StringAttr("value")
	if name == "" {
		if c := n.Child(0); c != nil {
			name = c.StringAttr("name")
		}
	}
	if name == "" {
		name = strings.TrimSuffix(strings.TrimPrefix(n.StringAttr("type"), "type("), ")")
	}
	t, err := s.resolver.ResolveString(name, n.Source())
	if err != nil {
		return nil, err
	}
	return &core.ElementaryTypeExpr{Type: t}, nil
}

func (s *exprScope) parseNew(n *ast.Node) (core.Expression, error) {
	typeName := n.Child(0)
	if typeName == nil {
		return nil, errors.MalformedNode(n, "new without type")
	}

	switch typeName.Name {
	case ast.ArrayTypeName:
		depth := 0
		for typeName.Is(ast.ArrayTypeName) {
			typeName = typeName.Child(0)
			depth++
		}
		if typeName == nil {
			return nil, errors.MalformedNode(n, "array type without base")
		}
		base, err := s.resolver.ResolveTypeName(typeName)
		if err != nil {
			return nil, err
		}
		return &core.NewArray{Depth: depth, Base: base}, nil

	case ast.ElementaryTypeName:
		t, err := s.resolver.ResolveTypeName(typeName)
		if err != nil {
			return nil, err
		}
		return &core.NewElementaryType{Type: t}, nil

	case ast.UserDefinedTypeName:
		name := typeName.StringAttr("name")
		if name == "" {
			return nil, errors.MalformedNode(typeName, "missing contract name")
		}
		return &core.NewContract{Name: name}, nil
	}
	return nil, errors.UnsupportedNode(typeName, "new expression")
}
