package semantic

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"solcheck/internal/ast"
	"solcheck/internal/core"
)

// treeBuilder assembles legacy syntax trees with unique ids and offsets.
type treeBuilder struct {
	next int
}

func newTree() *treeBuilder { return &treeBuilder{} }

func (b *treeBuilder) node(name string, attrs map[string]any, children ...*ast.Node) *ast.Node {
	b.next++
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &ast.Node{
		Name:       name,
		ID:         b.next,
		Src:        fmt.Sprintf("%d:1:0", b.next*10),
		Attributes: attrs,
		Children:   children,
	}
}

func (b *treeBuilder) unit(contracts ...*ast.Node) *ast.Node {
	pragma := b.node(ast.PragmaDirective, map[string]any{"literals": []any{"solidity", "^", "0.4", ".24"}})
	return b.node(ast.SourceUnit, map[string]any{"absolutePath": "fixture.sol"}, append([]*ast.Node{pragma}, contracts...)...)
}

// contract creates a contract whose linearization is itself followed by
// bases, nearest first. Members are attached afterwards with add.
func (b *treeBuilder) contract(name, kind string, bases ...*ast.Node) *ast.Node {
	c := b.node(ast.ContractDefinition, map[string]any{"name": name, "contractKind": kind})
	linearized := []any{float64(c.ID)}
	for _, base := range bases {
		linearized = append(linearized, float64(base.ID))
	}
	c.Attributes["linearizedBaseContracts"] = linearized
	return c
}

// inherits adds an InheritanceSpecifier naming base.
func (b *treeBuilder) inherits(c, base *ast.Node) {
	name := b.node(ast.UserDefinedTypeName, map[string]any{
		"name":                  base.StringAttr("name"),
		"referencedDeclaration": float64(base.ID),
	})
	c.Children = append(c.Children, b.node(ast.InheritanceSpec, nil, name))
}

func add(parent *ast.Node, children ...*ast.Node) *ast.Node {
	parent.Children = append(parent.Children, children...)
	return parent
}

func (b *treeBuilder) enum(name string, values ...string) *ast.Node {
	n := b.node(ast.EnumDefinition, map[string]any{"name": name})
	for _, v := range values {
		add(n, b.node(ast.EnumValue, map[string]any{"name": v}))
	}
	return n
}

func (b *treeBuilder) structDef(name string, members ...*ast.Node) *ast.Node {
	return b.node(ast.StructDefinition, map[string]any{"name": name}, members...)
}

// varDecl declares a variable typed by its type attribute. An initial value
// may follow as the only child.
func (b *treeBuilder) varDecl(name, typ string, init ...*ast.Node) *ast.Node {
	return b.node(ast.VariableDecl, map[string]any{"name": name, "type": typ, "storageLocation": "default"}, init...)
}

func (b *treeBuilder) elementary(name string) *ast.Node {
	return b.node(ast.ElementaryTypeName, map[string]any{"name": name})
}

func (b *treeBuilder) function(name string, params []*ast.Node, returns []*ast.Node, body *ast.Node) *ast.Node {
	fn := b.node(ast.FunctionDefinition, map[string]any{
		"name":            name,
		"implemented":     body != nil,
		"visibility":      "public",
		"stateMutability": "nonpayable",
	},
		b.node(ast.ParameterList, nil, params...),
		b.node(ast.ParameterList, nil, returns...),
	)
	if body != nil {
		add(fn, body)
	}
	return fn
}

func (b *treeBuilder) block(stmts ...*ast.Node) *ast.Node {
	return b.node(ast.Block, nil, stmts...)
}

func (b *treeBuilder) expr(e *ast.Node) *ast.Node {
	return b.node(ast.ExpressionStatement, nil, e)
}

func (b *treeBuilder) declare(decl *ast.Node, init *ast.Node) *ast.Node {
	stmt := b.node(ast.VariableDeclStatement, nil, decl)
	if init != nil {
		add(stmt, init)
	}
	return stmt
}

func (b *treeBuilder) ret(e ...*ast.Node) *ast.Node {
	return b.node(ast.Return, nil, e...)
}

func (b *treeBuilder) ifStmt(cond, then *ast.Node, otherwise ...*ast.Node) *ast.Node {
	return b.node(ast.IfStatement, nil, append([]*ast.Node{cond, then}, otherwise...)...)
}

func (b *treeBuilder) while(cond, body *ast.Node) *ast.Node {
	return b.node(ast.WhileStatement, nil, cond, body)
}

func (b *treeBuilder) doWhile(cond, body *ast.Node) *ast.Node {
	return b.node(ast.DoWhileStatement, nil, cond, body)
}

func (b *treeBuilder) forStmt(init, cond, loop, body *ast.Node) *ast.Node {
	n := b.node(ast.ForStatement, nil)
	for key, part := range map[string]*ast.Node{"initializationExpression": init, "condition": cond, "loopExpression": loop} {
		if part == nil {
			n.Attributes[key] = nil
		}
	}
	for _, part := range []*ast.Node{init, cond, loop} {
		if part != nil {
			add(n, part)
		}
	}
	return add(n, body)
}

func (b *treeBuilder) brk() *ast.Node  { return b.node(ast.Break, nil) }
func (b *treeBuilder) cont() *ast.Node { return b.node(ast.Continue, nil) }

func (b *treeBuilder) ident(name, typ string, decl *ast.Node) *ast.Node {
	attrs := map[string]any{"value": name, "type": typ}
	if decl != nil {
		attrs["referencedDeclaration"] = float64(decl.ID)
	}
	return b.node(ast.Identifier, attrs)
}

func (b *treeBuilder) number(value string) *ast.Node {
	return b.node(ast.Literal, map[string]any{"value": value, "type": "int_const " + value, "token": "number"})
}

func (b *treeBuilder) boolean(value bool) *ast.Node {
	return b.node(ast.Literal, map[string]any{"value": fmt.Sprint(value), "type": "bool", "token": "bool"})
}

func (b *treeBuilder) binary(op string, l, r *ast.Node, typ string) *ast.Node {
	return b.node(ast.BinaryOperation, map[string]any{"operator": op, "type": typ}, l, r)
}

func (b *treeBuilder) assign(l, r *ast.Node, typ string) *ast.Node {
	return b.node(ast.Assignment, map[string]any{"operator": "=", "type": typ}, l, r)
}

func (b *treeBuilder) member(base *ast.Node, name, typ string) *ast.Node {
	return b.node(ast.MemberAccess, map[string]any{"member_name": name, "type": typ}, base)
}

func (b *treeBuilder) call(callee *ast.Node, typ string, args ...*ast.Node) *ast.Node {
	return b.node(ast.FunctionCall, map[string]any{"type": typ}, append([]*ast.Node{callee}, args...)...)
}

func (b *treeBuilder) ternary(cond, then, otherwise *ast.Node, typ string) *ast.Node {
	return b.node(ast.Conditional, map[string]any{"type": typ}, cond, then, otherwise)
}

// counter is a contract with one uint256 state variable, used by most CFG
// tests as the target of assignments.
type counter struct {
	*treeBuilder
	contract *ast.Node
	count    *ast.Node
}

func newCounter() *counter {
	b := newTree()
	c := b.contract("Counter", "contract")
	count := b.varDecl("count", "uint256")
	add(c, count)
	return &counter{treeBuilder: b, contract: c, count: count}
}

// bump is `count = count + 1;`.
func (c *counter) bump() *ast.Node {
	sum := c.binary("+", c.ident("count", "uint256", c.count), c.number("1"), "uint256")
	return c.expr(c.assign(c.ident("count", "uint256", c.count), sum, "uint256"))
}

// small is `count < 10`.
func (c *counter) small() *ast.Node {
	return c.binary("<", c.ident("count", "uint256", c.count), c.number("10"), "bool")
}

// analyzeBody wraps body in function run() and returns the analyzed function.
func (c *counter) analyzeBody(t *testing.T, body *ast.Node) *core.Function {
	t.Helper()
	add(c.contract, c.function("run", nil, nil, body))
	unit, err := AnalyzeUnit(context.Background(), c.unit(c.contract), Options{})
	require.NoError(t, err)
	fs := unit.Contract("Counter").FunctionsNamed("run")
	require.Len(t, fs, 1)
	require.NoError(t, fs[0].CheckCFG())
	return fs[0]
}

func nodeTypes(fn *core.Function) []core.NodeType {
	out := make([]core.NodeType, len(fn.Nodes))
	for i, n := range fn.Nodes {
		out[i] = n.Type
	}
	return out
}

func nodesOf(fn *core.Function, typ core.NodeType) []*core.Node {
	var out []*core.Node
	for _, n := range fn.Nodes {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
