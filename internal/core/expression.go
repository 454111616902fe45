package core

import (
	"fmt"
	"strings"

	"solcheck/internal/types"
)

// Expression is a parsed, name-resolved expression tree attached to a node.
type Expression interface {
	String() string
	exprNode()
}

// BinaryOp is a binary operator in source form.
type BinaryOp string

const (
	OpPower      BinaryOp = "**"
	OpMul        BinaryOp = "*"
	OpDiv        BinaryOp = "/"
	OpMod        BinaryOp = "%"
	OpAdd        BinaryOp = "+"
	OpSub        BinaryOp = "-"
	OpShl        BinaryOp = "<<"
	OpShr        BinaryOp = ">>"
	OpAnd        BinaryOp = "&"
	OpXor        BinaryOp = "^"
	OpOr         BinaryOp = "|"
	OpLess       BinaryOp = "<"
	OpGreater    BinaryOp = ">"
	OpLessEq     BinaryOp = "<="
	OpGreaterEq  BinaryOp = ">="
	OpEqual      BinaryOp = "=="
	OpNotEqual   BinaryOp = "!="
	OpLogicalAnd BinaryOp = "&&"
	OpLogicalOr  BinaryOp = "||"
)

var binaryOps = map[BinaryOp]bool{
	OpPower: true, OpMul: true, OpDiv: true, OpMod: true, OpAdd: true, OpSub: true,
	OpShl: true, OpShr: true, OpAnd: true, OpXor: true, OpOr: true,
	OpLess: true, OpGreater: true, OpLessEq: true, OpGreaterEq: true,
	OpEqual: true, OpNotEqual: true, OpLogicalAnd: true, OpLogicalOr: true,
}

// ParseBinaryOp validates a binary operator string.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	op := BinaryOp(s)
	return op, binaryOps[op]
}

// IsComparison reports whether the operator yields a bool.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpLess, OpGreater, OpLessEq, OpGreaterEq, OpEqual, OpNotEqual, OpLogicalAnd, OpLogicalOr:
		return true
	}
	return false
}

// UnaryOp is a unary operator. Increment and decrement carry their position.
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryBitNot
	UnaryDelete
	UnaryPreInc
	UnaryPreDec
	UnaryPostInc
	UnaryPostDec
	UnaryPlus
	UnaryMinus
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNot:
		return "!"
	case UnaryBitNot:
		return "~"
	case UnaryDelete:
		return "delete"
	case UnaryPreInc, UnaryPostInc:
		return "++"
	case UnaryPreDec, UnaryPostDec:
		return "--"
	case UnaryPlus:
		return "+"
	case UnaryMinus:
		return "-"
	}
	return "?"
}

// IsPrefix reports whether the operator is written before its operand.
func (op UnaryOp) IsPrefix() bool { return op != UnaryPostInc && op != UnaryPostDec }

// ParseUnaryOp maps a source operator and its prefix flag to a UnaryOp.
func ParseUnaryOp(s string, prefix bool) (UnaryOp, bool) {
	switch s {
	case "!":
		return UnaryNot, true
	case "~":
		return UnaryBitNot, true
	case "delete":
		return UnaryDelete, true
	case "+":
		return UnaryPlus, true
	case "-":
		return UnaryMinus, true
	case "++":
		if prefix {
			return UnaryPreInc, true
		}
		return UnaryPostInc, true
	case "--":
		if prefix {
			return UnaryPreDec, true
		}
		return UnaryPostDec, true
	}
	return 0, false
}

// AssignOp is "=" or a compound assignment operator.
type AssignOp string

// ParseAssignOp validates an assignment operator string.
func ParseAssignOp(s string) (AssignOp, bool) {
	if s == "=" {
		return AssignOp(s), true
	}
	if !strings.HasSuffix(s, "=") {
		return "", false
	}
	_, ok := ParseBinaryOp(strings.TrimSuffix(s, "="))
	if !ok || s == "==" || s == "<=" || s == ">=" || s == "!=" {
		return "", false
	}
	return AssignOp(s), true
}

// Binary returns the operator a compound assignment applies.
func (op AssignOp) Binary() (BinaryOp, bool) {
	if op == "=" {
		return "", false
	}
	return BinaryOp(strings.TrimSuffix(string(op), "=")), true
}

// Identifier refers to a resolved declaration or builtin.
type Identifier struct {
	Name    string
	Value   Value
	TypeStr string
	Super   bool
}

// Literal is a constant in source form. Number literals with a
// subdenomination have already been scaled to a plain decimal.
type Literal struct {
	Value   string
	Kind    string
	TypeStr string
}

type BinaryOperation struct {
	Op          BinaryOp
	Left, Right Expression
	TypeStr     string
}

type UnaryOperation struct {
	Op      UnaryOp
	Expr    Expression
	TypeStr string
}

type Assignment struct {
	Op          AssignOp
	Left, Right Expression
	TypeStr     string
}

// Call is a function call. TypeCall is the result type string recorded by the
// compiler, e.g. "uint256" or "tuple(uint256,bool)".
type Call struct {
	Called   Expression
	Args     []Expression
	TypeCall string
}

type TypeConversion struct {
	Expr Expression
	Type types.Type
}

// Tuple is a parenthesized expression list. Elements may be nil for holes
// such as (, x) = f().
// Tuple is a parenthesised list, or an inline array when IsInlineList is
// set. TypeStr is only recorded for inline arrays.
type Tuple struct {
	Elems        []Expression
	IsInlineList bool
	TypeStr      string
}

type Conditional struct {
	Cond, Then, Else Expression
}

type IndexAccess struct {
	Base, Index Expression
	TypeStr     string
}

type MemberAccess struct {
	Expr    Expression
	Member  string
	TypeStr string
}

// ElementaryTypeExpr is an elementary type used as a value, as in uint256(x).
type ElementaryTypeExpr struct {
	Type types.Type
}

type NewArray struct {
	Depth int
	Base  types.Type
}

type NewContract struct {
	Name string
}

type NewElementaryType struct {
	Type types.Type
}

func (*Identifier) exprNode()         {}
func (*Literal) exprNode()            {}
func (*BinaryOperation) exprNode()    {}
func (*UnaryOperation) exprNode()     {}
func (*Assignment) exprNode()         {}
func (*Call) exprNode()               {}
func (*TypeConversion) exprNode()     {}
func (*Tuple) exprNode()              {}
func (*Conditional) exprNode()        {}
func (*IndexAccess) exprNode()        {}
func (*MemberAccess) exprNode()       {}
func (*ElementaryTypeExpr) exprNode() {}
func (*NewArray) exprNode()           {}
func (*NewContract) exprNode()        {}
func (*NewElementaryType) exprNode()  {}

func (e *Identifier) String() string {
	if e.Value != nil {
		return e.Value.String()
	}
	return e.Name
}

func (e *Literal) String() string {
	if e.Kind == "string" {
		return fmt.Sprintf("%q", e.Value)
	}
	return e.Value
}

func (e *BinaryOperation) String() string {
	return e.Left.String() + " " + string(e.Op) + " " + e.Right.String()
}

func (e *UnaryOperation) String() string {
	switch {
	case e.Op == UnaryDelete:
		return "delete " + e.Expr.String()
	case e.Op.IsPrefix():
		return e.Op.String() + e.Expr.String()
	default:
		return e.Expr.String() + e.Op.String()
	}
}

func (e *Assignment) String() string {
	return e.Left.String() + " " + string(e.Op) + " " + e.Right.String()
}

func (e *Call) String() string {
	return e.Called.String() + "(" + joinExpressions(e.Args) + ")"
}

func (e *TypeConversion) String() string {
	return e.Type.String() + "(" + e.Expr.String() + ")"
}

func (e *Tuple) String() string {
	if e.IsInlineList {
		return "[" + joinExpressions(e.Elems) + "]"
	}
	return "(" + joinExpressions(e.Elems) + ")"
}

func (e *Conditional) String() string {
	return e.Cond.String() + " ? " + e.Then.String() + " : " + e.Else.String()
}

func (e *IndexAccess) String() string {
	if e.Index == nil {
		return e.Base.String() + "[]"
	}
	return e.Base.String() + "[" + e.Index.String() + "]"
}

func (e *MemberAccess) String() string { return e.Expr.String() + "." + e.Member }

func (e *ElementaryTypeExpr) String() string { return e.Type.String() }

func (e *NewArray) String() string {
	return "new " + e.Base.String() + strings.Repeat("[]", e.Depth)
}

func (e *NewContract) String() string { return "new " + e.Name }

func (e *NewElementaryType) String() string { return "new " + e.Type.String() }

func joinExpressions(exprs []Expression) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		if e != nil {
			parts[i] = e.String()
		}
	}
	return strings.Join(parts, ", ")
}

// Children returns the direct subexpressions of e in evaluation order.
// Tuple holes are omitted.
func Children(e Expression) []Expression {
	var out []Expression
	add := func(xs ...Expression) {
		for _, x := range xs {
			if x != nil {
				out = append(out, x)
			}
		}
	}
	switch e := e.(type) {
	case *BinaryOperation:
		add(e.Left, e.Right)
	case *UnaryOperation:
		add(e.Expr)
	case *Assignment:
		add(e.Left, e.Right)
	case *Call:
		add(e.Called)
		add(e.Args...)
	case *TypeConversion:
		add(e.Expr)
	case *Tuple:
		add(e.Elems...)
	case *Conditional:
		add(e.Cond, e.Then, e.Else)
	case *IndexAccess:
		add(e.Base, e.Index)
	case *MemberAccess:
		add(e.Expr)
	}
	return out
}

// WalkExpression visits e and its subexpressions in pre-order. Returning
// false from fn skips the children of the current expression.
func WalkExpression(e Expression, fn func(Expression) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		WalkExpression(c, fn)
	}
}

// MapExpression rebuilds e bottom-up after giving fn the chance to replace
// each subexpression in pre-order. When fn returns a non-nil expression it
// replaces the visited one and its children are not visited. Unchanged
// subtrees are shared with the input.
func MapExpression(e Expression, fn func(Expression) Expression) Expression {
	if e == nil {
		return nil
	}
	if r := fn(e); r != nil {
		return r
	}
	m := func(x Expression) Expression { return MapExpression(x, fn) }
	mapAll := func(xs []Expression) ([]Expression, bool) {
		out := make([]Expression, len(xs))
		changed := false
		for i, x := range xs {
			out[i] = m(x)
			changed = changed || out[i] != x
		}
		return out, changed
	}

	switch e := e.(type) {
	case *BinaryOperation:
		l, r := m(e.Left), m(e.Right)
		if l != e.Left || r != e.Right {
			return &BinaryOperation{Op: e.Op, Left: l, Right: r, TypeStr: e.TypeStr}
		}
	case *UnaryOperation:
		if x := m(e.Expr); x != e.Expr {
			return &UnaryOperation{Op: e.Op, Expr: x, TypeStr: e.TypeStr}
		}
	case *Assignment:
		l, r := m(e.Left), m(e.Right)
		if l != e.Left || r != e.Right {
			return &Assignment{Op: e.Op, Left: l, Right: r, TypeStr: e.TypeStr}
		}
	case *Call:
		called := m(e.Called)
		args, changed := mapAll(e.Args)
		if changed || called != e.Called {
			return &Call{Called: called, Args: args, TypeCall: e.TypeCall}
		}
	case *TypeConversion:
		if x := m(e.Expr); x != e.Expr {
			return &TypeConversion{Expr: x, Type: e.Type}
		}
	case *Tuple:
		if elems, changed := mapAll(e.Elems); changed {
			return &Tuple{Elems: elems, IsInlineList: e.IsInlineList, TypeStr: e.TypeStr}
		}
	case *Conditional:
		c, t, f := m(e.Cond), m(e.Then), m(e.Else)
		if c != e.Cond || t != e.Then || f != e.Else {
			return &Conditional{Cond: c, Then: t, Else: f}
		}
	case *IndexAccess:
		b, i := m(e.Base), m(e.Index)
		if b != e.Base || i != e.Index {
			return &IndexAccess{Base: b, Index: i, TypeStr: e.TypeStr}
		}
	case *MemberAccess:
		if x := m(e.Expr); x != e.Expr {
			return &MemberAccess{Expr: x, Member: e.Member, TypeStr: e.TypeStr}
		}
	}
	return e
}

// FirstConditional returns the outermost, leftmost conditional in e.
func FirstConditional(e Expression) *Conditional {
	var found *Conditional
	WalkExpression(e, func(x Expression) bool {
		if found != nil {
			return false
		}
		if c, ok := x.(*Conditional); ok {
			found = c
			return false
		}
		return true
	})
	return found
}
