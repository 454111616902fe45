package core

import (
	"fmt"
	"strings"

	"golang.org/x/tools/container/intsets"
	"solcheck/internal/ast"
)

// NodeType classifies a CFG node.
type NodeType int

const (
	NodeEntryPoint NodeType = iota
	NodeExpression
	NodeReturn
	NodeIf
	NodeVariable
	NodeAssembly
	NodeIfLoop
	NodeEndIf
	NodeStartLoop
	NodeEndLoop
	NodeThrow
	NodeBreak
	NodeContinue
	NodePlaceholder
)

var nodeTypeNames = [...]string{
	NodeEntryPoint:  "ENTRY_POINT",
	NodeExpression:  "EXPRESSION",
	NodeReturn:      "RETURN",
	NodeIf:          "IF",
	NodeVariable:    "NEW VARIABLE",
	NodeAssembly:    "INLINE ASM",
	NodeIfLoop:      "IF_LOOP",
	NodeEndIf:       "END_IF",
	NodeStartLoop:   "BEGIN_LOOP",
	NodeEndLoop:     "END_LOOP",
	NodeThrow:       "THROW",
	NodeBreak:       "BREAK",
	NodeContinue:    "CONTINUE",
	NodePlaceholder: "_",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// IsConditional reports whether nodes of this type branch on a condition.
func (t NodeType) IsConditional() bool { return t == NodeIf || t == NodeIfLoop }

// IsSynthetic reports whether nodes of this type have no source statement.
func (t NodeType) IsSynthetic() bool {
	switch t {
	case NodeEntryPoint, NodeEndIf, NodeStartLoop, NodeEndLoop:
		return true
	}
	return false
}

// Operation is a lowered IR instruction. The concrete operations live in
// the ir package; nodes only need the read and write sets.
type Operation interface {
	String() string
	Lvalue() Value
	Read() []Value
}

// Node is a CFG vertex. Edges are stored as sets of node ids local to the
// owning function, so a node never holds pointers to its neighbours.
type Node struct {
	ID         int
	Type       NodeType
	FunctionID int
	Src        ast.Source
	Expression Expression
	Variable   *LocalVariable
	IR         []Operation

	// SonTrue and SonFalse are set on IF and IF_LOOP nodes, -1 otherwise.
	SonTrue  int
	SonFalse int

	fathers intsets.Sparse
	sons    intsets.Sparse
}

func newNode(id int, typ NodeType, functionID int, src ast.Source) *Node {
	return &Node{ID: id, Type: typ, FunctionID: functionID, Src: src, SonTrue: -1, SonFalse: -1}
}

// Sons returns successor ids in ascending order.
func (n *Node) Sons() []int { return n.sons.AppendTo(nil) }

// Fathers returns predecessor ids in ascending order.
func (n *Node) Fathers() []int { return n.fathers.AppendTo(nil) }

func (n *Node) HasSon(id int) bool    { return n.sons.Has(id) }
func (n *Node) HasFather(id int) bool { return n.fathers.Has(id) }
func (n *Node) NumSons() int          { return n.sons.Len() }
func (n *Node) NumFathers() int       { return n.fathers.Len() }

func (n *Node) String() string {
	var b strings.Builder
	b.WriteString(n.Type.String())
	if n.Expression != nil {
		b.WriteString(" ")
		b.WriteString(n.Expression.String())
	} else if n.Variable != nil {
		b.WriteString(" ")
		b.WriteString(n.Variable.Name)
	}
	return b.String()
}

// Link adds the edge from -> to on both endpoints.
func Link(from, to *Node) {
	from.sons.Insert(to.ID)
	to.fathers.Insert(from.ID)
}

// Unlink removes the edge from -> to on both endpoints.
func Unlink(from, to *Node) {
	from.sons.Remove(to.ID)
	to.fathers.Remove(from.ID)
	if from.SonTrue == to.ID {
		from.SonTrue = -1
	}
	if from.SonFalse == to.ID {
		from.SonFalse = -1
	}
}

// LinkBranch records a conditional edge and its polarity.
func LinkBranch(from, to *Node, branch bool) {
	Link(from, to)
	if branch {
		from.SonTrue = to.ID
	} else {
		from.SonFalse = to.ID
	}
}

// ReadVariables collects the values read by the node's IR.
func (n *Node) ReadVariables() []Value {
	var out []Value
	for _, op := range n.IR {
		out = append(out, op.Read()...)
	}
	return out
}

// WrittenVariables collects the lvalues written by the node's IR.
func (n *Node) WrittenVariables() []Value {
	var out []Value
	for _, op := range n.IR {
		if lv := op.Lvalue(); lv != nil {
			out = append(out, lv)
		}
	}
	return out
}
