package ir

import (
	"fmt"
	"strings"

	"solcheck/internal/core"
)

// Printer renders lowered functions as text, one node per block.
type Printer struct {
	indent int
	output strings.Builder
}

func NewPrinter() *Printer {
	return &Printer{}
}

// FormatNode returns the operations of n, one per line.
func FormatNode(n *core.Node) string {
	p := NewPrinter()
	p.printNode(n)
	return p.output.String()
}

// FormatFunction returns every node of fn with its edges and operations.
func FormatFunction(fn *core.Function) string {
	p := NewPrinter()
	p.printFunction(fn)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printFunction(fn *core.Function) {
	name := fn.Name
	if name == "" {
		name = fn.Kind.String()
	}
	p.writeLine("FUNCTION %s.%s", fn.Contract, name)
	if !fn.IsImplemented {
		p.indent++
		p.writeLine("(not implemented)")
		p.indent--
		return
	}

	p.indent++
	for _, n := range fn.Nodes {
		p.writeLine("Node %d: %s%s", n.ID, n, edges(n))
		p.indent++
		p.printNode(n)
		p.indent--
	}
	p.indent--
}

func (p *Printer) printNode(n *core.Node) {
	for _, op := range n.IR {
		p.writeLine("%s", op)
	}
}

func edges(n *core.Node) string {
	sons := n.Sons()
	if len(sons) == 0 {
		return ""
	}
	if n.Type.IsConditional() {
		return fmt.Sprintf(" -> true:%d false:%d", n.SonTrue, n.SonFalse)
	}
	parts := make([]string, len(sons))
	for i, s := range sons {
		parts[i] = fmt.Sprint(s)
	}
	return " -> " + strings.Join(parts, ",")
}
