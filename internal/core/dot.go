package core

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// DOT renders the function's CFG in Graphviz format. Node labels carry the
// node type, its expression and, when present, the lowered IR.
func (f *Function) DOT() string {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "  node [shape=box, fontname=\"monospace\"];")
	fmt.Fprintf(w, "  labelloc=\"t\";\n  label=\"%s\";\n", escapeDOT(f.Contract+"."+f.Signature()))

	for _, n := range f.Nodes {
		label := fmt.Sprintf("Node %d\n%s", n.ID, n.String())
		for _, op := range n.IR {
			label += "\n" + op.String()
		}
		fmt.Fprintf(w, "  %d [label=\"%s\"];\n", n.ID, escapeDOT(label))
	}
	for _, n := range f.Nodes {
		for _, s := range n.Sons() {
			switch s {
			case n.SonTrue:
				fmt.Fprintf(w, "  %d -> %d [label=\"True\"];\n", n.ID, s)
			case n.SonFalse:
				fmt.Fprintf(w, "  %d -> %d [label=\"False\"];\n", n.ID, s)
			default:
				fmt.Fprintf(w, "  %d -> %d;\n", n.ID, s)
			}
		}
	}
	fmt.Fprintln(w, "}")
	w.Flush()
	return buf.String()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
