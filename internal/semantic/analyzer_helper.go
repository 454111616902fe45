package semantic

import (
	"strings"

	"solcheck/internal/ast"
	"solcheck/internal/core"
)

// contractKind reads contractKind, falling back to the isLibrary flag of
// older compilers.
func contractKind(n *ast.Node) core.ContractKind {
	switch n.StringAttr("contractKind") {
	case "library":
		return core.KindLibrary
	case "interface":
		return core.KindInterface
	case "contract":
		return core.KindContract
	}
	if n.BoolAttr("isLibrary") {
		return core.KindLibrary
	}
	return core.KindContract
}

// functionKind classifies a FunctionDefinition. Compilers before 0.4.22
// mark constructors only by the function carrying the contract's name.
func functionKind(n *ast.Node, contract string) core.FunctionKind {
	switch n.StringAttr("kind") {
	case "constructor":
		return core.KindConstructor
	case "fallback":
		return core.KindFallback
	case "receive":
		return core.KindReceive
	}
	name := n.StringAttr("name")
	switch {
	case n.BoolAttr("isConstructor") || name == contract:
		return core.KindConstructor
	case name == "":
		return core.KindFallback
	}
	return core.KindFunction
}

func mutability(n *ast.Node) string {
	if m := n.StringAttr("stateMutability"); m != "" {
		return m
	}
	switch {
	case n.BoolAttr("payable"):
		return "payable"
	case n.BoolAttr("constant"):
		return "view"
	}
	return "nonpayable"
}

func visibility(n *ast.Node, fallback string) string {
	if v := n.StringAttr("visibility"); v != "" {
		return v
	}
	return fallback
}

// isImplemented prefers the attribute and otherwise looks for a body.
func isImplemented(n *ast.Node) bool {
	if v, ok := n.Attr("implemented"); ok {
		if b, isBool := v.(bool); isBool {
			return b
		}
	}
	return len(n.ChildrenOf(ast.Block)) > 0
}

func bodyOf(n *ast.Node) *ast.Node {
	if blocks := n.ChildrenOf(ast.Block); len(blocks) > 0 {
		return blocks[len(blocks)-1]
	}
	return nil
}

// pragmaText renders ["solidity", "^", "0.4", ".24"] as "solidity ^0.4.24".
func pragmaText(n *ast.Node) string {
	lits := n.StringListAttr("literals")
	if len(lits) == 0 {
		return ""
	}
	return strings.TrimSpace(lits[0] + " " + strings.Join(lits[1:], ""))
}

func importPath(n *ast.Node) string {
	if f := n.StringAttr("file"); f != "" {
		return f
	}
	return n.StringAttr("absolutePath")
}

// initializerOf returns the initial-value expression of a variable
// declaration, i.e. its first child that is not a type name.
func initializerOf(decl *ast.Node) *ast.Node {
	for _, c := range decl.Children {
		if c != nil && !ast.IsTypeName(c.Name) {
			return c
		}
	}
	return nil
}
