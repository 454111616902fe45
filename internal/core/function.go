package core

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
	"solcheck/internal/ast"
	"solcheck/internal/types"
)

// FunctionKind distinguishes ordinary functions from the special forms.
type FunctionKind int

const (
	KindFunction FunctionKind = iota
	KindConstructor
	KindFallback
	KindReceive
	KindModifier
	// KindConstructorVariables holds the lowered initial values of state
	// variables. It has no source counterpart.
	KindConstructorVariables
)

func (k FunctionKind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindFallback:
		return "fallback"
	case KindReceive:
		return "receive"
	case KindModifier:
		return "modifier"
	case KindConstructorVariables:
		return "constructorVariables"
	}
	return "function"
}

// ModifierCall is a modifier invocation or base constructor call on a function.
// Target is a *Function for modifiers and a *Contract for base constructors.
type ModifierCall struct {
	Name   string
	Target Value
	Args   []Expression
	Src    ast.Source
}

// Function is a function or modifier. Nodes is an arena indexed by node id.
// Contract names the declaring contract.
type Function struct {
	ID            int
	Name          string
	Contract      string
	Kind          FunctionKind
	Visibility    string
	Mutability    string
	IsImplemented bool
	IsVirtual     bool

	Params    []*LocalVariable
	Returns   []*LocalVariable
	Modifiers []*ModifierCall
	Locals    []*LocalVariable
	Nodes     []*Node

	Src  ast.Source
	Decl *ast.Node
}

func (f *Function) String() string { return f.Name }

func (f *Function) DeclName() string { return f.Name }

// CanonicalName returns "Contract.signature".
func (f *Function) CanonicalName() string { return f.Contract + "." + f.Signature() }

func (f *Function) IsModifier() bool { return f.Kind == KindModifier }

func (f *Function) IsConstructor() bool { return f.Kind == KindConstructor }

// Entry returns the entry node, or nil for functions without a body.
func (f *Function) Entry() *Node {
	if len(f.Nodes) == 0 {
		return nil
	}
	return f.Nodes[0]
}

// Node returns the node with the given id, or nil.
func (f *Function) Node(id int) *Node {
	if id < 0 || id >= len(f.Nodes) {
		return nil
	}
	return f.Nodes[id]
}

// NewNode appends a node to the arena.
func (f *Function) NewNode(typ NodeType, src ast.Source) *Node {
	n := newNode(len(f.Nodes), typ, f.ID, src)
	f.Nodes = append(f.Nodes, n)
	return n
}

// RemoveNode detaches a node from all its neighbours and leaves a hole in
// the arena. Call Compact once all removals are done.
func (f *Function) RemoveNode(n *Node) {
	for _, id := range n.Fathers() {
		Unlink(f.Nodes[id], n)
	}
	for _, id := range n.Sons() {
		Unlink(n, f.Nodes[id])
	}
	f.Nodes[n.ID] = nil
}

// Compact drops removed nodes and renumbers the rest densely, preserving
// their relative order and edges.
func (f *Function) Compact() {
	remap := make(map[int]int, len(f.Nodes))
	kept := f.Nodes[:0:0]
	for _, n := range f.Nodes {
		if n != nil {
			remap[n.ID] = len(kept)
			kept = append(kept, n)
		}
	}
	if len(kept) == len(f.Nodes) {
		return
	}

	type edges struct{ sons []int }
	old := make([]edges, len(kept))
	for i, n := range kept {
		old[i].sons = n.Sons()
	}
	for i, n := range kept {
		n.ID = i
		n.sons.Clear()
		n.fathers.Clear()
		n.SonTrue = remapID(remap, n.SonTrue)
		n.SonFalse = remapID(remap, n.SonFalse)
	}
	for i, n := range kept {
		for _, s := range old[i].sons {
			Link(n, kept[remap[s]])
		}
	}
	f.Nodes = kept
}

func remapID(remap map[int]int, id int) int {
	if id < 0 {
		return id
	}
	if to, ok := remap[id]; ok {
		return to
	}
	return -1
}

// LocalByName returns the first local variable with the given name.
func (f *Function) LocalByName(name string) *LocalVariable {
	for _, v := range f.Locals {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Signature returns "name(t1,t2)" using ABI type names.
func (f *Function) Signature() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = types.SignatureName(p.Type)
	}
	return f.Name + "(" + strings.Join(params, ",") + ")"
}

// Selector returns the first four bytes of keccak256(signature).
func (f *Function) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], keccak256([]byte(f.Signature())))
	return sel
}

// SelectorHex returns the selector as 0x-prefixed hex.
func (f *Function) SelectorHex() string {
	sel := f.Selector()
	return "0x" + hex.EncodeToString(sel[:])
}

// SignatureType implements types.SignatureTyper for function-typed values.
func (f *Function) SignatureType() string { return "function" }

// ReturnTypes lists the declared return types.
func (f *Function) ReturnTypes() []types.Type {
	out := make([]types.Type, len(f.Returns))
	for i, r := range f.Returns {
		out[i] = r.Type
	}
	return out
}

// CheckCFG verifies the structural properties every built CFG has: a single
// entry without fathers, symmetric edges, and branch targets that are sons.
func (f *Function) CheckCFG() error {
	if len(f.Nodes) == 0 {
		return nil
	}
	for i, n := range f.Nodes {
		if n == nil {
			return fmt.Errorf("%s: hole at node %d", f.Name, i)
		}
		if n.ID != i {
			return fmt.Errorf("%s: node at index %d has id %d", f.Name, i, n.ID)
		}
		if i > 0 && n.Type == NodeEntryPoint {
			return fmt.Errorf("%s: second entry point %d", f.Name, i)
		}
		for _, s := range n.Sons() {
			if s >= len(f.Nodes) || !f.Nodes[s].HasFather(i) {
				return fmt.Errorf("%s: edge %d->%d is not mirrored", f.Name, i, s)
			}
		}
		for _, p := range n.Fathers() {
			if p >= len(f.Nodes) || !f.Nodes[p].HasSon(i) {
				return fmt.Errorf("%s: edge %d->%d is not mirrored", f.Name, p, i)
			}
		}
		for _, s := range []int{n.SonTrue, n.SonFalse} {
			if s >= 0 && !n.HasSon(s) {
				return fmt.Errorf("%s: branch target %d of node %d is not a son", f.Name, s, i)
			}
		}
	}
	if f.Nodes[0].Type != NodeEntryPoint || f.Nodes[0].NumFathers() != 0 {
		return fmt.Errorf("%s: node 0 is not a fatherless entry point", f.Name)
	}
	return nil
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}
