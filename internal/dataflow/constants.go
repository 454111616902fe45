package dataflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/holiman/uint256"
	"solcheck/internal/core"
	"solcheck/internal/ir"
	"solcheck/internal/types"
)

// Value is a 256-bit constant or Top, the value of a variable that differs
// between paths or is not known statically. Booleans are 0 and 1.
type Value struct {
	n *uint256.Int
}

// Top is the unknown value.
var Top = Value{}

// Const returns the constant v.
func Const(v uint64) Value { return Value{n: uint256.NewInt(v)} }

func (v Value) IsTop() bool { return v.n == nil }

// Int returns the constant, or nil for Top.
func (v Value) Int() *uint256.Int { return v.n }

func (v Value) Equal(o Value) bool {
	if v.IsTop() || o.IsTop() {
		return v.IsTop() && o.IsTop()
	}
	return v.n.Eq(o.n)
}

func (v Value) String() string {
	if v.IsTop() {
		return "top"
	}
	return v.n.ToBig().String()
}

func (v Value) join(o Value) Value {
	if v.Equal(o) {
		return v
	}
	return Top
}

// Env maps variables to values. State variables are keyed by canonical
// name, locals by name. A missing key is unknown, the same as Top: nothing
// is assumed about parameters, state or variables not set on every path.
type Env map[string]Value

func (e Env) clone() Env {
	out := make(Env, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// joinWith merges o into e and reports whether e changed. Only variables
// known on both sides survive.
func (e Env) joinWith(o Env) bool {
	changed := false
	for k, old := range e {
		v, ok := o[k]
		if !ok {
			delete(e, k)
			changed = true
			continue
		}
		if j := old.join(v); !j.Equal(old) {
			e[k] = j
			changed = true
		}
	}
	return changed
}

// covers reports whether o adds nothing to e, i.e. every constant of e
// still holds in o.
func (e Env) covers(o Env) bool {
	for k, old := range e {
		if old.IsTop() {
			continue
		}
		if v, ok := o[k]; !ok || !v.Equal(old) {
			return false
		}
	}
	return true
}

// isStateKey reports whether k names a state variable. Canonical names are
// Contract.name; local names never contain a dot.
func isStateKey(k string) bool { return strings.Contains(k, ".") }

// Lookup returns the value of a variable; unknown variables are Top.
func (e Env) Lookup(name string) Value {
	if v, ok := e[name]; ok {
		return v
	}
	return Top
}

func (e Env) String() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + e[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ConstantPropagation tracks which variables hold a known constant. Branches
// whose condition is a known constant are pruned.
type ConstantPropagation struct {
	in   map[int]Env
	out  map[int]Env
	cond map[int]Value
}

func NewConstantPropagation() *ConstantPropagation {
	return &ConstantPropagation{
		in:   make(map[int]Env),
		out:  make(map[int]Env),
		cond: make(map[int]Value),
	}
}

// In returns the facts entering n, or nil if n was never reached.
func (p *ConstantPropagation) In(n *core.Node) Env { return p.in[n.ID] }

// Out returns the facts leaving n, or nil if n was never reached.
func (p *ConstantPropagation) Out(n *core.Node) Env { return p.out[n.ID] }

// Condition returns the branch value of an IF or IF_LOOP node.
func (p *ConstantPropagation) Condition(n *core.Node) (Value, bool) {
	v, ok := p.cond[n.ID]
	return v, ok
}

func (p *ConstantPropagation) MergeFathers(n *core.Node, fathers []*core.Node) Env {
	var merged Env
	for _, f := range fathers {
		if merged == nil {
			merged = p.out[f.ID].clone()
			continue
		}
		merged.joinWith(p.out[f.ID])
	}
	if merged == nil {
		merged = make(Env)
	}
	return merged
}

func (p *ConstantPropagation) IsFixpoint(n *core.Node, in Env) bool {
	stored, ok := p.in[n.ID]
	return ok && stored.covers(in)
}

func (p *ConstantPropagation) Store(n *core.Node, in Env) {
	stored, ok := p.in[n.ID]
	if !ok {
		p.in[n.ID] = in.clone()
		return
	}
	stored.joinWith(in)
}

// Transfer evaluates the IR of n over everything stored for it so far.
// Temporaries and references live only inside the node.
func (p *ConstantPropagation) Transfer(n *core.Node, _ Env) Env {
	env := p.in[n.ID].clone()
	ev := &evaluator{env: env, temps: make(map[core.Value]Value)}

	if n.Type == core.NodeVariable && n.Expression == nil && n.Variable != nil {
		if isInteger(n.Variable.Type) {
			env[n.Variable.Name] = Const(0)
		}
	}
	for _, op := range n.IR {
		ev.apply(op)
	}
	if n.Type.IsConditional() {
		p.cond[n.ID] = ev.condition
	}
	p.out[n.ID] = env
	return env
}

func (p *ConstantPropagation) FilterSons(n *core.Node, _ Env) []int {
	if !n.Type.IsConditional() || n.SonTrue < 0 || n.SonFalse < 0 {
		return n.Sons()
	}
	c, ok := p.cond[n.ID]
	if !ok || c.IsTop() {
		return n.Sons()
	}
	if c.Int().IsZero() {
		return []int{n.SonFalse}
	}
	return []int{n.SonTrue}
}

// evaluator interprets the operations of one node.
type evaluator struct {
	env       Env
	temps     map[core.Value]Value
	condition Value
}

func (ev *evaluator) read(v core.Value) Value {
	switch x := v.(type) {
	case *ir.Constant:
		return parseConstant(x.Value)
	case *core.StateVariable:
		return ev.env.Lookup(x.CanonicalName())
	case *core.LocalVariable:
		return ev.env.Lookup(x.Name)
	case *ir.Temporary, *ir.Reference:
		if c, ok := ev.temps[x]; ok {
			return c
		}
	}
	return Top
}

func (ev *evaluator) write(v core.Value, val Value) {
	switch x := v.(type) {
	case *core.StateVariable:
		ev.env[x.CanonicalName()] = val
	case *core.LocalVariable:
		ev.env[x.Name] = val
	case *ir.Temporary, *ir.Reference:
		ev.temps[x] = val
	}
}

func (ev *evaluator) apply(op core.Operation) {
	switch x := op.(type) {
	case *ir.Assignment:
		ev.write(x.LValue, ev.read(x.RValue))
	case *ir.Binary:
		ev.write(x.LValue, binary(x.Op, ev.read(x.Left), ev.read(x.Right)))
	case *ir.Unary:
		ev.write(x.LValue, unary(x.Op, ev.read(x.RValue)))
	case *ir.TypeConversion:
		ev.write(x.LValue, convert(ev.read(x.Value), x.Type))
	case *ir.Delete:
		if _, ok := x.LValue.(*ir.Reference); !ok {
			ev.write(x.LValue, Const(0))
		}
	case *ir.Condition:
		ev.condition = ev.read(x.Value)
	case *ir.Index, *ir.Member, *ir.Length:
		// References are bound, not evaluated.
	default:
		if lv := op.Lvalue(); lv != nil {
			ev.write(lv, Top)
		}
	}
	if p, ok := op.(*ir.Push); ok {
		ev.write(p.Array, Top)
	}
	if mayWriteState(op) {
		for k := range ev.env {
			if isStateKey(k) {
				delete(ev.env, k)
			}
		}
	}
}

// mayWriteState reports whether op can run code that changes state
// variables behind the caller's back.
func mayWriteState(op core.Operation) bool {
	switch x := op.(type) {
	case *ir.InternalCall:
		return x.Function == nil || x.Function.Mutability != "pure" && x.Function.Mutability != "view"
	case *ir.InternalDynamicCall, *ir.LibraryCall, *ir.HighLevelCall, *ir.LowLevelCall, *ir.NewContract:
		return true
	}
	return false
}

func parseConstant(s string) Value {
	switch s {
	case "true":
		return Const(1)
	case "false":
		return Const(0)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := uint256.FromHex("0x" + strings.TrimLeft(s[2:], "0"))
		if err != nil {
			if strings.TrimLeft(s[2:], "0") == "" {
				return Const(0)
			}
			return Top
		}
		return Value{n: n}
	}
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return Top
	}
	return Value{n: n}
}

func boolValue(b bool) Value {
	if b {
		return Const(1)
	}
	return Const(0)
}

// binary evaluates unsigned 256-bit arithmetic. Division by zero reverts at
// run time, so it yields Top.
func binary(op core.BinaryOp, l, r Value) Value {
	if l.IsTop() || r.IsTop() {
		return Top
	}
	a, b := l.Int(), r.Int()
	z := new(uint256.Int)
	switch op {
	case core.OpAdd:
		z.Add(a, b)
	case core.OpSub:
		z.Sub(a, b)
	case core.OpMul:
		z.Mul(a, b)
	case core.OpDiv:
		if b.IsZero() {
			return Top
		}
		z.Div(a, b)
	case core.OpMod:
		if b.IsZero() {
			return Top
		}
		z.Mod(a, b)
	case core.OpPower:
		z.Exp(a, b)
	case core.OpAnd:
		z.And(a, b)
	case core.OpOr:
		z.Or(a, b)
	case core.OpXor:
		z.Xor(a, b)
	case core.OpShl, core.OpShr:
		if !b.IsUint64() || b.Uint64() > 255 {
			return Const(0)
		}
		if op == core.OpShl {
			z.Lsh(a, uint(b.Uint64()))
		} else {
			z.Rsh(a, uint(b.Uint64()))
		}
	case core.OpLess:
		return boolValue(a.Lt(b))
	case core.OpGreater:
		return boolValue(a.Gt(b))
	case core.OpLessEq:
		return boolValue(!a.Gt(b))
	case core.OpGreaterEq:
		return boolValue(!a.Lt(b))
	case core.OpEqual:
		return boolValue(a.Eq(b))
	case core.OpNotEqual:
		return boolValue(!a.Eq(b))
	case core.OpLogicalAnd:
		return boolValue(!a.IsZero() && !b.IsZero())
	case core.OpLogicalOr:
		return boolValue(!a.IsZero() || !b.IsZero())
	default:
		return Top
	}
	return Value{n: z}
}

func unary(op core.UnaryOp, v Value) Value {
	if v.IsTop() {
		return Top
	}
	switch op {
	case core.UnaryNot:
		return boolValue(v.Int().IsZero())
	case core.UnaryBitNot:
		return Value{n: new(uint256.Int).Not(v.Int())}
	}
	return Top
}

// convert truncates to unsigned integer widths. Signed and other targets
// are Top.
func convert(v Value, t types.Type) Value {
	et, ok := t.(*types.ElementaryType)
	if v.IsTop() || !ok {
		return Top
	}
	switch {
	case et.Name == "bool":
		return boolValue(!v.Int().IsZero())
	case et.IsInteger() && !et.IsSigned():
		if et.Bits() >= 256 {
			return v
		}
		mask := new(uint256.Int).Lsh(uint256.NewInt(1), uint(et.Bits()))
		mask.SubUint64(mask, 1)
		return Value{n: new(uint256.Int).And(v.Int(), mask)}
	}
	return Top
}

func isInteger(t types.Type) bool {
	et, ok := t.(*types.ElementaryType)
	return ok && (et.Name == "bool" || et.IsInteger())
}

// DescribeConstants renders the facts leaving each reached node.
func DescribeConstants(fn *core.Function, p *ConstantPropagation) []string {
	var out []string
	for _, n := range fn.Nodes {
		env := p.Out(n)
		if env == nil {
			out = append(out, fmt.Sprintf("%d %s: unreachable", n.ID, n.Type))
			continue
		}
		out = append(out, fmt.Sprintf("%d %s: %s", n.ID, n.Type, env))
	}
	return out
}
