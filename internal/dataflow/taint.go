package dataflow

import (
	"fmt"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"solcheck/internal/core"
	"solcheck/internal/ir"
)

// Builtins that carry caller-controlled data.
var userControlled = mapset.NewSet("msg.sender", "msg.value", "msg.data", "msg.sig", "tx.origin")

// TaintConfig selects where taint originates.
type TaintConfig struct {
	// Seeds are variables tainted on entry, keyed like Env.
	Seeds []string
	// Builtins taints every read of msg.sender, msg.value, msg.data,
	// msg.sig and tx.origin.
	Builtins bool
}

// ParameterSeeds returns the names of the parameters of fn.
func ParameterSeeds(fn *core.Function) []string {
	out := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		out[i] = p.Name
	}
	return out
}

// Taint tracks the variables whose value depends on a seed. Writes of an
// untainted value to a plain variable clear its taint; writes through a
// reference only ever add taint to the variable referenced. The sets are
// not safe for concurrent use.
type Taint struct {
	cfg TaintConfig
	in  map[int]mapset.Set[string]
	out map[int]mapset.Set[string]
}

func NewTaint(cfg TaintConfig) *Taint {
	return &Taint{
		cfg: cfg,
		in:  make(map[int]mapset.Set[string]),
		out: make(map[int]mapset.Set[string]),
	}
}

// Tainted returns the variables tainted when leaving n, or nil if n was
// never reached.
func (p *Taint) Tainted(n *core.Node) mapset.Set[string] { return p.out[n.ID] }

// IsTainted reports whether name is tainted when leaving n.
func (p *Taint) IsTainted(n *core.Node, name string) bool {
	s := p.out[n.ID]
	return s != nil && s.Contains(name)
}

func (p *Taint) MergeFathers(n *core.Node, fathers []*core.Node) mapset.Set[string] {
	merged := mapset.NewThreadUnsafeSet[string]()
	if len(fathers) == 0 && n.NumFathers() == 0 {
		for _, seed := range p.cfg.Seeds {
			merged.Add(seed)
		}
	}
	for _, f := range fathers {
		if s := p.out[f.ID]; s != nil {
			merged = merged.Union(s)
		}
	}
	return merged
}

func (p *Taint) IsFixpoint(n *core.Node, in mapset.Set[string]) bool {
	stored, ok := p.in[n.ID]
	return ok && in.IsSubset(stored)
}

func (p *Taint) Store(n *core.Node, in mapset.Set[string]) {
	stored, ok := p.in[n.ID]
	if !ok {
		p.in[n.ID] = in.Clone()
		return
	}
	p.in[n.ID] = stored.Union(in)
}

func (p *Taint) Transfer(n *core.Node, _ mapset.Set[string]) mapset.Set[string] {
	set := p.in[n.ID].Clone()
	local := make(map[core.Value]bool)
	origins := make(map[core.Value]core.Value)
	origin := func(v core.Value) core.Value {
		for {
			o, ok := origins[v]
			if !ok {
				return v
			}
			v = o
		}
	}

	tainted := func(v core.Value) bool {
		switch x := v.(type) {
		case *core.StateVariable:
			return set.Contains(x.CanonicalName())
		case *core.LocalVariable:
			return set.Contains(x.Name)
		case core.SolidityVariable:
			return p.cfg.Builtins && userControlled.Contains(x.Name)
		}
		return local[v]
	}
	mark := func(v core.Value, t bool, strong bool) {
		key, ok := variableKey(v)
		if !ok {
			local[v] = local[v] || t
			return
		}
		switch {
		case t:
			set.Add(key)
		case strong:
			set.Remove(key)
		}
	}

	for _, op := range n.IR {
		switch x := op.(type) {
		case *ir.Index:
			origins[x.LValue] = x.Base
		case *ir.Member:
			origins[x.LValue] = x.Base
		case *ir.Length:
			origins[x.LValue] = x.Base
		}

		t := false
		for _, v := range op.Read() {
			if tainted(v) {
				t = true
				break
			}
		}

		switch x := op.(type) {
		case *ir.Index, *ir.Member, *ir.Length:
			// A reference is as tainted as what it points into or the
			// index used to reach it.
			mark(op.Lvalue(), t, false)
		case *ir.Push:
			mark(origin(x.Array), tainted(x.Value), false)
		case *ir.Delete:
			mark(x.LValue, false, true)
		default:
			lv := op.Lvalue()
			if lv == nil {
				continue
			}
			if _, ok := lv.(*ir.Reference); ok {
				t = t || local[lv]
				local[lv] = t
				mark(origin(lv), t, false)
				continue
			}
			mark(lv, t, true)
		}
	}
	p.out[n.ID] = set
	return set
}

func (p *Taint) FilterSons(n *core.Node, _ mapset.Set[string]) []int {
	return n.Sons()
}

func variableKey(v core.Value) (string, bool) {
	switch x := v.(type) {
	case *core.StateVariable:
		return x.CanonicalName(), true
	case *core.LocalVariable:
		return x.Name, true
	}
	return "", false
}

// DependsOn reports whether v may carry data from source anywhere in fn.
// Both are keyed like Env: canonical names for state variables, plain names
// for locals. A variable always depends on itself.
func DependsOn(fn *core.Function, v, source string) (bool, error) {
	if v == source {
		return true, nil
	}
	p := NewTaint(TaintConfig{Seeds: []string{source}})
	if err := NewEngine[mapset.Set[string]](fn, p).Run(); err != nil {
		return false, err
	}
	for _, n := range fn.Nodes {
		if p.IsTainted(n, v) {
			return true, nil
		}
	}
	return false, nil
}

// DescribeTaint renders the tainted set leaving each reached node.
func DescribeTaint(fn *core.Function, p *Taint) []string {
	var out []string
	for _, n := range fn.Nodes {
		s := p.Tainted(n)
		if s == nil {
			out = append(out, fmt.Sprintf("%d %s: unreachable", n.ID, n.Type))
			continue
		}
		names := s.ToSlice()
		sort.Strings(names)
		out = append(out, fmt.Sprintf("%d %s: {%s}", n.ID, n.Type, strings.Join(names, ", ")))
	}
	return out
}
