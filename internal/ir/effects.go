package ir

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"solcheck/internal/core"
)

// Summary lists what the lowered code of one function touches. Variables
// are keyed by canonical name for state and by plain name for locals;
// writes through references are attributed to the variable they point into.
type Summary struct {
	Function string

	StateRead    mapset.Set[string]
	StateWritten mapset.Set[string]
	LocalRead    mapset.Set[string]
	LocalWritten mapset.Set[string]

	InternalCalls  mapset.Set[string]
	HighLevelCalls mapset.Set[string]
	LibraryCalls   mapset.Set[string]
	LowLevelCalls  mapset.Set[string]
	SolidityCalls  mapset.Set[string]

	SendsEther bool
}

func newSummary(fn *core.Function) *Summary {
	return &Summary{
		Function:       fn.CanonicalName(),
		StateRead:      mapset.NewSet[string](),
		StateWritten:   mapset.NewSet[string](),
		LocalRead:      mapset.NewSet[string](),
		LocalWritten:   mapset.NewSet[string](),
		InternalCalls:  mapset.NewSet[string](),
		HighLevelCalls: mapset.NewSet[string](),
		LibraryCalls:   mapset.NewSet[string](),
		LowLevelCalls:  mapset.NewSet[string](),
		SolidityCalls:  mapset.NewSet[string](),
	}
}

// Summarize collects the effects of every node of fn.
func Summarize(fn *core.Function) *Summary {
	s := newSummary(fn)
	for _, n := range fn.Nodes {
		s.addNode(n)
	}
	return s
}

func (s *Summary) addNode(n *core.Node) {
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

	for _, op := range n.IR {
		switch x := op.(type) {
		case *Index:
			origins[x.LValue] = x.Base
		case *Member:
			origins[x.LValue] = x.Base
		case *Length:
			origins[x.LValue] = x.Base
		}

		for _, v := range op.Read() {
			s.read(origin(v))
		}
		if !isDefinition(op) {
			if lv := op.Lvalue(); lv != nil {
				s.write(origin(lv))
			}
		}
		if p, ok := op.(*Push); ok {
			s.write(origin(p.Array))
		}
		if d, ok := op.(*Delete); ok {
			s.write(origin(d.LValue))
		}
		s.addCall(op)
	}
}

func (s *Summary) read(v core.Value) {
	switch x := v.(type) {
	case *core.StateVariable:
		s.StateRead.Add(x.CanonicalName())
	case *core.LocalVariable:
		s.LocalRead.Add(x.Name)
	}
}

func (s *Summary) write(v core.Value) {
	switch x := v.(type) {
	case *core.StateVariable:
		s.StateWritten.Add(x.CanonicalName())
	case *core.LocalVariable:
		s.LocalWritten.Add(x.Name)
	}
}

func (s *Summary) addCall(op core.Operation) {
	switch x := op.(type) {
	case *InternalCall:
		s.InternalCalls.Add(x.Function.CanonicalName())
	case *HighLevelCall:
		s.HighLevelCalls.Add(x.Destination.String() + "." + x.Function)
		s.SendsEther = s.SendsEther || x.CallValue != nil
	case *LibraryCall:
		s.LibraryCalls.Add(x.Destination.Name + "." + x.Function)
	case *LowLevelCall:
		s.LowLevelCalls.Add(x.Destination.String() + "." + x.Function)
		s.SendsEther = s.SendsEther || x.CallValue != nil
	case *SolidityCall:
		s.SolidityCalls.Add(x.Function.Signature)
	case *Transfer, *Send:
		s.SendsEther = true
	}
}

// Sorted returns the members of set in ascending order.
func Sorted(set mapset.Set[string]) []string {
	out := set.ToSlice()
	sort.Strings(out)
	return out
}
