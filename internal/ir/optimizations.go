package ir

import (
	"solcheck/internal/core"
)

// Passes run on the operations of one node after call classification.

// removeUnusedMembers drops Member operations whose reference is never
// read nor written afterwards, until none is left. Members naming a call
// target become dead once the call is classified.
func removeUnusedMembers(ops []core.Operation) []core.Operation {
	for {
		used := make(map[core.Value]bool)
		for _, op := range ops {
			for _, v := range op.Read() {
				used[v] = true
			}
			if isDefinition(op) {
				continue
			}
			if lv := op.Lvalue(); lv != nil {
				used[lv] = true
			}
		}

		kept := ops[:0:0]
		for _, op := range ops {
			if m, ok := op.(*Member); ok && !used[m.LValue] {
				continue
			}
			kept = append(kept, op)
		}
		if len(kept) == len(ops) {
			return ops
		}
		ops = kept
	}
}

// isDefinition reports whether op only binds a reference, as opposed to
// writing through it.
func isDefinition(op core.Operation) bool {
	switch op.(type) {
	case *Member, *Index, *Length:
		return true
	}
	return false
}

// renumber numbers temporaries, references and tuples from 0 in order of
// definition. Each kind has its own counter.
func renumber(ops []core.Operation) {
	var temps, refs, tuples int
	seen := make(map[core.Value]bool)
	visit := func(v core.Value) {
		if v == nil || seen[v] {
			return
		}
		switch x := v.(type) {
		case *Temporary:
			x.Index = temps
			temps++
		case *Reference:
			x.Index = refs
			refs++
		case *TupleVariable:
			x.Index = tuples
			tuples++
		default:
			return
		}
		seen[v] = true
	}

	for _, op := range ops {
		visit(op.Lvalue())
	}
	for _, op := range ops {
		for _, v := range op.Read() {
			visit(v)
		}
	}
}
