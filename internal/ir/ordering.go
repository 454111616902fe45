package ir

import (
	"fmt"

	"solcheck/internal/core"
	"solcheck/internal/errors"
)

// CheckMemberOrdering verifies that every Member or Length operation whose
// base is the result of a call comes right after that call. Consumers read
// the operation before a member access to find what produced its base.
func CheckMemberOrdering(fn *core.Function) error {
	for _, n := range fn.Nodes {
		if desc := checkNodeOrdering(n.IR); desc != "" {
			err := errors.MemberOrderingViolation(fmt.Sprintf("node %d: %s", n.ID, desc))
			err.Src = n.Src
			err.Contract = fn.Contract
			err.Function = fn.Name
			return err
		}
	}
	return nil
}

func checkNodeOrdering(ops []core.Operation) string {
	callAt := make(map[core.Value]int)
	for i, op := range ops {
		var base core.Value
		switch x := op.(type) {
		case *Member:
			base = x.Base
		case *Length:
			base = x.Base
		}
		if base != nil {
			if at, ok := callAt[base]; ok && at != i-1 {
				return fmt.Sprintf("%q at %d reads the result of %q at %d", op, i, ops[at], at)
			}
		}
		if isCall(op) {
			if lv := op.Lvalue(); lv != nil {
				callAt[lv] = i
			}
		}
	}
	return ""
}

func isCall(op core.Operation) bool {
	switch op.(type) {
	case *InternalCall, *InternalDynamicCall, *LibraryCall, *HighLevelCall, *LowLevelCall,
		*SolidityCall, *Send, *TmpCall, *NewContract, *NewStructure, *NewArray, *NewElementaryType:
		return true
	}
	return false
}
