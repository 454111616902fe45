package core

import (
	"sort"
)

// PhaseEntry records one contract being processed by one analysis phase.
// Tick increases monotonically across the whole run.
type PhaseEntry struct {
	Contract string
	Phase    Phase
	Tick     int
}

// CompilationUnit is the analyzed form of one source unit. It is read-only
// once returned from analysis.
type CompilationUnit struct {
	Path      string
	Pragmas   []string
	Imports   []string
	Contracts []*Contract

	// Failed maps contract names to the error that stopped their analysis
	// when type errors are isolated.
	Failed map[string]error

	PhaseLog []PhaseEntry

	byName map[string]*Contract
	byID   map[int]*Contract
}

func NewCompilationUnit(path string) *CompilationUnit {
	return &CompilationUnit{
		Path:   path,
		Failed: make(map[string]error),
		byName: make(map[string]*Contract),
		byID:   make(map[int]*Contract),
	}
}

// AddContract registers c in declaration order.
func (u *CompilationUnit) AddContract(c *Contract) {
	u.Contracts = append(u.Contracts, c)
	u.byName[c.Name] = c
	u.byID[c.ID] = c
}

func (u *CompilationUnit) Contract(name string) *Contract { return u.byName[name] }

func (u *CompilationUnit) ContractByID(id int) *Contract { return u.byID[id] }

// ContractNames returns the names of all contracts, sorted.
func (u *CompilationUnit) ContractNames() []string {
	names := make([]string, 0, len(u.Contracts))
	for _, c := range u.Contracts {
		names = append(names, c.Name)
	}
	sort.Strings(names)
	return names
}

// IsFailed reports whether analysis of the named contract was abandoned.
func (u *CompilationUnit) IsFailed(name string) bool {
	_, ok := u.Failed[name]
	return ok
}

// Log appends a phase entry with the next tick.
func (u *CompilationUnit) Log(contract string, phase Phase) {
	u.PhaseLog = append(u.PhaseLog, PhaseEntry{Contract: contract, Phase: phase, Tick: len(u.PhaseLog)})
}

// TickOf returns the tick at which contract finished phase, or -1.
func (u *CompilationUnit) TickOf(contract string, phase Phase) int {
	for _, e := range u.PhaseLog {
		if e.Contract == contract && e.Phase == phase {
			return e.Tick
		}
	}
	return -1
}
