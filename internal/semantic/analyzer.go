package semantic

import (
	"context"

	"solcheck/internal/ast"
	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/logging"
)

var log = logging.Get("semantic")

// Options tunes one analysis run.
type Options struct {
	// IsolateTypeErrors confines a type resolution failure to the failing
	// contract and its descendants instead of aborting the unit.
	IsolateTypeErrors bool
}

// Analyzer builds the read model of one compilation unit. It is not safe
// for concurrent use; analyze independent units with separate analyzers.
type Analyzer struct {
	opts Options
	unit *core.CompilationUnit

	// ids collects every contract-level declaration by AST id until the
	// DeclarationContext snapshot is taken.
	ids map[int]core.Value
	ctx *DeclarationContext
}

func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{opts: opts, ids: make(map[int]core.Value)}
}

// AnalyzeUnit runs every phase over the SourceUnit root. Cancellation of ctx
// is honoured between phases. On error no unit is returned.
func AnalyzeUnit(ctx context.Context, root *ast.Node, opts Options) (*core.CompilationUnit, error) {
	return NewAnalyzer(opts).Analyze(ctx, root)
}

type phaseStep struct {
	phase core.Phase
	run   func(*core.Contract) error
}

func (a *Analyzer) Analyze(ctx context.Context, root *ast.Node) (*core.CompilationUnit, error) {
	if !root.Is(ast.SourceUnit) {
		return nil, errors.MalformedNode(root, "expected %s", ast.SourceUnit)
	}
	a.unit = core.NewCompilationUnit(root.StringAttr("absolutePath"))

	if err := a.collectContracts(root); err != nil {
		return nil, err
	}
	order, err := Schedule(a.unit.Contracts)
	if err != nil {
		return nil, err
	}

	steps := []phaseStep{
		{core.PhaseEnums, a.analyzeEnums},
		{core.PhaseSkeletons, a.analyzeSkeletons},
		{core.PhaseStructs, a.analyzeStructs},
		{core.PhaseBodies, a.analyzeBodies},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if step.phase == core.PhaseStructs {
			a.ctx = NewDeclarationContext(a.unit, a.ids)
		}
		if err := a.runPhase(step, order); err != nil {
			return nil, err
		}
	}
	return a.unit, nil
}

// collectContracts creates the contract skeletons, records pragmas and
// imports, and links every contract to its linearized ancestors.
func (a *Analyzer) collectContracts(root *ast.Node) error {
	for i, n := range root.Children {
		if n == nil {
			return errors.MalformedNode(root, "child %d is null", i)
		}
		switch n.Name {
		case ast.PragmaDirective:
			a.unit.Pragmas = append(a.unit.Pragmas, pragmaText(n))
		case ast.ImportDirective:
			a.unit.Imports = append(a.unit.Imports, importPath(n))
		case ast.ContractDefinition:
			c := &core.Contract{
				ID:   n.ID,
				Name: n.StringAttr("name"),
				Kind: contractKind(n),
				Src:  n.Source(),
				Decl: n,
			}
			if c.Name == "" {
				return errors.MalformedNode(n, "contract without name")
			}
			a.unit.AddContract(c)
			a.ids[n.ID] = c
		default:
			log.Debugf("ignoring top-level %s", n.Name)
		}
	}

	for _, c := range a.unit.Contracts {
		bases, err := c.Decl.IntListAttr("linearizedBaseContracts")
		if err != nil {
			return errors.MalformedNode(c.Decl, "%v", err)
		}
		for i, id := range bases {
			if i == 0 && id == c.ID {
				continue
			}
			base := a.unit.ContractByID(id)
			if base == nil {
				return errors.MissingAncestor(c.Name, id)
			}
			c.Inheritance = append(c.Inheritance, base)
		}
		for _, spec := range c.Decl.ChildrenOf(ast.InheritanceSpec) {
			if base := a.immediateBase(spec); base != nil {
				c.Immediate = append(c.Immediate, base)
			}
		}
	}
	return nil
}

func (a *Analyzer) immediateBase(spec *ast.Node) *core.Contract {
	name := spec.Child(0)
	if id, ok := name.IntAttr("referencedDeclaration"); ok {
		if c := a.unit.ContractByID(id); c != nil {
			return c
		}
	}
	return a.unit.Contract(name.StringAttr("name"))
}

// runPhase clears the phase flag of every contract and runs the step in
// schedule order. A contract only runs once all its ancestors are done,
// except in the enum phase, which reads nothing from other contracts.
func (a *Analyzer) runPhase(step phaseStep, order []*core.Contract) error {
	for _, c := range order {
		c.ResetAnalyzed(step.phase)
	}
	log.Debugf("phase %s: %d contracts", step.phase, len(order))

	for _, c := range order {
		if a.unit.IsFailed(c.Name) {
			continue
		}
		if failed := a.failedAncestor(c); failed != "" {
			a.unit.Failed[c.Name] = isolatedFailure(c, failed)
			log.Warningf("%s", a.unit.Failed[c.Name])
			continue
		}
		for _, anc := range c.Inheritance {
			if step.phase != core.PhaseEnums && !anc.IsAnalyzed(step.phase) {
				return errors.NewAnalysisError(errors.KindInheritanceCycle, errors.ErrorInheritanceCycle,
					"ancestor "+anc.Name+" not ready in phase "+step.phase.String()).
					InContract(c.Name).
					Build()
			}
		}

		if err := step.run(c); err != nil {
			err = inContract(err, c, nil)
			if a.opts.IsolateTypeErrors && errors.IsTypeResolution(err) {
				a.unit.Failed[c.Name] = err
				log.Warningf("isolating %s: %s", c.Name, err)
				continue
			}
			return err
		}
		c.SetAnalyzed(step.phase)
		a.unit.Log(c.Name, step.phase)
	}
	return nil
}

func (a *Analyzer) failedAncestor(c *core.Contract) string {
	for _, anc := range c.Inheritance {
		if a.unit.IsFailed(anc.Name) {
			return anc.Name
		}
	}
	return ""
}

// Schedule orders contracts for every phase: libraries first in
// declaration order, then a topological order of the inheritance graph
// where ready contracts are taken in declaration order. Contracts that can
// never become ready form a cycle.
func Schedule(contracts []*core.Contract) ([]*core.Contract, error) {
	order := make([]*core.Contract, 0, len(contracts))
	indegree := make(map[*core.Contract]int, len(contracts))
	children := make(map[*core.Contract][]*core.Contract)

	for _, c := range contracts {
		if c.IsLibrary() {
			order = append(order, c)
		}
	}
	for _, c := range contracts {
		if c.IsLibrary() {
			continue
		}
		indegree[c] = 0
		for _, anc := range c.Inheritance {
			if anc.IsLibrary() {
				continue
			}
			indegree[c]++
			children[anc] = append(children[anc], c)
		}
	}

	done := make(map[*core.Contract]bool, len(contracts))
	for len(order) < len(contracts) {
		var next *core.Contract
		for _, c := range contracts {
			if !c.IsLibrary() && !done[c] && indegree[c] == 0 {
				next = c
				break
			}
		}
		if next == nil {
			var stuck []string
			for _, c := range contracts {
				if !c.IsLibrary() && !done[c] {
					stuck = append(stuck, c.Name)
				}
			}
			return nil, errors.InheritanceCycle(stuck)
		}
		done[next] = true
		order = append(order, next)
		for _, child := range children[next] {
			indegree[child]--
		}
	}
	return order, nil
}
