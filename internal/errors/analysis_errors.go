package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"

	"solcheck/internal/ast"
)

// Kind is the taxonomy bucket of an AnalysisError.
type Kind int

const (
	KindStructural Kind = iota
	KindTypeResolution
	KindInheritanceCycle
	KindLowering
	KindDataflowNonTermination
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural error"
	case KindTypeResolution:
		return "type resolution error"
	case KindInheritanceCycle:
		return "inheritance cycle"
	case KindLowering:
		return "lowering error"
	case KindDataflowNonTermination:
		return "dataflow non-termination"
	case KindConfig:
		return "configuration error"
	}
	return "error"
}

// AnalysisError is a fatal failure of one compilation unit (or, in isolation
// mode, of one contract). None of them are retried.
type AnalysisError struct {
	Kind        Kind
	Code        string
	Message     string
	Contract    string
	Function    string
	Src         ast.Source
	Suggestions []string
	Notes       []string
	HelpText    string
	cause       error
}

func (e *AnalysisError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Code != "" {
		b.WriteString("[" + e.Code + "]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if loc := e.location(); loc != "" {
		b.WriteString(" (" + loc + ")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *AnalysisError) Unwrap() error { return e.cause }

func (e *AnalysisError) location() string {
	switch {
	case e.Contract != "" && e.Function != "":
		return fmt.Sprintf("in %s.%s", e.Contract, e.Function)
	case e.Contract != "":
		return "in " + e.Contract
	case e.Function != "":
		return "in " + e.Function
	}
	return ""
}

// Diagnostic resolves the error against file, which may be nil when the
// Solidity source is unavailable.
func (e *AnalysisError) Diagnostic(file *ast.SourceFile) Diagnostic {
	d := Diagnostic{
		Severity:    Error,
		Code:        e.Code,
		Message:     e.Message,
		Suggestions: append([]string(nil), e.Suggestions...),
		Help:        e.HelpText,
	}
	if IsWarning(e.Code) {
		d.Severity = Warning
	}
	if loc := e.location(); loc != "" {
		d.Notes = append(d.Notes, loc)
	}
	d.Notes = append(d.Notes, e.Notes...)
	if e.cause != nil {
		d.Notes = append(d.Notes, "caused by: "+e.cause.Error())
	}
	if file != nil && !e.Src.IsZero() {
		d.Position = file.Position(e.Src.Start)
		d.Length = e.Src.Length
	}
	return d
}

// AnalysisErrorBuilder provides a fluent interface for creating analysis errors
type AnalysisErrorBuilder struct {
	err AnalysisError
}

// NewAnalysisError creates a new analysis error builder
func NewAnalysisError(kind Kind, code, message string) *AnalysisErrorBuilder {
	return &AnalysisErrorBuilder{err: AnalysisError{Kind: kind, Code: code, Message: message}}
}

// At records the source offset of the offending node
func (b *AnalysisErrorBuilder) At(src ast.Source) *AnalysisErrorBuilder {
	b.err.Src = src
	return b
}

// AtNode records the source offset of n
func (b *AnalysisErrorBuilder) AtNode(n *ast.Node) *AnalysisErrorBuilder {
	return b.At(n.Source())
}

func (b *AnalysisErrorBuilder) InContract(name string) *AnalysisErrorBuilder {
	b.err.Contract = name
	return b
}

func (b *AnalysisErrorBuilder) InFunction(name string) *AnalysisErrorBuilder {
	b.err.Function = name
	return b
}

// WithSuggestion adds a suggestion to the error
func (b *AnalysisErrorBuilder) WithSuggestion(message string) *AnalysisErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, message)
	return b
}

// WithNote adds a note to the error
func (b *AnalysisErrorBuilder) WithNote(note string) *AnalysisErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *AnalysisErrorBuilder) WithHelp(help string) *AnalysisErrorBuilder {
	b.err.HelpText = help
	return b
}

// Wrap records the underlying cause
func (b *AnalysisErrorBuilder) Wrap(cause error) *AnalysisErrorBuilder {
	b.err.cause = cause
	return b
}

// Build returns the completed analysis error
func (b *AnalysisErrorBuilder) Build() *AnalysisError {
	e := b.err
	return &e
}

// Common constructors

// MalformedInput reports a syntax tree file that could not be decoded.
func MalformedInput(path string, cause error) *AnalysisError {
	return NewAnalysisError(KindStructural, ErrorMalformedInput, fmt.Sprintf("cannot decode syntax tree %s", path)).
		Wrap(cause).
		WithHelp("pass the output of `solc --ast-json` or a legacy SourceUnit JSON document").
		Build()
}

// MalformedNode reports a node that lacks an attribute or child the analyzer requires.
func MalformedNode(n *ast.Node, format string, args ...any) *AnalysisError {
	msg := fmt.Sprintf(format, args...)
	if n != nil {
		msg = fmt.Sprintf("malformed %s: %s", n.Name, msg)
	}
	return NewAnalysisError(KindStructural, ErrorMalformedNode, msg).AtNode(n).Build()
}

// UnsupportedNode reports a node kind that is not handled in the given position.
func UnsupportedNode(n *ast.Node, where string) *AnalysisError {
	name := "<nil>"
	if n != nil {
		name = n.Name
	}
	return NewAnalysisError(KindStructural, ErrorUnsupportedNode, fmt.Sprintf("unsupported %s in %s", name, where)).
		AtNode(n).
		Build()
}

// UnresolvedIdentifier reports an identifier that matches no declaration.
func UnresolvedIdentifier(name string, n *ast.Node, candidates []string) *AnalysisError {
	b := NewAnalysisError(KindStructural, ErrorUnresolvedIdentifier, fmt.Sprintf("identifier '%s' not found", name)).AtNode(n)
	addSimilar(b, name, candidates)
	return b.Build()
}

// MissingAncestor reports an inheritance id that does not belong to the unit.
func MissingAncestor(contract string, id int) *AnalysisError {
	return NewAnalysisError(KindStructural, ErrorMissingAncestor, fmt.Sprintf("ancestor #%d is not part of the unit", id)).
		InContract(contract).
		WithNote("every contract listed in linearizedBaseContracts must be analyzed together").
		Build()
}

// TypeNotFound reports a type name that exhausted the resolver's search order.
func TypeNotFound(name, contract string, src ast.Source, candidates []string) *AnalysisError {
	b := NewAnalysisError(KindTypeResolution, ErrorTypeNotFound, fmt.Sprintf("type '%s' not found", name)).
		At(src).
		InContract(contract).
		WithNote("searched elementary types, local and global structs and enums, contracts, functions, function and mapping syntax")
	addSimilar(b, name, candidates)
	return b.Build()
}

// MalformedTypeDescriptor reports an unparsable type string.
func MalformedTypeDescriptor(text string, cause error) *AnalysisError {
	return NewAnalysisError(KindTypeResolution, ErrorMalformedTypeDescriptor, fmt.Sprintf("cannot parse type '%s'", text)).
		Wrap(cause).
		Build()
}

// InheritanceCycle reports contracts that can never become ready.
func InheritanceCycle(contracts []string) *AnalysisError {
	sorted := append([]string(nil), contracts...)
	sort.Strings(sorted)
	return NewAnalysisError(KindInheritanceCycle, ErrorInheritanceCycle,
		fmt.Sprintf("inheritance cycle between %s", strings.Join(sorted, ", "))).
		WithHelp("linearizedBaseContracts must describe an acyclic graph").
		Build()
}

// UnknownCallTarget reports a call whose callee cannot be classified.
func UnknownCallTarget(desc string) *AnalysisError {
	return NewAnalysisError(KindLowering, ErrorUnknownCallTarget, fmt.Sprintf("cannot determine call target of %s", desc)).Build()
}

// UnsupportedExpression reports an expression lowering does not handle.
func UnsupportedExpression(desc string) *AnalysisError {
	return NewAnalysisError(KindLowering, ErrorUnsupportedExpression, fmt.Sprintf("cannot lower %s", desc)).Build()
}

// MemberOrderingViolation reports a member access that is separated from the call binding its base.
func MemberOrderingViolation(desc string) *AnalysisError {
	return NewAnalysisError(KindLowering, ErrorMemberOrdering, desc).
		WithNote("the operation binding a call result must immediately precede a member access on it").
		Build()
}

// UntypedOperand reports an operand whose type string lowering cannot turn
// into a type.
func UntypedOperand(desc string, cause error) *AnalysisError {
	return NewAnalysisError(KindLowering, ErrorUntypedOperand, fmt.Sprintf("cannot type operand %s", desc)).
		Wrap(cause).
		Build()
}

// DataflowBoundExceeded reports a problem that kept changing past its bound.
func DataflowBoundExceeded(function string, node, visits int) *AnalysisError {
	return NewAnalysisError(KindDataflowNonTermination, ErrorDataflowNonTermination,
		fmt.Sprintf("node %d visited %d times without reaching a fixpoint", node, visits)).
		InFunction(function).
		WithHelp("the lattice needs widening or a lower height").
		Build()
}

// DataflowTooDeep reports exploration deeper than the resource guard.
func DataflowTooDeep(function string, depth int) *AnalysisError {
	return NewAnalysisError(KindDataflowNonTermination, ErrorDataflowDepth,
		fmt.Sprintf("exploration depth %d exceeds the guard", depth)).
		InFunction(function).
		Build()
}

// InvalidConfig reports a rejected configuration value.
func InvalidConfig(field, reason string) *AnalysisError {
	return NewAnalysisError(KindConfig, ErrorInvalidConfig, fmt.Sprintf("invalid %s: %s", field, reason)).Build()
}

func addSimilar(b *AnalysisErrorBuilder, name string, candidates []string) {
	similar := findSimilarNames(name, candidates)
	switch len(similar) {
	case 0:
	case 1:
		b.WithSuggestion(fmt.Sprintf("did you mean '%s'?", similar[0]))
	default:
		b.WithSuggestion(fmt.Sprintf("did you mean one of: '%s'?", strings.Join(similar, "', '")))
	}
}

// Kind predicates

// KindOf returns the taxonomy kind of err, if it wraps an AnalysisError.
func KindOf(err error) (Kind, bool) {
	var ae *AnalysisError
	if stderrors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}

// CodeOf returns the error code of err, or "" when it wraps no AnalysisError.
func CodeOf(err error) string {
	var ae *AnalysisError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsStructural(err error) bool       { return isKind(err, KindStructural) }
func IsTypeResolution(err error) bool   { return isKind(err, KindTypeResolution) }
func IsInheritanceCycle(err error) bool { return isKind(err, KindInheritanceCycle) }
func IsLowering(err error) bool         { return isKind(err, KindLowering) }
func IsNonTermination(err error) bool   { return isKind(err, KindDataflowNonTermination) }

func isKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

func findSimilarNames(target string, candidates []string) []string {
	var similar []string
	seen := make(map[string]bool)

	for _, candidate := range candidates {
		if seen[candidate] || candidate == target {
			continue
		}
		if levenshteinDistance(target, candidate) <= 2 && len(candidate) > 2 {
			similar = append(similar, candidate)
			seen[candidate] = true
		}
	}

	return similar
}

// Simple Levenshtein distance implementation for finding similar names
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	return prev[len(b)]
}
