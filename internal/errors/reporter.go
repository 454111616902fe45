package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"solcheck/internal/ast"
)

// Severity of a rendered diagnostic. Analysis failures are errors; contracts
// skipped under isolation are reported as warnings.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
)

// Diagnostic is an analysis error resolved against the Solidity source, ready
// to be rendered.
type Diagnostic struct {
	Severity    Severity
	Code        string
	Message     string
	Position    ast.Position // zero Line when the offending node has no offset
	Length      int
	Suggestions []string
	Notes       []string
	Help        string
}

var (
	gutterStyle = color.New(color.Faint)
	lineStyle   = color.New(color.Bold)
	hintStyle   = color.New(color.FgCyan)
	noteStyle   = color.New(color.FgBlue)
	helpStyle   = color.New(color.FgGreen)
)

func (s Severity) style() *color.Color {
	if s == Warning {
		return color.New(color.FgYellow, color.Bold)
	}
	return color.New(color.FgRed, color.Bold)
}

// Reporter renders diagnostics for one syntax tree file. The source text is
// optional: without it the location is the file name alone.
type Reporter struct {
	name  string
	file  *ast.SourceFile
	lines []string
}

func NewReporter(name, source string) *Reporter {
	r := &Reporter{name: name}
	if source != "" {
		r.file = ast.NewSourceFile(name, source)
		r.lines = strings.Split(source, "\n")
	}
	return r
}

// Report renders any error returned by the pipeline. Errors outside the
// taxonomy become a bare message.
func (r *Reporter) Report(err error) string {
	var ae *AnalysisError
	if !stderrors.As(err, &ae) {
		return r.Render(Diagnostic{Severity: Error, Message: err.Error()})
	}
	return r.Render(ae.Diagnostic(r.file))
}

// Render lays out d as a header, the location, an excerpt of the offending
// line with its span underlined, and the trailing hints.
func (r *Reporter) Render(d Diagnostic) string {
	var b strings.Builder

	b.WriteString(d.Severity.style().Sprint(string(d.Severity)))
	if d.Code != "" {
		b.WriteString("[" + d.Code + "]")
	}
	b.WriteString(": " + d.Message + "\n")

	line := d.Position.Line
	pad := strings.Repeat(" ", gutterWidth(line))
	bar := gutterStyle.Sprint("│")

	if line <= 0 || line > len(r.lines) {
		fmt.Fprintf(&b, "%s %s %s\n", pad, gutterStyle.Sprint("-->"), r.name)
	} else {
		fmt.Fprintf(&b, "%s %s %s:%d:%d\n", pad, gutterStyle.Sprint("-->"), r.name, line, d.Position.Column)
		text := r.lines[line-1]
		fmt.Fprintf(&b, "%s %s\n", pad, bar)
		fmt.Fprintf(&b, "%s %s %s\n", lineStyle.Sprintf("%*d", len(pad), line), bar, text)
		// Spans crossing a line end are cut at it.
		span := min(d.Length, len(text)-d.Position.Column+1)
		fmt.Fprintf(&b, "%s %s %s\n", pad, bar, underline(d.Position.Column, span, d.Severity))
	}

	if len(d.Suggestions) > 0 {
		fmt.Fprintf(&b, "%s %s\n", pad, bar)
	}
	for _, s := range d.Suggestions {
		fmt.Fprintf(&b, "%s %s %s\n", pad, hintStyle.Sprint("= hint:"), s)
	}
	for _, n := range d.Notes {
		fmt.Fprintf(&b, "%s %s %s\n", pad, noteStyle.Sprint("= note:"), n)
	}
	if d.Help != "" {
		fmt.Fprintf(&b, "%s %s %s\n", pad, helpStyle.Sprint("= help:"), d.Help)
	}
	b.WriteString("\n")
	return b.String()
}

// underline marks length columns starting at the 1-based column. At least
// one column is always marked.
func underline(column, length int, sev Severity) string {
	return strings.Repeat(" ", max(0, column-1)) + sev.style().Sprint(strings.Repeat("^", max(1, length)))
}

func gutterWidth(line int) int {
	return max(3, len(strconv.Itoa(line)))
}
