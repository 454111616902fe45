// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"solcheck/internal/ast"
	"solcheck/internal/config"
	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/ir"
	"solcheck/internal/logging"
	"solcheck/internal/semantic"
)

var log = logging.Get("cli")

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Configuration file (default ./" + config.FileName + ")",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Increase log verbosity, repeat for debug output",
	}
	noColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable coloured output",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of compilation units analyzed in parallel",
	}
	contractFlag = &cli.StringFlag{
		Name:  "contract",
		Usage: "Contract name",
	}
	functionFlag = &cli.StringFlag{
		Name:  "function",
		Usage: "Function or modifier name",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                 "solcheck",
		Usage:                "Static analysis of Solidity compiler syntax trees",
		EnableBashCompletion: true,
		Flags:                []cli.Flag{configFlag, verboseFlag, noColorFlag, workersFlag},
		Before:               setup,
		Commands: []*cli.Command{
			analyzeCommand,
			irCommand,
			cfgCommand,
			summaryCommand,
			dataflowCommand,
		},
	}
}

// settings is the configuration after command line overrides.
var settings config.Config

func setup(c *cli.Context) error {
	cfg, path, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	if n := c.Count(verboseFlag.Name); n > 0 {
		cfg.Verbosity = n
	}
	if c.IsSet(workersFlag.Name) {
		cfg.Workers = c.Int(workersFlag.Name)
	}
	if c.Bool(noColorFlag.Name) {
		cfg.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	color.NoColor = color.NoColor || !cfg.Color
	logging.Configure(cfg.Verbosity, "")
	if path != "" {
		log.Infof("using configuration %s", path)
	}
	settings = cfg
	return nil
}

func options() semantic.Options {
	return semantic.Options{IsolateTypeErrors: settings.Analysis.IsolateTypeErrors}
}

var analyzeCommand = &cli.Command{
	Name:      "analyze",
	Usage:     "Analyze syntax tree files and report errors",
	ArgsUsage: "<ast.json>...",
	Action:    analyze,
}

// job is one source unit of one input file.
type job struct {
	path  string
	root  *ast.Node
	unit  *core.CompilationUnit
	err   error
	taken time.Duration
}

func analyze(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("Usage: solcheck analyze <ast.json>...", 1)
	}
	start := time.Now()

	var jobs []*job
	for _, path := range c.Args().Slice() {
		roots, err := ast.DecodeFile(path)
		if err != nil {
			jobs = append(jobs, &job{path: path, err: err})
			continue
		}
		for _, root := range roots {
			jobs = append(jobs, &job{path: path, root: root})
		}
	}

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(settings.Workers)
	for _, j := range jobs {
		if j.root == nil {
			continue
		}
		g.Go(func() error {
			began := time.Now()
			j.unit, j.err = semantic.AnalyzeUnit(ctx, j.root, options())
			j.taken = time.Since(began)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := false
	for _, j := range jobs {
		if j.err != nil {
			failed = true
			fmt.Print(reporterFor(j.path, j.root).Report(j.err))
			continue
		}
		for name, err := range j.unit.Failed {
			fmt.Print(reporterFor(j.path, j.root).Report(err))
			log.Warningf("%s: contract %s was not analyzed", j.path, name)
		}
		if settings.Output.PrintIR {
			printUnitIR(j.unit, "", "")
		}
		color.Green("Successfully analyzed %s (%s) in %s", j.path, j.unit.Path, formatDuration(j.taken))
	}

	if failed {
		return cli.Exit(color.RedString("Analysis failed after %s", formatDuration(time.Since(start))), 1)
	}
	return nil
}

// reporterFor builds a reporter over the Solidity source named by the unit,
// resolved next to the syntax tree file. Without it errors are printed
// without a code excerpt.
func reporterFor(path string, root *ast.Node) *errors.Reporter {
	if root == nil {
		return errors.NewReporter(path, "")
	}
	name := root.StringAttr("absolutePath")
	for _, candidate := range []string{name, filepath.Join(filepath.Dir(path), filepath.Base(name))} {
		if candidate == "" {
			continue
		}
		if src, err := os.ReadFile(candidate); err == nil {
			return errors.NewReporter(candidate, string(src))
		}
	}
	return errors.NewReporter(path, "")
}

// loadUnits analyzes every unit of one file, stopping at the first failure.
func loadUnits(ctx context.Context, path string) ([]*core.CompilationUnit, error) {
	roots, err := ast.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	units := make([]*core.CompilationUnit, 0, len(roots))
	for _, root := range roots {
		unit, err := semantic.AnalyzeUnit(ctx, root, options())
		if err != nil {
			fmt.Print(reporterFor(path, root).Report(err))
			return nil, cli.Exit(color.RedString("Analysis of %s failed", path), 1)
		}
		units = append(units, unit)
	}
	return units, nil
}

func printUnitIR(unit *core.CompilationUnit, contract, function string) {
	for _, c := range unit.Contracts {
		if contract != "" && c.Name != contract {
			continue
		}
		fmt.Printf("Contract %s\n", c.Name)
		for _, fn := range append(append([]*core.Function(nil), c.Functions...), c.Modifiers...) {
			if function != "" && fn.Name != function {
				continue
			}
			fmt.Print(ir.FormatFunction(fn))
		}
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
