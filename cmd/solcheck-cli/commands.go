// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/olekukonko/tablewriter"
	cli "github.com/urfave/cli/v2"
	"solcheck/internal/core"
	"solcheck/internal/dataflow"
	"solcheck/internal/ir"
)

var irCommand = &cli.Command{
	Name:      "ir",
	Usage:     "Print the lowered IR of every node",
	ArgsUsage: "<ast.json>",
	Flags:     []cli.Flag{contractFlag, functionFlag},
	Action: func(c *cli.Context) error {
		units, err := loadUnits(c.Context, c.Args().First())
		if err != nil {
			return err
		}
		for _, unit := range units {
			printUnitIR(unit, c.String(contractFlag.Name), c.String(functionFlag.Name))
		}
		return nil
	},
}

var cfgCommand = &cli.Command{
	Name:      "cfg",
	Usage:     "Print the control-flow graph of a function in Graphviz format",
	ArgsUsage: "<ast.json>",
	Flags:     []cli.Flag{contractFlag, functionFlag},
	Action: func(c *cli.Context) error {
		fn, err := findFunction(c)
		if err != nil {
			return err
		}
		fmt.Print(fn.DOT())
		return nil
	},
}

var summaryCommand = &cli.Command{
	Name:      "summary",
	Usage:     "Tabulate contracts, functions and their effects",
	ArgsUsage: "<ast.json>",
	Action:    summary,
}

var analysisFlag = &cli.StringFlag{
	Name:  "analysis",
	Usage: "Dataflow analysis to run: const or taint",
	Value: "const",
}

var dataflowCommand = &cli.Command{
	Name:      "dataflow",
	Usage:     "Print per-node dataflow facts of a function",
	ArgsUsage: "<ast.json>",
	Flags:     []cli.Flag{contractFlag, functionFlag, analysisFlag},
	Action:    runDataflow,
}

func findFunction(c *cli.Context) (*core.Function, error) {
	contract, function := c.String(contractFlag.Name), c.String(functionFlag.Name)
	if contract == "" || function == "" {
		return nil, cli.Exit("--contract and --function are required", 1)
	}
	units, err := loadUnits(c.Context, c.Args().First())
	if err != nil {
		return nil, err
	}
	for _, unit := range units {
		k := unit.Contract(contract)
		if k == nil {
			continue
		}
		if fs := k.FunctionsNamed(function); len(fs) > 0 {
			return fs[0], nil
		}
		if m := k.Modifier(function); m != nil {
			return m, nil
		}
		return nil, cli.Exit(fmt.Sprintf("contract %s has no function %s", contract, function), 1)
	}
	return nil, cli.Exit(fmt.Sprintf("no contract %s", contract), 1)
}

func summary(c *cli.Context) error {
	units, err := loadUnits(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	var rows [][]string
	for _, unit := range units {
		for _, k := range unit.Contracts {
			inherits := make([]string, len(k.Inheritance))
			for i, base := range k.Inheritance {
				inherits[i] = base.Name
			}
			for _, fn := range k.Functions {
				s := ir.Summarize(fn)
				calls := mapset.NewThreadUnsafeSet[string]()
				for _, set := range []mapset.Set[string]{s.InternalCalls, s.HighLevelCalls, s.LibraryCalls, s.LowLevelCalls} {
					for _, name := range set.ToSlice() {
						calls.Add(name)
					}
				}
				rows = append(rows, []string{
					k.Name,
					string(k.Kind),
					strings.Join(inherits, ", "),
					fn.Name,
					fn.SelectorHex(),
					fmt.Sprint(len(fn.Nodes)),
					strings.Join(ir.Sorted(s.StateRead), ", "),
					strings.Join(ir.Sorted(s.StateWritten), ", "),
					strings.Join(ir.Sorted(calls), ", "),
				})
			}
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Contract", "Kind", "Inherits", "Function", "Selector", "Nodes", "State reads", "State writes", "Calls"})
	table.AppendBulk(rows)
	table.Render()
	return nil
}

func runDataflow(c *cli.Context) error {
	fn, err := findFunction(c)
	if err != nil {
		return err
	}

	var lines []string
	switch c.String(analysisFlag.Name) {
	case "const":
		p := dataflow.NewConstantPropagation()
		e := &dataflow.Engine[dataflow.Env]{Function: fn, Problem: p, MaxVisits: settings.Dataflow.MaxVisits}
		if err := e.Run(); err != nil {
			return err
		}
		lines = dataflow.DescribeConstants(fn, p)
	case "taint":
		p := dataflow.NewTaint(dataflow.TaintConfig{Seeds: dataflow.ParameterSeeds(fn), Builtins: true})
		e := &dataflow.Engine[mapset.Set[string]]{Function: fn, Problem: p, MaxVisits: settings.Dataflow.MaxVisits}
		if err := e.Run(); err != nil {
			return err
		}
		lines = dataflow.DescribeTaint(fn, p)
	default:
		return cli.Exit("--analysis must be const or taint", 1)
	}

	if settings.Output.Format == "table" {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Node", "Facts"})
		for _, line := range lines {
			node, facts, _ := strings.Cut(line, ": ")
			table.Append([]string{node, facts})
		}
		table.Render()
		return nil
	}
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
