package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mamaar/merak/internal/cli"
	"github.com/mamaar/merak/pkg/graph"
	"github.com/mamaar/merak/pkg/refactor"
	"github.com/mamaar/merak/pkg/types"
)

// PlanReport is the machine-readable output of the plan command.
type PlanReport struct {
	*refactor.Manifest
	Conflicts    map[string][]string `json:"conflicts,omitempty"`
	Dependencies *DependencyReport   `json:"dependencies,omitempty"`
}

// DependencyReport summarizes the module reference graph.
type DependencyReport struct {
	External []string           `json:"external"`
	Cycles   [][]string         `json:"cycles"`
	Metrics  graph.ImportMetrics `json:"metrics"`
}

// PlanCommand shows where every module would be written.
func PlanCommand(app *cli.App) *cobra.Command {
	var asJSON, deps bool
	cmd := &cobra.Command{
		Use:   "plan <package>",
		Short: "Show the flattened layout of a package without writing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := buildPlan(app, args[0], deps)
			if err != nil {
				return err
			}
			if asJSON {
				if err := OutputJSON(app.Out(), report); err != nil {
					return err
				}
			} else {
				printPlan(app.Out(), report)
			}
			if len(report.Conflicts) > 0 {
				return &types.ConflictError{Destinations: report.Conflicts}
			}
			return nil
		},
	}
	cli.AddLayoutFlags(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output the plan in JSON format")
	cmd.Flags().BoolVar(&deps, "deps", false, "Include the module reference graph")
	return cmd
}

// buildPlan opens an in-memory session over the package at path. Conflicts
// are recorded in the report rather than returned.
func buildPlan(app *cli.App, path string, deps bool) (*PlanReport, error) {
	b, err := NewBuilder(app, path)
	if err != nil {
		return nil, err
	}
	r, err := b.Session()
	if err != nil {
		return nil, err
	}
	m, err := r.Manifest()
	if err != nil {
		return nil, err
	}
	report := &PlanReport{Manifest: m}

	dests, err := r.Destinations()
	if err != nil {
		return nil, err
	}
	var ce *types.ConflictError
	if errors.As(refactor.CheckConflicts(dests), &ce) {
		report.Conflicts = ce.Destinations
	}

	if deps {
		idx, err := r.Index()
		if err != nil {
			return nil, err
		}
		g, err := graph.BuildImportGraph(idx)
		if err != nil {
			return nil, err
		}
		report.Dependencies = &DependencyReport{
			External: g.GetExternalDependencies(),
			Cycles:   g.DetectImportCycles(),
			Metrics:  g.GetImportMetrics(),
		}
	}
	return report, nil
}

func printPlan(w io.Writer, report *PlanReport) {
	fmt.Fprintf(w, "Flatten Plan: %s\n", report.Package)
	fmt.Fprintf(w, "=================\n")

	width := 0
	for _, e := range report.Modules {
		width = max(width, len(e.Module))
	}
	fmt.Fprintf(w, "\nModules (%d):\n", len(report.Modules))
	for _, e := range report.Modules {
		fmt.Fprintf(w, "  %-*s -> %s\n", width, e.Module, e.Path)
	}

	if len(report.Subpackages) > 0 {
		fmt.Fprintf(w, "\nSubpackages (%d):\n", len(report.Subpackages))
		for _, s := range report.Subpackages {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}

	if len(report.Conflicts) > 0 {
		rels := make([]string, 0, len(report.Conflicts))
		for rel := range report.Conflicts {
			rels = append(rels, rel)
		}
		sort.Strings(rels)
		fmt.Fprintf(w, "\nConflicts:\n")
		for _, rel := range rels {
			mods := append([]string(nil), report.Conflicts[rel]...)
			sort.Strings(mods)
			fmt.Fprintf(w, "  ERROR: %s <- %s\n", rel, strings.Join(mods, ", "))
		}
	}

	if d := report.Dependencies; d != nil {
		fmt.Fprintf(w, "\nDependencies:\n")
		fmt.Fprintf(w, "  Imports: %d across %d modules (max %d)\n", d.Metrics.TotalImports, d.Metrics.TotalModules, d.Metrics.MaxImports)
		if len(d.External) > 0 {
			fmt.Fprintf(w, "  External: %s\n", strings.Join(d.External, ", "))
		}
		for _, c := range d.Cycles {
			fmt.Fprintf(w, "  WARN:  cycle %s -> %s\n", strings.Join(c, " -> "), c[0])
		}
	}
}
