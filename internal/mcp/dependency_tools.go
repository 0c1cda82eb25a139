package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mamaar/merak/pkg/graph"
)

// ModuleDependencies is the data returned by module_dependencies for a
// single module.
type ModuleDependencies struct {
	Module     string   `json:"module"`
	Imports    []string `json:"imports"`
	ImportedBy []string `json:"imported_by"`
	Transitive []string `json:"transitive"`
	// Candidate and WouldCycle are set when the caller asks whether
	// importing Candidate from Module would close a cycle.
	Candidate  string `json:"candidate,omitempty"`
	WouldCycle *bool  `json:"would_cycle,omitempty"`
}

// PackageDependencies is the data returned by module_dependencies for a
// whole package.
type PackageDependencies struct {
	Package  string              `json:"package"`
	External []string            `json:"external"`
	Cycles   [][]string          `json:"cycles"`
	Metrics  graph.ImportMetrics `json:"metrics"`
}

func registerDependencyTools(s *server.MCPServer, state *MCPServer) {
	s.AddTool(mcp.NewTool("module_dependencies",
		mcp.WithDescription("Analyze the module reference graph of a package: cycles and external dependencies, or the imports of one module"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the package directory"),
		),
		mcp.WithString("module",
			mcp.Description("Dotted module name to inspect (optional)"),
		),
		mcp.WithString("candidate",
			mcp.Description("With module: report whether importing this in-package module from module would create a cycle"),
		),
	), state.handleModuleDependencies)
}

func (s *MCPServer) handleModuleDependencies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	sess, err := s.Session(path, false)
	if err != nil {
		return errResult(err), nil
	}
	idx, err := sess.Restructurer.Index()
	if err != nil {
		return errResult(err), nil
	}
	g, err := graph.BuildImportGraph(idx)
	if err != nil {
		return errResult(err), nil
	}

	module := req.GetString("module", "")
	if module == "" {
		cycles := g.DetectImportCycles()
		return textResult(AnalysisResult{
			Description: fmt.Sprintf("Package %s: %d import cycles", g.Package, len(cycles)),
			Data: PackageDependencies{
				Package:  g.Package,
				External: g.GetExternalDependencies(),
				Cycles:   cycles,
				Metrics:  g.GetImportMetrics(),
			},
		}), nil
	}

	if _, ok := g.Nodes[module]; !ok {
		return errResult(fmt.Errorf("module not found: %s", module)), nil
	}
	deps := ModuleDependencies{
		Module:     module,
		Imports:    paths(g.GetDirectImports(module)),
		ImportedBy: paths(g.GetImporters(module)),
		Transitive: paths(g.GetTransitiveImports(module)),
	}
	desc := fmt.Sprintf("Module %s: %d direct imports, %d importers", module, len(deps.Imports), len(deps.ImportedBy))
	if candidate := req.GetString("candidate", ""); candidate != "" {
		node, ok := g.Nodes[candidate]
		if !ok || node.IsExternal {
			return errResult(fmt.Errorf("candidate is not a module of %s: %s", g.Package, candidate)), nil
		}
		cycle := g.WouldCreateCycle(module, candidate)
		deps.Candidate = candidate
		deps.WouldCycle = &cycle
		if cycle {
			desc += fmt.Sprintf("; importing %s would create a cycle", candidate)
		}
	}
	return textResult(AnalysisResult{Description: desc, Data: deps}), nil
}

func paths(nodes []*graph.ImportNode) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Path)
	}
	return out
}
