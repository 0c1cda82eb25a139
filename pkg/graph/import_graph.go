package graph

import (
	"sort"

	"github.com/mamaar/merak/pkg/analysis"
	"github.com/mamaar/merak/pkg/refactor"
	"github.com/mamaar/merak/pkg/types"
)

// ImportGraph represents import relationships between the modules of a
// package. Top-level names imported from outside the package are recorded
// as external nodes.
type ImportGraph struct {
	Package      string
	Nodes        map[string]*ImportNode   // dotted module -> node
	Edges        map[string][]*ImportEdge // source -> edges
	ExternalDeps map[string]bool          // external top-level names
}

// ImportNode represents a single module in the dependency graph
type ImportNode struct {
	Path       string
	IsExternal bool
	File       string // empty for external nodes
	ImportedBy []*ImportNode
	Imports    []*ImportNode
}

// ImportEdge represents an import relationship
type ImportEdge struct {
	From *ImportNode
	To   *ImportNode
	Line int // first line of the import statement
}

// NewImportGraph creates a new import dependency graph for package pkg
func NewImportGraph(pkg string) *ImportGraph {
	return &ImportGraph{
		Package:      pkg,
		Nodes:        make(map[string]*ImportNode),
		Edges:        make(map[string][]*ImportEdge),
		ExternalDeps: make(map[string]bool),
	}
}

// BuildImportGraph scans every module of idx. Imports are split and made
// absolute before they are resolved, so relative imports produce edges too.
func BuildImportGraph(idx *analysis.ModuleIndex) (*ImportGraph, error) {
	if err := idx.Load(); err != nil {
		return nil, err
	}
	ig := NewImportGraph(idx.Package())
	for _, m := range idx.Modules() {
		file, err := idx.Get(m)
		if err != nil {
			return nil, err
		}
		ig.AddModule(m.String(), file)

		_, records, err := analysis.ParseImportsFile(file)
		if err != nil {
			return nil, err
		}
		ctx := &refactor.ModuleContext{Path: m, Index: idx}
		for _, rec := range records {
			for _, frag := range rec.Fragments {
				imports, err := normalize(ctx, frag)
				if err != nil {
					return nil, err
				}
				for _, imp := range imports {
					for _, target := range ig.resolve(idx, imp) {
						if target != m.String() {
							ig.AddImport(m.String(), target, rec.StartLine)
						}
					}
				}
			}
		}
	}
	return ig, nil
}

// normalize splits and absolutizes one fragment.
func normalize(ctx *refactor.ModuleContext, frag types.Fragment) ([]*types.Import, error) {
	split, err := refactor.ImportSplitter{}.Transform(ctx, frag)
	if err != nil {
		return nil, err
	}
	var out []*types.Import
	for _, f := range split {
		abs, err := refactor.ImportAbsolutizer{}.Transform(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, a := range abs {
			if imp, ok := a.(*types.Import); ok && !imp.IsRelative() {
				out = append(out, imp)
			}
		}
	}
	return out, nil
}

// resolve returns the nodes an absolute import depends on: the deepest
// indexed module it names, or its top-level name when it is external.
func (ig *ImportGraph) resolve(idx *analysis.ModuleIndex, imp *types.Import) []string {
	var targets []string
	for _, alias := range imp.Names {
		path := types.ParseModulePath(alias.Name)
		if imp.From {
			path = types.ParseModulePath(imp.Module)
			if alias.Name != "*" && idx.Contains(path.Child(alias.Name)) {
				path = path.Child(alias.Name)
			}
		}
		if path.Root() != ig.Package {
			targets = append(targets, path.Root())
			continue
		}
		for n := path.Len(); n > 0; n-- {
			if prefix := path.Prefix(n); idx.Contains(prefix) {
				targets = append(targets, prefix.String())
				break
			}
		}
	}
	return targets
}

// AddModule adds a module of the package to the graph
func (ig *ImportGraph) AddModule(path, file string) *ImportNode {
	node := ig.getOrCreateNode(path)
	node.File = file
	return node
}

// AddImport adds an import relationship between two modules
func (ig *ImportGraph) AddImport(from, to string, line int) {
	fromNode := ig.getOrCreateNode(from)
	toNode := ig.getOrCreateNode(to)

	// Check if edge already exists
	for _, edge := range ig.Edges[from] {
		if edge.To.Path == to {
			return
		}
	}

	edge := &ImportEdge{
		From: fromNode,
		To:   toNode,
		Line: line,
	}

	ig.Edges[from] = append(ig.Edges[from], edge)
	fromNode.Imports = append(fromNode.Imports, toNode)
	toNode.ImportedBy = append(toNode.ImportedBy, fromNode)

	if toNode.IsExternal {
		ig.ExternalDeps[to] = true
	}
}

// GetDirectImports returns direct imports of a module
func (ig *ImportGraph) GetDirectImports(module string) []*ImportNode {
	if node, exists := ig.Nodes[module]; exists {
		return node.Imports
	}
	return nil
}

// GetImporters returns modules that import the given module
func (ig *ImportGraph) GetImporters(module string) []*ImportNode {
	if node, exists := ig.Nodes[module]; exists {
		return node.ImportedBy
	}
	return nil
}

// GetTransitiveImports returns all in-package modules reachable from module
func (ig *ImportGraph) GetTransitiveImports(module string) []*ImportNode {
	visited := make(map[string]bool)
	var result []*ImportNode

	var visit func(string)
	visit = func(m string) {
		if visited[m] {
			return
		}
		visited[m] = true

		if node, exists := ig.Nodes[m]; exists {
			for _, imp := range node.Imports {
				if !imp.IsExternal {
					result = append(result, imp)
					visit(imp.Path)
				}
			}
		}
	}

	visit(module)
	return removeDuplicateImportNodes(result)
}

// DetectImportCycles finds import cycles between modules of the package.
// Modules are visited in sorted order so the result is deterministic.
func (ig *ImportGraph) DetectImportCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var dfs func(string, []string) []string
	dfs = func(m string, path []string) []string {
		visited[m] = true
		recStack[m] = true
		newPath := append(path, m)

		for _, edge := range ig.Edges[m] {
			if edge.To.IsExternal {
				continue
			}

			imp := edge.To.Path
			if !visited[imp] {
				if cycle := dfs(imp, newPath); cycle != nil {
					return cycle
				}
			} else if recStack[imp] {
				for i, p := range newPath {
					if p == imp {
						return append([]string(nil), newPath[i:]...)
					}
				}
			}
		}

		recStack[m] = false
		return nil
	}

	for _, m := range ig.modules() {
		if !visited[m] {
			if cycle := dfs(m, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}

	return cycles
}

// GetExternalDependencies returns all external top-level names, sorted
func (ig *ImportGraph) GetExternalDependencies() []string {
	external := make([]string, 0, len(ig.ExternalDeps))
	for dep := range ig.ExternalDeps {
		external = append(external, dep)
	}
	sort.Strings(external)
	return external
}

// GetImportMetrics returns metrics about imports
func (ig *ImportGraph) GetImportMetrics() ImportMetrics {
	metrics := ImportMetrics{
		ExternalPackages: len(ig.ExternalDeps),
	}

	var totalImports int
	var internalModules int
	maxImports := 0

	for _, node := range ig.Nodes {
		if !node.IsExternal {
			internalModules++
			imports := len(node.Imports)
			totalImports += imports
			if imports > maxImports {
				maxImports = imports
			}
		}
	}

	for _, cycle := range ig.DetectImportCycles() {
		metrics.CyclicalImports += len(cycle)
	}

	metrics.TotalModules = internalModules
	metrics.MaxImports = maxImports
	if internalModules > 0 {
		metrics.AverageImports = float64(totalImports) / float64(internalModules)
	}

	for _, edges := range ig.Edges {
		metrics.TotalImports += len(edges)
	}

	return metrics
}

// WouldCreateCycle checks if adding an import would create a cycle
func (ig *ImportGraph) WouldCreateCycle(from, to string) bool {
	if from == to {
		return true
	}
	for _, imp := range ig.GetTransitiveImports(to) {
		if imp.Path == from {
			return true
		}
	}
	return false
}

type ImportMetrics struct {
	TotalModules     int     `json:"total_modules"`
	ExternalPackages int     `json:"external_packages"`
	TotalImports     int     `json:"total_imports"`
	AverageImports   float64 `json:"average_imports"`
	MaxImports       int     `json:"max_imports"`
	CyclicalImports  int     `json:"cyclical_imports"`
}

func (ig *ImportGraph) getOrCreateNode(path string) *ImportNode {
	if node, exists := ig.Nodes[path]; exists {
		return node
	}

	node := &ImportNode{
		Path:       path,
		IsExternal: types.ParseModulePath(path).Root() != ig.Package,
		ImportedBy: make([]*ImportNode, 0),
		Imports:    make([]*ImportNode, 0),
	}

	ig.Nodes[path] = node
	if _, exists := ig.Edges[path]; !exists {
		ig.Edges[path] = make([]*ImportEdge, 0)
	}

	return node
}

// modules returns the in-package node names, sorted.
func (ig *ImportGraph) modules() []string {
	var mods []string
	for path, node := range ig.Nodes {
		if !node.IsExternal {
			mods = append(mods, path)
		}
	}
	sort.Strings(mods)
	return mods
}

func removeDuplicateImportNodes(nodes []*ImportNode) []*ImportNode {
	seen := make(map[string]bool)
	var result []*ImportNode

	for _, node := range nodes {
		if !seen[node.Path] {
			seen[node.Path] = true
			result = append(result, node)
		}
	}

	return result
}
