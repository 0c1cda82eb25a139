package graph

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mamaar/merak/pkg/analysis"
)

func buildTestGraph(t *testing.T) *ImportGraph {
	t.Helper()
	parent := t.TempDir()
	files := map[string]string{
		"pkg/__init__.py":     "from .a import f\nimport os\n",
		"pkg/a.py":            "from . import b\nimport json, pkg.c\n\ndef f():\n    pass\n",
		"pkg/b.py":            "from pkg.a import f\nfrom .sub import thing\n",
		"pkg/c.py":            "from .sub.deep import *\nimport numpy as np\n",
		"pkg/sub/__init__.py": "thing = 1\n",
		"pkg/sub/deep.py":     "import sys\nfrom ... import nowhere\n",
	}
	for rel, content := range files {
		path := filepath.Join(parent, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := analysis.NewModuleIndex(filepath.Join(parent, "pkg"), analysis.IndexOptions{Suffixes: []string{".py"}})
	if err != nil {
		t.Fatal(err)
	}
	ig, err := BuildImportGraph(idx)
	if err != nil {
		t.Fatalf("BuildImportGraph failed: %v", err)
	}
	return ig
}

func paths(nodes []*ImportNode) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Path)
	}
	return out
}

func TestNewImportGraph(t *testing.T) {
	graph := NewImportGraph("pkg")
	if graph.Nodes == nil || graph.Edges == nil || graph.ExternalDeps == nil {
		t.Fatal("Expected maps to be initialized")
	}
	if len(graph.Nodes) != 0 {
		t.Errorf("Expected empty Nodes map, got %d entries", len(graph.Nodes))
	}
}

func TestImportGraph_AddImport(t *testing.T) {
	graph := NewImportGraph("pkg")
	graph.AddModule("pkg.a", "/tmp/pkg/a.py")
	graph.AddImport("pkg.a", "pkg.b", 1)
	graph.AddImport("pkg.a", "pkg.b", 3)
	graph.AddImport("pkg.a", "requests", 2)

	if len(graph.Edges["pkg.a"]) != 2 {
		t.Errorf("Expected duplicate edge to be ignored, got %d edges", len(graph.Edges["pkg.a"]))
	}
	if graph.Edges["pkg.a"][0].Line != 1 {
		t.Errorf("Expected first edge line to be kept, got %d", graph.Edges["pkg.a"][0].Line)
	}
	if !graph.Nodes["requests"].IsExternal {
		t.Error("Expected requests to be external")
	}
	if graph.Nodes["pkg.b"].IsExternal {
		t.Error("Expected pkg.b to be internal")
	}
	if !graph.ExternalDeps["requests"] {
		t.Error("Expected requests to be recorded as an external dependency")
	}
}

func TestBuildImportGraph_Edges(t *testing.T) {
	ig := buildTestGraph(t)

	testCases := []struct {
		module    string
		imports   []string
		importers []string
	}{
		{"pkg", []string{"pkg.a", "os"}, nil},
		{"pkg.a", []string{"pkg.b", "json", "pkg.c"}, []string{"pkg", "pkg.b"}},
		{"pkg.b", []string{"pkg.a", "pkg.sub"}, []string{"pkg.a"}},
		{"pkg.c", []string{"pkg.sub.deep", "numpy"}, []string{"pkg.a"}},
		{"pkg.sub.deep", []string{"sys"}, []string{"pkg.c"}},
	}

	for _, tc := range testCases {
		t.Run(tc.module, func(t *testing.T) {
			if got := paths(ig.GetDirectImports(tc.module)); !reflect.DeepEqual(got, tc.imports) {
				t.Errorf("GetDirectImports(%s) = %v, want %v", tc.module, got, tc.imports)
			}
			if got := paths(ig.GetImporters(tc.module)); !reflect.DeepEqual(got, tc.importers) {
				t.Errorf("GetImporters(%s) = %v, want %v", tc.module, got, tc.importers)
			}
		})
	}
}

func TestBuildImportGraph_ExternalDependencies(t *testing.T) {
	ig := buildTestGraph(t)
	expected := []string{"json", "numpy", "os", "sys"}
	if got := ig.GetExternalDependencies(); !reflect.DeepEqual(got, expected) {
		t.Errorf("GetExternalDependencies() = %v, want %v", got, expected)
	}
}

func TestBuildImportGraph_Cycles(t *testing.T) {
	ig := buildTestGraph(t)
	cycles := ig.DetectImportCycles()
	expected := [][]string{{"pkg.a", "pkg.b"}}
	if !reflect.DeepEqual(cycles, expected) {
		t.Errorf("DetectImportCycles() = %v, want %v", cycles, expected)
	}

	if !ig.WouldCreateCycle("pkg.sub", "pkg") {
		t.Error("Expected pkg.sub -> pkg to create a cycle")
	}
	if ig.WouldCreateCycle("pkg", "pkg.sub.deep") {
		t.Error("Expected pkg -> pkg.sub.deep not to create a cycle")
	}
}

func TestBuildImportGraph_Metrics(t *testing.T) {
	ig := buildTestGraph(t)
	metrics := ig.GetImportMetrics()

	if metrics.TotalModules != 6 {
		t.Errorf("Expected 6 modules, got %d", metrics.TotalModules)
	}
	if metrics.ExternalPackages != 4 {
		t.Errorf("Expected 4 external packages, got %d", metrics.ExternalPackages)
	}
	if metrics.TotalImports != 10 {
		t.Errorf("Expected 10 imports, got %d", metrics.TotalImports)
	}
	if metrics.CyclicalImports != 2 {
		t.Errorf("Expected 2 modules in cycles, got %d", metrics.CyclicalImports)
	}
}
