package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/merak/pkg/build"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newState(t *testing.T, size int) *MCPServer {
	t.Helper()
	s, err := NewMCPServer(build.Options{}, size, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func writePackage(t *testing.T) string {
	t.Helper()
	parent := t.TempDir()
	files := map[string]string{
		"pkg/__init__.py":     "from .sub import mod\n",
		"pkg/sub/__init__.py": "import json\nfrom . import mod\n",
		"pkg/sub/mod.py":      "from .. import sub\n",
		"pkg/sub/data.txt":    "payload",
	}
	for rel, content := range files {
		path := filepath.Join(parent, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return filepath.Join(parent, "pkg")
}

func call(t *testing.T, h handler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var out struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out.Data
}

func TestIndexPackage(t *testing.T) {
	s := newState(t, 0)
	root := writePackage(t)

	data := decode[PackageIndex](t, call(t, s.handleIndexPackage, map[string]any{"path": root}))
	assert.Equal(t, "pkg", data.Package)
	var mods []string
	for _, m := range data.Modules {
		mods = append(mods, m.Module)
	}
	assert.ElementsMatch(t, []string{"pkg", "pkg.sub", "pkg.sub.mod"}, mods)
	assert.Equal(t, []string{"pkg/sub/data.txt"}, data.Resources)
}

func TestIndexPackage_MissingPath(t *testing.T) {
	s := newState(t, 0)
	res := call(t, s.handleIndexPackage, map[string]any{})
	assert.True(t, res.IsError)
}

func TestReadModule(t *testing.T) {
	s := newState(t, 0)
	root := writePackage(t)

	res := call(t, s.handleReadModule, map[string]any{"path": root, "module": "pkg.sub.mod"})
	require.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, "from pkg import ___sub as sub\n", resultText(t, res))

	res = call(t, s.handleReadModule, map[string]any{"path": root, "module": "pkg.nope"})
	assert.True(t, res.IsError)

	res = call(t, s.handleReadModule, map[string]any{"path": root, "module": "not a module"})
	assert.True(t, res.IsError)
}

func TestPlanFlatten(t *testing.T) {
	s := newState(t, 0)
	root := writePackage(t)

	plan := decode[struct {
		Package     string   `json:"package"`
		Subpackages []string `json:"subpackages"`
		Modules     []struct {
			Module string `json:"module"`
			Path   string `json:"path"`
		} `json:"modules"`
		Conflicts map[string][]string `json:"conflicts"`
	}](t, call(t, s.handlePlanFlatten, map[string]any{"path": root}))

	assert.Equal(t, "pkg", plan.Package)
	assert.Equal(t, []string{"pkg.sub"}, plan.Subpackages)
	assert.Empty(t, plan.Conflicts)
	paths := map[string]string{}
	for _, m := range plan.Modules {
		paths[m.Module] = m.Path
	}
	assert.Equal(t, "pkg/___sub_mod.py", paths["pkg.sub.mod"])
}

func TestFlattenPackage(t *testing.T) {
	s := newState(t, 0)
	root := writePackage(t)
	output := t.TempDir()

	res := call(t, s.handleFlattenPackage, map[string]any{"path": root, "output": output})
	require.False(t, res.IsError, resultText(t, res))
	var out FlattenResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.True(t, out.Success)
	assert.Contains(t, out.Files, "pkg/___sub_mod.py")
	assert.FileExists(t, filepath.Join(output, "pkg", "sub", "data.txt"))

	res = call(t, s.handleFlattenPackage, map[string]any{"path": root, "output": output})
	assert.True(t, res.IsError)

	res = call(t, s.handleFlattenPackage, map[string]any{"path": root, "output": output, "force": true})
	assert.False(t, res.IsError, resultText(t, res))
}

func TestModuleDependencies(t *testing.T) {
	s := newState(t, 0)
	root := writePackage(t)

	pkg := decode[PackageDependencies](t, call(t, s.handleModuleDependencies, map[string]any{"path": root}))
	assert.Equal(t, []string{"json"}, pkg.External)
	assert.Equal(t, [][]string{{"pkg.sub.mod", "pkg.sub"}}, pkg.Cycles)

	mod := decode[ModuleDependencies](t, call(t, s.handleModuleDependencies, map[string]any{"path": root, "module": "pkg.sub"}))
	assert.ElementsMatch(t, []string{"json", "pkg.sub.mod"}, mod.Imports)
	assert.Equal(t, []string{"pkg.sub.mod"}, mod.ImportedBy)

	res := call(t, s.handleModuleDependencies, map[string]any{"path": root, "module": "pkg.missing"})
	assert.True(t, res.IsError)
}

func TestModuleDependencies_Candidate(t *testing.T) {
	s := newState(t, 0)
	root := writePackage(t)

	tests := []struct {
		module    string
		candidate string
		want      bool
	}{
		{"pkg.sub.mod", "pkg", true},
		{"pkg", "pkg.sub", false},
		{"pkg.sub", "pkg.sub", true},
	}
	for _, tt := range tests {
		t.Run(tt.module+"->"+tt.candidate, func(t *testing.T) {
			deps := decode[ModuleDependencies](t, call(t, s.handleModuleDependencies, map[string]any{
				"path": root, "module": tt.module, "candidate": tt.candidate,
			}))
			require.NotNil(t, deps.WouldCycle)
			assert.Equal(t, tt.want, *deps.WouldCycle)
			assert.Equal(t, tt.candidate, deps.Candidate)
		})
	}

	res := call(t, s.handleModuleDependencies, map[string]any{"path": root, "module": "pkg", "candidate": "json"})
	assert.True(t, res.IsError)
}

func TestSessionCache(t *testing.T) {
	s := newState(t, 1)
	a, b := writePackage(t), writePackage(t)

	first, err := s.Session(a, false)
	require.NoError(t, err)
	again, err := s.Session(a, false)
	require.NoError(t, err)
	assert.Same(t, first, again)

	reloaded, err := s.Session(a, true)
	require.NoError(t, err)
	assert.NotSame(t, first, reloaded)

	_, err = s.Session(b, false)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	evicted, err := s.Session(a, false)
	require.NoError(t, err)
	assert.NotSame(t, reloaded, evicted)
}

func TestNewServer_RegistersTools(t *testing.T) {
	srv := NewServer(newState(t, 0), "test")
	resp := srv.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"index_package", "read_module", "plan_flatten", "flatten_package", "module_dependencies"} {
		assert.Contains(t, string(data), `"name":"`+name+`"`)
	}
}
