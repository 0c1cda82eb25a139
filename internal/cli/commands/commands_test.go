package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/merak/internal/cli"
	"github.com/mamaar/merak/pkg/refactor"
	"github.com/mamaar/merak/pkg/types"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	parent := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(parent, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return parent
}

func fooPackage(t *testing.T) string {
	t.Helper()
	parent := writeTree(t, map[string]string{
		"foo/__init__.py":     "from .bar import baz\n",
		"foo/bar/__init__.py": "import json\nfrom . import baz\n",
		"foo/bar/baz.py":      "from .. import bar\n",
	})
	return filepath.Join(parent, "foo")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	app := cli.NewApp()
	app.SetOutput(&out, &errOut)
	runner := cli.NewRunner()
	Register(runner)
	err := app.Run(context.Background(), runner, args)
	return out.String(), err
}

func TestFlattenCommand(t *testing.T) {
	root := fooPackage(t)
	output := t.TempDir()
	manifest := filepath.Join(t.TempDir(), "flat.toml")

	out, err := execute(t, "flatten", "--manifest", manifest, root, output)
	require.NoError(t, err)
	assert.Equal(t, "Flattened foo: 3 modules written to "+output+"\n", out)
	assert.FileExists(t, filepath.Join(output, "foo", "___bar_baz.py"))

	m, err := refactor.ReadManifest(manifest)
	require.NoError(t, err)
	assert.Equal(t, "foo", m.Package)
	assert.Equal(t, []string{"foo.bar"}, m.Subpackages)

	_, err = execute(t, "flatten", root, output)
	assert.True(t, types.IsErrorType(err, types.DestinationExists))

	_, err = execute(t, "flatten", "-f", root, output)
	assert.NoError(t, err)
}

func TestPlanCommand_JSON(t *testing.T) {
	root := fooPackage(t)

	out, err := execute(t, "plan", "--json", "--deps", root)
	require.NoError(t, err)

	var report struct {
		Package string `json:"package"`
		Modules []struct {
			Module string `json:"module"`
			Path   string `json:"path"`
		} `json:"modules"`
		Dependencies struct {
			External []string   `json:"external"`
			Cycles   [][]string `json:"cycles"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "foo", report.Package)
	paths := map[string]string{}
	for _, m := range report.Modules {
		paths[m.Module] = m.Path
	}
	assert.Equal(t, map[string]string{
		"foo":         "foo/__init__.py",
		"foo.bar":     "foo/___bar.py",
		"foo.bar.baz": "foo/___bar_baz.py",
	}, paths)
	assert.Equal(t, []string{"json"}, report.Dependencies.External)
	assert.NotEmpty(t, report.Dependencies.Cycles)
}

func TestPlanCommand_Conflicts(t *testing.T) {
	parent := writeTree(t, map[string]string{
		"x/a_b/c.py": "",
		"x/a/b_c.py": "",
	})

	out, err := execute(t, "plan", filepath.Join(parent, "x"))
	require.Error(t, err)
	assert.True(t, types.IsErrorType(err, types.DestinationConflict))
	assert.Contains(t, out, "ERROR: x/___a_b_c.py <- x.a.b_c, x.a_b.c")
}

func TestPlanCommand_Text(t *testing.T) {
	root := fooPackage(t)
	out, err := execute(t, "plan", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Flatten Plan: foo\n")
	assert.Contains(t, out, "Modules (3):")
	assert.Contains(t, out, "foo.bar.baz -> foo/___bar_baz.py")
	assert.Contains(t, out, "  - foo.bar\n")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "merak version "+cli.Version+"\n", out)
}

func TestCythonizeCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	script := filepath.Join(t.TempDir(), "fake-python")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nset -e\nmkdir -p \"$4/foo\"\ncp foo/*.py \"$4/foo/\"\n"), 0o755))
	t.Setenv("PYTHON_CMD", script)

	root := fooPackage(t)
	output := t.TempDir()
	_, err := execute(t, "cythonize", root, output)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(output, "foo", "___bar.py"))

	_, err = execute(t, "cythonize", root, output)
	assert.True(t, types.IsErrorType(err, types.DestinationExists))
}

func TestWatchCommand_RejectsOutputInsidePackage(t *testing.T) {
	root := fooPackage(t)
	_, err := execute(t, "watch", root, filepath.Join(root, "out"))
	assert.True(t, types.IsErrorType(err, types.InvalidOperation))
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(&buf, map[string]string{"test": "value"}))
	assert.Contains(t, buf.String(), `"test": "value"`)
}
