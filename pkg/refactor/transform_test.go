package refactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/merak/pkg/types"
)

// fakeIndex maps dotted module names to whether they are package markers.
type fakeIndex map[string]bool

func (f fakeIndex) Contains(p types.ModulePath) bool {
	_, ok := f[p.String()]
	return ok
}

func (f fakeIndex) IsPackage(p types.ModulePath) bool {
	return f[p.String()]
}

var testIndex = fakeIndex{
	"foo":       true,
	"foo.a":     true,
	"foo.a.b":   false,
	"foo.c":     false,
	"foo.bar":   true,
	"foo.bar.z": false,
}

func texts(frags []types.Fragment) []string {
	out := make([]string, len(frags))
	for i, f := range frags {
		out[i] = f.Text()
	}
	return out
}

func contextFor(module string) *ModuleContext {
	return &ModuleContext{Path: types.ParseModulePath(module), Index: testIndex}
}

func TestImportSplitter(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "from import",
			input:    "from a import b, c as cn, d",
			expected: []string{"from a import b", "from a import c as cn", "from a import d"},
		},
		{
			name:     "relative qualifier kept",
			input:    "from ..x import y, z",
			expected: []string{"from ..x import y", "from ..x import z"},
		},
		{
			name:     "plain import",
			input:    "import os, a.b as ab",
			expected: []string{"import os", "import a.b as ab"},
		},
		{
			name:     "single name untouched",
			input:    "from a import b",
			expected: []string{"from a import b"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ImportSplitter{}.Transform(contextFor("foo.c"), imp(t, tc.input))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, texts(out))
		})
	}
}

func TestImportTransform_PassesOtherFragments(t *testing.T) {
	raw := &types.Raw{Code: "x = 1"}
	out, err := ImportSplitter{}.Transform(contextFor("foo.c"), raw)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Same(t, raw, out[0])

	single := imp(t, "import a")
	out, err = ImportAbsolutizer{}.Transform(contextFor("foo.c"), single)
	require.NoError(t, err)
	assert.Same(t, single, out[0])
}

func TestImportAbsolutizer(t *testing.T) {
	testCases := []struct {
		name     string
		module   string
		input    string
		expected string
	}{
		{"leaf, current package", "foo.a.b", "from . import x", "from foo.a import x"},
		{"leaf, sibling module", "foo.a.b", "from .c import x", "from foo.a.c import x"},
		{"leaf, ascent equal to depth reaches root", "foo.a.b", "from .. import x", "from foo import x"},
		{"leaf, ascent with path", "foo.a.b", "from ..bar.z import x as y", "from foo.bar.z import x as y"},
		{"leaf, ascent past root left unchanged", "foo.a.b", "from ... import x", "from ... import x"},
		{"marker, current package", "foo.a", "from . import b", "from foo.a import b"},
		{"marker, parent", "foo.a", "from .. import c", "from foo import c"},
		{"marker, ascent past root left unchanged", "foo.a", "from ...x import y", "from ...x import y"},
		{"root marker", "foo", "from .bar import z", "from foo.bar import z"},
		{"root leaf", "foo.c", "from . import a", "from foo import a"},
		{"root leaf, past root", "foo.c", "from .. import a", "from .. import a"},
		{"absolute untouched", "foo.a.b", "from foo import c", "from foo import c"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ImportAbsolutizer{}.Transform(contextFor(tc.module), imp(t, tc.input))
			require.NoError(t, err)
			assert.Equal(t, []string{tc.expected}, texts(out))
		})
	}
}

func TestImportAbsolutizer_KeepsSourceDirective(t *testing.T) {
	src := imp(t, "from . import x, y")
	out, err := ImportAbsolutizer{}.Transform(contextFor("foo.a.b"), src)
	require.NoError(t, err)
	require.Len(t, out, 1)

	out[0].(*types.Import).Names[0].AsName = "changed"
	assert.Equal(t, "from . import x, y", src.Text())
}

func TestResolveRelative(t *testing.T) {
	got, ok := ResolveRelative(types.ParseModulePath("foo.a.b"), false, 2, "bar")
	require.True(t, ok)
	assert.Equal(t, "foo.bar", got.String())

	_, ok = ResolveRelative(types.ParseModulePath("foo.a.b"), false, 0, "bar")
	assert.False(t, ok)
}
