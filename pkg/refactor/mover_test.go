package refactor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamaar/merak/pkg/types"
)

func testMover(t *testing.T) *ImportModuleMover {
	t.Helper()
	fn, err := NewFlattenFn("_", "___")
	require.NoError(t, err)
	return &ImportModuleMover{Fn: fn, NewAlias: func() string { return "_v" }}
}

func TestImportModuleMover(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:  "plain import without alias",
			input: "import foo.a.b",
			expected: []string{
				"import foo",
				"from foo import ___a as _v",
				"foo.a = _v",
				"from foo import ___a_b as _v",
				"foo.a.b = _v",
				"del _v",
			},
		},
		{
			name:  "plain import with alias",
			input: "import foo.a.b as ab",
			expected: []string{
				"import foo as ab",
				"from foo import ___a as ab",
				"from foo import ___a_b as ab",
			},
		},
		{
			name:     "root import untouched",
			input:    "import foo",
			expected: []string{"import foo"},
		},
		{
			name:     "external import untouched",
			input:    "import os.path",
			expected: []string{"import os.path"},
		},
		{
			name:  "from import of a module",
			input: "from foo.a import b",
			expected: []string{
				"from foo import ___a as b",
				"from foo import ___a_b as b",
			},
		},
		{
			name:  "from import of a symbol",
			input: "from foo.a import helper as h",
			expected: []string{
				"from foo import ___a as h",
				"from foo.___a import helper as h",
			},
		},
		{
			name:     "from root import of a module",
			input:    "from foo import c",
			expected: []string{"from foo import ___c as c"},
		},
		{
			name:     "from root import of a symbol",
			input:    "from foo import VERSION",
			expected: []string{"from foo import VERSION"},
		},
		{
			name:     "star import",
			input:    "from foo.a import *",
			expected: []string{"from foo.___a import *"},
		},
		{
			name:     "relative import untouched",
			input:    "from .a import b",
			expected: []string{"from .a import b"},
		},
		{
			name:     "external from import untouched",
			input:    "from os import path",
			expected: []string{"from os import path"},
		},
		{
			name:  "unsplit plain import",
			input: "import foo.c, os",
			expected: []string{
				"import foo",
				"from foo import ___c as _v",
				"foo.c = _v",
				"del _v",
				"import os",
			},
		},
	}

	mover := testMover(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := mover.Transform(contextFor("foo.bar.z"), imp(t, tc.input))
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, texts(out)); diff != "" {
				t.Errorf("unexpected rewrite (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImportModuleMover_NamespaceRoot(t *testing.T) {
	// A package root without a marker file is still part of the tree.
	index := fakeIndex{"ns.a": false}
	ctx := &ModuleContext{Path: types.ParseModulePath("ns.a"), Index: index}

	out, err := testMover(t).Transform(ctx, imp(t, "from ns import a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"from ns import ___a as a"}, texts(out))
}

func TestImportModuleMover_FreshAlias(t *testing.T) {
	fn, _ := NewFlattenFn("_", "___")
	mover := &ImportModuleMover{Fn: fn}

	out, err := mover.Transform(contextFor("foo.c"), imp(t, "import foo.c"))
	require.NoError(t, err)
	require.Len(t, out, 4)

	del, ok := out[3].(*types.Delete)
	require.True(t, ok)
	require.Len(t, del.Targets, 1)
	alias := del.Targets[0]
	assert.True(t, types.IsIdentifier(alias))
	assert.Contains(t, alias, AliasPrefix)
	assert.Equal(t, "from foo import ___c as "+alias, out[1].Text())
	assert.NotEqual(t, NewAlias(), NewAlias())
}

func TestImportModuleMover_InvalidRemap(t *testing.T) {
	mover := &ImportModuleMover{Fn: ModuleFnFunc(func(segs []string) []string {
		return []string{segs[0], "bad-name"}
	})}

	_, err := mover.Transform(contextFor("foo.c"), imp(t, "from foo.a import b"))
	assert.True(t, types.IsErrorType(err, types.InvalidOperation))
}
