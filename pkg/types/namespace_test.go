package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModulePath_Forms(t *testing.T) {
	dotted := PathOf("foo.a.b")
	split := PathOf([]string{"foo", "a", "b"})

	assert.Equal(t, dotted, split)
	assert.Equal(t, NewModulePath("foo", "a", "b"), dotted)
	assert.Equal(t, "foo.a.b", dotted.String())

	m := map[ModulePath]int{dotted: 1}
	assert.Equal(t, 1, m[split])
}

func TestModulePath_Accessors(t *testing.T) {
	p := ParseModulePath("foo.a.b")

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, "foo", p.Root())
	assert.Equal(t, "b", p.Last())
	assert.Equal(t, []string{"foo", "a", "b"}, p.Segments())
	assert.Equal(t, ParseModulePath("foo.a"), p.Parent())
	assert.Equal(t, ParseModulePath("foo"), p.Prefix(1))
	assert.Equal(t, p, p.Prefix(7))
	assert.True(t, p.Prefix(0).IsZero())
	assert.Equal(t, ParseModulePath("foo.a.b.c.d"), p.Child("c", "d"))
	assert.Equal(t, ParseModulePath("x"), ModulePath{}.Child("x"))

	assert.True(t, p.HasPrefix(ParseModulePath("foo.a")))
	assert.True(t, p.HasPrefix(p))
	assert.False(t, p.HasPrefix(ParseModulePath("foo.ab")))

	assert.Equal(t, 0, ModulePath{}.Len())
	assert.Nil(t, ModulePath{}.Segments())
}

func TestModulePath_SegmentsIsACopy(t *testing.T) {
	p := ParseModulePath("foo.a")
	segs := p.Segments()
	segs[0] = "bar"
	assert.Equal(t, "foo.a", p.String())
}

func TestModulePath_Validate(t *testing.T) {
	valid := []string{"foo", "foo.a_b", "_x.y2", "ñame.x"}
	for _, s := range valid {
		require.NoError(t, ParseModulePath(s).Validate(), s)
	}

	invalid := []string{"", "foo..a", "foo.", "foo.1a", "foo.a-b", ".foo"}
	for _, s := range invalid {
		err := ParseModulePath(s).Validate()
		require.Error(t, err, s)
		assert.True(t, IsErrorType(err, InvalidOperation), s)
	}
}

func TestIsIdentifierPart(t *testing.T) {
	assert.True(t, IsIdentifierPart("_"))
	assert.True(t, IsIdentifierPart("__"))
	assert.True(t, IsIdentifierPart("9"))
	assert.True(t, IsIdentifierPart(""))
	assert.False(t, IsIdentifierPart("-"))
	assert.False(t, IsIdentifierPart("a.b"))
}

func TestModulePath_TextRoundTrip(t *testing.T) {
	p := ParseModulePath("foo.bar")
	b, err := p.MarshalText()
	require.NoError(t, err)

	var q ModulePath
	require.NoError(t, q.UnmarshalText(b))
	assert.Equal(t, p, q)
}
