package types

import (
	"fmt"
	"strings"
	"unicode"
)

// ModulePath is the dotted address of a unit or sub-tree inside a package,
// e.g. "foo.a.b". The first segment is the package root name.
//
// A ModulePath is an immutable value; it is comparable and can be used as a
// map key. Equality is by the full segment sequence.
type ModulePath struct {
	dotted string
}

// NewModulePath builds a path from its segments.
func NewModulePath(segments ...string) ModulePath {
	return ModulePath{dotted: strings.Join(segments, ".")}
}

// ParseModulePath builds a path from its dotted form.
func ParseModulePath(dotted string) ModulePath {
	return ModulePath{dotted: dotted}
}

// PathOf accepts either the dotted string or the segment form of a module
// path, so lookups can be written with whichever form is at hand.
func PathOf[T string | []string](v T) ModulePath {
	switch x := any(v).(type) {
	case string:
		return ParseModulePath(x)
	case []string:
		return NewModulePath(x...)
	}
	return ModulePath{}
}

// String returns the dotted form.
func (p ModulePath) String() string { return p.dotted }

// IsZero reports whether p has no segments.
func (p ModulePath) IsZero() bool { return p.dotted == "" }

// Segments returns a copy of the path segments.
func (p ModulePath) Segments() []string {
	if p.dotted == "" {
		return nil
	}
	return strings.Split(p.dotted, ".")
}

// Len returns the number of segments.
func (p ModulePath) Len() int {
	if p.dotted == "" {
		return 0
	}
	return strings.Count(p.dotted, ".") + 1
}

// Root returns the first segment.
func (p ModulePath) Root() string {
	root, _, _ := strings.Cut(p.dotted, ".")
	return root
}

// Last returns the final segment.
func (p ModulePath) Last() string {
	return p.dotted[strings.LastIndex(p.dotted, ".")+1:]
}

// Prefix returns the path made of the first n segments.
func (p ModulePath) Prefix(n int) ModulePath {
	segs := p.Segments()
	if n >= len(segs) {
		return p
	}
	if n <= 0 {
		return ModulePath{}
	}
	return NewModulePath(segs[:n]...)
}

// Parent returns p without its last segment.
func (p ModulePath) Parent() ModulePath {
	return p.Prefix(p.Len() - 1)
}

// Child appends segments to p.
func (p ModulePath) Child(segments ...string) ModulePath {
	if p.dotted == "" {
		return NewModulePath(segments...)
	}
	if len(segments) == 0 {
		return p
	}
	return ModulePath{dotted: p.dotted + "." + strings.Join(segments, ".")}
}

// HasPrefix reports whether q is p or an ancestor of p.
func (p ModulePath) HasPrefix(q ModulePath) bool {
	return p.dotted == q.dotted || strings.HasPrefix(p.dotted, q.dotted+".")
}

// Validate checks that every segment is a non-empty identifier.
func (p ModulePath) Validate() error {
	if p.dotted == "" {
		return NewError(InvalidOperation, "empty module path")
	}
	for _, s := range p.Segments() {
		if !IsIdentifier(s) {
			return NewError(InvalidOperation, "invalid segment %q in module path %q", s, p.dotted)
		}
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p ModulePath) MarshalText() ([]byte, error) {
	return []byte(p.dotted), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *ModulePath) UnmarshalText(b []byte) error {
	*p = ParseModulePath(string(b))
	return nil
}

// IsIdentifier reports whether s can be used as a module path segment.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// IsIdentifierPart reports whether every rune of s may appear inside an
// identifier. Unlike IsIdentifier, s may be empty or start with a digit.
func IsIdentifierPart(s string) bool {
	for _, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsDottedName reports whether s is a non-empty dotted sequence of
// identifiers, e.g. "os.path".
func IsDottedName(s string) bool {
	return ParseModulePath(s).Validate() == nil
}

// GoString is used by %#v and keeps test failures readable.
func (p ModulePath) GoString() string {
	return fmt.Sprintf("types.ParseModulePath(%q)", p.dotted)
}
