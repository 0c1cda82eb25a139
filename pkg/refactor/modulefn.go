package refactor

import (
	"strings"

	"github.com/mamaar/merak/pkg/types"
)

// ModuleFn redefines the location of modules. Move receives the segments of
// a module path with at least two segments and returns the new segments, or
// nil to keep the module where it is.
type ModuleFn interface {
	Move(segments []string) []string
}

// ModuleFnFunc adapts a function to ModuleFn.
type ModuleFnFunc func(segments []string) []string

func (f ModuleFnFunc) Move(segments []string) []string { return f(segments) }

// Remap applies fn to path. Paths with fewer than two segments, or with an
// empty segment, are returned unchanged, as are paths fn declines to move.
// An output containing a segment that is not an identifier is an error.
func Remap(fn ModuleFn, path types.ModulePath) (types.ModulePath, error) {
	segs := path.Segments()
	if len(segs) < 2 {
		return path, nil
	}
	for _, s := range segs {
		if s == "" {
			return path, nil
		}
	}
	out := fn.Move(segs)
	if len(out) == 0 {
		return path, nil
	}
	for _, s := range out {
		if !types.IsIdentifier(s) {
			return types.ModulePath{}, types.NewError(types.InvalidOperation,
				"module function mapped %s to invalid path %q", path, strings.Join(out, "."))
		}
	}
	return types.NewModulePath(out...), nil
}

// FlattenFn moves every module directly under the package root, naming it
// Prefix followed by its former sub-path joined with Sep. With Sep "_" and
// Prefix "___", foo.a.b.c becomes foo.___a_b_c.
//
// FlattenFn is a fixed point on its own output: a path of the form
// (root, X) where X already starts with Prefix is not moved again.
type FlattenFn struct {
	Sep    string
	Prefix string
}

// NewFlattenFn validates sep and prefix, which end up inside module names.
func NewFlattenFn(sep, prefix string) (*FlattenFn, error) {
	if !types.IsIdentifierPart(sep) {
		return nil, types.NewError(types.InvalidOperation, "separator %q contains characters not allowed in identifiers", sep)
	}
	if !types.IsIdentifierPart(prefix) {
		return nil, types.NewError(types.InvalidOperation, "prefix %q contains characters not allowed in identifiers", prefix)
	}
	return &FlattenFn{Sep: sep, Prefix: prefix}, nil
}

func (f *FlattenFn) Move(segments []string) []string {
	if len(segments) < 2 {
		return nil
	}
	rest := segments[1:]
	if len(rest) == 1 && f.Prefix != "" && strings.HasPrefix(rest[0], f.Prefix) {
		return nil
	}
	return []string{segments[0], f.Prefix + strings.Join(rest, f.Sep)}
}

// Chain applies its functions left to right. A function that declines to
// move a path, or that receives a path too short to move, leaves it as is
// for the next one.
type Chain []ModuleFn

func (c Chain) Move(segments []string) []string {
	cur := segments
	moved := false
	for _, fn := range c {
		if len(cur) < 2 {
			break
		}
		if out := fn.Move(append([]string(nil), cur...)); len(out) > 0 {
			cur = out
			moved = true
		}
	}
	if !moved {
		return nil
	}
	return cur
}
