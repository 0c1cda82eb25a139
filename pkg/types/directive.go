package types

import (
	"strings"
)

// Fragment is a piece of source code slated to replace (part of) a rewrite
// span. Its Text is a single logical statement without indentation or a
// trailing newline.
type Fragment interface {
	Text() string
}

// Alias is one binding of an import statement: the imported name and the
// optional local name it is bound to.
type Alias struct {
	Name   string
	AsName string
}

// Text renders "name" or "name as asname".
func (a Alias) Text() string {
	if a.AsName != "" {
		return a.Name + " as " + a.AsName
	}
	return a.Name
}

// Import is a reference directive. It covers both "import a.b as c" (From
// false) and "from ..a.b import c as d" (From true). Level is the number of
// leading dots of a relative from-import; Module may be empty when Level is
// positive ("from . import x").
type Import struct {
	From   bool
	Level  int
	Module string
	Names  []Alias
}

// NewImport builds a plain "import" directive.
func NewImport(names ...Alias) (*Import, error) {
	imp := &Import{Names: names}
	if err := imp.Validate(); err != nil {
		return nil, err
	}
	return imp, nil
}

// NewFromImport builds a "from" directive. The module may carry leading dots
// for relative imports, e.g. "..a.b".
func NewFromImport(module string, names ...Alias) (*Import, error) {
	trimmed := strings.TrimLeft(module, ".")
	imp := &Import{
		From:   true,
		Level:  len(module) - len(trimmed),
		Module: trimmed,
		Names:  names,
	}
	if err := imp.Validate(); err != nil {
		return nil, err
	}
	return imp, nil
}

// SimpleImport builds a single-binding directive: "import name as as_" when
// from is empty, "from from import name as as_" otherwise. It panics on
// malformed input and is meant for names produced by this module.
func SimpleImport(name, from, as string) *Import {
	alias := Alias{Name: name, AsName: as}
	var (
		imp *Import
		err error
	)
	if from == "" {
		imp, err = NewImport(alias)
	} else {
		imp, err = NewFromImport(from, alias)
	}
	if err != nil {
		panic(err)
	}
	return imp
}

// Validate checks the shape of the directive.
func (imp *Import) Validate() error {
	if len(imp.Names) == 0 {
		return NewError(InvalidOperation, "import directive without names")
	}
	if imp.Level < 0 || (!imp.From && imp.Level > 0) {
		return NewError(InvalidOperation, "invalid relative level %d", imp.Level)
	}
	if imp.From {
		if imp.Module == "" && imp.Level == 0 {
			return NewError(InvalidOperation, "from-import without module")
		}
		if imp.Module != "" && !IsDottedName(imp.Module) {
			return NewError(InvalidOperation, "invalid module %q", imp.Module)
		}
	}
	for _, a := range imp.Names {
		star := imp.From && a.Name == "*" && len(imp.Names) == 1
		switch {
		case star && a.AsName == "":
		case !imp.From && IsDottedName(a.Name):
		case imp.From && IsIdentifier(a.Name):
		default:
			return NewError(InvalidOperation, "invalid imported name %q", a.Name)
		}
		if a.AsName != "" && !IsIdentifier(a.AsName) {
			return NewError(InvalidOperation, "invalid alias %q", a.AsName)
		}
	}
	return nil
}

// IsRelative reports whether the directive starts with one or more dots.
func (imp *Import) IsRelative() bool {
	return imp.Level > 0
}

// Target is the from-part of the directive in its written form, e.g. "..a".
func (imp *Import) Target() string {
	return strings.Repeat(".", imp.Level) + imp.Module
}

// WithNames returns a copy of imp carrying names instead.
func (imp *Import) WithNames(names ...Alias) *Import {
	cp := *imp
	cp.Names = append([]Alias(nil), names...)
	return &cp
}

// Text renders the canonical statement.
func (imp *Import) Text() string {
	names := make([]string, len(imp.Names))
	for i, a := range imp.Names {
		names[i] = a.Text()
	}
	text := "import " + strings.Join(names, ", ")
	if imp.From {
		text = "from " + imp.Target() + " " + text
	}
	return text
}

// Assign binds a dotted name to a value: "target = value".
type Assign struct {
	Target string
	Value  string
}

func (a *Assign) Text() string {
	return a.Target + " = " + a.Value
}

// Delete unbinds names: "del a, b".
type Delete struct {
	Targets []string
}

// NewDelete builds a Delete from at least one target.
func NewDelete(targets ...string) (*Delete, error) {
	if len(targets) == 0 {
		return nil, NewError(InvalidOperation, "del statement without targets")
	}
	for _, t := range targets {
		if strings.TrimSpace(t) == "" {
			return nil, NewError(InvalidOperation, "empty del target")
		}
	}
	return &Delete{Targets: targets}, nil
}

func (d *Delete) Text() string {
	return "del " + strings.Join(d.Targets, ", ")
}

// Raw is a statement carried through verbatim. The scanner produces it for
// non-import statements sharing a logical line with an import.
type Raw struct {
	Code string
}

func (r *Raw) Text() string {
	return r.Code
}
