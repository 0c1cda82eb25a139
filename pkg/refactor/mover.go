package refactor

import (
	"strings"

	"github.com/google/uuid"

	"github.com/mamaar/merak/pkg/types"
)

// AliasPrefix starts every temporary name introduced by ImportModuleMover.
const AliasPrefix = "_merak_import_var_"

// NewAlias returns a fresh temporary name.
func NewAlias() string {
	return AliasPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ImportModuleMover rewrites absolute imports of modules moved by Fn.
//
// Python binds "import a.b.c" as a chain of attribute accesses on a, so a
// moved module is re-exposed under its former dotted name one hop at a time:
//
//	import a
//	from a import ___b as _v
//	a.b = _v
//	from a import ___b_c as _v
//	a.b.c = _v
//	del _v
//
// Relative imports and imports of modules outside the package are left
// as written.
type ImportModuleMover struct {
	Fn ModuleFn
	// NewAlias generates the temporary name; defaults to NewAlias.
	NewAlias func() string
}

func (m *ImportModuleMover) Transform(ctx *ModuleContext, src types.Fragment) ([]types.Fragment, error) {
	return ImportTransform(m.move).Transform(ctx, src)
}

func (m *ImportModuleMover) move(ctx *ModuleContext, imp *types.Import) ([]types.Fragment, error) {
	if imp.IsRelative() {
		return nil, nil
	}
	if imp.From {
		return m.moveFrom(ctx, imp)
	}
	return m.movePlain(ctx, imp)
}

func (m *ImportModuleMover) movePlain(ctx *ModuleContext, imp *types.Import) ([]types.Fragment, error) {
	var out []types.Fragment
	changed := false
	for _, alias := range imp.Names {
		path := types.ParseModulePath(alias.Name)
		if path.Len() < 2 || !ctx.Index.Contains(path) {
			out = append(out, imp.WithNames(alias))
			continue
		}
		changed = true

		as := alias.AsName
		fresh := as == ""
		if fresh {
			as = m.alias()
		}

		out = append(out, types.SimpleImport(path.Root(), "", alias.AsName))
		for n := 2; n <= path.Len(); n++ {
			hop := path.Prefix(n)
			frag, err := m.importAs(hop, as)
			if err != nil {
				return nil, err
			}
			out = append(out, frag)
			if fresh {
				out = append(out, &types.Assign{Target: hop.String(), Value: as})
			}
		}
		if fresh {
			del, err := types.NewDelete(as)
			if err != nil {
				return nil, err
			}
			out = append(out, del)
		}
	}
	if !changed {
		return nil, nil
	}
	return out, nil
}

func (m *ImportModuleMover) moveFrom(ctx *ModuleContext, imp *types.Import) ([]types.Fragment, error) {
	from := types.ParseModulePath(imp.Module)
	// The root may be a namespace package without a marker file.
	if !ctx.Index.Contains(from) && from.String() != ctx.Path.Root() {
		return nil, nil
	}
	movedFrom, err := Remap(m.Fn, from)
	if err != nil {
		return nil, err
	}

	var out []types.Fragment
	for _, alias := range imp.Names {
		if alias.Name == "*" {
			out = append(out, types.SimpleImport("*", movedFrom.String(), ""))
			continue
		}

		as := alias.AsName
		if as == "" {
			as = alias.Name
		}
		for n := 2; n <= from.Len(); n++ {
			frag, err := m.importAs(from.Prefix(n), as)
			if err != nil {
				return nil, err
			}
			out = append(out, frag)
		}

		full := from.Child(alias.Name)
		if ctx.Index.Contains(full) {
			frag, err := m.importAs(full, as)
			if err != nil {
				return nil, err
			}
			out = append(out, frag)
			continue
		}
		out = append(out, types.SimpleImport(alias.Name, movedFrom.String(), alias.AsName))
	}
	return out, nil
}

// importAs binds the moved location of module to as.
func (m *ImportModuleMover) importAs(module types.ModulePath, as string) (types.Fragment, error) {
	moved, err := Remap(m.Fn, module)
	if err != nil {
		return nil, err
	}
	if moved.Len() == 1 {
		return types.SimpleImport(moved.String(), "", as), nil
	}
	return types.SimpleImport(moved.Last(), moved.Parent().String(), as), nil
}

func (m *ImportModuleMover) alias() string {
	if m.NewAlias != nil {
		return m.NewAlias()
	}
	return NewAlias()
}
