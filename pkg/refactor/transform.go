package refactor

import (
	"io"
	"log/slog"

	"github.com/mamaar/merak/pkg/types"
)

// ModuleLookup answers membership questions about the package being
// restructured. *analysis.ModuleIndex implements it.
type ModuleLookup interface {
	Contains(types.ModulePath) bool
	IsPackage(types.ModulePath) bool
}

// ModuleContext is handed to every transform invocation: the module whose
// fragments are being transformed and the package it belongs to.
type ModuleContext struct {
	Path   types.ModulePath
	Index  ModuleLookup
	Logger *slog.Logger
}

// IsPackage reports whether the current module is a package marker.
func (c *ModuleContext) IsPackage() bool {
	return c.Index != nil && c.Index.IsPackage(c.Path)
}

func (c *ModuleContext) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// Transform rewrites one fragment of a module into zero or more fragments.
type Transform interface {
	Transform(ctx *ModuleContext, src types.Fragment) ([]types.Fragment, error)
}

// ImportTransform adapts a function over import directives into a Transform.
// Other fragment kinds pass through. A nil result leaves the directive
// unchanged.
type ImportTransform func(ctx *ModuleContext, imp *types.Import) ([]types.Fragment, error)

func (fn ImportTransform) Transform(ctx *ModuleContext, src types.Fragment) ([]types.Fragment, error) {
	imp, ok := src.(*types.Import)
	if !ok {
		return []types.Fragment{src}, nil
	}
	out, err := fn(ctx, imp)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []types.Fragment{src}, nil
	}
	return out, nil
}

// bind fixes the context of t so it can be passed to Plan.Transform.
func bind(ctx *ModuleContext, t Transform) func(types.Fragment) ([]types.Fragment, error) {
	return func(f types.Fragment) ([]types.Fragment, error) {
		return t.Transform(ctx, f)
	}
}

// ImportSplitter turns a directive binding k names into k directives binding
// one name each. The qualifier (module and level) is kept.
type ImportSplitter struct{}

func (ImportSplitter) Transform(ctx *ModuleContext, src types.Fragment) ([]types.Fragment, error) {
	return ImportTransform(splitImport).Transform(ctx, src)
}

func splitImport(_ *ModuleContext, imp *types.Import) ([]types.Fragment, error) {
	if len(imp.Names) < 2 {
		return nil, nil
	}
	out := make([]types.Fragment, len(imp.Names))
	for i, name := range imp.Names {
		out[i] = imp.WithNames(name)
	}
	return out, nil
}

// ImportAbsolutizer rewrites relative from-imports as absolute ones.
//
// The first dot refers to the package containing the current module: the
// module itself for a package marker, its parent for a leaf. Each further
// dot ascends one level. A directive ascending past the package root is
// left as written.
type ImportAbsolutizer struct{}

func (ImportAbsolutizer) Transform(ctx *ModuleContext, src types.Fragment) ([]types.Fragment, error) {
	return ImportTransform(absolutizeImport).Transform(ctx, src)
}

func absolutizeImport(ctx *ModuleContext, imp *types.Import) ([]types.Fragment, error) {
	if !imp.IsRelative() {
		return nil, nil
	}
	resolved, ok := ResolveRelative(ctx.Path, ctx.IsPackage(), imp.Level, imp.Module)
	if !ok {
		ctx.logger().Debug("relative import escapes package root, left unchanged",
			"module", ctx.Path.String(),
			"import", imp.Text(),
		)
		return nil, nil
	}
	abs := *imp
	abs.Level = 0
	abs.Module = resolved.String()
	abs.Names = append([]types.Alias(nil), imp.Names...)
	return []types.Fragment{&abs}, nil
}

// ResolveRelative resolves the target of "from <level dots><module> import"
// written in module. ok is false when the target would lie above the
// package root.
func ResolveRelative(module types.ModulePath, isPackage bool, level int, target string) (types.ModulePath, bool) {
	base := module
	if !isPackage {
		base = module.Parent()
	}
	keep := base.Len() - (level - 1)
	if level < 1 || keep < 1 {
		return types.ModulePath{}, false
	}
	resolved := base.Prefix(keep)
	if target != "" {
		resolved = resolved.Child(target)
	}
	return resolved, true
}
