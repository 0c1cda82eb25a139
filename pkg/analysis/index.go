package analysis

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mamaar/merak/pkg/types"
)

// DefaultInitStem is the file stem marking a sub-namespace root.
const DefaultInitStem = "__init__"

// IndexOptions configures how a package tree is classified.
type IndexOptions struct {
	// Suffixes are the recognized source suffixes, including the dot.
	Suffixes []string
	// Exclude holds doublestar patterns, matched against slash-separated
	// paths relative to the package root. Matching entries are skipped.
	Exclude []string
	// InitStem defaults to DefaultInitStem.
	InitStem string
	Logger   *slog.Logger
}

// ModuleIndex maps every module of a package to its source file and keeps
// the package's opaque resources.
//
// Modules are addressed by ModulePath. A file named after InitStem is the
// entry of its enclosing directory (a package marker); any other source
// file is a leaf named after its stem.
type ModuleIndex struct {
	root     string
	suffixes map[string]bool
	exclude  []string
	initStem string
	logger   *slog.Logger

	load func() (*indexData, error)
}

type indexData struct {
	modules   map[types.ModulePath]string
	resources []string // absolute paths
}

// NewModuleIndex creates an index of the package rooted at root. The tree is
// walked on first use.
func NewModuleIndex(root string, opts IndexOptions) (*ModuleIndex, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &types.RefactorError{Type: types.FileSystemError, Message: fmt.Sprintf("failed to resolve %s: %v", root, err), Cause: err}
	}
	if err := ValidateExclude(opts.Exclude); err != nil {
		return nil, err
	}

	idx := &ModuleIndex{
		root:     filepath.Clean(abs),
		suffixes: make(map[string]bool, len(opts.Suffixes)),
		exclude:  opts.Exclude,
		initStem: opts.InitStem,
		logger:   opts.Logger,
	}
	for _, s := range opts.Suffixes {
		idx.suffixes[s] = true
	}
	if idx.initStem == "" {
		idx.initStem = DefaultInitStem
	}
	if idx.logger == nil {
		idx.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	idx.load = sync.OnceValues(idx.build)
	return idx, nil
}

// Root returns the absolute package directory.
func (idx *ModuleIndex) Root() string { return idx.root }

// Package returns the package name, i.e. the root directory name.
func (idx *ModuleIndex) Package() string { return filepath.Base(idx.root) }

// InitStem returns the stem of package marker files.
func (idx *ModuleIndex) InitStem() string { return idx.initStem }

// Load walks the tree if it has not been walked yet.
func (idx *ModuleIndex) Load() error {
	_, err := idx.load()
	return err
}

func (idx *ModuleIndex) build() (*indexData, error) {
	data := &indexData{modules: make(map[types.ModulePath]string)}
	pkg := idx.Package()
	if !types.IsIdentifier(pkg) {
		return nil, types.NewError(types.InvalidOperation, "package name %q is not an identifier", pkg)
	}

	err := filepath.WalkDir(idx.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(idx.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && idx.excluded(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		module, ok := idx.moduleFor(rel)
		if !ok {
			data.resources = append(data.resources, path)
			return nil
		}
		if prev, exists := data.modules[module]; exists {
			return &types.RefactorError{
				Type:    types.DuplicateModule,
				Message: fmt.Sprintf("module %s is defined by both %s and %s", module, prev, path),
				File:    path,
			}
		}
		data.modules[module] = path
		return nil
	})
	if err != nil {
		if types.IsErrorType(err, types.DuplicateModule) {
			return nil, err
		}
		return nil, &types.RefactorError{Type: types.FileSystemError, Message: fmt.Sprintf("failed to index %s: %v", idx.root, err), Cause: err}
	}

	sort.Strings(data.resources)
	idx.logger.Debug("package indexed",
		"package", pkg,
		"modules", len(data.modules),
		"resources", len(data.resources),
	)
	return data, nil
}

func (idx *ModuleIndex) excluded(rel string, dir bool) bool {
	return MatchExclude(idx.exclude, rel, dir)
}

// MatchExclude reports whether the slash-separated path rel, relative to a
// package root, matches one of the doublestar patterns. A directory also
// matches a pattern that only matches its contents, so "**/x/**" prunes x.
func MatchExclude(patterns []string, rel string, dir bool) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if dir {
			if ok, _ := doublestar.Match(pattern, rel+"/"); ok {
				return true
			}
		}
	}
	return false
}

// ValidateExclude rejects malformed doublestar patterns.
func ValidateExclude(patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return types.NewError(types.InvalidOperation, "invalid exclude pattern %q", pattern)
		}
	}
	return nil
}

// moduleFor converts a slash-separated path relative to the root into a
// module path. Files without a recognized suffix, or whose location cannot
// be expressed with identifier segments, are resources.
func (idx *ModuleIndex) moduleFor(rel string) (types.ModulePath, bool) {
	ext := filepath.Ext(rel)
	if !idx.suffixes[ext] {
		return types.ModulePath{}, false
	}
	parts := strings.Split(strings.TrimSuffix(rel, ext), "/")
	stem := parts[len(parts)-1]
	if stem == idx.initStem {
		parts = parts[:len(parts)-1]
	}
	module := types.NewModulePath(append([]string{idx.Package()}, parts...)...)
	if err := module.Validate(); err != nil {
		idx.logger.Debug("source file treated as resource", "file", rel, "reason", err)
		return types.ModulePath{}, false
	}
	return module, true
}

func (idx *ModuleIndex) data() *indexData {
	data, err := idx.load()
	if err != nil {
		return &indexData{}
	}
	return data
}

// Contains reports whether module is indexed. A failed walk indexes nothing;
// call Load to observe the error.
func (idx *ModuleIndex) Contains(module types.ModulePath) bool {
	_, ok := idx.data().modules[module]
	return ok
}

// Get returns the source file of module.
func (idx *ModuleIndex) Get(module types.ModulePath) (string, error) {
	data, err := idx.load()
	if err != nil {
		return "", err
	}
	file, ok := data.modules[module]
	if !ok {
		return "", types.NewError(types.ModuleNotFound, "module %s is not indexed", module)
	}
	return file, nil
}

// IsPackage reports whether module is a package marker.
func (idx *ModuleIndex) IsPackage(module types.ModulePath) bool {
	file, ok := idx.data().modules[module]
	if !ok {
		return false
	}
	return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)) == idx.initStem
}

// Len returns the number of modules.
func (idx *ModuleIndex) Len() int {
	return len(idx.data().modules)
}

// Modules returns every indexed module, sorted by dotted name.
func (idx *ModuleIndex) Modules() []types.ModulePath {
	data := idx.data()
	mods := make([]types.ModulePath, 0, len(data.modules))
	for m := range data.modules {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].String() < mods[j].String() })
	return mods
}

// Resource is an opaque file carried through unchanged.
type Resource struct {
	// Rel is relative to the parent of the package root, so it starts with
	// the package name.
	Rel    string
	Source string
}

// Resources returns the package resources, sorted by relative path.
func (idx *ModuleIndex) Resources() []Resource {
	parent := filepath.Dir(idx.root)
	data := idx.data()
	res := make([]Resource, 0, len(data.resources))
	for _, path := range data.resources {
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			continue
		}
		res = append(res, Resource{Rel: rel, Source: path})
	}
	return res
}
