package refactor

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/mamaar/merak/pkg/analysis"
	"github.com/mamaar/merak/pkg/types"
)

var futureImportRE = regexp.MustCompile(`^from\s+__future__\s+import`)

// Options configures a Restructurer.
type Options struct {
	// Suffixes are the recognized source suffixes, including the dot.
	Suffixes []string
	// Exclude holds doublestar patterns relative to the package root.
	Exclude  []string
	InitStem string
	Logger   *slog.Logger
	// NewAlias generates temporary names for ImportModuleMover.
	NewAlias func() string
}

// Restructurer rewrites the imports of a whole package and writes the
// restructured package out.
//
// Transform phases are registered with SplitImports, AbsolufyImports and
// RestructureModules and applied in registration order to every module.
// Editors are created on first access and catch up on every phase
// registered before they existed; a phase is never applied twice to the
// same plan.
type Restructurer struct {
	index  *analysis.ModuleIndex
	logger *slog.Logger
	opts   Options

	mu         sync.Mutex
	editors    map[types.ModulePath]*Editor
	phases     []Transform
	fns        Chain
	injections map[types.ModulePath]string
}

// NewRestructurer creates a session for the package rooted at root. The
// package is indexed on first use.
func NewRestructurer(root string, opts Options) (*Restructurer, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(opts.Suffixes) == 0 {
		opts.Suffixes = []string{".py"}
	}
	idx, err := analysis.NewModuleIndex(root, analysis.IndexOptions{
		Suffixes: opts.Suffixes,
		Exclude:  opts.Exclude,
		InitStem: opts.InitStem,
		Logger:   opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Restructurer{
		index:      idx,
		logger:     opts.Logger,
		opts:       opts,
		editors:    make(map[types.ModulePath]*Editor),
		injections: make(map[types.ModulePath]string),
	}, nil
}

// Index returns the package index, walking the tree if needed.
func (r *Restructurer) Index() (*analysis.ModuleIndex, error) {
	if err := r.index.Load(); err != nil {
		return nil, err
	}
	return r.index, nil
}

// Package returns the package name.
func (r *Restructurer) Package() string {
	return r.index.Package()
}

// SplitImports registers a phase splitting imports into one name per
// statement.
func (r *Restructurer) SplitImports() error {
	return r.addPhase(ImportSplitter{}, nil)
}

// AbsolufyImports registers a phase making relative imports absolute.
func (r *Restructurer) AbsolufyImports() error {
	return r.addPhase(ImportAbsolutizer{}, nil)
}

// RestructureModules registers fn as the next module function and a phase
// rewriting imports of the modules it moves. Module functions compose left
// to right.
func (r *Restructurer) RestructureModules(fn ModuleFn) error {
	if fn == nil {
		return types.NewError(types.InvalidOperation, "nil module function")
	}
	return r.addPhase(&ImportModuleMover{Fn: fn, NewAlias: r.opts.NewAlias}, fn)
}

func (r *Restructurer) addPhase(t Transform, fn ModuleFn) error {
	idx, err := r.Index()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, t)
	if fn != nil {
		r.fns = append(r.fns, fn)
	}
	r.logger.Debug("applying transform phase", "phase", len(r.phases), "transform", fmt.Sprintf("%T", t))

	for _, m := range idx.Modules() {
		if _, err := r.editorLocked(m); err != nil {
			return err
		}
	}
	return nil
}

// editorLocked returns the caught-up editor of m. r.mu must be held.
func (r *Restructurer) editorLocked(m types.ModulePath) (*Editor, error) {
	e, ok := r.editors[m]
	if !ok {
		file, err := r.index.Get(m)
		if err != nil {
			return nil, err
		}
		e = NewEditor(file)
		r.editors[m] = e
	}
	ctx := &ModuleContext{Path: m, Index: r.index, Logger: r.logger}
	if err := e.catchUp(ctx, r.phases); err != nil {
		return nil, err
	}
	return e, nil
}

// InjectCode prepends code to the reconstructed text of module, after any
// "from __future__ import" lines. Injecting into the package root works even
// when the root has no marker file; one is created on save.
func (r *Restructurer) InjectCode(module types.ModulePath, code string) error {
	idx, err := r.Index()
	if err != nil {
		return err
	}
	if !idx.Contains(module) && module.String() != idx.Package() {
		return types.NewError(types.ModuleNotFound, "cannot inject code into unknown module %s", module)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.injections[module] = code
	return nil
}

// Resolve returns the restructured path of module.
func (r *Restructurer) Resolve(module types.ModulePath) (types.ModulePath, error) {
	r.mu.Lock()
	fns := append(Chain(nil), r.fns...)
	r.mu.Unlock()
	return Remap(fns, module)
}

// Modules returns the restructured dotted names of every module below the
// package root, sorted.
func (r *Restructurer) Modules() ([]string, error) {
	idx, err := r.Index()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var mods []string
	for _, m := range idx.Modules() {
		if m.Len() < 2 {
			continue
		}
		moved, err := r.Resolve(m)
		if err != nil {
			return nil, err
		}
		if !seen[moved.String()] {
			seen[moved.String()] = true
			mods = append(mods, moved.String())
		}
	}
	sort.Strings(mods)
	return mods, nil
}

// Subpackages returns the original dotted names of every package marker
// below the package root, sorted.
func (r *Restructurer) Subpackages() ([]string, error) {
	idx, err := r.Index()
	if err != nil {
		return nil, err
	}
	var pkgs []string
	for _, m := range idx.Modules() {
		if m.Len() > 1 && idx.IsPackage(m) {
			pkgs = append(pkgs, m.String())
		}
	}
	return pkgs, nil
}

// Destination is where one module is written, relative to the output root.
type Destination struct {
	Module types.ModulePath
	Target types.ModulePath
	// Rel is slash-separated and starts with the package name.
	Rel string
	// Source is empty for a marker file created only to carry injected code.
	Source string
}

// Destinations resolves the output file of every module, sorted by Rel.
func (r *Restructurer) Destinations() ([]Destination, error) {
	idx, err := r.Index()
	if err != nil {
		return nil, err
	}
	var dests []Destination
	for _, m := range idx.Modules() {
		file, err := idx.Get(m)
		if err != nil {
			return nil, err
		}
		target, err := r.Resolve(m)
		if err != nil {
			return nil, err
		}
		dests = append(dests, Destination{
			Module: m,
			Target: target,
			Rel:    r.destinationRel(target, filepath.Ext(file)),
			Source: file,
		})
	}

	root := types.ParseModulePath(idx.Package())
	r.mu.Lock()
	_, injected := r.injections[root]
	r.mu.Unlock()
	if injected && !idx.Contains(root) {
		dests = append(dests, Destination{
			Module: root,
			Target: root,
			Rel:    r.destinationRel(root, r.opts.Suffixes[0]),
		})
	}

	sort.Slice(dests, func(i, j int) bool { return dests[i].Rel < dests[j].Rel })
	return dests, nil
}

func (r *Restructurer) destinationRel(target types.ModulePath, suffix string) string {
	segs := target.Segments()
	if target.Len() == 1 || r.index.IsPackage(target) {
		return strings.Join(append(segs, r.index.InitStem()+suffix), "/")
	}
	return strings.Join(segs, "/") + suffix
}

// CheckConflicts returns a *types.ConflictError when two modules resolve to
// the same destination.
func CheckConflicts(dests []Destination) error {
	byRel := make(map[string][]string)
	for _, d := range dests {
		byRel[d.Rel] = append(byRel[d.Rel], d.Module.String())
	}
	conflicts := make(map[string][]string)
	for rel, mods := range byRel {
		if len(mods) > 1 {
			conflicts[rel] = mods
		}
	}
	if len(conflicts) > 0 {
		return &types.ConflictError{Destinations: conflicts}
	}
	return nil
}

// Read returns the current reconstructed text of module, including injected
// code.
func (r *Restructurer) Read(module types.ModulePath) (string, error) {
	if _, err := r.Index(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.textLocked(module)
}

func (r *Restructurer) textLocked(module types.ModulePath) (string, error) {
	code, injected := r.injections[module]
	var text string
	if r.index.Contains(module) || !injected {
		e, err := r.editorLocked(module)
		if err != nil {
			return "", err
		}
		if text, err = e.Text(); err != nil {
			return "", err
		}
	}
	if !injected {
		return text, nil
	}
	return injectCode(text, code), nil
}

// injectCode places code ahead of text, keeping future imports first.
func injectCode(text, code string) string {
	var tops, body strings.Builder
	for rest := text; rest != ""; {
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i+1]
		}
		rest = rest[len(line):]
		if futureImportRE.MatchString(line) {
			tops.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				tops.WriteString("\n")
			}
			continue
		}
		body.WriteString(line)
	}

	var b strings.Builder
	if tops.Len() > 0 {
		b.WriteString(tops.String())
		b.WriteString("\n")
	}
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(body.String())
	return b.String()
}
