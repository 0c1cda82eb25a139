package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mamaar/merak/pkg/refactor"
	"github.com/mamaar/merak/pkg/types"
)

// Defaults used when Options leave a field empty.
const (
	DefaultSep    = "_"
	DefaultPrefix = "___"
	DefaultPyCmd  = "python"
)

// Options configures a Builder.
type Options struct {
	Suffixes []string
	Exclude  []string
	Sep      string
	Prefix   string
	// PyCmd is the Python interpreter command; it may carry arguments,
	// e.g. "uv run python".
	PyCmd string
	// Force replaces an existing build result.
	Force bool
	// TempRoot is where the working directory is created; defaults to the
	// system temporary directory.
	TempRoot string
	Logger   *slog.Logger
}

// Builder compiles a package into binary extension modules: the package is
// flattened into a temporary directory, a setup.py is generated next to it
// and `<py-cmd> setup.py build_ext` builds the result.
type Builder struct {
	root    string
	opts    Options
	flatten *refactor.FlattenFn
	logger  *slog.Logger
}

// NewBuilder validates opts for the package rooted at root.
func NewBuilder(root string, opts Options) (*Builder, error) {
	if opts.Sep == "" {
		opts.Sep = DefaultSep
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if strings.TrimSpace(opts.PyCmd) == "" {
		opts.PyCmd = DefaultPyCmd
	}
	if len(opts.Suffixes) == 0 {
		opts.Suffixes = []string{".py"}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fn, err := refactor.NewFlattenFn(opts.Sep, opts.Prefix)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), Cause: err}
	}
	return &Builder{root: abs, opts: opts, flatten: fn, logger: opts.Logger}, nil
}

// Package returns the package name.
func (b *Builder) Package() string { return filepath.Base(b.root) }

// Build compiles the package and places the result at output/<package>.
// The temporary working directory is removed on every path.
func (b *Builder) Build(ctx context.Context, output string) error {
	start := time.Now()
	pkg := b.Package()
	target := filepath.Join(output, pkg)
	if _, err := os.Lstat(target); err == nil && !b.opts.Force {
		return types.NewError(types.DestinationExists, "build target %s already exists (use force to overwrite)", target)
	}

	tmp, err := os.MkdirTemp(b.opts.TempRoot, "merak-build-")
	if err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: fmt.Sprintf("failed to create temporary directory: %v", err), Cause: err}
	}
	defer func() {
		if err := os.RemoveAll(tmp); err != nil {
			b.logger.Warn("failed to remove temporary directory", "path", tmp, "err", err)
		}
	}()

	b.logger.Info("restructuring package", "package", pkg, "workdir", tmp)
	if _, err := b.Restructure(tmp); err != nil {
		return err
	}

	setup, err := RenderSetup(pkg, b.opts.Suffixes...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(tmp, "setup.py"), []byte(setup), 0o644); err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: "setup.py", Cause: err}
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	buildDir := "cy_build_" + id
	if err := b.compile(ctx, tmp, buildDir, "cy_tmp_"+id); err != nil {
		return err
	}

	b.logger.Info("copying build result", "target", target)
	if b.opts.Force {
		if err := os.RemoveAll(target); err != nil {
			return &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: target, Cause: err}
		}
	}
	if err := copyTree(filepath.Join(tmp, buildDir, pkg), target); err != nil {
		return err
	}
	b.logger.Info("package built", "package", pkg, "target", target, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Root returns the absolute package directory.
func (b *Builder) Root() string { return b.root }

// Session opens a restructuring session over the package with imports
// split, absolutized and flattened. Nothing is written.
func (b *Builder) Session() (*refactor.Restructurer, error) {
	r, err := refactor.NewRestructurer(b.root, refactor.Options{
		Suffixes: b.opts.Suffixes,
		Exclude:  b.opts.Exclude,
		Logger:   b.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := r.SplitImports(); err != nil {
		return nil, err
	}
	if err := r.AbsolufyImports(); err != nil {
		return nil, err
	}
	if err := r.RestructureModules(b.flatten); err != nil {
		return nil, err
	}
	return r, nil
}

// Restructure writes the flattened package, with the module finder injected
// into its root, and its resources under dest. Existing files are only
// overwritten with Force.
func (b *Builder) Restructure(dest string) (*refactor.Restructurer, error) {
	r, err := b.Session()
	if err != nil {
		return nil, err
	}

	mods, err := r.Modules()
	if err != nil {
		return nil, err
	}
	subs, err := r.Subpackages()
	if err != nil {
		return nil, err
	}
	finder, err := RenderFinder(FinderData{
		Package:     r.Package(),
		Modules:     mods,
		Subpackages: subs,
		Sep:         b.opts.Sep,
		Prefix:      b.opts.Prefix,
	})
	if err != nil {
		return nil, err
	}
	if err := r.InjectCode(types.ParseModulePath(r.Package()), finder); err != nil {
		return nil, err
	}

	if err := r.SaveModules(dest, refactor.SaveOptions{Force: b.opts.Force}); err != nil {
		return nil, err
	}
	if err := r.SaveResources(dest); err != nil {
		return nil, err
	}
	return r, nil
}

// compile runs the build command once inside dir. A non-zero exit is a
// BuildFailure carrying the command's stderr.
func (b *Builder) compile(ctx context.Context, dir, buildDir, tmpDir string) error {
	fields := strings.Fields(b.opts.PyCmd)
	args := append(fields[1:], "setup.py", "build_ext", "-b", buildDir, "-t", tmpDir)
	cmd := exec.CommandContext(ctx, fields[0], args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	b.logger.Debug("running build command", "cmd", cmd.String(), "dir", dir)
	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		b.logger.Debug("build output", "stdout", out)
	}
	if err != nil {
		return &types.RefactorError{
			Type:    types.BuildFailure,
			Message: fmt.Sprintf("build command %q failed: %v\n%s", b.opts.PyCmd, err, stderr.String()),
			Cause:   err,
		}
	}
	return nil
}

// copyTree copies the directory src to dst, which must not exist yet.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return &types.RefactorError{Type: types.BuildFailure, Message: fmt.Sprintf("build produced no output at %s", src), Cause: err}
	}
	if !info.IsDir() {
		return types.NewError(types.BuildFailure, "build output %s is not a directory", src)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: path, Cause: err}
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			if err := os.MkdirAll(out, 0o755); err != nil {
				return &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: out, Cause: err}
			}
			return nil
		}
		_, err = refactor.CopyFile(path, out)
		return err
	})
}
