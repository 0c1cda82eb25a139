package refactor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/mamaar/merak/pkg/types"
)

// resourceCopyLimit bounds concurrent resource copies.
const resourceCopyLimit = 8

// SaveOptions controls how output is committed.
type SaveOptions struct {
	// Force overwrites existing destination files.
	Force bool
}

// SaveModules writes every module to its restructured location under dest.
// An empty dest means the parent of the package root, i.e. in place.
//
// Nothing is written unless every module resolves to a distinct file, every
// module can be reconstructed, and, without Force, no destination file
// exists yet.
func (r *Restructurer) SaveModules(dest string, opts SaveOptions) error {
	dests, err := r.Destinations()
	if err != nil {
		return err
	}
	if err := CheckConflicts(dests); err != nil {
		return err
	}
	if dest == "" {
		dest = filepath.Dir(r.index.Root())
	}

	if !opts.Force {
		var existing []string
		for _, d := range dests {
			path := filepath.Join(dest, filepath.FromSlash(d.Rel))
			if _, err := os.Lstat(path); err == nil {
				existing = append(existing, path)
			}
		}
		if len(existing) > 0 {
			return types.NewError(types.DestinationExists,
				"destination files already exist (use force to overwrite): %s", strings.Join(existing, ", "))
		}
	}

	texts := make(map[string]string, len(dests))
	r.mu.Lock()
	for _, d := range dests {
		text, err := r.textLocked(d.Module)
		if err != nil {
			r.mu.Unlock()
			return err
		}
		texts[d.Rel] = text
	}
	r.mu.Unlock()

	for _, d := range dests {
		path := filepath.Join(dest, filepath.FromSlash(d.Rel))
		if err := writeFile(path, texts[d.Rel]); err != nil {
			return err
		}
		r.logger.Debug("module written", "module", d.Module.String(), "target", d.Target.String(), "path", path)
	}
	r.logger.Info("modules saved", "package", r.Package(), "count", len(dests), "destination", dest)
	return nil
}

func writeFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fsError(path, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fsError(path, err)
	}
	return nil
}

func fsError(path string, err error) error {
	return &types.RefactorError{
		Type:    types.FileSystemError,
		Message: fmt.Sprintf("%s: %v", path, err),
		File:    path,
		Cause:   err,
	}
}

// SaveResources copies the package's non-source files to mirrored
// locations under dest. Copying onto the package's own parent directory is
// skipped with a warning.
func (r *Restructurer) SaveResources(dest string) error {
	idx, err := r.Index()
	if err != nil {
		return err
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return fsError(dest, err)
	}
	if filepath.Clean(absDest) == filepath.Dir(idx.Root()) {
		r.logger.Warn("destination same as resource source, resource copy skipped", "destination", absDest)
		return nil
	}

	resources := idx.Resources()
	var total atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(resourceCopyLimit)
	for _, res := range resources {
		g.Go(func() error {
			n, err := CopyFile(res.Source, filepath.Join(absDest, res.Rel))
			total.Add(n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.logger.Info("resources copied",
		"count", len(resources),
		"size", humanize.Bytes(uint64(total.Load())),
		"destination", absDest,
	)
	return nil
}

// CopyFile copies src to dst, creating dst's directory and keeping the
// mode and modification time. Failures are FileSystemError.
func CopyFile(src, dst string) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fsError(src, err)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, fsError(src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fsError(dst, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, fsError(dst, err)
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fsError(dst, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return n, fsError(dst, err)
	}
	return n, nil
}
