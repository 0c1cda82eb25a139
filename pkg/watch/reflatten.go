package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mamaar/merak/pkg/build"
	"github.com/mamaar/merak/pkg/types"
)

// Reflattener regenerates the flattened package under an output directory
// whenever the source tree changes. Every batch runs a fresh session; no
// state is carried between batches.
type Reflattener struct {
	builder *build.Builder
	output  string
	logger  *slog.Logger
}

// NewReflattener creates a Reflattener writing to output/<package>. The
// output may not lie inside the watched tree, and may not be the package's
// own parent directory.
func NewReflattener(b *build.Builder, output string, logger *slog.Logger) (*Reflattener, error) {
	out, err := filepath.Abs(output)
	if err != nil {
		return nil, &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), Cause: err}
	}
	root := b.Root()
	if out == filepath.Dir(root) {
		return nil, types.NewError(types.InvalidOperation, "output %s would overwrite the sources of %s", out, root)
	}
	if out == root || strings.HasPrefix(out, root+string(filepath.Separator)) {
		return nil, types.NewError(types.InvalidOperation, "output %s lies inside the watched package %s", out, root)
	}
	return &Reflattener{builder: b, output: out, logger: logger}, nil
}

// Target returns the directory the flattened package is written to.
func (f *Reflattener) Target() string {
	return filepath.Join(f.output, f.builder.Package())
}

// Flatten writes a fresh flattened copy of the package. The result is
// staged next to the target and swapped in only once complete, so a failed
// run leaves the previous output in place.
func (f *Reflattener) Flatten() error {
	if err := os.MkdirAll(f.output, 0o755); err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: f.output, Cause: err}
	}
	stage, err := os.MkdirTemp(f.output, ".merak-")
	if err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: f.output, Cause: err}
	}
	defer func() { _ = os.RemoveAll(stage) }()

	if _, err := f.builder.Restructure(stage); err != nil {
		return err
	}

	target := f.Target()
	if err := os.RemoveAll(target); err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: err.Error(), File: target, Cause: err}
	}
	if err := os.Rename(filepath.Join(stage, f.builder.Package()), target); err != nil {
		return &types.RefactorError{Type: types.FileSystemError, Message: fmt.Sprintf("failed to publish %s: %v", target, err), File: target, Cause: err}
	}
	return nil
}

// HandleChanges re-flattens the package after a batch of file changes.
// Failures are logged; the next batch retries from scratch.
func (f *Reflattener) HandleChanges(events []ChangeEvent) {
	start := time.Now()

	var created, written, removed int
	for _, ev := range events {
		switch {
		case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
			removed++
		case ev.Op&fsnotify.Create != 0:
			created++
		case ev.Op&fsnotify.Write != 0:
			written++
		}
		f.logger.Debug("change", "file", ev.Rel, "op", ev.Op.String())
	}

	if err := f.Flatten(); err != nil {
		f.logger.Error("re-flatten failed", "err", err)
		return
	}

	f.logger.Info("batch complete",
		"created", created,
		"modified", written,
		"removed", removed,
		"target", f.Target(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
}
