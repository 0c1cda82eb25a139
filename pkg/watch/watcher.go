package watch

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mamaar/merak/pkg/analysis"
)

// DefaultDebounce is the quiet period used when Options leave it unset.
const DefaultDebounce = 300 * time.Millisecond

// ChangeEvent is the combined set of operations seen on one path during a
// batch.
type ChangeEvent struct {
	Path string
	// Rel is slash-separated and relative to the watched package root.
	Rel string
	Op  fsnotify.Op
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	// Suffixes restrict reported files. Resources are part of a flattened
	// package too, so an empty list reports every file.
	Suffixes []string
	// Exclude holds the doublestar patterns of the package index. Matching
	// directories are never watched and matching files are never reported.
	Exclude []string
	Logger  *slog.Logger
}

// Watcher follows a package tree and emits a batch of changes once the tree
// has been quiet for the debounce period.
type Watcher struct {
	root   string
	opts   Options
	logger *slog.Logger
	fsw    *fsnotify.Watcher
}

// NewWatcher starts watching every directory under root that is neither
// hidden nor excluded.
func NewWatcher(root string, opts Options) (*Watcher, error) {
	if err := analysis.ValidateExclude(opts.Exclude); err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{root: abs, opts: opts, logger: opts.Logger, fsw: fsw}
	if err := w.watchTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the absolute directory being watched.
func (w *Watcher) Root() string { return w.root }

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// watchTree adds dir and every eligible directory below it.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) skipDir(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	rel, ok := w.rel(path)
	return !ok || analysis.MatchExclude(w.opts.Exclude, rel, true)
}

func (w *Watcher) rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Run collects events until ctx is cancelled or the watcher is closed. Each
// relevant event restarts the debounce timer; when it fires, the pending
// changes are sent to out as one batch sorted by path.
func (w *Watcher) Run(ctx context.Context, out chan<- []ChangeEvent) error {
	var (
		pending = make(map[string]*ChangeEvent)
		quiet   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if quiet != nil {
			quiet.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.observe(ev, pending) {
				continue
			}
			if quiet == nil {
				quiet = time.NewTimer(w.opts.Debounce)
			} else {
				quiet.Reset(w.opts.Debounce)
			}
			fire = quiet.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)

		case <-fire:
			fire = nil
			batch := drain(pending)
			w.logger.Debug("change batch ready", "changes", len(batch))
			select {
			case out <- batch:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// observe records ev in pending and reports whether it was relevant. New
// directories are watched, together with anything created inside them
// before the watch was in place.
func (w *Watcher) observe(ev fsnotify.Event, pending map[string]*ChangeEvent) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, ok := w.rel(ev.Name)
	if !ok {
		return false
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			return w.observeDir(ev.Name, pending)
		}
	}
	return w.record(ev.Name, rel, ev.Op, pending)
}

func (w *Watcher) observeDir(dir string, pending map[string]*ChangeEvent) bool {
	if w.skipDir(dir) {
		return false
	}
	if err := w.watchTree(dir); err != nil {
		w.logger.Debug("could not watch new directory", "path", dir, "err", err)
	}
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && w.skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if rel, ok := w.rel(path); ok && w.record(path, rel, fsnotify.Create, pending) {
			found = true
		}
		return nil
	})
	return found
}

func (w *Watcher) record(path, rel string, op fsnotify.Op, pending map[string]*ChangeEvent) bool {
	if analysis.MatchExclude(w.opts.Exclude, rel, false) || !w.hasSuffix(rel) {
		return false
	}
	if ce, ok := pending[path]; ok {
		ce.Op |= op
	} else {
		pending[path] = &ChangeEvent{Path: path, Rel: rel, Op: op}
	}
	return true
}

func (w *Watcher) hasSuffix(rel string) bool {
	if len(w.opts.Suffixes) == 0 {
		return true
	}
	for _, s := range w.opts.Suffixes {
		if strings.HasSuffix(rel, s) {
			return true
		}
	}
	return false
}

// drain empties pending and returns its events sorted by path.
func drain(pending map[string]*ChangeEvent) []ChangeEvent {
	batch := make([]ChangeEvent, 0, len(pending))
	for path, ce := range pending {
		batch = append(batch, *ce)
		delete(pending, path)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}
