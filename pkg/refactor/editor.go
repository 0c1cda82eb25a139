package refactor

import (
	"fmt"
	"os"
	"sync"

	"github.com/mamaar/merak/pkg/analysis"
	"github.com/mamaar/merak/pkg/types"
)

// Editor holds one loaded source unit. Its import statements are collected
// into a plan on first use; transforms then rewrite the plan in place and
// Text reconstructs the unit.
type Editor struct {
	file string

	mu      sync.Mutex
	load    func() (*editorState, error)
	applied int
}

type editorState struct {
	original string
	plan     *Plan
}

// NewEditor creates an editor for file. Nothing is read until the plan or
// text is requested.
func NewEditor(file string) *Editor {
	e := &Editor{file: file}
	e.load = sync.OnceValues(e.parse)
	return e
}

// File returns the source file.
func (e *Editor) File() string { return e.file }

func (e *Editor) parse() (*editorState, error) {
	src, records, err := analysis.ParseImportsFile(e.file)
	if err != nil {
		return nil, err
	}
	plan := NewPlan()
	for _, rec := range records {
		span := NewSpan(rec.StartLine, rec.EndLine, rec.Indent)
		for _, f := range rec.Fragments {
			if err := span.Add(f); err != nil {
				return nil, err
			}
		}
		if err := plan.Add(span); err != nil {
			return nil, fmt.Errorf("%s: %w", e.file, err)
		}
	}
	return &editorState{original: src, plan: plan}, nil
}

// Plan returns the unit's rewrite plan.
func (e *Editor) Plan() (*Plan, error) {
	st, err := e.load()
	if err != nil {
		return nil, err
	}
	return st.plan, nil
}

// Original returns the unit's text as read from disk.
func (e *Editor) Original() (string, error) {
	st, err := e.load()
	if err != nil {
		return "", err
	}
	return st.original, nil
}

// Text reconstructs the unit from its current plan.
func (e *Editor) Text() (string, error) {
	st, err := e.load()
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Render(st.original, st.plan), nil
}

// Applied returns the number of phases applied to the plan.
func (e *Editor) Applied() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

// catchUp applies the phases the plan has not seen yet, in order. A phase is
// counted as applied only once it went through the whole plan.
func (e *Editor) catchUp(ctx *ModuleContext, phases []Transform) error {
	st, err := e.load()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.applied < len(phases) {
		if err := st.plan.Transform(bind(ctx, phases[e.applied])); err != nil {
			return wrapModuleError(ctx.Path, e.file, err)
		}
		e.applied++
	}
	return nil
}

// Save writes the reconstructed text to file, or to the editor's own file
// when file is empty.
func (e *Editor) Save(file string) error {
	text, err := e.Text()
	if err != nil {
		return err
	}
	if file == "" {
		file = e.file
	}
	if err := os.WriteFile(file, []byte(text), 0o644); err != nil {
		return &types.RefactorError{
			Type:    types.FileSystemError,
			Message: fmt.Sprintf("failed to write %s: %v", file, err),
			File:    file,
			Cause:   err,
		}
	}
	return nil
}

func wrapModuleError(module types.ModulePath, file string, err error) error {
	return fmt.Errorf("module %s (%s): %w", module, file, err)
}
