package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// RefactorError represents errors in restructuring operations
type RefactorError struct {
	Type    ErrorType
	Message string
	File    string
	Line    int
	Column  int
	Cause   error
}

func (e *RefactorError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return e.Message
}

func (e *RefactorError) Unwrap() error {
	return e.Cause
}

type ErrorType int

const (
	ParseError ErrorType = iota
	InvalidOperation
	ModuleNotFound
	DuplicateModule
	DestinationConflict
	DestinationExists
	BuildFailure
	FileSystemError
)

func (t ErrorType) String() string {
	switch t {
	case ParseError:
		return "ParseError"
	case InvalidOperation:
		return "InvalidOperation"
	case ModuleNotFound:
		return "ModuleNotFound"
	case DuplicateModule:
		return "DuplicateModule"
	case DestinationConflict:
		return "DestinationConflict"
	case DestinationExists:
		return "DestinationExists"
	case BuildFailure:
		return "BuildFailure"
	case FileSystemError:
		return "FileSystemError"
	default:
		return "Unknown"
	}
}

// NewError builds a RefactorError without location information.
func NewError(t ErrorType, format string, args ...any) *RefactorError {
	return &RefactorError{Type: t, Message: fmt.Sprintf(format, args...)}
}

// IsErrorType reports whether err (or anything it wraps) is a RefactorError
// or ConflictError of type t.
func IsErrorType(err error, t ErrorType) bool {
	var re *RefactorError
	if errors.As(err, &re) && re.Type == t {
		return true
	}
	var ce *ConflictError
	return t == DestinationConflict && errors.As(err, &ce)
}

// ConflictError is raised before any write when two or more modules remap
// to the same destination file.
type ConflictError struct {
	// Destinations maps a root-relative destination path to every original
	// dotted module path that resolves to it.
	Destinations map[string][]string
}

func (e *ConflictError) Error() string {
	dests := make([]string, 0, len(e.Destinations))
	for d := range e.Destinations {
		dests = append(dests, d)
	}
	sort.Strings(dests)

	var msg strings.Builder
	msg.WriteString("conflicting restructured module paths:")
	for _, d := range dests {
		mods := append([]string(nil), e.Destinations[d]...)
		sort.Strings(mods)
		fmt.Fprintf(&msg, "\n%s: (%s)", d, strings.Join(mods, ", "))
	}
	return msg.String()
}

// Modules returns every original module named by the conflict, sorted.
func (e *ConflictError) Modules() []string {
	var mods []string
	for _, ms := range e.Destinations {
		mods = append(mods, ms...)
	}
	sort.Strings(mods)
	return mods
}
