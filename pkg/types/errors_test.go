package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRefactorError_Error(t *testing.T) {
	testCases := []struct {
		name     string
		err      *RefactorError
		expected string
	}{
		{
			name: "With file location",
			err: &RefactorError{
				Type:    ParseError,
				Message: "unterminated string",
				File:    "/pkg/foo/a.py",
				Line:    15,
				Column:  10,
			},
			expected: "/pkg/foo/a.py:15:10: unterminated string",
		},
		{
			name: "Without file location",
			err: &RefactorError{
				Type:    ModuleNotFound,
				Message: "module foo.x not indexed",
			},
			expected: "module foo.x not indexed",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := tc.err.Error()
			if result != tc.expected {
				t.Errorf("Expected error message '%s', got '%s'", tc.expected, result)
			}
		})
	}
}

func TestRefactorError_Unwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := &RefactorError{
		Type:    FileSystemError,
		Message: "write failed",
		Cause:   cause,
	}

	if !errors.Is(err, cause) {
		t.Errorf("Expected errors.Is to find the cause")
	}

	errNoCause := &RefactorError{Type: ParseError, Message: "Parse failed"}
	if errNoCause.Unwrap() != nil {
		t.Errorf("Expected unwrapped error to be nil, got %v", errNoCause.Unwrap())
	}
}

func TestErrorType_String(t *testing.T) {
	testCases := []struct {
		errType  ErrorType
		expected string
	}{
		{ParseError, "ParseError"},
		{InvalidOperation, "InvalidOperation"},
		{ModuleNotFound, "ModuleNotFound"},
		{DuplicateModule, "DuplicateModule"},
		{DestinationConflict, "DestinationConflict"},
		{DestinationExists, "DestinationExists"},
		{BuildFailure, "BuildFailure"},
		{FileSystemError, "FileSystemError"},
		{ErrorType(99), "Unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if got := tc.errType.String(); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestIsErrorType(t *testing.T) {
	wrapped := fmt.Errorf("index: %w", NewError(DuplicateModule, "foo.a defined twice"))
	if !IsErrorType(wrapped, DuplicateModule) {
		t.Errorf("Expected wrapped DuplicateModule to be detected")
	}
	if IsErrorType(wrapped, ParseError) {
		t.Errorf("Did not expect ParseError")
	}

	conflict := fmt.Errorf("save: %w", &ConflictError{Destinations: map[string][]string{"x/y.py": {"x.a", "x.b"}}})
	if !IsErrorType(conflict, DestinationConflict) {
		t.Errorf("Expected ConflictError to count as DestinationConflict")
	}
}

func TestConflictError_Error(t *testing.T) {
	err := &ConflictError{Destinations: map[string][]string{
		"x/___q.py": {"x.b", "x.a"},
		"x/___p.py": {"x.c.d", "x.c_d"},
	}}

	msg := err.Error()
	lines := strings.Split(msg, "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d: %q", len(lines), msg)
	}
	if lines[1] != "x/___p.py: (x.c.d, x.c_d)" {
		t.Errorf("Unexpected first conflict line %q", lines[1])
	}
	if lines[2] != "x/___q.py: (x.a, x.b)" {
		t.Errorf("Unexpected second conflict line %q", lines[2])
	}

	mods := err.Modules()
	want := []string{"x.a", "x.b", "x.c.d", "x.c_d"}
	if strings.Join(mods, ",") != strings.Join(want, ",") {
		t.Errorf("Expected modules %v, got %v", want, mods)
	}
}
