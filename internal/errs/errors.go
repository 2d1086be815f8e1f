// Package errs defines the error kinds shared by the fractal core and its adapters.
//
// Every typed error reports its kind through errors.Is against one of the
// sentinels below, so adapters can branch on the kind without knowing the
// concrete type:
//
//	if errors.Is(err, errs.ErrNotGenerated) {
//	    // render or histogram requested before a grid exists
//	}
package errs

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	// ErrNotGenerated indicates an operation that needs a computed grid ran before one existed.
	ErrNotGenerated = errors.New("fractal: not generated")

	// ErrPaletteFormat indicates a palette definition that could not be parsed or validated.
	ErrPaletteFormat = errors.New("fractal: malformed palette")

	// ErrIO indicates a filesystem failure.
	ErrIO = errors.New("fractal: i/o failure")

	// ErrInvalidInput indicates request parameters rejected before reaching the core.
	ErrInvalidInput = errors.New("fractal: invalid input")
)

// PaletteFormatError describes why a palette definition was rejected.
type PaletteFormatError struct {
	Source string // file name or "<upload>"
	Entry  int    // zero-based entry index, -1 when not entry specific
	Field  string
	Err    error
}

func (e *PaletteFormatError) Error() string {
	msg := fmt.Sprintf("palette %s", e.Source)
	if e.Entry >= 0 {
		msg += fmt.Sprintf(" entry %d", e.Entry)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PaletteFormatError) Unwrap() error { return e.Err }

// Is implements errors.Is support.
func (e *PaletteFormatError) Is(target error) bool { return target == ErrPaletteFormat }

// NewPaletteFormatError creates a PaletteFormatError with a formatted cause.
func NewPaletteFormatError(source string, entry int, field, format string, args ...any) *PaletteFormatError {
	return &PaletteFormatError{Source: source, Entry: entry, Field: field, Err: fmt.Errorf(format, args...)}
}

// IOError wraps a filesystem failure with the operation and path involved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Is implements errors.Is support.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// NewIOError creates an IOError. A nil err yields nil.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// ValidationError represents a rejected request parameter.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
	}
	return "invalid input: " + e.Message
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}
