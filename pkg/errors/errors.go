package errors

import (
	"fmt"
	"io"
)

// MdrError is the interface implemented by all object-model errors.
type MdrError interface {
	error
	At() Site
	Kind() string // "TypeMismatch", "InvalidWrite", "DuplicateSignature", "ShapeInconsistency"
	// Message returns the error message without site info.
	Message() string
	Unwrap() error
}

// --- Concrete Error Types ---

// TypeMismatchError is raised when a tagged value is read as the wrong discriminant.
// It is a programming error and travels as a panic value.
type TypeMismatchError struct {
	Site
	Want  string
	Got   string
	Msg   string
	Cause error
}

func NewTypeMismatch(op, want, got string) *TypeMismatchError {
	return &TypeMismatchError{
		Site: Site{Op: op},
		Want: want,
		Got:  got,
		Msg:  fmt.Sprintf("expected %s, got %s", want, got),
	}
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("TypeMismatch%s: %s", e.Site, e.Msg)
}
func (e *TypeMismatchError) At() Site        { return e.Site }
func (e *TypeMismatchError) Kind() string    { return "TypeMismatch" }
func (e *TypeMismatchError) Message() string { return e.Msg }
func (e *TypeMismatchError) Unwrap() error   { return e.Cause }
func (e *TypeMismatchError) CausedBy(cause error) *TypeMismatchError {
	e.Cause = cause
	return e
}

// InvalidWriteError is returned when a write targets an undefined or locked descriptor.
type InvalidWriteError struct {
	Site
	Msg   string
	Cause error
}

func NewInvalidWrite(op, property, msg string) *InvalidWriteError {
	return &InvalidWriteError{Site: Site{Op: op, Property: property}, Msg: msg}
}

func (e *InvalidWriteError) Error() string {
	return fmt.Sprintf("InvalidWrite%s: %s", e.Site, e.Msg)
}
func (e *InvalidWriteError) At() Site        { return e.Site }
func (e *InvalidWriteError) Kind() string    { return "InvalidWrite" }
func (e *InvalidWriteError) Message() string { return e.Msg }
func (e *InvalidWriteError) Unwrap() error   { return e.Cause }
func (e *InvalidWriteError) CausedBy(cause error) *InvalidWriteError {
	e.Cause = cause
	return e
}

// DuplicateSignatureError is returned when a specialization collides with a cached one.
type DuplicateSignatureError struct {
	Site
	Mask  uint64
	Value uint64
	Msg   string
	Cause error
}

func NewDuplicateSignature(function string, mask, value uint64) *DuplicateSignatureError {
	return &DuplicateSignatureError{
		Site:  Site{Op: "CodeCache.Add", Function: function},
		Mask:  mask,
		Value: value,
		Msg:   fmt.Sprintf("signature 0x%X/0x%X already cached", value, mask),
	}
}

func (e *DuplicateSignatureError) Error() string {
	return fmt.Sprintf("DuplicateSignature%s: %s", e.Site, e.Msg)
}
func (e *DuplicateSignatureError) At() Site        { return e.Site }
func (e *DuplicateSignatureError) Kind() string    { return "DuplicateSignature" }
func (e *DuplicateSignatureError) Message() string { return e.Msg }
func (e *DuplicateSignatureError) Unwrap() error   { return e.Cause }
func (e *DuplicateSignatureError) CausedBy(cause error) *DuplicateSignatureError {
	e.Cause = cause
	return e
}

// ShapeInconsistencyError reports a corrupted shape or family invariant.
// It is always fatal and travels as a panic value.
type ShapeInconsistencyError struct {
	Site
	Msg   string
	Cause error
}

func NewShapeInconsistency(op, property, msg string) *ShapeInconsistencyError {
	return &ShapeInconsistencyError{Site: Site{Op: op, Property: property}, Msg: msg}
}

func (e *ShapeInconsistencyError) Error() string {
	return fmt.Sprintf("ShapeInconsistency%s: %s", e.Site, e.Msg)
}
func (e *ShapeInconsistencyError) At() Site        { return e.Site }
func (e *ShapeInconsistencyError) Kind() string    { return "ShapeInconsistency" }
func (e *ShapeInconsistencyError) Message() string { return e.Msg }
func (e *ShapeInconsistencyError) Unwrap() error   { return e.Cause }
func (e *ShapeInconsistencyError) CausedBy(cause error) *ShapeInconsistencyError {
	e.Cause = cause
	return e
}

// --- Error Reporting ---

// DisplayErrors writes one line per error in the form "<Kind> [site]: <message>".
func DisplayErrors(w io.Writer, errs []MdrError) {
	for _, err := range errs {
		site := err.At()
		if site.IsZero() {
			fmt.Fprintf(w, "%s: %s\n", err.Kind(), err.Message())
			continue
		}
		fmt.Fprintf(w, "%s%s: %s\n", err.Kind(), site, err.Message())
	}
}
