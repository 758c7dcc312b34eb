// Package fault defines the coded domain error shared by every steady
// component.
//
// Errors raised inside an evaluator check that are already *Error pass
// through the evaluation engine verbatim; anything else is wrapped as
// AssertionFailed.
package fault

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/steady/internal/event"
)

// Code categorizes domain errors.
type Code string

const (
	// NullValue indicates a nil value was offered to the context store.
	NullValue Code = "NULL_VALUE"

	// DuplicateKey indicates a context key is already stored.
	DuplicateKey Code = "DUPLICATE_KEY"

	// KeyNotFound indicates a context key is absent (or holds nil).
	KeyNotFound Code = "KEY_NOT_FOUND"

	// TypeMismatch indicates a stored value is not assignable to the
	// requested type.
	TypeMismatch Code = "TYPE_MISMATCH"

	// DuplicatePath indicates a navigation graph already has a transition
	// for the shape.
	DuplicatePath Code = "DUPLICATE_PATH"

	// ResolutionTimeout indicates no candidate shape was confirmed within
	// the resolution budget.
	ResolutionTimeout Code = "RESOLUTION_TIMEOUT"

	// ConstructionFailed indicates a shape could not be bound to the
	// external accessor.
	ConstructionFailed Code = "CONSTRUCTION_FAILED"

	// TransientRead indicates a read raced the external system (element
	// not attached yet, stale reference). Always absorbed by resolution.
	TransientRead Code = "TRANSIENT_READ"

	// AssertionFailed wraps any other failure raised inside a check.
	AssertionFailed Code = "ASSERTION_FAILED"
)

// Error is the domain error type.
//
// Message is human readable. Fields, when set, carries the structured
// payload the message was rendered from so sinks can log it without
// parsing the text.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// TestID identifies the test execution that raised the error, if known.
	TestID string

	// Fields contains additional structured context.
	Fields event.Fields

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.TestID != "" {
		fmt.Fprintf(&b, " (test=%s)", e.TestID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error with a message and cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// FromFields creates an Error whose message is rendered from fields as
// "k1=v1, k2=v2" in canonical key order. The fields are kept on the error.
func FromFields(code Code, fields event.Fields, cause error) *Error {
	return &Error{
		Code:    code,
		Message: RenderFields(fields),
		Fields:  fields,
		Err:     cause,
	}
}

// RenderFields formats a structured payload as a single line.
func RenderFields(fields event.Fields) string {
	if len(fields) == 0 {
		return "(no details)"
	}
	resolved := fields.Resolve()
	parts := make([]string, 0, len(resolved))
	for _, k := range resolved.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, resolved[k]))
	}
	return strings.Join(parts, ", ")
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	if fe, ok := As(err); ok {
		return fe.Code
	}
	return ""
}

// IsCode reports whether err's tree holds an *Error with code.
// Every *Error is considered, including causes of other *Errors and the
// members of joined errors, so an AssertionFailed wrapping a KeyNotFound
// matches both codes.
func IsCode(err error, code Code) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		return e.Code == code || IsCode(e.Err, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsCode(inner, code) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsCode(e.Unwrap(), code)
	default:
		return false
	}
}

// IsTransient reports whether err is a TransientRead error.
func IsTransient(err error) bool {
	return IsCode(err, TransientRead)
}

// Transient marks err as a transient read.
func Transient(err error) *Error {
	if fe, ok := As(err); ok && fe.Code == TransientRead {
		return fe
	}
	return Wrap(TransientRead, "transient read", err)
}
