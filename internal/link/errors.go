package link

import (
	"errors"
	"fmt"
)

// Code categorizes link errors.
type Code string

const (
	// CodeValidationFailure indicates a partially specified link could not
	// be reconciled to exactly one existing connection.
	CodeValidationFailure Code = "VALIDATION_FAILURE"

	// CodePortOccupied indicates the destination in-port already carries a
	// different connection and auto-disconnect is disabled.
	CodePortOccupied Code = "PORT_OCCUPIED"

	// CodeInvalidEndpoint indicates an endpoint that does not resolve, a
	// boundary proxy used as an endpoint, or a port that the node's kind
	// may not create.
	CodeInvalidEndpoint Code = "INVALID_ENDPOINT"

	// CodeStructuralInconsistency indicates the graph does not contain the
	// connection after it was applied. The operation is aborted and the
	// graph is left as is.
	CodeStructuralInconsistency Code = "STRUCTURAL_INCONSISTENCY"
)

// Error is returned by every failing Linker operation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Link is the Describe rendering of the link involved, if any.
	Link string

	// Err is the underlying host error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Link != "" {
		msg += fmt.Sprintf(" (%s)", e.Link)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, l *Link, format string, args ...any) *Error {
	e := &Error{Code: code, Message: fmt.Sprintf(format, args...)}
	if l != nil {
		e.Link = Describe(l)
	}
	return e
}

// CodeOf returns the Code of err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsValidationFailure reports whether err is a validation failure.
func IsValidationFailure(err error) bool {
	return CodeOf(err) == CodeValidationFailure
}

// IsPortOccupied reports whether err is a port conflict.
func IsPortOccupied(err error) bool {
	return CodeOf(err) == CodePortOccupied
}

// IsInvalidEndpoint reports whether err is an invalid endpoint error.
func IsInvalidEndpoint(err error) bool {
	return CodeOf(err) == CodeInvalidEndpoint
}

// IsStructuralInconsistency reports whether err is a failed post-condition.
func IsStructuralInconsistency(err error) bool {
	return CodeOf(err) == CodeStructuralInconsistency
}
