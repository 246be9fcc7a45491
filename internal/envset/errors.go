package envset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes environment-set errors.
type ErrorCode string

const (
	// ErrCodeVariableSetMismatch indicates a union of sets whose
	// variable-name sets differ.
	ErrCodeVariableSetMismatch ErrorCode = "VARIABLE_SET_MISMATCH"

	// ErrCodeVariableNameCollision indicates a cross product of sets whose
	// variable-name sets overlap.
	ErrCodeVariableNameCollision ErrorCode = "VARIABLE_NAME_COLLISION"

	// ErrCodeDuplicateVariable indicates an Add of a variable that is
	// already present in the store.
	ErrCodeDuplicateVariable ErrorCode = "DUPLICATE_VARIABLE"

	// ErrCodeUnknownVariable indicates an Append or Remove of a variable
	// that no environment defines.
	ErrCodeUnknownVariable ErrorCode = "UNKNOWN_VARIABLE"

	// ErrCodeUnknownValue indicates a Remove of a value that no environment
	// assigns to the given variable.
	ErrCodeUnknownValue ErrorCode = "UNKNOWN_VALUE"

	// ErrCodeInvalidName indicates a variable name outside [A-Z_][0-9A-Z_]*.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"

	// ErrCodeEmptySet indicates a combinator applied to an empty operand.
	ErrCodeEmptySet ErrorCode = "EMPTY_SET"

	// ErrCodeStoreIO indicates a filesystem failure while reading or
	// rewriting the store.
	ErrCodeStoreIO ErrorCode = "STORE_IO"
)

// Error is the structured error type for algebra and store operations.
// Variables names the variables involved, when known.
type Error struct {
	Code      ErrorCode
	Message   string
	Variables []string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(e.Variables) > 0 {
		msg += " (" + strings.Join(e.Variables, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the ErrorCode of err, or "" if err is not an envset error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func newError(code ErrorCode, msg string, vars ...string) *Error {
	return &Error{Code: code, Message: msg, Variables: vars}
}

func storeError(msg string, err error) *Error {
	return &Error{Code: ErrCodeStoreIO, Message: msg, Err: err}
}
