package runner

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes planner and executor failures.
type ErrorCode string

const (
	// ErrCodeNothingPlanned indicates a plan with zero environments or a
	// repetition count below one.
	ErrCodeNothingPlanned ErrorCode = "NOTHING_PLANNED"

	// ErrCodeRunSetup indicates a failure while materializing a run
	// directory, before the run script started.
	ErrCodeRunSetup ErrorCode = "RUN_SETUP"

	// ErrCodeRunProcess indicates a run script that failed to spawn or
	// exited nonzero.
	ErrCodeRunProcess ErrorCode = "RUN_PROCESS"
)

// Error is the structured error type for planning and execution. Run names
// the offending run directory when one exists.
type Error struct {
	Code    ErrorCode
	Run     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Run != "" {
		msg += " " + e.Run
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the ErrorCode of err, or "" if err is not a runner error.
func CodeOf(err error) ErrorCode {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func setupError(run, msg string, err error) *Error {
	return &Error{Code: ErrCodeRunSetup, Run: run, Message: msg, Err: err}
}

func processError(run string, exitCode int, err error) *Error {
	return &Error{
		Code:    ErrCodeRunProcess,
		Run:     run,
		Message: fmt.Sprintf("run script failed with exit code %d", exitCode),
		Err:     err,
	}
}
