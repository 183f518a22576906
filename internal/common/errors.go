package common

import "errors"

// Process exit codes, following sysexits.h.
const (
	ExitFailure = 1
	ExitUsage   = 64
	ExitDataErr = 65
	ExitIOErr   = 74
	ExitConfig  = 78
)

// Error codes attached to AppError.
const (
	CodeUsage          = "usage"
	CodeMalformedInput = "malformed_input"
	CodeInvalidCatalog = "invalid_catalog"
	CodeConfig         = "config"
	CodeIO             = "io"
	CodeInternal       = "internal"
)

// AppError represents an error with an attached code and process exit code.
type AppError struct {
	Code     string
	Message  string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Message != "" {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, exitCode int, err error) *AppError {
	return &AppError{Code: code, Message: message, ExitCode: exitCode, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// ExitCodeOf returns the exit code carried by err, ExitFailure for other errors and 0 for nil.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var target *AppError
	if errors.As(err, &target) && target.ExitCode != 0 {
		return target.ExitCode
	}
	return ExitFailure
}
