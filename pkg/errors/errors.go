package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a failure while evaluating or running a
// convergence step. Any ExecutionError aborts the run.
type ExecutionError struct {
	Step string
	Err  error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(step string, err error) error {
	return &ExecutionError{Step: step, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Step != "" {
		return fmt.Sprintf("execution error on step %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ProbeError indicates the host could not be queried at all, as opposed to a
// query that answered "no".
type ProbeError struct {
	Subject string
	Err     error
}

// NewProbeError constructs a ProbeError for the probed subject (package name,
// service name, path).
func NewProbeError(subject string, err error) error {
	return &ProbeError{Subject: subject, Err: err}
}

func (e *ProbeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("probe error [%s]: %v", e.Subject, e.Err)
}

// Unwrap exposes the underlying error.
func (e *ProbeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ReadError is returned when a file that must exist at this point of the run
// cannot be read.
type ReadError struct {
	Path string
	Err  error
}

// NewReadError constructs a ReadError.
func NewReadError(path string, err error) error {
	return &ReadError{Path: path, Err: err}
}

func (e *ReadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("read error: %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying error.
func (e *ReadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
