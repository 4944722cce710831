package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeOpen       ErrorType = "open"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeOutput     ErrorType = "output"
	ErrorTypeIO         ErrorType = "io"
)

// Process exit codes of the command-line tool
const (
	ExitEqual      = 0
	ExitDifferent  = 1
	ExitUsage      = 2
	ExitOpenFailed = 3
	ExitFailure    = 4
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError of the same type, so callers can
// match on a bare &DomainError{Type: ...} sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func OpenError(message string, err error) *DomainError {
	return NewError(ErrorTypeOpen, message, err)
}

func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func OutputError(message string, err error) *DomainError {
	return NewError(ErrorTypeOutput, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// TypeOf returns the type of the first DomainError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// ExitCode maps an error returned from a comparison run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitEqual
	}
	switch TypeOf(err) {
	case ErrorTypeConfig, ErrorTypeValidation:
		return ExitUsage
	case ErrorTypeOpen:
		return ExitOpenFailed
	default:
		return ExitFailure
	}
}
