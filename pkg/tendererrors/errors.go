// Package tendererrors provides structured errors for tenderflow with a type
// category, key-value details and the call stack captured at creation.
//
// # Error Types
//
// The type decides how callers react:
//   - ErrorTypeConnection: the backend could not be reached or authenticated (retryable)
//   - ErrorTypeUnsupportedBackend: no adapter is registered for the configured driver
//   - ErrorTypeIO: an export destination could not be created or written
//   - ErrorTypeMalformedFilter: a filter parameter could not be parsed; these are
//     reported as warnings and never abort a search
//
// An empty dataset is not an error anywhere in this module.
//
// # Basic Usage
//
//	if err := db.PingContext(ctx); err != nil {
//	    return tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, "failed to ping backend").
//	        WithDetail("driver", "postgres")
//	}
package tendererrors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents invalid arguments
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents missing records
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeConnection represents an unreachable or unauthenticated backend
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeUnsupportedBackend represents a backend with no matching adapter
	ErrorTypeUnsupportedBackend ErrorType = "unsupported_backend"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents undecodable records
	ErrorTypeData ErrorType = "data"
	// ErrorTypeIO represents export destination failures
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeQuery represents backend query failures
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeMalformedFilter represents an unparseable filter parameter
	ErrorTypeMalformedFilter ErrorType = "malformed_filter"
)

// Error is a categorized error with optional cause and details.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is a single frame of the captured call stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error so errors.Is and errors.As see the chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail and returns the receiver for chaining.
//
//	err := tendererrors.New(tendererrors.ErrorTypeValidation, "batch size must be positive").
//	    WithDetail("batch_size", n)
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error and captures the call stack.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps err with a type and message. If err is already an *Error its
// stack is kept. Returns nil when err is nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsRetryable reports whether err is worth retrying. Connection and timeout
// errors are.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeConnection:
		return true
	default:
		return false
	}
}

// IsType reports whether the outermost *Error in err's chain has the given type.
//
//	if tendererrors.IsType(err, tendererrors.ErrorTypeNotFound) {
//	    return nil, nil
//	}
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the type of the outermost *Error in err's chain, or
// ErrorTypeInternal for foreign errors.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
