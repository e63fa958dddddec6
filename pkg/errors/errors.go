package errors

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrorCode classifies failures so callers can react to the kind of error
// without parsing messages.
type ErrorCode int

const (
	// Core error codes.
	Unknown ErrorCode = iota
	InvalidInput
	ValidationFailed
	ResourceNotFound
	Timeout
	Canceled

	// LLM specific errors.
	LLMGenerationFailed
	InvalidResponse

	// Pipeline errors.
	GenerationFailed
	ReflectionFailed
	DeltaApplyFailed
	CapacityViolation
	StorageFailed
)

// Fields carries structured context alongside an error.
type Fields map[string]interface{}

// Error is a classified error that can wrap a cause and carry fields.
type Error struct {
	code   ErrorCode
	msg    string
	cause  error
	fields Fields
}

// New creates an error with a code and message.
func New(code ErrorCode, message string) error {
	return &Error{code: code, msg: message}
}

// Wrap classifies an existing error under a new code and message. Wrapping
// nil returns nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: message, cause: err}
}

// WithFields attaches structured context to an error, merging with any
// fields already present. New keys win. Foreign errors are adopted under
// the Unknown code.
func WithFields(err error, fields Fields) error {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		e = &Error{code: Unknown, msg: err.Error(), cause: err}
	}

	merged := make(Fields, len(e.fields)+len(fields))
	maps.Copy(merged, e.fields)
	maps.Copy(merged, fields)

	return &Error{code: e.code, msg: e.msg, cause: e.cause, fields: merged}
}

// Error renders the message, the cause chain, and the fields in sorted key
// order so the same failure always reads the same.
func (e *Error) Error() string {
	msg := e.msg
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	if len(e.fields) == 0 {
		return msg
	}

	pairs := make([]string, 0, len(e.fields))
	for _, k := range slices.Sorted(maps.Keys(e.fields)) {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.fields[k]))
	}
	return msg + " [" + strings.Join(pairs, " ") + "]"
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Code() ErrorCode {
	return e.code
}

// Fields returns a copy of the error's fields.
func (e *Error) Fields() Fields {
	return maps.Clone(e.fields)
}

// Is matches errors by code, so errors.Is works against sentinel-style
// comparisons like New(Timeout, "...").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// As extracts the classified error for errors.As.
func (e *Error) As(target interface{}) bool {
	p, ok := target.(**Error)
	if !ok {
		return false
	}
	*p = e
	return true
}
