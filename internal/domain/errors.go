package domain

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes engine failures so callers can decide how to surface them.
type ErrorKind string

const (
	KindConflict          ErrorKind = "conflict"
	KindValidation        ErrorKind = "validation"
	KindSafetyExhausted   ErrorKind = "safety_exhausted"
	KindDependencyTimeout ErrorKind = "dependency_timeout"
	KindInvalidState      ErrorKind = "invalid_state"
	KindNotFound          ErrorKind = "not_found"
)

// Error is the structured error returned by the periodization engine.
type Error struct {
	Kind     ErrorKind
	Message  string
	Field    string // offending input field, validation errors only
	Cause    error
	Metadata map[string]string
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict) works for
// every conflict regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// WithMetadata returns a copy carrying one more key/value pair.
func (e *Error) WithMetadata(key, value string) *Error {
	meta := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		meta[k] = v
	}
	meta[key] = value
	cp := *e
	cp.Metadata = meta
	return &cp
}

// Sentinels for errors.Is checks.
var (
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation error"}
	ErrSafetyExhausted   = &Error{Kind: KindSafetyExhausted, Message: "no safe split available"}
	ErrDependencyTimeout = &Error{Kind: KindDependencyTimeout, Message: "dependency timed out"}
	ErrInvalidState      = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
)

func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func NewConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewInvalidStateError(message string) *Error {
	return &Error{Kind: KindInvalidState, Message: message}
}

func NewNotFoundError(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewDependencyTimeoutError(dependency string, cause error) *Error {
	return &Error{Kind: KindDependencyTimeout, Message: dependency + " did not respond in time", Cause: cause}
}

// NewSafetyExhaustedError is returned when no split survives filtering, even after synthesis.
func NewSafetyExhaustedError(limitations []Limitation) *Error {
	e := &Error{
		Kind:    KindSafetyExhausted,
		Message: "no safe training split exists for the reported limitations; please seek guidance from a qualified medical or fitness professional",
	}
	for i, l := range limitations {
		e = e.WithMetadata(fmt.Sprintf("limitation_%d", i), string(l))
	}
	return e
}

// KindOf extracts the kind from err, or "" when err is not an engine error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
