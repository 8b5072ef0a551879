package graph

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures so the protocol layer can decide whether to
// surface, degrade, or recover.
type ErrorKind string

const (
	// KindNotFound means a symbol or path did not resolve. Always paired
	// with best-effort suggestions.
	KindNotFound ErrorKind = "not_found"
	// KindInvalidInput means the caller supplied an empty query or a
	// malformed filter.
	KindInvalidInput ErrorKind = "invalid_input"
	// KindUnavailable means an optional subsystem (vector index, reranker)
	// cannot be reached. Callers degrade silently to the next-best strategy.
	KindUnavailable ErrorKind = "unavailable"
	// KindStorageFailure means the persistence layer itself errored.
	KindStorageFailure ErrorKind = "storage_failure"
)

// Error is the typed error carried across component boundaries.
type Error struct {
	Kind        ErrorKind
	Message     string
	Suggestions []string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// NotFoundError builds a not-found error with name suggestions.
func NotFoundError(what string, suggestions []string) *Error {
	return &Error{
		Kind:        KindNotFound,
		Message:     fmt.Sprintf("%s not found", what),
		Suggestions: suggestions,
	}
}

// InvalidInputError builds an invalid-input error.
func InvalidInputError(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

// UnavailableError wraps a failure of an optional subsystem.
func UnavailableError(subsystem string, cause error) *Error {
	return &Error{
		Kind:    KindUnavailable,
		Message: fmt.Sprintf("%s unavailable", subsystem),
		cause:   cause,
	}
}

// StorageError wraps a persistence-layer failure.
func StorageError(op string, cause error) *Error {
	return &Error{
		Kind:    KindStorageFailure,
		Message: fmt.Sprintf("storage: %s failed", op),
		cause:   cause,
	}
}

// KindOf extracts the error kind, or "" for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// SuggestionsOf extracts the suggestions attached to a not-found error.
func SuggestionsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Suggestions
	}
	return nil
}
