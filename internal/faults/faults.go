// Package faults defines the failure taxonomy shared across the report
// generation pipeline. Components classify errors with a Kind; the
// orchestrator alone decides what is terminal and what gets retried.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// Transient covers network errors, timeouts, and rate limits. Retryable.
	Transient Kind = "transient"
	// NonRetryable covers authentication and validation failures. Fail fast.
	NonRetryable Kind = "non_retryable"
	// MalformedResponse means the model output could not be parsed into a
	// JSON object even after repair. Terminal per generation attempt.
	MalformedResponse Kind = "malformed_response"
	// IncompleteResponse means the parsed payload is missing required
	// sections. Terminal.
	IncompleteResponse Kind = "incomplete_response"
	// StorageUnavailable covers document-store failures. The orchestrator
	// retries these a bounded number of times since upserts are idempotent.
	StorageUnavailable Kind = "storage_unavailable"
	// NotFound means the requested document does not exist.
	NotFound Kind = "not_found"
)

// maxSnippet bounds the diagnostic text attached to an error so raw model
// output never blows up logs or API responses.
const maxSnippet = 200

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind
	Msg     string
	Snippet string
	Err     error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	if e.Snippet != "" {
		s += fmt.Sprintf(" (snippet: %q)", e.Snippet)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies an existing error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithSnippet attaches a bounded excerpt of the offending text.
func (e *Error) WithSnippet(text string) *Error {
	e.Snippet = Snippet(text)
	return e
}

// Snippet truncates text to a bounded diagnostic excerpt.
func Snippet(text string) string {
	if len(text) > maxSnippet {
		return text[:maxSnippet] + "..."
	}
	return text
}

// KindOf returns the Kind of err, or empty string when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether err is safe to retry by default policy.
func IsRetryable(err error) bool {
	return KindOf(err) == Transient
}
