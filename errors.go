package storywall

import (
	"fmt"
	"net/http"
)

// ErrorResponder is implemented by errors that know how to write their own
// HTTP response. RespondError returns false when the error declines to
// handle the response, leaving it to the caller.
type ErrorResponder interface {
	RespondError(w http.ResponseWriter, r *http.Request) bool
}

// ValidationKind identifies which rule a submission broke.
type ValidationKind string

const (
	InvalidContent  ValidationKind = "InvalidContent"
	ContentTooShort ValidationKind = "ContentTooShort"
	ContentTooLong  ValidationKind = "ContentTooLong"
	TitleTooLong    ValidationKind = "TitleTooLong"
	LocationTooLong ValidationKind = "LocationTooLong"
)

// ValidationError rejects bad input with a user-correctable reason. It is
// surfaced verbatim to the submitter.
type ValidationError struct {
	Kind   ValidationKind
	Reason string
}

func newValidationError(kind ValidationKind, reason string) *ValidationError {
	return &ValidationError{Kind: kind, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ValidationError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	writeJSONError(w, http.StatusBadRequest, e.Reason)
	return true
}

// NotFoundError signals that the target entity is missing.
type NotFoundError struct {
	Resource string
}

func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) RespondError(w http.ResponseWriter, r *http.Request) bool {
	writeJSONError(w, http.StatusNotFound, e.Resource+" not found")
	return true
}

// StoreError wraps a failure of the backing store. It carries no responder:
// handlers log it and answer with a generic retry message, never leaking the
// underlying detail.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
