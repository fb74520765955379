// Package evalerrors provides sentinel and typed error kinds for the evaluation pipeline.
//
// Each kind is a pointer struct with an Is method, so callers match with errors.Is against the
// package-level sentinels (ErrRetrieval, ErrGeneration, ...) and extract details with errors.As.
package evalerrors

import (
	"context"
	"errors"
	"net"
)

// ErrNotFound represents a "not found" error.
// Use when a requested resource doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input or a loaded data table fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrRetrieval is the sentinel for failed embedding or nearest-neighbor calls.
var ErrRetrieval = &RetrievalError{}

// RetrievalError reports that the index or the embedding service could not serve a request.
// It is transient: callers may retry or continue with zero retrieved chunks.
type RetrievalError struct {
	Op  string
	Err error
}

// NewRetrievalError wraps err as a RetrievalError for the given operation.
func NewRetrievalError(op string, err error) *RetrievalError {
	return &RetrievalError{Op: op, Err: err}
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	msg := "retrieval failed"
	if e.Op != "" {
		msg = "retrieval: " + e.Op + " failed"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *RetrievalError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *RetrievalError) Is(target error) bool {
	_, ok := target.(*RetrievalError)

	return ok
}

// ErrGeneration is the sentinel for failed text-generation calls.
var ErrGeneration = &GenerationError{}

// GenerationError reports a transport failure, rejection (quota, auth) or timeout from the
// text-generation provider.
type GenerationError struct {
	Provider string
	Err      error
}

// NewGenerationError wraps err as a GenerationError for the given provider.
func NewGenerationError(provider string, err error) *GenerationError {
	return &GenerationError{Provider: provider, Err: err}
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	msg := "generation failed"
	if e.Provider != "" {
		msg = "generation (" + e.Provider + ") failed"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *GenerationError) Is(target error) bool {
	_, ok := target.(*GenerationError)

	return ok
}

// Cache operations reported by CacheUnavailableError.
const (
	CacheOpLookup = "lookup"
	CacheOpStore  = "store"
)

// ErrCacheUnavailable is the sentinel for evaluation-cache storage failures.
var ErrCacheUnavailable = &CacheUnavailableError{}

// CacheUnavailableError reports that the evaluation cache could not be read or written.
// A failed store after a successful generation means the same key may be generated again later.
type CacheUnavailableError struct {
	Op  string
	Err error
}

// NewCacheUnavailableError wraps err as a CacheUnavailableError for op (CacheOpLookup or CacheOpStore).
func NewCacheUnavailableError(op string, err error) *CacheUnavailableError {
	return &CacheUnavailableError{Op: op, Err: err}
}

// Error implements the error interface.
func (e *CacheUnavailableError) Error() string {
	msg := "evaluation cache unavailable"
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *CacheUnavailableError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *CacheUnavailableError) Is(target error) bool {
	_, ok := target.(*CacheUnavailableError)

	return ok
}

// ErrUpstream is the sentinel for failures of the learning-platform API.
var ErrUpstream = &UpstreamError{}

// UpstreamError reports that the learning platform could not return attempts or items.
type UpstreamError struct {
	Message string
	Err     error
}

// NewUpstreamError wraps err as an UpstreamError.
func NewUpstreamError(message string, err error) *UpstreamError {
	return &UpstreamError{Message: message, Err: err}
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "upstream request failed"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error { return e.Err }

// Is implements the error interface for error comparison.
func (e *UpstreamError) Is(target error) bool {
	_, ok := target.(*UpstreamError)

	return ok
}

// IsTimeout reports whether err was caused by a deadline or a network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTransient reports whether err is worth retrying: retrieval failures and timeouts are transient,
// generation rejections and validation errors are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrRetrieval) || errors.Is(err, ErrCacheUnavailable) || IsTimeout(err)
}
