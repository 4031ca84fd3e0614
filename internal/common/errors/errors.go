// internal/common/errors/errors.go

// Package errors provides the standardized error taxonomy for the hiring
// pipeline. Domain errors indicate a caller mistake or a data conflict, not
// a subsystem failure; they are returned as typed values and never panic.
package errors

import (
	goerrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Domain errors (caller mistakes / data conflicts).
const (
	ErrCodeIllegalTransition      ErrorCode = "ILLEGAL_TRANSITION"
	ErrCodeIncompletePayload      ErrorCode = "INCOMPLETE_PAYLOAD"
	ErrCodeIncompleteRejection    ErrorCode = "INCOMPLETE_REJECTION"
	ErrCodeAlreadyInStage         ErrorCode = "ALREADY_IN_STAGE"
	ErrCodeApplicationNotFound    ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
)

// Storage errors (backing store failures, distinguished from domain errors;
// the caller retries with backoff, this subsystem does not).
const (
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeStorageQueryFailed ErrorCode = "STORAGE_QUERY_FAILED"
)

// PipelineError represents a structured pipeline error.
type PipelineError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("PipelineError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying storage error, if any.
func (e *PipelineError) Unwrap() error {
	return e.cause
}

// ==========================
// Error Constructors
// ==========================

// NewIllegalTransition creates a non-retryable transition error naming the
// current and requested stage.
func NewIllegalTransition(current, requested string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeIllegalTransition,
		Message:   "Requested stage not reachable from current stage",
		Details:   fmt.Sprintf("currentStage: %s, requestedStage: %s", current, requested),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIncompletePayload creates a non-retryable payload validation error
// naming the missing stage-mandatory field.
func NewIncompletePayload(stage, field string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeIncompletePayload,
		Message:   "Stage-mandatory field missing from payload patch",
		Details:   fmt.Sprintf("stage: %s, missingField: %s", stage, field),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIncompleteRejection creates a non-retryable rejection validation error.
func NewIncompleteRejection(details string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeIncompleteRejection,
		Message:   "Rejection missing reason or feedback",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyInStage creates a non-retryable error for a no-op transition
// request.
func NewAlreadyInStage(stage string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeAlreadyInStage,
		Message:   "Application is already in the requested stage",
		Details:   fmt.Sprintf("stage: %s", stage),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFound creates a non-retryable unknown-ID error.
func NewApplicationNotFound(applicationID string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrentModification creates a retryable error for a transition that
// lost the per-application mutual exclusion. The caller should retry, never
// silently drop.
func NewConcurrentModification(applicationID string) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeConcurrentModification,
		Message:   "Application was modified concurrently",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailable creates a retryable backing-store connection error.
func NewStorageUnavailable(err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeStorageUnavailable,
		Message:   "Backing store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewStorageQueryFailed creates a retryable query execution error.
func NewStorageQueryFailed(operation string, err error) *PipelineError {
	return &PipelineError{
		Code:      ErrCodeStorageQueryFailed,
		Message:   "Backing store query failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// Utility Functions
// ==========================

// CodeOf extracts the error code, or empty for foreign errors.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if goerrors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// HasCode reports whether err carries the given pipeline error code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsDomainError reports whether err is a caller mistake or data conflict,
// as opposed to a storage failure.
func IsDomainError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeIllegalTransition, ErrCodeIncompletePayload,
		ErrCodeIncompleteRejection, ErrCodeAlreadyInStage,
		ErrCodeApplicationNotFound, ErrCodeConcurrentModification:
		return true
	}
	return false
}

// IsRetryable reports whether the caller should retry the operation.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if goerrors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
