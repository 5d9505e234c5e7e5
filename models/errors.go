package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeVisitFailed  = "VISIT_FAILED"
	ErrCodeVisitTimeout = "VISIT_TIMEOUT"
	ErrCodeSubmitFailed = "SUBMIT_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SolveError is the internal error type carrying an error code.
// Only visit and submission failures cross the solver boundary as SolveErrors;
// everything below a visit is absorbed by the resolution pipeline.
type SolveError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *SolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SolveError) Unwrap() error {
	return e.Err
}

// NewSolveError creates a new SolveError.
func NewSolveError(code, message string, err error) *SolveError {
	return &SolveError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *SolveError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// IsVisitFailure reports whether err is a failure to look at the page at all.
func IsVisitFailure(err error) bool {
	var se *SolveError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == ErrCodeVisitFailed || se.Code == ErrCodeVisitTimeout
}
