package errors

import (
	"fmt"
	"net/http"
	"strings"
)

type AppError struct {
	Code          string
	Message       string
	Status        int
	Err           error
	MissingFields []string
	InvalidFields []string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped copies still compare equal to the sentinels
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Predefined errors
var (
	ErrNotFound = &AppError{
		Code:    "NOT_FOUND",
		Message: "Resource not found",
		Status:  http.StatusNotFound,
	}

	ErrUnauthorized = &AppError{
		Code:    "UNAUTHORIZED",
		Message: "Unauthorized access",
		Status:  http.StatusUnauthorized,
	}

	ErrBadRequest = &AppError{
		Code:    "BAD_REQUEST",
		Message: "Invalid request",
		Status:  http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Status:  http.StatusInternalServerError,
	}

	ErrValidation = &AppError{
		Code:    "VALIDATION_ERROR",
		Message: "Validation failed",
		Status:  http.StatusBadRequest,
	}

	ErrSubmission = &AppError{
		Code:    "SUBMISSION_ERROR",
		Message: "Job submission failed",
		Status:  http.StatusInternalServerError,
	}

	ErrUpstream = &AppError{
		Code:    "UPSTREAM_ERROR",
		Message: "Ingestion service request failed",
		Status:  http.StatusBadGateway,
	}
)

func NewError(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func WrapError(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// NewValidationError reports every missing and invalid field at once.
// invalid entries are "field: reason" strings.
func NewValidationError(missing, invalid []string) *AppError {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid fields: "+strings.Join(invalid, "; "))
	}
	msg := ErrValidation.Message
	if len(parts) > 0 {
		msg = strings.Join(parts, "; ")
	}
	return &AppError{
		Code:          ErrValidation.Code,
		Message:       msg,
		Status:        ErrValidation.Status,
		MissingFields: missing,
		InvalidFields: invalid,
	}
}

// NewSubmissionError wraps a failed remote call made while submitting a job
func NewSubmissionError(step string, err error) *AppError {
	return &AppError{
		Code:    ErrSubmission.Code,
		Message: fmt.Sprintf("failed to %s", step),
		Status:  ErrSubmission.Status,
		Err:     err,
	}
}

// ErrorResponse is a common error response format
type ErrorResponse struct {
	Status        string   `json:"status"`
	Message       string   `json:"message"`
	Code          string   `json:"code,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
	InvalidFields []string `json:"invalid_fields,omitempty"`
}

// NewErrorResponse renders an AppError in the response envelope
func NewErrorResponse(e *AppError) ErrorResponse {
	return ErrorResponse{
		Status:        "error",
		Message:       e.Message,
		Code:          e.Code,
		MissingFields: e.MissingFields,
		InvalidFields: e.InvalidFields,
	}
}
