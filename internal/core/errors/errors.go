// Package errors holds the sentinel errors shared by the core and its
// adapters, plus the two structured error types the HTTP layer renders.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Access.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("action forbidden")
	ErrRoleAlreadyAssigned = errors.New("role already assigned")
)

// Tenant settings.
var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrTenantRequired   = errors.New("tenant ID is required")
	ErrInvalidCalendar  = errors.New("invalid business calendar")
	ErrInvalidSLAPolicy = errors.New("invalid sla policy")
)

// Clocks. A clock asked to move out of a state it cannot leave reports
// ErrInvalidClockTransition; callers treat it as a programming error.
var (
	ErrInvalidClockTransition = errors.New("invalid clock transition")
	ErrNegativeDuration       = errors.New("duration must not be negative")
)

// Tickets and comments.
var (
	ErrTicketNotFound          = errors.New("ticket not found")
	ErrTitleRequired           = errors.New("title is required")
	ErrTitleTooLong            = errors.New("title exceeds maximum length of 255 characters")
	ErrDescriptionTooLong      = errors.New("description exceeds maximum length")
	ErrInvalidPriority         = errors.New("invalid ticket priority")
	ErrInvalidStatus           = errors.New("invalid ticket status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrCannotAssignClosed      = errors.New("cannot assign a closed ticket")
	ErrCommentBodyRequired     = errors.New("comment body is required")
	ErrCommentBodyTooLong      = errors.New("comment body exceeds maximum length")
	ErrUserNotFound            = errors.New("user not found")
)

// Generic.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("resource conflict")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError carries a ready-made HTTP rendering for err.
type AppError struct {
	Err        error
	Message    string
	Code       string
	StatusCode int
	Details    map[string]any
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error { return e.Err }

// NewBadRequestError reports a request that could not be parsed at all.
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        errors.Join(ErrBadRequest, err),
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: http.StatusBadRequest,
	}
}

// ValidationErrors collects messages per request field.
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make(map[string][]string)}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error lists the offending fields in a stable order.
func (v *ValidationErrors) Error() string {
	fields := make([]string, 0, len(v.Errors))
	for field := range v.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}
