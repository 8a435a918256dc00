package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	mw "github.com/lorrc/service-desk-sla/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-sla/internal/auth"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return mw.GetRequestID(ctx)
}

// ErrorResponse is the standard JSON error response format
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ValidationErrorResponse includes field-level validation errors
type ValidationErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// errorMapping ties sentinel errors to a response. An empty message echoes
// the error text, which is reserved for errors that describe client input.
type errorMapping struct {
	targets []error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{
		targets: []error{apperrors.ErrUnauthorized, auth.ErrInvalidToken, auth.ErrMissingTenant},
		status:  http.StatusUnauthorized, code: "UNAUTHORIZED", message: "Authentication required",
	},
	{
		targets: []error{apperrors.ErrForbidden},
		status:  http.StatusForbidden, code: "FORBIDDEN", message: "You do not have permission to perform this action",
	},
	{
		targets: []error{apperrors.ErrUserNotFound},
		status:  http.StatusNotFound, code: "USER_NOT_FOUND", message: "User not found",
	},
	{
		targets: []error{apperrors.ErrTicketNotFound},
		status:  http.StatusNotFound, code: "TICKET_NOT_FOUND", message: "Ticket not found",
	},
	{
		targets: []error{apperrors.ErrTenantNotFound},
		status:  http.StatusNotFound, code: "TENANT_NOT_FOUND", message: "Tenant has not been provisioned",
	},
	{
		targets: []error{apperrors.ErrNotFound},
		status:  http.StatusNotFound, code: "NOT_FOUND", message: "Resource not found",
	},
	{
		targets: []error{apperrors.ErrConflict},
		status:  http.StatusConflict, code: "CONFLICT", message: "The resource was modified concurrently, retry the request",
	},
	{
		targets: []error{apperrors.ErrRoleAlreadyAssigned},
		status:  http.StatusConflict, code: "ROLE_ALREADY_ASSIGNED", message: "Role already assigned",
	},
	{
		targets: []error{apperrors.ErrInvalidCalendar},
		status:  http.StatusUnprocessableEntity, code: "INVALID_CALENDAR",
	},
	{
		targets: []error{apperrors.ErrInvalidSLAPolicy},
		status:  http.StatusUnprocessableEntity, code: "INVALID_SLA_POLICY",
	},
	{
		targets: []error{
			apperrors.ErrTitleRequired, apperrors.ErrTitleTooLong, apperrors.ErrDescriptionTooLong,
			apperrors.ErrInvalidPriority, apperrors.ErrInvalidStatus,
			apperrors.ErrCommentBodyRequired, apperrors.ErrCommentBodyTooLong,
			apperrors.ErrNegativeDuration, apperrors.ErrBadRequest,
		},
		status: http.StatusBadRequest, code: "VALIDATION_ERROR",
	},
	{
		targets: []error{apperrors.ErrInvalidStatusTransition},
		status:  http.StatusBadRequest, code: "INVALID_STATUS_TRANSITION", message: "Invalid status transition",
	},
	{
		targets: []error{apperrors.ErrCannotAssignClosed},
		status:  http.StatusBadRequest, code: "CANNOT_ASSIGN_CLOSED", message: "Cannot assign a closed ticket",
	},
	{
		targets: []error{apperrors.ErrRateLimited},
		status:  http.StatusTooManyRequests, code: "RATE_LIMITED", message: "Too many requests. Please try again later.",
	},
}

// Handle writes the response for err. Anything unmapped, including a clock
// refusing a transition, is an opaque 500 logged at error level.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	requestID := GetRequestID(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		h.logError(r, appErr.StatusCode, appErr.Err, requestID)
		h.writeErrorResponse(w, appErr.StatusCode, ErrorResponse{
			Error:   appErr.Message,
			Code:    appErr.Code,
			Details: appErr.Details,
		})
		return
	}

	var validationErrs *apperrors.ValidationErrors
	if errors.As(err, &validationErrs) {
		h.logError(r, http.StatusUnprocessableEntity, err, requestID)
		h.writeValidationErrorResponse(w, validationErrs)
		return
	}

	statusCode, response := mapDomainError(err)
	h.logError(r, statusCode, err, requestID)
	h.writeErrorResponse(w, statusCode, response)
}

func mapDomainError(err error) (int, ErrorResponse) {
	for _, m := range errorMappings {
		for _, target := range m.targets {
			if !errors.Is(err, target) {
				continue
			}
			message := m.message
			if message == "" {
				message = err.Error()
			}
			return m.status, ErrorResponse{Error: message, Code: m.code}
		}
	}
	return http.StatusInternalServerError, ErrorResponse{
		Error: "An unexpected error occurred",
		Code:  "INTERNAL_ERROR",
	}
}

// logError logs server failures at error level and client mistakes at warn.
func (h *ErrorHandler) logError(r *http.Request, statusCode int, err error, requestID string) {
	level := slog.LevelWarn
	msg := "client error"
	if statusCode >= http.StatusInternalServerError {
		level, msg = slog.LevelError, "server error"
	}
	h.logger.Log(r.Context(), level, msg,
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"status_code", statusCode,
		"error", err.Error(),
	)
}

func (h *ErrorHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	WriteJSON(w, statusCode, response)
}

func (h *ErrorHandler) writeValidationErrorResponse(w http.ResponseWriter, errs *apperrors.ValidationErrors) {
	WriteJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Error:  "Validation failed",
		Code:   "VALIDATION_ERROR",
		Fields: errs.Errors,
	})
}
