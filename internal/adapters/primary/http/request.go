package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/lorrc/service-desk-sla/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-sla/internal/auth"
)

// getClaims extracts the authenticated caller, writing a 401 when absent.
func getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// validatable is a request body that checks its own shape.
type validatable interface {
	Validate() error
}

// decodeBody decodes the JSON body into T and runs its Validate method.
func decodeBody[T any, PT interface {
	*T
	validatable
}](r *http.Request) (*T, error) {
	req, err := validation.DecodeAndValidate[T](r)
	if err != nil {
		return nil, err
	}
	if err := PT(req).Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// ticketScope resolves the caller and the {ticketID} path parameter. On
// failure the response has already been written.
func ticketScope(w http.ResponseWriter, r *http.Request, errorHandler *ErrorHandler) (*auth.Claims, int64, bool) {
	claims, ok := getClaims(w, r)
	if !ok {
		return nil, 0, false
	}
	ticketID, err := parseTicketID(r)
	if err != nil {
		errorHandler.Handle(w, r, err)
		return nil, 0, false
	}
	return claims, ticketID, true
}

// parseTicketID extracts and validates the ticket ID from the URL
func parseTicketID(r *http.Request) (int64, error) {
	ticketID, err := strconv.ParseInt(chi.URLParam(r, "ticketID"), 10, 64)
	v := validation.NewValidator()
	v.Custom("ticketID", err == nil && ticketID > 0, "Invalid ticket ID")
	return ticketID, v.Err()
}

// parseUserID extracts and validates the {userID} path parameter.
func parseUserID(r *http.Request) (uuid.UUID, error) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	v := validation.NewValidator()
	v.Custom("userID", err == nil, "Invalid user ID")
	return userID, v.Err()
}
