package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/logging"
)

// RequestIDHeader carries the correlation ID in both directions.
const RequestIDHeader = "X-Request-ID"

// A caller-supplied ID is only trusted when it is short and log-safe.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// RequestID reuses the caller's X-Request-ID or mints a UUID, echoes it on
// the response and stores it where the logger picks it up.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !requestIDPattern.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// GetRequestID returns the request's correlation ID, if any.
func GetRequestID(ctx context.Context) string {
	return logging.GetRequestID(ctx)
}
