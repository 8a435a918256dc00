package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/lorrc/service-desk-sla/internal/infrastructure/logging"
)

// RequestLogger logs every request once it has been served.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// Nothing was written, or the connection was hijacked.
				status = http.StatusOK
			}
			logging.LogRequest(r.Context(), logger, logging.RequestRecord{
				Method:       r.Method,
				Path:         r.URL.Path,
				StatusCode:   status,
				Duration:     time.Since(start),
				BytesWritten: int64(ww.BytesWritten()),
				ClientIP:     getClientIP(r),
				UserAgent:    r.UserAgent(),
			})
		})
	}
}

// internalErrorBody matches the shape written by the HTTP error handler.
const internalErrorBody = `{"error":"Internal server error","code":"INTERNAL_ERROR"}`

// RecoveryLogger turns a handler panic into a 500. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func RecoveryLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.LogPanic(r.Context(), logger.With("method", r.Method, "path", r.URL.Path), rec)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(internalErrorBody))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
