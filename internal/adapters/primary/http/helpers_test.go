package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/lorrc/service-desk-sla/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClaims() *auth.Claims {
	return &auth.Claims{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
	}
}

// authenticated stands in for JWTMiddleware.
func authenticated(claims *auth.Claims) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(mw.WithClaims(r.Context(), claims)))
		})
	}
}

func newRouter(claims *auth.Claims, mount func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	if claims != nil {
		r.Use(authenticated(claims))
	}
	mount(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// monday returns a time on Monday 2024-03-04 in UTC.
func monday(hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, time.UTC)
}

// startedTicket builds a HIGH ticket whose clocks started at 09:00 Monday
// under the default calendar.
func startedTicket(t *testing.T, tenantID, requesterID uuid.UUID) *domain.Ticket {
	t.Helper()
	ticket, err := domain.NewTicket(domain.TicketParams{
		TenantID:    tenantID,
		Title:       "Printer on fire",
		Description: "Third floor",
		Priority:    domain.PriorityHigh,
		RequesterID: requesterID,
		CreatedAt:   monday(9, 0),
	})
	require.NoError(t, err)
	ticket.ID = 101
	ticket.Version = 1

	targets, err := domain.DefaultSLAPolicy().TargetsFor(domain.PriorityHigh)
	require.NoError(t, err)
	require.NoError(t, ticket.ApplyLifecycleEvent(domain.LifecycleEvent{
		Kind: domain.LifecycleCreated,
		At:   monday(9, 0),
		To:   domain.StatusOpen,
	}, targets, domain.DefaultBusinessCalendar()))
	return ticket
}
