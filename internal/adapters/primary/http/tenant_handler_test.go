package http

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/service-desk-sla/internal/auth"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/mocks"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTenantRouter(claims *auth.Claims, svc *mocks.MockTenantService, limiter func(http.Handler) http.Handler) http.Handler {
	handler := NewTenantHandler(svc, NewErrorHandler(testLogger()), testLogger())
	return newRouter(claims, func(r chi.Router) { r.Mount("/tenant", handler.Router(limiter)) })
}

func testTenant(claims *auth.Claims) *domain.Tenant {
	return &domain.Tenant{
		ID:        claims.TenantID,
		Name:      "Acme",
		Calendar:  domain.DefaultBusinessCalendar(),
		Policy:    domain.DefaultSLAPolicy(),
		CreatedAt: monday(8, 0),
		UpdatedAt: monday(8, 0),
	}
}

func TestTenantHandler_GetSettings(t *testing.T) {
	t.Run("returns calendar and policy in milliseconds", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()
		svc.On("GetSettings", mock.Anything, claims.TenantID).Return(testTenant(claims), nil)

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodGet, "/tenant/settings", nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[TenantSettingsDTO](t, rec)
		assert.Equal(t, claims.TenantID.String(), got.ID)
		assert.Equal(t, "UTC", got.Calendar.Timezone)
		assert.Equal(t, "09:00", got.Calendar.Start)
		require.Contains(t, got.Policy, "URGENT")
		assert.Equal(t, int64(30*time.Minute/time.Millisecond), got.Policy["URGENT"].FirstResponseMs)
		assert.Equal(t, int64(4*time.Hour/time.Millisecond), got.Policy["URGENT"].ResolutionMs)
	})

	t.Run("unprovisioned tenant", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()
		svc.On("GetSettings", mock.Anything, claims.TenantID).Return(nil, apperrors.ErrTenantNotFound)

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodGet, "/tenant/settings", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "TENANT_NOT_FOUND", decode[ErrorResponse](t, rec).Code)
	})
}

func TestTenantHandler_UpdateCalendar(t *testing.T) {
	t.Run("passes the calendar to the service", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()
		calendar := domain.BusinessCalendar{
			Timezone: "America/Sao_Paulo",
			WorkDays: []int{1, 2, 3, 4, 5, 6},
			Start:    "08:00",
			End:      "24:00",
		}
		updated := testTenant(claims)
		updated.Calendar = calendar
		svc.On("UpdateCalendar", mock.Anything, ports.UpdateCalendarParams{
			TenantID: claims.TenantID,
			ActorID:  claims.UserID,
			Calendar: calendar,
		}).Return(updated, nil)

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodPut, "/tenant/calendar",
			UpdateCalendarRequest{CalendarDTO: toCalendarDTO(calendar)})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "24:00", decode[TenantSettingsDTO](t, rec).Calendar.End)
	})

	t.Run("rejects out of range weekdays before the service", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodPut, "/tenant/calendar",
			`{"timezone":"UTC","workDays":[0,8],"start":"09:00","end":"18:00"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decode[ValidationErrorResponse](t, rec).Fields, "workDays")
		svc.AssertNotCalled(t, "UpdateCalendar", mock.Anything, mock.Anything)
	})

	t.Run("domain rejection maps to invalid calendar", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()
		svc.On("UpdateCalendar", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: end must be after start", apperrors.ErrInvalidCalendar))

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodPut, "/tenant/calendar",
			`{"timezone":"UTC","workDays":[1],"start":"18:00","end":"09:00"}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode[ErrorResponse](t, rec)
		assert.Equal(t, "INVALID_CALENDAR", body.Code)
		assert.Contains(t, body.Error, "end must be after start")
	})
}

func TestTenantHandler_UpdatePolicy(t *testing.T) {
	t.Run("converts milliseconds to durations", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()
		svc.On("UpdatePolicy", mock.Anything, mock.MatchedBy(func(p ports.UpdatePolicyParams) bool {
			high, ok := p.Policy[domain.PriorityHigh]
			return ok && p.TenantID == claims.TenantID &&
				high.FirstResponse == time.Hour &&
				high.Resolution == 5*time.Hour &&
				high.OwnResolution == 4*time.Hour
		})).Return(testTenant(claims), nil)

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodPut, "/tenant/sla-policy",
			`{"slaPolicy":{"HIGH":{"firstResponseMs":3600000,"resolutionMs":18000000,"ownResolutionMs":14400000}}}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("unknown priority", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodPut, "/tenant/sla-policy",
			`{"slaPolicy":{"BLOCKER":{"firstResponseMs":1,"resolutionMs":2}}}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decode[ValidationErrorResponse](t, rec).Fields, "slaPolicy")
	})

	t.Run("budgets that overflow a duration", func(t *testing.T) {
		tests := []struct {
			name  string
			body  string
			field string
		}{
			{
				name:  "resolution",
				body:  `{"slaPolicy":{"LOW":{"firstResponseMs":1000,"resolutionMs":18446744073710}}}`,
				field: "slaPolicy.LOW.resolutionMs",
			},
			{
				name:  "first response",
				body:  `{"slaPolicy":{"HIGH":{"firstResponseMs":9223372036855,"resolutionMs":18000000}}}`,
				field: "slaPolicy.HIGH.firstResponseMs",
			},
			{
				name:  "own resolution",
				body:  `{"slaPolicy":{"HIGH":{"firstResponseMs":1,"resolutionMs":2,"ownResolutionMs":18446744073710}}}`,
				field: "slaPolicy.HIGH.ownResolutionMs",
			},
			{
				name:  "negative",
				body:  `{"slaPolicy":{"HIGH":{"firstResponseMs":-1,"resolutionMs":2}}}`,
				field: "slaPolicy.HIGH.firstResponseMs",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := mocks.NewMockTenantService()

				rec := doJSON(t, newTenantRouter(testClaims(), svc, nil), http.MethodPut, "/tenant/sla-policy", tt.body)

				assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
				assert.Contains(t, decode[ValidationErrorResponse](t, rec).Fields, tt.field)
				svc.AssertNotCalled(t, "UpdatePolicy", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("invalid budgets", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()
		svc.On("UpdatePolicy", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: HIGH first response exceeds resolution", apperrors.ErrInvalidSLAPolicy))

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodPut, "/tenant/sla-policy",
			`{"slaPolicy":{"HIGH":{"firstResponseMs":10,"resolutionMs":5}}}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "INVALID_SLA_POLICY", decode[ErrorResponse](t, rec).Code)
	})
}

func TestTenantHandler_Provision(t *testing.T) {
	claims := testClaims()
	svc := mocks.NewMockTenantService()
	svc.On("Provision", mock.Anything, claims.TenantID, claims.UserID, "Acme").Return(testTenant(claims), nil)

	router := newTenantRouter(claims, svc, nil)

	rec := doJSON(t, router, http.MethodPost, "/tenant/provision", ProvisionTenantRequest{Name: "Acme"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Acme", decode[TenantSettingsDTO](t, rec).Name)

	rec = doJSON(t, router, http.MethodPost, "/tenant/provision", ProvisionTenantRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTenantHandler_WriteLimiterGuardsWritesOnly(t *testing.T) {
	claims := testClaims()
	svc := mocks.NewMockTenantService()
	svc.On("GetSettings", mock.Anything, claims.TenantID).Return(testTenant(claims), nil)

	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	router := newTenantRouter(claims, svc, deny)

	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodGet, "/tenant/settings", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests,
		doJSON(t, router, http.MethodPost, "/tenant/provision", ProvisionTenantRequest{Name: "Acme"}).Code)
}

func TestTenantHandler_PreviewDue(t *testing.T) {
	t.Run("computes the due instant", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()
		svc.On("PreviewDue", mock.Anything, ports.PreviewDueParams{
			TenantID: claims.TenantID,
			Start:    monday(17, 0),
			Budget:   2 * time.Hour,
		}).Return(monday(10, 0).AddDate(0, 0, 1), nil)

		rec := doJSON(t, newTenantRouter(claims, svc, nil), http.MethodGet,
			"/tenant/calendar/due?start=2024-03-04T17:00:00Z&budgetMs=7200000", nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[PreviewDueResponse](t, rec)
		assert.Equal(t, "2024-03-04T17:00:00Z", got.Start)
		assert.Equal(t, int64(7200000), got.BudgetMs)
		assert.Equal(t, "2024-03-05T10:00:00Z", got.Due)
	})

	t.Run("missing and negative parameters", func(t *testing.T) {
		claims := testClaims()
		svc := mocks.NewMockTenantService()
		router := newTenantRouter(claims, svc, nil)

		rec := doJSON(t, router, http.MethodGet, "/tenant/calendar/due", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		fields := decode[ValidationErrorResponse](t, rec).Fields
		assert.Contains(t, fields, "start")
		assert.Contains(t, fields, "budgetMs")

		rec = doJSON(t, router, http.MethodGet, "/tenant/calendar/due?start=2024-03-04&budgetMs=-5", nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decode[ValidationErrorResponse](t, rec).Fields, "budgetMs")
	})

	t.Run("budget beyond the largest duration", func(t *testing.T) {
		svc := mocks.NewMockTenantService()

		rec := doJSON(t, newTenantRouter(testClaims(), svc, nil), http.MethodGet,
			"/tenant/calendar/due?start=2024-03-04T17:00:00Z&budgetMs=18446744073710", nil)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decode[ValidationErrorResponse](t, rec).Fields, "budgetMs")
		svc.AssertNotCalled(t, "PreviewDue", mock.Anything, mock.Anything)
	})
}

func TestTenantHandler_PreviewElapsed(t *testing.T) {
	claims := testClaims()
	svc := mocks.NewMockTenantService()
	svc.On("PreviewElapsed", mock.Anything, ports.PreviewElapsedParams{
		TenantID: claims.TenantID,
		Start:    monday(17, 0),
		End:      monday(10, 0).AddDate(0, 0, 1),
	}).Return(2*time.Hour, nil)

	router := newTenantRouter(claims, svc, nil)

	rec := doJSON(t, router, http.MethodGet,
		"/tenant/calendar/elapsed?start=2024-03-04T17:00:00Z&end=2024-03-05T10:00:00Z", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(7200000), decode[PreviewElapsedResponse](t, rec).ElapsedMs)

	rec = doJSON(t, router, http.MethodGet, "/tenant/calendar/elapsed?start=yesterday&end=2024-03-05", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[ValidationErrorResponse](t, rec).Fields, "start")
}
