package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const maxTenantNameLength = 255

// TenantHandler serves the tenant's calendar and SLA policy.
type TenantHandler struct {
	tenantService ports.TenantService
	errorHandler  *ErrorHandler
	logger        *slog.Logger
}

// NewTenantHandler creates a new tenant handler.
func NewTenantHandler(
	tenantService ports.TenantService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
		errorHandler:  errorHandler,
		logger:        logger.With("handler", "tenant"),
	}
}

// Router sets up a new chi Router for the tenant routes. Writes pass through
// the optional limiter.
func (h *TenantHandler) Router(writeLimiter func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/settings", h.HandleGetSettings)
	r.Get("/calendar/due", h.HandlePreviewDue)
	r.Get("/calendar/elapsed", h.HandlePreviewElapsed)

	r.Group(func(r chi.Router) {
		if writeLimiter != nil {
			r.Use(writeLimiter)
		}
		r.Put("/calendar", h.HandleUpdateCalendar)
		r.Put("/sla-policy", h.HandleUpdatePolicy)
		r.Post("/provision", h.HandleProvision)
	})
	return r
}

// UpdateCalendarRequest is the body of PUT /tenant/calendar.
type UpdateCalendarRequest struct {
	CalendarDTO
}

// Validate checks the wire shape. Whether the window is usable (known
// timezone, start before end) is decided by the domain.
func (r *UpdateCalendarRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("timezone", r.Timezone)
	v.Required("start", r.Start).ClockTime("start", r.Start)
	v.Required("end", r.End).ClockTime("end", r.End)
	v.WorkDays("workDays", r.WorkDays)
	return v.Err()
}

// UpdatePolicyRequest is the body of PUT /tenant/sla-policy.
type UpdatePolicyRequest struct {
	Policy map[string]SLATargetsDTO `json:"slaPolicy"`
}

// Validate checks the priorities and that every budget fits a duration.
// How the budgets relate to each other is checked by the domain.
func (r *UpdatePolicyRequest) Validate() error {
	v := validation.NewValidator()
	v.Custom("slaPolicy", len(r.Policy) > 0, "This field is required")
	for priority, targets := range r.Policy {
		v.OneOf("slaPolicy", priority, priorityNames())
		field := "slaPolicy." + priority
		v.Millis(field+".firstResponseMs", targets.FirstResponseMs)
		v.Millis(field+".resolutionMs", targets.ResolutionMs)
		v.Millis(field+".ownResolutionMs", targets.OwnResolutionMs)
	}
	return v.Err()
}

// ProvisionTenantRequest is the body of POST /tenant/provision.
type ProvisionTenantRequest struct {
	Name string `json:"name"`
}

func (r *ProvisionTenantRequest) Validate() error {
	return validation.NewValidator().
		Required("name", r.Name).
		MaxLength("name", r.Name, maxTenantNameLength).
		Err()
}

// PreviewDueResponse is the result of a due date preview.
type PreviewDueResponse struct {
	Start    string `json:"start"`
	BudgetMs int64  `json:"budgetMs"`
	Due      string `json:"due"`
}

// PreviewElapsedResponse is the result of an elapsed business time preview.
type PreviewElapsedResponse struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// HandleGetSettings handles GET /tenant/settings
func (h *TenantHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	tenant, err := h.tenantService.GetSettings(r.Context(), claims.TenantID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTenantSettingsDTO(tenant))
}

// HandleProvision handles POST /tenant/provision
func (h *TenantHandler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := decodeBody[ProvisionTenantRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	tenant, err := h.tenantService.Provision(r.Context(), claims.TenantID, claims.UserID, req.Name)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTenantSettingsDTO(tenant))
}

// HandleUpdateCalendar handles PUT /tenant/calendar
func (h *TenantHandler) HandleUpdateCalendar(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := decodeBody[UpdateCalendarRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	tenant, err := h.tenantService.UpdateCalendar(r.Context(), ports.UpdateCalendarParams{
		TenantID: claims.TenantID,
		ActorID:  claims.UserID,
		Calendar: req.toDomain(),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("tenant calendar updated",
		"tenant_id", claims.TenantID,
		"timezone", tenant.Calendar.Timezone,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toTenantSettingsDTO(tenant))
}

// HandleUpdatePolicy handles PUT /tenant/sla-policy
func (h *TenantHandler) HandleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := decodeBody[UpdatePolicyRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	tenant, err := h.tenantService.UpdatePolicy(r.Context(), ports.UpdatePolicyParams{
		TenantID: claims.TenantID,
		ActorID:  claims.UserID,
		Policy:   policyFromDTO(req.Policy),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("tenant sla policy updated",
		"tenant_id", claims.TenantID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toTenantSettingsDTO(tenant))
}

// HandlePreviewDue handles GET /tenant/calendar/due?start=&budgetMs=
func (h *TenantHandler) HandlePreviewDue(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	v := validation.NewValidator()
	start := v.RequiredTime(r, "start")
	budget := v.RequiredMillis(r, "budgetMs")
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	due, err := h.tenantService.PreviewDue(r.Context(), ports.PreviewDueParams{
		TenantID: claims.TenantID,
		Start:    start,
		Budget:   budget,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, PreviewDueResponse{
		Start:    formatTime(start),
		BudgetMs: budget.Milliseconds(),
		Due:      formatTime(due),
	})
}

// HandlePreviewElapsed handles GET /tenant/calendar/elapsed?start=&end=
func (h *TenantHandler) HandlePreviewElapsed(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	v := validation.NewValidator()
	start := v.RequiredTime(r, "start")
	end := v.RequiredTime(r, "end")
	if err := v.Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	elapsed, err := h.tenantService.PreviewElapsed(r.Context(), ports.PreviewElapsedParams{
		TenantID: claims.TenantID,
		Start:    start,
		End:      end,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, PreviewElapsedResponse{
		Start:     formatTime(start),
		End:       formatTime(end),
		ElapsedMs: elapsed.Milliseconds(),
	})
}
