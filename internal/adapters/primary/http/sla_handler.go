package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// SLAHandler serves clock status and compliance reporting.
type SLAHandler struct {
	slaService   ports.SLAService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSLAHandler creates a new SLA handler.
func NewSLAHandler(
	slaService ports.SLAService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *SLAHandler {
	return &SLAHandler{
		slaService:   slaService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "sla"),
	}
}

// Router sets up the routes mounted at /sla.
func (h *SLAHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/report", h.HandleComplianceReport)
	return r
}

// HandleGetTicketSLA handles GET /tickets/{ticketID}/sla
func (h *SLAHandler) HandleGetTicketSLA(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	view, err := h.slaService.GetTicketSLA(r.Context(), ports.GetTicketParams{
		TenantID: claims.TenantID,
		TicketID: ticketID,
		ViewerID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketSLADTO(view))
}

// HandleComplianceReport handles GET /sla/report?days=N
func (h *SLAHandler) HandleComplianceReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	// Out of range values are clamped by the service.
	days := validation.ParseIntQueryParam(r, "days", 0)

	report, err := h.slaService.GetComplianceReport(r.Context(), claims.TenantID, claims.UserID, days)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toComplianceReportDTO(report))
}
