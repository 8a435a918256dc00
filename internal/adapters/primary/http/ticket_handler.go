package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const (
	maxTicketsPerPage  = 100
	defaultEventsLimit = 50
	maxEventsLimit     = 200
)

// TicketHandler serves the ticket lifecycle. Every mutation it forwards may
// move the ticket's SLA and OLA clocks.
type TicketHandler struct {
	ticketService  ports.TicketService
	eventService   ports.EventService
	commentHandler *CommentHandler
	slaHandler     *SLAHandler
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewTicketHandler creates a new ticket handler. The comment and SLA handlers
// are optional sub-resources.
func NewTicketHandler(
	ticketService ports.TicketService,
	eventService ports.EventService,
	commentHandler *CommentHandler,
	slaHandler *SLAHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TicketHandler {
	return &TicketHandler{
		ticketService:  ticketService,
		eventService:   eventService,
		commentHandler: commentHandler,
		slaHandler:     slaHandler,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "ticket"),
	}
}

// Router sets up a new chi Router for all ticket-related routes.
func (h *TicketHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/", h.HandleCreateTicket)

	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Patch("/status", h.HandleUpdateTicketStatus)
		r.Patch("/assignee", h.HandleAssignTicket)
		r.Get("/events", h.HandleListTicketEvents)
		if h.slaHandler != nil {
			r.Get("/sla", h.slaHandler.HandleGetTicketSLA)
		}
		if h.commentHandler != nil {
			r.Mount("/comments", h.commentHandler.Router())
		}
	})
}

// CreateTicketRequest is the body of POST /tickets. The priority selects the
// tenant's SLA targets.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

func (r *CreateTicketRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength)
	v.MaxLength("description", r.Description, domain.MaxDescriptionLength)
	v.Required("priority", r.Priority).
		OneOf("priority", r.Priority, priorityNames())
	return v.Err()
}

// UpdateStatusRequest is the body of PATCH /tickets/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (r *UpdateStatusRequest) Validate() error {
	return validation.NewValidator().
		Required("status", r.Status).
		OneOf("status", r.Status, statusNames()).
		Err()
}

// AssignTicketRequest is the body of PATCH /tickets/{id}/assignee.
type AssignTicketRequest struct {
	AssigneeID string `json:"assigneeId"`
}

func (r *AssignTicketRequest) Validate() error {
	return validation.NewValidator().
		Required("assigneeId", r.AssigneeID).
		UUID("assigneeId", r.AssigneeID).
		Err()
}

func priorityNames() []string {
	priorities := domain.AllPriorities()
	names := make([]string, len(priorities))
	for i, p := range priorities {
		names[i] = string(p)
	}
	return names
}

func statusNames() []string {
	return []string{
		string(domain.StatusOpen),
		string(domain.StatusInProgress),
		string(domain.StatusWaitingOnCustomer),
		string(domain.StatusResolved),
		string(domain.StatusClosed),
	}
}

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	params, err := parseTicketFilters(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	params.TenantID = claims.TenantID
	params.ViewerID = claims.UserID

	tickets, total, err := h.ticketService.ListTickets(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginated(w, toTicketDTOs(tickets), params.Limit, params.Offset, total)
}

// parseTicketFilters reads pagination and the optional list filters. An
// unassigned filter wins over an explicit assignee.
func parseTicketFilters(r *http.Request) (ports.ListTicketsParams, error) {
	page := validation.ParsePagination(r, maxTicketsPerPage)
	params := ports.ListTicketsParams{
		Limit:      page.Limit,
		Offset:     page.Offset,
		Status:     validation.ParseStringQueryParam(r, "status"),
		Priority:   validation.ParseStringQueryParam(r, "priority"),
		Unassigned: validation.ParseBoolQueryParam(r, "unassigned", false),
	}

	v := validation.NewValidator()
	if params.Status != nil {
		v.OneOf("status", *params.Status, statusNames())
	}
	if params.Priority != nil {
		v.OneOf("priority", *params.Priority, priorityNames())
	}
	params.AssigneeID = v.OptionalUUID("assigneeId", r.URL.Query().Get("assigneeId"))
	params.CreatedFrom, params.CreatedTo = v.TimeRange(r, "createdFrom", "createdTo")

	if params.Unassigned {
		params.AssigneeID = nil
	}
	return params, v.Err()
}

// HandleCreateTicket handles POST /tickets. The response carries the
// started SLA clock with its due instants.
func (h *TicketHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}

	req, err := decodeBody[CreateTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.CreateTicket(r.Context(), ports.CreateTicketParams{
		TenantID:    claims.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
		RequesterID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket created",
		"ticket_id", ticket.ID,
		"priority", ticket.Priority,
		"user_id", claims.UserID,
	)
	WriteCreated(w, toTicketDTO(ticket))
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	claims, ticketID, ok := ticketScope(w, r, h.errorHandler)
	if !ok {
		return
	}

	ticket, err := h.ticketService.GetTicket(r.Context(), ports.GetTicketParams{
		TenantID: claims.TenantID,
		TicketID: ticketID,
		ViewerID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleUpdateTicketStatus handles PATCH /tickets/{ticketID}/status. Moving
// in or out of WAITING_ON_CUSTOMER pauses or resumes the clocks.
func (h *TicketHandler) HandleUpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	claims, ticketID, ok := ticketScope(w, r, h.errorHandler)
	if !ok {
		return
	}

	req, err := decodeBody[UpdateStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.ticketService.UpdateStatus(r.Context(), ports.UpdateStatusParams{
		TenantID: claims.TenantID,
		TicketID: ticketID,
		Status:   domain.TicketStatus(req.Status),
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket status updated",
		"ticket_id", ticketID,
		"new_status", req.Status,
		"sla_state", ticket.SLA.State(),
		"user_id", claims.UserID,
	)
	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// HandleAssignTicket handles PATCH /tickets/{ticketID}/assignee. The first
// assignment starts the OLA clock.
func (h *TicketHandler) HandleAssignTicket(w http.ResponseWriter, r *http.Request) {
	claims, ticketID, ok := ticketScope(w, r, h.errorHandler)
	if !ok {
		return
	}

	req, err := decodeBody[AssignTicketRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	assigneeID := uuid.MustParse(req.AssigneeID)

	ticket, err := h.ticketService.AssignTicket(r.Context(), ports.AssignTicketParams{
		TenantID:   claims.TenantID,
		TicketID:   ticketID,
		AssigneeID: assigneeID,
		ActorID:    claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("ticket assigned",
		"ticket_id", ticketID,
		"assignee_id", assigneeID,
		"ola_state", ticket.OLA.State(),
		"user_id", claims.UserID,
	)
	WriteJSON(w, http.StatusOK, toTicketDTO(ticket))
}

// TicketEventsResponse is one page of a ticket's timeline.
type TicketEventsResponse = CursorPage[*domain.Event]

// HandleListTicketEvents handles GET /tickets/{ticketID}/events?after=&limit=
func (h *TicketHandler) HandleListTicketEvents(w http.ResponseWriter, r *http.Request) {
	claims, ticketID, ok := ticketScope(w, r, h.errorHandler)
	if !ok {
		return
	}

	afterID, limit, err := parseEventCursor(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	events, err := h.eventService.ListTicketEvents(r.Context(), ports.ListTicketEventsParams{
		TenantID: claims.TenantID,
		TicketID: ticketID,
		ViewerID: claims.UserID,
		AfterID:  afterID,
		Limit:    limit,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteCursorPage(w, events, limit, func(e *domain.Event) int64 { return e.ID })
}

func parseEventCursor(r *http.Request) (int64, int, error) {
	v := validation.NewValidator()
	query := r.URL.Query()

	var afterID int64
	if raw := query.Get("after"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		v.Custom("after", err == nil && parsed >= 0, "after must be a positive integer")
		afterID = max(parsed, 0)
	}

	limit := defaultEventsLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		v.Custom("limit", err == nil && parsed > 0, "limit must be a positive integer")
		v.Custom("limit", parsed <= maxEventsLimit, "limit exceeds maximum")
		limit = parsed
	}

	return afterID, limit, v.Err()
}
