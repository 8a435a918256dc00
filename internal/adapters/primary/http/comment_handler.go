package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/service-desk-sla/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// CommentHandler handles HTTP requests for comments.
type CommentHandler struct {
	commentService ports.CommentService
	errorHandler   *ErrorHandler
	logger         *slog.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(
	commentService ports.CommentService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		errorHandler:   errorHandler,
		logger:         logger.With("handler", "comment"),
	}
}

// Router sets up a new chi Router for comment routes.
func (h *CommentHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the comment endpoints relative to
// /tickets/{ticketID}/comments.
func (h *CommentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateComment)
	r.Get("/", h.HandleListComments)
}

// CreateCommentRequest is the body of POST /tickets/{id}/comments.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

func (r *CreateCommentRequest) Validate() error {
	return validation.NewValidator().
		Required("body", r.Body).
		MaxLength("body", r.Body, domain.MaxCommentLength).
		Err()
}

// HandleCreateComment handles POST /tickets/{ticketID}/comments. A reply
// from an agent other than the requester records the first response.
func (h *CommentHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	claims, ticketID, ok := ticketScope(w, r, h.errorHandler)
	if !ok {
		return
	}

	req, err := decodeBody[CreateCommentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comment, err := h.commentService.CreateComment(r.Context(), ports.CreateCommentParams{
		TenantID: claims.TenantID,
		TicketID: ticketID,
		ActorID:  claims.UserID,
		Body:     req.Body,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("comment created",
		"comment_id", comment.ID,
		"ticket_id", ticketID,
		"user_id", claims.UserID,
	)
	WriteCreated(w, toCommentDTO(comment))
}

// HandleListComments handles GET /tickets/{ticketID}/comments
func (h *CommentHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	claims, ticketID, ok := ticketScope(w, r, h.errorHandler)
	if !ok {
		return
	}

	comments, err := h.commentService.GetCommentsForTicket(r.Context(), ports.GetCommentsParams{
		TenantID: claims.TenantID,
		TicketID: ticketID,
		ActorID:  claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toCommentDTOs(comments))
}
