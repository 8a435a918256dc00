package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

const MaxCommentLength = 10000

// Comment is a message on a ticket's conversation.
type Comment struct {
	ID        int64
	TicketID  int64
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

// CommentParams holds parameters for creating a new comment
type CommentParams struct {
	TicketID  int64
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}

// NewComment validates and builds a comment.
func NewComment(params CommentParams) (*Comment, error) {
	errs := apperrors.NewValidationErrors()

	body := strings.TrimSpace(params.Body)
	if body == "" {
		errs.Add("body", "Comment body is required")
	} else if len(body) > MaxCommentLength {
		errs.Add("body", "Comment body must be 10000 characters or less")
	}
	if params.TicketID <= 0 {
		errs.Add("ticketId", "Ticket ID is required")
	}
	if params.AuthorID == uuid.Nil {
		errs.Add("authorId", "Author ID is required")
	}

	if errs.HasErrors() {
		return nil, errs
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Comment{
		TicketID:  params.TicketID,
		AuthorID:  params.AuthorID,
		Body:      body,
		CreatedAt: createdAt,
	}, nil
}
