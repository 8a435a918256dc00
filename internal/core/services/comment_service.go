package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// CommentService implements the business logic for comments.
type CommentService struct {
	commentRepo ports.CommentRepository
	eventRepo   ports.TicketEventRepository
	ticketSvc   ports.TicketService
	authzSvc    ports.AuthorizationService
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	txManager   ports.TransactionManager
	now         func() time.Time
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// Ensure implementation matches the interface.
var _ ports.CommentService = (*CommentService)(nil)

// NewCommentService creates a new service for comment logic.
func NewCommentService(
	commentRepo ports.CommentRepository,
	eventRepo ports.TicketEventRepository,
	ticketSvc ports.TicketService,
	authzSvc ports.AuthorizationService,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	txManager ports.TransactionManager,
	opts ...Option,
) *CommentService {
	o := applyOptions(opts)
	return &CommentService{
		commentRepo: commentRepo,
		eventRepo:   eventRepo,
		ticketSvc:   ticketSvc,
		authzSvc:    authzSvc,
		notifier:    notifier,
		broadcaster: broadcaster,
		txManager:   txManager,
		now:         o.now,
		logger:      o.logger.With("component", "comment_service"),
	}
}

// CreateComment adds a new comment to a ticket. A comment from anyone but the
// requester who may respond to tickets counts as an agent reply.
func (s *CommentService) CreateComment(ctx context.Context, params ports.CreateCommentParams) (*domain.Comment, error) {
	// 1. Check permission to create comments.
	if err := requirePermission(ctx, s.authzSvc, params.ActorID, "comments:create"); err != nil {
		return nil, err
	}

	// 2. Check if the user can access the ticket they're trying to comment on.
	ticket, err := s.ticketSvc.GetTicket(ctx, ports.GetTicketParams{
		TenantID: params.TenantID,
		TicketID: params.TicketID,
		ViewerID: params.ActorID,
	})
	if err != nil {
		return nil, err
	}

	// 3. A comment from anyone but the requester who may respond is an
	// agent reply. Decided before anything is written.
	isAgentReply := false
	if ticket.RequesterID != params.ActorID {
		isAgentReply, err = s.authzSvc.Can(ctx, params.ActorID, "tickets:respond")
		if err != nil {
			return nil, err
		}
	}

	// 4. Create the domain entity.
	at := s.now()
	comment, err := domain.NewComment(domain.CommentParams{
		TicketID:  params.TicketID,
		AuthorID:  params.ActorID,
		Body:      params.Body,
		CreatedAt: at,
	})
	if err != nil {
		return nil, err
	}

	// 5. Persist the comment, its timeline event and, for an agent reply,
	// the first response in one transaction.
	var (
		newComment *domain.Comment
		event      *domain.Event
	)
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		newComment, err = s.commentRepo.Create(ctx, comment)
		if err != nil {
			return err
		}
		entry, err := domain.NewEvent(newComment.TicketID, domain.EventCommentAdded,
			params.ActorID, domain.NewCommentSnapshot(newComment), at)
		if err != nil {
			return err
		}
		event, err = s.eventRepo.Create(ctx, entry)
		if err != nil || !isAgentReply {
			return err
		}
		_, err = s.ticketSvc.RecordAgentReply(ctx, ports.RecordReplyParams{
			TenantID: params.TenantID,
			TicketID: params.TicketID,
			ActorID:  params.ActorID,
			At:       newComment.CreatedAt,
		})
		return err
	})
	if err != nil {
		s.logger.Error("failed to create comment",
			"ticket_id", params.TicketID,
			"agent_reply", isAgentReply,
			"error", err,
		)
		return nil, err
	}

	// 6. Notify the requester unless they wrote it, then broadcast (async).
	if ticket.RequesterID != params.ActorID {
		s.runAsync(func() {
			s.notifier.Notify(context.Background(), ports.NotificationParams{
				RecipientUserID: ticket.RequesterID,
				Subject:         fmt.Sprintf("A new comment was added to your ticket: #%d", ticket.ID),
				Message:         fmt.Sprintf("A new comment has been added to your ticket '%s'.", ticket.Title),
				TicketID:        ticket.ID,
			})
		})
	}
	s.runAsync(func() {
		if err := s.broadcaster.Broadcast(*event); err != nil {
			s.logger.Warn("failed to broadcast comment event",
				"ticket_id", event.TicketID,
				"type", event.Type,
				"error", err,
			)
		}
	})

	return newComment, nil
}

// GetCommentsForTicket retrieves all comments for a specific ticket.
func (s *CommentService) GetCommentsForTicket(ctx context.Context, params ports.GetCommentsParams) ([]*domain.Comment, error) {
	// 1. Check permission to read comments.
	if err := requirePermission(ctx, s.authzSvc, params.ActorID, "comments:read"); err != nil {
		return nil, err
	}

	// 2. Reuse the ticket visibility rules.
	if _, err := s.ticketSvc.GetTicket(ctx, ports.GetTicketParams{
		TenantID: params.TenantID,
		TicketID: params.TicketID,
		ViewerID: params.ActorID,
	}); err != nil {
		return nil, err
	}

	// 3. Retrieve the comments.
	return s.commentRepo.ListByTicketID(ctx, params.TicketID)
}

// Shutdown waits for in-flight notifications and broadcasts.
func (s *CommentService) Shutdown() {
	s.wg.Wait()
}

func (s *CommentService) runAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}
