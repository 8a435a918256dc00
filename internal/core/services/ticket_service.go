package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const (
	maxMutationAttempts = 3
	defaultListLimit    = 20
	maxListLimit        = 100
)

// TicketService implements business logic for ticket management
type TicketService struct {
	ticketRepo  ports.TicketRepository
	tenantRepo  ports.TenantRepository
	eventRepo   ports.TicketEventRepository
	userRepo    ports.UserRepository
	authzSvc    ports.AuthorizationService
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	txManager   ports.TransactionManager
	now         func() time.Time
	logger      *slog.Logger
	wg          sync.WaitGroup
}

var _ ports.TicketService = (*TicketService)(nil)

// NewTicketService creates a new ticket service
func NewTicketService(
	ticketRepo ports.TicketRepository,
	tenantRepo ports.TenantRepository,
	eventRepo ports.TicketEventRepository,
	userRepo ports.UserRepository,
	authzSvc ports.AuthorizationService,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	txManager ports.TransactionManager,
	opts ...Option,
) *TicketService {
	o := applyOptions(opts)
	return &TicketService{
		ticketRepo:  ticketRepo,
		tenantRepo:  tenantRepo,
		eventRepo:   eventRepo,
		userRepo:    userRepo,
		authzSvc:    authzSvc,
		notifier:    notifier,
		broadcaster: broadcaster,
		txManager:   txManager,
		now:         o.now,
		logger:      o.logger.With("component", "ticket_service"),
	}
}

// CreateTicket handles the use case for submitting a new ticket and starts its SLA clock.
func (s *TicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	// 1. Authorization Check
	if err := requirePermission(ctx, s.authzSvc, params.RequesterID, "tickets:create"); err != nil {
		return nil, err
	}

	// 2. Create domain entity with validation
	at := s.now()
	ticket, err := domain.NewTicket(domain.TicketParams{
		TenantID:    params.TenantID,
		Title:       params.Title,
		Description: params.Description,
		Priority:    params.Priority,
		RequesterID: params.RequesterID,
		CreatedAt:   at,
	})
	if err != nil {
		return nil, err
	}

	// 3. Start the SLA clock against the tenant's current configuration
	tenant, err := s.tenantRepo.GetByID(ctx, params.TenantID)
	if err != nil {
		return nil, err
	}
	targets, err := tenant.Policy.TargetsFor(ticket.Priority)
	if err != nil {
		return nil, err
	}
	if err := ticket.ApplyLifecycleEvent(domain.LifecycleEvent{Kind: domain.LifecycleCreated, At: at}, targets, tenant.Calendar); err != nil {
		s.logClockError(err, 0, domain.LifecycleCreated)
		return nil, err
	}

	// 4. Persist the ticket and its creation event atomically
	var (
		created *domain.Ticket
		event   *domain.Event
	)
	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		created, err = s.ticketRepo.Create(ctx, ticket)
		if err != nil {
			return err
		}
		event, err = s.recordEvent(ctx, created.ID, domain.EventTicketCreated, params.RequesterID, domain.NewTicketSnapshot(created), at)
		return err
	})
	if err != nil {
		return nil, err
	}

	// 5. Broadcast real-time event (async)
	s.broadcast(event)

	return created, nil
}

// GetTicket retrieves a specific ticket with authorization
func (s *TicketService) GetTicket(ctx context.Context, params ports.GetTicketParams) (*domain.Ticket, error) {
	// 1. Basic Authorization Check
	if err := requirePermission(ctx, s.authzSvc, params.ViewerID, "tickets:read"); err != nil {
		return nil, err
	}

	// 2. Fetch the ticket inside the viewer's tenant
	ticket, err := s.loadTicket(ctx, params.TenantID, params.TicketID)
	if err != nil {
		return nil, err
	}

	// 3. Check ownership or elevated permissions
	if !ticket.IsOwnedBy(params.ViewerID) && !ticket.IsAssignedTo(params.ViewerID) {
		canReadAll, err := s.authzSvc.Can(ctx, params.ViewerID, "tickets:read:all")
		if err != nil {
			return nil, err
		}
		if !canReadAll {
			return nil, apperrors.ErrForbidden
		}
	}

	return ticket, nil
}

// UpdateStatus changes a ticket's status and moves its clocks accordingly.
func (s *TicketService) UpdateStatus(ctx context.Context, params ports.UpdateStatusParams) (*domain.Ticket, error) {
	// 1. Authorization Check
	if err := requirePermission(ctx, s.authzSvc, params.ActorID, "tickets:update:status"); err != nil {
		return nil, err
	}
	if !params.Status.IsValid() {
		return nil, apperrors.ErrInvalidStatus
	}

	// 2. Apply the transition and the clock trigger under the version guard
	updated, event, err := s.mutate(ctx, params.TenantID, params.TicketID, params.ActorID,
		func(ticket *domain.Ticket, targets domain.SLATargets, cal domain.BusinessCalendar, at time.Time) (domain.EventType, error) {
			from := ticket.Status
			if from == params.Status {
				return "", nil
			}
			if err := ticket.UpdateStatus(params.Status, at); err != nil {
				return "", err
			}
			ev := domain.LifecycleEvent{Kind: domain.LifecycleStatusChanged, At: at, From: from, To: params.Status}
			if err := ticket.ApplyLifecycleEvent(ev, targets, cal); err != nil {
				return "", err
			}
			return domain.EventStatusUpdated, nil
		})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return updated, nil
	}

	// 3. Notify the requester and broadcast (async)
	if updated.RequesterID != params.ActorID {
		s.notify(ports.NotificationParams{
			RecipientUserID: updated.RequesterID,
			Subject:         fmt.Sprintf("Your ticket status has been updated: #%d", updated.ID),
			Message:         fmt.Sprintf("The status of your ticket '%s' was changed to %s.", updated.Title, updated.Status),
			TicketID:        updated.ID,
		})
	}
	s.broadcast(event)

	return updated, nil
}

// AssignTicket assigns a ticket to an agent. The first assignment starts the OLA clock.
func (s *TicketService) AssignTicket(ctx context.Context, params ports.AssignTicketParams) (*domain.Ticket, error) {
	// 1. Authorization Check
	if err := requirePermission(ctx, s.authzSvc, params.ActorID, "tickets:assign"); err != nil {
		return nil, err
	}

	// 2. The assignee must be a member of the tenant who can work tickets
	if err := s.checkAssignee(ctx, params.TenantID, params.AssigneeID); err != nil {
		return nil, err
	}

	// 3. Apply assignment and start the OLA clock
	updated, event, err := s.mutate(ctx, params.TenantID, params.TicketID, params.ActorID,
		func(ticket *domain.Ticket, targets domain.SLATargets, cal domain.BusinessCalendar, at time.Time) (domain.EventType, error) {
			if ticket.IsAssignedTo(params.AssigneeID) {
				return "", nil
			}
			if err := ticket.Assign(params.AssigneeID, at); err != nil {
				return "", err
			}
			if err := ticket.ApplyLifecycleEvent(domain.LifecycleEvent{Kind: domain.LifecycleAssigned, At: at}, targets, cal); err != nil {
				return "", err
			}
			return domain.EventTicketAssigned, nil
		})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return updated, nil
	}

	// 4. Notify the assignee and broadcast (async)
	if params.AssigneeID != params.ActorID {
		s.notify(ports.NotificationParams{
			RecipientUserID: params.AssigneeID,
			Subject:         fmt.Sprintf("Ticket assigned to you: #%d", updated.ID),
			Message:         fmt.Sprintf("The ticket '%s' (%s) was assigned to you.", updated.Title, updated.Priority),
			TicketID:        updated.ID,
		})
	}
	s.broadcast(event)

	return updated, nil
}

// RecordAgentReply records the first agent response on the SLA clock.
// Later replies leave the ticket untouched.
func (s *TicketService) RecordAgentReply(ctx context.Context, params ports.RecordReplyParams) (*domain.Ticket, error) {
	if err := requirePermission(ctx, s.authzSvc, params.ActorID, "tickets:respond"); err != nil {
		return nil, err
	}

	updated, event, err := s.mutate(ctx, params.TenantID, params.TicketID, params.ActorID,
		func(ticket *domain.Ticket, targets domain.SLATargets, cal domain.BusinessCalendar, at time.Time) (domain.EventType, error) {
			if ticket.SLA.Response == nil || ticket.SLA.Response.IsMet() {
				return "", nil
			}
			if !params.At.IsZero() {
				at = params.At.UTC()
			}
			if err := ticket.ApplyLifecycleEvent(domain.LifecycleEvent{Kind: domain.LifecycleAgentReplied, At: at}, targets, cal); err != nil {
				return "", err
			}
			return domain.EventFirstResponse, nil
		})
	if err != nil {
		return nil, err
	}
	if event != nil {
		s.broadcast(event)
	}

	return updated, nil
}

// ListTickets retrieves tickets based on user permissions
func (s *TicketService) ListTickets(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, int64, error) {
	// 1. Check if user can see all tickets
	canListAll, err := s.authzSvc.Can(ctx, params.ViewerID, "tickets:read:all")
	if err != nil {
		return nil, 0, err
	}

	// 2. Translate the filters
	repoParams, err := buildListRepoParams(params)
	if err != nil {
		return nil, 0, err
	}

	// 3. Default: scope query to the requesting user's tickets
	if !canListAll {
		viewerID := params.ViewerID
		repoParams.RequesterID = &viewerID
	}

	tickets, err := s.ticketRepo.List(ctx, repoParams)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.ticketRepo.Count(ctx, repoParams)
	if err != nil {
		return nil, 0, err
	}

	return tickets, total, nil
}

// Shutdown waits for in-flight notifications and broadcasts.
func (s *TicketService) Shutdown() {
	s.wg.Wait()
}

// mutation applies a change to a freshly loaded ticket. An empty event type
// means nothing changed and nothing is persisted.
type mutation func(ticket *domain.Ticket, targets domain.SLATargets, cal domain.BusinessCalendar, at time.Time) (domain.EventType, error)

// mutate loads the tenant configuration and the ticket, applies fn and
// persists the result with its timeline event in one transaction. A lost
// version race is retried with fresh state.
func (s *TicketService) mutate(
	ctx context.Context,
	tenantID uuid.UUID,
	ticketID int64,
	actorID uuid.UUID,
	fn mutation,
) (*domain.Ticket, *domain.Event, error) {
	for attempt := 1; ; attempt++ {
		var (
			updated *domain.Ticket
			event   *domain.Event
		)
		err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
			tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
			if err != nil {
				return err
			}
			ticket, err := s.loadTicket(ctx, tenantID, ticketID)
			if err != nil {
				return err
			}
			targets, err := tenant.Policy.TargetsFor(ticket.Priority)
			if err != nil {
				return err
			}

			at := s.now()
			eventType, err := fn(ticket, targets, tenant.Calendar, at)
			if err != nil {
				return err
			}
			if eventType == "" {
				updated = ticket
				return nil
			}

			updated, err = s.ticketRepo.Update(ctx, ticket)
			if err != nil {
				return err
			}
			event, err = s.recordEvent(ctx, updated.ID, eventType, actorID, domain.NewTicketSnapshot(updated), at)
			return err
		})

		switch {
		case err == nil:
			return updated, event, nil
		case errors.Is(err, apperrors.ErrConflict) && attempt < maxMutationAttempts:
			s.logger.Warn("ticket version conflict, retrying",
				"ticket_id", ticketID,
				"attempt", attempt,
			)
		default:
			s.logClockError(err, ticketID, "")
			return nil, nil, err
		}
	}
}

func (s *TicketService) checkAssignee(ctx context.Context, tenantID, assigneeID uuid.UUID) error {
	errs := apperrors.NewValidationErrors()
	if assigneeID == uuid.Nil {
		errs.Add("assigneeId", "Assignee ID is required")
		return errs
	}

	assignee, err := s.userRepo.GetByID(ctx, assigneeID)
	if errors.Is(err, apperrors.ErrUserNotFound) {
		errs.Add("assigneeId", "Assignee not found")
		return errs
	}
	if err != nil {
		return err
	}
	if !assignee.BelongsTo(tenantID) {
		errs.Add("assigneeId", "Assignee not found")
		return errs
	}

	canRespond, err := s.authzSvc.Can(ctx, assigneeID, "tickets:respond")
	if err != nil {
		return err
	}
	if !canRespond {
		errs.Add("assigneeId", "Assignee cannot work tickets")
		return errs
	}
	return nil
}

// loadTicket hides tickets of other tenants behind ErrTicketNotFound.
func (s *TicketService) loadTicket(ctx context.Context, tenantID uuid.UUID, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.TenantID != tenantID {
		return nil, apperrors.ErrTicketNotFound
	}
	return ticket, nil
}

func (s *TicketService) recordEvent(
	ctx context.Context,
	ticketID int64,
	eventType domain.EventType,
	actorID uuid.UUID,
	payload any,
	at time.Time,
) (*domain.Event, error) {
	event, err := domain.NewEvent(ticketID, eventType, actorID, payload, at)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.Create(ctx, event)
}

// logClockError reports clock state machine violations, which indicate a bug
// in the trigger mapping rather than bad input.
func (s *TicketService) logClockError(err error, ticketID int64, kind domain.LifecycleEventKind) {
	if !errors.Is(err, apperrors.ErrInvalidClockTransition) {
		return
	}
	s.logger.Error("invalid clock transition",
		"ticket_id", ticketID,
		"lifecycle_event", kind,
		"error", err,
	)
}

// notify sends a notification in the background; the HTTP request may be done.
func (s *TicketService) notify(params ports.NotificationParams) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notifier.Notify(context.Background(), params)
	}()
}

func (s *TicketService) broadcast(event *domain.Event) {
	if event == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.broadcaster.Broadcast(*event); err != nil {
			s.logger.Warn("failed to broadcast ticket event",
				"ticket_id", event.TicketID,
				"type", event.Type,
				"error", err,
			)
		}
	}()
}

func buildListRepoParams(params ports.ListTicketsParams) (ports.ListTicketsRepoParams, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	repoParams := ports.ListTicketsRepoParams{
		TenantID:    params.TenantID,
		Limit:       limit,
		Offset:      offset,
		AssigneeID:  params.AssigneeID,
		Unassigned:  params.Unassigned,
		CreatedFrom: params.CreatedFrom,
		CreatedTo:   params.CreatedTo,
	}

	errs := apperrors.NewValidationErrors()
	if params.Status != nil {
		status := domain.TicketStatus(*params.Status)
		if !status.IsValid() {
			errs.Add("status", "Invalid status filter")
		}
		repoParams.Status = &status
	}
	if params.Priority != nil {
		priority := domain.TicketPriority(*params.Priority)
		if !priority.IsValid() {
			errs.Add("priority", "Invalid priority filter")
		}
		repoParams.Priority = &priority
	}
	if params.AssigneeID != nil && params.Unassigned {
		errs.Add("assigneeId", "Cannot combine assigneeId with unassigned")
	}
	if errs.HasErrors() {
		return ports.ListTicketsRepoParams{}, errs
	}

	return repoParams, nil
}
