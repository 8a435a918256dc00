package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// AuthorizationService defines the port for checking user permissions.
type AuthorizationService interface {
	Can(ctx context.Context, userID uuid.UUID, permission string) (bool, error)
	GetPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// CreateTicketParams defines the required input for creating a new ticket.
type CreateTicketParams struct {
	TenantID    uuid.UUID
	Title       string
	Description string
	Priority    domain.TicketPriority
	RequesterID uuid.UUID
}

// GetTicketParams identifies a ticket as seen by a member of a tenant.
type GetTicketParams struct {
	TenantID uuid.UUID
	TicketID int64
	ViewerID uuid.UUID
}

// UpdateStatusParams defines the input for changing a ticket's status.
type UpdateStatusParams struct {
	TenantID uuid.UUID
	TicketID int64
	Status   domain.TicketStatus
	ActorID  uuid.UUID
}

// AssignTicketParams defines the input for assigning a ticket.
type AssignTicketParams struct {
	TenantID   uuid.UUID
	TicketID   int64
	AssigneeID uuid.UUID
	ActorID    uuid.UUID
}

// RecordReplyParams defines the input for recording an agent reply.
type RecordReplyParams struct {
	TenantID uuid.UUID
	TicketID int64
	ActorID  uuid.UUID
	At       time.Time
}

// CreateCommentParams defines the input for creating a comment.
type CreateCommentParams struct {
	TenantID uuid.UUID
	TicketID int64
	ActorID  uuid.UUID
	Body     string
}

// GetCommentsParams defines the input for retrieving comments.
type GetCommentsParams struct {
	TenantID uuid.UUID
	TicketID int64
	ActorID  uuid.UUID
}

// ListTicketsParams defines the input for listing tickets.
type ListTicketsParams struct {
	TenantID    uuid.UUID
	ViewerID    uuid.UUID
	Limit       int
	Offset      int
	Status      *string
	Priority    *string
	AssigneeID  *uuid.UUID
	Unassigned  bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ListTicketEventsParams defines the input for listing ticket events.
type ListTicketEventsParams struct {
	TenantID uuid.UUID
	TicketID int64
	ViewerID uuid.UUID
	AfterID  int64
	Limit    int
}

// NotificationParams defines the input for sending a notification.
type NotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	TicketID        int64
}

// UpdateCalendarParams defines the input for replacing a tenant calendar.
type UpdateCalendarParams struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
	Calendar domain.BusinessCalendar
}

// UpdatePolicyParams defines the input for replacing a tenant SLA policy.
type UpdatePolicyParams struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
	Policy   domain.SLAPolicy
}

// PreviewDueParams asks when a budget starting at Start would be due.
type PreviewDueParams struct {
	TenantID uuid.UUID
	Start    time.Time
	Budget   time.Duration
}

// PreviewElapsedParams asks how much business time lies between two instants.
type PreviewElapsedParams struct {
	TenantID uuid.UUID
	Start    time.Time
	End      time.Time
}

// SyncProfileParams carries the identity provider profile of the caller.
type SyncProfileParams struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	FullName string
	Email    string
}

// UpdateUserRoleParams defines the input for changing a user's role.
type UpdateUserRoleParams struct {
	ActorID  uuid.UUID
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     string
}

// ClockStatus is a point-in-time view of one ticket clock.
type ClockStatus struct {
	Kind      domain.ClockKind
	State     domain.ClockState
	StartedAt *time.Time
	PausedAt  *time.Time
	PausedFor time.Duration
	Breached  bool
	Targets   []domain.TargetStatus
}

// TicketSLA is the SLA and OLA view of a ticket.
type TicketSLA struct {
	TicketID  int64
	Status    domain.TicketStatus
	Priority  domain.TicketPriority
	Evaluated time.Time
	Calendar  domain.BusinessCalendar
	SLA       ClockStatus
	OLA       ClockStatus
}

// TicketService defines the core business operations for managing tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, params CreateTicketParams) (*domain.Ticket, error)
	GetTicket(ctx context.Context, params GetTicketParams) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Ticket, error)
	AssignTicket(ctx context.Context, params AssignTicketParams) (*domain.Ticket, error)
	RecordAgentReply(ctx context.Context, params RecordReplyParams) (*domain.Ticket, error)
	ListTickets(ctx context.Context, params ListTicketsParams) ([]*domain.Ticket, int64, error)
	Shutdown()
}

// CommentService defines the port for comment-related business logic.
type CommentService interface {
	CreateComment(ctx context.Context, params CreateCommentParams) (*domain.Comment, error)
	GetCommentsForTicket(ctx context.Context, params GetCommentsParams) ([]*domain.Comment, error)
}

// EventService defines the port for ticket event queries.
type EventService interface {
	ListTicketEvents(ctx context.Context, params ListTicketEventsParams) ([]*domain.Event, error)
}

// TenantService manages the per-tenant calendar and SLA policy.
type TenantService interface {
	GetSettings(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error)
	Provision(ctx context.Context, tenantID, actorID uuid.UUID, name string) (*domain.Tenant, error)
	UpdateCalendar(ctx context.Context, params UpdateCalendarParams) (*domain.Tenant, error)
	UpdatePolicy(ctx context.Context, params UpdatePolicyParams) (*domain.Tenant, error)
	PreviewDue(ctx context.Context, params PreviewDueParams) (time.Time, error)
	PreviewElapsed(ctx context.Context, params PreviewElapsedParams) (time.Duration, error)
}

// SLAService exposes clock status and compliance reporting.
type SLAService interface {
	GetTicketSLA(ctx context.Context, params GetTicketParams) (*TicketSLA, error)
	GetComplianceReport(ctx context.Context, tenantID, actorID uuid.UUID, days int) (*domain.ComplianceReport, error)
}

// UserService manages the user directory mirrored from the identity provider.
type UserService interface {
	SyncProfile(ctx context.Context, params SyncProfileParams) (*domain.User, error)
	ListAssignableUsers(ctx context.Context, actorID, tenantID uuid.UUID) ([]*domain.User, error)
	UpdateUserRole(ctx context.Context, params UpdateUserRoleParams) error
}

// Notifier defines the port for sending asynchronous notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// EventBroadcaster pushes events to connected real-time clients.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// SnapshotReader runs several reads against one consistent snapshot.
type SnapshotReader interface {
	WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
