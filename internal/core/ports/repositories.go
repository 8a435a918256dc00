package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// ListTicketsRepoParams defines the storage-level filters for listing tickets.
type ListTicketsRepoParams struct {
	TenantID    uuid.UUID
	RequesterID *uuid.UUID
	Limit       int
	Offset      int
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	AssigneeID  *uuid.UUID
	Unassigned  bool
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// TicketRepository persists tickets together with their SLA and OLA clocks.
// Update must only succeed when the stored version matches ticket.Version,
// returning apperrors.ErrConflict otherwise.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error)
	List(ctx context.Context, params ListTicketsRepoParams) ([]*domain.Ticket, error)
	Count(ctx context.Context, params ListTicketsRepoParams) (int64, error)
	// ListActive returns tenant tickets that are neither resolved nor closed.
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*domain.Ticket, error)
}

// TenantRepository persists tenant calendars and SLA policies.
type TenantRepository interface {
	Create(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	Update(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// CommentRepository persists ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.Comment, error)
}

// TicketEventRepository persists the ticket timeline.
type TicketEventRepository interface {
	Create(ctx context.Context, event *domain.Event) (*domain.Event, error)
	ListByTicketID(ctx context.Context, ticketID int64, afterID int64, limit int) ([]*domain.Event, error)
}

// UserRepository persists the user directory.
type UserRepository interface {
	Upsert(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListByPermission(ctx context.Context, tenantID uuid.UUID, permission string) ([]*domain.User, error)
}

// AuthorizationRepository defines the port for RBAC data access.
type AuthorizationRepository interface {
	GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, userID uuid.UUID, roleName string) error
	SetUserRole(ctx context.Context, userID uuid.UUID, roleName string) error
}

// SLAReportRepository reads the data behind compliance reports.
type SLAReportRepository interface {
	CountByStatus(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]domain.StatusCount, error)
	ListCreatedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]*domain.Ticket, error)
}

// BreachLedger remembers which breaches have already been announced.
// MarkNotified returns true only for the first caller of a key.
type BreachLedger interface {
	MarkNotified(ctx context.Context, key string) (bool, error)
}
