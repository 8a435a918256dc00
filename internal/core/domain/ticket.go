package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// Validation constants
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 10000
)

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen              TicketStatus = "OPEN"
	StatusInProgress        TicketStatus = "IN_PROGRESS"
	StatusWaitingOnCustomer TicketStatus = "WAITING_ON_CUSTOMER"
	StatusResolved          TicketStatus = "RESOLVED"
	StatusClosed            TicketStatus = "CLOSED"
)

// IsValid checks if the status is a valid value
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusWaitingOnCustomer, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// IsFinished reports whether work on the ticket is done.
func (s TicketStatus) IsFinished() bool {
	return s == StatusResolved || s == StatusClosed
}

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "LOW"
	PriorityMedium TicketPriority = "MEDIUM"
	PriorityHigh   TicketPriority = "HIGH"
	PriorityUrgent TicketPriority = "URGENT"
)

// AllPriorities lists every priority an SLA policy must cover.
func AllPriorities() []TicketPriority {
	return []TicketPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

// IsValid checks if the priority is a valid value
func (p TicketPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// validTransitions defines the allowed status changes.
var validTransitions = map[TicketStatus][]TicketStatus{
	StatusOpen:              {StatusInProgress, StatusWaitingOnCustomer, StatusResolved, StatusClosed},
	StatusInProgress:        {StatusOpen, StatusWaitingOnCustomer, StatusResolved, StatusClosed},
	StatusWaitingOnCustomer: {StatusOpen, StatusInProgress, StatusResolved, StatusClosed},
	StatusResolved:          {StatusOpen, StatusInProgress, StatusWaitingOnCustomer, StatusClosed},
	StatusClosed:            {},
}

// Ticket is the core domain entity. It owns the customer-facing SLA clock
// and the internal OLA clock.
type Ticket struct {
	ID          int64
	TenantID    uuid.UUID
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	RequesterID uuid.UUID
	AssigneeID  *uuid.UUID
	SLA         Clock
	OLA         Clock
	Version     int
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	ClosedAt    *time.Time
}

// TicketParams holds parameters for creating a new ticket
type TicketParams struct {
	TenantID    uuid.UUID
	Title       string
	Description string
	Priority    TicketPriority
	RequesterID uuid.UUID
	CreatedAt   time.Time
}

// NewTicket is a factory function to create a valid new ticket.
// The clocks are left unstarted; the Created lifecycle event starts them.
func NewTicket(params TicketParams) (*Ticket, error) {
	errs := apperrors.NewValidationErrors()

	title := strings.TrimSpace(params.Title)
	if title == "" {
		errs.Add("title", "Title is required")
	} else if len(title) > MaxTitleLength {
		errs.Add("title", "Title must be 255 characters or less")
	}

	if len(params.Description) > MaxDescriptionLength {
		errs.Add("description", "Description must be 10000 characters or less")
	}

	if !params.Priority.IsValid() {
		errs.Add("priority", "Priority must be one of: LOW, MEDIUM, HIGH, URGENT")
	}

	if params.RequesterID == uuid.Nil {
		errs.Add("requesterId", "Requester ID is required")
	}

	if params.TenantID == uuid.Nil {
		errs.Add("tenantId", "Tenant ID is required")
	}

	if errs.HasErrors() {
		return nil, errs
	}

	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Ticket{
		TenantID:    params.TenantID,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		Status:      StatusOpen,
		Priority:    params.Priority,
		RequesterID: params.RequesterID,
		CreatedAt:   createdAt,
	}, nil
}

// CanTransitionTo checks if the ticket can move to the given status
func (t *Ticket) CanTransitionTo(newStatus TicketStatus) bool {
	for _, s := range validTransitions[t.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

// UpdateStatus changes the ticket's status, enforcing business rules.
// Clocks are not touched here; see ApplyLifecycleEvent.
func (t *Ticket) UpdateStatus(newStatus TicketStatus, at time.Time) error {
	if !newStatus.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	if !t.CanTransitionTo(newStatus) {
		return apperrors.ErrInvalidStatusTransition
	}

	t.Status = newStatus
	t.UpdatedAt = &at
	if newStatus == StatusClosed {
		closedAt := at
		t.ClosedAt = &closedAt
	}
	return nil
}

// Assign sets or changes the assignee of the ticket.
func (t *Ticket) Assign(assigneeID uuid.UUID, at time.Time) error {
	if t.Status == StatusClosed {
		return apperrors.ErrCannotAssignClosed
	}
	t.AssigneeID = &assigneeID
	t.UpdatedAt = &at
	return nil
}

// IsOwnedBy checks if the given user is the requester
func (t *Ticket) IsOwnedBy(userID uuid.UUID) bool {
	return t.RequesterID == userID
}

// IsAssignedTo checks if the ticket is assigned to the given user
func (t *Ticket) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// Clock returns the clock of the given kind.
func (t *Ticket) Clock(kind ClockKind) *Clock {
	if kind == ClockOLA {
		return &t.OLA
	}
	return &t.SLA
}
