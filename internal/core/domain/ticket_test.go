package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketEnums_IsValid(t *testing.T) {
	for _, p := range []domain.TicketPriority{domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent} {
		assert.True(t, p.IsValid(), p)
	}
	for _, p := range []domain.TicketPriority{"", "low", "CRITICAL"} {
		assert.False(t, p.IsValid(), p)
	}

	for _, s := range []domain.TicketStatus{
		domain.StatusOpen, domain.StatusInProgress, domain.StatusWaitingOnCustomer,
		domain.StatusResolved, domain.StatusClosed,
	} {
		assert.True(t, s.IsValid(), s)
	}
	for _, s := range []domain.TicketStatus{"", "PENDING", "open"} {
		assert.False(t, s.IsValid(), s)
	}
}

func TestNewTicket(t *testing.T) {
	base := func() domain.TicketParams {
		return domain.TicketParams{
			TenantID:    uuid.New(),
			Title:       "Printer on floor 3 is jammed",
			Description: "Paper tray 2",
			Priority:    domain.PriorityHigh,
			RequesterID: uuid.New(),
		}
	}

	t.Run("starts open with idle clocks", func(t *testing.T) {
		params := base()
		ticket, err := domain.NewTicket(params)
		require.NoError(t, err)

		assert.Equal(t, params.Title, ticket.Title)
		assert.Equal(t, params.Priority, ticket.Priority)
		assert.Equal(t, params.TenantID, ticket.TenantID)
		assert.Equal(t, domain.StatusOpen, ticket.Status)
		assert.Equal(t, domain.ClockNotStarted, ticket.SLA.State())
		assert.Equal(t, domain.ClockNotStarted, ticket.OLA.State())
	})

	invalid := map[string]struct {
		mutate func(p *domain.TicketParams)
		field  string
	}{
		"missing title":        {func(p *domain.TicketParams) { p.Title = "" }, "title"},
		"title too long":       {func(p *domain.TicketParams) { p.Title = strings.Repeat("a", 256) }, "title"},
		"description too long": {func(p *domain.TicketParams) { p.Description = strings.Repeat("a", 10001) }, "description"},
		"unknown priority":     {func(p *domain.TicketParams) { p.Priority = "INVALID" }, "priority"},
		"missing requester":    {func(p *domain.TicketParams) { p.RequesterID = uuid.Nil }, "requesterId"},
		"missing tenant":       {func(p *domain.TicketParams) { p.TenantID = uuid.Nil }, "tenantId"},
	}
	for name, tc := range invalid {
		t.Run(name, func(t *testing.T) {
			params := base()
			tc.mutate(&params)

			ticket, err := domain.NewTicket(params)

			var verrs *apperrors.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.Errors, tc.field)
			assert.Nil(t, ticket)
		})
	}
}

func TestTicket_UpdateStatus(t *testing.T) {
	at := time.Date(2024, 5, 13, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		initialStatus domain.TicketStatus
		newStatus     domain.TicketStatus
		expectError   bool
	}{
		{"OPEN to IN_PROGRESS", domain.StatusOpen, domain.StatusInProgress, false},
		{"OPEN to WAITING", domain.StatusOpen, domain.StatusWaitingOnCustomer, false},
		{"OPEN to OPEN (no change)", domain.StatusOpen, domain.StatusOpen, true},
		{"WAITING to IN_PROGRESS", domain.StatusWaitingOnCustomer, domain.StatusInProgress, false},
		{"IN_PROGRESS to RESOLVED", domain.StatusInProgress, domain.StatusResolved, false},
		{"RESOLVED to OPEN (reopen)", domain.StatusResolved, domain.StatusOpen, false},
		{"RESOLVED to CLOSED", domain.StatusResolved, domain.StatusClosed, false},
		{"CLOSED to OPEN", domain.StatusClosed, domain.StatusOpen, true},
		{"CLOSED to IN_PROGRESS", domain.StatusClosed, domain.StatusInProgress, true},
		{"OPEN to INVALID", domain.StatusOpen, domain.TicketStatus("INVALID"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &domain.Ticket{
				ID:          1,
				Title:       "Test",
				Status:      tt.initialStatus,
				Priority:    domain.PriorityMedium,
				RequesterID: uuid.New(),
			}

			err := ticket.UpdateStatus(tt.newStatus, at)

			if tt.expectError {
				assert.Error(t, err)
				assert.Equal(t, tt.initialStatus, ticket.Status)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.newStatus, ticket.Status)
			require.NotNil(t, ticket.UpdatedAt)
			assert.Equal(t, at, *ticket.UpdatedAt)
		})
	}
}

func TestTicket_UpdateStatus_SetsClosedAt(t *testing.T) {
	at := time.Date(2024, 5, 13, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{ID: 1, Status: domain.StatusResolved}

	require.NoError(t, ticket.UpdateStatus(domain.StatusClosed, at))
	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, at, *ticket.ClosedAt)
}

func TestTicket_Assign(t *testing.T) {
	at := time.Date(2024, 5, 13, 10, 0, 0, 0, time.UTC)
	assigneeID := uuid.New()

	tests := []struct {
		name        string
		status      domain.TicketStatus
		expectError bool
	}{
		{"assign to OPEN ticket", domain.StatusOpen, false},
		{"assign to WAITING ticket", domain.StatusWaitingOnCustomer, false},
		{"assign to CLOSED ticket", domain.StatusClosed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticket := &domain.Ticket{ID: 1, Status: tt.status, RequesterID: uuid.New()}

			err := ticket.Assign(assigneeID, at)

			if tt.expectError {
				assert.ErrorIs(t, err, apperrors.ErrCannotAssignClosed)
				assert.Nil(t, ticket.AssigneeID)
				return
			}
			assert.NoError(t, err)
			assert.True(t, ticket.IsAssignedTo(assigneeID))
			assert.NotNil(t, ticket.UpdatedAt)
		})
	}
}

func TestTicket_CanTransitionTo(t *testing.T) {
	ticket := &domain.Ticket{ID: 1, Status: domain.StatusOpen}

	assert.True(t, ticket.CanTransitionTo(domain.StatusInProgress))
	assert.True(t, ticket.CanTransitionTo(domain.StatusClosed))
	assert.False(t, ticket.CanTransitionTo(domain.StatusOpen))
}

func TestTicket_IsOwnedBy(t *testing.T) {
	ownerID := uuid.New()
	ticket := &domain.Ticket{ID: 1, RequesterID: ownerID}

	assert.True(t, ticket.IsOwnedBy(ownerID))
	assert.False(t, ticket.IsOwnedBy(uuid.New()))
}

func TestTicket_IsAssignedTo(t *testing.T) {
	assigneeID := uuid.New()

	unassignedTicket := &domain.Ticket{ID: 1}
	assert.False(t, unassignedTicket.IsAssignedTo(assigneeID))

	assignedTicket := &domain.Ticket{ID: 1, AssigneeID: &assigneeID}
	assert.True(t, assignedTicket.IsAssignedTo(assigneeID))
	assert.False(t, assignedTicket.IsAssignedTo(uuid.New()))
}
