package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/stretchr/testify/require"
)

// monday returns 2024-05-13 at h:m UTC.
func monday(h, m int) time.Time {
	return time.Date(2024, time.May, 13, h, m, 0, 0, time.UTC)
}

// createTestTenant provisions a tenant with the default calendar and policy.
func createTestTenant(t *testing.T, ctx context.Context) *domain.Tenant {
	t.Helper()

	tenant, err := domain.NewTenant(uuid.New(), "Acme", domain.DefaultBusinessCalendar(), domain.DefaultSLAPolicy(), monday(8, 0))
	require.NoError(t, err)

	created, err := NewTenantRepository(testPool).Create(ctx, tenant)
	require.NoError(t, err)
	return created
}

// createTestTicket stores a ticket whose SLA clock started at createdAt.
func createTestTicket(t *testing.T, ctx context.Context, tenant *domain.Tenant, requester uuid.UUID, priority domain.TicketPriority, createdAt time.Time) *domain.Ticket {
	t.Helper()

	ticket, err := domain.NewTicket(domain.TicketParams{
		TenantID:    tenant.ID,
		Title:       "Printer on fire",
		Description: "Third floor",
		Priority:    priority,
		RequesterID: requester,
		CreatedAt:   createdAt,
	})
	require.NoError(t, err)

	targets, err := tenant.Policy.TargetsFor(priority)
	require.NoError(t, err)
	require.NoError(t, ticket.ApplyLifecycleEvent(domain.LifecycleEvent{
		Kind: domain.LifecycleCreated,
		At:   createdAt,
	}, targets, tenant.Calendar))

	created, err := NewTicketRepository(testPool).Create(ctx, ticket)
	require.NoError(t, err)
	return created
}
