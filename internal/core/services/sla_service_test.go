package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/mocks"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
	"github.com/lorrc/service-desk-sla/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSLAService_GetTicketSLA(t *testing.T) {
	ctx := context.Background()
	agentID := uuid.New()
	f := newTicketFixture(monday(12, 0))
	ticket := f.openTicket(t, uuid.New())
	params := ports.GetTicketParams{TenantID: f.tenant.ID, TicketID: ticket.ID, ViewerID: agentID}

	t.Run("evaluates both clocks at now", func(t *testing.T) {
		ticketSvc := mocks.NewMockTicketService()
		tenants := mocks.NewMockTenantRepository()
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewSLAService(ticketSvc, tenants, mocks.NewMockSLAReportRepository(), authz, fixedNow(monday(12, 0)))

		authz.On("Can", mock.Anything, agentID, "sla:read").Return(true, nil)
		ticketSvc.On("GetTicket", mock.Anything, params).Return(ticket, nil)
		tenants.On("GetByID", mock.Anything, f.tenant.ID).Return(f.tenant, nil)

		view, err := svc.GetTicketSLA(ctx, params)
		require.NoError(t, err)

		assert.Equal(t, monday(12, 0), view.Evaluated)
		assert.Equal(t, domain.ClockRunning, view.SLA.State)
		assert.True(t, view.SLA.Breached)
		require.Len(t, view.SLA.Targets, 2)

		response := view.SLA.Targets[0]
		assert.Equal(t, domain.TargetResponse, response.Name)
		assert.True(t, response.Breached)
		assert.Equal(t, -time.Hour, response.Remaining)

		resolution := view.SLA.Targets[1]
		assert.False(t, resolution.Breached)
		assert.Equal(t, 6*time.Hour, resolution.Remaining)

		assert.Equal(t, domain.ClockNotStarted, view.OLA.State)
		assert.Empty(t, view.OLA.Targets)
	})

	t.Run("customers cannot read clocks", func(t *testing.T) {
		authz := mocks.NewMockAuthorizationService()
		svc := services.NewSLAService(mocks.NewMockTicketService(), mocks.NewMockTenantRepository(),
			mocks.NewMockSLAReportRepository(), authz)

		authz.On("Can", mock.Anything, agentID, "sla:read").Return(false, nil)

		_, err := svc.GetTicketSLA(ctx, params)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

func TestSLAService_GetComplianceReport(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()
	now := monday(16, 0)
	f := newTicketFixture(now)

	resolved := f.openTicket(t, uuid.New())
	require.NoError(t, resolved.UpdateStatus(domain.StatusResolved, monday(10, 0)))
	targets, err := f.tenant.Policy.TargetsFor(resolved.Priority)
	require.NoError(t, err)
	require.NoError(t, resolved.ApplyLifecycleEvent(domain.LifecycleEvent{
		Kind: domain.LifecycleStatusChanged,
		At:   monday(10, 0),
		From: domain.StatusOpen,
		To:   domain.StatusResolved,
	}, targets, f.tenant.Calendar))

	tenants := mocks.NewMockTenantRepository()
	reports := mocks.NewMockSLAReportRepository()
	authz := mocks.NewMockAuthorizationService()
	svc := services.NewSLAService(mocks.NewMockTicketService(), tenants, reports, authz, fixedNow(now))

	counts := []domain.StatusCount{{Status: domain.StatusResolved, Count: 1}}
	authz.On("Can", mock.Anything, adminID, "sla:report").Return(true, nil)
	tenants.On("GetByID", mock.Anything, f.tenant.ID).Return(f.tenant, nil)
	reports.On("ListCreatedSince", mock.Anything, f.tenant.ID, now.AddDate(0, 0, -30)).Return([]*domain.Ticket{resolved}, nil)
	reports.On("CountByStatus", mock.Anything, f.tenant.ID, now.AddDate(0, 0, -30)).Return(counts, nil)

	report, err := svc.GetComplianceReport(ctx, f.tenant.ID, adminID, 0)
	require.NoError(t, err)

	assert.Equal(t, counts, report.StatusCounts)
	assert.Equal(t, domain.ComplianceCounts{Met: 1}, report.SLAResolution)
	assert.Equal(t, domain.ComplianceCounts{Met: 1}, report.SLAResponse)
	assert.Equal(t, time.Hour, report.MeanResolutionBusinessTime)
	reports.AssertExpectations(t)
}

type countingSnapshots struct {
	calls int
}

func (c *countingSnapshots) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	c.calls++
	return fn(ctx)
}

func TestSLAService_ComplianceReportReadsOneSnapshot(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()
	now := monday(12, 0)
	f := newTicketFixture(now)

	tenants := mocks.NewMockTenantRepository()
	reports := mocks.NewMockSLAReportRepository()
	authz := mocks.NewMockAuthorizationService()
	snapshots := &countingSnapshots{}
	svc := services.NewSLAService(mocks.NewMockTicketService(), tenants, reports, authz,
		fixedNow(now), services.WithSnapshots(snapshots))

	authz.On("Can", mock.Anything, adminID, "sla:report").Return(true, nil)
	tenants.On("GetByID", mock.Anything, f.tenant.ID).Return(f.tenant, nil)
	reports.On("ListCreatedSince", mock.Anything, f.tenant.ID, now.AddDate(0, 0, -365)).Return([]*domain.Ticket{}, nil)
	reports.On("CountByStatus", mock.Anything, f.tenant.ID, now.AddDate(0, 0, -365)).Return([]domain.StatusCount{}, nil)

	report, err := svc.GetComplianceReport(ctx, f.tenant.ID, adminID, 5000)
	require.NoError(t, err)

	assert.Equal(t, 1, snapshots.calls)
	assert.Equal(t, now.AddDate(0, 0, -365), report.From)
	assert.Equal(t, 1.0, report.SLAResolution.Rate())
}
