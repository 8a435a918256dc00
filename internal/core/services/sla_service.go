package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const (
	defaultReportDays = 30
	maxReportDays     = 365
)

// SLAService exposes clock status and compliance reports.
type SLAService struct {
	ticketSvc  ports.TicketService
	tenantRepo ports.TenantRepository
	reportRepo ports.SLAReportRepository
	authzSvc   ports.AuthorizationService
	snapshots  ports.SnapshotReader
	now        func() time.Time
}

var _ ports.SLAService = (*SLAService)(nil)

// NewSLAService creates a new SLA service.
func NewSLAService(
	ticketSvc ports.TicketService,
	tenantRepo ports.TenantRepository,
	reportRepo ports.SLAReportRepository,
	authzSvc ports.AuthorizationService,
	opts ...Option,
) *SLAService {
	o := applyOptions(opts)
	return &SLAService{
		ticketSvc:  ticketSvc,
		tenantRepo: tenantRepo,
		reportRepo: reportRepo,
		authzSvc:   authzSvc,
		snapshots:  o.snapshots,
		now:        o.now,
	}
}

// GetTicketSLA evaluates both clocks of a ticket at the current instant.
func (s *SLAService) GetTicketSLA(ctx context.Context, params ports.GetTicketParams) (*ports.TicketSLA, error) {
	if err := requirePermission(ctx, s.authzSvc, params.ViewerID, "sla:read"); err != nil {
		return nil, err
	}

	ticket, err := s.ticketSvc.GetTicket(ctx, params)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, params.TenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sla, err := clockStatus(domain.ClockSLA, &ticket.SLA, now, tenant.Calendar)
	if err != nil {
		return nil, err
	}
	ola, err := clockStatus(domain.ClockOLA, &ticket.OLA, now, tenant.Calendar)
	if err != nil {
		return nil, err
	}

	return &ports.TicketSLA{
		TicketID:  ticket.ID,
		Status:    ticket.Status,
		Priority:  ticket.Priority,
		Evaluated: now,
		Calendar:  tenant.Calendar,
		SLA:       sla,
		OLA:       ola,
	}, nil
}

// GetComplianceReport tallies target outcomes for tickets created in the
// trailing window of days.
func (s *SLAService) GetComplianceReport(ctx context.Context, tenantID, actorID uuid.UUID, days int) (*domain.ComplianceReport, error) {
	if err := requirePermission(ctx, s.authzSvc, actorID, "sla:report"); err != nil {
		return nil, err
	}

	if days <= 0 {
		days = defaultReportDays
	}
	if days > maxReportDays {
		days = maxReportDays
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from := now.AddDate(0, 0, -days)

	var (
		tickets []*domain.Ticket
		counts  []domain.StatusCount
	)
	err = s.snapshots.WithReadOnlyTransaction(ctx, func(ctx context.Context) error {
		var err error
		if tickets, err = s.reportRepo.ListCreatedSince(ctx, tenantID, from); err != nil {
			return err
		}
		counts, err = s.reportRepo.CountByStatus(ctx, tenantID, from)
		return err
	})
	if err != nil {
		return nil, err
	}

	report, err := domain.BuildComplianceReport(tenantID, from, now, tickets, tenant.Calendar)
	if err != nil {
		return nil, err
	}
	report.StatusCounts = counts
	return report, nil
}

func clockStatus(kind domain.ClockKind, c *domain.Clock, now time.Time, cal domain.BusinessCalendar) (ports.ClockStatus, error) {
	status := ports.ClockStatus{
		Kind:      kind,
		State:     c.State(),
		StartedAt: c.StartedAt,
		PausedAt:  c.PausedAt,
		PausedFor: c.PausedFor,
	}
	if !c.Started() {
		return status, nil
	}

	targets, err := c.Status(now, cal)
	if err != nil {
		return ports.ClockStatus{}, err
	}
	status.Targets = targets
	for _, target := range targets {
		if target.Breached {
			status.Breached = true
		}
	}
	return status, nil
}
