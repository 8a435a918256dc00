package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// BreachMonitor periodically scans open tickets and announces targets that
// have passed their deadline. Each breach is announced once per due date,
// so a deadline that moves and is missed again alerts again.
type BreachMonitor struct {
	tenantRepo  ports.TenantRepository
	ticketRepo  ports.TicketRepository
	eventRepo   ports.TicketEventRepository
	ledger      ports.BreachLedger
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	interval    time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewBreachMonitor creates a breach monitor sweeping every interval.
func NewBreachMonitor(
	tenantRepo ports.TenantRepository,
	ticketRepo ports.TicketRepository,
	eventRepo ports.TicketEventRepository,
	ledger ports.BreachLedger,
	notifier ports.Notifier,
	broadcaster ports.EventBroadcaster,
	interval time.Duration,
	opts ...Option,
) *BreachMonitor {
	o := applyOptions(opts)
	if interval <= 0 {
		interval = time.Minute
	}
	return &BreachMonitor{
		tenantRepo:  tenantRepo,
		ticketRepo:  ticketRepo,
		eventRepo:   eventRepo,
		ledger:      ledger,
		notifier:    notifier,
		broadcaster: broadcaster,
		interval:    interval,
		now:         o.now,
		logger:      o.logger.With("component", "breach_monitor"),
	}
}

// Run sweeps until ctx is cancelled.
func (m *BreachMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("breach monitor started", "interval", m.interval.String())
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("breach monitor stopped")
			return
		case <-ticker.C:
			announced, err := m.Sweep(ctx, m.now())
			if err != nil {
				m.logger.Error("breach sweep failed", "error", err)
			}
			if announced > 0 {
				m.logger.Info("breach sweep complete", "announced", announced)
			}
		}
	}
}

// Sweep evaluates every active ticket of every tenant at now and returns how
// many breaches were newly announced. A failing tenant does not stop the sweep.
func (m *BreachMonitor) Sweep(ctx context.Context, now time.Time) (int, error) {
	tenantIDs, err := m.tenantRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tenants: %w", err)
	}

	var (
		announced int
		errs      []error
	)
	for _, tenantID := range tenantIDs {
		if ctx.Err() != nil {
			return announced, ctx.Err()
		}
		n, err := m.sweepTenant(ctx, tenantID, now)
		announced += n
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
		}
	}
	return announced, errors.Join(errs...)
}

func (m *BreachMonitor) sweepTenant(ctx context.Context, tenantID uuid.UUID, now time.Time) (int, error) {
	tenant, err := m.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	tickets, err := m.ticketRepo.ListActive(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	announced := 0
	for _, ticket := range tickets {
		for _, kind := range []domain.ClockKind{domain.ClockSLA, domain.ClockOLA} {
			clock := ticket.Clock(kind)
			if !clock.Started() {
				continue
			}
			statuses, err := clock.Status(now, tenant.Calendar)
			if err != nil {
				m.logger.Error("failed to evaluate clock",
					"tenant_id", tenantID,
					"ticket_id", ticket.ID,
					"clock", kind,
					"error", err,
				)
				continue
			}
			for _, status := range statuses {
				if !status.Breached {
					continue
				}
				ok, err := m.announce(ctx, ticket, kind, status, now)
				if err != nil {
					return announced, err
				}
				if ok {
					announced++
				}
			}
		}
	}
	return announced, nil
}

// BreachKey identifies one missed deadline in the ledger.
func BreachKey(ticketID int64, kind domain.ClockKind, target domain.TargetName, due time.Time) string {
	return fmt.Sprintf("sla:breach:%d:%s:%s:%d", ticketID, kind, target, due.UnixMilli())
}

func (m *BreachMonitor) announce(
	ctx context.Context,
	ticket *domain.Ticket,
	kind domain.ClockKind,
	status domain.TargetStatus,
	now time.Time,
) (bool, error) {
	first, err := m.ledger.MarkNotified(ctx, BreachKey(ticket.ID, kind, status.Name, status.Due))
	if err != nil {
		return false, fmt.Errorf("breach ledger: %w", err)
	}
	if !first {
		return false, nil
	}

	entry, err := domain.NewEvent(ticket.ID, domain.EventSLABreached, uuid.Nil, domain.BreachSnapshot{
		TicketID: ticket.ID,
		Clock:    kind,
		Target:   status.Name,
		Due:      status.EffectiveDue.UTC().Format(time.RFC3339Nano),
		Priority: string(ticket.Priority),
		Detected: now.UTC().Format(time.RFC3339Nano),
	}, now)
	if err != nil {
		return false, err
	}
	event, err := m.eventRepo.Create(ctx, entry)
	if err != nil {
		return false, fmt.Errorf("record breach event: %w", err)
	}

	m.logger.Warn("sla target breached",
		"tenant_id", ticket.TenantID,
		"ticket_id", ticket.ID,
		"clock", kind,
		"target", status.Name,
		"due", status.EffectiveDue,
	)

	if ticket.AssigneeID != nil {
		m.notifier.Notify(ctx, ports.NotificationParams{
			RecipientUserID: *ticket.AssigneeID,
			Subject:         fmt.Sprintf("%s %s target breached on ticket #%d", kind, status.Name, ticket.ID),
			Message: fmt.Sprintf("The %s %s target of '%s' (%s) was due at %s.",
				kind, status.Name, ticket.Title, ticket.Priority, status.EffectiveDue.UTC().Format(time.RFC3339)),
			TicketID: ticket.ID,
		})
	}
	event.TenantID = ticket.TenantID
	if err := m.broadcaster.Broadcast(*event); err != nil {
		m.logger.Warn("failed to broadcast breach", "ticket_id", ticket.ID, "error", err)
	}
	return true, nil
}
