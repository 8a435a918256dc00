package domain

import (
	"fmt"
	"time"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// LifecycleEventKind names a ticket mutation that can move its clocks.
type LifecycleEventKind string

const (
	LifecycleCreated       LifecycleEventKind = "CREATED"
	LifecycleStatusChanged LifecycleEventKind = "STATUS_CHANGED"
	LifecycleAgentReplied  LifecycleEventKind = "AGENT_REPLIED"
	LifecycleAssigned      LifecycleEventKind = "ASSIGNED"
)

// LifecycleEvent describes one ticket mutation. From and To are only
// meaningful for status changes.
type LifecycleEvent struct {
	Kind LifecycleEventKind
	At   time.Time
	From TicketStatus
	To   TicketStatus
}

// ApplyLifecycleEvent moves the SLA and OLA clocks for an event that has
// already been applied to the ticket itself. The calendar and targets must be
// the tenant's current configuration.
func (t *Ticket) ApplyLifecycleEvent(ev LifecycleEvent, targets SLATargets, cal BusinessCalendar) error {
	switch ev.Kind {
	case LifecycleCreated:
		firstResponse := targets.FirstResponse
		return t.SLA.Start(ev.At, ClockBudgets{
			Response:   &firstResponse,
			Resolution: targets.Resolution,
		}, cal)

	case LifecycleAgentReplied:
		return t.SLA.RecordFirstResponse(ev.At, cal)

	case LifecycleAssigned:
		if t.OLA.Started() {
			return nil
		}
		if err := t.OLA.Start(ev.At, ClockBudgets{Resolution: targets.OwnResolution}, cal); err != nil {
			return err
		}
		switch {
		case t.Status == StatusWaitingOnCustomer:
			return t.OLA.Pause(ev.At)
		case t.Status.IsFinished():
			return t.OLA.Complete(ev.At, cal)
		}
		return nil

	case LifecycleStatusChanged:
		return t.applyStatusChange(ev, cal)
	}

	return fmt.Errorf("%w: unknown lifecycle event %q", apperrors.ErrInvalidClockTransition, ev.Kind)
}

func (t *Ticket) applyStatusChange(ev LifecycleEvent, cal BusinessCalendar) error {
	if ev.From == ev.To {
		return nil
	}

	if ev.From == StatusResolved && !ev.To.IsFinished() {
		if err := t.eachClock(func(c *Clock) error { return c.Reopen(ev.At) }); err != nil {
			return err
		}
	}

	switch {
	case ev.To.IsFinished():
		return t.eachClock(func(c *Clock) error { return c.Complete(ev.At, cal) })
	case ev.To == StatusWaitingOnCustomer:
		return t.eachClock(func(c *Clock) error { return c.Pause(ev.At) })
	case ev.From == StatusWaitingOnCustomer:
		return t.eachClock(func(c *Clock) error { return c.Resume(ev.At, cal) })
	}
	return nil
}

// eachClock applies fn to the SLA clock and to the OLA clock if it has started.
func (t *Ticket) eachClock(fn func(c *Clock) error) error {
	if err := fn(&t.SLA); err != nil {
		return fmt.Errorf("sla clock: %w", err)
	}
	if t.OLA.Started() {
		if err := fn(&t.OLA); err != nil {
			return fmt.Errorf("ola clock: %w", err)
		}
	}
	return nil
}
