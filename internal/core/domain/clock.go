package domain

import (
	"fmt"
	"time"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// ClockKind distinguishes the customer-facing SLA clock from the internal OLA clock.
type ClockKind string

const (
	ClockSLA ClockKind = "SLA"
	ClockOLA ClockKind = "OLA"
)

// ClockState is derived from the clock fields, never stored.
type ClockState string

const (
	ClockNotStarted ClockState = "NOT_STARTED"
	ClockRunning    ClockState = "RUNNING"
	ClockPaused     ClockState = "PAUSED"
	ClockCompleted  ClockState = "COMPLETED"
)

// TargetName identifies a milestone tracked by a clock.
type TargetName string

const (
	TargetResponse   TargetName = "RESPONSE"
	TargetResolution TargetName = "RESOLUTION"
)

// Target is one deadline tracked by a clock.
type Target struct {
	Budget time.Duration
	Due    time.Time
	MetAt  *time.Time
}

// IsMet reports whether the milestone has been reached.
func (t *Target) IsMet() bool {
	return t != nil && t.MetAt != nil
}

// ClockBudgets are the business-time budgets a clock starts with. A nil
// Response means the clock tracks resolution only (OLA).
type ClockBudgets struct {
	Response   *time.Duration
	Resolution time.Duration
}

// Clock tracks deadlines for one agreement on one ticket.
//
// Invariant: every pause interval folded by Resume has already been added
// to the Due of each target that was pending at the time, so Due is the
// single source of truth for breach checks of a running clock. PausedFor is
// the wall-clock total spent paused and only grows.
type Clock struct {
	StartedAt  *time.Time
	PausedAt   *time.Time
	PausedFor  time.Duration
	Response   *Target
	Resolution Target
}

// State returns the current state of the clock.
func (c *Clock) State() ClockState {
	switch {
	case c.StartedAt == nil:
		return ClockNotStarted
	case c.Resolution.MetAt != nil:
		return ClockCompleted
	case c.PausedAt != nil:
		return ClockPaused
	default:
		return ClockRunning
	}
}

// Started reports whether the clock has been started.
func (c *Clock) Started() bool {
	return c.StartedAt != nil
}

// Start begins the clock at the given instant, computing each due date.
func (c *Clock) Start(at time.Time, budgets ClockBudgets, cal BusinessCalendar) error {
	if c.Started() {
		return fmt.Errorf("%w: clock already started", apperrors.ErrInvalidClockTransition)
	}

	resolutionDue, err := AddBusinessTime(at, budgets.Resolution, cal)
	if err != nil {
		return err
	}

	var response *Target
	if budgets.Response != nil {
		responseDue, err := AddBusinessTime(at, *budgets.Response, cal)
		if err != nil {
			return err
		}
		response = &Target{Budget: *budgets.Response, Due: responseDue}
	}

	startedAt := at
	c.StartedAt = &startedAt
	c.PausedAt = nil
	c.PausedFor = 0
	c.Response = response
	c.Resolution = Target{Budget: budgets.Resolution, Due: resolutionDue}
	return nil
}

// Pause stops the clock. Pausing a paused or completed clock is a no-op.
func (c *Clock) Pause(at time.Time) error {
	switch c.State() {
	case ClockNotStarted:
		return fmt.Errorf("%w: cannot pause a clock that was never started", apperrors.ErrInvalidClockTransition)
	case ClockRunning:
		pausedAt := at
		c.PausedAt = &pausedAt
	}
	return nil
}

// Resume restarts a paused clock, pushing every pending due date forward by
// the business time that elapsed while paused. Resuming a running or
// completed clock is a no-op.
func (c *Clock) Resume(at time.Time, cal BusinessCalendar) error {
	switch c.State() {
	case ClockNotStarted:
		return fmt.Errorf("%w: cannot resume a clock that was never started", apperrors.ErrInvalidClockTransition)
	case ClockPaused:
		return c.foldPause(at, cal)
	}
	return nil
}

// RecordFirstResponse marks the response milestone. A paused clock stays
// paused; only the response due absorbs the pause so far. Clocks without a
// response target ignore the call.
func (c *Clock) RecordFirstResponse(at time.Time, cal BusinessCalendar) error {
	if !c.Started() {
		return fmt.Errorf("%w: cannot record a response on a clock that was never started", apperrors.ErrInvalidClockTransition)
	}
	if c.Response == nil || c.Response.IsMet() {
		return nil
	}

	if c.PausedAt != nil {
		shifted, err := shiftDue(c.Response.Due, *c.PausedAt, at, cal)
		if err != nil {
			return err
		}
		c.Response.Due = shifted
	}

	metAt := at
	c.Response.MetAt = &metAt
	return nil
}

// Complete marks the resolution milestone. A paused clock is resumed first
// so the final pause interval is accounted for. A pending response target is
// met at the same instant. Completing a completed clock keeps the original
// milestone timestamp.
func (c *Clock) Complete(at time.Time, cal BusinessCalendar) error {
	switch c.State() {
	case ClockNotStarted:
		return fmt.Errorf("%w: cannot complete a clock that was never started", apperrors.ErrInvalidClockTransition)
	case ClockCompleted:
		return nil
	case ClockPaused:
		if err := c.foldPause(at, cal); err != nil {
			return err
		}
	}

	metAt := at
	if c.Response != nil && !c.Response.IsMet() {
		responseMet := metAt
		c.Response.MetAt = &responseMet
	}
	c.Resolution.MetAt = &metAt
	return nil
}

// Reopen returns a completed clock to running with its due dates unchanged,
// so the budget is not reset. Reopening a clock that is not completed is a no-op.
func (c *Clock) Reopen(at time.Time) error {
	switch c.State() {
	case ClockNotStarted:
		return fmt.Errorf("%w: cannot reopen a clock that was never started", apperrors.ErrInvalidClockTransition)
	case ClockCompleted:
		c.Resolution.MetAt = nil
		c.PausedAt = nil
	}
	return nil
}

// EffectiveDue is the due date of the target if the clock were resumed at
// now. For a running clock or a met target it is the stored Due.
func (c *Clock) EffectiveDue(target *Target, now time.Time, cal BusinessCalendar) (time.Time, error) {
	if target == nil {
		return time.Time{}, nil
	}
	if c.PausedAt == nil || target.IsMet() {
		return target.Due, nil
	}
	return shiftDue(target.Due, *c.PausedAt, now, cal)
}

// IsBreached reports whether any target of the clock missed its deadline.
// The comparison is strict: a target due exactly at now is not breached.
func (c *Clock) IsBreached(now time.Time, cal BusinessCalendar) (bool, error) {
	if !c.Started() {
		return false, nil
	}
	for _, target := range c.targets() {
		breached, err := c.targetBreached(target, now, cal)
		if err != nil {
			return false, err
		}
		if breached {
			return true, nil
		}
	}
	return false, nil
}

// Target returns the named target, or nil when the clock does not track it.
func (c *Clock) Target(name TargetName) *Target {
	switch name {
	case TargetResponse:
		return c.Response
	case TargetResolution:
		if c.Started() {
			return &c.Resolution
		}
	}
	return nil
}

// TargetStatus is a point-in-time view of one target.
type TargetStatus struct {
	Name         TargetName
	Budget       time.Duration
	Due          time.Time
	EffectiveDue time.Time
	MetAt        *time.Time
	Breached     bool
	// Remaining is the business time left until EffectiveDue; negative once
	// the deadline has passed. Zero for met targets.
	Remaining time.Duration
}

// Status evaluates every target of the clock at now.
func (c *Clock) Status(now time.Time, cal BusinessCalendar) ([]TargetStatus, error) {
	if !c.Started() {
		return nil, nil
	}

	statuses := make([]TargetStatus, 0, 2)
	for _, name := range []TargetName{TargetResponse, TargetResolution} {
		target := c.Target(name)
		if target == nil {
			continue
		}

		effectiveDue, err := c.EffectiveDue(target, now, cal)
		if err != nil {
			return nil, err
		}
		breached, err := c.targetBreached(target, now, cal)
		if err != nil {
			return nil, err
		}

		var remaining time.Duration
		if !target.IsMet() {
			if now.After(effectiveDue) {
				overdue, err := BusinessTimeBetween(effectiveDue, now, cal)
				if err != nil {
					return nil, err
				}
				remaining = -overdue
			} else {
				remaining, err = BusinessTimeBetween(now, effectiveDue, cal)
				if err != nil {
					return nil, err
				}
			}
		}

		statuses = append(statuses, TargetStatus{
			Name:         name,
			Budget:       target.Budget,
			Due:          target.Due,
			EffectiveDue: effectiveDue,
			MetAt:        target.MetAt,
			Breached:     breached,
			Remaining:    remaining,
		})
	}
	return statuses, nil
}

func (c *Clock) targets() []*Target {
	if c.Response != nil {
		return []*Target{c.Response, &c.Resolution}
	}
	return []*Target{&c.Resolution}
}

func (c *Clock) targetBreached(target *Target, now time.Time, cal BusinessCalendar) (bool, error) {
	if target.IsMet() {
		return target.MetAt.After(target.Due), nil
	}
	due, err := c.EffectiveDue(target, now, cal)
	if err != nil {
		return false, err
	}
	return now.After(due), nil
}

// foldPause closes the open pause interval ending at at.
func (c *Clock) foldPause(at time.Time, cal BusinessCalendar) error {
	pausedAt := *c.PausedAt
	for _, target := range c.targets() {
		if target.IsMet() {
			continue
		}
		shifted, err := shiftDue(target.Due, pausedAt, at, cal)
		if err != nil {
			return err
		}
		target.Due = shifted
	}

	if at.After(pausedAt) {
		c.PausedFor += at.Sub(pausedAt)
	}
	c.PausedAt = nil
	return nil
}

// shiftDue pushes due forward by the business time inside [from, to].
func shiftDue(due, from, to time.Time, cal BusinessCalendar) (time.Time, error) {
	paused, err := BusinessTimeBetween(from, to, cal)
	if err != nil {
		return time.Time{}, err
	}
	return AddBusinessTime(due, paused, cal)
}
