package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// SLATargets are the business-time budgets for one priority.
type SLATargets struct {
	FirstResponse time.Duration
	Resolution    time.Duration
	// OwnResolution is the OLA budget, counted from first assignment.
	OwnResolution time.Duration
}

// SLAPolicy maps every ticket priority to its targets.
type SLAPolicy map[TicketPriority]SLATargets

// DefaultSLAPolicy is used when a tenant is provisioned without explicit targets.
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		PriorityLow:    {FirstResponse: 8 * time.Hour, Resolution: 45 * time.Hour, OwnResolution: 36 * time.Hour},
		PriorityMedium: {FirstResponse: 4 * time.Hour, Resolution: 27 * time.Hour, OwnResolution: 18 * time.Hour},
		PriorityHigh:   {FirstResponse: 2 * time.Hour, Resolution: 9 * time.Hour, OwnResolution: 6 * time.Hour},
		PriorityUrgent: {FirstResponse: 30 * time.Minute, Resolution: 4 * time.Hour, OwnResolution: 3 * time.Hour},
	}
}

// Validate checks that every priority has positive targets and that a first
// response is never due after resolution. Failures wrap ErrInvalidSLAPolicy.
func (p SLAPolicy) Validate() error {
	var problems []string
	for _, priority := range AllPriorities() {
		targets, ok := p[priority]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: missing targets", priority))
			continue
		}
		if targets.FirstResponse <= 0 || targets.Resolution <= 0 || targets.OwnResolution <= 0 {
			problems = append(problems, fmt.Sprintf("%s: budgets must be positive", priority))
			continue
		}
		if targets.FirstResponse > targets.Resolution {
			problems = append(problems, fmt.Sprintf("%s: first response exceeds resolution", priority))
		}
	}
	for priority := range p {
		if !priority.IsValid() {
			problems = append(problems, fmt.Sprintf("%s: unknown priority", priority))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidSLAPolicy, strings.Join(problems, "; "))
	}
	return nil
}

// TargetsFor returns the targets for a priority.
func (p SLAPolicy) TargetsFor(priority TicketPriority) (SLATargets, error) {
	targets, ok := p[priority]
	if !ok {
		return SLATargets{}, fmt.Errorf("%w: no targets for priority %s", apperrors.ErrInvalidSLAPolicy, priority)
	}
	return targets, nil
}

// Tenant holds the per-tenant configuration the clock engine depends on.
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Calendar  BusinessCalendar
	Policy    SLAPolicy
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TenantDefaults is the configuration a newly provisioned tenant starts with.
type TenantDefaults struct {
	Calendar BusinessCalendar
	Policy   SLAPolicy
}

// DefaultTenantDefaults returns the built-in calendar and policy.
func DefaultTenantDefaults() TenantDefaults {
	return TenantDefaults{
		Calendar: DefaultBusinessCalendar(),
		Policy:   DefaultSLAPolicy(),
	}
}

// Validate checks both halves of the defaults.
func (d TenantDefaults) Validate() error {
	if err := d.Calendar.Validate(); err != nil {
		return err
	}
	return d.Policy.Validate()
}

// NewTenant validates and builds a tenant configuration.
func NewTenant(id uuid.UUID, name string, cal BusinessCalendar, policy SLAPolicy, at time.Time) (*Tenant, error) {
	if id == uuid.Nil {
		return nil, apperrors.ErrTenantRequired
	}
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = id.String()
	}

	return &Tenant{
		ID:        id,
		Name:      name,
		Calendar:  cal,
		Policy:    policy,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// UpdateCalendar replaces the calendar, rejecting one the engine cannot use.
// Running clocks pick it up on their next transition.
func (t *Tenant) UpdateCalendar(cal BusinessCalendar, at time.Time) error {
	if err := cal.Validate(); err != nil {
		return err
	}
	t.Calendar = cal
	t.UpdatedAt = at
	return nil
}

// UpdatePolicy replaces the SLA policy. Clocks already started keep their budgets.
func (t *Tenant) UpdatePolicy(policy SLAPolicy, at time.Time) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	t.Policy = policy
	t.UpdatedAt = at
	return nil
}
