package domain

import (
	"time"

	"github.com/google/uuid"
)

// StatusCount is how many of the report's tickets are in one status.
type StatusCount struct {
	Status TicketStatus
	Count  int64
}

// ComplianceCounts tallies one target across a set of tickets.
type ComplianceCounts struct {
	Met      int64
	Breached int64
	Pending  int64
}

// Total counts every ticket that tracks the target.
func (c ComplianceCounts) Total() int64 {
	return c.Met + c.Breached + c.Pending
}

// Rate is the share of decided targets that were met, in [0, 1].
// It is 1 when nothing has been decided yet.
func (c ComplianceCounts) Rate() float64 {
	decided := c.Met + c.Breached
	if decided == 0 {
		return 1
	}
	return float64(c.Met) / float64(decided)
}

func (c *ComplianceCounts) add(outcome targetOutcome) {
	switch outcome {
	case outcomeMet:
		c.Met++
	case outcomeBreached:
		c.Breached++
	case outcomePending:
		c.Pending++
	}
}

// PriorityCompliance groups the counts for one priority.
type PriorityCompliance struct {
	Priority      TicketPriority
	SLAResponse   ComplianceCounts
	SLAResolution ComplianceCounts
	OLAResolution ComplianceCounts
}

// ComplianceReport summarizes SLA/OLA outcomes for tickets created in a
// window. StatusCounts covers the same tickets.
type ComplianceReport struct {
	TenantID      uuid.UUID
	From          time.Time
	To            time.Time
	StatusCounts  []StatusCount
	SLAResponse   ComplianceCounts
	SLAResolution ComplianceCounts
	OLAResolution ComplianceCounts
	ByPriority    []PriorityCompliance
	// MeanResolutionBusinessTime averages business time from SLA start to
	// resolution over resolved tickets. Paused time is included.
	MeanResolutionBusinessTime time.Duration
}

type targetOutcome int

const (
	outcomeNone targetOutcome = iota
	outcomeMet
	outcomeBreached
	outcomePending
)

// BuildComplianceReport evaluates every ticket's clocks at now under the
// tenant's current calendar. Breached means the deadline has been missed
// whether or not the target has since been met.
func BuildComplianceReport(tenantID uuid.UUID, from, now time.Time, tickets []*Ticket, cal BusinessCalendar) (*ComplianceReport, error) {
	report := &ComplianceReport{
		TenantID: tenantID,
		From:     from,
		To:       now,
	}

	byPriority := make(map[TicketPriority]*PriorityCompliance)
	var resolvedCount int64
	var resolvedTotal time.Duration

	for _, ticket := range tickets {
		pc, ok := byPriority[ticket.Priority]
		if !ok {
			pc = &PriorityCompliance{Priority: ticket.Priority}
			byPriority[ticket.Priority] = pc
		}

		slaResponse, err := outcomeOf(&ticket.SLA, ticket.SLA.Response, now, cal)
		if err != nil {
			return nil, err
		}
		slaResolution, err := outcomeOf(&ticket.SLA, ticket.SLA.Target(TargetResolution), now, cal)
		if err != nil {
			return nil, err
		}
		olaResolution, err := outcomeOf(&ticket.OLA, ticket.OLA.Target(TargetResolution), now, cal)
		if err != nil {
			return nil, err
		}

		report.SLAResponse.add(slaResponse)
		report.SLAResolution.add(slaResolution)
		report.OLAResolution.add(olaResolution)
		pc.SLAResponse.add(slaResponse)
		pc.SLAResolution.add(slaResolution)
		pc.OLAResolution.add(olaResolution)

		if ticket.SLA.State() == ClockCompleted {
			elapsed, err := BusinessTimeBetween(*ticket.SLA.StartedAt, *ticket.SLA.Resolution.MetAt, cal)
			if err != nil {
				return nil, err
			}
			resolvedCount++
			resolvedTotal += elapsed
		}
	}

	for _, priority := range AllPriorities() {
		if pc, ok := byPriority[priority]; ok {
			report.ByPriority = append(report.ByPriority, *pc)
		}
	}
	if resolvedCount > 0 {
		report.MeanResolutionBusinessTime = resolvedTotal / time.Duration(resolvedCount)
	}

	return report, nil
}

func outcomeOf(c *Clock, target *Target, now time.Time, cal BusinessCalendar) (targetOutcome, error) {
	if target == nil {
		return outcomeNone, nil
	}
	breached, err := c.targetBreached(target, now, cal)
	if err != nil {
		return outcomeNone, err
	}
	switch {
	case breached:
		return outcomeBreached, nil
	case target.IsMet():
		return outcomeMet, nil
	default:
		return outcomePending, nil
	}
}
