package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// calendarRecord is the JSONB shape of tenants.calendar.
type calendarRecord struct {
	Timezone string `json:"timezone"`
	WorkDays []int  `json:"workDays"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// targetsRecord is the JSONB shape of one priority in tenants.sla_policy.
// Budgets are stored in milliseconds of business time.
type targetsRecord struct {
	FirstResponseMs int64 `json:"firstResponseMs"`
	ResolutionMs    int64 `json:"resolutionMs"`
	OwnResolutionMs int64 `json:"ownResolutionMs"`
}

func encodeCalendar(cal domain.BusinessCalendar) ([]byte, error) {
	return json.Marshal(calendarRecord{
		Timezone: cal.Timezone,
		WorkDays: cal.WorkDays,
		Start:    cal.Start,
		End:      cal.End,
	})
}

func decodeCalendar(data []byte) (domain.BusinessCalendar, error) {
	var rec calendarRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.BusinessCalendar{}, fmt.Errorf("decode calendar: %w", err)
	}
	return domain.BusinessCalendar{
		Timezone: rec.Timezone,
		WorkDays: rec.WorkDays,
		Start:    rec.Start,
		End:      rec.End,
	}, nil
}

func encodePolicy(policy domain.SLAPolicy) ([]byte, error) {
	rec := make(map[domain.TicketPriority]targetsRecord, len(policy))
	for priority, targets := range policy {
		rec[priority] = targetsRecord{
			FirstResponseMs: targets.FirstResponse.Milliseconds(),
			ResolutionMs:    targets.Resolution.Milliseconds(),
			OwnResolutionMs: targets.OwnResolution.Milliseconds(),
		}
	}
	return json.Marshal(rec)
}

func decodePolicy(data []byte) (domain.SLAPolicy, error) {
	var rec map[domain.TicketPriority]targetsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode sla policy: %w", err)
	}
	policy := make(domain.SLAPolicy, len(rec))
	for priority, targets := range rec {
		policy[priority] = domain.SLATargets{
			FirstResponse: time.Duration(targets.FirstResponseMs) * time.Millisecond,
			Resolution:    time.Duration(targets.ResolutionMs) * time.Millisecond,
			OwnResolution: time.Duration(targets.OwnResolutionMs) * time.Millisecond,
		}
	}
	return policy, nil
}

func encodeClock(c *domain.Clock) ([]byte, error) {
	return json.Marshal(domain.NewClockSnapshot(c))
}

// decodeClock rebuilds a clock. The column default '{}' is an unstarted clock.
func decodeClock(data []byte) (domain.Clock, error) {
	var snapshot domain.ClockSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.Clock{}, fmt.Errorf("decode clock: %w", err)
	}
	clock, err := snapshot.Clock()
	if err != nil {
		return domain.Clock{}, fmt.Errorf("decode clock: %w", err)
	}
	return clock, nil
}
