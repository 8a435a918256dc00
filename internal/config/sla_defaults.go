package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

// slaDefaultsFile is the TOML shape of SLA_DEFAULTS_FILE:
//
//	[calendar]
//	timezone = "America/Sao_Paulo"
//	work_days = [1, 2, 3, 4, 5]
//	start = "09:00"
//	end = "18:00"
//
//	[policy.HIGH]
//	first_response = "2h"
//	resolution = "9h"
//	own_resolution = "6h"
type slaDefaultsFile struct {
	Calendar *calendarSection          `toml:"calendar"`
	Policy   map[string]targetsSection `toml:"policy"`
}

type calendarSection struct {
	Timezone string `toml:"timezone"`
	WorkDays []int  `toml:"work_days"`
	Start    string `toml:"start"`
	End      string `toml:"end"`
}

type targetsSection struct {
	FirstResponse string `toml:"first_response"`
	Resolution    string `toml:"resolution"`
	OwnResolution string `toml:"own_resolution"`
}

// LoadTenantDefaults returns the calendar and policy new tenants start with.
// An empty path yields the built-in defaults. Sections missing from the file
// keep their built-in values; priorities missing from [policy] do too.
func LoadTenantDefaults(path string) (domain.TenantDefaults, error) {
	defaults := domain.DefaultTenantDefaults()
	if path == "" {
		return defaults, nil
	}

	if _, err := os.Stat(path); err != nil {
		return domain.TenantDefaults{}, fmt.Errorf("sla defaults file not found: %w", err)
	}

	var file slaDefaultsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return domain.TenantDefaults{}, fmt.Errorf("failed to parse sla defaults file: %w", err)
	}

	if file.Calendar != nil {
		defaults.Calendar = domain.BusinessCalendar{
			Timezone: file.Calendar.Timezone,
			WorkDays: file.Calendar.WorkDays,
			Start:    file.Calendar.Start,
			End:      file.Calendar.End,
		}
	}

	for name, section := range file.Policy {
		priority := domain.TicketPriority(name)
		if !priority.IsValid() {
			return domain.TenantDefaults{}, fmt.Errorf("sla defaults: unknown priority %q", name)
		}
		targets, err := section.targets()
		if err != nil {
			return domain.TenantDefaults{}, fmt.Errorf("sla defaults: priority %s: %w", name, err)
		}
		defaults.Policy[priority] = targets
	}

	if err := defaults.Validate(); err != nil {
		return domain.TenantDefaults{}, fmt.Errorf("sla defaults: %w", err)
	}
	return defaults, nil
}

func (s targetsSection) targets() (domain.SLATargets, error) {
	var (
		t   domain.SLATargets
		err error
	)
	if t.FirstResponse, err = time.ParseDuration(s.FirstResponse); err != nil {
		return t, fmt.Errorf("first_response: %w", err)
	}
	if t.Resolution, err = time.ParseDuration(s.Resolution); err != nil {
		return t, fmt.Errorf("resolution: %w", err)
	}
	if t.OwnResolution, err = time.ParseDuration(s.OwnResolution); err != nil {
		return t, fmt.Errorf("own_resolution: %w", err)
	}
	return t, nil
}
