package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // calendars must resolve IANA zones on hosts without zoneinfo

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// ISO weekday numbers used by BusinessCalendar.WorkDays.
const (
	Monday    = 1
	Tuesday   = 2
	Wednesday = 3
	Thursday  = 4
	Friday    = 5
	Saturday  = 6
	Sunday    = 7
)

// BusinessCalendar is a tenant's definition of working days and hours.
// It is owned by the tenant configuration and must be passed explicitly to
// every computation; callers re-read it on each write since it can be edited.
type BusinessCalendar struct {
	Timezone string // IANA zone, e.g. "America/Sao_Paulo"
	WorkDays []int  // ISO weekdays, 1=Monday..7=Sunday
	Start    string // HH:mm
	End      string // HH:mm, "24:00" allowed
}

// DefaultBusinessCalendar is Monday to Friday, 09:00-18:00 UTC.
func DefaultBusinessCalendar() BusinessCalendar {
	return BusinessCalendar{
		Timezone: "UTC",
		WorkDays: []int{Monday, Tuesday, Wednesday, Thursday, Friday},
		Start:    "09:00",
		End:      "18:00",
	}
}

// Validate reports whether the calendar can drive business-time arithmetic.
// All failures wrap ErrInvalidCalendar.
func (c BusinessCalendar) Validate() error {
	_, err := c.compile()
	return err
}

// compiledCalendar is the parsed form of a BusinessCalendar. It lives for a
// single computation only.
type compiledCalendar struct {
	loc      *time.Location
	workDays [8]bool // indexed by ISO weekday
	start    int     // minutes after local midnight
	end      int
}

func (c BusinessCalendar) compile() (*compiledCalendar, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return nil, fmt.Errorf("%w: timezone is required", apperrors.ErrInvalidCalendar)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", apperrors.ErrInvalidCalendar, c.Timezone)
	}

	cc := &compiledCalendar{loc: loc}
	if len(c.WorkDays) == 0 {
		return nil, fmt.Errorf("%w: at least one work day is required", apperrors.ErrInvalidCalendar)
	}
	for _, d := range c.WorkDays {
		if d < Monday || d > Sunday {
			return nil, fmt.Errorf("%w: work day %d outside 1..7", apperrors.ErrInvalidCalendar, d)
		}
		cc.workDays[d] = true
	}

	if cc.start, err = parseTimeOfDay(c.Start); err != nil {
		return nil, fmt.Errorf("%w: start: %v", apperrors.ErrInvalidCalendar, err)
	}
	if cc.end, err = parseTimeOfDay(c.End); err != nil {
		return nil, fmt.Errorf("%w: end: %v", apperrors.ErrInvalidCalendar, err)
	}
	if cc.start >= cc.end {
		return nil, fmt.Errorf("%w: start %s must be before end %s", apperrors.ErrInvalidCalendar, c.Start, c.End)
	}

	return cc, nil
}

// parseTimeOfDay parses HH:mm into minutes after midnight. 24:00 is accepted
// so a window can run to the end of the day.
func parseTimeOfDay(value string) (int, error) {
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%q is not in HH:mm format", value)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%q is not in HH:mm format", value)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%q is not in HH:mm format", value)
	}
	if hours == 24 && minutes == 0 {
		return 24 * 60, nil
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%q is out of range", value)
	}
	return hours*60 + minutes, nil
}

// isoWeekday converts Go's Sunday-based weekday to ISO numbering.
func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return Sunday
	}
	return int(d)
}

// isWorkDay reports whether the civil date (a UTC midnight) is a work day.
func (cc *compiledCalendar) isWorkDay(date time.Time) bool {
	return cc.workDays[isoWeekday(date.Weekday())]
}

// window returns the business window of a civil date in the calendar zone.
// ok is false when the window collapses, which only happens when a zone
// transition swallows the configured hours or the whole date.
func (cc *compiledCalendar) window(date time.Time) (start, end time.Time, ok bool) {
	start = cc.wallClock(date, cc.start)
	end = cc.wallClock(date, cc.end)
	return start, end, start.Before(end)
}

// wallClock returns the instant the calendar zone reads minutes past
// midnight on date. A wall time skipped by a transition resolves to the
// transition itself, the first instant at or after it.
func (cc *compiledCalendar) wallClock(date time.Time, minutes int) time.Time {
	y, m, d := date.Date()
	want := time.Date(y, m, d, minutes/60, minutes%60, 0, 0, time.UTC)
	t := time.Date(y, m, d, minutes/60, minutes%60, 0, 0, cc.loc)

	ly, lm, ld := t.Date()
	got := time.Date(ly, lm, ld, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	switch {
	case got.Before(want):
		_, transition := t.ZoneBounds()
		return transition
	case got.After(want):
		transition, _ := t.ZoneBounds()
		return transition
	}
	return t
}

// civilDate returns the local calendar date of t as a UTC midnight, which
// steps cleanly with AddDate regardless of DST in the calendar zone.
func (cc *compiledCalendar) civilDate(t time.Time) time.Time {
	y, m, d := t.In(cc.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weeklyCapacity is the nominal business time in one week, ignoring DST.
func (cc *compiledCalendar) weeklyCapacity() time.Duration {
	days := 0
	for d := Monday; d <= Sunday; d++ {
		if cc.workDays[d] {
			days++
		}
	}
	return time.Duration(days*(cc.end-cc.start)) * time.Minute
}
