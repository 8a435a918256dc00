package domain

import (
	"fmt"
	"time"

	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
)

// AddBusinessTime returns the instant reached after consuming budget of
// business time, counting forward from start. A start outside the work
// window is first moved to the next window opening. A zero budget returns
// start unchanged. The result is in UTC.
func AddBusinessTime(start time.Time, budget time.Duration, cal BusinessCalendar) (time.Time, error) {
	cc, err := cal.compile()
	if err != nil {
		return time.Time{}, err
	}
	if budget < 0 {
		return time.Time{}, fmt.Errorf("%w: budget %s", apperrors.ErrNegativeDuration, budget)
	}
	if budget == 0 {
		return start, nil
	}

	// Each full week yields weeklyCapacity. Two spare weeks cover the partial
	// first week and days shortened by DST.
	maxDays := (int(budget/cc.weeklyCapacity()) + 2) * 7

	cursor := start
	remaining := budget
	date := cc.civilDate(start)

	for i := 0; i <= maxDays; i++ {
		if cc.isWorkDay(date) {
			windowStart, windowEnd, ok := cc.window(date)
			if ok {
				if cursor.Before(windowStart) {
					cursor = windowStart
				}
				if cursor.Before(windowEnd) {
					available := windowEnd.Sub(cursor)
					if remaining <= available {
						return cursor.Add(remaining).UTC(), nil
					}
					remaining -= available
					cursor = windowEnd
				}
			}
		}
		date = date.AddDate(0, 0, 1)
	}

	return time.Time{}, fmt.Errorf("%w: budget %s not consumed within %d days", apperrors.ErrInvalidCalendar, budget, maxDays)
}

// BusinessTimeBetween returns how much of [start, end] falls inside the
// calendar's work windows. It returns 0 when end is not after start.
func BusinessTimeBetween(start, end time.Time, cal BusinessCalendar) (time.Duration, error) {
	cc, err := cal.compile()
	if err != nil {
		return 0, err
	}
	if !end.After(start) {
		return 0, nil
	}

	// The cursor walk mirrors AddBusinessTime so the two agree on every
	// window. One spare date covers a window that closes at the next
	// local midnight.
	var total time.Duration
	cursor := start
	last := cc.civilDate(end).AddDate(0, 0, 1)
	for date := cc.civilDate(start); !date.After(last); date = date.AddDate(0, 0, 1) {
		if !cc.isWorkDay(date) {
			continue
		}
		windowStart, windowEnd, ok := cc.window(date)
		if !ok {
			continue
		}

		lo := windowStart
		if cursor.After(lo) {
			lo = cursor
		}
		hi := windowEnd
		if end.Before(hi) {
			hi = end
		}
		if hi.After(lo) {
			total += hi.Sub(lo)
			cursor = hi
		}
	}

	return total, nil
}

// IsBusinessTime reports whether t falls inside a work window.
func IsBusinessTime(t time.Time, cal BusinessCalendar) (bool, error) {
	cc, err := cal.compile()
	if err != nil {
		return false, err
	}
	date := cc.civilDate(t)
	if !cc.isWorkDay(date) {
		return false, nil
	}
	windowStart, windowEnd, ok := cc.window(date)
	return ok && !t.Before(windowStart) && t.Before(windowEnd), nil
}
