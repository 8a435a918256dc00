package domain_test

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

var propertyCalendars = []domain.BusinessCalendar{
	domain.DefaultBusinessCalendar(),
	{Timezone: "America/Sao_Paulo", WorkDays: []int{1, 2, 3, 4, 5}, Start: "09:00", End: "18:00"},
	{Timezone: "America/New_York", WorkDays: []int{1, 2, 3, 4, 5, 6, 7}, Start: "00:00", End: "24:00"},
	{Timezone: "Europe/Berlin", WorkDays: []int{2, 4}, Start: "01:30", End: "03:15"},
	{Timezone: "Asia/Kolkata", WorkDays: []int{7}, Start: "22:00", End: "24:00"},
	{Timezone: "Australia/Sydney", WorkDays: []int{1, 3, 5, 6}, Start: "08:45", End: "17:05"},
}

const (
	propertyEpochStart = int64(1577836800000) // 2020-01-01T00:00:00Z
	propertyEpochEnd   = int64(1893456000000) // 2030-01-01T00:00:00Z
	propertyMaxBudget  = int64(400 * time.Hour / time.Millisecond)
)

func propertyParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	return parameters
}

// TestBusinessTimeRoundTrip verifies BusinessTimeBetween undoes AddBusinessTime.
// Property: Between(t, Add(t, b)) == b for any b >= 0
func TestBusinessTimeRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("elapsed business time equals the budget", prop.ForAll(
		func(startMs, budgetMs int64, calIdx int) bool {
			cal := propertyCalendars[calIdx]
			start := time.UnixMilli(startMs).UTC()
			budget := time.Duration(budgetMs) * time.Millisecond

			due, err := domain.AddBusinessTime(start, budget, cal)
			if err != nil {
				return false
			}
			elapsed, err := domain.BusinessTimeBetween(start, due, cal)
			if err != nil {
				return false
			}
			return elapsed == budget
		},
		gen.Int64Range(propertyEpochStart, propertyEpochEnd),
		gen.Int64Range(0, propertyMaxBudget),
		gen.IntRange(0, len(propertyCalendars)-1),
	))

	properties.TestingRun(t)
}

// TestAddBusinessTimeMonotonic verifies larger budgets never produce earlier deadlines.
// Property: b1 <= b2 implies Add(t, b1) <= Add(t, b2)
func TestAddBusinessTimeMonotonic(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("deadlines grow with the budget", prop.ForAll(
		func(startMs, a, b int64, calIdx int) bool {
			if a > b {
				a, b = b, a
			}
			cal := propertyCalendars[calIdx]
			start := time.UnixMilli(startMs).UTC()

			dueA, err := domain.AddBusinessTime(start, time.Duration(a)*time.Millisecond, cal)
			if err != nil {
				return false
			}
			dueB, err := domain.AddBusinessTime(start, time.Duration(b)*time.Millisecond, cal)
			if err != nil {
				return false
			}
			return !dueA.After(dueB) && !dueA.Before(start)
		},
		gen.Int64Range(propertyEpochStart, propertyEpochEnd),
		gen.Int64Range(0, propertyMaxBudget),
		gen.Int64Range(0, propertyMaxBudget),
		gen.IntRange(0, len(propertyCalendars)-1),
	))

	properties.TestingRun(t)
}

// TestBusinessTimeBetweenAdditive verifies elapsed time splits cleanly at any midpoint.
// Property: Between(a, c) == Between(a, b) + Between(b, c) for a <= b <= c
func TestBusinessTimeBetweenAdditive(t *testing.T) {
	properties := gopter.NewProperties(propertyParameters())

	properties.Property("elapsed business time is additive", prop.ForAll(
		func(startMs, firstMs, secondMs int64, calIdx int) bool {
			cal := propertyCalendars[calIdx]
			a := time.UnixMilli(startMs).UTC()
			b := a.Add(time.Duration(firstMs) * time.Millisecond)
			c := b.Add(time.Duration(secondMs) * time.Millisecond)

			whole, err1 := domain.BusinessTimeBetween(a, c, cal)
			left, err2 := domain.BusinessTimeBetween(a, b, cal)
			right, err3 := domain.BusinessTimeBetween(b, c, cal)
			if err1 != nil || err2 != nil || err3 != nil {
				return false
			}
			return whole == left+right
		},
		gen.Int64Range(propertyEpochStart, propertyEpochEnd),
		gen.Int64Range(0, propertyMaxBudget),
		gen.Int64Range(0, propertyMaxBudget),
		gen.IntRange(0, len(propertyCalendars)-1),
	))

	properties.TestingRun(t)
}
