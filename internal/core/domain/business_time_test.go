package domain_test

import (
	"testing"
	"time"

	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func saoPauloCalendar() domain.BusinessCalendar {
	return domain.BusinessCalendar{
		Timezone: "America/Sao_Paulo",
		WorkDays: weekdays(),
		Start:    "09:00",
		End:      "18:00",
	}
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestAddBusinessTime(t *testing.T) {
	// 2024-05-13 is a Monday.
	cal := domain.DefaultBusinessCalendar()
	weekendDesk := domain.BusinessCalendar{
		Timezone: "UTC",
		WorkDays: []int{domain.Saturday, domain.Sunday},
		Start:    "09:00",
		End:      "18:00",
	}

	tests := []struct {
		name   string
		cal    domain.BusinessCalendar
		start  time.Time
		budget time.Duration
		want   time.Time
	}{
		{"friday afternoon skips the weekend", cal, utc(2024, 5, 17, 17, 0), 2 * time.Hour, utc(2024, 5, 20, 10, 0)},
		{"inside a single window", cal, utc(2024, 5, 13, 10, 0), 3 * time.Hour, utc(2024, 5, 13, 13, 0)},
		{"before opening normalizes forward", cal, utc(2024, 5, 13, 7, 0), 30 * time.Minute, utc(2024, 5, 13, 9, 30)},
		{"after closing moves to next day", cal, utc(2024, 5, 13, 19, 0), time.Hour, utc(2024, 5, 14, 10, 0)},
		{"saturday start moves to monday", cal, utc(2024, 5, 18, 12, 0), time.Hour, utc(2024, 5, 20, 10, 0)},
		{"budget ending exactly at closing", cal, utc(2024, 5, 13, 9, 0), 9 * time.Hour, utc(2024, 5, 13, 18, 0)},
		{"full working week", cal, utc(2024, 5, 13, 9, 0), 45 * time.Hour, utc(2024, 5, 17, 18, 0)},
		{"one hour past a full week", cal, utc(2024, 5, 13, 9, 0), 46 * time.Hour, utc(2024, 5, 20, 10, 0)},
		{"millisecond budget", cal, utc(2024, 5, 13, 9, 0), time.Millisecond, utc(2024, 5, 13, 9, 0).Add(time.Millisecond)},
		{"custom work days skip weekdays", weekendDesk, utc(2024, 5, 17, 17, 0), 2 * time.Hour, utc(2024, 5, 18, 11, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.AddBusinessTime(tt.start, tt.budget, tt.cal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddBusinessTime_ZeroBudgetIsIdentity(t *testing.T) {
	cal := domain.DefaultBusinessCalendar()
	starts := []time.Time{
		utc(2024, 5, 18, 3, 0),
		utc(2024, 5, 13, 12, 0),
		utc(2024, 5, 13, 18, 0),
		time.Date(2024, 5, 13, 7, 0, 0, 0, time.FixedZone("CET", 3600)),
	}

	for _, start := range starts {
		got, err := domain.AddBusinessTime(start, 0, cal)
		require.NoError(t, err)
		assert.True(t, start.Equal(got))
	}
}

func TestAddBusinessTime_SaoPaulo(t *testing.T) {
	cal := saoPauloCalendar()
	loc := mustLocation(t, "America/Sao_Paulo")

	t.Run("wednesday 16:00 plus 4h response budget", func(t *testing.T) {
		start := time.Date(2024, 5, 15, 16, 0, 0, 0, loc)

		due, err := domain.AddBusinessTime(start, 4*time.Hour, cal)
		require.NoError(t, err)

		// 2h left on Wednesday, 2h on Thursday morning.
		assert.True(t, due.Equal(time.Date(2024, 5, 16, 11, 0, 0, 0, loc)), "got %s", due.In(loc))
		assert.Equal(t, time.UTC, due.Location())
	})

	t.Run("friday 10:00 plus 24h resolution budget", func(t *testing.T) {
		start := time.Date(2024, 5, 17, 10, 0, 0, 0, loc)

		due, err := domain.AddBusinessTime(start, 24*time.Hour, cal)
		require.NoError(t, err)

		// Friday gives 8h, Monday 9h, leaving 7h for Tuesday.
		assert.True(t, due.Equal(time.Date(2024, 5, 21, 16, 0, 0, 0, loc)), "got %s", due.In(loc))
	})
}

func TestAddBusinessTime_Errors(t *testing.T) {
	t.Run("negative budget", func(t *testing.T) {
		_, err := domain.AddBusinessTime(utc(2024, 5, 13, 9, 0), -time.Second, domain.DefaultBusinessCalendar())
		assert.ErrorIs(t, err, apperrors.ErrNegativeDuration)
	})

	t.Run("calendar without work days fails instead of looping", func(t *testing.T) {
		cal := domain.BusinessCalendar{Timezone: "UTC", Start: "09:00", End: "18:00"}
		_, err := domain.AddBusinessTime(utc(2024, 5, 13, 9, 0), time.Hour, cal)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
	})

	t.Run("inverted window", func(t *testing.T) {
		cal := domain.BusinessCalendar{Timezone: "UTC", WorkDays: weekdays(), Start: "18:00", End: "09:00"}
		_, err := domain.AddBusinessTime(utc(2024, 5, 13, 9, 0), time.Hour, cal)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
	})
}

func TestBusinessTimeBetween(t *testing.T) {
	cal := domain.DefaultBusinessCalendar()

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  time.Duration
	}{
		{"end before start", utc(2024, 5, 13, 12, 0), utc(2024, 5, 13, 10, 0), 0},
		{"end equals start", utc(2024, 5, 13, 12, 0), utc(2024, 5, 13, 12, 0), 0},
		{"same window", utc(2024, 5, 13, 10, 0), utc(2024, 5, 13, 12, 30), 150 * time.Minute},
		{"across the weekend", utc(2024, 5, 17, 17, 0), utc(2024, 5, 20, 10, 0), 2 * time.Hour},
		{"weekend only", utc(2024, 5, 18, 0, 0), utc(2024, 5, 20, 0, 0), 0},
		{"outside hours on both ends", utc(2024, 5, 13, 6, 0), utc(2024, 5, 13, 22, 0), 9 * time.Hour},
		{"calendar week", utc(2024, 5, 13, 0, 0), utc(2024, 5, 20, 0, 0), 45 * time.Hour},
		{"overnight", utc(2024, 5, 13, 17, 0), utc(2024, 5, 14, 10, 0), 2 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.BusinessTimeBetween(tt.start, tt.end, cal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBusinessTimeBetween_InvalidCalendar(t *testing.T) {
	cal := domain.BusinessCalendar{Timezone: "Nowhere/Land", WorkDays: weekdays(), Start: "09:00", End: "18:00"}
	_, err := domain.BusinessTimeBetween(utc(2024, 5, 13, 9, 0), utc(2024, 5, 14, 9, 0), cal)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
}

func TestBusinessTime_DaylightSaving(t *testing.T) {
	allDay := domain.BusinessCalendar{
		Timezone: "America/New_York",
		WorkDays: []int{1, 2, 3, 4, 5, 6, 7},
		Start:    "00:00",
		End:      "24:00",
	}
	loc := mustLocation(t, "America/New_York")

	t.Run("spring forward day is 23 hours", func(t *testing.T) {
		start := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
		end := time.Date(2024, 3, 11, 0, 0, 0, 0, loc)

		elapsed, err := domain.BusinessTimeBetween(start, end, allDay)
		require.NoError(t, err)
		assert.Equal(t, 23*time.Hour, elapsed)

		due, err := domain.AddBusinessTime(start, 23*time.Hour, allDay)
		require.NoError(t, err)
		assert.True(t, due.Equal(end))
	})

	t.Run("fall back day is 25 hours", func(t *testing.T) {
		start := time.Date(2024, 11, 3, 0, 0, 0, 0, loc)
		end := time.Date(2024, 11, 4, 0, 0, 0, 0, loc)

		elapsed, err := domain.BusinessTimeBetween(start, end, allDay)
		require.NoError(t, err)
		assert.Equal(t, 25*time.Hour, elapsed)
	})
}

func TestBusinessTime_RoundTripFixtures(t *testing.T) {
	cal := saoPauloCalendar()
	start := utc(2024, 5, 17, 20, 15) // 17:15 on a Sao Paulo friday

	for _, budget := range []time.Duration{0, time.Millisecond, time.Hour, 9 * time.Hour, 24 * time.Hour, 100 * time.Hour} {
		due, err := domain.AddBusinessTime(start, budget, cal)
		require.NoError(t, err)

		elapsed, err := domain.BusinessTimeBetween(start, due, cal)
		require.NoError(t, err)
		assert.Equal(t, budget, elapsed, "budget %s", budget)
	}
}

// Samoa skipped 2011-12-30 by moving from UTC-10 to UTC+14 at the end of
// 2011-12-29 local time (2011-12-30T10:00Z).
func TestBusinessTime_SkippedLocalDate(t *testing.T) {
	everyDay := []int{1, 2, 3, 4, 5, 6, 7}
	officeHours := domain.BusinessCalendar{Timezone: "Pacific/Apia", WorkDays: everyDay, Start: "09:00", End: "17:00"}
	allDay := domain.BusinessCalendar{Timezone: "Pacific/Apia", WorkDays: everyDay, Start: "00:00", End: "24:00"}

	t.Run("elapsed", func(t *testing.T) {
		tests := []struct {
			name  string
			cal   domain.BusinessCalendar
			start time.Time
			end   time.Time
			want  time.Duration
		}{
			{"last day before the jump", allDay, utc(2011, 12, 29, 10, 0), utc(2011, 12, 30, 10, 0), 24 * time.Hour},
			{"across the missing date", allDay, utc(2011, 12, 29, 10, 0), utc(2011, 12, 31, 10, 0), 48 * time.Hour},
			{"office hours either side", officeHours, utc(2011, 12, 29, 19, 0), utc(2011, 12, 31, 3, 0), 16 * time.Hour},
			{"evening before the jump", officeHours, utc(2011, 12, 30, 3, 0), utc(2011, 12, 30, 19, 0), 0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := domain.BusinessTimeBetween(tt.start, tt.end, tt.cal)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	t.Run("due date skips the missing date", func(t *testing.T) {
		// 10:35 local on the 27th leaves 6h25m that day, then 8h on each of
		// the 28th, 29th, 31st and the first three days of January.
		due, err := domain.AddBusinessTime(utc(2011, 12, 27, 20, 35), 61*time.Hour, officeHours)
		require.NoError(t, err)
		assert.True(t, due.Equal(utc(2012, 1, 4, 1, 35)), "got %s", due)
	})

	t.Run("round trip", func(t *testing.T) {
		starts := []time.Time{
			utc(2011, 12, 27, 20, 35),
			utc(2011, 12, 29, 19, 0),
			utc(2011, 12, 30, 9, 59),
			utc(2011, 12, 30, 10, 0),
		}
		budgets := []time.Duration{time.Minute, 8 * time.Hour, 24 * time.Hour, 37 * time.Hour, 61 * time.Hour, 200 * time.Hour}

		for _, cal := range []domain.BusinessCalendar{officeHours, allDay} {
			for _, start := range starts {
				for _, budget := range budgets {
					due, err := domain.AddBusinessTime(start, budget, cal)
					require.NoError(t, err)

					elapsed, err := domain.BusinessTimeBetween(start, due, cal)
					require.NoError(t, err)
					assert.Equal(t, budget, elapsed, "%s-%s from %s plus %s", cal.Start, cal.End, start, budget)
					assert.LessOrEqual(t, elapsed, due.Sub(start))
				}
			}
		}
	})
}

func TestIsBusinessTime(t *testing.T) {
	cal := domain.DefaultBusinessCalendar()

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"at opening", utc(2024, 5, 13, 9, 0), true},
		{"just before opening", utc(2024, 5, 13, 8, 59), false},
		{"at closing", utc(2024, 5, 13, 18, 0), false},
		{"saturday noon", utc(2024, 5, 18, 12, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.IsBusinessTime(tt.at, cal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
