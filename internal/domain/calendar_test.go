package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// weekdayCalendar is Mon-Fri 09:00-18:00 UTC.
func weekdayCalendar(t *testing.T, holidays ...Holiday) *BusinessCalendar {
	t.Helper()
	interval := WorkingInterval{Start: 9 * 60, End: 18 * 60}
	cal := &BusinessCalendar{
		Name:     "weekday",
		Timezone: "UTC",
		WorkingHours: map[time.Weekday][]WorkingInterval{
			time.Monday:    {interval},
			time.Tuesday:   {interval},
			time.Wednesday: {interval},
			time.Thursday:  {interval},
			time.Friday:    {interval},
		},
		Holidays: holidays,
	}
	require.NoError(t, cal.Validate())
	return cal
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*60+30, minutes)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("bogus")
	assert.Error(t, err)
}

func TestAddBusinessMinutesWithinWindow(t *testing.T) {
	cal := weekdayCalendar(t)
	// Monday 2024-03-04 10:00 UTC.
	start := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	due, err := cal.AddBusinessMinutes(start, 60)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 11, 0, 0, 0, time.UTC), due)
}

func TestAddBusinessMinutesSpansWeekend(t *testing.T) {
	cal := weekdayCalendar(t)
	// Friday 2024-03-01 17:30: 30 minutes consumed today, the rest on Monday.
	start := time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC)

	due, err := cal.AddBusinessMinutes(start, 60)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC), due)
}

func TestAddBusinessMinutesSkipsHoliday(t *testing.T) {
	holiday := Holiday{Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Recurrence: HolidayRecurrenceNone}
	cal := weekdayCalendar(t, holiday)
	start := time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC)

	due, err := cal.AddBusinessMinutes(start, 60)
	require.NoError(t, err)
	// Monday is a holiday, so the remaining 30 minutes land on Tuesday.
	assert.Equal(t, time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC), due)
}

func TestAddBusinessMinutesSnapsForwardFromNonWorkingStart(t *testing.T) {
	cal := weekdayCalendar(t)
	// Saturday noon snaps to Monday 09:00 before any budget is consumed.
	start := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)

	due, err := cal.AddBusinessMinutes(start, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), due)
}

func TestAddBusinessMinutesLunchBreak(t *testing.T) {
	cal := &BusinessCalendar{
		Name:     "split",
		Timezone: "UTC",
		WorkingHours: map[time.Weekday][]WorkingInterval{
			// Intervals deliberately out of order.
			time.Monday: {{Start: 13 * 60, End: 18 * 60}, {Start: 9 * 60, End: 12 * 60}},
		},
	}
	require.NoError(t, cal.Validate())

	start := time.Date(2024, 3, 4, 11, 30, 0, 0, time.UTC)
	due, err := cal.AddBusinessMinutes(start, 60)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 13, 30, 0, 0, time.UTC), due)
}

func TestAddBusinessMinutesLargeBudget(t *testing.T) {
	cal := weekdayCalendar(t)
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	// Four full working weeks.
	due, err := cal.AddBusinessMinutes(start, 4*5*9*60)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 29, 18, 0, 0, 0, time.UTC), due)
}

func TestAddBusinessMinutesMonotonic(t *testing.T) {
	cal := weekdayCalendar(t)
	start := time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC)

	previous, err := cal.AddBusinessMinutes(start, 0)
	require.NoError(t, err)
	for _, budget := range []int{10, 30, 31, 60, 240, 540, 2000} {
		due, err := cal.AddBusinessMinutes(start, budget)
		require.NoError(t, err)
		assert.False(t, due.Before(previous), "budget %d moved the deadline backwards", budget)
		previous = due
	}
}

func TestAddBusinessMinutesRejectsNegative(t *testing.T) {
	cal := weekdayCalendar(t)
	_, err := cal.AddBusinessMinutes(time.Now(), -1)
	assert.Error(t, err)
}

func TestRecurringHolidays(t *testing.T) {
	cal := weekdayCalendar(t,
		Holiday{Date: time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC), Recurrence: HolidayRecurrenceYearly},
	)
	// 2024-03-04 is a Monday and matches the yearly holiday.
	assert.False(t, cal.IsWorkingInstant(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)))
	assert.True(t, cal.IsWorkingInstant(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)))

	monthly := weekdayCalendar(t,
		Holiday{Date: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), Recurrence: HolidayRecurrenceMonthly},
	)
	// The 15th of every month, here a Friday in March 2024.
	assert.False(t, monthly.IsWorkingInstant(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)))
}

func TestIsWorkingInstant(t *testing.T) {
	cal := weekdayCalendar(t)

	assert.True(t, cal.IsWorkingInstant(time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)))
	assert.False(t, cal.IsWorkingInstant(time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)), "window end is exclusive")
	assert.False(t, cal.IsWorkingInstant(time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)), "saturday")
}

func TestCalendarValidate(t *testing.T) {
	cases := []struct {
		name string
		cal  BusinessCalendar
	}{
		{"no working time", BusinessCalendar{Timezone: "UTC", WorkingHours: map[time.Weekday][]WorkingInterval{}}},
		{"bad timezone", BusinessCalendar{Timezone: "Mars/Olympus", WorkingHours: map[time.Weekday][]WorkingInterval{
			time.Monday: {{Start: 0, End: 60}},
		}}},
		{"inverted interval", BusinessCalendar{Timezone: "UTC", WorkingHours: map[time.Weekday][]WorkingInterval{
			time.Monday: {{Start: 600, End: 540}},
		}}},
		{"interval past midnight", BusinessCalendar{Timezone: "UTC", WorkingHours: map[time.Weekday][]WorkingInterval{
			time.Monday: {{Start: 600, End: 1441}},
		}}},
		{"unknown recurrence", BusinessCalendar{Timezone: "UTC", WorkingHours: map[time.Weekday][]WorkingInterval{
			time.Monday: {{Start: 540, End: 1080}},
		}, Holidays: []Holiday{{Date: time.Now(), Recurrence: "WEEKLY"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.cal.Validate())
		})
	}
}

func TestAddBusinessMinutesTimezone(t *testing.T) {
	cal := &BusinessCalendar{
		Name:     "berlin",
		Timezone: "Europe/Berlin",
		WorkingHours: map[time.Weekday][]WorkingInterval{
			time.Monday: {{Start: 9 * 60, End: 18 * 60}},
		},
	}
	require.NoError(t, cal.Validate())

	// 2024-03-04 07:00 UTC is 08:00 in Berlin (CET), one hour before opening.
	start := time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)
	due, err := cal.AddBusinessMinutes(start, 30)
	require.NoError(t, err)

	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, berlin).UTC(), due.UTC())
}
