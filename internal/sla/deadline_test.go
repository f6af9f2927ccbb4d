package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func businessCalendar(t *testing.T) *domain.BusinessCalendar {
	t.Helper()
	interval := domain.WorkingInterval{Start: 9 * 60, End: 18 * 60}
	cal := &domain.BusinessCalendar{
		Name:     "weekday",
		Timezone: "UTC",
		WorkingHours: map[time.Weekday][]domain.WorkingInterval{
			time.Monday:    {interval},
			time.Tuesday:   {interval},
			time.Wednesday: {interval},
			time.Thursday:  {interval},
			time.Friday:    {interval},
		},
	}
	require.NoError(t, cal.Validate())
	return cal
}

func TestComputeDueDatesParallelClocks(t *testing.T) {
	calc := NewDeadlineCalculator()
	cal := businessCalendar(t)
	// Monday 09:00, so both legs run from the same instant.
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	due, err := calc.ComputeDueDates(start, cal, &domain.SlaBudget{ResponseMinutes: 60, SolutionMinutes: 480})
	require.NoError(t, err)
	require.NotNil(t, due.ResponseDueAt)
	require.NotNil(t, due.SolutionDueAt)

	assert.Equal(t, time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), *due.ResponseDueAt)
	// 480 minutes from 09:00 is 17:00 the same day, not 60+480 minutes.
	assert.Equal(t, time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC), *due.SolutionDueAt)
}

func TestComputeDueDatesNilBudget(t *testing.T) {
	calc := NewDeadlineCalculator()
	cal := businessCalendar(t)

	due, err := calc.ComputeDueDates(time.Now(), cal, nil)
	require.NoError(t, err)
	assert.Nil(t, due.ResponseDueAt)
	assert.Nil(t, due.SolutionDueAt)
}

func TestComputeDueDatesSpansWeekend(t *testing.T) {
	calc := NewDeadlineCalculator()
	cal := businessCalendar(t)
	// Friday 17:30.
	start := time.Date(2024, 3, 1, 17, 30, 0, 0, time.UTC)

	due, err := calc.ComputeDueDates(start, cal, &domain.SlaBudget{ResponseMinutes: 60, SolutionMinutes: 120})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC), *due.ResponseDueAt)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC), *due.SolutionDueAt)
}
