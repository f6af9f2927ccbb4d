package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const minutesPerDay = 24 * 60

// HolidayRecurrence enumerates how a holiday repeats.
type HolidayRecurrence string

const (
	HolidayRecurrenceNone    HolidayRecurrence = "NONE"
	HolidayRecurrenceYearly  HolidayRecurrence = "YEARLY"
	HolidayRecurrenceMonthly HolidayRecurrence = "MONTHLY"
)

// Holiday marks a non-working date, optionally recurring.
type Holiday struct {
	Date       time.Time
	Recurrence HolidayRecurrence
}

// WorkingInterval is a working window within a day, in minutes from local midnight.
type WorkingInterval struct {
	Start int
	End   int
}

// BusinessCalendar models working hours, holidays, and a timezone. A weekday
// with no intervals is non-working. All instant arithmetic happens in the
// calendar's location.
type BusinessCalendar struct {
	ID           string
	Name         string
	Timezone     string
	WorkingHours map[time.Weekday][]WorkingInterval
	Holidays     []Holiday
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ParseClock parses "HH:MM" into minutes from midnight.
func ParseClock(value string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", value)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || h*60+m > minutesPerDay {
		return 0, fmt.Errorf("clock value %q out of range", value)
	}
	return h*60 + m, nil
}

// ParseHolidayDate parses a "YYYY-MM-DD" holiday date.
func ParseHolidayDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid holiday date %q", value)
	}
	return t, nil
}

// Validate rejects calendars that cannot drive deadline arithmetic. A
// calendar without any working time would otherwise never terminate a
// business-minute walk, so it is refused here, at configuration time.
func (c *BusinessCalendar) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	hasWork := false
	for weekday, intervals := range c.WorkingHours {
		if weekday < time.Sunday || weekday > time.Saturday {
			return fmt.Errorf("invalid weekday %d", int(weekday))
		}
		for _, interval := range intervals {
			if interval.Start < 0 || interval.End > minutesPerDay || interval.Start >= interval.End {
				return fmt.Errorf("invalid working interval %d-%d on %s", interval.Start, interval.End, weekday)
			}
			hasWork = true
		}
	}
	if !hasWork {
		return errors.New("calendar defines no working time")
	}
	for _, holiday := range c.Holidays {
		switch holiday.Recurrence {
		case HolidayRecurrenceNone, HolidayRecurrenceYearly, HolidayRecurrenceMonthly:
		default:
			return fmt.Errorf("unknown holiday recurrence %q", holiday.Recurrence)
		}
		if holiday.Date.IsZero() {
			return errors.New("holiday date missing")
		}
	}
	return nil
}

// IsWorkingInstant reports whether the instant falls inside a configured
// working window on a non-holiday date. The calendar must have passed
// Validate.
func (c *BusinessCalendar) IsWorkingInstant(instant time.Time) bool {
	loc, err := c.location()
	if err != nil {
		return false
	}
	local := instant.In(loc)
	year, month, day := local.Date()
	if c.isHoliday(year, month, day) {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	for _, interval := range c.WorkingHours[local.Weekday()] {
		if minute >= interval.Start && minute < interval.End {
			return true
		}
	}
	return false
}

// AddBusinessMinutes advances start by the given number of working minutes.
// A start outside working time first snaps forward to the next window start
// before any budget is consumed. Days without working time are skipped whole,
// so the walk is bounded even for very large budgets.
func (c *BusinessCalendar) AddBusinessMinutes(start time.Time, minutes int) (time.Time, error) {
	if minutes < 0 {
		return time.Time{}, errors.New("business minutes must be non-negative")
	}
	loc, err := c.location()
	if err != nil {
		return time.Time{}, err
	}
	weekly := c.weeklyWorkingMinutes()
	if weekly == 0 {
		return time.Time{}, errors.New("calendar defines no working time")
	}

	// Enough days to consume the budget at the weekly rate, plus a year of
	// slack for holidays.
	maxDays := (minutes/weekly+2)*7 + 366

	remaining := minutes
	cursor := start.In(loc).Truncate(time.Minute)
	for day := 0; day <= maxDays; day++ {
		year, month, dayOfMonth := cursor.Date()
		if !c.isHoliday(year, month, dayOfMonth) {
			for _, interval := range sortedIntervals(c.WorkingHours[cursor.Weekday()]) {
				windowStart := time.Date(year, month, dayOfMonth, interval.Start/60, interval.Start%60, 0, 0, loc)
				windowEnd := time.Date(year, month, dayOfMonth, interval.End/60, interval.End%60, 0, 0, loc)
				if !cursor.Before(windowEnd) {
					continue
				}
				effective := cursor
				if effective.Before(windowStart) {
					effective = windowStart
				}
				available := int(windowEnd.Sub(effective) / time.Minute)
				if remaining <= available {
					return effective.Add(time.Duration(remaining) * time.Minute), nil
				}
				remaining -= available
				cursor = windowEnd
			}
		}
		cursor = time.Date(year, month, dayOfMonth+1, 0, 0, 0, 0, loc)
	}
	return time.Time{}, errors.New("business minute budget exceeds calendar horizon")
}

func (c *BusinessCalendar) location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *BusinessCalendar) isHoliday(year int, month time.Month, day int) bool {
	for _, holiday := range c.Holidays {
		hYear, hMonth, hDay := holiday.Date.Date()
		switch holiday.Recurrence {
		case HolidayRecurrenceYearly:
			if hMonth == month && hDay == day {
				return true
			}
		case HolidayRecurrenceMonthly:
			if hDay == day {
				return true
			}
		default:
			if hYear == year && hMonth == month && hDay == day {
				return true
			}
		}
	}
	return false
}

func (c *BusinessCalendar) weeklyWorkingMinutes() int {
	total := 0
	for _, intervals := range c.WorkingHours {
		for _, interval := range intervals {
			total += interval.End - interval.Start
		}
	}
	return total
}

func sortedIntervals(intervals []WorkingInterval) []WorkingInterval {
	if len(intervals) < 2 {
		return intervals
	}
	sorted := append([]WorkingInterval{}, intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return sorted
}
