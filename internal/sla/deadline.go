package sla

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// DueDates carries the absolute deadlines for both legs. Nil values mean no
// SLA applies.
type DueDates struct {
	ResponseDueAt *time.Time
	SolutionDueAt *time.Time
}

// DeadlineCalculator turns a start instant, a calendar, and a budget into
// absolute due timestamps.
type DeadlineCalculator struct{}

// NewDeadlineCalculator constructs a calculator.
func NewDeadlineCalculator() *DeadlineCalculator {
	return &DeadlineCalculator{}
}

// ComputeDueDates walks both deadlines independently from the same start
// instant. The solution clock runs in parallel with the response clock, not
// after it. A nil budget yields nil due dates.
func (d *DeadlineCalculator) ComputeDueDates(start time.Time, calendar *domain.BusinessCalendar, budget *domain.SlaBudget) (DueDates, error) {
	if budget == nil {
		return DueDates{}, nil
	}
	responseDue, err := calendar.AddBusinessMinutes(start, budget.ResponseMinutes)
	if err != nil {
		return DueDates{}, err
	}
	solutionDue, err := calendar.AddBusinessMinutes(start, budget.SolutionMinutes)
	if err != nil {
		return DueDates{}, err
	}
	return DueDates{ResponseDueAt: &responseDue, SolutionDueAt: &solutionDue}, nil
}
