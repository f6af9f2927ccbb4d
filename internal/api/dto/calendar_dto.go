package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// WorkingIntervalRequest is one HH:MM working window.
type WorkingIntervalRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// HolidayRequest describes a holiday entry.
type HolidayRequest struct {
	Date       string `json:"date"`
	Recurrence string `json:"recurrence,omitempty"`
}

// CalendarRequest payload. Working hours are keyed by weekday 0-6
// (Sunday=0); an absent weekday is non-working.
type CalendarRequest struct {
	Name         string                              `json:"name"`
	Timezone     string                              `json:"timezone"`
	WorkingHours map[string][]WorkingIntervalRequest `json:"working_hours"`
	Holidays     []HolidayRequest                    `json:"holidays"`
}

// CalendarResponse mirrors the stored calendar.
type CalendarResponse struct {
	ID           string                              `json:"id"`
	Name         string                              `json:"name"`
	Timezone     string                              `json:"timezone"`
	WorkingHours map[string][]WorkingIntervalRequest `json:"working_hours"`
	Holidays     []HolidayRequest                    `json:"holidays"`
	CreatedAt    time.Time                           `json:"created_at"`
	UpdatedAt    time.Time                           `json:"updated_at"`
}

// TemplateRuleRequest binds one priority to its budgets.
type TemplateRuleRequest struct {
	Priority        domain.TicketPriority `json:"priority"`
	ResponseMinutes int                   `json:"response_minutes"`
	SolutionMinutes int                   `json:"solution_minutes"`
}

// TemplateRequest payload.
type TemplateRequest struct {
	Name  string                `json:"name"`
	Rules []TemplateRuleRequest `json:"rules"`
}

// TemplateResponse mirrors the stored template.
type TemplateResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Rules     []TemplateRuleRequest `json:"rules"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}
