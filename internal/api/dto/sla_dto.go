package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// RecalculateRequest payload.
type RecalculateRequest struct {
	Reason domain.RecalcReason `json:"reason"`
}

// SlaCalculationResponse represents one audit trail entry.
type SlaCalculationResponse struct {
	ID            string                `json:"id"`
	TicketID      string                `json:"ticket_id"`
	ContractID    *string               `json:"contract_id,omitempty"`
	TemplateID    *string               `json:"template_id,omitempty"`
	CalendarID    *string               `json:"calendar_id,omitempty"`
	Priority      domain.TicketPriority `json:"priority"`
	ResponseDueAt *time.Time            `json:"response_due_at"`
	SolutionDueAt *time.Time            `json:"solution_due_at"`
	Reason        domain.RecalcReason   `json:"reason"`
	IsCurrent     bool                  `json:"is_current"`
	CalculatedAt  time.Time             `json:"calculated_at"`
}

// SlaStatusResponse reports the live state of both legs.
type SlaStatusResponse struct {
	TicketID             string           `json:"ticket_id"`
	ResponseStatus       domain.LegStatus `json:"response_status"`
	SolutionStatus       domain.LegStatus `json:"solution_status"`
	ResponseDueAt        *time.Time       `json:"response_due_at,omitempty"`
	SolutionDueAt        *time.Time       `json:"solution_due_at,omitempty"`
	TimeRemainingMinutes *int             `json:"time_remaining_minutes,omitempty"`
}
