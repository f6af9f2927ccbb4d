package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSlaCalculated   EventType = "sla_calculated"
	EventSlaRecalculated EventType = "sla_recalculated"
	EventSlaEscalation   EventType = "sla_escalation"
)

// Event represents a domain event emitted by the engine.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SlaCalculatedPayload describes a newly inserted calculation row.
type SlaCalculatedPayload struct {
	CalculationID string                `json:"calculation_id"`
	Priority      domain.TicketPriority `json:"priority"`
	Reason        domain.RecalcReason   `json:"reason"`
	ResponseDueAt *time.Time            `json:"response_due_at,omitempty"`
	SolutionDueAt *time.Time            `json:"solution_due_at,omitempty"`
}

// SlaEscalationPayload describes a leg status transition.
type SlaEscalationPayload struct {
	CalculationID string           `json:"calculation_id"`
	Leg           domain.Leg       `json:"leg"`
	OldStatus     domain.LegStatus `json:"old_status"`
	NewStatus     domain.LegStatus `json:"new_status"`
	Level         int              `json:"level"`
	DueAt         *time.Time       `json:"due_at,omitempty"`
}
