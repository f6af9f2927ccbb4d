package domain

import "time"

// RecalcReason records why a calculation row was produced.
type RecalcReason string

const (
	RecalcReasonCreation       RecalcReason = "creation"
	RecalcReasonPriorityChange RecalcReason = "priority_change"
	RecalcReasonContractChange RecalcReason = "contract_change"
	RecalcReasonCalendarChange RecalcReason = "calendar_change"
	RecalcReasonManual         RecalcReason = "manual"
	RecalcReasonReopen         RecalcReason = "reopen"
)

// Valid reports whether the reason is a known value.
func (r RecalcReason) Valid() bool {
	switch r {
	case RecalcReasonCreation, RecalcReasonPriorityChange, RecalcReasonContractChange,
		RecalcReasonCalendarChange, RecalcReasonManual, RecalcReasonReopen:
		return true
	}
	return false
}

// Leg identifies one of the two independent SLA clocks.
type Leg string

const (
	LegResponse Leg = "RESPONSE"
	LegSolution Leg = "SOLUTION"
)

// LegStatus enumerates the escalation state machine for a leg.
type LegStatus string

const (
	LegStatusNoSla       LegStatus = "NO_SLA"
	LegStatusOnTrack     LegStatus = "ON_TRACK"
	LegStatusApproaching LegStatus = "APPROACHING"
	LegStatusBreached    LegStatus = "BREACHED"
	LegStatusCompleted   LegStatus = "COMPLETED"
)

// Escalation levels, one per alert threshold already fired. The counter only
// moves forward so each threshold crossing alerts exactly once.
const (
	EscalationLevelNone        = 0
	EscalationLevelApproaching = 1
	EscalationLevelBreached    = 2
)

// LegState derives the state for one leg at a point in time. Completion is
// terminal regardless of the due date; a nil due date means no SLA applies.
func LegState(dueAt *time.Time, completed bool, priority TicketPriority, now time.Time) LegStatus {
	if completed {
		return LegStatusCompleted
	}
	if dueAt == nil {
		return LegStatusNoSla
	}
	if now.After(*dueAt) {
		return LegStatusBreached
	}
	if dueAt.Sub(now) <= priority.WarningThreshold() {
		return LegStatusApproaching
	}
	return LegStatusOnTrack
}

// EscalationLevelFor maps a non-terminal leg status to the escalation level
// that must have fired once the status is reached.
func EscalationLevelFor(status LegStatus) int {
	switch status {
	case LegStatusApproaching:
		return EscalationLevelApproaching
	case LegStatusBreached:
		return EscalationLevelBreached
	default:
		return EscalationLevelNone
	}
}

// StatusForEscalationLevel is the inverse of EscalationLevelFor, used to name
// the state a leg was last alerted at.
func StatusForEscalationLevel(level int) LegStatus {
	switch level {
	case EscalationLevelApproaching:
		return LegStatusApproaching
	case EscalationLevelBreached:
		return LegStatusBreached
	default:
		return LegStatusOnTrack
	}
}

// SlaCalculation is one entry in the append-only deadline audit trail. Rows
// are never edited after insert except to flip IsCurrent to false and to
// advance the escalation bookkeeping.
type SlaCalculation struct {
	ID            string
	TicketID      string
	ContractID    *string
	TemplateID    *string
	CalendarID    *string
	Priority      TicketPriority
	ResponseDueAt *time.Time
	SolutionDueAt *time.Time
	Reason        RecalcReason
	IsCurrent     bool

	ResponseEscalationLevel int
	SolutionEscalationLevel int
	LastAlertSent           *time.Time

	CalculatedAt time.Time
}

// EscalationLevel returns the stored alert level for a leg.
func (c *SlaCalculation) EscalationLevel(leg Leg) int {
	if leg == LegSolution {
		return c.SolutionEscalationLevel
	}
	return c.ResponseEscalationLevel
}

// DueAt returns the due date for a leg.
func (c *SlaCalculation) DueAt(leg Leg) *time.Time {
	if leg == LegSolution {
		return c.SolutionDueAt
	}
	return c.ResponseDueAt
}
