package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// WarningThreshold returns how long before the due date a leg moves to
// APPROACHING for this priority.
func (p TicketPriority) WarningThreshold() time.Duration {
	switch p {
	case TicketPriorityCritical:
		return time.Hour
	case TicketPriorityHigh:
		return 2 * time.Hour
	case TicketPriorityLow:
		return 8 * time.Hour
	default:
		return 4 * time.Hour
	}
}

// Ticket is the read model the engine consumes. Tickets are owned by the
// surrounding helpdesk system; the engine only reads these fields and is
// notified of relevant mutations.
type Ticket struct {
	ID              string
	CreatedAt       time.Time
	Priority        TicketPriority
	Status          TicketStatus
	ContractID      *string
	FirstResponseAt *time.Time
}

// ResponseCompleted reports whether the response leg reached its terminal state.
func (t *Ticket) ResponseCompleted() bool {
	return t.FirstResponseAt != nil
}

// SolutionCompleted reports whether the solution leg reached its terminal state.
func (t *Ticket) SolutionCompleted() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// FullyCompleted reports whether both SLA legs are terminal.
func (t *Ticket) FullyCompleted() bool {
	return t.ResponseCompleted() && t.SolutionCompleted()
}
