package domain

import (
	"fmt"
	"time"
)

// SlaRule binds a priority to response and solution budgets in minutes.
type SlaRule struct {
	Priority        TicketPriority
	ResponseMinutes int
	SolutionMinutes int
}

// SlaTemplate is a named, reusable rule set. At most one rule may exist per
// priority.
type SlaTemplate struct {
	ID        string
	Name      string
	Rules     []SlaRule
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks rule sanity and rejects duplicate priorities.
func (t *SlaTemplate) Validate() error {
	seen := map[TicketPriority]bool{}
	for _, rule := range t.Rules {
		if !rule.Priority.Valid() {
			return fmt.Errorf("unknown priority %q", rule.Priority)
		}
		if rule.ResponseMinutes <= 0 || rule.SolutionMinutes <= 0 {
			return fmt.Errorf("budgets for priority %q must be positive", rule.Priority)
		}
		if seen[rule.Priority] {
			return fmt.Errorf("duplicate rule for priority %q", rule.Priority)
		}
		seen[rule.Priority] = true
	}
	return nil
}

// Contract assigns a template and calendar to a customer agreement, with
// optional per-priority override rules that take precedence over the
// template's rules.
type Contract struct {
	ID         string
	TemplateID string
	CalendarID string
	Overrides  []SlaRule
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SlaBudget is the resolved time budget for both legs.
type SlaBudget struct {
	ResponseMinutes int
	SolutionMinutes int
}
