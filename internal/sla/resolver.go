// Package sla holds the pure SLA computation pieces: rule resolution and
// business-time deadline arithmetic. Everything here is stateless and safe
// for concurrent use.
package sla

import (
	"fmt"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// Resolver maps a contract / template rule set and a priority to a time
// budget. A contract override wins over the assigned template's rule for the
// same priority. No matching rule is a normal nil outcome, not an error.
type Resolver struct{}

// NewResolver constructs a resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the budget for the priority, or nil when no SLA applies.
// Duplicate rules for one priority are a configuration error and are never
// silently picked among.
func (r *Resolver) Resolve(contract *domain.Contract, template *domain.SlaTemplate, priority domain.TicketPriority) (*domain.SlaBudget, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("unknown priority %q", priority)
	}
	if contract != nil {
		budget, err := matchRule(contract.Overrides, priority, "contract "+contract.ID)
		if err != nil {
			return nil, err
		}
		if budget != nil {
			return budget, nil
		}
	}
	if template != nil {
		budget, err := matchRule(template.Rules, priority, "template "+template.ID)
		if err != nil {
			return nil, err
		}
		if budget != nil {
			return budget, nil
		}
	}
	return nil, nil
}

func matchRule(rules []domain.SlaRule, priority domain.TicketPriority, source string) (*domain.SlaBudget, error) {
	var found *domain.SlaBudget
	for _, rule := range rules {
		if rule.Priority != priority {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("duplicate rule for priority %q in %s", priority, source)
		}
		found = &domain.SlaBudget{
			ResponseMinutes: rule.ResponseMinutes,
			SolutionMinutes: rule.SolutionMinutes,
		}
	}
	return found, nil
}
