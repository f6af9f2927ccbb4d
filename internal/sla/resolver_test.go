package sla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func TestResolveTemplateRule(t *testing.T) {
	resolver := NewResolver()
	template := &domain.SlaTemplate{ID: "tpl-1", Rules: []domain.SlaRule{
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 60, SolutionMinutes: 480},
	}}
	contract := &domain.Contract{ID: "c-1", TemplateID: "tpl-1"}

	budget, err := resolver.Resolve(contract, template, domain.TicketPriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, budget)
	assert.Equal(t, 60, budget.ResponseMinutes)
	assert.Equal(t, 480, budget.SolutionMinutes)
}

func TestResolveContractOverrideWins(t *testing.T) {
	resolver := NewResolver()
	template := &domain.SlaTemplate{ID: "tpl-1", Rules: []domain.SlaRule{
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 60, SolutionMinutes: 480},
	}}
	contract := &domain.Contract{ID: "c-1", Overrides: []domain.SlaRule{
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 30, SolutionMinutes: 240},
	}}

	budget, err := resolver.Resolve(contract, template, domain.TicketPriorityHigh)
	require.NoError(t, err)
	require.NotNil(t, budget)
	assert.Equal(t, 30, budget.ResponseMinutes)
	assert.Equal(t, 240, budget.SolutionMinutes)
}

func TestResolveFallsThroughToTemplate(t *testing.T) {
	resolver := NewResolver()
	template := &domain.SlaTemplate{ID: "tpl-1", Rules: []domain.SlaRule{
		{Priority: domain.TicketPriorityLow, ResponseMinutes: 480, SolutionMinutes: 2400},
	}}
	contract := &domain.Contract{ID: "c-1", Overrides: []domain.SlaRule{
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 30, SolutionMinutes: 240},
	}}

	budget, err := resolver.Resolve(contract, template, domain.TicketPriorityLow)
	require.NoError(t, err)
	require.NotNil(t, budget)
	assert.Equal(t, 480, budget.ResponseMinutes)
}

func TestResolveNoRuleIsNil(t *testing.T) {
	resolver := NewResolver()
	template := &domain.SlaTemplate{ID: "tpl-1", Rules: []domain.SlaRule{
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 60, SolutionMinutes: 480},
	}}

	budget, err := resolver.Resolve(nil, template, domain.TicketPriorityLow)
	require.NoError(t, err)
	assert.Nil(t, budget)

	budget, err = resolver.Resolve(nil, nil, domain.TicketPriorityLow)
	require.NoError(t, err)
	assert.Nil(t, budget)
}

func TestResolveDuplicateRuleIsError(t *testing.T) {
	resolver := NewResolver()
	template := &domain.SlaTemplate{ID: "tpl-1", Rules: []domain.SlaRule{
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 60, SolutionMinutes: 480},
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 30, SolutionMinutes: 240},
	}}

	_, err := resolver.Resolve(nil, template, domain.TicketPriorityHigh)
	assert.ErrorContains(t, err, "duplicate rule")

	contract := &domain.Contract{ID: "c-1", Overrides: []domain.SlaRule{
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 30, SolutionMinutes: 240},
		{Priority: domain.TicketPriorityHigh, ResponseMinutes: 15, SolutionMinutes: 120},
	}}
	_, err = resolver.Resolve(contract, nil, domain.TicketPriorityHigh)
	assert.ErrorContains(t, err, "duplicate rule")
}

func TestResolveUnknownPriority(t *testing.T) {
	resolver := NewResolver()
	_, err := resolver.Resolve(nil, nil, "URGENT")
	assert.Error(t, err)
}
