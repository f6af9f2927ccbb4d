package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
)

type escalationFixture struct {
	service      *EscalationService
	tickets      *fakeTicketReader
	calculations *fakeCalculationRepo
	dispatcher   *recordingDispatcher
}

func newEscalationFixture(t *testing.T, workers int) *escalationFixture {
	t.Helper()
	fixture := &escalationFixture{
		tickets:    newFakeTicketReader(),
		dispatcher: &recordingDispatcher{},
	}
	fixture.calculations = newFakeCalculationRepo(fixture.tickets)
	fixture.service = NewEscalationService(EscalationDependencies{
		CalculationRepo: fixture.calculations,
		Dispatcher:      fixture.dispatcher,
		Logger:          zap.NewNop(),
		Workers:         workers,
	})
	return fixture
}

func (f *escalationFixture) addTicket(t *testing.T, ticket domain.Ticket, responseDue, solutionDue *time.Time) *domain.SlaCalculation {
	t.Helper()
	f.tickets.put(ticket)
	calc := &domain.SlaCalculation{
		TicketID:      ticket.ID,
		Priority:      ticket.Priority,
		ResponseDueAt: responseDue,
		SolutionDueAt: solutionDue,
		Reason:        domain.RecalcReasonCreation,
	}
	require.NoError(t, f.calculations.InsertCurrent(context.Background(), calc, nil))
	return calc
}

func ts(t time.Time) *time.Time { return &t }

func TestSweepApproachingTransition(t *testing.T) {
	fixture := newEscalationFixture(t, 1)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	// High priority warns two hours out; the response due date is 30 minutes
	// away, the solution due date a full day.
	fixture.addTicket(t, domain.Ticket{
		ID: "t-1", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen,
		CreatedAt: now.Add(-time.Hour),
	}, ts(now.Add(30*time.Minute)), ts(now.Add(24*time.Hour)))

	swept, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, swept, 1)

	event := swept[0]
	assert.Equal(t, "t-1", event.TicketID)
	assert.Equal(t, domain.LegResponse, event.Leg)
	assert.Equal(t, domain.LegStatusOnTrack, event.OldStatus)
	assert.Equal(t, domain.LegStatusApproaching, event.NewStatus)
	assert.Equal(t, domain.EscalationLevelApproaching, event.Level)

	published := fixture.dispatcher.byType(events.EventSlaEscalation)
	assert.Len(t, published, 1)
}

func TestSweepIsIdempotent(t *testing.T) {
	fixture := newEscalationFixture(t, 1)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	fixture.addTicket(t, domain.Ticket{
		ID: "t-1", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen,
		CreatedAt: now.Add(-time.Hour),
	}, ts(now.Add(30*time.Minute)), ts(now.Add(24*time.Hour)))

	first, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, second, "the threshold crossing already alerted")
}

func TestSweepBreachSkipsIntermediateLevel(t *testing.T) {
	fixture := newEscalationFixture(t, 1)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	// The due date is already past and no approaching alert ever fired; the
	// sweep jumps straight to the breach level with a single event.
	fixture.addTicket(t, domain.Ticket{
		ID: "t-1", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen,
		CreatedAt: now.Add(-6 * time.Hour),
	}, ts(now.Add(-time.Hour)), ts(now.Add(24*time.Hour)))

	swept, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, domain.LegStatusBreached, swept[0].NewStatus)
	assert.Equal(t, domain.EscalationLevelBreached, swept[0].Level)
}

func TestSweepApproachingThenBreach(t *testing.T) {
	fixture := newEscalationFixture(t, 1)
	start := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	due := start.Add(30 * time.Minute)

	fixture.addTicket(t, domain.Ticket{
		ID: "t-1", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen,
		CreatedAt: start.Add(-time.Hour),
	}, ts(due), ts(due.Add(8*time.Hour)))

	swept, err := fixture.service.Sweep(context.Background(), start)
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, domain.LegStatusApproaching, swept[0].NewStatus)

	swept, err = fixture.service.Sweep(context.Background(), due.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, domain.LegStatusBreached, swept[0].NewStatus)
	assert.Equal(t, domain.LegStatusApproaching, swept[0].OldStatus)
}

func TestSweepSkipsCompletedResponseLeg(t *testing.T) {
	fixture := newEscalationFixture(t, 1)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	responded := now.Add(-time.Hour)

	// First response landed before the (now past) response due date. Only the
	// solution leg can still escalate.
	fixture.addTicket(t, domain.Ticket{
		ID: "t-1", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusInProgress,
		CreatedAt: now.Add(-3 * time.Hour), FirstResponseAt: &responded,
	}, ts(now.Add(-30*time.Minute)), ts(now.Add(time.Hour)))

	swept, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, domain.LegSolution, swept[0].Leg)
	assert.Equal(t, domain.LegStatusApproaching, swept[0].NewStatus)
}

func TestSweepExcludesFullyCompletedTickets(t *testing.T) {
	fixture := newEscalationFixture(t, 1)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	responded := now.Add(-2 * time.Hour)

	fixture.addTicket(t, domain.Ticket{
		ID: "t-1", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusResolved,
		CreatedAt: now.Add(-6 * time.Hour), FirstResponseAt: &responded,
	}, ts(now.Add(-time.Hour)), ts(now.Add(-time.Hour)))

	swept, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, swept)
}

func TestSweepSkipsLegWithoutDueDate(t *testing.T) {
	fixture := newEscalationFixture(t, 1)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	fixture.addTicket(t, domain.Ticket{
		ID: "t-1", Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen,
		CreatedAt: now.Add(-time.Hour),
	}, nil, ts(now.Add(-time.Minute)))

	swept, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, swept, 1)
	assert.Equal(t, domain.LegSolution, swept[0].Leg)
}

func TestSweepShardsAcrossWorkers(t *testing.T) {
	fixture := newEscalationFixture(t, 4)
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		fixture.addTicket(t, domain.Ticket{
			ID: "t-" + id, Priority: domain.TicketPriorityHigh, Status: domain.TicketStatusOpen,
			CreatedAt: now.Add(-time.Hour),
		}, ts(now.Add(-time.Minute)), ts(now.Add(24*time.Hour)))
	}

	swept, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Len(t, swept, 20)
	for _, event := range swept {
		assert.Equal(t, domain.LegStatusBreached, event.NewStatus)
	}

	// A concurrent second pass over the same instant changes nothing.
	again, err := fixture.service.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, again)
}
