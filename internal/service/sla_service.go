package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/sla"
	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

const maxRecalcAttempts = 3

// RecalcState tags the outcome of one recalculation attempt.
type RecalcState int

const (
	RecalcApplied RecalcState = iota
	RecalcStale
	RecalcRejected
)

// RecalcResult communicates the outcome of a recalculation attempt without
// exceptions-as-control-flow. Rejected carries the untouched current
// calculation, Stale means the writer lost the optimistic race.
type RecalcResult struct {
	State       RecalcState
	Calculation *domain.SlaCalculation
	Reason      string
}

// SlaService coordinates deadline computation and recalculation for tickets.
type SlaService struct {
	tickets      repository.TicketReader
	contracts    repository.ContractRepository
	templates    repository.TemplateRepository
	calendars    repository.CalendarRepository
	calculations repository.SlaCalculationRepository
	resolver     *sla.Resolver
	deadlines    *sla.DeadlineCalculator
	locks        persistence.TicketLocker
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	metrics      *observability.Metrics
	clock        func() time.Time
}

// SlaDependencies bundles collaborators for the SLA service.
type SlaDependencies struct {
	TicketReader    repository.TicketReader
	ContractRepo    repository.ContractRepository
	TemplateRepo    repository.TemplateRepository
	CalendarRepo    repository.CalendarRepository
	CalculationRepo repository.SlaCalculationRepository
	Locker          persistence.TicketLocker
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	Clock           func() time.Time
}

// NewSlaService constructs the service.
func NewSlaService(deps SlaDependencies) *SlaService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	locker := deps.Locker
	if locker == nil {
		locker = persistence.NewMemoryTicketLocker()
	}
	return &SlaService{
		tickets:      deps.TicketReader,
		contracts:    deps.ContractRepo,
		templates:    deps.TemplateRepo,
		calendars:    deps.CalendarRepo,
		calculations: deps.CalculationRepo,
		resolver:     sla.NewResolver(),
		deadlines:    sla.NewDeadlineCalculator(),
		locks:        locker,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		clock:        clock,
	}
}

// ComputeInitialSla resolves and stores the first calculation for a ticket.
// When no rule resolves, no row is written and nil is returned: the ticket
// simply has no SLA.
func (s *SlaService) ComputeInitialSla(ctx context.Context, ticketID string) (*domain.SlaCalculation, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	derived, err := s.deriveCalculation(ctx, ticket, ticket.CreatedAt, domain.RecalcReasonCreation)
	if err != nil {
		return nil, err
	}
	if derived == nil {
		s.logger.Info("no sla rule resolved for ticket",
			zap.String("ticket_id", ticket.ID),
			zap.String("priority", string(ticket.Priority)))
		return nil, nil
	}

	if err := s.calculations.InsertCurrent(ctx, derived, nil); err != nil {
		if errors.Is(err, repository.ErrStaleCalculation) {
			// Another caller already produced the initial calculation.
			return s.calculations.GetCurrentByTicket(ctx, ticket.ID)
		}
		return nil, err
	}
	s.recordCalculation(ctx, events.EventSlaCalculated, derived)
	return derived, nil
}

// Recalculate re-derives the current deadlines for a ticket. The baseline
// stays the original creation instant for every reason except reopen, where
// the clock restarts at the reopen time. Writers are serialized per ticket;
// a staleness loss is retried against the freshly inserted row.
func (s *SlaService) Recalculate(ctx context.Context, ticketID string, reason domain.RecalcReason) (*domain.SlaCalculation, error) {
	if !reason.Valid() {
		return nil, apperrors.NewValidationError("unknown recalculation reason", map[string]any{"reason": reason})
	}

	release, err := s.locks.Acquire(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewConflict("ticket recalculation lock unavailable", map[string]any{"ticket_id": ticketID})
	}
	defer release()

	for attempt := 0; attempt < maxRecalcAttempts; attempt++ {
		result, err := s.attemptRecalculate(ctx, ticketID, reason)
		if err != nil {
			return nil, err
		}
		switch result.State {
		case RecalcApplied:
			s.recordCalculation(ctx, events.EventSlaRecalculated, result.Calculation)
			return result.Calculation, nil
		case RecalcRejected:
			s.logger.Debug("recalculation rejected",
				zap.String("ticket_id", ticketID),
				zap.String("reason", result.Reason))
			return result.Calculation, nil
		case RecalcStale:
			if s.metrics != nil {
				s.metrics.RecalcConflictsTotal.Inc()
			}
			continue
		}
	}
	return nil, apperrors.NewConflict("ticket recalculation kept losing to concurrent writers", map[string]any{"ticket_id": ticketID})
}

func (s *SlaService) attemptRecalculate(ctx context.Context, ticketID string, reason domain.RecalcReason) (RecalcResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RecalcResult{}, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return RecalcResult{}, err
	}

	current, err := s.calculations.GetCurrentByTicket(ctx, ticket.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return RecalcResult{}, err
	}

	// Completed deadlines are historical facts, not subject to re-derivation.
	if ticket.FullyCompleted() {
		return RecalcResult{State: RecalcRejected, Calculation: current, Reason: "ticket completed on both legs"}, nil
	}

	baseline := ticket.CreatedAt
	if reason == domain.RecalcReasonReopen {
		baseline = s.clock()
	}
	derived, err := s.deriveCalculation(ctx, ticket, baseline, reason)
	if err != nil {
		return RecalcResult{}, err
	}
	if derived == nil {
		// Rules no longer resolve: record the no-SLA state so the audit
		// trail explains why deadlines disappeared.
		derived = &domain.SlaCalculation{
			TicketID: ticket.ID,
			Priority: ticket.Priority,
			Reason:   reason,
		}
		if ticket.ContractID != nil {
			derived.ContractID = ticket.ContractID
		}
	}

	var previousID *string
	if current != nil {
		previousID = &current.ID
	}
	if err := s.calculations.InsertCurrent(ctx, derived, previousID); err != nil {
		if errors.Is(err, repository.ErrStaleCalculation) {
			return RecalcResult{State: RecalcStale}, nil
		}
		return RecalcResult{}, err
	}
	return RecalcResult{State: RecalcApplied, Calculation: derived}, nil
}

// deriveCalculation resolves the budget and computes due dates from the
// baseline. Returns nil when no rule resolves.
func (s *SlaService) deriveCalculation(ctx context.Context, ticket *domain.Ticket, baseline time.Time, reason domain.RecalcReason) (*domain.SlaCalculation, error) {
	if ticket.ContractID == nil {
		return nil, nil
	}
	contract, err := s.contracts.GetByID(ctx, *ticket.ContractID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	template, err := s.templates.GetByID(ctx, contract.TemplateID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	budget, err := s.resolver.Resolve(contract, template, ticket.Priority)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"contract_id": contract.ID})
	}
	if budget == nil {
		return nil, nil
	}

	calendar, err := s.calendars.GetByID(ctx, contract.CalendarID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("contract references unknown calendar", map[string]any{"calendar_id": contract.CalendarID})
		}
		return nil, err
	}

	dueDates, err := s.deadlines.ComputeDueDates(baseline, calendar, budget)
	if err != nil {
		return nil, err
	}

	return &domain.SlaCalculation{
		TicketID:      ticket.ID,
		ContractID:    &contract.ID,
		TemplateID:    &contract.TemplateID,
		CalendarID:    &contract.CalendarID,
		Priority:      ticket.Priority,
		ResponseDueAt: dueDates.ResponseDueAt,
		SolutionDueAt: dueDates.SolutionDueAt,
		Reason:        reason,
	}, nil
}

// SlaStatus is the externally visible per-ticket view.
type SlaStatus struct {
	TicketID             string
	ResponseStatus       domain.LegStatus
	SolutionStatus       domain.LegStatus
	ResponseDueAt        *time.Time
	SolutionDueAt        *time.Time
	TimeRemainingMinutes *int
}

// GetCurrentStatus derives the live leg states for a ticket. A ticket with
// no current calculation, or one with null due dates, reports no SLA.
func (s *SlaService) GetCurrentStatus(ctx context.Context, ticketID string) (*SlaStatus, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}

	status := &SlaStatus{
		TicketID:       ticket.ID,
		ResponseStatus: domain.LegStatusNoSla,
		SolutionStatus: domain.LegStatusNoSla,
	}

	current, err := s.calculations.GetCurrentByTicket(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return status, nil
		}
		return nil, err
	}

	now := s.clock()
	status.ResponseDueAt = current.ResponseDueAt
	status.SolutionDueAt = current.SolutionDueAt
	status.ResponseStatus = domain.LegState(current.ResponseDueAt, ticket.ResponseCompleted(), current.Priority, now)
	status.SolutionStatus = domain.LegState(current.SolutionDueAt, ticket.SolutionCompleted(), current.Priority, now)
	status.TimeRemainingMinutes = timeRemaining(ticket, current, now)
	return status, nil
}

// ListHistory returns the append-only audit trail, newest first.
func (s *SlaService) ListHistory(ctx context.Context, ticketID string) ([]domain.SlaCalculation, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return s.calculations.ListByTicket(ctx, ticketID)
}

// timeRemaining is the minutes until the nearest pending due date, negative
// once that deadline is past. Nil when every leg is completed or has no SLA.
func timeRemaining(ticket *domain.Ticket, calc *domain.SlaCalculation, now time.Time) *int {
	var nearest *time.Time
	if !ticket.ResponseCompleted() && calc.ResponseDueAt != nil {
		nearest = calc.ResponseDueAt
	}
	if !ticket.SolutionCompleted() && calc.SolutionDueAt != nil {
		if nearest == nil || calc.SolutionDueAt.Before(*nearest) {
			nearest = calc.SolutionDueAt
		}
	}
	if nearest == nil {
		return nil
	}
	minutes := int(nearest.Sub(now) / time.Minute)
	return &minutes
}

func (s *SlaService) recordCalculation(ctx context.Context, eventType events.EventType, calc *domain.SlaCalculation) {
	if s.metrics != nil {
		s.metrics.CalculationsTotal.WithLabelValues(string(calc.Reason)).Inc()
	}
	s.publishEvent(ctx, events.Event{
		Type:     eventType,
		TicketID: calc.TicketID,
		Payload: events.SlaCalculatedPayload{
			CalculationID: calc.ID,
			Priority:      calc.Priority,
			Reason:        calc.Reason,
			ResponseDueAt: calc.ResponseDueAt,
			SolutionDueAt: calc.SolutionDueAt,
		},
	})
}

func (s *SlaService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
