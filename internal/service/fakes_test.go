package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
)

type fakeTicketReader struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
}

func newFakeTicketReader(tickets ...domain.Ticket) *fakeTicketReader {
	r := &fakeTicketReader{tickets: map[string]domain.Ticket{}}
	for _, t := range tickets {
		r.tickets[t.ID] = t
	}
	return r
}

func (r *fakeTicketReader) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *fakeTicketReader) put(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ID] = ticket
}

type fakeContractRepo struct {
	contracts map[string]domain.Contract
}

func (r *fakeContractRepo) GetByID(_ context.Context, id string) (*domain.Contract, error) {
	contract, ok := r.contracts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := contract
	return &copied, nil
}

type fakeTemplateRepo struct {
	templates map[string]domain.SlaTemplate
}

func (r *fakeTemplateRepo) Create(_ context.Context, template *domain.SlaTemplate) error {
	if template.ID == "" {
		template.ID = fmt.Sprintf("tpl-%d", len(r.templates)+1)
	}
	r.templates[template.ID] = *template
	return nil
}

func (r *fakeTemplateRepo) GetByID(_ context.Context, id string) (*domain.SlaTemplate, error) {
	template, ok := r.templates[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := template
	return &copied, nil
}

type fakeCalendarRepo struct {
	calendars map[string]domain.BusinessCalendar
}

func (r *fakeCalendarRepo) Create(_ context.Context, calendar *domain.BusinessCalendar) error {
	if calendar.ID == "" {
		calendar.ID = fmt.Sprintf("cal-%d", len(r.calendars)+1)
	}
	r.calendars[calendar.ID] = *calendar
	return nil
}

func (r *fakeCalendarRepo) Update(_ context.Context, calendar *domain.BusinessCalendar) error {
	if _, ok := r.calendars[calendar.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.calendars[calendar.ID] = *calendar
	return nil
}

func (r *fakeCalendarRepo) GetByID(_ context.Context, id string) (*domain.BusinessCalendar, error) {
	calendar, ok := r.calendars[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := calendar
	return &copied, nil
}

// fakeCalculationRepo mirrors the optimistic semantics of the Postgres
// implementation: one current row per ticket, staleness detected against the
// previous current id, per-leg CAS on the escalation level.
type fakeCalculationRepo struct {
	mu      sync.Mutex
	rows    []*domain.SlaCalculation
	tickets *fakeTicketReader
	nextID  int
}

func newFakeCalculationRepo(tickets *fakeTicketReader) *fakeCalculationRepo {
	return &fakeCalculationRepo{tickets: tickets}
}

func (r *fakeCalculationRepo) currentLocked(ticketID string) *domain.SlaCalculation {
	for _, row := range r.rows {
		if row.TicketID == ticketID && row.IsCurrent {
			return row
		}
	}
	return nil
}

func (r *fakeCalculationRepo) InsertCurrent(_ context.Context, calc *domain.SlaCalculation, previousCurrentID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.currentLocked(calc.TicketID)
	if previousCurrentID == nil {
		if current != nil {
			return repository.ErrStaleCalculation
		}
	} else {
		if current == nil || current.ID != *previousCurrentID {
			return repository.ErrStaleCalculation
		}
		current.IsCurrent = false
	}

	r.nextID++
	calc.ID = fmt.Sprintf("calc-%d", r.nextID)
	calc.IsCurrent = true
	calc.CalculatedAt = time.Now()
	stored := *calc
	r.rows = append(r.rows, &stored)
	return nil
}

func (r *fakeCalculationRepo) GetCurrentByTicket(_ context.Context, ticketID string) (*domain.SlaCalculation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := r.currentLocked(ticketID)
	if current == nil {
		return nil, pgx.ErrNoRows
	}
	copied := *current
	return &copied, nil
}

func (r *fakeCalculationRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.SlaCalculation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.SlaCalculation
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].TicketID == ticketID {
			result = append(result, *r.rows[i])
		}
	}
	return result, nil
}

func (r *fakeCalculationRepo) ListInFlight(_ context.Context) ([]repository.CalculationWithTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []repository.CalculationWithTicket
	for _, row := range r.rows {
		if !row.IsCurrent {
			continue
		}
		if row.ResponseDueAt == nil && row.SolutionDueAt == nil {
			continue
		}
		ticket, ok := r.tickets.tickets[row.TicketID]
		if !ok {
			continue
		}
		if ticket.FullyCompleted() {
			continue
		}
		result = append(result, repository.CalculationWithTicket{Calculation: *row, Ticket: ticket})
	}
	return result, nil
}

func (r *fakeCalculationRepo) AdvanceEscalation(_ context.Context, calculationID string, leg domain.Leg, fromLevel, toLevel int, alertAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID != calculationID {
			continue
		}
		stored := row.ResponseEscalationLevel
		if leg == domain.LegSolution {
			stored = row.SolutionEscalationLevel
		}
		if stored != fromLevel {
			return false, nil
		}
		if leg == domain.LegSolution {
			row.SolutionEscalationLevel = toLevel
		} else {
			row.ResponseEscalationLevel = toLevel
		}
		at := alertAt
		row.LastAlertSent = &at
		return true, nil
	}
	return false, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
