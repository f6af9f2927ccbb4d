package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// ErrStaleCalculation signals that the current calculation row changed under
// an optimistic writer. The caller must refetch and retry.
var ErrStaleCalculation = errors.New("current sla calculation is stale")

// CalculationWithTicket pairs a current calculation with its ticket read
// model for the escalation sweep.
type CalculationWithTicket struct {
	Calculation domain.SlaCalculation
	Ticket      domain.Ticket
}

// SlaCalculationRepository is the append-only store for deadline
// calculations. Rows are inserted, flipped to non-current, and have their
// escalation bookkeeping advanced; they are never deleted or rewritten.
type SlaCalculationRepository interface {
	// InsertCurrent appends calc as the new current row. previousCurrentID
	// carries the id of the row the caller read as current (nil when the
	// caller saw none); when the stored state no longer matches,
	// ErrStaleCalculation is returned and nothing is written.
	InsertCurrent(ctx context.Context, calc *domain.SlaCalculation, previousCurrentID *string) error
	GetCurrentByTicket(ctx context.Context, ticketID string) (*domain.SlaCalculation, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SlaCalculation, error)
	// ListInFlight returns current calculations whose tickets still have at
	// least one non-completed leg with a due date.
	ListInFlight(ctx context.Context) ([]CalculationWithTicket, error)
	// AdvanceEscalation raises the per-leg escalation level with an atomic
	// compare-and-set. It reports whether this caller won the transition.
	AdvanceEscalation(ctx context.Context, calculationID string, leg domain.Leg, fromLevel, toLevel int, alertAt time.Time) (bool, error)
}

type slaCalculationRepository struct {
	pool *pgxpool.Pool
}

// NewSlaCalculationRepository instantiates the repository.
func NewSlaCalculationRepository(pool *pgxpool.Pool) SlaCalculationRepository {
	return &slaCalculationRepository{pool: pool}
}

func (r *slaCalculationRepository) InsertCurrent(ctx context.Context, calc *domain.SlaCalculation, previousCurrentID *string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if previousCurrentID != nil {
		cmd, err := tx.Exec(ctx,
			`UPDATE sla_calculations SET is_current=false
             WHERE id=$1 AND ticket_id=$2 AND is_current=true`,
			*previousCurrentID, calc.TicketID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrStaleCalculation
		}
	} else {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM sla_calculations WHERE ticket_id=$1 AND is_current=true)`,
			calc.TicketID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			return ErrStaleCalculation
		}
	}

	const insert = `
        INSERT INTO sla_calculations
            (ticket_id, contract_id, template_id, calendar_id, priority,
             response_due_at, solution_due_at, reason, is_current,
             response_escalation_level, solution_escalation_level)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,true,0,0)
        RETURNING id, calculated_at`
	if err := tx.QueryRow(ctx, insert,
		calc.TicketID,
		calc.ContractID,
		calc.TemplateID,
		calc.CalendarID,
		calc.Priority,
		calc.ResponseDueAt,
		calc.SolutionDueAt,
		calc.Reason,
	).Scan(&calc.ID, &calc.CalculatedAt); err != nil {
		return err
	}
	calc.IsCurrent = true

	return tx.Commit(ctx)
}

const calculationColumns = `
        id, ticket_id, contract_id, template_id, calendar_id, priority,
        response_due_at, solution_due_at, reason, is_current,
        response_escalation_level, solution_escalation_level, last_alert_sent,
        calculated_at`

func (r *slaCalculationRepository) GetCurrentByTicket(ctx context.Context, ticketID string) (*domain.SlaCalculation, error) {
	query := `SELECT` + calculationColumns + `
        FROM sla_calculations WHERE ticket_id=$1 AND is_current=true`
	row := r.pool.QueryRow(ctx, query, ticketID)
	return scanCalculation(row)
}

func (r *slaCalculationRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SlaCalculation, error) {
	query := `SELECT` + calculationColumns + `
        FROM sla_calculations WHERE ticket_id=$1 ORDER BY calculated_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaCalculation
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *calc)
	}
	return result, rows.Err()
}

func (r *slaCalculationRepository) ListInFlight(ctx context.Context) ([]CalculationWithTicket, error) {
	const query = `
        SELECT c.id, c.ticket_id, c.contract_id, c.template_id, c.calendar_id, c.priority,
               c.response_due_at, c.solution_due_at, c.reason, c.is_current,
               c.response_escalation_level, c.solution_escalation_level, c.last_alert_sent,
               c.calculated_at,
               t.id, t.created_at, t.priority, t.status, t.contract_id, t.first_response_at
        FROM sla_calculations c
        JOIN tickets t ON t.id = c.ticket_id
        WHERE c.is_current = true
          AND (c.response_due_at IS NOT NULL OR c.solution_due_at IS NOT NULL)
          AND NOT (t.first_response_at IS NOT NULL AND t.status IN ('RESOLVED','CLOSED'))
        ORDER BY c.ticket_id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CalculationWithTicket
	for rows.Next() {
		var item CalculationWithTicket
		calc := &item.Calculation
		ticket := &item.Ticket
		if err := rows.Scan(
			&calc.ID,
			&calc.TicketID,
			&calc.ContractID,
			&calc.TemplateID,
			&calc.CalendarID,
			&calc.Priority,
			&calc.ResponseDueAt,
			&calc.SolutionDueAt,
			&calc.Reason,
			&calc.IsCurrent,
			&calc.ResponseEscalationLevel,
			&calc.SolutionEscalationLevel,
			&calc.LastAlertSent,
			&calc.CalculatedAt,
			&ticket.ID,
			&ticket.CreatedAt,
			&ticket.Priority,
			&ticket.Status,
			&ticket.ContractID,
			&ticket.FirstResponseAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *slaCalculationRepository) AdvanceEscalation(ctx context.Context, calculationID string, leg domain.Leg, fromLevel, toLevel int, alertAt time.Time) (bool, error) {
	column := "response_escalation_level"
	if leg == domain.LegSolution {
		column = "solution_escalation_level"
	}
	query := `UPDATE sla_calculations SET ` + column + `=$1, last_alert_sent=$2
        WHERE id=$3 AND ` + column + `=$4`
	cmd, err := r.pool.Exec(ctx, query, toLevel, alertAt, calculationID, fromLevel)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func scanCalculation(row pgx.Row) (*domain.SlaCalculation, error) {
	var calc domain.SlaCalculation
	if err := row.Scan(
		&calc.ID,
		&calc.TicketID,
		&calc.ContractID,
		&calc.TemplateID,
		&calc.CalendarID,
		&calc.Priority,
		&calc.ResponseDueAt,
		&calc.SolutionDueAt,
		&calc.Reason,
		&calc.IsCurrent,
		&calc.ResponseEscalationLevel,
		&calc.SolutionEscalationLevel,
		&calc.LastAlertSent,
		&calc.CalculatedAt,
	); err != nil {
		return nil, err
	}
	return &calc, nil
}
