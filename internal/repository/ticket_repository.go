package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// TicketReader exposes the ticket fields the engine consumes. Tickets are
// owned and mutated by the surrounding helpdesk system.
type TicketReader interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
}

type ticketReader struct {
	pool *pgxpool.Pool
}

// NewTicketReader instantiates the reader.
func NewTicketReader(pool *pgxpool.Pool) TicketReader {
	return &ticketReader{pool: pool}
}

func (r *ticketReader) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, created_at, priority, status, contract_id, first_response_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.CreatedAt,
		&ticket.Priority,
		&ticket.Status,
		&ticket.ContractID,
		&ticket.FirstResponseAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
