package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketing-system/internal/domain"
)

// TicketHistoryRepository is the append-only audit trail of ticket changes.
// Entries reference the ticket row id, never the public ticket_id.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketRowID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

const historyColumns = `id, ticket_id, changed_by_id, change_type, old_value, new_value, created_at`

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO ticket_history (ticket_id, changed_by_id, change_type, old_value, new_value)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		entry.TicketID, entry.ChangedByID, entry.ChangeType, entry.OldValue, entry.NewValue)
	return mapError(row.Scan(&entry.ID, &entry.CreatedAt))
}

// ListByTicket returns entries oldest first.
func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketRowID string) ([]domain.TicketHistory, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+historyColumns+` FROM ticket_history
		 WHERE ticket_id = $1
		 ORDER BY created_at, id`, ticketRowID)
	if err != nil {
		return nil, mapError(err)
	}
	entries, err := pgx.CollectRows(rows, scanHistory)
	if err != nil {
		return nil, mapError(err)
	}
	return entries, nil
}

func scanHistory(row pgx.CollectableRow) (domain.TicketHistory, error) {
	var entry domain.TicketHistory
	err := row.Scan(
		&entry.ID,
		&entry.TicketID,
		&entry.ChangedByID,
		&entry.ChangeType,
		&entry.OldValue,
		&entry.NewValue,
		&entry.CreatedAt,
	)
	return entry, err
}
