package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/ticket-agency/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// ListOwnedUnsold returns the agent's unsold tickets in creation order.
func (r *TicketRepository) ListOwnedUnsold(ctx context.Context, agentID string) ([]domain.Ticket, error) {
	const query = `
SELECT id, created_at, owner_id, sold
FROM tickets
WHERE owner_id = $1 AND sold = FALSE
ORDER BY created_at ASC`

	rows, err := r.query(ctx, query, agentID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list owned tickets: %w", err)
	}
	return scanTickets(rows, "owned tickets")
}

// SelectUnownedForUpdate locks and returns up to limit unowned, unsold
// tickets in creation order. Rows locked by a concurrent transaction are
// skipped rather than waited on, so concurrent claims never overlap and
// never block each other. Must run inside WithTx.
func (r *TicketRepository) SelectUnownedForUpdate(ctx context.Context, limit int) ([]domain.Ticket, error) {
	const query = `
SELECT id, created_at, owner_id, sold
FROM tickets
WHERE owner_id IS NULL AND sold = FALSE
ORDER BY created_at ASC
LIMIT $1
FOR UPDATE SKIP LOCKED`

	rows, err := r.query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select unowned tickets: %w", err)
	}
	return scanTickets(rows, "unowned tickets")
}

// AssignOwner sets the owner on the given tickets. The caller must hold
// row locks on them (SelectUnownedForUpdate) within the same transaction.
func (r *TicketRepository) AssignOwner(ctx context.Context, agentID string, ticketIDs []string) error {
	if len(ticketIDs) == 0 {
		return nil
	}

	const stmt = `UPDATE tickets SET owner_id = $1 WHERE id = ANY($2)`

	tag, err := r.exec(ctx, stmt, agentID, ticketIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("assign owner: %w", err)
	}
	if int(tag.RowsAffected()) != len(ticketIDs) {
		return fmt.Errorf("assign owner: expected %d rows, updated %d", len(ticketIDs), tag.RowsAffected())
	}
	return nil
}

// GetTicketForUpdate fetches one ticket under a row lock so a
// check-then-set sequence on it happens atomically.
func (r *TicketRepository) GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error) {
	const query = `
SELECT id, created_at, owner_id, sold
FROM tickets
WHERE id = $1
FOR UPDATE`

	t, err := scanTicket(r.queryRow(ctx, query, ticketID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// MarkSold flips the sold flag. The owner check happens in the service
// under the row lock; sold = FALSE in the predicate keeps the update a
// one-way transition even so.
func (r *TicketRepository) MarkSold(ctx context.Context, ticketID string) error {
	const stmt = `UPDATE tickets SET sold = TRUE WHERE id = $1 AND sold = FALSE`

	tag, err := r.exec(ctx, stmt, ticketID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("mark sold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketAlreadySold
	}
	return nil
}

func scanTickets(rows pgx.Rows, what string) ([]domain.Ticket, error) {
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var (
			t     domain.Ticket
			owner *string
		)
		if err := rows.Scan(&t.ID, &t.CreatedAt, &owner, &t.Sold); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		if owner != nil {
			t.OwnerID = *owner
		}
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, rows.Err())
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		t     domain.Ticket
		owner *string
	)
	if err := row.Scan(&t.ID, &t.CreatedAt, &owner, &t.Sold); err != nil {
		return domain.Ticket{}, err
	}
	if owner != nil {
		t.OwnerID = *owner
	}
	return t, nil
}

func (r *TicketRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *TicketRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
