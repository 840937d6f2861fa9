package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/ticket-agency/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	const stmt = `
INSERT INTO tickets (id, created_at, owner_id, sold)
VALUES ($1, $2, NULL, FALSE)`

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(stmt, t.ID, t.CreatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range tickets {
		if _, err := results.Exec(); err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("create ticket: %w", err)
		}
	}
	return nil
}

func (r *AdminRepository) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
SELECT id, created_at, owner_id, sold
FROM tickets
ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return scanTickets(rows, "tickets")
}
