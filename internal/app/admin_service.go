package app

import (
	"context"
	"time"

	"github.com/cimillas/ticket-agency/internal/clock"
	"github.com/cimillas/ticket-agency/internal/domain"
)

type AdminRepository interface {
	CreateTickets(ctx context.Context, tickets []domain.Ticket) error
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
}

type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:  repo,
		clock: clk,
	}
}

const maxBatchCreate = 1000

type CreateTicketsInput struct {
	Count int
}

// CreateTickets adds count unowned, unsold tickets to the pool.
func (s *AdminService) CreateTickets(ctx context.Context, in CreateTicketsInput) ([]domain.Ticket, error) {
	if in.Count <= 0 || in.Count > maxBatchCreate {
		return nil, domain.ErrInvalidCount
	}

	now := s.clock.Now()
	tickets := make([]domain.Ticket, 0, in.Count)
	for i := 0; i < in.Count; i++ {
		// Stagger timestamps within a batch so creation order stays a
		// strict allocation tie-break.
		tickets = append(tickets, domain.Ticket{
			ID:        newID(),
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}

	if err := s.repo.CreateTickets(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *AdminService) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.repo.ListTickets(ctx)
}
