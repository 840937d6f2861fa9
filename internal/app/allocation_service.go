package app

import (
	"context"

	"github.com/cimillas/ticket-agency/internal/domain"
)

type TicketRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ListOwnedUnsold(ctx context.Context, agentID string) ([]domain.Ticket, error)
	SelectUnownedForUpdate(ctx context.Context, limit int) ([]domain.Ticket, error)
	AssignOwner(ctx context.Context, agentID string, ticketIDs []string) error
}

type AllocationService struct {
	repo  TicketRepository
	quota int
}

// defaultQuota is the maximum number of unsold tickets an agent may
// hold at once.
const defaultQuota = 15

func NewAllocationService(repo TicketRepository, opts ...AllocationServiceOption) *AllocationService {
	svc := &AllocationService{
		repo:  repo,
		quota: defaultQuota,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type AllocationServiceOption func(*AllocationService)

// WithQuota overrides the default per-agent ticket quota.
func WithQuota(n int) AllocationServiceOption {
	return func(s *AllocationService) {
		if n > 0 {
			s.quota = n
		}
	}
}

// Allocate returns the agent's batch of unsold tickets, topping it up
// from the unassigned pool when the agent holds fewer than the quota.
//
// Tickets already held come first, then newly claimed ones, each group
// in creation order. The claim runs in a single transaction using a
// locking read that skips rows locked by concurrent claims, so two
// agents allocating at the same time never receive the same ticket and
// never block each other. When the pool cannot cover the shortfall the
// result is simply shorter than the quota.
func (s *AllocationService) Allocate(ctx context.Context, agentID string) ([]domain.Ticket, error) {
	if agentID == "" {
		return nil, domain.ErrAgentIDRequired
	}

	held, err := s.repo.ListOwnedUnsold(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if len(held) >= s.quota {
		// Over-quota holdings (possible via administrative reassignment)
		// are truncated in the view, never reclaimed here.
		return held[:s.quota], nil
	}

	needed := s.quota - len(held)
	var claimed []domain.Ticket

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		candidates, err := s.repo.SelectUnownedForUpdate(txCtx, needed)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}

		ids := make([]string, 0, len(candidates))
		for _, t := range candidates {
			ids = append(ids, t.ID)
		}
		if err := s.repo.AssignOwner(txCtx, agentID, ids); err != nil {
			return err
		}

		claimed = make([]domain.Ticket, 0, len(candidates))
		for _, t := range candidates {
			t.OwnerID = agentID
			claimed = append(claimed, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return append(held, claimed...), nil
}
