package app

import (
	"context"

	"github.com/cimillas/ticket-agency/internal/domain"
)

type SaleRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketForUpdate(ctx context.Context, ticketID string) (domain.Ticket, error)
	MarkSold(ctx context.Context, ticketID string) error
}

type SaleService struct {
	repo SaleRepository
}

func NewSaleService(repo SaleRepository) *SaleService {
	return &SaleService{repo: repo}
}

// Sell marks a ticket as sold on behalf of its owning agent.
//
// The ownership and sold checks run under a row lock so that two
// concurrent sales of the same ticket cannot both pass the check; the
// loser observes the committed sold flag and fails with
// ErrTicketAlreadySold. Ownership is never rewritten on this path.
func (s *SaleService) Sell(ctx context.Context, agentID, ticketID string) (domain.Ticket, error) {
	if agentID == "" {
		return domain.Ticket{}, domain.ErrAgentIDRequired
	}

	var result domain.Ticket

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.repo.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		if !ticket.OwnedBy(agentID) {
			return domain.ErrNotOwner
		}
		if ticket.Sold {
			return domain.ErrTicketAlreadySold
		}

		if err := s.repo.MarkSold(txCtx, ticketID); err != nil {
			return err
		}

		ticket.Sold = true
		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return result, nil
}
