package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cimillas/ticket-agency/internal/domain"
)

func TestAllocationService_Allocate(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	pool := func(n int) []domain.Ticket {
		tickets := make([]domain.Ticket, 0, n)
		for i := 0; i < n; i++ {
			tickets = append(tickets, domain.Ticket{
				ID:        ticketID(i),
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			})
		}
		return tickets
	}

	t.Run("empty agent claims full quota", func(t *testing.T) {
		repo := newFakeTicketRepo(pool(15))
		svc := NewAllocationService(repo)

		got, err := svc.Allocate(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 15 {
			t.Fatalf("expected 15 tickets, got %d", len(got))
		}
		for i, ticket := range got {
			if ticket.OwnerID != "agent-1" {
				t.Fatalf("expected ticket %d owned by agent-1, got %q", i, ticket.OwnerID)
			}
		}
		if repo.countOwnedUnsold("agent-1") != 15 {
			t.Fatalf("expected 15 tickets persisted for agent-1")
		}
	})

	t.Run("partial fulfillment when pool is short", func(t *testing.T) {
		repo := newFakeTicketRepo(pool(4))
		svc := NewAllocationService(repo)

		got, err := svc.Allocate(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("expected 4 tickets, got %d", len(got))
		}
	})

	t.Run("oldest tickets claimed first", func(t *testing.T) {
		repo := newFakeTicketRepo(pool(20))
		svc := NewAllocationService(repo, WithQuota(3))

		got, err := svc.Allocate(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := []string{ticketID(0), ticketID(1), ticketID(2)}
		for i, ticket := range got {
			if ticket.ID != want[i] {
				t.Fatalf("expected ticket %s at position %d, got %s", want[i], i, ticket.ID)
			}
		}
	})

	t.Run("held tickets come first then claims", func(t *testing.T) {
		tickets := pool(5)
		tickets[3].OwnerID = "agent-1"
		repo := newFakeTicketRepo(tickets)
		svc := NewAllocationService(repo, WithQuota(3))

		got, err := svc.Allocate(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := []string{ticketID(3), ticketID(0), ticketID(1)}
		for i, ticket := range got {
			if ticket.ID != want[i] {
				t.Fatalf("expected order %v, got %s at %d", want, ticket.ID, i)
			}
		}
	})

	t.Run("agent at quota gets no new claims", func(t *testing.T) {
		tickets := pool(10)
		for i := 0; i < 3; i++ {
			tickets[i].OwnerID = "agent-1"
		}
		repo := newFakeTicketRepo(tickets)
		svc := NewAllocationService(repo, WithQuota(3))

		got, err := svc.Allocate(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 tickets, got %d", len(got))
		}
		if repo.assignCalls != 0 {
			t.Fatalf("expected no assignment writes, got %d", repo.assignCalls)
		}

		again, err := svc.Allocate(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for i := range got {
			if again[i].ID != got[i].ID {
				t.Fatalf("expected identical result on repeat call")
			}
		}
	})

	t.Run("agent above quota sees truncated view", func(t *testing.T) {
		tickets := pool(6)
		for i := range tickets {
			tickets[i].OwnerID = "agent-1"
		}
		repo := newFakeTicketRepo(tickets)
		svc := NewAllocationService(repo, WithQuota(4))

		got, err := svc.Allocate(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 4 {
			t.Fatalf("expected truncation to 4, got %d", len(got))
		}
		// Excess tickets stay assigned; nothing is reclaimed.
		if repo.countOwnedUnsold("agent-1") != 6 {
			t.Fatalf("expected excess holdings untouched")
		}
	})

	t.Run("sold tickets do not count against quota", func(t *testing.T) {
		tickets := pool(5)
		tickets[0].OwnerID = "agent-1"
		tickets[0].Sold = true
		repo := newFakeTicketRepo(tickets)
		svc := NewAllocationService(repo, WithQuota(2))

		got, err := svc.Allocate(context.Background(), "agent-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 tickets, got %d", len(got))
		}
		for _, ticket := range got {
			if ticket.ID == ticketID(0) {
				t.Fatalf("sold ticket must not be returned")
			}
		}
	})

	t.Run("missing agent id", func(t *testing.T) {
		repo := newFakeTicketRepo(nil)
		svc := NewAllocationService(repo)

		_, err := svc.Allocate(context.Background(), "")
		if err != domain.ErrAgentIDRequired {
			t.Fatalf("expected ErrAgentIDRequired, got %v", err)
		}
	})

	t.Run("failed claim leaves no partial ownership", func(t *testing.T) {
		repo := newFakeTicketRepo(pool(5))
		repo.assignErr = errors.New("connection reset")
		svc := NewAllocationService(repo, WithQuota(5))

		_, err := svc.Allocate(context.Background(), "agent-1")
		if err == nil {
			t.Fatalf("expected error")
		}
		if repo.countOwnedUnsold("agent-1") != 0 {
			t.Fatalf("expected rollback to clear partial claims")
		}
	})
}

func TestAllocationService_ConcurrentAllocatesAreDisjoint(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	tickets := make([]domain.Ticket, 0, 30)
	for i := 0; i < 30; i++ {
		tickets = append(tickets, domain.Ticket{
			ID:        ticketID(i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	repo := newFakeTicketRepo(tickets)
	svc := NewAllocationService(repo)

	agents := []string{"agent-1", "agent-2"}
	results := make([][]domain.Ticket, len(agents))
	errs := make([]error, len(agents))

	var wg sync.WaitGroup
	for i, agent := range agents {
		wg.Add(1)
		go func(i int, agent string) {
			defer wg.Done()
			results[i], errs[i] = svc.Allocate(context.Background(), agent)
		}(i, agent)
	}
	wg.Wait()

	seen := make(map[string]string)
	for i, agent := range agents {
		if errs[i] != nil {
			t.Fatalf("allocate for %s: %v", agent, errs[i])
		}
		if len(results[i]) != 15 {
			t.Fatalf("expected 15 tickets for %s, got %d", agent, len(results[i]))
		}
		for _, ticket := range results[i] {
			if prev, ok := seen[ticket.ID]; ok {
				t.Fatalf("ticket %s assigned to both %s and %s", ticket.ID, prev, agent)
			}
			seen[ticket.ID] = agent
		}
	}
	if len(seen) != 30 {
		t.Fatalf("expected all 30 tickets claimed, got %d", len(seen))
	}
}

func ticketID(i int) string {
	return string(rune('a'+i/26)) + string(rune('a'+i%26)) + "-ticket"
}

// fakeTicketRepo emulates the store's transactional contract: WithTx
// serializes claim transactions (as skip-locked scans do for
// overlapping candidate sets) and restores state when the transaction
// function fails, mirroring rollback.
type fakeTicketRepo struct {
	mu          sync.Mutex
	tickets     []domain.Ticket
	assignCalls int
	assignErr   error
}

func newFakeTicketRepo(tickets []domain.Ticket) *fakeTicketRepo {
	sorted := append([]domain.Ticket{}, tickets...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return &fakeTicketRepo{tickets: sorted}
}

func (f *fakeTicketRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := append([]domain.Ticket{}, f.tickets...)
	if err := fn(ctx); err != nil {
		f.tickets = snapshot
		return err
	}
	return nil
}

func (f *fakeTicketRepo) ListOwnedUnsold(_ context.Context, agentID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var owned []domain.Ticket
	for _, t := range f.tickets {
		if t.OwnerID == agentID && !t.Sold {
			owned = append(owned, t)
		}
	}
	return owned, nil
}

func (f *fakeTicketRepo) SelectUnownedForUpdate(_ context.Context, limit int) ([]domain.Ticket, error) {
	var unowned []domain.Ticket
	for _, t := range f.tickets {
		if t.OwnerID == "" && !t.Sold {
			unowned = append(unowned, t)
			if len(unowned) == limit {
				break
			}
		}
	}
	return unowned, nil
}

func (f *fakeTicketRepo) AssignOwner(_ context.Context, agentID string, ticketIDs []string) error {
	f.assignCalls++
	if f.assignErr != nil {
		return f.assignErr
	}
	ids := make(map[string]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		ids[id] = struct{}{}
	}
	for i := range f.tickets {
		if _, ok := ids[f.tickets[i].ID]; ok {
			f.tickets[i].OwnerID = agentID
		}
	}
	return nil
}

func (f *fakeTicketRepo) countOwnedUnsold(agentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.tickets {
		if t.OwnerID == agentID && !t.Sold {
			n++
		}
	}
	return n
}
