package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cimillas/ticket-agency/internal/domain"
)

const agentIDHeader = "X-Agent-ID"

// TicketAllocator is the minimal interface needed to assign tickets.
type TicketAllocator interface {
	Allocate(ctx context.Context, agentID string) ([]domain.Ticket, error)
}

// HandleAssignTickets returns an HTTP handler that tops up and returns
// the requesting agent's ticket batch.
func HandleAssignTickets(svc TicketAllocator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		agentID := r.Header.Get(agentIDHeader)
		if agentID == "" {
			writeError(w, http.StatusBadRequest, codeAgentIDRequired, domain.ErrAgentIDRequired.Error())
			return
		}

		tickets, err := svc.Allocate(r.Context(), agentID)
		if err != nil {
			switch err {
			case domain.ErrAgentIDRequired:
				writeError(w, http.StatusBadRequest, codeAgentIDRequired, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeStoreError(w)
			}
			return
		}

		ids := make([]string, 0, len(tickets))
		for _, t := range tickets {
			ids = append(ids, t.ID)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(assignTicketsResponse{AssignedTickets: ids})
	}
}

type assignTicketsResponse struct {
	AssignedTickets []string `json:"assigned_tickets"`
}
