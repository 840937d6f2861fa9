package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cimillas/ticket-agency/internal/domain"
)

// TicketSeller is the minimal interface needed to sell a ticket.
type TicketSeller interface {
	Sell(ctx context.Context, agentID, ticketID string) (domain.Ticket, error)
}

// HandleSellTicket returns an HTTP handler for marking an owned ticket
// as sold.
func HandleSellTicket(svc TicketSeller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		ticketID, ok := parseSellTicketPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		agentID := r.Header.Get(agentIDHeader)
		if agentID == "" {
			writeError(w, http.StatusBadRequest, codeAgentIDRequired, domain.ErrAgentIDRequired.Error())
			return
		}

		ticket, err := svc.Sell(r.Context(), agentID, ticketID)
		if err != nil {
			switch err {
			case domain.ErrTicketNotFound:
				writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
			case domain.ErrInvalidID:
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case domain.ErrNotOwner:
				writeError(w, http.StatusForbidden, codeForbidden, err.Error())
			case domain.ErrTicketAlreadySold:
				writeError(w, http.StatusConflict, codeAlreadySold, err.Error())
			case domain.ErrAgentIDRequired:
				writeError(w, http.StatusBadRequest, codeAgentIDRequired, err.Error())
			default:
				writeStoreError(w)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(sellTicketResponse{
			ID:   ticket.ID,
			Sold: ticket.Sold,
		})
	}
}

func parseSellTicketPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 {
		return "", false
	}
	if parts[0] != "agent" || parts[1] != "tickets" || parts[3] != "sell" {
		return "", false
	}
	if parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

type sellTicketResponse struct {
	ID   string `json:"id"`
	Sold bool   `json:"sold"`
}
