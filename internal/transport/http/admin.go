package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cimillas/ticket-agency/internal/app"
	"github.com/cimillas/ticket-agency/internal/domain"
)

// AdminTicketService is the minimal interface needed for admin ticket
// endpoints.
type AdminTicketService interface {
	CreateTickets(ctx context.Context, in app.CreateTicketsInput) ([]domain.Ticket, error)
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
}

// HandleAdminTickets returns an HTTP handler for admin ticket
// creation/listing.
func HandleAdminTickets(svc AdminTicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			tickets, err := svc.ListTickets(r.Context())
			if err != nil {
				writeStoreError(w)
				return
			}
			resp := make([]ticketResponse, 0, len(tickets))
			for _, t := range tickets {
				resp = append(resp, newTicketResponse(t))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			count := 1
			if r.Body != nil {
				var req createTicketsRequest
				dec := json.NewDecoder(r.Body)
				dec.DisallowUnknownFields()
				switch err := dec.Decode(&req); {
				case errors.Is(err, io.EOF):
					// Empty body creates a single ticket.
				case err != nil:
					writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
					return
				default:
					count = req.Count
				}
			}

			tickets, err := svc.CreateTickets(r.Context(), app.CreateTicketsInput{Count: count})
			if err != nil {
				switch err {
				case domain.ErrInvalidCount:
					writeError(w, http.StatusBadRequest, codeInvalidCount, err.Error())
				default:
					writeStoreError(w)
				}
				return
			}

			resp := make([]ticketResponse, 0, len(tickets))
			for _, t := range tickets {
				resp = append(resp, newTicketResponse(t))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(resp)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type createTicketsRequest struct {
	Count int `json:"count"`
}

type ticketResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Sold      bool      `json:"sold"`
}

func newTicketResponse(t domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:        t.ID,
		CreatedAt: t.CreatedAt,
		OwnerID:   t.OwnerID,
		Sold:      t.Sold,
	}
}
