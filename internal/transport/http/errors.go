package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeAgentIDRequired    = "agent_id_required"
	codeInvalidID          = "invalid_id"
	codeInvalidCount       = "invalid_count"
	codeTicketNotFound     = "ticket_not_found"
	codeForbidden          = "forbidden"
	codeAlreadySold        = "ticket_already_sold"
	codeStoreUnavailable   = "store_unavailable"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"store unavailable","code":"store_unavailable"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeStoreError covers everything that is not a definitive domain
// answer: lock or transaction infrastructure failures. Callers may
// retry; domain errors above must not be.
func writeStoreError(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "store temporarily unavailable")
}
