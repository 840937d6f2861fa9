package domain

import "errors"

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrNotOwner          = errors.New("ticket not owned by agent")
	ErrTicketAlreadySold = errors.New("ticket already sold")
	ErrAgentIDRequired   = errors.New("agent id required")
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidCount      = errors.New("invalid count")
)
