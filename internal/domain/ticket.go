package domain

import "time"

// Ticket is a unit of sellable inventory. An empty OwnerID means the
// ticket sits in the shared unassigned pool.
type Ticket struct {
	ID        string
	CreatedAt time.Time
	OwnerID   string
	Sold      bool
}

// OwnedBy reports whether the ticket is currently assigned to the agent.
func (t Ticket) OwnedBy(agentID string) bool {
	return t.OwnerID != "" && t.OwnerID == agentID
}
