package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusInProgress TicketStatus = "InProgress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// Ticket is a support request filed by a user.
type Ticket struct {
	ID              string
	Issue           string
	Status          TicketStatus
	Category        *string
	CreatedBy       string
	CreatedDate     time.Time
	LastUpdatedDate *time.Time
}

// Key returns the primary key used by the entity store.
func (t Ticket) Key() string { return t.ID }

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusOpen, TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:   {TicketStatusInProgress, TicketStatusClosed},
	TicketStatusClosed:     {},
}

// Valid reports whether the status belongs to the lifecycle vocabulary.
func (s TicketStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are allowed.
func (s TicketStatus) Terminal() bool {
	return s.Valid() && len(allowedTransitions[s]) == 0
}

// CanTransition reports whether a ticket in current may move to next.
// Re-applying a non-terminal status is allowed.
func CanTransition(current, next TicketStatus) bool {
	if !current.Valid() || !next.Valid() {
		return false
	}
	if current == next {
		return !current.Terminal()
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TicketStatuses lists the vocabulary in lifecycle order.
func TicketStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed}
}
