package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload for the customer area.
type CreateTicketRequest struct {
	Issue    string  `json:"issue"`
	Category *string `json:"category"`
}

// UpdateTicketStatusRequest payload for the agent area. ID must repeat the
// ticket id from the path.
type UpdateTicketStatusRequest struct {
	ID     string              `json:"id"`
	Status domain.TicketStatus `json:"status"`
}

// TicketResponse represents a ticket in every area.
type TicketResponse struct {
	ID              string              `json:"id"`
	Issue           string              `json:"issue"`
	Status          domain.TicketStatus `json:"status"`
	Category        *string             `json:"category"`
	CreatedBy       string              `json:"created_by"`
	CreatedDate     time.Time           `json:"created_date"`
	LastUpdatedDate *time.Time          `json:"last_updated_date"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              ticket.ID,
		Issue:           ticket.Issue,
		Status:          ticket.Status,
		Category:        ticket.Category,
		CreatedBy:       ticket.CreatedBy,
		CreatedDate:     ticket.CreatedDate,
		LastUpdatedDate: ticket.LastUpdatedDate,
	}
}

// NewTicketList maps a slice; the result is never nil.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}
