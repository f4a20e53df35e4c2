package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/access"
	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// AgentHandler serves the SupportAgent area.
type AgentHandler struct {
	desk *access.Desk
}

// NewAgentHandler constructs handler.
func NewAgentHandler(desk *access.Desk) *AgentHandler {
	return &AgentHandler{desk: desk}
}

// ListTickets GET /agent/tickets.
func (h *AgentHandler) ListTickets(c *fiber.Ctx) error {
	return listTickets(c, h.desk)
}

// GetTicket GET /agent/tickets/:id.
func (h *AgentHandler) GetTicket(c *fiber.Ctx) error {
	return getTicket(c, h.desk)
}

// UpdateStatus PUT /agent/tickets/:id/status.
func (h *AgentHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.desk.UpdateTicketStatus(c.UserContext(), principal, c.Params("id"), service.TicketStatusUpdate{
		ID:     req.ID,
		Status: req.Status,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(ticket))
}
