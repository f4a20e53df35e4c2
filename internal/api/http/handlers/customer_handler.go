package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/access"
	"github.com/spec-kit/support-desk/internal/api/dto"
)

// CustomerHandler serves the Customer area.
type CustomerHandler struct {
	desk *access.Desk
}

// NewCustomerHandler constructs handler.
func NewCustomerHandler(desk *access.Desk) *CustomerHandler {
	return &CustomerHandler{desk: desk}
}

// ListTickets GET /customer/tickets.
func (h *CustomerHandler) ListTickets(c *fiber.Ctx) error {
	return listTickets(c, h.desk)
}

// GetTicket GET /customer/tickets/:id.
func (h *CustomerHandler) GetTicket(c *fiber.Ctx) error {
	return getTicket(c, h.desk)
}

// CreateTicket POST /customer/tickets.
func (h *CustomerHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.desk.CreateTicket(c.UserContext(), principal, access.CreateTicketRequest{
		Issue:    req.Issue,
		Category: req.Category,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewTicketResponse(ticket))
}

// DeleteTicket DELETE /customer/tickets/:id. Unknown ids answer 204 too.
func (h *CustomerHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.desk.DeleteTicket(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
