package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/access"
	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// AdminHandler serves the Admin area: read tickets, manage users.
type AdminHandler struct {
	desk *access.Desk
}

// NewAdminHandler constructs handler.
func NewAdminHandler(desk *access.Desk) *AdminHandler {
	return &AdminHandler{desk: desk}
}

// ListTickets GET /admin/tickets.
func (h *AdminHandler) ListTickets(c *fiber.Ctx) error {
	return listTickets(c, h.desk)
}

// GetTicket GET /admin/tickets/:id.
func (h *AdminHandler) GetTicket(c *fiber.Ctx) error {
	return getTicket(c, h.desk)
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	users, err := h.desk.ListUsers(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserList(users))
}

// CreateUser POST /admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	user, err := h.desk.CreateUser(c.UserContext(), principal, service.UserCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewUserResponse(user))
}

func listTickets(c *fiber.Ctx, desk *access.Desk) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := desk.ListTickets(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketList(tickets))
}

func getTicket(c *fiber.Ctx, desk *access.Desk) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := desk.GetTicket(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(ticket))
}
