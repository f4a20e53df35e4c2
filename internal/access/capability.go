package access

import (
	"net/http"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Capability names one operation exposed through an area.
type Capability string

const (
	CapListTickets        Capability = "tickets.list"
	CapViewTicket         Capability = "tickets.view"
	CapCreateTicket       Capability = "tickets.create"
	CapDeleteTicket       Capability = "tickets.delete"
	CapUpdateTicketStatus Capability = "tickets.update_status"
	CapListUsers          Capability = "users.list"
	CapCreateUser         Capability = "users.create"
)

var allowedRoles = map[Capability][]domain.Role{
	CapListTickets:        {domain.RoleAdmin, domain.RoleCustomer, domain.RoleSupportAgent},
	CapViewTicket:         {domain.RoleAdmin, domain.RoleCustomer, domain.RoleSupportAgent},
	CapCreateTicket:       {domain.RoleCustomer},
	CapDeleteTicket:       {domain.RoleCustomer},
	CapUpdateTicketStatus: {domain.RoleSupportAgent},
	CapListUsers:          {domain.RoleAdmin},
	CapCreateUser:         {domain.RoleAdmin},
}

// Authorize checks principal.Role against the roles granted capability.
func Authorize(principal *domain.Principal, capability Capability) error {
	if principal == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	for _, role := range allowedRoles[capability] {
		if principal.Role == role {
			return nil
		}
	}
	return apperrors.NewDomainError(apperrors.CodeForbidden, "operation not permitted for role", http.StatusForbidden, map[string]any{
		"capability": capability,
		"role":       principal.Role,
	})
}
