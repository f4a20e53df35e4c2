package access

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Desk is the role-scoped entry point used by every area. Each call checks
// the principal's capability before reaching the managers.
type Desk struct {
	tickets *service.TicketService
	users   *service.UserService
	logger  *zap.Logger
	// scopeCustomers limits customers to tickets they filed.
	scopeCustomers bool
}

// DeskDependencies bundles collaborators for the desk.
type DeskDependencies struct {
	Tickets              *service.TicketService
	Users                *service.UserService
	Logger               *zap.Logger
	ScopeCustomerTickets bool
}

// NewDesk builds the façade.
func NewDesk(deps DeskDependencies) *Desk {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desk{
		tickets:        deps.Tickets,
		users:          deps.Users,
		logger:         logger,
		scopeCustomers: deps.ScopeCustomerTickets,
	}
}

// CreateTicketRequest is the customer payload; the creator comes from the principal.
type CreateTicketRequest struct {
	Issue    string
	Category *string
}

func (d *Desk) authorize(ctx context.Context, principal *domain.Principal, capability Capability) (context.Context, error) {
	if err := Authorize(principal, capability); err != nil {
		if principal != nil {
			d.logger.Warn("capability denied",
				zap.String("user_id", principal.UserID),
				zap.String("role", string(principal.Role)),
				zap.String("capability", string(capability)))
		}
		return ctx, err
	}
	return domain.WithPrincipal(ctx, principal), nil
}

func (d *Desk) scoped(principal *domain.Principal) bool {
	return d.scopeCustomers && principal.Is(domain.RoleCustomer)
}

func ownerGuard(principal *domain.Principal) service.TicketGuard {
	return func(ticket *domain.Ticket) error {
		if ticket.CreatedBy != principal.UserID {
			return apperrors.NewForbidden("ticket belongs to another customer")
		}
		return nil
	}
}

// ListTickets returns the tickets visible to principal.
func (d *Desk) ListTickets(ctx context.Context, principal *domain.Principal) ([]domain.Ticket, error) {
	ctx, err := d.authorize(ctx, principal, CapListTickets)
	if err != nil {
		return nil, err
	}
	if d.scoped(principal) {
		return d.tickets.ListByCreator(ctx, principal.UserID)
	}
	return d.tickets.ListAll(ctx)
}

// GetTicket returns one ticket. A scoped customer asking for someone
// else's ticket gets NotFound so ids of other customers do not leak.
func (d *Desk) GetTicket(ctx context.Context, principal *domain.Principal, id string) (*domain.Ticket, error) {
	ctx, err := d.authorize(ctx, principal, CapViewTicket)
	if err != nil {
		return nil, err
	}
	ticket, err := d.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.scoped(principal) && ticket.CreatedBy != principal.UserID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

// CreateTicket files a ticket on behalf of the principal.
func (d *Desk) CreateTicket(ctx context.Context, principal *domain.Principal, req CreateTicketRequest) (*domain.Ticket, error) {
	ctx, err := d.authorize(ctx, principal, CapCreateTicket)
	if err != nil {
		return nil, err
	}
	return d.tickets.Create(ctx, service.TicketCreateInput{
		Issue:     req.Issue,
		Category:  req.Category,
		CreatedBy: principal.UserID,
	})
}

// DeleteTicket removes a ticket. Unknown ids succeed silently.
func (d *Desk) DeleteTicket(ctx context.Context, principal *domain.Principal, id string) error {
	ctx, err := d.authorize(ctx, principal, CapDeleteTicket)
	if err != nil {
		return err
	}
	if d.scoped(principal) {
		return d.tickets.Delete(ctx, id, ownerGuard(principal))
	}
	return d.tickets.Delete(ctx, id)
}

// UpdateTicketStatus applies the agent status edit.
func (d *Desk) UpdateTicketStatus(ctx context.Context, principal *domain.Principal, pathID string, update service.TicketStatusUpdate) (*domain.Ticket, error) {
	ctx, err := d.authorize(ctx, principal, CapUpdateTicketStatus)
	if err != nil {
		return nil, err
	}
	return d.tickets.UpdateStatus(ctx, pathID, update)
}

// ListUsers returns the directory.
func (d *Desk) ListUsers(ctx context.Context, principal *domain.Principal) ([]domain.User, error) {
	ctx, err := d.authorize(ctx, principal, CapListUsers)
	if err != nil {
		return nil, err
	}
	return d.users.ListAll(ctx)
}

// CreateUser adds an account of any role.
func (d *Desk) CreateUser(ctx context.Context, principal *domain.Principal, input service.UserCreateInput) (*domain.User, error) {
	ctx, err := d.authorize(ctx, principal, CapCreateUser)
	if err != nil {
		return nil, err
	}
	return d.users.Create(ctx, input)
}
