package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/validation"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketService owns the ticket lifecycle.
type TicketService struct {
	tickets    repository.Repository[domain.Ticket]
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.Repository[domain.Ticket]
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Clock defaults to the current UTC time.
	Clock func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Issue     string
	Category  *string
	CreatedBy string
}

// TicketStatusUpdate is the agent edit payload; ID must match the path id.
type TicketStatusUpdate struct {
	ID     string
	Status domain.TicketStatus
}

// TicketGuard vetoes an operation on a loaded ticket.
type TicketGuard func(ticket *domain.Ticket) error

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = utcNow
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        clock,
	}
}

// ListAll returns every ticket.
func (s *TicketService) ListAll(ctx context.Context) (tickets []domain.Ticket, err error) {
	ctx, span := tracer.Start(ctx, "TicketService.ListAll")
	defer func() { endSpan(span, err) }()

	tickets, err = s.tickets.All(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	return tickets, nil
}

// ListByCreator returns the tickets filed by userID.
func (s *TicketService) ListByCreator(ctx context.Context, userID string) (tickets []domain.Ticket, err error) {
	ctx, span := tracer.Start(ctx, "TicketService.ListByCreator")
	defer func() { endSpan(span, err) }()

	tickets, err = s.tickets.Find(ctx, func(t domain.Ticket) bool { return t.CreatedBy == userID })
	if err != nil {
		return nil, storeError(err)
	}
	return tickets, nil
}

// GetByID returns a ticket or a NotFound error.
func (s *TicketService) GetByID(ctx context.Context, id string) (ticket *domain.Ticket, err error) {
	ctx, span := tracer.Start(ctx, "TicketService.GetByID")
	span.SetAttributes(attribute.String("ticket.id", id))
	defer func() { endSpan(span, err) }()

	ticket, err = s.tickets.Get(ctx, canonicalID(id))
	if err != nil {
		return nil, lookupError("ticket", id, err)
	}
	return ticket, nil
}

// Create files a new Open ticket.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (ticket *domain.Ticket, err error) {
	ctx, span := tracer.Start(ctx, "TicketService.Create")
	defer func() { endSpan(span, err) }()

	if err := validation.Validate(
		validation.Field{Name: "issue", Value: input.Issue, Rules: []validation.Rule{
			validation.Required("Issue is required."),
		}},
		validation.Field{Name: "created_by", Value: input.CreatedBy, Rules: []validation.Rule{
			validation.Required("Creator is required."),
		}},
	); err != nil {
		return nil, err
	}

	ticket = &domain.Ticket{
		ID:          uuid.NewString(),
		Issue:       strings.TrimSpace(input.Issue),
		Status:      domain.TicketStatusOpen,
		Category:    normalizeCategory(input.Category),
		CreatedBy:   input.CreatedBy,
		CreatedDate: s.now().UTC(),
	}

	uow := s.tickets.Begin()
	uow.Add(*ticket)
	if err := uow.Commit(ctx); err != nil {
		return nil, storeError(err)
	}
	span.SetAttributes(attribute.String("ticket.id", ticket.ID))

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("created_by", ticket.CreatedBy))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketCreated,
		SubjectID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			CreatedBy: ticket.CreatedBy,
			Category:  ticket.Category,
		},
	})
	return ticket, nil
}

// UpdateStatus moves a ticket to a new status. Only status and
// LastUpdatedDate change through this path.
func (s *TicketService) UpdateStatus(ctx context.Context, pathID string, update TicketStatusUpdate) (ticket *domain.Ticket, err error) {
	ctx, span := tracer.Start(ctx, "TicketService.UpdateStatus")
	span.SetAttributes(attribute.String("ticket.id", pathID), attribute.String("ticket.status", string(update.Status)))
	defer func() { endSpan(span, err) }()

	if canonicalID(pathID) != canonicalID(update.ID) {
		return nil, apperrors.NewMismatch(pathID, update.ID)
	}
	pathID = canonicalID(pathID)
	if err := validateStatus(update.Status); err != nil {
		return nil, err
	}

	ticket, err = s.tickets.Get(ctx, pathID)
	if err != nil {
		return nil, lookupError("ticket", pathID, err)
	}
	if !domain.CanTransition(ticket.Status, update.Status) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   update.Status,
		})
	}

	oldStatus := ticket.Status
	updatedAt := s.now().UTC()
	if updatedAt.Before(ticket.CreatedDate) {
		updatedAt = ticket.CreatedDate
	}
	ticket.Status = update.Status
	ticket.LastUpdatedDate = &updatedAt

	uow := s.tickets.Begin()
	uow.Update(*ticket)
	if err := uow.Commit(ctx); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, lookupError("ticket", pathID, err)
		}
		return nil, storeError(err)
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(ticket.Status)))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketStatusChanged,
		SubjectID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// Delete removes a ticket. Deleting an id with no record is a no-op.
// Guards run against the loaded ticket and abort the delete on error.
func (s *TicketService) Delete(ctx context.Context, id string, guards ...TicketGuard) (err error) {
	ctx, span := tracer.Start(ctx, "TicketService.Delete")
	span.SetAttributes(attribute.String("ticket.id", id))
	defer func() { endSpan(span, err) }()

	ticket, err := s.tickets.Get(ctx, canonicalID(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return storeError(err)
	}
	for _, guard := range guards {
		if err := guard(ticket); err != nil {
			return err
		}
	}

	uow := s.tickets.Begin()
	uow.Remove(*ticket)
	if err := uow.Commit(ctx); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return storeError(err)
	}

	s.logger.Info("ticket deleted", zap.String("ticket_id", ticket.ID))
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketDeleted,
		SubjectID: ticket.ID,
		Payload: events.TicketDeletedPayload{
			CreatedBy: ticket.CreatedBy,
			Status:    ticket.Status,
		},
	})
	return nil
}

func validateStatus(status domain.TicketStatus) error {
	allowed := make([]string, 0, 4)
	for _, s := range domain.TicketStatuses() {
		allowed = append(allowed, string(s))
	}
	return validation.Validate(validation.Field{Name: "status", Value: string(status), Rules: []validation.Rule{
		validation.Required("Status is required."),
		validation.OneOf("Status must be one of "+strings.Join(allowed, ", ")+".", allowed...),
	}})
}

// canonicalID returns the lowercase form of a UUID id. Other ids pass through.
func canonicalID(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return parsed.String()
}

func normalizeCategory(category *string) *string {
	if category == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*category)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
