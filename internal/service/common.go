package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

var tracer = otel.Tracer("github.com/spec-kit/support-desk/internal/service")

func utcNow() time.Time {
	return time.Now().UTC()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// storeError wraps persistence failures; constraint violations become conflicts.
func storeError(err error) error {
	return apperrors.NewStoreError(err, errors.Is(err, repository.ErrConstraint))
}

func lookupError(resource, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return storeError(err)
}

func actorFromContext(ctx context.Context) events.Actor {
	p, ok := domain.PrincipalFrom(ctx)
	if !ok {
		return events.Actor{}
	}
	return events.Actor{UserID: p.UserID, Role: p.Role}
}

// publishEvent stamps and dispatches an event. Dispatch failures are logged
// and never fail the committed operation.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = utcNow()
	}
	if event.Actor == (events.Actor{}) {
		event.Actor = actorFromContext(ctx)
	}
	if err := dispatcher.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn("event dispatch failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
	}
}
