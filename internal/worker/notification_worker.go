package worker

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/service"
)

// StartNotificationWorker registers notification handlers and releases the
// broker connection once ctx is cancelled. The returned channel is closed
// after cleanup. closer may be nil.
func StartNotificationWorker(ctx context.Context, notifications *service.NotificationService, closer io.Closer, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if notifications == nil {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifications.RegisterHandlers()
	logger.Info("notification worker started", zap.Bool("broker", closer != nil))

	go func() {
		defer close(done)
		<-ctx.Done()
		if closer == nil {
			return
		}
		if err := closer.Close(); err != nil {
			logger.Warn("close broker publisher", zap.Error(err))
		}
	}()
	return done
}
