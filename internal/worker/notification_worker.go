package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/mailer"
	"github.com/spec-kit/support-desk/internal/service"
)

// StartNotificationWorker subscribes the notification service to ticket events
// and drains outbox in the background until ctx ends. The returned channel is
// closed once the drain loop has exited.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, outbox *mailer.Queue, logger *zap.Logger) <-chan struct{} {
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	if notificationService != nil {
		notificationService.RegisterHandlers()
		logger.Info("notification handlers registered")
	}
	if outbox == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		logger.Info("mail queue started")
		outbox.Run(ctx)
		logger.Info("mail queue stopped")
	}()
	return done
}
