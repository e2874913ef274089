package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/notify"
)

// NotificationService forwards withdrawal events to the outbound publisher.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  notify.Publisher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, publisher notify.Publisher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserWithdrawn, n.handleUserWithdrawn)
}

func (n *NotificationService) handleUserWithdrawn(ctx context.Context, event events.Event) error {
	if err := n.publisher.PublishWithdrawal(ctx, event.UserID, event.Timestamp); err != nil {
		// best-effort delivery: log and move on
		n.logger.Warn("withdrawal publish failed",
			zap.Int64("user_id", event.UserID),
			zap.Error(err))
	}
	return nil
}
