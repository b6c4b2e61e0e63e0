package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mailer"
	"github.com/spec-kit/support-desk/internal/repository"
)

// EventPublisher forwards serialized events to an external channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	users      repository.UserRepository
	publisher  EventPublisher
	mailer     mailer.Mailer
}

// NotificationDependencies bundles collaborators. Publisher and Mailer are optional.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.NotificationConfig
	UserRepo   repository.UserRepository
	Publisher  EventPublisher
	Mailer     mailer.Mailer
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        deps.Config,
		users:      deps.UserRepo,
		publisher:  deps.Publisher,
		mailer:     deps.Mailer,
	}
}

// RegisterHandlers subscribes to every ticket event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllTicketEvents {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info("ticket event",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.ActorID))

	return errors.Join(n.publish(ctx, event), n.email(ctx, event))
}

func (n *NotificationService) publish(ctx context.Context, event events.Event) error {
	if n.publisher == nil || n.cfg.RedisChannel == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, n.cfg.RedisChannel, payload); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (n *NotificationService) email(ctx context.Context, event events.Event) error {
	if n.mailer == nil || n.users == nil {
		return nil
	}

	var recipientID, subject, body string
	switch payload := event.Payload.(type) {
	case events.TicketResponseAddedPayload:
		if payload.IsInternal || payload.AuthorID == event.CreatorID {
			return nil
		}
		recipientID = event.CreatorID
		subject = fmt.Sprintf("New response on ticket: %s", event.TicketTitle)
		body = fmt.Sprintf("A new response was added to your ticket %q:\n\n%s", event.TicketTitle, payload.BodyPreview)
	case events.TicketStatusChangedPayload:
		if event.ActorID == event.CreatorID {
			return nil
		}
		recipientID = event.CreatorID
		subject = fmt.Sprintf("Ticket status changed: %s", event.TicketTitle)
		body = fmt.Sprintf("Your ticket %q moved from %s to %s.", event.TicketTitle, payload.OldStatus, payload.NewStatus)
	case events.TicketAssignedPayload:
		if payload.AssigneeID == event.ActorID {
			return nil
		}
		recipientID = payload.AssigneeID
		subject = fmt.Sprintf("Ticket assigned to you: %s", event.TicketTitle)
		body = fmt.Sprintf("The ticket %q has been assigned to you.", event.TicketTitle)
	default:
		return nil
	}

	recipient, err := n.users.GetByID(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("load recipient %s: %w", recipientID, err)
	}
	if !recipient.IsActive {
		return nil
	}
	return n.mailer.Send(ctx, mailer.Message{To: []string{recipient.Email}, Subject: subject, Body: body})
}
