package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/JKGhartey/task-manager-sub001/internal/config"
	"github.com/JKGhartey/task-manager-sub001/internal/events"
)

// NotificationService handles emitting notifications for account events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventEmailVerificationRequested, n.handleTokenMail("verify-email"))
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handleTokenMail("reset-password"))
	n.dispatcher.Subscribe(events.EventPasswordChanged, n.handleAccountChange)
	n.dispatcher.Subscribe(events.EventEmailVerified, n.handleAccountChange)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.UserID))
	if p, ok := event.Payload.(events.AccountPayload); ok {
		n.sendEmailNotificationStub(ctx, event, p.Email)
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleTokenMail(template string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		p, ok := event.Payload.(events.TokenPayload)
		if !ok {
			return nil
		}
		n.logger.Info("TokenMail",
			zap.String("user_id", event.UserID),
			zap.String("template", template),
			zap.Time("expires_at", p.ExpiresAt))
		n.sendEmailNotificationStub(ctx, event, p.Email)
		return nil
	}
}

func (n *NotificationService) handleAccountChange(ctx context.Context, event events.Event) error {
	n.logger.Info("AccountChanged", zap.String("user_id", event.UserID), zap.String("event_type", string(event.Type)))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, to string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || to == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}
