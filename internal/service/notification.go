package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/mc3-grc/user-lifecycle-service/internal/events"
	"github.com/mc3-grc/user-lifecycle-service/internal/notify"
)

// NotificationService turns lifecycle events into templated emails. Sends
// are fire-and-forget: a failed render or delivery is logged and never
// surfaces to the operation that published the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	renderer   *notify.Renderer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mailer notify.Mailer, renderer *notify.Renderer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		renderer:   renderer,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserCreated, n.handleUserCreated)
	n.dispatcher.Subscribe(events.EventUserApproved, n.handleUserApproved)
	n.dispatcher.Subscribe(events.EventUserRejected, n.handleUserRejected)
	n.dispatcher.Subscribe(events.EventUserSuspended, n.handleUserSuspended)
	n.dispatcher.Subscribe(events.EventUserReactivated, n.handleUserReactivated)
	n.dispatcher.Subscribe(events.EventUserPasswordReset, n.handleUserPasswordReset)
}

func (n *NotificationService) handleUserCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserCreatedPayload)
	if !ok || !payload.SendWelcome {
		return nil
	}
	body, err := n.renderer.Welcome(string(payload.Role))
	if err != nil {
		n.logger.Error("welcome render failed", zap.Error(err))
		return nil
	}
	n.send(ctx, event.Email, "User Account Created", body)
	return nil
}

func (n *NotificationService) handleUserApproved(ctx context.Context, event events.Event) error {
	body, err := n.renderer.Approval()
	if err != nil {
		n.logger.Error("approval render failed", zap.Error(err))
		return nil
	}
	n.send(ctx, event.Email, "Welcome to MC3 GRC Platform - Your Account is Approved", body)
	return nil
}

// Rejection and suspension mails go out only when a reason was recorded.
func (n *NotificationService) handleUserRejected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserRejectedPayload)
	if !ok || payload.Reason == "" {
		return nil
	}
	body, err := n.renderer.Rejection(payload.Reason)
	if err != nil {
		n.logger.Error("rejection render failed", zap.Error(err))
		return nil
	}
	n.send(ctx, event.Email, "MC3 GRC Platform - Account Request Status", body)
	return nil
}

func (n *NotificationService) handleUserSuspended(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserSuspendedPayload)
	if !ok || payload.Reason == "" {
		return nil
	}
	body, err := n.renderer.Suspension(payload.Reason)
	if err != nil {
		n.logger.Error("suspension render failed", zap.Error(err))
		return nil
	}
	n.send(ctx, event.Email, "MC3 GRC Platform - Account Status Update", body)
	return nil
}

func (n *NotificationService) handleUserReactivated(ctx context.Context, event events.Event) error {
	body, err := n.renderer.Reactivation()
	if err != nil {
		n.logger.Error("reactivation render failed", zap.Error(err))
		return nil
	}
	n.send(ctx, event.Email, "MC3 GRC Platform - Account Reactivated", body)
	return nil
}

func (n *NotificationService) handleUserPasswordReset(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserPasswordResetPayload)
	if !ok || !payload.Notify {
		return nil
	}
	body, err := n.renderer.PasswordReset(payload.TempPassword)
	if err != nil {
		n.logger.Error("password reset render failed", zap.Error(err))
		return nil
	}
	n.send(ctx, event.Email, "MC3 GRC Platform - Password Reset", body)
	return nil
}

func (n *NotificationService) send(ctx context.Context, to, subject, body string) {
	if n.mailer == nil {
		return
	}
	if !n.mailer.Send(ctx, to, subject, body) {
		n.logger.Warn("notification send failed",
			zap.String("to", to),
			zap.String("subject", subject))
	}
}
