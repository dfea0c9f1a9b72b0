package events

import (
	"time"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated       EventType = "user_created"
	EventUserApproved      EventType = "user_approved"
	EventUserRejected      EventType = "user_rejected"
	EventUserSuspended     EventType = "user_suspended"
	EventUserReactivated   EventType = "user_reactivated"
	EventUserPasswordReset EventType = "user_password_reset"
)

// Event represents a lifecycle event emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	Email       string      `json:"email"`
	PerformedBy string      `json:"performed_by"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// UserCreatedPayload payload.
type UserCreatedPayload struct {
	Role        domain.Role `json:"role"`
	SendWelcome bool        `json:"send_welcome"`
}

// UserRejectedPayload payload.
type UserRejectedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// UserSuspendedPayload payload.
type UserSuspendedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// UserPasswordResetPayload payload.
type UserPasswordResetPayload struct {
	TempPassword string `json:"-"`
	Notify       bool   `json:"notify"`
}
