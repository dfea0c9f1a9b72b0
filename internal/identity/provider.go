package identity

import (
	"context"

	"github.com/mc3-grc/user-lifecycle-service/internal/domain"
)

// CreateUserInput carries the parameters for provisioning a new identity.
type CreateUserInput struct {
	Email             string
	Attributes        map[string]string
	TemporaryPassword string
	SendWelcomeEmail  bool
}

// Provider wraps admin operations against the external identity provider.
// "User not found" results are returned as nil values, not errors; every
// other provider error propagates unchanged. Retry policy, where any, lives
// in the caller.
type Provider interface {
	GetUser(ctx context.Context, email string) (*domain.IdentityUser, error)
	ListUsers(ctx context.Context, limit int32, cursor string) ([]domain.IdentityUser, string, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*domain.IdentityUser, error)
	DeleteUser(ctx context.Context, email string) error
	EnableUser(ctx context.Context, email string) error
	DisableUser(ctx context.Context, email string) error
	UpdateAttributes(ctx context.Context, email string, attrs map[string]string) error
	AddToGroup(ctx context.Context, email, group string) error
	RemoveFromGroup(ctx context.Context, email, group string) error
	ListGroups(ctx context.Context, email string) ([]string, error)
	ConfirmUser(ctx context.Context, email string) error
	SetTemporaryPassword(ctx context.Context, email, password string) error
}
