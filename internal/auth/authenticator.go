// Package auth handles participant accounts: password registration and
// login, and the JWT sessions that carry the participant name.
package auth

import (
	"context"

	"github.com/mmynk/paymenext/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The RPC layer depends only on this, so the credential scheme can change
// without touching handlers.
type Authenticator interface {
	// Register creates a new account. displayName becomes the participant
	// name the user acts as in groups.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credentials and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}

// UserStorage is the persistence the authenticator needs. storage.Store
// satisfies it.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
