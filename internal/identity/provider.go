// Package identity wraps the identity service: account creation, sign-in,
// federated sign-in and profile changes, plus the session object that
// broadcasts sign-in state.
package identity

import (
	"context"

	"github.com/joescharf/bugless/internal/models"
)

// Provider is the identity service. Failures are *ProviderError.
type Provider interface {
	CreateAccount(ctx context.Context, email, password string) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) (*models.Identity, error)
	FederatedAuthURL(state string) (string, error)
	SignInFederated(ctx context.Context, code string) (*models.Identity, error)
	SignOut(ctx context.Context, uid string) error
	UpdateProfile(ctx context.Context, uid, displayName string) (*models.Identity, error)
	Reauthenticate(ctx context.Context, uid, password string) error
	UpdateEmail(ctx context.Context, uid, newEmail string) (*models.Identity, error)
	UpdatePassword(ctx context.Context, uid, newPassword string) error
}

// FederatedClaims are the verified claims of a federated sign-in.
type FederatedClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// FederatedVerifier runs the authorization-code flow of an external
// identity provider.
type FederatedVerifier interface {
	AuthCodeURL(state string) string
	Verify(ctx context.Context, code string) (*FederatedClaims, error)
}
