package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DefaultGoogleIssuer is Google's OpenID Connect issuer.
const DefaultGoogleIssuer = "https://accounts.google.com"

// GoogleConfig configures Google sign-in.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Issuer       string
}

// GoogleAuthenticator is a FederatedVerifier for Google accounts using the
// OAuth2 authorization-code flow and ID-token verification.
type GoogleAuthenticator struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewGoogleAuthenticator discovers the issuer's endpoints. It makes one
// network call.
func NewGoogleAuthenticator(ctx context.Context, cfg GoogleConfig) (*GoogleAuthenticator, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("google client id is required")
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultGoogleIssuer
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", issuer, err)
	}

	return &GoogleAuthenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}, nil
}

func (g *GoogleAuthenticator) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Verify exchanges code for tokens and verifies the ID token.
func (g *GoogleAuthenticator) Verify(ctx context.Context, code string) (*FederatedClaims, error) {
	if code == "" {
		return nil, &ProviderError{Code: CodePopupClosed}
	}
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: err}
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: errors.New("no id_token in token response")}
	}
	idTok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: err}
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idTok.Claims(&claims); err != nil {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: err}
	}
	if !claims.EmailVerified {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: errors.New("email not verified")}
	}
	return &FederatedClaims{
		Subject:       idTok.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}
