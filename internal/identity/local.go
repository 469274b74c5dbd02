package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/store"
)

// Account providers.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// minProviderPassword is the provider's own floor, below the policy.
const minProviderPassword = 6

// LocalProvider is a Provider backed by the accounts table, with bcrypt
// password hashes. Federated sign-in is available when a verifier is set.
type LocalProvider struct {
	store     store.Store
	federated FederatedVerifier

	// Cost is the bcrypt cost for new hashes.
	Cost int
}

// NewLocalProvider creates a LocalProvider. fed may be nil.
func NewLocalProvider(s store.Store, fed FederatedVerifier) *LocalProvider {
	return &LocalProvider{store: s, federated: fed, Cost: bcrypt.DefaultCost}
}

func (p *LocalProvider) CreateAccount(ctx context.Context, email, password string) (*models.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	hash, err := p.hash(password)
	if err != nil {
		return nil, err
	}

	a := &store.Account{Email: email, PasswordHash: hash, Provider: ProviderPassword}
	if err := p.store.CreateAccount(ctx, a); err != nil {
		return nil, providerErr(err)
	}
	return toIdentity(a), nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	a, err := p.store.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, providerErr(err)
	}
	if err := checkPassword(a, password); err != nil {
		return nil, err
	}
	return toIdentity(a), nil
}

func (p *LocalProvider) FederatedAuthURL(state string) (string, error) {
	if p.federated == nil {
		return "", &ProviderError{Code: CodeNotAllowed}
	}
	return p.federated.AuthCodeURL(state), nil
}

// SignInFederated completes a federated sign-in, creating the account on
// first use. An existing account with the same email is reused only when
// the provider has verified that address.
func (p *LocalProvider) SignInFederated(ctx context.Context, code string) (*models.Identity, error) {
	if p.federated == nil {
		return nil, &ProviderError{Code: CodeNotAllowed}
	}
	claims, err := p.federated.Verify(ctx, code)
	if err != nil {
		return nil, providerErr(err)
	}
	if claims.Email == "" {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: errors.New("no email claim")}
	}
	if !claims.EmailVerified {
		return nil, &ProviderError{Code: CodeInvalidCredential, Err: errors.New("email not verified")}
	}

	a, err := p.store.GetAccountByEmail(ctx, claims.Email)
	if errors.Is(err, store.ErrNotFound) {
		a = &store.Account{Email: claims.Email, DisplayName: claims.Name, Provider: ProviderGoogle}
		err = p.store.CreateAccount(ctx, a)
	}
	if err != nil {
		return nil, providerErr(err)
	}
	return toIdentity(a), nil
}

func (p *LocalProvider) SignOut(_ context.Context, _ string) error { return nil }

func (p *LocalProvider) UpdateProfile(ctx context.Context, uid, displayName string) (*models.Identity, error) {
	a, err := p.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, providerErr(err)
	}
	a.DisplayName = strings.TrimSpace(displayName)
	if err := p.store.UpdateAccount(ctx, a); err != nil {
		return nil, providerErr(err)
	}
	return toIdentity(a), nil
}

func (p *LocalProvider) Reauthenticate(ctx context.Context, uid, password string) error {
	a, err := p.store.GetAccount(ctx, uid)
	if err != nil {
		return providerErr(err)
	}
	return checkPassword(a, password)
}

func (p *LocalProvider) UpdateEmail(ctx context.Context, uid, newEmail string) (*models.Identity, error) {
	email, err := normalizeEmail(newEmail)
	if err != nil {
		return nil, err
	}
	a, err := p.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, providerErr(err)
	}
	a.Email = email
	if err := p.store.UpdateAccount(ctx, a); err != nil {
		return nil, providerErr(err)
	}
	return toIdentity(a), nil
}

func (p *LocalProvider) UpdatePassword(ctx context.Context, uid, newPassword string) error {
	hash, err := p.hash(newPassword)
	if err != nil {
		return err
	}
	a, err := p.store.GetAccount(ctx, uid)
	if err != nil {
		return providerErr(err)
	}
	a.PasswordHash = hash
	if err := p.store.UpdateAccount(ctx, a); err != nil {
		return providerErr(err)
	}
	return nil
}

func (p *LocalProvider) hash(password string) (string, error) {
	if len(password) < minProviderPassword {
		return "", &ProviderError{Code: CodeWeakPassword}
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.Cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", &ProviderError{Code: CodePasswordTooLong, Err: err}
	}
	if err != nil {
		return "", &ProviderError{Code: CodeInternal, Err: err}
	}
	return string(h), nil
}

func checkPassword(a *store.Account, password string) error {
	if a.PasswordHash == "" {
		return &ProviderError{Code: CodeInvalidCredential, Err: errors.New("account has no password")}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return &ProviderError{Code: CodeWrongPassword}
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", &ProviderError{Code: CodeInvalidEmail, Err: err}
	}
	return email, nil
}

func providerErr(err error) error {
	var pe *ProviderError
	switch {
	case errors.As(err, &pe):
		return pe
	case errors.Is(err, store.ErrNotFound):
		return &ProviderError{Code: CodeUserNotFound, Err: err}
	case errors.Is(err, store.ErrAccountExists):
		return &ProviderError{Code: CodeEmailInUse, Err: err}
	default:
		return &ProviderError{Code: CodeInternal, Err: err}
	}
}

func toIdentity(a *store.Account) *models.Identity {
	return &models.Identity{
		UID:          a.UID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		CreationTime: a.CreatedAt.UTC().Format(models.TimeLayout),
		Provider:     a.Provider,
	}
}
