package identity

import (
	"context"
	"log/slog"

	"github.com/joescharf/bugless/internal/models"
	"github.com/joescharf/bugless/internal/password"
)

// Observer receives one call per Gateway operation.
type Observer interface {
	ObserveAuth(op string, ok bool)
}

// Gateway runs account operations against a Provider and publishes the
// resulting identity on the caller's Session. It keeps no state of its
// own. Every error it returns is an *Error.
type Gateway struct {
	provider Provider
	logger   *slog.Logger
	observer Observer
}

// NewGateway creates a Gateway. logger and obs may be nil.
func NewGateway(p Provider, logger *slog.Logger, obs Observer) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{provider: p, logger: logger.With("system", "identity"), observer: obs}
}

func (g *Gateway) observe(op string, err error) error {
	if err != nil {
		g.logger.Info("identity operation failed", "op", op, "error", err)
	}
	if g.observer != nil {
		g.observer.ObserveAuth(op, err == nil)
	}
	return err
}

// SignUp creates an account and signs it in. The password policy is
// checked before the provider is contacted.
func (g *Gateway) SignUp(ctx context.Context, sess *Session, email, pw, displayName string) error {
	return g.observe("signup", g.signUp(ctx, sess, email, pw, displayName))
}

func (g *Gateway) signUp(ctx context.Context, sess *Session, email, pw, displayName string) error {
	if res := password.Validate(pw); !res.Valid {
		return wrap(res.Reason, nil)
	}
	id, err := g.provider.CreateAccount(ctx, email, pw)
	if err != nil {
		return wrap(MapError(err), err)
	}
	// The account exists and is signed in even if the name cannot be set.
	updated, err := g.provider.UpdateProfile(ctx, id.UID, displayName)
	if err != nil {
		sess.set(id)
		return wrap(MapError(err), err)
	}
	sess.set(updated)
	return nil
}

// Login signs in with email and password.
func (g *Gateway) Login(ctx context.Context, sess *Session, email, pw string) error {
	return g.observe("login", g.login(ctx, sess, email, pw))
}

func (g *Gateway) login(ctx context.Context, sess *Session, email, pw string) error {
	id, err := g.provider.SignIn(ctx, email, pw)
	if err != nil {
		return wrap(MapError(err), err)
	}
	sess.set(id)
	return nil
}

// FederatedURL returns the URL that starts a federated sign-in.
func (g *Gateway) FederatedURL(state string) (string, error) {
	u, err := g.provider.FederatedAuthURL(state)
	if err != nil {
		return "", wrap(MapFederatedError(err), err)
	}
	return u, nil
}

// LoginFederated completes a federated sign-in with the authorization
// code from the callback. An empty code means the user backed out.
func (g *Gateway) LoginFederated(ctx context.Context, sess *Session, code string) error {
	return g.observe("federated", g.loginFederated(ctx, sess, code))
}

func (g *Gateway) loginFederated(ctx context.Context, sess *Session, code string) error {
	if code == "" {
		err := &ProviderError{Code: CodePopupClosed}
		return wrap(MapFederatedError(err), err)
	}
	id, err := g.provider.SignInFederated(ctx, code)
	if err != nil {
		return wrap(MapFederatedError(err), err)
	}
	sess.set(id)
	return nil
}

// Logout signs the session out. A session with no user is a no-op.
func (g *Gateway) Logout(ctx context.Context, sess *Session) error {
	return g.observe("logout", g.logout(ctx, sess))
}

func (g *Gateway) logout(ctx context.Context, sess *Session) error {
	cur := sess.CurrentUser()
	if cur == nil {
		return nil
	}
	if err := g.provider.SignOut(ctx, cur.UID); err != nil {
		return wrap(MsgSignOutFailed, err)
	}
	sess.set(nil)
	return nil
}

// UpdateDisplayName changes the signed-in user's display name.
func (g *Gateway) UpdateDisplayName(ctx context.Context, sess *Session, name string) error {
	return g.observe("update_name", g.updateDisplayName(ctx, sess, name))
}

func (g *Gateway) updateDisplayName(ctx context.Context, sess *Session, name string) error {
	cur := sess.CurrentUser()
	if cur == nil {
		return wrap(MsgNoUser, nil)
	}
	id, err := g.provider.UpdateProfile(ctx, cur.UID, name)
	if err != nil {
		return wrap(MapError(err), err)
	}
	sess.set(id)
	return nil
}

// UpdateEmail re-authenticates with currentPassword, then changes the
// email address.
func (g *Gateway) UpdateEmail(ctx context.Context, sess *Session, newEmail, currentPassword string) error {
	return g.observe("update_email", g.updateEmail(ctx, sess, newEmail, currentPassword))
}

func (g *Gateway) updateEmail(ctx context.Context, sess *Session, newEmail, currentPassword string) error {
	cur := sess.CurrentUser()
	if cur == nil || cur.Email == "" {
		return wrap(MsgNoUser, nil)
	}
	if err := g.reauthenticate(ctx, cur, currentPassword); err != nil {
		return err
	}
	id, err := g.provider.UpdateEmail(ctx, cur.UID, newEmail)
	if err != nil {
		return wrap(MapError(err), err)
	}
	sess.set(id)
	return nil
}

// UpdatePassword checks the policy, re-authenticates with
// currentPassword, then changes the password.
func (g *Gateway) UpdatePassword(ctx context.Context, sess *Session, currentPassword, newPassword string) error {
	return g.observe("update_password", g.updatePassword(ctx, sess, currentPassword, newPassword))
}

func (g *Gateway) updatePassword(ctx context.Context, sess *Session, currentPassword, newPassword string) error {
	cur := sess.CurrentUser()
	if cur == nil || cur.Email == "" {
		return wrap(MsgNoUser, nil)
	}
	if res := password.Validate(newPassword); !res.Valid {
		return wrap(res.Reason, nil)
	}
	if err := g.reauthenticate(ctx, cur, currentPassword); err != nil {
		return err
	}
	if err := g.provider.UpdatePassword(ctx, cur.UID, newPassword); err != nil {
		return wrap(MapError(err), err)
	}
	return nil
}

func (g *Gateway) reauthenticate(ctx context.Context, cur *models.Identity, pw string) error {
	err := g.provider.Reauthenticate(ctx, cur.UID, pw)
	if err == nil {
		return nil
	}
	switch codeOf(err) {
	case CodeWrongPassword, CodeInvalidCredential:
		return wrap(MsgWrongPassword, err)
	default:
		return wrap(MapError(err), err)
	}
}
