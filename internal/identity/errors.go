package identity

import (
	"errors"
	"fmt"
)

// Code is an identity provider error code.
type Code string

const (
	CodeEmailInUse        Code = "auth/email-already-in-use"
	CodeInvalidEmail      Code = "auth/invalid-email"
	CodeWeakPassword      Code = "auth/weak-password"
	CodePasswordTooLong   Code = "auth/password-too-long"
	CodeUserNotFound      Code = "auth/user-not-found"
	CodeWrongPassword     Code = "auth/wrong-password"
	CodeInvalidCredential Code = "auth/invalid-credential"
	CodePopupClosed       Code = "auth/popup-closed-by-user"
	CodeNotAllowed        Code = "auth/operation-not-allowed"
	CodeInternal          Code = "auth/internal-error"
)

// ProviderError is a failure reported by a Provider.
type ProviderError struct {
	Code Code
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func codeOf(err error) Code {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// ErrIdentity matches every error returned by Gateway.
var ErrIdentity = errors.New("identity error")

// User-facing messages.
const (
	MsgEmailInUse        = "This email address is already in use."
	MsgInvalidEmail      = "Please enter a valid email address."
	MsgWeakPassword      = "Password must be at least 8 characters and include uppercase, lowercase, number, and special character."
	MsgPasswordTooLong   = "Password must be at most 72 bytes long."
	MsgInvalidLogin      = "Invalid email or password."
	MsgUnexpected        = "An unexpected error occurred. Please try again."
	MsgFederatedCanceled = "Sign-in cancelled. Please try again."
	MsgFederatedFailed   = "Failed to sign in with Google. Please try again."
	MsgSignOutFailed     = "Failed to sign out."
	MsgNoUser            = "No user is currently signed in."
	MsgWrongPassword     = "Current password is incorrect."
)

// Error is a Gateway failure with a static, user-facing Message.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrIdentity }

// MapError converts a provider failure into a user-facing message.
// Not-found and wrong-password collapse into one message so a caller
// cannot tell which part of the login was wrong.
func MapError(err error) string {
	switch codeOf(err) {
	case CodeEmailInUse:
		return MsgEmailInUse
	case CodeInvalidEmail:
		return MsgInvalidEmail
	case CodeWeakPassword:
		return MsgWeakPassword
	case CodePasswordTooLong:
		return MsgPasswordTooLong
	case CodeUserNotFound, CodeWrongPassword, CodeInvalidCredential:
		return MsgInvalidLogin
	default:
		return MsgUnexpected
	}
}

// MapFederatedError converts a federated sign-in failure into a
// user-facing message.
func MapFederatedError(err error) string {
	if codeOf(err) == CodePopupClosed {
		return MsgFederatedCanceled
	}
	return MsgFederatedFailed
}

func wrap(msg string, err error) *Error {
	return &Error{Message: msg, Err: err}
}
