// Package identity adapts external identity providers to the sign-in form.
package identity

import (
	"context"
	"errors"
	"time"
)

// User is the identity returned by a provider after a successful sign-in.
type User struct {
	UID         string
	Email       string
	AccessToken string
}

// Credential is the result of a successful sign-in.
type Credential struct {
	User         User
	RefreshToken string
	ExpiresAt    time.Time
}

// Authenticator verifies an email/password pair with the identity provider.
// Implementations may block on network I/O and must honour ctx.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*Credential, error)
}

// Verifier resolves an access token previously issued by the provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (*User, error)
}

// Provider is an identity provider that can both sign users in and verify their tokens.
type Provider interface {
	Authenticator
	Verifier
}

var (
	// ErrInvalidCredentials is returned when the provider rejects the email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCredentials is returned when email, password or token is empty.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrProviderUnavailable is returned for transport or service failures.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrTokenInvalid is returned when a token cannot be verified.
	ErrTokenInvalid = errors.New("invalid token")
)

const (
	ReasonInvalidCredentials  = "invalid_credentials"
	ReasonMissingCredentials  = "missing_credentials"
	ReasonUserDisabled        = "user_disabled"
	ReasonTooManyAttempts     = "too_many_attempts"
	ReasonProviderUnavailable = "provider_unavailable"
	ReasonTokenInvalid        = "token_invalid"
	ReasonTokenExpired        = "token_expired"
)

// Error carries a reason code for a failed provider call. Reasons are for diagnostics only;
// the form shows the same message for all of them.
type Error struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return e.Reason + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError constructs an *Error with the provided reason.
func NewError(reason string, err error) error {
	return &Error{Reason: reason, Err: err}
}

// ReasonOf extracts the reason code of err, or "" when it carries none.
func ReasonOf(err error) string {
	var idErr *Error
	if errors.As(err, &idErr) {
		return idErr.Reason
	}
	return ""
}
