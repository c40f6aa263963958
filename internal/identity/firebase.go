package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"finitefield.org/signin/internal/config"
)

const defaultFirebaseTimeout = 10 * time.Second

// PasswordSigner performs the email/password exchange against Firebase Authentication.
type PasswordSigner interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identitytoolkit.VerifyPasswordResponse, error)
}

// FirebaseTokenVerifier abstracts the Firebase Admin SDK client for testability.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator signs users in with the Identity Toolkit REST API and verifies the
// issued ID tokens with the Admin SDK.
type FirebaseAuthenticator struct {
	signer   PasswordSigner
	verifier FirebaseTokenVerifier
	timeout  time.Duration
	now      func() time.Time
}

// FirebaseOption customises FirebaseAuthenticator instances.
type FirebaseOption func(*FirebaseAuthenticator)

// WithFirebaseTimeout bounds each call to Firebase. Non-positive values are ignored.
func WithFirebaseTimeout(d time.Duration) FirebaseOption {
	return func(f *FirebaseAuthenticator) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithFirebaseClock overrides the clock used to compute token expiry.
func WithFirebaseClock(now func() time.Time) FirebaseOption {
	return func(f *FirebaseAuthenticator) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFirebaseAuthenticatorWith builds an authenticator from explicit collaborators.
func NewFirebaseAuthenticatorWith(signer PasswordSigner, verifier FirebaseTokenVerifier, opts ...FirebaseOption) *FirebaseAuthenticator {
	if signer == nil {
		panic("firebase password signer is required")
	}
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	f := &FirebaseAuthenticator{
		signer:   signer,
		verifier: verifier,
		timeout:  defaultFirebaseTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// NewFirebaseAuthenticator initialises the Identity Toolkit and Admin SDK clients.
func NewFirebaseAuthenticator(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseAuthenticator, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("firebase api key is required")
	}

	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("initialise identity toolkit: %w", err)
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}

	return NewFirebaseAuthenticatorWith(&toolkitSigner{svc: toolkit}, authClient, WithFirebaseTimeout(cfg.Timeout)), nil
}

// Authenticate exchanges the email/password pair for a Firebase ID token.
func (f *FirebaseAuthenticator) Authenticate(ctx context.Context, email, password string) (*Credential, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, NewError(ReasonMissingCredentials, ErrMissingCredentials)
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.signer.SignInWithPassword(callCtx, email, password)
	if err != nil {
		return nil, classifyFirebaseError(err)
	}
	if resp == nil || strings.TrimSpace(resp.IdToken) == "" {
		return nil, NewError(ReasonProviderUnavailable, fmt.Errorf("%w: empty id token", ErrProviderUnavailable))
	}

	cred := &Credential{
		User: User{
			UID:         resp.LocalId,
			Email:       firstNonEmpty(resp.Email, email),
			AccessToken: resp.IdToken,
		},
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		cred.ExpiresAt = f.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}
	return cred, nil
}

// Verify validates a Firebase ID token and maps it onto a User.
func (f *FirebaseAuthenticator) Verify(ctx context.Context, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewError(ReasonMissingCredentials, ErrMissingCredentials)
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	verified, err := f.verifier.VerifyIDToken(callCtx, token)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return nil, NewError(ReasonTokenExpired, fmt.Errorf("%w: %v", ErrTokenInvalid, err))
		}
		return nil, NewError(ReasonTokenInvalid, fmt.Errorf("%w: %v", ErrTokenInvalid, err))
	}

	email, _ := verified.Claims["email"].(string)
	return &User{
		UID:         verified.UID,
		Email:       strings.TrimSpace(email),
		AccessToken: token,
	}, nil
}

// classifyFirebaseError maps Identity Toolkit failures onto reason codes. Firebase reports
// the cause as an upper-case code in the error message, e.g. "INVALID_LOGIN_CREDENTIALS" or
// "TOO_MANY_ATTEMPTS_TRY_LATER : ...".
func classifyFirebaseError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewError(ReasonProviderUnavailable, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}

	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return NewError(ReasonProviderUnavailable, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}

	code := firebaseErrorCode(apiErr)
	switch {
	case code == "EMAIL_NOT_FOUND", code == "INVALID_PASSWORD", code == "INVALID_LOGIN_CREDENTIALS",
		code == "INVALID_EMAIL", code == "MISSING_PASSWORD":
		return NewError(ReasonInvalidCredentials, fmt.Errorf("%w: %s", ErrInvalidCredentials, code))
	case code == "USER_DISABLED":
		return NewError(ReasonUserDisabled, fmt.Errorf("%w: %s", ErrInvalidCredentials, code))
	case strings.HasPrefix(code, "TOO_MANY_ATTEMPTS"):
		return NewError(ReasonTooManyAttempts, fmt.Errorf("%w: %s", ErrInvalidCredentials, code))
	case apiErr.Code >= http.StatusInternalServerError:
		return NewError(ReasonProviderUnavailable, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	case apiErr.Code == http.StatusBadRequest:
		return NewError(ReasonInvalidCredentials, fmt.Errorf("%w: %v", ErrInvalidCredentials, err))
	default:
		return NewError(ReasonProviderUnavailable, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}
}

func firebaseErrorCode(apiErr *googleapi.Error) string {
	msg := apiErr.Message
	if msg == "" && len(apiErr.Errors) > 0 {
		msg = apiErr.Errors[0].Message
	}
	msg = strings.TrimSpace(msg)
	if i := strings.IndexAny(msg, " :"); i >= 0 {
		msg = msg[:i]
	}
	return msg
}

type toolkitSigner struct {
	svc *identitytoolkit.Service
}

func (s *toolkitSigner) SignInWithPassword(ctx context.Context, email, password string) (*identitytoolkit.VerifyPasswordResponse, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}
	return s.svc.Relyingparty.VerifyPassword(req).Context(ctx).Do()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
