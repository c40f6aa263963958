package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"finitefield.org/signin/internal/httpserver"
	"finitefield.org/signin/internal/httpserver/middleware"
	"finitefield.org/signin/internal/i18n"
	"finitefield.org/signin/internal/identity"
	"finitefield.org/signin/internal/session"
	"finitefield.org/signin/internal/tokenstore"
)

// Credentials of the user every test server knows.
const (
	TestEmail    = "ana@example.com"
	TestPassword = "correct-horse"
	TestUID      = "user-ana"
)

// CSRFCookieName is the double-submit cookie used by test servers.
const CSRFCookieName = "csrf_token"

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*httpserver.Config)

// WithAuthenticator overrides the authenticator used by the sign-in form.
func WithAuthenticator(auth identity.Authenticator) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Authenticator = auth
	}
}

// WithVerifier overrides the token verifier used by the auth middleware.
func WithVerifier(verifier identity.Verifier) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Verifier = verifier
	}
}

// WithTokens swaps the token store provider.
func WithTokens(tokens tokenstore.Provider) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Tokens = tokens
	}
}

// WithAppTitle sets the configurable application title.
func WithAppTitle(title string) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.AppTitle = title
	}
}

// WithLogger routes server logs to logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Logger = logger
	}
}

// WithHealth installs a readiness check.
func WithHealth(check func(context.Context) error) ServerOption {
	return func(cfg *httpserver.Config) {
		cfg.Health = check
	}
}

// NewLocalProvider returns a provider that knows TestEmail/TestPassword.
func NewLocalProvider(t testing.TB) *identity.LocalProvider {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	doc := fmt.Sprintf("users:\n  - uid: %s\n    email: %s\n    password_hash: %q\n", TestUID, TestEmail, string(hash))
	provider, err := identity.NewLocalProvider(strings.NewReader(doc), identity.LocalConfig{
		Secret: []byte("test-secret-test-secret-test-sec"),
		Issuer: "signin-test",
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("local provider: %v", err)
	}
	return provider
}

// NewServer constructs an httptest server running the sign-in HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	provider := NewLocalProvider(t)

	sessions, err := session.NewManager(session.Config{
		CookieName: "signin_session",
		HashKey:    []byte("12345678901234567890123456789012"),
		BlockKey:   []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
	})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	bundle, err := i18n.Load(i18n.Locales(), "pt", []string{"pt", "en"})
	if err != nil {
		t.Fatalf("i18n: %v", err)
	}

	cfg := httpserver.Config{
		Address: ":0",
		Paths: httpserver.Paths{
			SignIn:  "/",
			Home:    "/home",
			SignUp:  "/sign-up",
			SignOut: "/sign-out",
		},
		Authenticator: provider,
		Verifier:      provider,
		Tokens:        tokenstore.SessionProvider{},
		Sessions:      sessions,
		Translations:  bundle,
		CSRF: middleware.CSRFConfig{
			CookieName: CSRFCookieName,
			HeaderName: "X-CSRF-Token",
		},
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	srv, err := httpserver.New(cfg)
	if err != nil {
		t.Fatalf("httpserver: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}
