package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	custommw "finitefield.org/signin/internal/httpserver/middleware"
	"finitefield.org/signin/internal/i18n"
	"finitefield.org/signin/internal/identity"
	"finitefield.org/signin/internal/observability"
	"finitefield.org/signin/internal/tokenstore"
	"finitefield.org/signin/public"
)

// Paths are the routes the sign-in flow navigates between.
type Paths struct {
	SignIn  string
	Home    string
	SignUp  string
	SignOut string
}

// Config holds runtime options for the HTTP server.
type Config struct {
	Address  string
	Paths    Paths
	AppTitle string

	Authenticator identity.Authenticator
	Verifier      identity.Verifier
	Tokens        tokenstore.Provider
	Sessions      custommw.SessionStore
	Translations  *i18n.Bundle
	CSRF          custommw.CSRFConfig
	Logger        *zap.Logger
	// Health reports backing service readiness for /healthz. Optional.
	Health func(context.Context) error

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	if cfg.Authenticator == nil {
		return nil, errors.New("httpserver: authenticator is required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("httpserver: verifier is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("httpserver: token provider is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("httpserver: session store is required")
	}
	if cfg.Translations == nil {
		return nil, errors.New("httpserver: translations are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	static, err := public.Handler("/static/")
	if err != nil {
		return nil, fmt.Errorf("embed static: %w", err)
	}

	paths := Paths{
		SignIn:  normalizePath(cfg.Paths.SignIn, "/"),
		Home:    normalizePath(cfg.Paths.Home, "/home"),
		SignUp:  normalizePath(cfg.Paths.SignUp, "/sign-up"),
		SignOut: normalizePath(cfg.Paths.SignOut, "/sign-out"),
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLogger(logger))
	router.Use(observability.RequestLogger())
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))

	router.Handle("/static/*", static)
	router.Get("/healthz", healthHandler(cfg.Health))

	handlers := newSigninHandlers(signinHandlersConfig{
		Authenticator: cfg.Authenticator,
		Verifier:      cfg.Verifier,
		Tokens:        cfg.Tokens,
		Paths:         paths,
		AppTitle:      strings.TrimSpace(cfg.AppTitle),
	})

	mountSigninRoutes(router, handlers, routeOptions{
		Verifier:     cfg.Verifier,
		Tokens:       cfg.Tokens,
		Sessions:     cfg.Sessions,
		Translations: cfg.Translations,
		CSRF:         cfg.CSRF,
		Paths:        paths,
	})

	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  durationOr(cfg.ReadTimeout, 10*time.Second),
		WriteTimeout: durationOr(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  durationOr(cfg.IdleTimeout, 60*time.Second),
	}, nil
}

type routeOptions struct {
	Verifier     identity.Verifier
	Tokens       tokenstore.Provider
	Sessions     custommw.SessionStore
	Translations *i18n.Bundle
	CSRF         custommw.CSRFConfig
	Paths        Paths
}

func mountSigninRoutes(router chi.Router, h *signinHandlers, opts routeOptions) {
	router.Group(func(r chi.Router) {
		r.Use(custommw.HTMX())
		r.Use(custommw.NoStore())
		r.Use(custommw.Session(opts.Sessions))
		r.Use(custommw.Locale(opts.Translations))
		r.Use(custommw.CSRF(opts.CSRF))

		r.Get(opts.Paths.SignIn, h.SignInForm)
		r.Post(opts.Paths.SignIn, h.SignInSubmit)
		r.Get(opts.Paths.SignUp, h.SignUp)
		r.Post(opts.Paths.SignOut, h.SignOut)
		r.With(custommw.Auth(opts.Verifier, opts.Tokens, opts.Paths.SignIn)).Get(opts.Paths.Home, h.Home)
	})
}

func healthHandler(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if check != nil {
			if err := check(r.Context()); err != nil {
				observability.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	}
}

func normalizePath(path, fallback string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
